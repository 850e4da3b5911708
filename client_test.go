package capsara

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/capsara/client-go/internal/transport"
)

type fakeUploader struct {
	failTimes int32
	calls     int32
}

func (f *fakeUploader) Upload(ctx context.Context, packageID string, parts []transport.UploadPart) (*transport.UploadResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if atomic.LoadInt32(&f.failTimes) > 0 {
		atomic.AddInt32(&f.failTimes, -1)
		return nil, &transport.ServerError{StatusCode: 503, Code: "CAPSA_SERVER_ERROR", Message: "try again"}
	}
	return &transport.UploadResult{PackageID: packageID}, nil
}

type fakeBlobStore struct {
	blob []byte
}

func (f *fakeBlobStore) Fetch(ctx context.Context, packageID, blobName string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(f.blob))), nil
}

func TestClient_SendAndDecrypt(t *testing.T) {
	creatorKey := genTestKey(t)
	recipientKey := genTestKey(t)

	uploader := &fakeUploader{}
	client, err := New(uploader, &fakeBlobStore{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	b := client.NewBuilder("party_A", creatorKey)
	if err := b.SetSubject("hi"); err != nil {
		t.Fatal(err)
	}
	if err := b.AddFile(FileFromBytes("a.txt", []byte("data"))); err != nil {
		t.Fatal(err)
	}
	if err := b.AddRecipient(Recipient{PartyID: "party_B"}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddPartyKeys(
		PartyKey{PartyID: "party_A", PublicKey: &creatorKey.PublicKey},
		PartyKey{PartyID: "party_B", PublicKey: &recipientKey.PublicKey},
	); err != nil {
		t.Fatal(err)
	}
	result, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	if _, err := client.Send(ctx, result); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if uploader.calls != 1 {
		t.Errorf("uploader.calls = %d, want 1", uploader.calls)
	}

	cached, ok := client.CachedMasterKey(result.Payload.PackageID)
	if !ok {
		t.Error("expected master key to be cached after Send")
	}
	defer cached.Wipe()

	decrypted, err := client.Decrypt(result.Payload, recipientKey, &creatorKey.PublicKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	defer decrypted.Close()
	if decrypted.Subject != "hi" {
		t.Errorf("Subject = %q, want hi", decrypted.Subject)
	}
}

func TestClient_SendRetriesOnServerError(t *testing.T) {
	creatorKey := genTestKey(t)
	uploader := &fakeUploader{failTimes: 2}
	retry := transport.DefaultRetryConfig()
	retry.BaseDelay = 0
	retry.MaxDelay = 0

	client, err := New(uploader, &fakeBlobStore{}, nil, WithRetryConfig(retry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	b := client.NewBuilder("party_A", creatorKey)
	if err := b.SetBody("retry me"); err != nil {
		t.Fatal(err)
	}
	result, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := client.Send(context.Background(), result); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if uploader.calls != 3 {
		t.Errorf("uploader.calls = %d, want 3 (1 initial + 2 retries)", uploader.calls)
	}
}

func TestClient_ClosedRejectsCalls(t *testing.T) {
	client, err := New(&fakeUploader{}, &fakeBlobStore{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	creatorKey := genTestKey(t)
	b := client.NewBuilder("party_A", creatorKey)
	if err := b.SetBody("x"); err != nil {
		t.Fatal(err)
	}
	result, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := client.Send(context.Background(), result); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Send() after Close error = %v, want ErrDisposed", err)
	}
}
