package primitives

import (
	"bytes"
	"testing"
)

func TestMaybeCompress_BelowBreakEven(t *testing.T) {
	data := bytes.Repeat([]byte("a"), CompressionBreakEven-1)
	out, compressed, err := MaybeCompress(data)
	if err != nil {
		t.Fatal(err)
	}
	if compressed {
		t.Error("expected no compression below break-even threshold")
	}
	if !bytes.Equal(out, data) {
		t.Error("expected unchanged data")
	}
}

func TestMaybeCompress_IncompressibleSmallInput(t *testing.T) {
	// Random-looking small input above the break-even threshold but which
	// gzip cannot shrink (container overhead dominates).
	data, err := RandomBytes(CompressionBreakEven + 50)
	if err != nil {
		t.Fatal(err)
	}

	out, compressed, err := MaybeCompress(data)
	if err != nil {
		t.Fatal(err)
	}
	if compressed {
		t.Error("expected random input to remain uncompressed")
	}
	if !bytes.Equal(out, data) {
		t.Error("expected unchanged data")
	}
}

func TestMaybeCompress_CompressibleInput(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 10240)
	out, compressed, err := MaybeCompress(data)
	if err != nil {
		t.Fatal(err)
	}
	if !compressed {
		t.Fatal("expected compression for highly compressible input")
	}
	if len(out) >= len(data) {
		t.Errorf("compressed length %d not smaller than original %d", len(out), len(data))
	}

	decompressed, err := Decompress(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("round trip mismatch")
	}
}

func TestMaybeCompress_ExactlyBreakEven(t *testing.T) {
	// Random noise of exactly the break-even size: gzip overhead means the
	// output must not be smaller, so it should remain uncompressed.
	data := make([]byte, CompressionBreakEven)
	for i := range data {
		data[i] = byte(i*167 + 13)
	}
	out, compressed, err := MaybeCompress(data)
	if err != nil {
		t.Fatal(err)
	}
	if compressed {
		t.Errorf("expected break-even noise to remain uncompressed, got %d bytes from %d", len(out), len(data))
	}
}
