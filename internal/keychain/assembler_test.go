package keychain

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/capsara/client-go/internal/primitives"
)

func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return k
}

func findEntry(entries []Entry, partyID string) (Entry, bool) {
	for _, e := range entries {
		if e.PartyID == partyID {
			return e, true
		}
	}
	return Entry{}, false
}

// TestAssemble_S2 mirrors spec §8 scenario S2: creator party_A, recipients
// [party_B, party_C], delegate party_D acting for [party_B, party_X] where
// party_X is not a recipient of this capsa.
func TestAssemble_S2(t *testing.T) {
	keyA, keyB, keyC, keyD := genKey(t), genKey(t), genKey(t), genKey(t)
	masterKey, err := primitives.NewMasterKey()
	if err != nil {
		t.Fatal(err)
	}

	partyKeys := []PartyKey{
		{PartyID: "party_A", PublicKey: &keyA.PublicKey},
		{PartyID: "party_B", PublicKey: &keyB.PublicKey},
		{PartyID: "party_C", PublicKey: &keyC.PublicKey},
		{PartyID: "party_D", PublicKey: &keyD.PublicKey, ActingFor: []string{"party_B", "party_X"}},
	}
	recipients := []Recipient{
		{PartyID: "party_B"},
		{PartyID: "party_C"},
	}

	entries, err := Assemble(partyKeys, "party_A", recipients, masterKey)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}

	a, ok := findEntry(entries, "party_A")
	if !ok || !a.IsCreator || len(a.WrappedKey) == 0 {
		t.Errorf("party_A entry wrong: %+v (ok=%v)", a, ok)
	}

	b, ok := findEntry(entries, "party_B")
	if !ok || len(b.WrappedKey) == 0 {
		t.Errorf("party_B entry wrong: %+v (ok=%v)", b, ok)
	}

	c, ok := findEntry(entries, "party_C")
	if !ok || len(c.WrappedKey) == 0 {
		t.Errorf("party_C entry wrong: %+v (ok=%v)", c, ok)
	}

	d, ok := findEntry(entries, "party_D")
	if !ok {
		t.Fatal("expected party_D delegate entry")
	}
	if len(d.Permissions) != 1 || d.Permissions[0] != "delegate" {
		t.Errorf("party_D permissions = %v, want [delegate]", d.Permissions)
	}
	if len(d.ActingFor) != 1 || d.ActingFor[0] != "party_B" {
		t.Errorf("party_D.ActingFor = %v, want [party_B]", d.ActingFor)
	}

	if _, ok := findEntry(entries, "party_X"); ok {
		t.Error("party_X should not appear: not a recipient of this capsa")
	}
}

func TestAssemble_DelegateActingForNobody_Skipped(t *testing.T) {
	keyA, keyD := genKey(t), genKey(t)
	masterKey, _ := primitives.NewMasterKey()

	partyKeys := []PartyKey{
		{PartyID: "party_A", PublicKey: &keyA.PublicKey},
		{PartyID: "party_D", PublicKey: &keyD.PublicKey, ActingFor: []string{"party_Z"}},
	}

	entries, err := Assemble(partyKeys, "party_A", nil, masterKey)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findEntry(entries, "party_D"); ok {
		t.Error("delegate acting for nobody in this capsa should contribute no entry")
	}
}

func TestAssemble_TooManyActingFor(t *testing.T) {
	keyA, keyD := genKey(t), genKey(t)
	masterKey, _ := primitives.NewMasterKey()

	var recipients []Recipient
	var actingFor []string
	for i := 0; i < MaxActingForPerDelegate+1; i++ {
		id := string(rune('a' + i))
		recipients = append(recipients, Recipient{PartyID: id})
		actingFor = append(actingFor, id)
	}

	partyKeys := []PartyKey{
		{PartyID: "party_A", PublicKey: &keyA.PublicKey},
		{PartyID: "party_D", PublicKey: &keyD.PublicKey, ActingFor: actingFor},
	}

	if _, err := Assemble(partyKeys, "party_A", recipients, masterKey); err == nil {
		t.Fatal("expected error for delegate acting for too many recipients")
	}
}

func TestAssemble_DelegatedRecipient_NoDirectWrap(t *testing.T) {
	keyA, keyB := genKey(t), genKey(t)
	masterKey, _ := primitives.NewMasterKey()

	partyKeys := []PartyKey{
		{PartyID: "party_A", PublicKey: &keyA.PublicKey},
		{PartyID: "party_B", PublicKey: &keyB.PublicKey},
	}
	recipients := []Recipient{
		{PartyID: "party_B", Delegated: true},
	}

	entries, err := Assemble(partyKeys, "party_A", recipients, masterKey)
	if err != nil {
		t.Fatal(err)
	}

	b, ok := findEntry(entries, "party_B")
	if !ok {
		t.Fatal("expected party_B entry")
	}
	if b.WrappedKey != nil {
		t.Error("delegated recipient should have empty wrapped key")
	}
	if len(b.IV) == 0 {
		t.Error("delegated recipient should still have a uniqueness IV")
	}
}

func TestAssemble_DefaultPermissions(t *testing.T) {
	keyA, keyB := genKey(t), genKey(t)
	masterKey, _ := primitives.NewMasterKey()

	partyKeys := []PartyKey{
		{PartyID: "party_A", PublicKey: &keyA.PublicKey},
		{PartyID: "party_B", PublicKey: &keyB.PublicKey},
	}
	recipients := []Recipient{{PartyID: "party_B"}}

	entries, err := Assemble(partyKeys, "party_A", recipients, masterKey)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := findEntry(entries, "party_B")
	if len(b.Permissions) != 1 || b.Permissions[0] != "read" {
		t.Errorf("permissions = %v, want [read]", b.Permissions)
	}
}

func TestAssemble_NonRecipientNonCreator_Skipped(t *testing.T) {
	keyA, keyStranger := genKey(t), genKey(t)
	masterKey, _ := primitives.NewMasterKey()

	partyKeys := []PartyKey{
		{PartyID: "party_A", PublicKey: &keyA.PublicKey},
		{PartyID: "party_Stranger", PublicKey: &keyStranger.PublicKey},
	}

	entries, err := Assemble(partyKeys, "party_A", nil, masterKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 (creator only)", len(entries))
	}
}
