// Package keychain assembles the per-party wrapped-key entries for a capsa
// from a master key and the builder's view of recipients, delegates, and the
// creator (spec §4.3 step 5).
package keychain

import "crypto/rsa"

// PartyKey is one candidate key holder considered during assembly: the
// creator, a recipient, or a delegate. Exactly one of the three roles below
// applies to each entry; which one is determined by cross-referencing
// PartyID against the Recipients/creator the caller passes to Assemble.
type PartyKey struct {
	// PartyID identifies the key holder.
	PartyID string
	// PublicKey wraps the master key for this party when an entry is
	// emitted for them.
	PublicKey *rsa.PublicKey
	// ActingFor is non-nil when this entry is a delegate. An empty,
	// non-nil slice corresponds to the wire's bare `"isDelegate":true`
	// (delegate of unspecified parties, intersected down to nothing
	// useful unless the caller also lists concrete parties here).
	ActingFor []string
}

// IsDelegate reports whether p represents a delegate entry (as opposed to a
// direct recipient or the creator).
func (p PartyKey) IsDelegate() bool {
	return p.ActingFor != nil
}

// Recipient describes one authorized direct recipient of a capsa.
type Recipient struct {
	PartyID string
	// Permissions defaults to ["read"] when empty.
	Permissions []string
	// Delegated marks a recipient who holds a public key (so a PartyKey
	// entry exists for them) but is represented only through a delegate
	// and must not receive a direct wrapped key. Per spec §3/§9, their
	// keychain entry still carries a uniqueness IV with an empty wrapped
	// key, so the IV uniqueness check can still see it.
	Delegated bool
}

// Entry is one assembled keychain entry, independent of the wire JSON shape
// (the caller maps this to the public KeychainEntry type).
type Entry struct {
	PartyID     string
	WrappedKey  []byte // nil for a delegated recipient
	IV          []byte
	Permissions []string
	ActingFor   []string // nil unless this is a delegate entry
	IsCreator   bool
}

// MaxActingForPerDelegate is the hard cap on ActingFor entries per delegate
// (spec §3, §4.3).
const MaxActingForPerDelegate = 10

// MaxKeychainSize is the hard cap on keychain slots, creator included
// (spec §3).
const MaxKeychainSize = 100
