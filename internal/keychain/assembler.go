package keychain

import (
	"errors"
	"fmt"

	"github.com/capsara/client-go/internal/primitives"
)

// ErrTooManyActingFor is returned when a delegate's ActingFor intersection
// exceeds MaxActingForPerDelegate.
var ErrTooManyActingFor = errors.New("delegate acts for too many recipients")

// ErrKeychainTooLarge is returned when assembly would exceed MaxKeychainSize
// entries.
var ErrKeychainTooLarge = errors.New("keychain exceeds maximum size")

// Assemble builds the keychain for a capsa (spec §4.3 step 5).
//
// partyKeys is the full candidate list of potential key holders, in the
// order they should be considered. creatorID identifies the creator among
// them. recipients lists every authorized direct recipient; a PartyKey not
// found among recipients, the creator, or with a non-nil ActingFor
// contributes no entry.
//
// For each candidate:
//   - A delegate (non-nil ActingFor) has its ActingFor intersected with the
//     current recipient set. An empty intersection means the delegate acts
//     for nobody in this capsa and is skipped entirely. More than
//     MaxActingForPerDelegate surviving members after intersection is a
//     fatal assembly error. Permissions become ["delegate"].
//   - The creator always receives an entry with an empty permissions list
//     and a direct wrapped key.
//   - A recipient receives an entry using their declared permissions
//     (["read"] if unset). A recipient marked Delegated still gets an
//     entry — to participate in global IV uniqueness — but with an empty
//     wrapped key.
func Assemble(partyKeys []PartyKey, creatorID string, recipients []Recipient, masterKey []byte) ([]Entry, error) {
	recipientByID := make(map[string]Recipient, len(recipients))
	for _, r := range recipients {
		recipientByID[r.PartyID] = r
	}

	var entries []Entry
	for _, pk := range partyKeys {
		switch {
		case pk.IsDelegate():
			entry, ok, err := assembleDelegate(pk, recipientByID, masterKey)
			if err != nil {
				return nil, err
			}
			if ok {
				entries = append(entries, entry)
			}

		case pk.PartyID == creatorID:
			entry, err := assembleCreator(pk, masterKey)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)

		default:
			if r, ok := recipientByID[pk.PartyID]; ok {
				entry, err := assembleRecipient(pk, r, masterKey)
				if err != nil {
					return nil, err
				}
				entries = append(entries, entry)
			}
			// Not a delegate, not the creator, not a recipient: skip.
		}

		if len(entries) > MaxKeychainSize {
			return nil, ErrKeychainTooLarge
		}
	}

	return entries, nil
}

func assembleDelegate(pk PartyKey, recipients map[string]Recipient, masterKey []byte) (Entry, bool, error) {
	var actingFor []string
	for _, partyID := range pk.ActingFor {
		if _, ok := recipients[partyID]; ok {
			actingFor = append(actingFor, partyID)
		}
	}
	if len(actingFor) == 0 {
		return Entry{}, false, nil
	}
	if len(actingFor) > MaxActingForPerDelegate {
		return Entry{}, false, fmt.Errorf("%w: %s acts for %d parties (max %d)",
			ErrTooManyActingFor, pk.PartyID, len(actingFor), MaxActingForPerDelegate)
	}

	wrapped, iv, err := wrapForParty(pk, masterKey)
	if err != nil {
		return Entry{}, false, err
	}

	return Entry{
		PartyID:     pk.PartyID,
		WrappedKey:  wrapped,
		IV:          iv,
		Permissions: []string{"delegate"},
		ActingFor:   actingFor,
	}, true, nil
}

func assembleCreator(pk PartyKey, masterKey []byte) (Entry, error) {
	wrapped, iv, err := wrapForParty(pk, masterKey)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		PartyID:     pk.PartyID,
		WrappedKey:  wrapped,
		IV:          iv,
		Permissions: []string{},
		IsCreator:   true,
	}, nil
}

func assembleRecipient(pk PartyKey, r Recipient, masterKey []byte) (Entry, error) {
	permissions := r.Permissions
	if len(permissions) == 0 {
		permissions = []string{"read"}
	}

	// A delegated recipient still needs a uniqueness IV but must not
	// receive a direct wrapped key (spec §3, §9 Open Questions).
	if r.Delegated {
		iv, err := primitives.NewIV()
		if err != nil {
			return Entry{}, fmt.Errorf("generate keychain iv: %w", err)
		}
		return Entry{
			PartyID:     pk.PartyID,
			WrappedKey:  nil,
			IV:          iv,
			Permissions: permissions,
		}, nil
	}

	wrapped, iv, err := wrapForParty(pk, masterKey)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		PartyID:     pk.PartyID,
		WrappedKey:  wrapped,
		IV:          iv,
		Permissions: permissions,
	}, nil
}

func wrapForParty(pk PartyKey, masterKey []byte) (wrapped, iv []byte, err error) {
	iv, err = primitives.NewIV()
	if err != nil {
		return nil, nil, fmt.Errorf("generate keychain iv: %w", err)
	}
	wrapped, err = primitives.WrapMasterKey(pk.PublicKey, masterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("wrap master key for %s: %w", pk.PartyID, err)
	}
	return wrapped, iv, nil
}
