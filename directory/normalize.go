package directory

import (
	"fmt"
	"sort"
	"time"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/interfaces"
)

// epochTime converts an optional epoch-seconds field to UTC time. An
// absent field stays absent rather than becoming the zero time.
func epochTime(epoch *int64) *time.Time {
	if epoch == nil {
		return nil
	}
	t := time.Unix(*epoch, 0).UTC()
	return &t
}

// flagSet converts the directory's integer booleans, where exactly 1
// means set.
func flagSet(v int) bool {
	return v == 1
}

// NormalizeKeyRecord converts one wire key record. Identifier fields
// pass through verbatim: the service issued them, so they are not
// re-validated here.
func NormalizeKeyRecord(raw api.RawKey) KeyRecord {
	return KeyRecord{
		KeyID:       interfaces.KeyID(raw.Kid),
		Fingerprint: interfaces.Fingerprint(raw.KeyFingerprint),
		Bundle:      raw.Bundle,

		CreatedAt: epochTime(raw.Ctime),
		UpdatedAt: epochTime(raw.Mtime),

		SelfSigned:             flagSet(raw.SelfSigned),
		Secret:                 flagSet(raw.Secret),
		PrimaryBundleInKeyring: flagSet(raw.PrimaryBundleInKeyring),
	}
}

// NormalizeKeyBundle converts one wire keyring half. A nil input means
// the record carries no keyring of that kind and normalizes to nil; a
// present bundle without a primary key is malformed and fails with a
// transport error.
//
// The wire format keys subordinate and sibling keys by kid in
// unordered maps. Normalization discards those keys and emits one
// sequence, subordinate keys first, each group ordered by its
// discarded kid so the result is stable across fetches.
func NormalizeKeyBundle(raw *api.RawKeyBundle) (*KeyBundle, error) {
	if raw == nil {
		return nil, nil
	}
	if raw.Primary == nil {
		return nil, fmt.Errorf("%w: key bundle has no primary key", interfaces.ErrTransport)
	}

	bundle := &KeyBundle{
		Primary: NormalizeKeyRecord(*raw.Primary),
	}

	for _, group := range []map[string]api.RawKey{raw.Subkeys, raw.Sibkeys} {
		kids := make([]string, 0, len(group))
		for kid := range group {
			kids = append(kids, kid)
		}
		sort.Strings(kids)
		for _, kid := range kids {
			bundle.Subkeys = append(bundle.Subkeys, NormalizeKeyRecord(group[kid]))
		}
	}

	if len(raw.Families) > 0 {
		bundle.Families = make(map[string][]KeyRecord, len(raw.Families))
		for name, members := range raw.Families {
			records := make([]KeyRecord, 0, len(members))
			for _, member := range members {
				records = append(records, NormalizeKeyRecord(member))
			}
			bundle.Families[name] = records
		}
	}

	return bundle, nil
}

// NormalizeUser converts a full wire user record into the flat model
// the rest of the client works with.
func NormalizeUser(raw *api.RawUser) (*User, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: directory served no user record", interfaces.ErrTransport)
	}

	user := &User{
		ID: interfaces.UserID(raw.ID),
	}

	if raw.Basics != nil {
		user.Basics = Basics{
			Username:  raw.Basics.Username,
			CreatedAt: epochTime(raw.Basics.Ctime),
			UpdatedAt: epochTime(raw.Basics.Mtime),
		}
	}

	if raw.Profile != nil {
		user.Profile = Profile{
			Bio:       raw.Profile.Bio,
			UpdatedAt: epochTime(raw.Profile.Mtime),
		}
	}

	if len(raw.Emails) > 0 {
		user.Emails = make(map[string]Email, len(raw.Emails))
		for address, rawEmail := range raw.Emails {
			user.Emails[address] = Email{
				Address:  rawEmail.Email,
				Verified: flagSet(rawEmail.IsVerified),
			}
		}
	}

	publicKeys, err := NormalizeKeyBundle(raw.PublicKeys)
	if err != nil {
		return nil, fmt.Errorf("could not normalize public keys for %q: %w", raw.ID, err)
	}
	user.PublicKeys = publicKeys

	privateKeys, err := NormalizeKeyBundle(raw.PrivateKeys)
	if err != nil {
		return nil, fmt.Errorf("could not normalize private keys for %q: %w", raw.ID, err)
	}
	user.PrivateKeys = privateKeys

	if len(raw.InvitationStats) > 0 {
		user.InvitationStats = raw.InvitationStats
	}

	return user, nil
}
