package directory

import (
	"time"

	"github.com/plukevdh/go-keydir/interfaces"
)

// Basics holds the account-level portion of a directory user record.
type Basics struct {
	Username  string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// Profile holds the free-form portion of a directory user record.
type Profile struct {
	Bio       string
	UpdatedAt *time.Time
}

// Email is a single address attached to a user record, keyed by address
// in User.Emails.
type Email struct {
	Address  string
	Verified bool
}

// KeyRecord is a single key as served by the directory, with the wire
// record's integer flags and epoch timestamps already converted. The
// Bundle field carries the armored or encrypted key material verbatim.
type KeyRecord struct {
	KeyID       interfaces.KeyID
	Fingerprint interfaces.Fingerprint
	Bundle      string

	CreatedAt *time.Time
	UpdatedAt *time.Time

	SelfSigned             bool
	Secret                 bool
	PrimaryBundleInKeyring bool
}

// KeyBundle groups the keys of one keyring half (public or private).
//
// Primary is the bundle's anchor key and is always present on a
// well-formed record. Subkeys collects the subordinate and sibling
// keys as one ordered sequence; the directory serves them as maps, and
// normalization orders each group by its discarded map key so the
// sequence is stable across fetches. Families preserves the service's
// named groupings with their original order.
type KeyBundle struct {
	Primary  KeyRecord
	Subkeys  []KeyRecord
	Families map[string][]KeyRecord
}

// User is the normalized form of a directory user record.
//
// PublicKeys and PrivateKeys are nil when the record carries no keyring
// half of that kind; PrivateKeys in particular is only served to the
// record's owner. Authenticated reports whether the record was produced
// by a login rather than an anonymous lookup.
type User struct {
	ID      interfaces.UserID
	Basics  Basics
	Profile Profile
	Emails  map[string]Email

	PublicKeys  *KeyBundle
	PrivateKeys *KeyBundle

	InvitationStats map[string]any

	Authenticated bool
}

// PrimaryFingerprint returns the fingerprint of the user's primary
// public key, or the empty fingerprint when the record carries no
// public keyring.
func (u *User) PrimaryFingerprint() interfaces.Fingerprint {
	if u == nil || u.PublicKeys == nil {
		return ""
	}
	return u.PublicKeys.Primary.Fingerprint
}
