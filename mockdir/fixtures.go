package mockdir

import (
	"encoding/json"
	"fmt"

	"github.com/plukevdh/go-keydir/api"
)

// Fixture passphrases for the seeded accounts, exported so development
// clients can log in against a seeded directory.
const (
	FixtureChrisPassphrase = "tacovilla"
	FixtureMaxPassphrase   = "sessionless"
)

// chrisRecord is the richest fixture: both keyring halves, a subkeys
// map, a sibkeys map, a key family, flag variety, and an absent mtime
// on the sibling key. Kept as wire JSON so the fixture exercises the
// exact shapes the real service emits.
const chrisRecord = `{
  "id": "23f5f4cb48dbfb227a9c9cd98abb57d5",
  "basics": {"username": "chris", "ctime": 1386537779, "mtime": 1386537779},
  "profile": {"bio": "directory tester", "mtime": 1386537779},
  "emails": {
    "primary": {"email": "chris@keydir.dev", "is_verified": 1},
    "backup": {"email": "chris@example.com", "is_verified": 0}
  },
  "public_keys": {
    "primary": {
      "kid": "0101f56ecf27564e2fea412936dfc1bb",
      "key_fingerprint": "94aa3a341d6430b4c352d4b81ff2b2b1debcbbf7",
      "bundle": "-----BEGIN PGP PUBLIC KEY BLOCK-----\nchris-primary\n-----END PGP PUBLIC KEY BLOCK-----",
      "ctime": 1386537779, "mtime": 1386537779,
      "self_signed": 1, "primary_bundle_in_keyring": 1
    },
    "subkeys": {
      "sub-0": {"kid": "0202a0193846df99a8761c86e1d0d4a1", "bundle": "-----BEGIN PGP PUBLIC KEY BLOCK-----\nchris-sub\n-----END PGP PUBLIC KEY BLOCK-----", "ctime": 1386537800}
    },
    "sibkeys": {
      "sib-0": {"kid": "0303be10ce0c21997fc4c86d46ad4b0c", "bundle": "-----BEGIN PGP PUBLIC KEY BLOCK-----\nchris-sib\n-----END PGP PUBLIC KEY BLOCK-----"}
    },
    "families": {
      "desktop": [
        {"kid": "0404c1f29d8255b0ad4ce363de2b4f50", "ctime": 1386537900},
        {"kid": "0505d3a67b1c49a09a73c1e51f0e8d11", "ctime": 1386537901}
      ]
    }
  },
  "private_keys": {
    "primary": {
      "kid": "0101f56ecf27564e2fea412936dfc1bb",
      "bundle": "sealed-private-bundle",
      "ctime": 1386537779, "secret": 1
    }
  },
  "invitation_stats": {"available": 4, "used": 1}
}`

// maxRecord is the minimal fixture: a bare public primary, no
// families, no subkeys, no ctime on the key. Exercises the
// absent-stays-absent normalization paths.
const maxRecord = `{
  "id": "8df34bcb48dbfb227a9c9cd98abb57d5",
  "basics": {"username": "max", "ctime": 1395660000},
  "public_keys": {
    "primary": {
      "kid": "0606e87bd42c58c1fca78a9f1d0b33d2",
      "bundle": "-----BEGIN PGP PUBLIC KEY BLOCK-----\nmax-primary\n-----END PGP PUBLIC KEY BLOCK-----"
    }
  }
}`

// SeedFixtures loads the standard development accounts into a
// directory. The records cover every record shape the normalizer
// handles.
func SeedFixtures(h *Handler) error {
	fixtures := []struct {
		username   string
		email      string
		passphrase string
		record     string
	}{
		{"chris", "chris@keydir.dev", FixtureChrisPassphrase, chrisRecord},
		{"max", "", FixtureMaxPassphrase, maxRecord},
	}

	for _, fixture := range fixtures {
		var record api.RawUser
		if err := json.Unmarshal([]byte(fixture.record), &record); err != nil {
			return fmt.Errorf("could not parse fixture record for %q: %w", fixture.username, err)
		}
		if err := h.AddAccount(fixture.username, fixture.email, fixture.passphrase, record); err != nil {
			return fmt.Errorf("could not seed account %q: %w", fixture.username, err)
		}
	}
	return nil
}
