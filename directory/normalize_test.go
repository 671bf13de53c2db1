package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/interfaces"
)

func epochPtr(v int64) *int64 {
	return &v
}

func TestNormalizeUserTimestamps(t *testing.T) {
	user, err := NormalizeUser(&api.RawUser{
		ID: "u1",
		Basics: &api.RawBasics{
			Username: "ada",
			Ctime:    epochPtr(1414145440),
		},
	})
	require.NoError(t, err)

	require.NotNil(t, user.Basics.CreatedAt)
	assert.Equal(t, time.Unix(1414145440, 0).UTC(), *user.Basics.CreatedAt)
	assert.Nil(t, user.Basics.UpdatedAt, "an absent mtime stays absent, never the zero time")
}

func TestNormalizeUserEmailVerification(t *testing.T) {
	testCases := []struct {
		name       string
		isVerified int
		want       bool
	}{
		{"one means verified", 1, true},
		{"zero means unverified", 0, false},
		{"other values mean unverified", 2, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := NormalizeUser(&api.RawUser{
				ID: "u1",
				Emails: map[string]api.RawEmail{
					"ada@example.com": {Email: "ada@example.com", IsVerified: tc.isVerified},
				},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, user.Emails["ada@example.com"].Verified)
		})
	}
}

func TestNormalizeKeyRecordFlags(t *testing.T) {
	record := NormalizeKeyRecord(api.RawKey{
		Kid:                    "aabb",
		SelfSigned:             1,
		Secret:                 0,
		PrimaryBundleInKeyring: 2,
	})

	assert.Equal(t, interfaces.KeyID("aabb"), record.KeyID)
	assert.True(t, record.SelfSigned)
	assert.False(t, record.Secret)
	assert.False(t, record.PrimaryBundleInKeyring, "only the exact value 1 sets a flag")
}

func TestNormalizeKeyRecordTimestamps(t *testing.T) {
	record := NormalizeKeyRecord(api.RawKey{
		Kid:   "aabb",
		Mtime: epochPtr(1500000000),
	})

	assert.Nil(t, record.CreatedAt)
	require.NotNil(t, record.UpdatedAt)
	assert.Equal(t, time.Unix(1500000000, 0).UTC(), *record.UpdatedAt)
}

func TestNormalizeKeyBundleNil(t *testing.T) {
	bundle, err := NormalizeKeyBundle(nil)
	require.NoError(t, err)
	assert.Nil(t, bundle, "an absent keyring half normalizes to nil, not an error")
}

func TestNormalizeKeyBundleMissingPrimary(t *testing.T) {
	_, err := NormalizeKeyBundle(&api.RawKeyBundle{
		Subkeys: map[string]api.RawKey{
			"sub": {Kid: "ccdd"},
		},
	})
	require.ErrorIs(t, err, interfaces.ErrTransport, "a present bundle without a primary key is malformed")
}

func TestNormalizeKeyBundleOrdering(t *testing.T) {
	bundle, err := NormalizeKeyBundle(&api.RawKeyBundle{
		Primary: &api.RawKey{Kid: "primary"},
		Subkeys: map[string]api.RawKey{
			"b": {Kid: "sub-b"},
			"a": {Kid: "sub-a"},
		},
		Sibkeys: map[string]api.RawKey{
			"z": {Kid: "sib-z"},
			"c": {Kid: "sib-c"},
		},
	})
	require.NoError(t, err)

	// Map keys are discarded, but each group is ordered by them so the
	// flattened sequence is stable across fetches.
	kids := make([]interfaces.KeyID, 0, len(bundle.Subkeys))
	for _, record := range bundle.Subkeys {
		kids = append(kids, record.KeyID)
	}
	assert.Equal(t, []interfaces.KeyID{"sub-a", "sub-b", "sib-c", "sib-z"}, kids)
}

func TestNormalizeKeyBundleFamiliesAbsent(t *testing.T) {
	bundle, err := NormalizeKeyBundle(&api.RawKeyBundle{
		Primary: &api.RawKey{Kid: "primary"},
	})
	require.NoError(t, err, "absent sub-collections must not fail normalization")

	assert.Empty(t, bundle.Subkeys)
	assert.Empty(t, bundle.Families)
}

func TestNormalizeKeyBundleFamilies(t *testing.T) {
	bundle, err := NormalizeKeyBundle(&api.RawKeyBundle{
		Primary: &api.RawKey{Kid: "primary"},
		Families: map[string][]api.RawKey{
			"web": {
				{Kid: "web-1"},
				{Kid: "web-2"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, bundle.Families["web"], 2)
	assert.Equal(t, interfaces.KeyID("web-1"), bundle.Families["web"][0].KeyID)
	assert.Equal(t, interfaces.KeyID("web-2"), bundle.Families["web"][1].KeyID, "family order is the service's order")
}

func TestNormalizeUserKeyringHalves(t *testing.T) {
	user, err := NormalizeUser(&api.RawUser{
		ID: "u1",
		PublicKeys: &api.RawKeyBundle{
			Primary: &api.RawKey{Kid: "aabb", KeyFingerprint: "00aa"},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, user.PublicKeys)
	assert.Equal(t, interfaces.KeyID("aabb"), user.PublicKeys.Primary.KeyID)
	assert.Nil(t, user.PrivateKeys, "a record without private keys keeps that half nil")
}

func TestNormalizeUserMalformedBundle(t *testing.T) {
	_, err := NormalizeUser(&api.RawUser{
		ID: "u1",
		PublicKeys: &api.RawKeyBundle{
			Subkeys: map[string]api.RawKey{"sub": {Kid: "ccdd"}},
		},
	})
	require.ErrorIs(t, err, interfaces.ErrTransport)
}

func TestNormalizeUserNil(t *testing.T) {
	_, err := NormalizeUser(nil)
	require.ErrorIs(t, err, interfaces.ErrTransport)
}

func TestPrimaryFingerprint(t *testing.T) {
	user := &User{
		PublicKeys: &KeyBundle{
			Primary: KeyRecord{Fingerprint: "00aa"},
		},
	}
	assert.Equal(t, interfaces.Fingerprint("00aa"), user.PrimaryFingerprint())

	assert.Empty(t, (&User{}).PrimaryFingerprint())

	var missing *User
	assert.Empty(t, missing.PrimaryFingerprint())
}

func TestNormalizeUserInvitationStats(t *testing.T) {
	user, err := NormalizeUser(&api.RawUser{
		ID: "u1",
		InvitationStats: map[string]any{
			"available": float64(3),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), user.InvitationStats["available"])
}
