package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeKeyOps pins the wire bit assignment: encrypt=1, decrypt=2,
// verify=4, sign=8, combined by OR.
func TestEncodeKeyOps(t *testing.T) {
	testCases := []struct {
		name string
		ops  []KeyOp
		want KeyOpMask
	}{
		{"encrypt", []KeyOp{OpEncrypt}, 1},
		{"decrypt", []KeyOp{OpDecrypt}, 2},
		{"verify", []KeyOp{OpVerify}, 4},
		{"sign", []KeyOp{OpSign}, 8},
		{"all four", []KeyOp{OpEncrypt, OpDecrypt, OpVerify, OpSign}, 15},
		{"duplicates collapse", []KeyOp{OpSign, OpSign}, 8},
		{"order irrelevant", []KeyOp{OpSign, OpEncrypt}, 9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mask, err := EncodeKeyOps(tc.ops)
			require.NoError(t, err)
			assert.Equal(t, tc.want, mask)
		})
	}
}

func TestEncodeKeyOpsRejectsBadSets(t *testing.T) {
	_, err := EncodeKeyOps(nil)
	assert.ErrorIs(t, err, ErrInput, "there is no valid all-zero mask")

	_, err = EncodeKeyOps([]KeyOp{OpSign, KeyOp(32)})
	assert.ErrorIs(t, err, ErrInput)
}

func TestKeyOpMaskRoundTrip(t *testing.T) {
	mask, err := EncodeKeyOps([]KeyOp{OpSign, OpEncrypt, OpVerify})
	require.NoError(t, err)

	// Decoding is canonical order, not encode order.
	assert.Equal(t, []KeyOp{OpEncrypt, OpVerify, OpSign}, mask.Ops())
	assert.Equal(t, "encrypt,verify,sign", mask.String())
	assert.True(t, mask.Has(OpSign))
	assert.False(t, mask.Has(OpDecrypt))
}

func TestParseKeyOp(t *testing.T) {
	op, err := ParseKeyOp(" Sign ")
	require.NoError(t, err)
	assert.Equal(t, OpSign, op)

	_, err = ParseKeyOp("transmogrify")
	assert.ErrorIs(t, err, ErrInput)
}

func TestNewKeyIDFromHex(t *testing.T) {
	kid, err := NewKeyIDFromHex("0x0101f56ecf27564e2fea412936dfc1bb")
	require.NoError(t, err)
	assert.Equal(t, KeyID("0101f56ecf27564e2fea412936dfc1bb"), kid)

	_, err = NewKeyIDFromHex("")
	assert.Error(t, err)
	_, err = NewKeyIDFromHex("abc")
	assert.Error(t, err, "odd-length hex")
	_, err = NewKeyIDFromHex("zz")
	assert.Error(t, err)
}

func TestNewFingerprint(t *testing.T) {
	fpr, err := NewFingerprint("94AA3A341D6430B4C352D4B81FF2B2B1DEBCBBF7")
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("94aa3a341d6430b4c352d4b81ff2b2b1debcbbf7"), fpr)
	assert.NoError(t, fpr.Validate())

	_, err = NewFingerprint("94aa3a34")
	assert.Error(t, err, "fingerprints are exactly 40 hex characters")
}
