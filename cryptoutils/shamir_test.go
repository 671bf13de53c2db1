package cryptoutils

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/interfaces"
)

func TestSplitCombineRoundTrip(t *testing.T) {
	bundle := make([]byte, 64)
	_, err := rand.Read(bundle)
	require.NoError(t, err, "Failed to generate test bundle")

	shares, err := SplitKeyShares(bundle, 5, 3)
	require.NoError(t, err, "SplitKeyShares should succeed with valid parameters")
	require.Equal(t, 5, len(shares), "Should generate 5 shares")

	// Any threshold-sized subset reconstructs the bundle
	combined, err := CombineKeyShares([][]byte{shares[0], shares[2], shares[4]})
	require.NoError(t, err, "CombineKeyShares should succeed with threshold shares")
	assert.Equal(t, bundle, combined, "Reconstructed bundle should match the original")

	combined, err = CombineKeyShares(shares)
	require.NoError(t, err, "CombineKeyShares should succeed with all shares")
	assert.Equal(t, bundle, combined, "Reconstructed bundle should match the original")
}

func TestSplitValidation(t *testing.T) {
	bundle := []byte("opaque private bundle")

	_, err := SplitKeyShares(nil, 5, 3)
	assert.Error(t, err, "Should fail with empty bundle")
	assert.True(t, errors.Is(err, interfaces.ErrInput))

	_, err = SplitKeyShares(bundle, 5, 1)
	assert.Error(t, err, "Should fail when threshold < 2")
	assert.True(t, errors.Is(err, interfaces.ErrInput))

	_, err = SplitKeyShares(bundle, 2, 3)
	assert.Error(t, err, "Should fail when threshold > total shares")
	assert.True(t, errors.Is(err, interfaces.ErrInput))
}

func TestCombineBelowThreshold(t *testing.T) {
	bundle := []byte("opaque private bundle for backup")

	shares, err := SplitKeyShares(bundle, 5, 3)
	require.NoError(t, err, "Failed to split bundle")

	// Below-threshold reconstruction must never silently yield the secret
	combined, err := CombineKeyShares([][]byte{shares[0], shares[1]})
	if err == nil {
		assert.NotEqual(t, bundle, combined, "Below-threshold combine must not reconstruct the bundle")
	}

	_, err = CombineKeyShares([][]byte{shares[0]})
	assert.Error(t, err, "Should fail with a single share")
	assert.True(t, errors.Is(err, interfaces.ErrInput))
}
