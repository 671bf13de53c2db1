package cryptoutils

import (
	"fmt"

	"github.com/hashicorp/vault/shamir"

	"github.com/plukevdh/go-keydir/interfaces"
)

// SplitKeyShares splits an encoded private-key bundle into Shamir secret
// shares for offline backup. Any threshold-sized subset of the shares
// reconstructs the bundle; fewer reveal nothing about it. The bundle itself
// stays opaque.
func SplitKeyShares(bundle []byte, shares, threshold int) ([][]byte, error) {
	if len(bundle) == 0 {
		return nil, fmt.Errorf("%w: empty bundle", interfaces.ErrInput)
	}
	if threshold < 2 {
		return nil, fmt.Errorf("%w: threshold must be at least 2", interfaces.ErrInput)
	}
	if shares < threshold {
		return nil, fmt.Errorf("%w: total shares must be at least equal to threshold", interfaces.ErrInput)
	}

	parts, err := shamir.Split(bundle, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: could not split bundle: %v", interfaces.ErrPrimitive, err)
	}
	return parts, nil
}

// CombineKeyShares reconstructs a private-key bundle from Shamir shares.
// Combining fewer shares than the split threshold does not fail, it yields
// garbage. Callers verify the result against a known artifact ID when one is
// available.
func CombineKeyShares(parts [][]byte) ([]byte, error) {
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: at least 2 shares required", interfaces.ErrInput)
	}

	bundle, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("%w: could not combine shares: %v", interfaces.ErrPrimitive, err)
	}
	return bundle, nil
}
