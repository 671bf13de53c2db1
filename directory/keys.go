package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/interfaces"
)

// FetchKeys retrieves key records by kid, restricted to keys the
// directory considers usable for every requested operation. It needs
// no authentication.
//
// The kid sequence and the operation set must both be non-empty, and
// every operation must come from the fixed vocabulary; violations fail
// with an input error before any request is sent. Records come back in
// the order the directory serves them, which is not guaranteed to
// match the request order.
func (s *Session) FetchKeys(ctx context.Context, kids []interfaces.KeyID, ops []interfaces.KeyOp) ([]KeyRecord, error) {
	if len(kids) == 0 {
		return nil, fmt.Errorf("%w: at least one kid is required", interfaces.ErrInput)
	}

	mask, err := interfaces.EncodeKeyOps(ops)
	if err != nil {
		return nil, err
	}

	joined := make([]string, 0, len(kids))
	for _, kid := range kids {
		if kid == "" {
			return nil, fmt.Errorf("%w: empty kid in fetch request", interfaces.ErrInput)
		}
		joined = append(joined, kid.String())
	}

	rawKeys, err := s.transport.FetchKeys(ctx, strings.Join(joined, ","), mask)
	if err != nil {
		return nil, fmt.Errorf("could not fetch keys: %w", err)
	}

	records := make([]KeyRecord, 0, len(rawKeys))
	for _, rawKey := range rawKeys {
		records = append(records, NormalizeKeyRecord(rawKey))
	}
	return records, nil
}

// AddPublicKey publishes an armored public key to the authenticated
// account's keyring and returns the kid the directory assigned to it.
func (s *Session) AddPublicKey(ctx context.Context, armoredKey string) (interfaces.KeyID, error) {
	token, err := s.requireAuthenticated()
	if err != nil {
		return "", err
	}
	if armoredKey == "" {
		return "", fmt.Errorf("%w: armored key is required", interfaces.ErrInput)
	}

	kid, err := s.transport.AddKey(ctx, token, api.AddKeyRequest{PublicKey: armoredKey})
	if err != nil {
		return "", fmt.Errorf("could not add public key: %w", err)
	}

	s.log.Info("public key added", "kid", kid.String())
	return kid, nil
}

// AddPrivateKey stores an encrypted private key half on the
// authenticated account's keyring and returns its kid.
//
// Upload the corresponding public key first: the directory keeps no
// cross-session upload history and cannot enforce the ordering, so a
// private half without its public half is rejected service-side rather
// than locally.
func (s *Session) AddPrivateKey(ctx context.Context, encodedKey []byte) (interfaces.KeyID, error) {
	token, err := s.requireAuthenticated()
	if err != nil {
		return "", err
	}
	if len(encodedKey) == 0 {
		return "", fmt.Errorf("%w: encoded key is required", interfaces.ErrInput)
	}

	kid, err := s.transport.AddKey(ctx, token, api.AddKeyRequest{PrivateKey: encodedKey})
	if err != nil {
		return "", fmt.Errorf("could not add private key: %w", err)
	}

	s.log.Info("private key added", "kid", kid.String())
	return kid, nil
}

// RevokeKey removes a key from the authenticated account's keyring.
// The protocol has no cryptographic revocation certificates yet, so
// revocation is a destructive delete on the directory side. Revoking a
// kid the account does not hold fails with a not-found error.
func (s *Session) RevokeKey(ctx context.Context, kid interfaces.KeyID) error {
	token, err := s.requireAuthenticated()
	if err != nil {
		return err
	}
	if kid == "" {
		return fmt.Errorf("%w: kid is required", interfaces.ErrInput)
	}

	if err := s.transport.RevokeKey(ctx, token, kid); err != nil {
		return fmt.Errorf("could not revoke key %s: %w", kid.String(), err)
	}

	s.log.Info("key revoked", "kid", kid.String())
	return nil
}
