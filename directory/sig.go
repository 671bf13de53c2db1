package directory

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/plukevdh/go-keydir/interfaces"
)

// AuthToken is the proof the directory returns for an accepted
// signature post: a keyed digest over the posted certificate's exact
// delimiter-bounded byte range, hex encoded.
type AuthToken string

// Validate checks that the token is a well-formed digest, which on
// this protocol means exactly 64 hex characters.
func (t AuthToken) Validate() error {
	if len(t) != 64 {
		return fmt.Errorf("%w: auth token must be 64 hex characters, got %d", interfaces.ErrInput, len(t))
	}
	if _, err := hex.DecodeString(string(t)); err != nil {
		return fmt.Errorf("%w: auth token is not hex: %v", interfaces.ErrInput, err)
	}
	return nil
}

// String returns the token's hex form.
func (t AuthToken) String() string {
	return string(t)
}

// PostAuth submits a signed authentication certificate for the current
// account and returns the auth token the directory issues for it.
//
// The payload is opaque here: its inner structure and signature are
// the directory's to verify, and a remote rejection surfaces as a
// verification error. An empty payload is rejected before the session
// state is even consulted, so it fails identically in both states.
func (s *Session) PostAuth(ctx context.Context, signaturePayload []byte) (AuthToken, error) {
	if len(signaturePayload) == 0 {
		return "", fmt.Errorf("%w: signature payload is required", interfaces.ErrInput)
	}

	token, err := s.requireAuthenticated()
	if err != nil {
		return "", err
	}

	issued, err := s.transport.PostAuth(ctx, token, s.username, signaturePayload)
	if err != nil {
		return "", fmt.Errorf("could not post signature: %w", err)
	}

	authToken := AuthToken(issued)
	if err := authToken.Validate(); err != nil {
		return "", fmt.Errorf("%w: directory issued a malformed auth token: %v", interfaces.ErrTransport, err)
	}

	s.log.Info("signature posted", "username", s.username)
	return authToken, nil
}
