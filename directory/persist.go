package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/interfaces"
)

// SessionState is the serialized form of an authenticated session. It
// carries only what resumption needs; the user record is re-fetched on
// demand rather than persisted.
type SessionState struct {
	Token    interfaces.SessionToken `json:"token"`
	Username string                  `json:"username"`
	UserID   interfaces.UserID       `json:"user_id,omitempty"`
}

// SaveSession writes the authenticated session's state to a keyring
// store and returns the artifact ID it was stored under. Anonymous
// sessions cannot be saved.
func (s *Session) SaveSession(ctx context.Context, store interfaces.ArtifactStore) (interfaces.ArtifactID, error) {
	token, err := s.requireAuthenticated()
	if err != nil {
		return interfaces.ArtifactID{}, err
	}

	state := SessionState{
		Token:    token,
		Username: s.username,
	}
	if s.user != nil {
		state.UserID = s.user.ID
	}

	data, err := json.Marshal(state)
	if err != nil {
		return interfaces.ArtifactID{}, fmt.Errorf("could not encode session state: %w", err)
	}

	id, err := store.Store(ctx, data, interfaces.SessionArtifact)
	if err != nil {
		return interfaces.ArtifactID{}, fmt.Errorf("could not store session state: %w", err)
	}

	s.log.Info("session saved", "store", store.Name(), "artifact", id.String())
	return id, nil
}

// ResumeSession rebuilds an authenticated session from state
// previously written by SaveSession.
//
// The stored token is trusted as-is: no round trip verifies it here,
// so a token the directory has since invalidated surfaces as a session
// error on the first privileged call. A resumed session carries no
// user record until the next Lookup.
func ResumeSession(ctx context.Context, transport api.Transport, log *slog.Logger, store interfaces.ArtifactStore, id interfaces.ArtifactID) (*Session, error) {
	data, err := store.Fetch(ctx, id, interfaces.SessionArtifact)
	if err != nil {
		return nil, fmt.Errorf("could not fetch session state: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: stored session state is corrupt: %v", interfaces.ErrSession, err)
	}
	if state.Token == "" || state.Username == "" {
		return nil, fmt.Errorf("%w: stored session state is incomplete", interfaces.ErrSession)
	}

	s := NewSession(transport, log)
	s.token = state.Token
	s.username = state.Username
	s.authenticated.Store(true)

	s.log.Info("session resumed", "username", s.username)
	return s, nil
}
