package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/cryptoutils"
	"github.com/plukevdh/go-keydir/interfaces"
)

// Session is one client's connection to the key directory. It starts
// anonymous, becomes authenticated through Login, and returns to
// anonymous through Logout. Anonymous sessions can still look up users
// and fetch keys; key mutation and signature posting require
// authentication and fail with a session error otherwise.
//
// The authenticated flag may be read concurrently, but Login and
// Logout themselves must not race each other.
type Session struct {
	transport api.Transport
	log       *slog.Logger

	authenticated atomic.Bool
	token         interfaces.SessionToken
	username      string
	user          *User
}

// NewSession creates an anonymous session speaking through the given
// transport. A nil logger disables session logging.
func NewSession(transport api.Transport, log *slog.Logger) *Session {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		transport: transport,
		log:       log,
	}
}

// Login authenticates the session as the given account.
//
// The passphrase never leaves the client: the flow fetches the
// account's salt and a fresh login nonce, hardens the passphrase
// locally, and sends only the derived authenticator. On success the
// session holds the issued token and the account's own directory
// record, which includes the private keyring half.
func (s *Session) Login(ctx context.Context, identifier, passphrase string) (*User, error) {
	if identifier == "" || passphrase == "" {
		return nil, fmt.Errorf("%w: identifier and passphrase are required", interfaces.ErrInput)
	}
	if s.authenticated.Load() {
		return nil, fmt.Errorf("%w: session is already authenticated", interfaces.ErrSession)
	}

	// Fetch the salt and the single-use login nonce for this account.
	salt, loginSession, err := s.transport.GetSaltAndLoginSession(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("could not begin login: %w", err)
	}

	// Harden the passphrase and bind it to the nonce, all client-side.
	authenticator, err := cryptoutils.DeriveAuthenticator(passphrase, salt, loginSession)
	if err != nil {
		return nil, fmt.Errorf("could not derive authenticator: %w", err)
	}

	token, rawUser, err := s.transport.Login(ctx, identifier, authenticator, loginSession)
	if err != nil {
		return nil, fmt.Errorf("could not log in: %w", err)
	}

	user, err := NormalizeUser(rawUser)
	if err != nil {
		return nil, fmt.Errorf("could not normalize login record: %w", err)
	}
	user.Authenticated = true

	s.token = token
	s.username = user.Basics.Username
	if s.username == "" {
		s.username = identifier
	}
	s.user = user
	s.authenticated.Store(true)

	s.log.Info("session authenticated", "username", s.username, "userID", string(user.ID))
	return user, nil
}

// Logout terminates every live directory session for the account and
// returns this session to the anonymous state. Logging out an
// anonymous session is a no-op.
//
// The local transition is unconditional: a transport failure during
// remote termination is logged and swallowed so logout never strands
// the caller in the authenticated state.
func (s *Session) Logout(ctx context.Context) error {
	if !s.authenticated.Swap(false) {
		return nil
	}

	token := s.token
	s.token = ""
	s.username = ""
	s.user = nil

	if err := s.transport.KillAllSessions(ctx, token); err != nil {
		s.log.Error("could not terminate directory sessions", "err", err)
	} else {
		s.log.Info("session terminated")
	}
	return nil
}

// Lookup fetches and normalizes the public directory record for a
// username. It needs no authentication and behaves the same in either
// session state; private keyring halves are never part of the result.
func (s *Session) Lookup(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", interfaces.ErrInput)
	}

	rawUser, err := s.transport.LookupUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("could not look up %q: %w", username, err)
	}

	user, err := NormalizeUser(rawUser)
	if err != nil {
		return nil, fmt.Errorf("could not normalize record for %q: %w", username, err)
	}
	return user, nil
}

// Authenticated reports whether the session currently holds a live
// login.
func (s *Session) Authenticated() bool {
	return s.authenticated.Load()
}

// Username returns the account name of the current login, or the empty
// string for an anonymous session.
func (s *Session) Username() string {
	if !s.authenticated.Load() {
		return ""
	}
	return s.username
}

// User returns the directory record captured at login. It is nil for
// anonymous sessions and for sessions resumed from a stored token,
// which carry no record until the next Lookup.
func (s *Session) User() *User {
	if !s.authenticated.Load() {
		return nil
	}
	return s.user
}

// requireAuthenticated returns the session token for a privileged
// call, or a session error when the session is anonymous.
func (s *Session) requireAuthenticated() (interfaces.SessionToken, error) {
	if !s.authenticated.Load() {
		return "", fmt.Errorf("%w: operation requires an authenticated session", interfaces.ErrSession)
	}
	return s.token, nil
}
