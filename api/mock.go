package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/plukevdh/go-keydir/interfaces"
)

// MockTransport implements a mock Transport for testing. The behavior is
// determined by how the mock is configured in tests.
type MockTransport struct {
	mock.Mock
}

// GetSaltAndLoginSession implements the Transport interface for testing.
func (m *MockTransport) GetSaltAndLoginSession(ctx context.Context, identifier string) ([]byte, []byte, error) {
	args := m.Called(ctx, identifier)

	var salt, loginSession []byte
	if args.Get(0) != nil {
		salt = args.Get(0).([]byte)
	}
	if args.Get(1) != nil {
		loginSession = args.Get(1).([]byte)
	}
	return salt, loginSession, args.Error(2)
}

// Login implements the Transport interface for testing.
func (m *MockTransport) Login(ctx context.Context, identifier string, authenticator string, loginSession []byte) (interfaces.SessionToken, *RawUser, error) {
	args := m.Called(ctx, identifier, authenticator, loginSession)

	var user *RawUser
	if args.Get(1) != nil {
		user = args.Get(1).(*RawUser)
	}
	return args.Get(0).(interfaces.SessionToken), user, args.Error(2)
}

// KillAllSessions implements the Transport interface for testing.
func (m *MockTransport) KillAllSessions(ctx context.Context, session interfaces.SessionToken) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// LookupUser implements the Transport interface for testing.
func (m *MockTransport) LookupUser(ctx context.Context, username string) (*RawUser, error) {
	args := m.Called(ctx, username)

	var user *RawUser
	if args.Get(0) != nil {
		user = args.Get(0).(*RawUser)
	}
	return user, args.Error(1)
}

// FetchKeys implements the Transport interface for testing.
func (m *MockTransport) FetchKeys(ctx context.Context, kids string, ops interfaces.KeyOpMask) ([]RawKey, error) {
	args := m.Called(ctx, kids, ops)

	var keys []RawKey
	if args.Get(0) != nil {
		keys = args.Get(0).([]RawKey)
	}
	return keys, args.Error(1)
}

// AddKey implements the Transport interface for testing.
func (m *MockTransport) AddKey(ctx context.Context, session interfaces.SessionToken, req AddKeyRequest) (interfaces.KeyID, error) {
	args := m.Called(ctx, session, req)
	return args.Get(0).(interfaces.KeyID), args.Error(1)
}

// RevokeKey implements the Transport interface for testing.
func (m *MockTransport) RevokeKey(ctx context.Context, session interfaces.SessionToken, kid interfaces.KeyID) error {
	args := m.Called(ctx, session, kid)
	return args.Error(0)
}

// PostAuth implements the Transport interface for testing.
func (m *MockTransport) PostAuth(ctx context.Context, session interfaces.SessionToken, username string, signaturePayload []byte) (string, error) {
	args := m.Called(ctx, session, username, signaturePayload)
	return args.String(0), args.Error(1)
}
