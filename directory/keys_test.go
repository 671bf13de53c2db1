package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/interfaces"
)

func TestFetchKeysEncodesRequest(t *testing.T) {
	s, transport := newTestSession()

	wantMask := interfaces.KeyOpMask(interfaces.OpEncrypt | interfaces.OpSign)
	transport.On("FetchKeys", mock.Anything, "aabb,ccdd", wantMask).Return([]api.RawKey{
		{Kid: "ccdd"},
		{Kid: "aabb"},
	}, nil).Once()

	records, err := s.FetchKeys(context.Background(),
		[]interfaces.KeyID{"aabb", "ccdd"},
		[]interfaces.KeyOp{interfaces.OpEncrypt, interfaces.OpSign})
	require.NoError(t, err)

	// Records keep the service's order, whatever it is.
	require.Len(t, records, 2)
	assert.Equal(t, interfaces.KeyID("ccdd"), records[0].KeyID)
	assert.Equal(t, interfaces.KeyID("aabb"), records[1].KeyID)
	transport.AssertExpectations(t)
}

func TestFetchKeysWorksAnonymously(t *testing.T) {
	s, transport := newTestSession()
	require.False(t, s.Authenticated())

	transport.On("FetchKeys", mock.Anything, "aabb", interfaces.KeyOpMask(interfaces.OpVerify)).
		Return([]api.RawKey{{Kid: "aabb"}}, nil).Once()

	records, err := s.FetchKeys(context.Background(),
		[]interfaces.KeyID{"aabb"},
		[]interfaces.KeyOp{interfaces.OpVerify})
	require.NoError(t, err)
	require.Len(t, records, 1)
	transport.AssertExpectations(t)
}

func TestFetchKeysInputValidation(t *testing.T) {
	testCases := []struct {
		name string
		kids []interfaces.KeyID
		ops  []interfaces.KeyOp
	}{
		{"no kids", nil, []interfaces.KeyOp{interfaces.OpEncrypt}},
		{"empty kid", []interfaces.KeyID{"aabb", ""}, []interfaces.KeyOp{interfaces.OpEncrypt}},
		{"empty operation set", []interfaces.KeyID{"aabb"}, nil},
		{"unknown operation", []interfaces.KeyID{"aabb"}, []interfaces.KeyOp{interfaces.KeyOp(64)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, transport := newTestSession()

			_, err := s.FetchKeys(context.Background(), tc.kids, tc.ops)
			require.ErrorIs(t, err, interfaces.ErrInput)
			transport.AssertNotCalled(t, "FetchKeys", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestKeyMutationsRequireAuthentication(t *testing.T) {
	testCases := []struct {
		name string
		call func(s *Session) error
	}{
		{"add public key", func(s *Session) error {
			_, err := s.AddPublicKey(context.Background(), "-----BEGIN PGP PUBLIC KEY BLOCK-----")
			return err
		}},
		{"add private key", func(s *Session) error {
			_, err := s.AddPrivateKey(context.Background(), []byte{0x01, 0x02})
			return err
		}},
		{"revoke key", func(s *Session) error {
			return s.RevokeKey(context.Background(), "aabb")
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, transport := newTestSession()

			require.ErrorIs(t, tc.call(s), interfaces.ErrSession)
			transport.AssertNotCalled(t, "AddKey", mock.Anything, mock.Anything, mock.Anything)
			transport.AssertNotCalled(t, "RevokeKey", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAddPublicKey(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)

	armored := "-----BEGIN PGP PUBLIC KEY BLOCK-----\n...\n-----END PGP PUBLIC KEY BLOCK-----"
	transport.On("AddKey", mock.Anything, interfaces.SessionToken("tok-1"),
		api.AddKeyRequest{PublicKey: armored}).
		Return(interfaces.KeyID("aabbccdd"), nil).Once()

	kid, err := s.AddPublicKey(context.Background(), armored)
	require.NoError(t, err)
	assert.Equal(t, interfaces.KeyID("aabbccdd"), kid)
	transport.AssertExpectations(t)
}

func TestAddPrivateKey(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)

	encoded := []byte{0xde, 0xad, 0xbe, 0xef}
	transport.On("AddKey", mock.Anything, interfaces.SessionToken("tok-1"),
		api.AddKeyRequest{PrivateKey: encoded}).
		Return(interfaces.KeyID("aabbccdd"), nil).Once()

	kid, err := s.AddPrivateKey(context.Background(), encoded)
	require.NoError(t, err)
	assert.Equal(t, interfaces.KeyID("aabbccdd"), kid)
	transport.AssertExpectations(t)
}

func TestAddKeyEmptyMaterial(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)

	_, err := s.AddPublicKey(context.Background(), "")
	require.ErrorIs(t, err, interfaces.ErrInput)

	_, err = s.AddPrivateKey(context.Background(), nil)
	require.ErrorIs(t, err, interfaces.ErrInput)

	transport.AssertNotCalled(t, "AddKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeKey(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)

	transport.On("RevokeKey", mock.Anything, interfaces.SessionToken("tok-1"), interfaces.KeyID("aabb")).
		Return(nil).Once()

	require.NoError(t, s.RevokeKey(context.Background(), "aabb"))
	transport.AssertExpectations(t)
}

func TestRevokeKeyEmptyKid(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)

	require.ErrorIs(t, s.RevokeKey(context.Background(), ""), interfaces.ErrInput)
	transport.AssertNotCalled(t, "RevokeKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeKeyNotOwned(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)

	transport.On("RevokeKey", mock.Anything, interfaces.SessionToken("tok-1"), interfaces.KeyID("ffff")).
		Return(interfaces.ErrNotFound).Once()

	require.ErrorIs(t, s.RevokeKey(context.Background(), "ffff"), interfaces.ErrNotFound)
	transport.AssertExpectations(t)
}
