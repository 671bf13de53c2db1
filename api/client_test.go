package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/interfaces"
)

// TestStatusToError verifies the status mapping is exhaustive and one-to-one:
// every protocol status lands on its own sentinel, and nothing unknown ever
// passes as success.
func TestStatusToError(t *testing.T) {
	testCases := []struct {
		name       string
		status     Status
		wantErr    error
		wantNilErr bool
	}{
		{
			name:       "OK",
			status:     StatusFor(StatusOK, ""),
			wantNilErr: true,
		},
		{
			name:    "Input error",
			status:  StatusFor(StatusInputError, "empty username"),
			wantErr: interfaces.ErrInput,
		},
		{
			name:    "Bad session",
			status:  StatusFor(StatusBadSession, "session expired"),
			wantErr: interfaces.ErrSession,
		},
		{
			name:    "Bad credential",
			status:  StatusFor(StatusBadCredential, "authenticator mismatch"),
			wantErr: interfaces.ErrBadCredential,
		},
		{
			name:    "Not found",
			status:  StatusFor(StatusNotFound, "no such user"),
			wantErr: interfaces.ErrNotFound,
		},
		{
			name:    "Verification failed",
			status:  StatusFor(StatusVerificationFailed, "bad signature"),
			wantErr: interfaces.ErrVerification,
		},
		{
			name:    "Unknown status is never success",
			status:  Status{Code: 999, Name: "RATE_LIMITED"},
			wantErr: interfaces.ErrTransport,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := StatusToError(tc.status)
			if tc.wantNilErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "expected %v, got %v", tc.wantErr, err)
		})
	}
}

func TestClientGetSaltAndLoginSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BasePath+"/getsalt.json", r.URL.Path)
		assert.Equal(t, "chris", r.URL.Query().Get("email_or_username"))

		// "abc" hex-encoded, "xyz" base64-encoded
		json.NewEncoder(w).Encode(SaltResponse{
			Status:       StatusFor(StatusOK, ""),
			Salt:         "616263",
			LoginSession: "eHl6",
		})
	}))
	defer srv.Close()

	client := &Client{ServerAddr: srv.URL}
	salt, loginSession, err := client.GetSaltAndLoginSession(context.Background(), "chris")
	require.NoError(t, err)

	// The client decodes the wire encodings before the core sees the values
	assert.Equal(t, []byte("abc"), salt)
	assert.Equal(t, []byte("xyz"), loginSession)
}

func TestClientGetSaltMalformedEncodings(t *testing.T) {
	testCases := []struct {
		name string
		resp SaltResponse
	}{
		{
			name: "Bad salt hex",
			resp: SaltResponse{Status: StatusFor(StatusOK, ""), Salt: "zz", LoginSession: "eHl6"},
		},
		{
			name: "Bad login session base64",
			resp: SaltResponse{Status: StatusFor(StatusOK, ""), Salt: "616263", LoginSession: "!!!"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tc.resp)
			}))
			defer srv.Close()

			client := &Client{ServerAddr: srv.URL}
			_, _, err := client.GetSaltAndLoginSession(context.Background(), "chris")
			require.Error(t, err)
			assert.True(t, errors.Is(err, interfaces.ErrPrimitive))
		})
	}
}

func TestClientLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BasePath+"/login.json", r.URL.Path)
		require.NoError(t, r.ParseForm())

		// The nonce round-trips in its wire encoding
		assert.Equal(t, "chris", r.PostForm.Get("email_or_username"))
		assert.Equal(t, "deadbeef", r.PostForm.Get("hmac_pwh"))
		assert.Equal(t, "eHl6", r.PostForm.Get("login_session"))

		json.NewEncoder(w).Encode(LoginResponse{
			Status:  StatusFor(StatusOK, ""),
			Session: "s1",
			Me:      &RawUser{ID: "u1", Basics: &RawBasics{Username: "chris"}},
		})
	}))
	defer srv.Close()

	client := &Client{ServerAddr: srv.URL}
	session, me, err := client.Login(context.Background(), "chris", "deadbeef", []byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, interfaces.SessionToken("s1"), session)
	require.NotNil(t, me)
	assert.Equal(t, "u1", me.ID)
}

func TestClientLoginBadCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(LoginResponse{
			Status: StatusFor(StatusBadCredential, "authenticator mismatch"),
		})
	}))
	defer srv.Close()

	client := &Client{ServerAddr: srv.URL}
	_, _, err := client.Login(context.Background(), "chris", "deadbeef", []byte("xyz"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrBadCredential))
}

// TestClientSessionHeader verifies authenticated calls carry the session
// token in the header and nowhere else.
func TestClientSessionHeader(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(SessionHeader)
		json.NewEncoder(w).Encode(StatusResponse{Status: StatusFor(StatusOK, "")})
	}))
	defer srv.Close()

	client := &Client{ServerAddr: srv.URL}
	err := client.KillAllSessions(context.Background(), interfaces.SessionToken("s1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", gotHeader)
}

func TestClientFetchKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BasePath+"/key/fetch.json", r.URL.Path)
		assert.Equal(t, "aabb,ccdd", r.URL.Query().Get("kids"))
		assert.Equal(t, "5", r.URL.Query().Get("ops"))

		json.NewEncoder(w).Encode(KeyFetchResponse{
			Status: StatusFor(StatusOK, ""),
			Keys:   []RawKey{{Kid: "aabb"}, {Kid: "ccdd"}},
		})
	}))
	defer srv.Close()

	mask, err := interfaces.EncodeKeyOps([]interfaces.KeyOp{interfaces.OpEncrypt, interfaces.OpVerify})
	require.NoError(t, err)

	client := &Client{ServerAddr: srv.URL}
	keys, err := client.FetchKeys(context.Background(), "aabb,ccdd", mask)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	// Service order is preserved
	assert.Equal(t, "aabb", keys[0].Kid)
	assert.Equal(t, "ccdd", keys[1].Kid)
}

func TestClientAddKeyValidation(t *testing.T) {
	// Validation runs before any network traffic, so a dead address is fine
	client := &Client{ServerAddr: "http://127.0.0.1:1"}

	_, err := client.AddKey(context.Background(), "s1", AddKeyRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrInput))

	_, err = client.AddKey(context.Background(), "s1", AddKeyRequest{
		PublicKey:  "armored",
		PrivateKey: []byte("encoded"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrInput))
}

func TestClientServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &Client{ServerAddr: srv.URL}
	_, err := client.LookupUser(context.Background(), "chris")
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrTransport))
}

func TestClientUnreachable(t *testing.T) {
	client := &Client{ServerAddr: "http://127.0.0.1:1"}
	_, err := client.LookupUser(context.Background(), "chris")
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrTransport))
}
