package cryptoutils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/interfaces"
)

const testCertificate = `-----BEGIN KEYDIR CERTIFICATE-----
eyJib2R5Ijp7ImtleSI6eyJmaW5nZXJwcmludCI6ImFiY2QiLCJob3N0Ijoia2V5
ZGlyLmlvIiwidXNlcm5hbWUiOiJjaHJpcyJ9LCJ0eXBlIjoiYXV0aCJ9fQ==
-----END KEYDIR CERTIFICATE-----`

func TestCertificateRange(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{
			name:    "Bare certificate",
			payload: testCertificate,
		},
		{
			name:    "Leading garbage",
			payload: "mail header\nmore noise\n" + testCertificate,
		},
		{
			name:    "Trailing garbage",
			payload: testCertificate + "\nsignature footer\n-- \nchris",
		},
		{
			name:    "Surrounded",
			payload: "prefix\n" + testCertificate + "\nsuffix",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cert, err := CertificateRange([]byte(tc.payload))
			require.NoError(t, err)
			require.Equal(t, testCertificate, string(cert))
		})
	}
}

// TestAuthTokenDigestStable: only the delimited range feeds the digest, so
// surrounding bytes never change the token.
func TestAuthTokenDigestStable(t *testing.T) {
	tokenKey := []byte("directory token key")

	bare, err := AuthTokenDigest([]byte(testCertificate), tokenKey)
	require.NoError(t, err)
	require.Len(t, bare, 64)

	wrapped, err := AuthTokenDigest([]byte("noise\n"+testCertificate+"\nnoise"), tokenKey)
	require.NoError(t, err)
	require.Equal(t, bare, wrapped)

	// A different key yields a different token
	other, err := AuthTokenDigest([]byte(testCertificate), []byte("another key"))
	require.NoError(t, err)
	require.NotEqual(t, bare, other)
}

func TestAuthTokenDigestMissingDelimiters(t *testing.T) {
	_, err := AuthTokenDigest([]byte("no delimiters here"), []byte("key"))
	require.Error(t, err)
	require.True(t, errors.Is(err, interfaces.ErrInput))

	_, err = AuthTokenDigest([]byte("-----BEGIN ONLY-----\ndata"), []byte("key"))
	require.Error(t, err)
	require.True(t, errors.Is(err, interfaces.ErrInput))

	_, err = AuthTokenDigest([]byte(testCertificate), nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, interfaces.ErrPrimitive))
}
