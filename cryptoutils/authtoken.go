package cryptoutils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/plukevdh/go-keydir/interfaces"
)

// Certificate payload delimiters. The auth token covers exactly the bytes
// from the line containing the opening delimiter through the line containing
// the closing delimiter; anything around them is ignored.
var (
	certBeginMarker = []byte("-----BEGIN")
	certEndMarker   = []byte("-----END")
)

// CertificateRange locates the delimited certificate inside a signature
// payload and returns the exact byte range the auth token is computed over:
// start of the opening delimiter line through end of the closing delimiter
// line, line terminator excluded.
func CertificateRange(payload []byte) ([]byte, error) {
	begin := bytes.Index(payload, certBeginMarker)
	if begin < 0 {
		return nil, fmt.Errorf("%w: payload missing opening certificate delimiter", interfaces.ErrInput)
	}

	end := bytes.LastIndex(payload, certEndMarker)
	if end < 0 || end < begin {
		return nil, fmt.Errorf("%w: payload missing closing certificate delimiter", interfaces.ErrInput)
	}

	// Extend through the closing delimiter line
	lineEnd := bytes.IndexByte(payload[end:], '\n')
	if lineEnd < 0 {
		lineEnd = len(payload) - end
	}

	return payload[begin : end+lineEnd], nil
}

// AuthTokenDigest computes the keyed digest a directory returns for a
// verified certificate: hex(HMAC-SHA256(tokenKey, certificate range)).
// Directory operators use it to cross-check tokens offline; the mock
// directory uses it to issue them.
func AuthTokenDigest(payload []byte, tokenKey []byte) (string, error) {
	if len(tokenKey) == 0 {
		return "", fmt.Errorf("%w: empty token key", interfaces.ErrPrimitive)
	}

	cert, err := CertificateRange(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, tokenKey)
	mac.Write(cert)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
