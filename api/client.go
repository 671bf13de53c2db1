package api

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/plukevdh/go-keydir/interfaces"
)

// Client implements Transport over HTTP against a directory service. The
// zero value with just ServerAddr set is usable; deadlines, proxies, and
// retries belong to the HTTP client, never to the protocol layer.
type Client struct {
	// ServerAddr is the base URL of the directory service, without the
	// API base path.
	ServerAddr string

	// Client is the HTTP client used for requests. Falls back to
	// http.DefaultClient when nil.
	Client *http.Client
}

// StatusToError maps a response status onto the error taxonomy. OK maps to
// nil; every non-OK protocol status maps to exactly one sentinel; names
// outside the protocol map to ErrTransport so an unknown failure kind is
// never mistaken for success.
func StatusToError(s Status) error {
	desc := s.Desc
	if desc == "" {
		desc = s.Name
	}

	switch s.Name {
	case StatusOK:
		return nil
	case StatusInputError:
		return fmt.Errorf("%w: %s", interfaces.ErrInput, desc)
	case StatusBadSession:
		return fmt.Errorf("%w: %s", interfaces.ErrSession, desc)
	case StatusBadCredential:
		return fmt.Errorf("%w: %s", interfaces.ErrBadCredential, desc)
	case StatusNotFound:
		return fmt.Errorf("%w: %s", interfaces.ErrNotFound, desc)
	case StatusVerificationFailed:
		return fmt.Errorf("%w: %s", interfaces.ErrVerification, desc)
	default:
		return fmt.Errorf("%w: unrecognized status %q (%d): %s", interfaces.ErrTransport, s.Name, s.Code, s.Desc)
	}
}

// do performs one request against the directory and returns the raw body.
// The session header is attached when a token is present. Responses with 5xx
// codes are transport failures outright; everything else is handed back for
// envelope decoding.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, form url.Values, session interfaces.SessionToken) ([]byte, error) {
	endpoint := c.ServerAddr + BasePath + path
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: could not initialize request: %v", interfaces.ErrTransport, err)
	}

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if session != "" {
		req.Header.Set(SessionHeader, session.String())
	}

	if c.Client == nil {
		c.Client = http.DefaultClient
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: could not request directory: %v", interfaces.ErrTransport, err)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read directory response: %v", interfaces.ErrTransport, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: directory returned %d: %s", interfaces.ErrTransport, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GetSaltAndLoginSession implements Transport. The wire carries the salt
// hex-encoded and the login session base64-encoded; both are decoded here so
// the core only ever handles opaque bytes.
func (c *Client) GetSaltAndLoginSession(ctx context.Context, identifier string) ([]byte, []byte, error) {
	query := url.Values{"email_or_username": {identifier}}
	body, err := c.do(ctx, http.MethodGet, "/getsalt.json", query, nil, "")
	if err != nil {
		return nil, nil, err
	}

	var parsed SaltResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: could not parse getsalt response: %v", interfaces.ErrTransport, err)
	}
	if err := StatusToError(parsed.Status); err != nil {
		return nil, nil, err
	}

	salt, err := hex.DecodeString(parsed.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed salt encoding: %v", interfaces.ErrPrimitive, err)
	}

	loginSession, err := base64.StdEncoding.DecodeString(parsed.LoginSession)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed login session encoding: %v", interfaces.ErrPrimitive, err)
	}

	return salt, loginSession, nil
}

// Login implements Transport.
func (c *Client) Login(ctx context.Context, identifier string, authenticator string, loginSession []byte) (interfaces.SessionToken, *RawUser, error) {
	form := url.Values{
		"email_or_username": {identifier},
		"hmac_pwh":          {authenticator},
		"login_session":     {base64.StdEncoding.EncodeToString(loginSession)},
	}

	body, err := c.do(ctx, http.MethodPost, "/login.json", nil, form, "")
	if err != nil {
		return "", nil, err
	}

	var parsed LoginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", nil, fmt.Errorf("%w: could not parse login response: %v", interfaces.ErrTransport, err)
	}
	if err := StatusToError(parsed.Status); err != nil {
		return "", nil, err
	}

	if parsed.Session == "" {
		return "", nil, fmt.Errorf("%w: login response missing session token", interfaces.ErrTransport)
	}
	if parsed.Me == nil {
		return "", nil, fmt.Errorf("%w: login response missing user record", interfaces.ErrTransport)
	}

	return interfaces.SessionToken(parsed.Session), parsed.Me, nil
}

// KillAllSessions implements Transport.
func (c *Client) KillAllSessions(ctx context.Context, session interfaces.SessionToken) error {
	body, err := c.do(ctx, http.MethodPost, "/session/killall.json", nil, url.Values{}, session)
	if err != nil {
		return err
	}

	var parsed StatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: could not parse killall response: %v", interfaces.ErrTransport, err)
	}
	return StatusToError(parsed.Status)
}

// LookupUser implements Transport.
func (c *Client) LookupUser(ctx context.Context, username string) (*RawUser, error) {
	query := url.Values{"username": {username}}
	body, err := c.do(ctx, http.MethodGet, "/user/lookup.json", query, nil, "")
	if err != nil {
		return nil, err
	}

	var parsed LookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: could not parse lookup response: %v", interfaces.ErrTransport, err)
	}
	if err := StatusToError(parsed.Status); err != nil {
		return nil, err
	}

	if parsed.Them == nil {
		return nil, fmt.Errorf("%w: lookup response missing user record", interfaces.ErrTransport)
	}
	return parsed.Them, nil
}

// FetchKeys implements Transport.
func (c *Client) FetchKeys(ctx context.Context, kids string, ops interfaces.KeyOpMask) ([]RawKey, error) {
	query := url.Values{
		"kids": {kids},
		"ops":  {strconv.Itoa(int(ops))},
	}

	body, err := c.do(ctx, http.MethodGet, "/key/fetch.json", query, nil, "")
	if err != nil {
		return nil, err
	}

	var parsed KeyFetchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: could not parse key fetch response: %v", interfaces.ErrTransport, err)
	}
	if err := StatusToError(parsed.Status); err != nil {
		return nil, err
	}

	return parsed.Keys, nil
}

// AddKey implements Transport. Exactly one of the request's public or
// private key must be set; this is checked before any bytes hit the wire.
func (c *Client) AddKey(ctx context.Context, session interfaces.SessionToken, req AddKeyRequest) (interfaces.KeyID, error) {
	hasPublic := req.PublicKey != ""
	hasPrivate := len(req.PrivateKey) > 0
	if hasPublic == hasPrivate {
		return "", fmt.Errorf("%w: add key request must carry exactly one of a public or private key", interfaces.ErrInput)
	}

	form := url.Values{}
	if hasPublic {
		form.Set("public_key", req.PublicKey)
	} else {
		form.Set("private_key", base64.StdEncoding.EncodeToString(req.PrivateKey))
	}

	body, err := c.do(ctx, http.MethodPost, "/key/add.json", nil, form, session)
	if err != nil {
		return "", err
	}

	var parsed KeyAddResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: could not parse key add response: %v", interfaces.ErrTransport, err)
	}
	if err := StatusToError(parsed.Status); err != nil {
		return "", err
	}

	kid, err := interfaces.NewKeyIDFromHex(parsed.Kid)
	if err != nil {
		return "", fmt.Errorf("%w: directory issued malformed key id %q: %v", interfaces.ErrTransport, parsed.Kid, err)
	}
	return kid, nil
}

// RevokeKey implements Transport.
func (c *Client) RevokeKey(ctx context.Context, session interfaces.SessionToken, kid interfaces.KeyID) error {
	form := url.Values{"kid": {kid.String()}}
	body, err := c.do(ctx, http.MethodPost, "/key/revoke.json", nil, form, session)
	if err != nil {
		return err
	}

	var parsed StatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: could not parse key revoke response: %v", interfaces.ErrTransport, err)
	}
	return StatusToError(parsed.Status)
}

// PostAuth implements Transport.
func (c *Client) PostAuth(ctx context.Context, session interfaces.SessionToken, username string, signaturePayload []byte) (string, error) {
	form := url.Values{
		"email_or_username": {username},
		"sig":               {string(signaturePayload)},
	}

	body, err := c.do(ctx, http.MethodPost, "/sig/post_auth.json", nil, form, session)
	if err != nil {
		return "", err
	}

	var parsed PostAuthResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: could not parse post_auth response: %v", interfaces.ErrTransport, err)
	}
	if err := StatusToError(parsed.Status); err != nil {
		return "", err
	}

	if parsed.AuthToken == "" {
		return "", fmt.Errorf("%w: post_auth response missing auth token", interfaces.ErrTransport)
	}
	return parsed.AuthToken, nil
}
