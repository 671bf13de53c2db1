package api

import (
	"context"

	"github.com/plukevdh/go-keydir/interfaces"
)

// BasePath is the path prefix every directory endpoint hangs off.
const BasePath = "/_/api/1.0"

// SessionHeader carries the session token on authenticated calls.
const SessionHeader = "X-Keydir-Session"

// Status names a directory response can carry. They map one-to-one onto the
// client error taxonomy; the mapping lives in StatusToError and nowhere else.
const (
	StatusOK                 = "OK"
	StatusInputError         = "INPUT_ERROR"
	StatusBadSession         = "BAD_SESSION"
	StatusBadCredential      = "BAD_CREDENTIAL"
	StatusNotFound           = "NOT_FOUND"
	StatusVerificationFailed = "VERIFICATION_FAILED"
)

// Numeric codes paired with the status names above.
const (
	CodeOK                 = 0
	CodeInputError         = 100
	CodeBadSession         = 201
	CodeBadCredential      = 204
	CodeNotFound           = 205
	CodeVerificationFailed = 270
)

// Status is the envelope every directory response body carries.
type Status struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

// StatusFor builds the wire status for a name, filling in the paired code.
func StatusFor(name, desc string) Status {
	code := CodeOK
	switch name {
	case StatusInputError:
		code = CodeInputError
	case StatusBadSession:
		code = CodeBadSession
	case StatusBadCredential:
		code = CodeBadCredential
	case StatusNotFound:
		code = CodeNotFound
	case StatusVerificationFailed:
		code = CodeVerificationFailed
	}
	return Status{Code: code, Name: name, Desc: desc}
}

// RawBasics mirrors the `basics` sub-record: username plus epoch timestamps.
// Timestamps are pointers because absence and zero are different things.
type RawBasics struct {
	Username string `json:"username"`
	Ctime    *int64 `json:"ctime,omitempty"`
	Mtime    *int64 `json:"mtime,omitempty"`
}

// RawProfile mirrors the `profile` sub-record.
type RawProfile struct {
	Bio   string `json:"bio,omitempty"`
	Mtime *int64 `json:"mtime,omitempty"`
}

// RawEmail mirrors one email slot. Verification is an integer on the wire;
// only exactly 1 means verified.
type RawEmail struct {
	Email      string `json:"email"`
	IsVerified int    `json:"is_verified,omitempty"`
}

// RawKey mirrors one key record as served. The bundle is the armored or
// encoded key material, passed through opaquely. Flags are wire integers.
type RawKey struct {
	Kid                    string `json:"kid"`
	KeyFingerprint         string `json:"key_fingerprint,omitempty"`
	Bundle                 string `json:"bundle,omitempty"`
	Ctime                  *int64 `json:"ctime,omitempty"`
	Mtime                  *int64 `json:"mtime,omitempty"`
	SelfSigned             int    `json:"self_signed,omitempty"`
	Secret                 int    `json:"secret,omitempty"`
	PrimaryBundleInKeyring int    `json:"primary_bundle_in_keyring,omitempty"`
}

// RawKeyBundle mirrors the nested key collections of a user record. The
// shapes are non-uniform upstream: subkeys and sibkeys are mappings with
// arbitrary keys, families maps a family name to an ordered sequence.
type RawKeyBundle struct {
	Primary  *RawKey             `json:"primary,omitempty"`
	Subkeys  map[string]RawKey   `json:"subkeys,omitempty"`
	Sibkeys  map[string]RawKey   `json:"sibkeys,omitempty"`
	Families map[string][]RawKey `json:"families,omitempty"`
}

// RawUser mirrors the full nested user record exactly as the directory
// serves it. Lookup responses omit private keys and unverified detail;
// login responses carry everything. Normalization into the typed model
// happens in package directory, never here.
type RawUser struct {
	ID              string              `json:"id"`
	Basics          *RawBasics          `json:"basics,omitempty"`
	Profile         *RawProfile         `json:"profile,omitempty"`
	Emails          map[string]RawEmail `json:"emails,omitempty"`
	PublicKeys      *RawKeyBundle       `json:"public_keys,omitempty"`
	PrivateKeys     *RawKeyBundle       `json:"private_keys,omitempty"`
	InvitationStats map[string]any      `json:"invitation_stats,omitempty"`
}

// SaltResponse answers getsalt.json. Salt is hex on the wire, the login
// session nonce standard base64; the HTTP client decodes both before the
// core ever sees them.
type SaltResponse struct {
	Status       Status `json:"status"`
	Salt         string `json:"salt"`
	LoginSession string `json:"login_session"`
}

// LoginResponse answers login.json with the session token and the full
// authenticated record.
type LoginResponse struct {
	Status  Status   `json:"status"`
	Session string   `json:"session,omitempty"`
	Me      *RawUser `json:"me,omitempty"`
}

// LookupResponse answers user/lookup.json with the public view of a record.
type LookupResponse struct {
	Status Status   `json:"status"`
	Them   *RawUser `json:"them,omitempty"`
}

// KeyFetchResponse answers key/fetch.json in service order.
type KeyFetchResponse struct {
	Status Status   `json:"status"`
	Keys   []RawKey `json:"keys,omitempty"`
}

// KeyAddResponse answers key/add.json with the service-issued key ID.
type KeyAddResponse struct {
	Status Status `json:"status"`
	Kid    string `json:"kid,omitempty"`
}

// StatusResponse is the bare envelope for acknowledge-only endpoints
// (session/killall.json, key/revoke.json).
type StatusResponse struct {
	Status Status `json:"status"`
}

// PostAuthResponse answers sig/post_auth.json with the keyed digest over the
// verified certificate range.
type PostAuthResponse struct {
	Status    Status `json:"status"`
	AuthToken string `json:"auth_token,omitempty"`
}

// AddKeyRequest carries exactly one of an armored public key or an encoded
// private-key bundle. Setting both or neither is an input error the
// transport rejects before sending.
type AddKeyRequest struct {
	PublicKey  string `json:"public_key,omitempty"`
	PrivateKey []byte `json:"private_key,omitempty"`
}

// Transport is the directory collaborator the session core drives.
// Implementations own connection management, encodings, and deadlines; the
// core owns sequencing, state, and input validation. Authenticated calls
// take the session token explicitly here; the core's public API is what
// keeps it hidden from callers.
type Transport interface {
	// GetSaltAndLoginSession begins a login handshake for an identifier
	// (username or email). Returns the account salt and the one-shot
	// login-session nonce, both decoded to raw bytes.
	GetSaltAndLoginSession(ctx context.Context, identifier string) (salt []byte, loginSession []byte, err error)

	// Login submits the derived authenticator together with the nonce it
	// was keyed with. Returns the session token and the authenticated
	// user record.
	Login(ctx context.Context, identifier string, authenticator string, loginSession []byte) (interfaces.SessionToken, *RawUser, error)

	// KillAllSessions terminates every session of the authenticated user,
	// including the one making the call.
	KillAllSessions(ctx context.Context, session interfaces.SessionToken) error

	// LookupUser fetches the public view of a user record.
	LookupUser(ctx context.Context, username string) (*RawUser, error)

	// FetchKeys retrieves key records by comma-joined key IDs, filtered to
	// keys usable for the requested operation mask. Order is service order.
	FetchKeys(ctx context.Context, kids string, ops interfaces.KeyOpMask) ([]RawKey, error)

	// AddKey registers a public key or uploads a private-key bundle for
	// the authenticated user and returns the service-issued key ID.
	AddKey(ctx context.Context, session interfaces.SessionToken, req AddKeyRequest) (interfaces.KeyID, error)

	// RevokeKey destructively deletes a key belonging to the
	// authenticated user.
	RevokeKey(ctx context.Context, session interfaces.SessionToken, kid interfaces.KeyID) error

	// PostAuth submits a signed certificate payload for remote
	// verification and returns the auth token digest on success.
	PostAuth(ctx context.Context, session interfaces.SessionToken, username string, signaturePayload []byte) (string, error)
}
