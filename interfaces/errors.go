package interfaces

import "errors"

// Sentinel errors classifying every failure the client surfaces. Call sites
// wrap these with fmt.Errorf("%w: ...") so errors.Is works through the whole
// stack while the message keeps the operation detail. The seven kinds are
// distinct on purpose: callers branch on them, never on message text.
var (
	// ErrInput is returned when a caller-supplied argument is missing,
	// empty, or malformed. Raised before any network traffic.
	ErrInput = errors.New("invalid input")

	// ErrNotFound is returned when the directory has no record for the
	// requested user or key.
	ErrNotFound = errors.New("not found")

	// ErrBadCredential is returned when the directory rejects a login
	// authenticator, meaning the passphrase or identifier was wrong.
	ErrBadCredential = errors.New("bad credential")

	// ErrSession is returned when an operation requires an authenticated
	// session and there is none, or the service no longer honors the one
	// presented.
	ErrSession = errors.New("invalid session")

	// ErrVerification is returned when the directory rejects a submitted
	// signature payload.
	ErrVerification = errors.New("verification failed")

	// ErrPrimitive is returned when a local cryptographic primitive fails:
	// key derivation, digest computation, or decoding of crypto inputs.
	ErrPrimitive = errors.New("crypto primitive failure")

	// ErrTransport is returned when the directory cannot be reached or
	// answers outside the protocol: network failures, 5xx responses,
	// undecodable bodies, unknown status names.
	ErrTransport = errors.New("transport failure")
)
