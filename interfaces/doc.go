// Package interfaces defines core identifiers, contracts, and the error
// taxonomy for the keydir client, separating interface definitions from
// implementations.
//
// The package provides the shared vocabulary of the system:
//
// # Identifier Types
//
// UserID, KeyID, and Fingerprint wrap the directory's identifier formats with
// validating constructors. SessionToken carries the opaque session identifier
// issued on login; it circulates between the session core and the transport
// and is never exposed to library callers.
//
// # Key Operations
//
// KeyOp names the four operations keys can be requested for (encrypt,
// decrypt, verify, sign). EncodeKeyOps folds a set of named operations into
// the KeyOpMask wire encoding; the numeric mask never appears in caller code.
//
// # Error Taxonomy
//
// Seven sentinel errors classify every failure the client can surface:
// ErrInput, ErrNotFound, ErrBadCredential, ErrSession, ErrVerification,
// ErrPrimitive, ErrTransport. Implementations wrap them with fmt.Errorf and
// %w; callers branch with errors.Is and never parse message text.
//
// # Keyring Contracts
//
// ArtifactStore is content-addressed local storage for fetched public keys,
// sealed private bundles, and persisted sessions, with ArtifactID (SHA-256)
// addressing and ArtifactKind namespaces. ArtifactStoreFactory builds stores
// from URIs (file://, s3://, ipfs://, github://, vault://).
//
// Components depend on these interfaces rather than concrete
// implementations, which keeps the transport and the keyring swappable in
// tests.
package interfaces
