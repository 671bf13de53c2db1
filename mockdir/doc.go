/*
Package mockdir is an in-memory directory service speaking the keydir
wire protocol, for end-to-end tests and local development. It is not a
production server: state lives in process memory and "signature
verification" only checks that the payload is a delimited certificate
naming the calling account.

The handshake is real, though. Accounts carry per-account scrypt salts
and hardened passphrases, getsalt issues single-use login-session
nonces, and login recomputes the authenticator over the issued nonce
with a constant-time compare. A client logging in against mockdir
exercises the same derivation path it would against a live directory.

Handler holds the directory state and endpoints; Server wraps it in an
HTTP server with liveness, readiness, and drain endpoints for the
standalone binary. SeedFixtures loads two accounts whose records cover
every normalizer shape: nested subkeys, sibkeys, key families, absent
timestamps, and flag variants.
*/
package mockdir
