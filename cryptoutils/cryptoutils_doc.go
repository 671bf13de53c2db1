// Package cryptoutils provides the cryptographic primitives behind the
// keydir login handshake and local key protection.
//
// This package implements the two chained primitives the handshake needs,
// passphrase hardening and keyed authenticators, plus sealing for locally
// cached private bundles, Shamir share backup, and the auth-token digest the
// directory issues for verified certificates.
//
// The login derivation chain:
//
//   - scrypt (N=32768, r=8, p=1) stretches the passphrase against the
//     account salt into a 32-byte password hash
//   - HMAC-SHA512 keys the server-issued login-session nonce with that hash
//   - The hex authenticator is submitted; the passphrase never leaves the
//     process
//
// Every function is pure: no state is kept between calls, and identical
// inputs always produce identical outputs (apart from the random nonce in
// SealKeyBundle).
//
// # Sealed Bundle Format
//
// SealKeyBundle protects an encoded private-key bundle with AES-256-GCM:
//
//	[nonce (12 bytes)][ciphertext]
//
// The nonce is generated fresh per call; the ciphertext carries the GCM
// authentication tag. Opening with the wrong key fails authentication
// instead of returning garbage.
//
// # Auth Token Digest
//
// The directory acknowledges a verified signature payload with a keyed
// digest over the exact byte range from the certificate's opening delimiter
// line through its closing delimiter line:
//
//	authToken = hex(HMAC-SHA256(tokenKey, certificateRange))
//
// Bytes outside the delimiters never affect the token.
//
// # Errors
//
// Primitive failures wrap interfaces.ErrPrimitive; malformed caller inputs
// (missing delimiters, bad share counts) wrap interfaces.ErrInput. Messages
// carry detail, classification carries meaning.
package cryptoutils
