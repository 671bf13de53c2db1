/*
Package directory implements the client core for the Keydir identity
directory: session lifecycle, user lookup, keyring operations, and
signature posting, all speaking through the api.Transport interface.

# Session Lifecycle

A Session begins anonymous. Login runs the challenge handshake (fetch
salt and login nonce, harden the passphrase locally, send only the
derived authenticator) and on success binds the issued token to the
session. Logout terminates every live session for the account
remotely, but transitions locally no matter what the transport says: a
logout can never strand the caller in the authenticated state. A
destroyed session refuses further privileged calls with a session
error rather than silently acting anonymous.

Lookup and FetchKeys work in either state. AddPublicKey,
AddPrivateKey, RevokeKey, PostAuth, and SaveSession require an
authenticated session.

# Record Normalization

The directory serves deeply nested records with epoch timestamps,
integer booleans, and map-shaped key collections. NormalizeUser,
NormalizeKeyBundle, and NormalizeKeyRecord convert those into the flat
typed model: absent timestamps stay absent rather than becoming zero
times, integer flags map to booleans only on the exact value 1, and
map-shaped subkey collections flatten to ordered sequences with their
map keys discarded. A present key bundle without a primary key is
malformed and fails normalization.

# Errors

Failures carry the sentinel kinds from the interfaces package: local
precondition violations wrap ErrInput, state violations wrap
ErrSession, and malformed service records wrap ErrTransport. Remote
rejections keep whatever kind the transport mapped from the wire
status.
*/
package directory
