/*
Package api defines the wire layer of the keydir client: the raw record and
response types as the directory serves them, the Transport interface the
session core drives, an HTTP implementation of that interface, and a testify
mock for unit tests.

# Wire Conventions

Every response body carries a status envelope:

	{"status": {"code": 0, "name": "OK"}, ...}

Non-OK statuses map one-to-one onto the error taxonomy in package
interfaces (see StatusToError); the mapping is exhaustive, and status names
outside the protocol surface as transport errors rather than being swallowed.

Endpoints hang off /_/api/1.0:

	GET  getsalt.json          begin login handshake (salt + login session)
	POST login.json            submit authenticator, receive session + record
	POST session/killall.json  terminate all sessions (authenticated)
	GET  user/lookup.json      public view of a user record
	GET  key/fetch.json        key records by kid list and operation mask
	POST key/add.json          register public key / upload private bundle
	POST key/revoke.json       destructively delete a key (authenticated)
	POST sig/post_auth.json    verify signature payload, receive auth token

Authenticated requests carry the session token in the X-Keydir-Session
header. Requests are form-encoded, responses JSON.

# Raw Records

RawUser and its sub-records mirror the service JSON exactly, including its
non-uniform key collections (primary key, subkeys/sibkeys mappings, key
families) and integer boolean flags. Turning these into the typed model is
package directory's job; nothing in this package interprets record contents.

# Encodings

The wire carries the account salt hex-encoded and the login-session nonce
base64-encoded. The HTTP client decodes both at the boundary, so everything
above the transport handles opaque bytes only. Decode failures are primitive
errors: the remote handed back bytes the handshake primitives cannot accept.
*/
package api
