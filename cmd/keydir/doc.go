/*
The keydir command is the CLI for the keydir identity directory.

Sessions persist between invocations: login saves the session through
the configured keyring store and records a pointer under ~/.keydir, so
later commands resume it without re-entering the passphrase. The
passphrase itself is read from the terminal without echo, or from
KEYDIR_PASSPHRASE for non-interactive use, and never travels to the
directory in any form other than the derived authenticator.

Configuration lives in ~/.keydir/config.toml:

	server         = "https://directory.example.com"
	dns_resolver   = "127.0.0.53:53"
	session_store  = "file:///home/me/.keydir/keyring"
	keyring_stores = ["file:///home/me/.keydir/keyring", "s3://bucket/keys"]

Flags override file values. A server value of the form srv:<domain>
discovers directory hosts through DNS SRV records instead of naming
one directly.

Usage:

	keydir login chris
	keydir lookup max
	keydir key fetch --kid 0101f56e... --ops verify --ops encrypt
	keydir key add --file key.asc
	keydir key add-private --file bundle.p3skb
	keydir key revoke --kid 0101f56e...
	keydir key backup --file bundle.p3skb --shares 5 --threshold 3
	keydir key restore --out bundle.p3skb keydir-share-*.hex
	keydir postauth --file sig.txt
	keydir logout
*/
package main
