/*
Package keyring provides replicated, content-addressed storage for
client-side keyring artifacts: armored public keys, sealed private-key
bundles, and persisted session state.

Artifacts are addressed by the SHA-256 hash of their content, so any
store can verify what it serves and replicas can never disagree about
an ID. Each artifact kind lives in its own namespace within a store.

# Store Types

The factory builds stores from location URIs:

  - file:///home/user/.keydir/keyring - local directory store, private
    file modes
  - s3://bucket/prefix/?region=us-west-2 - S3 or compatible object
    storage, credentials optional for read-only use
  - ipfs://host:5001/ - IPFS node or gateway
  - vault://host:8200/mount/path?token=... - HashiCorp Vault KV v2
  - github://owner/repo - read-only mirror of published keys

# Replication

CreateMultiStore aggregates several locations into one store. Writes
fan out to every available store and succeed when at least one store
accepts; reads try stores in order and return the first hit. A typical
setup writes through the local file store and replicates to one remote.

# Error Handling

Stores return interfaces.ErrArtifactNotFound for a definitive miss and
interfaces.ErrStoreUnavailable when the backing service cannot be
reached, so callers can tell an absent artifact from an outage.
*/
package keyring
