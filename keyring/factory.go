package keyring

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/plukevdh/go-keydir/interfaces"
)

// StoreFactory creates keyring stores from parsed locations and
// aggregates several of them into one replicated store.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a factory instance.
func NewStoreFactory(log *slog.Logger) *StoreFactory {
	return &StoreFactory{log: log}
}

// StoreFor creates a keyring store for one location.
//
// Supported schemes:
//   - file:// - local keyring directory
//   - s3:// - S3 or compatible object storage
//   - ipfs:// - IPFS node or gateway
//   - vault:// - HashiCorp Vault KV store
//   - github:// - read-only mirror of published keys
func (sf *StoreFactory) StoreFor(location interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	switch strings.ToLower(location.Scheme) {
	case "file":
		return sf.createFileStore(location)
	case "s3":
		return sf.createS3Store(location)
	case "ipfs":
		return sf.createIPFSStore(location)
	case "vault":
		return sf.createVaultStore(location)
	case "github":
		return sf.createGitHubStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidStoreURI, location.Scheme)
	}
}

// CreateMultiStore aggregates the given locations into one store that
// replicates writes and falls back across reads. Locations that fail
// to construct are skipped with a warning; at least one must succeed.
func (sf *StoreFactory) CreateMultiStore(locations []interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	stores := make([]interfaces.ArtifactStore, 0, len(locations))

	for _, location := range locations {
		store, err := sf.StoreFor(location)
		if err != nil {
			sf.log.Warn("could not create keyring store",
				"err", err,
				slog.String("location", location.String()))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: no usable keyring store among %d locations", interfaces.ErrInvalidStoreURI, len(locations))
	}

	return NewMultiStore(stores, sf.log), nil
}

// createFileStore builds a local directory store.
// URI format: file:///home/user/.keydir/keyring
func (sf *StoreFactory) createFileStore(location interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("creating file keyring store", slog.String("location", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in %q", interfaces.ErrInvalidStoreURI, location.String())
	}

	return NewFileStore(path, sf.log)
}

// createS3Store builds an object-storage store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix/?region=us-west-2&endpoint=minio.local
func (sf *StoreFactory) createS3Store(location interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("creating s3 keyring store", slog.String("location", location.String()))

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if location.Auth != "" {
		accessKey, secretKey, _ = strings.Cut(location.Auth, ":")
	}

	return NewS3Store(location.Host, strings.TrimPrefix(location.Path, "/"), region,
		location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createIPFSStore builds an IPFS-backed store.
// URI format: ipfs://host:port/?gateway=true&timeout=30s
func (sf *StoreFactory) createIPFSStore(location interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("creating ipfs keyring store", slog.String("location", location.String()))

	host, port, found := strings.Cut(location.Host, ":")
	if !found || port == "" {
		port = "5001"
	}

	timeout := location.GetParam("timeout")
	if timeout == "" {
		timeout = "30s"
	}

	return NewIPFSStore(host, port, location.GetParamBool("gateway"), timeout, sf.log)
}

// createVaultStore builds a Vault KV v2 store.
// URI format: vault://host:8200/mount/path?token=...&tls=true
// The token parameter overrides the VAULT_TOKEN environment variable.
func (sf *StoreFactory) createVaultStore(location interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("creating vault keyring store", slog.String("location", location.String()))

	scheme := "http"
	if location.GetParamBool("tls") {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, location.Host)

	parts := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: vault location needs /mount/path, got %q", interfaces.ErrInvalidStoreURI, location.Path)
	}

	return NewVaultStore(address, parts[0], parts[1], location.GetParam("token"), sf.log)
}

// createGitHubStore builds a read-only store over a repository of
// published keys.
// URI format: github://owner/repo
func (sf *StoreFactory) createGitHubStore(location interfaces.KeyringLocation) (interfaces.ArtifactStore, error) {
	sf.log.Debug("creating github keyring store", slog.String("location", location.String()))

	owner := location.Host
	repo := strings.Trim(location.Path, "/")
	if owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: expected github://owner/repo, got %q", interfaces.ErrInvalidStoreURI, location.String())
	}

	return NewGitHubStore(owner, repo, sf.log), nil
}
