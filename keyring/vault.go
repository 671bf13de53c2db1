package keyring

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/plukevdh/go-keydir/interfaces"
)

// VaultStore keeps keyring artifacts in HashiCorp Vault's KV v2
// engine, one path per artifact kind. Authentication is by Vault
// token, taken from the location URI or the usual VAULT_TOKEN
// environment.
type VaultStore struct {
	client      *vaultapi.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault keyring store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount (e.g. "secret")
//   - dataPath: path within the mount (e.g. "keydir")
//   - token: Vault token; empty falls through to the client's
//     environment configuration
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := vaultapi.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := vaultapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("could not create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Fetch retrieves an artifact through the KV v2 API.
func (s *VaultStore) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	path := s.secretPath(id, kind)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("could not read from Vault",
			slog.String("path", path),
			slog.String("artifact", id.String()),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		s.log.Debug("artifact not in Vault",
			slog.String("path", path),
			slog.String("artifact", id.String()))
		return nil, interfaces.ErrArtifactNotFound
	}

	// KV v2 nests the payload under "data".
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected data format in Vault response")
	}
	encoded, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key missing in Vault data")
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("could not decode Vault artifact content: %w", err)
	}

	s.log.Debug("fetched artifact from Vault",
		slog.String("artifact", id.String()),
		slog.Duration("duration", time.Since(start)))

	return content, nil
}

// Store writes an artifact through the KV v2 API under its content
// hash. The payload is base64-encoded inside the secret: artifacts are
// arbitrary bytes (sealed bundles are ciphertext), and JSON string
// transport would mangle anything that is not valid UTF-8.
func (s *VaultStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	start := time.Now()
	id := interfaces.ComputeArtifactID(data)
	path := s.secretPath(id, kind)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		s.log.Error("could not write to Vault",
			slog.String("path", path),
			slog.String("artifact", id.String()),
			"err", err)
		return id, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("stored artifact in Vault",
		slog.String("artifact", id.String()),
		slog.Duration("duration", time.Since(start)))

	return id, nil
}

// Available checks Vault is initialized and unsealed.
func (s *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

func (s *VaultStore) secretPath(id interfaces.ArtifactID, kind interfaces.ArtifactKind) string {
	return fmt.Sprintf("%s/data/%s/%s/%s", s.mountPath, s.dataPath, kind.String(), id.String())
}
