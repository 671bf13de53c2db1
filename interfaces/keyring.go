package interfaces

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ArtifactID is a 32-byte SHA-256 hash uniquely identifying a cached artifact.
type ArtifactID [32]byte

// NewArtifactIDFromBytes creates an artifact ID from a raw 32-byte hash.
func NewArtifactIDFromBytes(source []byte) (ArtifactID, error) {
	if len(source) != 32 {
		return ArtifactID{}, errors.New("invalid ArtifactID conversion from bytes: incorrect length")
	}

	var hash [32]byte
	copy(hash[:], source)
	return ArtifactID(hash), nil
}

// NewArtifactIDFromHex creates an artifact ID from its hex form.
func NewArtifactIDFromHex(source string) (ArtifactID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ArtifactID{}, errors.New("invalid artifact ID length: hex string must be 64 characters")
	}

	hashBytes, err := hex.DecodeString(clean)
	if err != nil {
		return ArtifactID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var hash [32]byte
	copy(hash[:], hashBytes)
	return ArtifactID(hash), nil
}

// ComputeArtifactID calculates the artifact ID for data.
func ComputeArtifactID(data []byte) ArtifactID {
	hash := sha256.Sum256(data)
	return ArtifactID(hash)
}

// String returns hex representation.
func (id ArtifactID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns raw 32-byte hash.
func (id ArtifactID) Bytes() []byte {
	return id[:]
}

// Equal compares two artifact IDs.
func (id ArtifactID) Equal(other ArtifactID) bool {
	return bytes.Equal(id[:], other[:])
}

// ArtifactKind indicates the keyring namespace an artifact lives in.
type ArtifactKind int

const (
	// KeyArtifact for armored public keys and sealed private bundles
	KeyArtifact ArtifactKind = iota
	// SessionArtifact for persisted session state
	SessionArtifact
)

// String returns the namespace name.
func (k ArtifactKind) String() string {
	switch k {
	case KeyArtifact:
		return "keys"
	case SessionArtifact:
		return "sessions"
	default:
		return "unknown"
	}
}

// KeyringLocation represents a parsed keyring store URI.
type KeyringLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewKeyringLocation creates a keyring location from a URI string with validation.
func NewKeyringLocation(uri string) (KeyringLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return KeyringLocation{}, fmt.Errorf("invalid URI format: %w", err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "file", "s3", "ipfs", "github", "vault":
		// Valid scheme
	default:
		return KeyringLocation{}, fmt.Errorf("unsupported keyring scheme: %s", scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return KeyringLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc KeyringLocation) String() string {
	return loc.Raw
}

// IsFile checks if this is a file system location.
func (loc KeyringLocation) IsFile() bool {
	return loc.Scheme == "file"
}

// IsS3 checks if this is an S3 location.
func (loc KeyringLocation) IsS3() bool {
	return loc.Scheme == "s3"
}

// IsIPFS checks if this is an IPFS location.
func (loc KeyringLocation) IsIPFS() bool {
	return loc.Scheme == "ipfs"
}

// IsGitHub checks if this is a GitHub location.
func (loc KeyringLocation) IsGitHub() bool {
	return loc.Scheme == "github"
}

// IsVault checks if this is a Vault location.
func (loc KeyringLocation) IsVault() bool {
	return loc.Scheme == "vault"
}

// GetParam returns a query parameter value.
func (loc KeyringLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc KeyringLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrArtifactNotFound is returned when the requested artifact is not in the store.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrStoreUnavailable is returned when a keyring store is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrStoreUnavailable = errors.New("keyring store unavailable")

	// ErrInvalidStoreURI is returned when a keyring store URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidStoreURI = errors.New("invalid keyring store URI")
)

// ArtifactStore provides content-addressed storage for keyring artifacts.
type ArtifactStore interface {
	// Fetch retrieves an artifact by ID and kind.
	Fetch(ctx context.Context, id ArtifactID, kind ArtifactKind) ([]byte, error)

	// Store saves an artifact and returns its ID.
	Store(ctx context.Context, data []byte, kind ArtifactKind) (ArtifactID, error)

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this store.
	LocationURI() string
}

// ArtifactStoreFactory creates keyring stores.
type ArtifactStoreFactory interface {
	// StoreFor creates a store from a URI.
	// Supports file://, s3://, ipfs://, github://, vault://
	StoreFor(location KeyringLocation) (ArtifactStore, error)

	// CreateMultiStore creates an aggregated store over several locations.
	CreateMultiStore(locations []KeyringLocation) (ArtifactStore, error)
}
