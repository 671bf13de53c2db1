package keyring

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/plukevdh/go-keydir/interfaces"
)

// FileStore keeps keyring artifacts in a local directory, one
// subdirectory per artifact kind. Directories and files are created
// private to the owning user: sealed bundles and session state carry
// live credentials.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file keyring store rooted at baseDir,
// creating the kind subdirectories if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("could not create keyring directory: %w", err)
	}

	for _, kind := range []interfaces.ArtifactKind{interfaces.KeyArtifact, interfaces.SessionArtifact} {
		if err := os.MkdirAll(filepath.Join(baseDir, kind.String()), 0700); err != nil {
			return nil, fmt.Errorf("could not create %s directory: %w", kind.String(), err)
		}
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads an artifact from disk. Returns ErrArtifactNotFound when
// no file exists for the ID.
func (s *FileStore) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	path := s.artifactPath(id, kind)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, interfaces.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("could not read artifact: %w", err)
	}

	s.log.Debug("fetched artifact from file",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return data, nil
}

// Store writes an artifact to disk under its content hash.
func (s *FileStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	id := interfaces.ComputeArtifactID(data)
	path := s.artifactPath(id, kind)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return id, fmt.Errorf("could not write artifact: %w", err)
	}

	s.log.Debug("stored artifact in file",
		slog.String("path", path),
		slog.String("artifact", id.String()))

	return id, nil
}

// Available checks that the keyring directory still exists.
func (s *FileStore) Available(ctx context.Context) bool {
	if _, err := os.Stat(s.baseDir); err != nil {
		s.log.Debug("file keyring store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

func (s *FileStore) artifactPath(id interfaces.ArtifactID, kind interfaces.ArtifactKind) string {
	return filepath.Join(s.baseDir, kind.String(), id.String())
}
