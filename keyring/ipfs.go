package keyring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/plukevdh/go-keydir/interfaces"
)

// IPFSStore keeps keyring artifacts on an IPFS node. IPFS content is
// world-readable, which is fine here: public keys are meant to be
// published, and private bundles are sealed before they ever reach a
// store.
//
// Artifacts live in the node's mutable file system under
// /keydir/<kind>/<id>, so the artifact ID alone resolves the content
// without a separate ID-to-CID index.
type IPFSStore struct {
	shell       *shell.Shell
	host        string
	port        string
	useGateway  bool
	log         *slog.Logger
	locationURI string
}

// NewIPFSStore creates an IPFS keyring store against the node at
// host:port. With useGateway set it talks to an HTTP gateway instead
// of the node API.
func NewIPFSStore(host, port string, useGateway bool, timeout string, log *slog.Logger) (*IPFSStore, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	uri := fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout)
	if useGateway {
		uri = fmt.Sprintf("ipfs://%s/?gateway=true&timeout=%s", apiURL, timeout)
	}

	return &IPFSStore{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		useGateway:  useGateway,
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves an artifact from the node's file system. Returns
// ErrArtifactNotFound when the path is unknown to the node and
// ErrStoreUnavailable when the node cannot be reached. The content is
// re-hashed against the requested ID before it is returned.
func (s *IPFSStore) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	path := s.mfsPath(id, kind)

	if !s.shell.IsUp() {
		s.log.Warn("IPFS node unavailable",
			slog.String("host", s.host),
			slog.String("port", s.port))
		return nil, interfaces.ErrStoreUnavailable
	}

	reader, err := s.shell.FilesRead(ctx, path)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "no link named") {
			s.log.Debug("artifact not in IPFS",
				slog.String("path", path),
				slog.String("artifact", id.String()),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("could not fetch artifact from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("could not read artifact from IPFS: %w", err)
	}

	if interfaces.ComputeArtifactID(data) != id {
		return nil, fmt.Errorf("IPFS artifact %s failed content verification", id.String())
	}

	s.log.Debug("fetched artifact from IPFS",
		slog.String("path", path),
		slog.String("artifact", id.String()),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store writes an artifact into the node's file system at the path
// Fetch resolves it from.
func (s *IPFSStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	id := interfaces.ComputeArtifactID(data)
	path := s.mfsPath(id, kind)

	if !s.shell.IsUp() {
		return id, interfaces.ErrStoreUnavailable
	}

	err := s.shell.FilesWrite(ctx, path, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return id, fmt.Errorf("could not write artifact to IPFS: %w", err)
	}

	s.log.Debug("stored artifact in IPFS",
		slog.String("path", path),
		slog.String("artifact", id.String()),
		slog.String("kind", kind.String()))

	return id, nil
}

// Available checks if the IPFS node is reachable.
func (s *IPFSStore) Available(ctx context.Context) bool {
	return s.shell.IsUp()
}

// Name returns a unique identifier for this store.
func (s *IPFSStore) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", s.host, s.port)
}

// LocationURI returns the URI that identifies this store.
func (s *IPFSStore) LocationURI() string {
	return s.locationURI
}

func (s *IPFSStore) mfsPath(id interfaces.ArtifactID, kind interfaces.ArtifactKind) string {
	return fmt.Sprintf("/keydir/%s/%s", kind.String(), id.String())
}
