package keyring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/plukevdh/go-keydir/interfaces"
)

// GitHubStore is a read-only keyring store over a repository of
// published key material, fetching blobs straight from GitHub's Git
// blob API. It is meant for mirroring public keys; writes are
// rejected.
type GitHubStore struct {
	owner       string
	repo        string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// gitHubBlob is a Git blob object as GitHub's API serves it.
type gitHubBlob struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	URL      string `json:"url"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// NewGitHubStore creates a read-only keyring store over owner/repo.
func NewGitHubStore(owner, repo string, log *slog.Logger) *GitHubStore {
	return &GitHubStore{
		owner:       owner,
		repo:        repo,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: fmt.Sprintf("github://%s/%s", owner, repo),
	}
}

// Fetch retrieves a published artifact by blob SHA and verifies that
// the content actually hashes to the requested ID.
func (s *GitHubStore) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	blob, err := s.fetchBlob(ctx, id.String())
	if err != nil {
		return nil, err
	}

	if blob.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected blob encoding: %s", blob.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("could not decode blob content: %w", err)
	}

	if !interfaces.ComputeArtifactID(data).Equal(id) {
		s.log.Warn("artifact hash mismatch",
			slog.String("expected", id.String()),
			slog.String("actual", interfaces.ComputeArtifactID(data).String()))
		return nil, fmt.Errorf("artifact hash mismatch")
	}

	s.log.Debug("fetched artifact from GitHub",
		slog.String("artifact", id.String()),
		slog.Int("size", len(data)))

	return data, nil
}

// Store is not supported; the mirror is read-only.
func (s *GitHubStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	return interfaces.ComputeArtifactID(data), fmt.Errorf("github keyring store is read-only")
}

// Available checks the repository is reachable.
func (s *GitHubStore) Available(ctx context.Context) bool {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s", s.owner, s.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.log.Debug("could not create request", "err", err)
		return false
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("GitHub keyring store unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Debug("GitHub keyring store unavailable", slog.String("status", resp.Status))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (s *GitHubStore) Name() string {
	return fmt.Sprintf("github-%s-%s", s.owner, s.repo)
}

// LocationURI returns the URI that identifies this store.
func (s *GitHubStore) LocationURI() string {
	return s.locationURI
}

func (s *GitHubStore) fetchBlob(ctx context.Context, sha string) (*gitHubBlob, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/git/blobs/%s", s.owner, s.repo, sha)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrArtifactNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	var blob gitHubBlob
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return nil, fmt.Errorf("could not decode blob: %w", err)
	}

	return &blob, nil
}
