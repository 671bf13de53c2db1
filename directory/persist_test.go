package directory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/interfaces"
)

// memoryStore is a throwaway in-process ArtifactStore for exercising
// session persistence without touching a real backend.
type memoryStore struct {
	artifacts map[interfaces.ArtifactID][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{artifacts: make(map[interfaces.ArtifactID][]byte)}
}

func (s *memoryStore) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	data, ok := s.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrArtifactNotFound, id.String())
	}
	return data, nil
}

func (s *memoryStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	id := interfaces.ComputeArtifactID(data)
	s.artifacts[id] = data
	return id, nil
}

func (s *memoryStore) Available(ctx context.Context) bool { return true }

func (s *memoryStore) Name() string { return "memory" }

func (s *memoryStore) LocationURI() string { return "memory://" }

func TestSaveSessionRequiresAuthentication(t *testing.T) {
	s, _ := newTestSession()

	_, err := s.SaveSession(context.Background(), newMemoryStore())
	require.ErrorIs(t, err, interfaces.ErrSession)
}

func TestSaveResumeRoundTrip(t *testing.T) {
	s, transport := newTestSession()
	loginTestSession(t, s, transport)
	store := newMemoryStore()

	id, err := s.SaveSession(context.Background(), store)
	require.NoError(t, err)

	resumed, err := ResumeSession(context.Background(), transport, nil, store, id)
	require.NoError(t, err)

	assert.True(t, resumed.Authenticated())
	assert.Equal(t, "ada", resumed.Username())
	assert.Nil(t, resumed.User(), "resumed sessions carry no record until the next lookup")

	// Privileged calls reuse the stored token.
	transport.On("RevokeKey", mock.Anything, interfaces.SessionToken("tok-1"), interfaces.KeyID("aabb")).
		Return(nil).Once()
	require.NoError(t, resumed.RevokeKey(context.Background(), "aabb"))
	transport.AssertExpectations(t)
}

func TestResumeMissingArtifact(t *testing.T) {
	_, transport := newTestSession()

	_, err := ResumeSession(context.Background(), transport, nil, newMemoryStore(), interfaces.ComputeArtifactID([]byte("nothing")))
	require.ErrorIs(t, err, interfaces.ErrArtifactNotFound)
}

func TestResumeCorruptState(t *testing.T) {
	_, transport := newTestSession()
	store := newMemoryStore()

	id, err := store.Store(context.Background(), []byte("{not json"), interfaces.SessionArtifact)
	require.NoError(t, err)

	_, err = ResumeSession(context.Background(), transport, nil, store, id)
	require.ErrorIs(t, err, interfaces.ErrSession)
}

func TestResumeIncompleteState(t *testing.T) {
	_, transport := newTestSession()
	store := newMemoryStore()

	id, err := store.Store(context.Background(), []byte(`{"username":"ada"}`), interfaces.SessionArtifact)
	require.NoError(t, err)

	_, err = ResumeSession(context.Background(), transport, nil, store, id)
	require.ErrorIs(t, err, interfaces.ErrSession)
}
