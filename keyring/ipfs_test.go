package keyring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plukevdh/go-keydir/interfaces"
)

// fakeIPFSNode emulates the node RPC endpoints the store uses:
// version for liveness, files/write and files/read for the mutable
// file system.
type fakeIPFSNode struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeIPFSNode() *fakeIPFSNode {
	return &fakeIPFSNode{files: make(map[string][]byte)}
}

func (n *fakeIPFSNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v0/version"):
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Version":"0.29.0","Commit":""}`))

	case strings.HasPrefix(r.URL.Path, "/api/v0/files/write"):
		path := r.URL.Query().Get("arg")
		reader, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		part, err := reader.NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		n.files[path] = data

	case strings.HasPrefix(r.URL.Path, "/api/v0/files/read"):
		path := r.URL.Query().Get("arg")
		data, ok := n.files[path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"Message":"file does not exist","Code":0,"Type":"error"}`))
			return
		}
		w.Write(data)

	default:
		http.Error(w, "unhandled command "+r.URL.Path, http.StatusNotFound)
	}
}

func newTestIPFSStore(t *testing.T) (*IPFSStore, *fakeIPFSNode) {
	t.Helper()

	node := newFakeIPFSNode()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	addr, err := url.Parse(srv.URL)
	require.NoError(t, err)

	store, err := NewIPFSStore(addr.Hostname(), addr.Port(), false, "30s", discardLogger())
	require.NoError(t, err)
	return store, node
}

// TestIPFSStoreRoundTrip pins the store contract: what Store writes,
// Fetch resolves back by artifact ID alone.
func TestIPFSStoreRoundTrip(t *testing.T) {
	store, node := newTestIPFSStore(t)
	ctx := context.Background()

	payload := []byte{0x00, 0xff, 0xfe, 0x80, 0x41}

	id, err := store.Store(ctx, payload, interfaces.KeyArtifact)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeArtifactID(payload), id)

	// The artifact landed at the path Fetch resolves from.
	node.mu.Lock()
	_, ok := node.files["/keydir/keys/"+id.String()]
	node.mu.Unlock()
	require.True(t, ok, "Store must write to the path Fetch reads")

	fetched, err := store.Fetch(ctx, id, interfaces.KeyArtifact)
	require.NoError(t, err)
	require.Equal(t, payload, fetched)
}

func TestIPFSStoreFetchMissing(t *testing.T) {
	store, _ := newTestIPFSStore(t)

	_, err := store.Fetch(context.Background(), interfaces.ComputeArtifactID([]byte("absent")), interfaces.KeyArtifact)
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)
}

// TestIPFSStoreFetchVerifiesContent: MFS paths are mutable, so Fetch
// re-hashes what it reads and refuses content that no longer matches
// the requested ID.
func TestIPFSStoreFetchVerifiesContent(t *testing.T) {
	store, node := newTestIPFSStore(t)
	ctx := context.Background()

	id, err := store.Store(ctx, []byte("honest bytes"), interfaces.KeyArtifact)
	require.NoError(t, err)

	node.mu.Lock()
	node.files["/keydir/keys/"+id.String()] = []byte("tampered bytes")
	node.mu.Unlock()

	_, err = store.Fetch(ctx, id, interfaces.KeyArtifact)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content verification")
}

func TestIPFSStoreKindNamespacing(t *testing.T) {
	store, _ := newTestIPFSStore(t)
	ctx := context.Background()

	data := []byte("session-state")
	id, err := store.Store(ctx, data, interfaces.SessionArtifact)
	require.NoError(t, err)

	_, err = store.Fetch(ctx, id, interfaces.KeyArtifact)
	assert.ErrorIs(t, err, interfaces.ErrArtifactNotFound)

	fetched, err := store.Fetch(ctx, id, interfaces.SessionArtifact)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)
}
