package keyring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plukevdh/go-keydir/interfaces"
)

// MultiStore aggregates several keyring stores. Writes replicate to
// every available store, reads return the first hit. Content
// addressing makes that safe: the same bytes hash to the same ID
// everywhere.
type MultiStore struct {
	stores []interfaces.ArtifactStore
	log    *slog.Logger
}

// NewMultiStore creates a replicated store over the given stores.
func NewMultiStore(stores []interfaces.ArtifactStore, log *slog.Logger) *MultiStore {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStore{
		stores: stores,
		log:    log,
	}
}

// Fetch tries each available store in order and returns the first
// artifact found.
func (m *MultiStore) Fetch(ctx context.Context, id interfaces.ArtifactID, kind interfaces.ArtifactKind) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("keyring store unavailable",
				slog.String("store", store.Name()),
				slog.String("artifact", id.String()))
			continue
		}

		data, err := store.Fetch(ctx, id, kind)
		if err == nil {
			m.log.Info("fetched artifact",
				slog.String("store", store.Name()),
				slog.String("artifact", id.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		m.log.Debug("could not fetch from keyring store",
			slog.String("store", store.Name()),
			slog.String("artifact", id.String()),
			"err", err)
	}

	m.log.Error("no keyring store served the artifact",
		slog.String("artifact", id.String()),
		slog.Int("failedStores", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("%w: no store served %s: %v", interfaces.ErrArtifactNotFound, id.String(), errs)
}

// Store writes to every available store. The write succeeds if at
// least one store accepted the artifact.
func (m *MultiStore) Store(ctx context.Context, data []byte, kind interfaces.ArtifactKind) (interfaces.ArtifactID, error) {
	start := time.Now()
	var result interfaces.ArtifactID
	var success bool
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("keyring store unavailable", slog.String("store", store.Name()))
			continue
		}

		id, err := store.Store(ctx, data, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Debug("could not store to keyring store",
				slog.String("store", store.Name()),
				"err", err)
			continue
		}

		if !success {
			result = id
			success = true
			m.log.Info("stored artifact",
				slog.String("store", store.Name()),
				slog.String("artifact", id.String()),
				slog.Duration("duration", time.Since(start)))
		} else if !result.Equal(id) {
			// Same bytes must hash identically everywhere.
			m.log.Warn("inconsistent artifact IDs across stores",
				slog.String("store", store.Name()),
				slog.String("expected", result.String()),
				slog.String("actual", id.String()))
		}
	}

	if !success {
		m.log.Error("no keyring store accepted the artifact",
			slog.Int("failedStores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return result, fmt.Errorf("no store accepted the artifact: %v", errs)
	}

	return result, nil
}

// Available reports whether any store is reachable.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this store.
func (m *MultiStore) Name() string {
	return "multi-keyring"
}

// LocationURI returns the combined URI of all aggregated stores.
func (m *MultiStore) LocationURI() string {
	locations := make([]string, 0, len(m.stores))
	for _, store := range m.stores {
		locations = append(locations, store.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
