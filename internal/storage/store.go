// Package storage provides the durable tier of the statements engine: a
// SeriesStore interface with sqlite, filesystem, and S3-compatible adapters.
// The durable store is the source of truth; the in-process cache above it is
// an optimization only.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aristath/statements/internal/domain"
)

// SeriesStore persists statement series by key. Implementations must be safe
// for concurrent use. Absence is not an error: Get returns ok=false when no
// series exists for the key.
type SeriesStore interface {
	Get(ctx context.Context, key domain.Key) (*domain.StatementSeries, bool, error)
	Put(ctx context.Context, key domain.Key, series *domain.StatementSeries) error
}

// BlobStore is a minimal byte-level object store. The filesystem and S3
// adapters implement this; blobSeriesStore layers the series codec on top.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Put(ctx context.Context, name string, data []byte) error
}

// NewBlobSeriesStore wraps a BlobStore with the JSON series codec. One object
// per key, named TICKER_statementtype.json.
func NewBlobSeriesStore(blobs BlobStore) SeriesStore {
	return &blobSeriesStore{blobs: blobs}
}

type blobSeriesStore struct {
	blobs BlobStore
}

func (s *blobSeriesStore) Get(ctx context.Context, key domain.Key) (*domain.StatementSeries, bool, error) {
	data, ok, err := s.blobs.Get(ctx, objectName(key))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", domain.ErrStorageRead, key, err)
	}
	if !ok {
		return nil, false, nil
	}
	var series domain.StatementSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, false, fmt.Errorf("%w: %s: decode: %v", domain.ErrStorageRead, key, err)
	}
	return &series, true, nil
}

func (s *blobSeriesStore) Put(ctx context.Context, key domain.Key, series *domain.StatementSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("%w: %s: encode: %v", domain.ErrStorageWrite, key, err)
	}
	if err := s.blobs.Put(ctx, objectName(key), data); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageWrite, key, err)
	}
	return nil
}

func objectName(key domain.Key) string {
	return fmt.Sprintf("%s_%s.json", key.Ticker, key.Type)
}
