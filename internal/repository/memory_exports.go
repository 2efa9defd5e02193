package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryExportLogRepository keeps export batches in process memory.
type InMemoryExportLogRepository struct {
	mu      sync.Mutex
	batches []ExportBatch
}

func NewInMemoryExportLogRepository() *InMemoryExportLogRepository {
	return &InMemoryExportLogRepository{}
}

var _ ExportLogRepository = (*InMemoryExportLogRepository)(nil)

func (r *InMemoryExportLogRepository) Append(_ context.Context, b ExportBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
	return nil
}

func (r *InMemoryExportLogRepository) ListByWatermark(_ context.Context, watermark time.Time) ([]ExportBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ExportBatch
	for _, b := range r.batches {
		if b.Watermark.Equal(watermark) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SiteID != out[j].SiteID {
			return out[i].SiteID < out[j].SiteID
		}
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}
