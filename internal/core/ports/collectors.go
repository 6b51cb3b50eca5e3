package ports

import (
	"context"

	"rtcscope/internal/core/domain"
)

// Collector supplies one raw snapshot of canonical records per call. A
// collector typically fronts a single peer connection of the underlying
// media engine; the monitor pulls it once per cycle.
type Collector interface {
	ID() domain.CollectorID
	Label() string
	Collect(ctx context.Context) ([]domain.KindRecord, error)
	Close() error
}
