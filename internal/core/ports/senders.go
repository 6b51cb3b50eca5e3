package ports

import (
	"context"

	"rtcscope/internal/core/domain"
)

// SampleSink transmits a batch of client samples to a remote consumer.
type SampleSink interface {
	Send(ctx context.Context, batch []*domain.ClientSample) error
	Close() error
}

// MetadataProvider contributes static platform facts to outgoing samples.
type MetadataProvider interface {
	Metadata(ctx context.Context) (*domain.ClientMetadata, error)
}
