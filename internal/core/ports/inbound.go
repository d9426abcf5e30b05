package ports

import (
	"context"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

// ResumeIngestor is the inbound contract for the single-document pipeline.
type ResumeIngestor interface {
	Run(ctx context.Context, filename string, data []byte) (*domain.Resume, error)
}

// BulkIngestor fans the pipeline out over a pre-configured directory.
type BulkIngestor interface {
	Run(ctx context.Context) ([]string, error)
}

// ResumeReader is the inbound read model for resume job state.
type ResumeReader interface {
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
}

// ProgressNotifier lets an observer follow one resume until completion.
type ProgressNotifier interface {
	// Watch registers an observer for the resume id. The returned channel is
	// closed on a terminal event, on ctx cancellation or when cancel is
	// called; cancel is idempotent and guarantees no push once it returns.
	Watch(ctx context.Context, resumeID string) (events <-chan domain.ProgressEvent, cancel func())
}
