package ports

import (
	"context"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

// ResumeRepository persists and reads resume job state.
type ResumeRepository interface {
	Create(ctx context.Context, resume *domain.Resume) error
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
	SetChunkIDs(ctx context.Context, id string, chunkIDs []string) error
	// CompleteWithSummary sets summary and status=complete. An already
	// complete record is left untouched so status never regresses.
	CompleteWithSummary(ctx context.Context, id string, summary string) error
	UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error
	List(ctx context.Context) ([]domain.Resume, error)
}

// TextExtractor turns a raw PDF byte stream into cleaned plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Chunker splits extracted text into fixed-width segments.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores chunk embeddings and answers similarity queries scoped
// to a single resume.
type VectorIndex interface {
	// IndexChunks assigns a fresh id per chunk and returns the ids in input order.
	IndexChunks(ctx context.Context, resumeID string, chunks []string, vectors [][]float32) ([]string, error)
	QueryByResume(ctx context.Context, resumeID string, queryVector []float32, topK int) ([]string, error)
	// DeleteByResume purges every chunk entry owned by the resume.
	DeleteByResume(ctx context.Context, resumeID string) error
}

// Summarizer produces a natural-language synthesis of retrieved chunks.
type Summarizer interface {
	Summarize(ctx context.Context, chunks []string) (string, error)
}

// CompletionBus propagates terminal pipeline events to progress observers as
// a push optimization. Polling the repository remains the delivery guarantee.
type CompletionBus interface {
	PublishResumeCompleted(ctx context.Context, resumeID string) error
	SubscribeResumeCompleted(ctx context.Context, handler func(context.Context, string)) error
}
