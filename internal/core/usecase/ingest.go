package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dkotenko/resume-insight/internal/core/domain"
	"github.com/dkotenko/resume-insight/internal/core/ports"
)

// IngestResumeUseCase runs the whole pipeline for one document:
// extract -> persist metadata -> chunk -> embed -> index -> retrieve ->
// summarize -> complete. Stages are strictly sequential; the first failing
// stage marks the job failed and aborts the rest.
type IngestResumeUseCase struct {
	repo       ports.ResumeRepository
	extractor  ports.TextExtractor
	chunker    ports.Chunker
	embedder   ports.Embedder
	index      ports.VectorIndex
	summarizer ports.Summarizer
	bus        ports.CompletionBus

	summaryQuery string
	summaryTopK  int
	logger       *slog.Logger
}

func NewIngestResumeUseCase(
	repo ports.ResumeRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	summarizer ports.Summarizer,
	bus ports.CompletionBus,
	summaryQuery string,
	summaryTopK int,
	logger *slog.Logger,
) *IngestResumeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if summaryTopK <= 0 {
		summaryTopK = 3
	}
	return &IngestResumeUseCase{
		repo:         repo,
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		index:        index,
		summarizer:   summarizer,
		bus:          bus,
		summaryQuery: summaryQuery,
		summaryTopK:  summaryTopK,
		logger:       logger,
	}
}

func (uc *IngestResumeUseCase) Run(ctx context.Context, filename string, data []byte) (*domain.Resume, error) {
	text, err := uc.extractor.Extract(ctx, data)
	if err != nil {
		// No job record exists before extraction succeeds, so there is
		// nothing to mark failed yet.
		return nil, fmt.Errorf("extract text: %w", err)
	}

	resume, err := uc.createRecord(ctx, filename, text)
	if err != nil {
		return nil, err
	}

	if err := uc.processStages(ctx, resume); err != nil {
		uc.markFailed(ctx, resume.ID, err)
		return nil, err
	}

	uc.publishCompletion(ctx, resume.ID)
	return resume, nil
}

// createRecord persists the job with status=processing immediately after
// extraction so clients can poll by id before summarization finishes.
func (uc *IngestResumeUseCase) createRecord(ctx context.Context, filename, text string) (*domain.Resume, error) {
	now := time.Now().UTC()
	resume := &domain.Resume{
		ID:          uuid.NewString(),
		Filename:    filename,
		RawText:     text,
		Status:      domain.StatusProcessing,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, resume); err != nil {
		return nil, fmt.Errorf("create resume metadata: %w", err)
	}
	return resume, nil
}

func (uc *IngestResumeUseCase) processStages(ctx context.Context, resume *domain.Resume) error {
	chunkIDs, err := uc.indexChunks(ctx, resume.ID, uc.chunker.Split(resume.RawText))
	if err != nil {
		return err
	}
	resume.ChunkIDs = chunkIDs

	contextChunks, err := uc.retrieveContext(ctx, resume.ID)
	if err != nil {
		return err
	}

	summary, err := uc.summarizer.Summarize(ctx, contextChunks)
	if err != nil {
		return fmt.Errorf("summarize resume: %w", err)
	}

	if err := uc.repo.CompleteWithSummary(ctx, resume.ID, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	resume.Summary = summary
	resume.Status = domain.StatusComplete
	return nil
}

func (uc *IngestResumeUseCase) indexChunks(ctx context.Context, resumeID string, chunks []string) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	chunkIDs, err := uc.index.IndexChunks(ctx, resumeID, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	// Chunk ids are recorded only after the index write succeeded, so a
	// crash mid-embedding never leaves a partial id list behind.
	if err := uc.repo.SetChunkIDs(ctx, resumeID, chunkIDs); err != nil {
		return nil, fmt.Errorf("persist chunk ids: %w", err)
	}
	return chunkIDs, nil
}

// retrieveContext runs the fixed skills query against the job's own chunks.
// Retrieval here serves exactly one purpose, feeding the summarizer; it is
// not a general search API.
func (uc *IngestResumeUseCase) retrieveContext(ctx context.Context, resumeID string) ([]string, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, uc.summaryQuery)
	if err != nil {
		return nil, fmt.Errorf("embed summary query: %w", err)
	}

	chunks, err := uc.index.QueryByResume(ctx, resumeID, queryVector, uc.summaryTopK)
	if err != nil {
		return nil, fmt.Errorf("query resume chunks: %w", err)
	}
	return chunks, nil
}

func (uc *IngestResumeUseCase) markFailed(ctx context.Context, resumeID string, processErr error) {
	if err := uc.repo.UpdateStatus(ctx, resumeID, domain.StatusFailed, processErr.Error()); err != nil {
		uc.logger.Error("mark_failed_error", "resume_id", resumeID, "error", err)
	}
	// Purge whatever made it into the index; a failed job leaves no
	// orphaned vectors behind.
	if err := uc.index.DeleteByResume(ctx, resumeID); err != nil {
		uc.logger.Warn("cleanup_index_error", "resume_id", resumeID, "error", err)
	}
	uc.publishCompletion(ctx, resumeID)
}

// publishCompletion is a best-effort push so observers learn about terminal
// states without waiting for the next poll. Polling remains the guarantee.
func (uc *IngestResumeUseCase) publishCompletion(ctx context.Context, resumeID string) {
	if uc.bus == nil {
		return
	}
	if err := uc.bus.PublishResumeCompleted(ctx, resumeID); err != nil {
		uc.logger.Warn("publish_completion_error", "resume_id", resumeID, "error", err)
	}
}
