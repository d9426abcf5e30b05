package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

type repoFake struct {
	mu          sync.Mutex
	created     *domain.Resume
	createErr   error
	chunkIDs    []string
	chunkErr    error
	summary     string
	completeErr error
	statusCalls []statusCall
	records     map[string]*domain.Resume
}

type statusCall struct {
	status domain.ResumeStatus
	errMsg string
}

func (f *repoFake) Create(_ context.Context, resume *domain.Resume) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyResume := *resume
	f.created = &copyResume
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[id]; ok {
		copyResume := *rec
		return &copyResume, nil
	}
	return nil, domain.WrapError(domain.ErrResumeNotFound, "get resume", errors.New(id))
}

func (f *repoFake) SetChunkIDs(_ context.Context, _ string, chunkIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chunkErr != nil {
		return f.chunkErr
	}
	f.chunkIDs = chunkIDs
	return nil
}

func (f *repoFake) CompleteWithSummary(_ context.Context, _ string, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.summary = summary
	return nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.ResumeStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *repoFake) List(context.Context) ([]domain.Resume, error) { return nil, nil }

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors  [][]float32
	embedErr error
	queryErr error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{0.5}, nil
}

type indexFake struct {
	mu        sync.Mutex
	chunkIDs  []string
	indexErr  error
	queryErr  error
	retrieved []string
	deleted   []string
	queried   struct {
		resumeID string
		topK     int
	}
}

func (f *indexFake) IndexChunks(_ context.Context, _ string, chunks []string, _ [][]float32) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = f.chunkIDs[i]
	}
	return ids, nil
}

func (f *indexFake) QueryByResume(_ context.Context, resumeID string, _ []float32, topK int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.queried.resumeID = resumeID
	f.queried.topK = topK
	return f.retrieved, nil
}

func (f *indexFake) DeleteByResume(_ context.Context, resumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, resumeID)
	return nil
}

type summarizerFake struct {
	mu      sync.Mutex
	summary string
	err     error
	got     []string
}

func (f *summarizerFake) Summarize(_ context.Context, chunks []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.got = chunks
	return f.summary, nil
}

type busFake struct {
	mu        sync.Mutex
	published []string
}

func (f *busFake) PublishResumeCompleted(_ context.Context, resumeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, resumeID)
	return nil
}

func (f *busFake) SubscribeResumeCompleted(context.Context, func(context.Context, string)) error {
	return nil
}

func newIngestFixture() (*IngestResumeUseCase, *repoFake, *indexFake, *summarizerFake, *busFake) {
	repo := &repoFake{}
	index := &indexFake{chunkIDs: []string{"c1", "c2"}, retrieved: []string{"skills chunk", "experience chunk"}}
	summ := &summarizerFake{summary: "five clean sentences"}
	bus := &busFake{}
	uc := NewIngestResumeUseCase(
		repo,
		&extractorFake{text: "extracted resume text"},
		&chunkerFake{chunks: []string{"extracted r", "esume text"}},
		&embedderFake{},
		index,
		summ,
		bus,
		"Summarize this resume skills",
		3,
		nil,
	)
	return uc, repo, index, summ, bus
}

func TestRunHappyPathWalksEveryStage(t *testing.T) {
	uc, repo, index, summ, bus := newIngestFixture()

	resume, err := uc.Run(context.Background(), "cv.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if repo.created == nil || repo.created.Status != domain.StatusProcessing {
		t.Fatalf("record must be created with status=processing before summarization, got %+v", repo.created)
	}
	if repo.created.RawText != "extracted resume text" {
		t.Fatalf("raw text not persisted: %q", repo.created.RawText)
	}
	if len(repo.chunkIDs) != 2 || repo.chunkIDs[0] != "c1" {
		t.Fatalf("chunk ids not persisted in index order: %v", repo.chunkIDs)
	}
	if index.queried.resumeID != resume.ID || index.queried.topK != 3 {
		t.Fatalf("retrieval must be scoped to own chunks with top_k=3, got %+v", index.queried)
	}
	if len(summ.got) != 2 || summ.got[0] != "skills chunk" {
		t.Fatalf("summarizer must receive retrieved chunks in order: %v", summ.got)
	}
	if repo.summary != "five clean sentences" {
		t.Fatalf("summary not persisted: %q", repo.summary)
	}
	if resume.Status != domain.StatusComplete || resume.Summary != "five clean sentences" {
		t.Fatalf("returned resume not complete: %+v", resume)
	}
	if len(bus.published) != 1 || bus.published[0] != resume.ID {
		t.Fatalf("completion not published: %v", bus.published)
	}
}

func TestRunExtractionFailureCreatesNoRecord(t *testing.T) {
	uc, repo, _, _, _ := newIngestFixture()
	uc.extractor = &extractorFake{err: domain.WrapError(domain.ErrMalformedDocument, "parse pdf", errors.New("bad xref"))}

	_, err := uc.Run(context.Background(), "cv.pdf", []byte("junk"))
	if !domain.IsKind(err, domain.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("no record may exist before extraction succeeds")
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("nothing to mark failed, got %v", repo.statusCalls)
	}
}

func TestRunIndexFailureMarksJobFailed(t *testing.T) {
	uc, repo, index, _, bus := newIngestFixture()
	index.indexErr = domain.WrapError(domain.ErrIndexUnavailable, "qdrant upsert", errors.New("connection refused"))

	_, err := uc.Run(context.Background(), "cv.pdf", []byte("%PDF"))
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusFailed {
		t.Fatalf("job must be marked failed, got %v", repo.statusCalls)
	}
	if repo.statusCalls[0].errMsg == "" {
		t.Fatalf("failure reason must be recorded")
	}
	if len(repo.chunkIDs) != 0 {
		t.Fatalf("chunk ids must not be persisted when indexing failed")
	}
	if len(bus.published) != 1 {
		t.Fatalf("terminal failure should be pushed to observers, got %v", bus.published)
	}
	if len(index.deleted) != 1 {
		t.Fatalf("failed job must purge its index entries, got %v", index.deleted)
	}
}

func TestRunSummarizationFailureLeavesChunksIndexed(t *testing.T) {
	uc, repo, _, summ, _ := newIngestFixture()
	summ.err = domain.WrapError(domain.ErrSummarizationFailed, "generate summary", errors.New("model gone"))

	_, err := uc.Run(context.Background(), "cv.pdf", []byte("%PDF"))
	if !domain.IsKind(err, domain.ErrSummarizationFailed) {
		t.Fatalf("expected ErrSummarizationFailed, got %v", err)
	}
	if len(repo.chunkIDs) != 2 {
		t.Fatalf("indexing already succeeded and its ids must stay persisted")
	}
	if repo.summary != "" {
		t.Fatalf("summary must stay empty on failure")
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusFailed {
		t.Fatalf("job must be marked failed, got %v", repo.statusCalls)
	}
}

func TestRunEmptyTextSkipsIndexing(t *testing.T) {
	uc, repo, _, summ, _ := newIngestFixture()
	uc.extractor = &extractorFake{text: ""}
	uc.chunker = &chunkerFake{chunks: nil}

	resume, err := uc.Run(context.Background(), "cv.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resume.ChunkIDs) != 0 {
		t.Fatalf("no chunks expected for empty text")
	}
	if repo.summary != summ.summary {
		t.Fatalf("summary still produced from empty retrieval context")
	}
}
