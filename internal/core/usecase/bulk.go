package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/dkotenko/resume-insight/internal/core/ports"
)

// BulkIngestUseCase fans the pipeline out over every PDF in a pre-configured
// directory. Fan-out runs through a bounded worker pool; documents are fully
// independent, so one failure never aborts or cancels the others.
type BulkIngestUseCase struct {
	ingestor ports.ResumeIngestor
	dir      string
	workers  int
	logger   *slog.Logger
}

func NewBulkIngestUseCase(ingestor ports.ResumeIngestor, dir string, workers int, logger *slog.Logger) *BulkIngestUseCase {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkIngestUseCase{
		ingestor: ingestor,
		dir:      dir,
		workers:  workers,
		logger:   logger,
	}
}

// Run returns after every fan-out finished, successfully or not. Only the ids
// of successful jobs come back; per-document failures are logged and swallowed.
func (uc *BulkIngestUseCase) Run(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(uc.dir)
	if err != nil {
		return nil, fmt.Errorf("read bulk directory: %w", err)
	}

	pool, err := ants.NewPool(uc.workers)
	if err != nil {
		return nil, fmt.Errorf("create bulk worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu  sync.Mutex
		ids []string
		wg  sync.WaitGroup
	)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		name := entry.Name()
		path := filepath.Join(uc.dir, name)

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			id, err := uc.ingestOne(ctx, name, path)
			if err != nil {
				uc.logger.Error("bulk_ingest_error", "file", name, "error", err)
				return
			}

			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			uc.logger.Error("bulk_submit_error", "file", name, "error", submitErr)
		}
	}

	wg.Wait()
	return ids, nil
}

func (uc *BulkIngestUseCase) ingestOne(ctx context.Context, name, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	resume, err := uc.ingestor.Run(ctx, name, data)
	if err != nil {
		return "", err
	}
	return resume.ID, nil
}
