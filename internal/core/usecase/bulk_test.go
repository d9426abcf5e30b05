package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

type ingestorFake struct {
	mu        sync.Mutex
	seen      []string
	inFlight  int
	peak      int
	failNames map[string]bool
}

func (f *ingestorFake) Run(_ context.Context, filename string, _ []byte) (*domain.Resume, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.seen = append(f.seen, filename)
	fail := f.failNames[filename]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if fail {
		return nil, domain.WrapError(domain.ErrMalformedDocument, "parse pdf", errors.New("corrupt"))
	}
	return &domain.Resume{ID: "id-" + filename}, nil
}

func writeBulkDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestBulkRunIngestsOnlyPDFs(t *testing.T) {
	dir := writeBulkDir(t, "alpha.pdf", "beta.PDF", "notes.txt", "gamma.docx")
	ingestor := &ingestorFake{}
	uc := NewBulkIngestUseCase(ingestor, dir, 2, nil)

	ids, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sort.Strings(ids)
	want := []string{"id-alpha.pdf", "id-beta.PDF"}
	if len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for _, name := range ingestor.seen {
		if name == "notes.txt" || name == "gamma.docx" {
			t.Fatalf("non-pdf %s must be skipped", name)
		}
	}
}

func TestBulkRunOneCorruptAmongManySucceedsForRest(t *testing.T) {
	names := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		names = append(names, fmt.Sprintf("resume-%d.pdf", i))
	}
	dir := writeBulkDir(t, names...)
	ingestor := &ingestorFake{failNames: map[string]bool{"resume-3.pdf": true}}
	uc := NewBulkIngestUseCase(ingestor, dir, 4, nil)

	ids, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("a per-document failure must not fail the batch: %v", err)
	}
	if len(ids) != 7 {
		t.Fatalf("got %d successful ids, want 7", len(ids))
	}
	for _, id := range ids {
		if id == "id-resume-3.pdf" {
			t.Fatalf("failed document must not report an id")
		}
	}
}

func TestBulkRunBoundsConcurrency(t *testing.T) {
	names := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		names = append(names, fmt.Sprintf("cv-%d.pdf", i))
	}
	dir := writeBulkDir(t, names...)
	ingestor := &ingestorFake{}
	uc := NewBulkIngestUseCase(ingestor, dir, 3, nil)

	if _, err := uc.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ingestor.peak > 3 {
		t.Fatalf("peak concurrency %d exceeds pool size 3", ingestor.peak)
	}
	if len(ingestor.seen) != 12 {
		t.Fatalf("all 12 documents must be processed, got %d", len(ingestor.seen))
	}
}

func TestBulkRunMissingDirectoryFails(t *testing.T) {
	uc := NewBulkIngestUseCase(&ingestorFake{}, "/does/not/exist", 2, nil)
	if _, err := uc.Run(context.Background()); err == nil {
		t.Fatalf("unreadable directory must surface an error")
	}
}
