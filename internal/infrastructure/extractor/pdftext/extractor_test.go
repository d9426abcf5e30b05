package pdftext

import (
	"context"
	"testing"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

func TestPreprocessCollapsesPageArtifacts(t *testing.T) {
	in := "Senior engineer\nPage 1\nGo, Postgres\n\n\nKubernetes\n"
	got := Preprocess(in)
	want := "Senior engineer\nGo, Postgres\nKubernetes"
	if got != want {
		t.Fatalf("Preprocess() = %q, want %q", got, want)
	}
}

func TestPreprocessTrimsWhitespace(t *testing.T) {
	if got := Preprocess("  \n text \n "); got != "text" {
		t.Fatalf("Preprocess() = %q, want %q", got, "text")
	}
}

func TestExtractRejectsNonPDFBytes(t *testing.T) {
	_, err := New().Extract(context.Background(), []byte("plain text, not a pdf"))
	if err == nil {
		t.Fatalf("expected error for non-pdf bytes")
	}
	if !domain.IsKind(err, domain.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestExtractHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, []byte("%PDF-1.4"))
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
