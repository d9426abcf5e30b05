package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dkotenko/resume-insight/internal/config"
	"github.com/dkotenko/resume-insight/internal/core/ports"
)

const pdfContentType = "application/pdf"

// WorkbookExporter renders the full job table as a spreadsheet download.
type WorkbookExporter interface {
	WriteWorkbook(ctx context.Context, w io.Writer) error
}

type Router struct {
	cfg      config.Config
	ingestor ports.ResumeIngestor
	bulk     ports.BulkIngestor
	reader   ports.ResumeReader
	notifier ports.ProgressNotifier
	exporter WorkbookExporter
	metrics  http.Handler
}

func NewRouter(
	cfg config.Config,
	ingestor ports.ResumeIngestor,
	bulk ports.BulkIngestor,
	reader ports.ResumeReader,
	notifier ports.ProgressNotifier,
	exporter WorkbookExporter,
	metrics http.Handler,
) *Router {
	return &Router{
		cfg:      cfg,
		ingestor: ingestor,
		bulk:     bulk,
		reader:   reader,
		notifier: notifier,
		exporter: exporter,
		metrics:  metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/resume_upload", rt.uploadResume)
	mux.HandleFunc("/resume_upload_bulk", rt.uploadBulk)
	mux.HandleFunc("/v1/resumes/export", rt.exportResumes)
	mux.HandleFunc("/v1/resumes/", rt.getResumeByID)
	mux.Handle("/ws/resume/", rt.progressSocket())
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueTimeout())
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadResume runs the whole pipeline synchronously: the response carries
// the finished summary, and progress sockets observing the same id see the
// intermediate states in parallel.
func (rt *Router) uploadResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if fileHeader.Header.Get("Content-Type") != pdfContentType {
		writeMessage(w, http.StatusBadRequest, "Only pdfs allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	resume, err := rt.ingestor.Run(r.Context(), fileHeader.Filename, data)
	if err != nil {
		writeMessage(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeData(w, http.StatusOK, map[string]string{
		"resume_id": resume.ID,
		"summary":   resume.Summary,
	})
}

func (rt *Router) uploadBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ids, err := rt.bulk.Run(r.Context())
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, http.StatusCreated, map[string]any{"resume_ids": ids})
}

func (rt *Router) getResumeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/resumes/")
	if id == "" || strings.Contains(id, "/") {
		writeMessage(w, http.StatusBadRequest, "resume id is required")
		return
	}

	resume, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeMessage(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	// The raw extracted text is job-internal; it stays out of the read model.
	resume.RawText = ""
	writeData(w, http.StatusOK, resume)
}

func (rt *Router) exportResumes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rt.exporter == nil {
		writeMessage(w, http.StatusNotFound, "export is not configured")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="resumes.xlsx"`)
	if err := rt.exporter.WriteWorkbook(r.Context(), w); err != nil {
		// Headers are out; the truncated body is all we can signal with.
		slog.Error("export_error", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData wraps a successful payload in the {status, data} envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"status": status,
		"data":   data,
	})
}

// writeMessage wraps a failure in the {status, message} envelope.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status":  status,
		"message": message,
	})
}
