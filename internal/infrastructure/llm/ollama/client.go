package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/dkotenko/resume-insight/internal/core/domain"
	"github.com/dkotenko/resume-insight/internal/infrastructure/resilience"
)

// Client talks to the Ollama HTTP API. Model invocation is CPU-bound on the
// model host, so all calls go through a bounded worker pool instead of
// fanning out one goroutine per caller.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	pool       *ants.Pool
	executor   *resilience.Executor
}

type Option func(*Client)

func WithResilienceExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL, genModel, embedModel string, workers int, opts ...Option) (*Client, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create model worker pool: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		pool:       pool,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Close() {
	c.pool.Release()
}

// invoke schedules fn on the bounded pool and waits for it. The pool caps the
// number of concurrent model invocations; callers block until a slot frees up.
func (c *Client) invoke(ctx context.Context, operation string, fn func(context.Context) error) error {
	call := func(callCtx context.Context) error {
		done := make(chan error, 1)
		if err := c.pool.Submit(func() {
			done <- fn(callCtx)
		}); err != nil {
			return fmt.Errorf("submit %s to model pool: %w", operation, err)
		}
		return <-done
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.invoke(ctx, "embed", func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embeddings/texts mismatch: %d/%d", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Summarizer struct {
	client *Client
}

func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize joins the retrieved chunks with a blank-line separator, asks the
// generation model for a five-sentence synthesis and returns its output
// verbatim.
func (s *Summarizer) Summarize(ctx context.Context, chunks []string) (string, error) {
	request := map[string]any{
		"model":  s.client.genModel,
		"prompt": buildSummaryPrompt(chunks),
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	err := s.client.invoke(ctx, "summarize", func(callCtx context.Context) error {
		return s.client.postJSON(callCtx, "/api/generate", request, &response, "summarize")
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrSummarizationFailed, "generate summary", err)
	}
	return response.Response, nil
}
