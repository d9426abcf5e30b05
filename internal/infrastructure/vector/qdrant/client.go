package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dkotenko/resume-insight/internal/core/domain"
)

// Client stores resume chunk embeddings in a Qdrant collection. Every point
// carries the owning resume id in its payload so queries and purges can be
// scoped to a single resume.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// IndexChunks upserts one point per chunk and returns the assigned chunk ids
// in input order. The point id doubles as the chunk id.
func (c *Client) IndexChunks(ctx context.Context, resumeID string, chunks []string, vectors [][]float32) ([]string, error) {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil, nil
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return nil, err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	chunkIDs := make([]string, 0, len(chunks))
	points := make([]point, 0, len(chunks))
	for i := range chunks {
		chunkID := uuid.NewString()
		chunkIDs = append(chunkIDs, chunkID)
		points = append(points, point{
			ID:     chunkID,
			Vector: vectors[i],
			Payload: map[string]any{
				"resume_id":    resumeID,
				"chunk_id":     chunkID,
				"chunk_index":  i,
				"chunk_length": utf8.RuneCountInString(chunks[i]),
				"text":         chunks[i],
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert"); err != nil {
		return nil, err
	}
	return chunkIDs, nil
}

// QueryByResume returns up to topK chunk texts nearest to the query vector,
// restricted to the given resume, in the similarity order Qdrant reports.
func (c *Client) QueryByResume(ctx context.Context, resumeID string, queryVector []float32, topK int) ([]string, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": "resume_id",
					"match": map[string]any{
						"value": resumeID,
					},
				},
			},
		},
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, getStringPayload(r.Payload, "text"))
	}
	return out, nil
}

// DeleteByResume purges every chunk entry owned by the resume.
func (c *Client) DeleteByResume(ctx context.Context, resumeID string) error {
	reqBody := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": "resume_id",
					"match": map[string]any{
						"value": resumeID,
					},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPost, url, reqBody, nil, "delete")
}

func (c *Client) do(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant "+operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := fmt.Errorf("status %s", resp.Status)
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			statusErr = fmt.Errorf("status %s: %s", resp.Status, msg)
		}
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant "+operation, statusErr)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, encodeJSON(reqBody))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ensure collection", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if it already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		statusErr := fmt.Errorf("status %s", resp.Status)
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			statusErr = fmt.Errorf("status %s: %s", resp.Status, msg)
		}
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant ensure collection", statusErr)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func encodeJSON(payload any) *bytes.Reader {
	body, _ := json.Marshal(payload)
	return bytes.NewReader(body)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
