package domain

import "time"

type ResumeStatus string

const (
	StatusPending    ResumeStatus = "pending"
	StatusProcessing ResumeStatus = "processing"
	StatusComplete   ResumeStatus = "complete"
	StatusFailed     ResumeStatus = "failed"
)

// Resume is the lifecycle record of one submitted document. ID is assigned at
// submission and never changes; it is the correlation key across the job store,
// the vector index and progress subscriptions.
type Resume struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	RawText     string       `json:"raw_text,omitempty"`
	ChunkIDs    []string     `json:"chunk_ids,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Status      ResumeStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Terminal reports whether the status admits no further transitions.
func (s ResumeStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// ProgressEvent is one status push to a progress observer.
type ProgressEvent struct {
	Status  ResumeStatus `json:"status"`
	Summary string       `json:"summary,omitempty"`
	Error   string       `json:"error,omitempty"`
}
