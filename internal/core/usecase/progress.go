package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dkotenko/resume-insight/internal/core/domain"
	"github.com/dkotenko/resume-insight/internal/core/ports"
)

// ProgressHub tracks observers per resume id and feeds each a stream of
// status events until the job reaches a terminal state or the observer
// disconnects.
//
// Delivery is deliberately asymmetric: while a job is pending, each
// observer's own poll loop narrowcasts a processing event to that observer
// only; the terminal event is multicast to every observer of the id in one
// step, after which all their channels close and the registration list for
// that id is cleared.
type ProgressHub struct {
	repo     ports.ResumeRepository
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	observers map[string][]*observer
}

type observer struct {
	events chan domain.ProgressEvent
	done   chan struct{}
	once   sync.Once
}

const observerBuffer = 8

func NewProgressHub(repo ports.ResumeRepository, interval time.Duration, logger *slog.Logger) *ProgressHub {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHub{
		repo:      repo,
		interval:  interval,
		logger:    logger,
		observers: make(map[string][]*observer),
	}
}

// Watch registers an observer and starts its poll loop. cancel removes only
// this observer; siblings watching the same resume keep polling.
func (h *ProgressHub) Watch(ctx context.Context, resumeID string) (<-chan domain.ProgressEvent, func()) {
	obs := &observer{
		events: make(chan domain.ProgressEvent, observerBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.observers[resumeID] = append(h.observers[resumeID], obs)
	h.mu.Unlock()

	cancel := func() {
		obs.once.Do(func() {
			close(obs.done)
		})
		h.mu.Lock()
		if h.detachLocked(resumeID, obs) {
			// Still registered, so no multicast has closed the channel
			// and no poll can push anymore: closing here is safe.
			close(obs.events)
		}
		h.mu.Unlock()
	}

	go h.pollLoop(ctx, resumeID, obs, cancel)
	return obs.events, cancel
}

// NotifyTerminal is the push-side entry point: the completion bus calls it
// when the pipeline reports a terminal state. It runs one poll cycle
// immediately instead of waiting out the interval.
func (h *ProgressHub) NotifyTerminal(ctx context.Context, resumeID string) {
	if _, err := h.pollOnce(ctx, resumeID, nil); err != nil {
		h.logger.Warn("notify_terminal_error", "resume_id", resumeID, "error", err)
	}
}

func (h *ProgressHub) pollLoop(ctx context.Context, resumeID string, obs *observer, cancel func()) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		// Explicit suspend between poll attempts; never busy-wait.
		select {
		case <-ctx.Done():
			cancel()
			return
		case <-obs.done:
			return
		case <-ticker.C:
		}

		terminal, err := h.pollOnce(ctx, resumeID, obs)
		if err != nil {
			h.logger.Error("progress_poll_error", "resume_id", resumeID, "error", err)
			cancel()
			return
		}
		if terminal {
			return
		}
	}
}

// pollOnce reads the job record once. On a terminal record it multicasts the
// event to every observer of the id and clears the registration; while the
// job is pending it pushes a processing event to the polling observer alone.
// A nil polling observer (push path) emits nothing for pending jobs.
func (h *ProgressHub) pollOnce(ctx context.Context, resumeID string, polling *observer) (bool, error) {
	resume, err := h.repo.GetByID(ctx, resumeID)
	if err != nil {
		if domain.IsKind(err, domain.ErrResumeNotFound) {
			// The record may simply not exist yet; keep polling.
			return false, nil
		}
		return false, err
	}

	switch {
	case resume.Summary != "" && resume.Status == domain.StatusComplete:
		h.broadcastAndClear(resumeID, domain.ProgressEvent{
			Status:  domain.StatusComplete,
			Summary: resume.Summary,
		})
		return true, nil
	case resume.Status == domain.StatusFailed:
		h.broadcastAndClear(resumeID, domain.ProgressEvent{
			Status: domain.StatusFailed,
			Error:  resume.Error,
		})
		return true, nil
	default:
		if polling != nil {
			h.pushRegistered(resumeID, polling, domain.ProgressEvent{Status: domain.StatusProcessing})
		}
		return false, nil
	}
}

// broadcastAndClear delivers the terminal event to every registered observer
// of the id exactly once, closes their channels and empties the registration
// list in a single step.
func (h *ProgressHub) broadcastAndClear(resumeID string, event domain.ProgressEvent) {
	h.mu.Lock()
	targets := h.observers[resumeID]
	delete(h.observers, resumeID)
	h.mu.Unlock()

	for _, obs := range targets {
		select {
		case <-obs.done:
			// Disconnected while the terminal event was in flight; it must
			// not receive a push anymore.
		default:
			sendTerminal(obs, event)
		}
		obs.once.Do(func() {
			close(obs.done)
		})
		close(obs.events)
	}
}

// sendTerminal enqueues the terminal event without loss. Progress ticks are
// droppable, the terminal event is not: a slow observer may have a buffer
// full of processing ticks, so the oldest tick is evicted until the terminal
// event fits. It is always the last value before the channel closes.
func sendTerminal(obs *observer, event domain.ProgressEvent) {
	for {
		select {
		case obs.events <- event:
			return
		default:
		}
		select {
		case <-obs.events:
			// Stale processing tick; the terminal event supersedes it.
		default:
		}
	}
}

// detachLocked removes the observer from the registration list. It reports
// whether the observer was still registered, i.e. whether the caller now owns
// closing its channel. Callers must hold h.mu.
func (h *ProgressHub) detachLocked(resumeID string, target *observer) bool {
	list := h.observers[resumeID]
	for i, obs := range list {
		if obs == target {
			h.observers[resumeID] = append(list[:i], list[i+1:]...)
			if len(h.observers[resumeID]) == 0 {
				delete(h.observers, resumeID)
			}
			return true
		}
	}
	return false
}

// pushRegistered delivers one event to an observer if and only if it is
// still registered. Holding the mutex across the send means no channel can
// close mid-push: detaching and closing happen under the same lock.
func (h *ProgressHub) pushRegistered(resumeID string, target *observer, event domain.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	registered := false
	for _, obs := range h.observers[resumeID] {
		if obs == target {
			registered = true
			break
		}
	}
	if !registered {
		return
	}

	select {
	case target.events <- event:
	default:
		// Observer is not draining; dropping a progress tick is harmless
		// because the next poll repeats it and terminal events are the
		// last thing sent before close.
	}
}
