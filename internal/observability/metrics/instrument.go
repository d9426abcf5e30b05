package metrics

import (
	"context"
	"time"

	"github.com/dkotenko/resume-insight/internal/core/domain"
	"github.com/dkotenko/resume-insight/internal/core/ports"
)

// InstrumentedIngestor decorates a pipeline with process counters so both the
// synchronous path and bulk fan-out report through the same series.
type InstrumentedIngestor struct {
	next    ports.ResumeIngestor
	metrics *PipelineMetrics
	service string
}

func NewInstrumentedIngestor(next ports.ResumeIngestor, m *PipelineMetrics, service string) *InstrumentedIngestor {
	return &InstrumentedIngestor{next: next, metrics: m, service: service}
}

func (i *InstrumentedIngestor) Run(ctx context.Context, filename string, data []byte) (*domain.Resume, error) {
	i.metrics.StartResume()
	start := time.Now()

	resume, err := i.next.Run(ctx, filename, data)

	i.metrics.FinishResume(i.service, time.Since(start), err)
	if err == nil && resume != nil {
		i.metrics.ObserveChunks(len(resume.ChunkIDs))
	}
	return resume, err
}
