package receipt

import (
	"context"
	"log/slog"
	"path"
	"time"
)

// Endpoint is the raw call to the analysis service.
type Endpoint interface {
	Analyze(ctx context.Context, image []byte, filename, contentType string) (*Analysis, error)
}

// Observer receives the outcome of every analysis for metrics.
type Observer func(outcome string, elapsed time.Duration)

// Outcomes reported to an Observer.
const (
	OutcomeCached   = "cached"
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeInvalid  = "invalid"
)

// Pipeline validates an upload, serves repeated images from the cache,
// archives new images and calls the endpoint.
type Pipeline struct {
	endpoint Endpoint
	cache    Cache
	archive  Archive
	observe  Observer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCache serves and stores successful analyses through c.
func WithCache(c Cache) PipelineOption {
	return func(p *Pipeline) { p.cache = c }
}

// WithArchive uploads every new image to a.
func WithArchive(a Archive) PipelineOption {
	return func(p *Pipeline) { p.archive = a }
}

// WithObserver reports outcomes to fn.
func WithObserver(fn Observer) PipelineOption {
	return func(p *Pipeline) { p.observe = fn }
}

// NewPipeline wraps endpoint.
func NewPipeline(endpoint Endpoint, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{endpoint: endpoint}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs one receipt image through the pipeline. Cache and archive
// failures are logged and do not fail the analysis.
func (p *Pipeline) Analyze(ctx context.Context, image []byte, filename string) (*Analysis, error) {
	start := time.Now()

	contentType, err := DetectImage(image)
	if err != nil {
		p.report(OutcomeInvalid, start)
		return nil, err
	}
	digest := Digest(image)

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, digest)
		if err != nil {
			slog.Warn("Receipt cache lookup failed", "digest", digest, "error", err)
		} else if ok {
			slog.Debug("Receipt analysis served from cache", "digest", digest)
			p.report(OutcomeCached, start)
			return cached, nil
		}
	}

	if p.archive != nil {
		key := digest + path.Ext(filename)
		if err := p.archive.Put(ctx, key, contentType, image); err != nil {
			slog.Warn("Receipt archive upload failed", "key", key, "error", err)
		}
	}

	analysis, err := p.endpoint.Analyze(ctx, image, filename, contentType)
	if err != nil {
		p.report(OutcomeFailed, start)
		return nil, err
	}
	if analysis.Err() != nil {
		p.report(OutcomeRejected, start)
		return analysis, nil
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, digest, analysis); err != nil {
			slog.Warn("Receipt cache store failed", "digest", digest, "error", err)
		}
	}
	p.report(OutcomeOK, start)
	return analysis, nil
}

func (p *Pipeline) report(outcome string, start time.Time) {
	if p.observe != nil {
		p.observe(outcome, time.Since(start))
	}
}
