package metrics

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Pipeline tracks the cost of building deck pages.
type Pipeline struct {
	LookupLatency *Histogram
	PriceLatency  *Histogram
	RenderLatency *Histogram

	Builds           atomic.Uint64
	PriceRequests    atomic.Uint64
	PriceErrors      atomic.Uint64
	PriceCacheHits   atomic.Uint64
	PriceCacheMisses atomic.Uint64

	startTime time.Time
}

// NewPipeline creates a pipeline metrics collector.
func NewPipeline() *Pipeline {
	return &Pipeline{
		LookupLatency: NewHistogram(0),
		PriceLatency:  NewHistogram(0),
		RenderLatency: NewHistogram(0),
		startTime:     time.Now(),
	}
}

// PipelineStats is a snapshot of Pipeline.
type PipelineStats struct {
	LookupLatency LatencyStats `json:"lookup_latency"`
	PriceLatency  LatencyStats `json:"price_latency"`
	RenderLatency LatencyStats `json:"render_latency"`

	Builds           uint64  `json:"builds"`
	PriceRequests    uint64  `json:"price_requests"`
	PriceErrors      uint64  `json:"price_errors"`
	PriceCacheHits   uint64  `json:"price_cache_hits"`
	PriceCacheMisses uint64  `json:"price_cache_misses"`
	CacheHitRate     float64 `json:"cache_hit_rate"` // percentage

	Uptime time.Duration `json:"uptime"`
}

// Stats returns a snapshot of the current metrics.
func (m *Pipeline) Stats() PipelineStats {
	hits := m.PriceCacheHits.Load()
	misses := m.PriceCacheMisses.Load()

	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	return PipelineStats{
		LookupLatency:    m.LookupLatency.Stats(),
		PriceLatency:     m.PriceLatency.Stats(),
		RenderLatency:    m.RenderLatency.Stats(),
		Builds:           m.Builds.Load(),
		PriceRequests:    m.PriceRequests.Load(),
		PriceErrors:      m.PriceErrors.Load(),
		PriceCacheHits:   hits,
		PriceCacheMisses: misses,
		CacheHitRate:     hitRate,
		Uptime:           time.Since(m.startTime).Round(time.Second),
	}
}

// MarshalLogObject lets the snapshot be logged with zap.Object.
func (s PipelineStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("builds", s.Builds)
	enc.AddFloat64("lookup_p50_ms", s.LookupLatency.P50)
	enc.AddFloat64("render_p50_ms", s.RenderLatency.P50)
	enc.AddUint64("price_requests", s.PriceRequests)
	enc.AddUint64("price_errors", s.PriceErrors)
	enc.AddFloat64("price_p95_ms", s.PriceLatency.P95)
	enc.AddFloat64("cache_hit_rate", s.CacheHitRate)
	enc.AddDuration("uptime", s.Uptime)
	return nil
}

// Field returns the snapshot as a zap field.
func (m *Pipeline) Field() zap.Field {
	return zap.Object("metrics", m.Stats())
}
