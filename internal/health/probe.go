package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner runs all checkers in parallel under one timeout. Results are
// cached for cacheTTL so a burst of readiness probes does not hammer the
// database; a zero cacheTTL disables caching.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker
	now      func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	cached   []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers, now: time.Now}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	results := p.results(ctx)
	for _, r := range results {
		if !r.Healthy {
			return false, results
		}
	}
	return true, results
}

func (p *ProbeRunner) results(ctx context.Context) []CheckResult {
	p.mu.Lock()
	if p.cacheTTL > 0 && p.cached != nil && p.now().Sub(p.cachedAt) < p.cacheTTL {
		out := append([]CheckResult(nil), p.cached...)
		p.mu.Unlock()
		return out
	}
	p.mu.Unlock()

	results := p.run(ctx)

	p.mu.Lock()
	p.cached = results
	p.cachedAt = p.now()
	p.mu.Unlock()
	return append([]CheckResult(nil), results...)
}

func (p *ProbeRunner) run(ctx context.Context) []CheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	var g errgroup.Group
	for i, c := range p.checkers {
		g.Go(func() error {
			start := time.Now()
			res := c.Check(ctx)
			res.LatencyMS = time.Since(start).Milliseconds()
			if !res.Healthy && res.Error == "" && ctx.Err() != nil {
				res.Error = ctx.Err().Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
