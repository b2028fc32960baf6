package http

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync/atomic"

	"studioledger/internal/core"
	"studioledger/internal/finance"
)

const portfolioKey = "portfolio"

// summaryKey identifies one version of a project. Payments and expenses are
// append-only, so their counts pin the ledger; the stores bump UpdatedAt on
// every write. A reader holding an older copy can only hit or fill the entry
// for that older version.
func summaryKey(p core.Project) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%d\x00%s",
		p.CustomerName, p.Location, p.QuotedPrice.Cents,
		len(p.Payments), len(p.Expenses), strings.Join(p.Categories, "\x00"))
	return fmt.Sprintf("%s:%d:%x", p.ID, p.UpdatedAt.UnixNano(), h.Sum64())
}

// summaryFor returns the cached summary for this version of p, computing it
// on a miss.
func (s *Server) summaryFor(ctx context.Context, p core.Project) finance.ProjectSummary {
	key := summaryKey(p)
	if sum, ok := s.summaries.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return sum
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
	sum := finance.Summarize(p, s.thresholds)
	s.summaries.Set(key, sum)
	slog.DebugContext(ctx, "Project summary cached", "component", "cache", "project_id", p.ID)
	return sum
}

// portfolioView serves the rollup from cache, collapsing concurrent misses
// into one store scan.
func (s *Server) portfolioView(ctx context.Context) (PortfolioView, error) {
	if v, ok := s.portfolio.Get(portfolioKey); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return v, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	ch := s.flight.DoChan(portfolioKey, func() (any, error) {
		// Detached from the caller so one cancelled request does not fail
		// every waiter.
		gen := s.portfolioGen.Load()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()
		pf, in, err := s.svc.Portfolio(cctx, s.thresholds)
		if err != nil {
			return PortfolioView{}, err
		}
		v := PortfolioView{Portfolio: pf, Insights: in}
		// A mutation during the scan makes this result stale.
		if s.portfolioGen.Load() == gen {
			s.portfolio.Set(portfolioKey, v)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return PortfolioView{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return PortfolioView{}, fmt.Errorf("build portfolio: %w", res.Err)
		}
		return res.Val.(PortfolioView), nil
	}
}

// invalidate drops the portfolio rollup after a mutation of project id is
// stored. Per-project summaries are keyed by version, so superseded ones are
// never read again and age out of the cache.
func (s *Server) invalidate(id string) {
	s.portfolioGen.Add(1)
	s.flight.Forget(portfolioKey)
	s.portfolio.Delete(portfolioKey)
	atomic.AddInt64(&s.appMetrics.invalidations, 1)
	slog.Debug("Portfolio invalidated", "component", "cache", "project_id", id)
}
