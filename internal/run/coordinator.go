// Package run coordinates one full scan: adapter fan-out, chunked
// persistence, matching, and alert delivery.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/futterwatch/futterwatch/internal/config"
	"github.com/futterwatch/futterwatch/internal/match"
	"github.com/futterwatch/futterwatch/internal/offer"
	"github.com/futterwatch/futterwatch/internal/scrape"
	"github.com/futterwatch/futterwatch/internal/sink"
	"github.com/futterwatch/futterwatch/internal/sites"
)

// Request describes one run. A nil brand list scans only the built-in
// quality brands.
type Request struct {
	WatchedBrands        []string
	PriceCeilingPerKg    float64
	IncludeDefaultBrands bool
	MaxPages             int
	ReducedOnly          bool
}

// Summary is the run's final report.
type Summary struct {
	Total       int
	NewProducts int
	OnSale      int
	AlertsSent  int
}

// State tracks whether a run is active. It replaces a process-global flag:
// the coordinator owns one instance and hands it to status collaborators.
type State struct {
	mu        sync.Mutex
	active    bool
	startedAt time.Time
}

func (s *State) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return offer.ErrRunActive
	}
	s.active = true
	s.startedAt = time.Now()
	return nil
}

func (s *State) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Active reports whether a run is in progress and since when.
func (s *State) Active() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.startedAt
}

// Coordinator wires the orchestrator, the matching engine, and the sinks
// into one run pipeline.
type Coordinator struct {
	adapters []sites.Adapter
	orch     *scrape.Orchestrator
	sink     sink.Sink
	alerter  sink.Alerter
	cfg      *config.Config
	logger   *slog.Logger
	state    State
}

func NewCoordinator(adapters []sites.Adapter, orch *scrape.Orchestrator, s sink.Sink, a sink.Alerter, cfg *config.Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		adapters: adapters,
		orch:     orch,
		sink:     s,
		alerter:  a,
		cfg:      cfg,
		logger:   logger.With("component", "coordinator"),
	}
}

// State exposes the run-state handle for status collaborators.
func (c *Coordinator) State() *State { return &c.state }

// Run executes one scan end to end: brand scan (unless reduced-only), then
// the discount scan, each chunk persisted as it arrives, then matching and
// alerting over the merged offer set. The reduced-scan version of an offer
// replaces the brand-scan version so discount detail wins on collision.
func (c *Coordinator) Run(ctx context.Context, req Request) (Summary, error) {
	var summary Summary
	if err := c.state.begin(); err != nil {
		return summary, err
	}
	defer c.state.end()

	started := time.Now()
	c.logger.Info("run started",
		"brands", len(req.WatchedBrands),
		"ceiling", req.PriceCeilingPerKg,
		"reducedOnly", req.ReducedOnly,
		"sites", len(c.adapters))

	merged := make(map[string]offer.Offer)
	consume := func(ctx context.Context, chunk []offer.Offer) error {
		kept := chunk[:0]
		for _, o := range chunk {
			if !o.Valid() {
				c.logger.Debug("invalid offer dropped", "id", o.ExternalID)
				continue
			}
			kept = append(kept, o)
		}
		if len(kept) == 0 {
			return nil
		}

		res, err := c.sink.StoreChunk(ctx, kept)
		if err != nil {
			return fmt.Errorf("store chunk: %w", err)
		}
		summary.NewProducts += res.NewProducts
		for _, o := range kept {
			merged[o.ExternalID] = o
		}
		return nil
	}

	if !req.ReducedOnly {
		brandReq := sites.BrandRequest{
			Brands:               req.WatchedBrands,
			MaxPricePerKg:        req.PriceCeilingPerKg,
			MaxPages:             req.MaxPages,
			IncludeDefaultBrands: req.IncludeDefaultBrands,
		}
		if err := c.orch.BrandScan(ctx, c.adapters, brandReq, consume); err != nil {
			return summary, err
		}
	}
	if err := c.orch.ReducedScan(ctx, c.adapters, req.WatchedBrands, consume); err != nil {
		return summary, err
	}

	offers := make([]offer.Offer, 0, len(merged))
	for _, o := range merged {
		offers = append(offers, o)
		if o.IsOnSale {
			summary.OnSale++
		}
	}
	summary.Total = len(offers)

	results := match.Cheapest(offers)
	c.logger.Info("matching done", "offers", len(offers), "results", len(results))

	if c.alerter == nil {
		c.logger.Info("skipping notifications", "reason", offer.ErrNoAlertRoute)
	} else {
		pref := sink.AlertPreference{
			MaxPricePerKg: req.PriceCeilingPerKg,
			Brands:        req.WatchedBrands,
		}
		for _, res := range results {
			delivered, err := c.alerter.Alert(ctx, res, pref)
			if err != nil {
				c.logger.Warn("alert failed", "matchKey", res.MatchKey, "error", err)
				continue
			}
			if delivered {
				summary.AlertsSent++
			}
		}
	}

	c.logger.Info("run finished",
		"total", summary.Total,
		"new", summary.NewProducts,
		"onSale", summary.OnSale,
		"alerts", summary.AlertsSent,
		"duration", time.Since(started).Round(time.Second))
	return summary, nil
}
