// Package scrape fans a set of site adapters out into concurrent producers
// and merges their offer chunks into one serialized consumer.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/futterwatch/futterwatch/internal/offer"
	"github.com/futterwatch/futterwatch/internal/sites"
)

// Consumer receives one chunk at a time. The orchestrator serializes calls,
// so implementations need no locking; a returned error aborts the scan.
type Consumer func(ctx context.Context, chunk []offer.Offer) error

// Orchestrator drives all adapters of a run. The shared chunk channel has
// capacity one: it is the unit of back-pressure, producers beyond one
// in-flight chunk block until the consumer has fully processed the previous
// one.
type Orchestrator struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{logger: logger.With("component", "orchestrator")}
}

// BrandScan runs every adapter's brand scan concurrently and feeds the
// merged chunk stream to consume. An adapter error or panic is isolated:
// it is logged and the remaining adapters keep running. Only a consumer
// error aborts the scan.
func (o *Orchestrator) BrandScan(ctx context.Context, adapters []sites.Adapter, req sites.BrandRequest, consume Consumer) error {
	return o.scan(ctx, adapters, consume, func(ctx context.Context, a sites.Adapter, out chan<- []offer.Offer) error {
		return a.FetchBrandOffers(ctx, req, out)
	})
}

// ReducedScan runs every adapter's discount scan concurrently.
func (o *Orchestrator) ReducedScan(ctx context.Context, adapters []sites.Adapter, brands []string, consume Consumer) error {
	return o.scan(ctx, adapters, consume, func(ctx context.Context, a sites.Adapter, out chan<- []offer.Offer) error {
		return a.FetchReducedOffers(ctx, brands, out)
	})
}

func (o *Orchestrator) scan(
	ctx context.Context,
	adapters []sites.Adapter,
	consume Consumer,
	fetch func(context.Context, sites.Adapter, chan<- []offer.Offer) error,
) error {
	if len(adapters) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan []offer.Offer, 1)

	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(a sites.Adapter) {
			defer wg.Done()
			o.runAdapter(ctx, a, merged, fetch)
		}(adapter)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	var consumeErr error
	for chunk := range merged {
		if consumeErr != nil {
			continue // drain so producers can exit
		}
		if err := consume(ctx, chunk); err != nil {
			consumeErr = fmt.Errorf("consume chunk: %w", err)
			cancel()
		}
	}
	return consumeErr
}

// runAdapter executes one adapter with panic and error isolation.
func (o *Orchestrator) runAdapter(
	ctx context.Context,
	a sites.Adapter,
	out chan<- []offer.Offer,
	fetch func(context.Context, sites.Adapter, chan<- []offer.Offer) error,
) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("adapter panicked", "site", string(a.Site()), "panic", r)
		}
	}()

	if err := fetch(ctx, a, out); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		o.logger.Error("adapter failed", "site", string(a.Site()), "error", err)
	}
}
