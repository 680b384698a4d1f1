// Package fares keeps dynamic flight prices current.
package fares

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/Domenick1991/flightbooking/internal/pricing"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

// Invalidator drops cached search results after prices change.
type Invalidator interface {
	InvalidateFlights(ctx context.Context) error
}

type Repricer struct {
	flights   repository.FlightRepository
	cache     Invalidator
	demandMin float64
	demandMax float64
	now       func() time.Time
	demand    func() float64
}

type RepricerOption func(*Repricer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RepricerOption {
	return func(r *Repricer) {
		r.now = now
	}
}

// WithDemand replaces the simulated demand factor.
func WithDemand(demand func() float64) RepricerOption {
	return func(r *Repricer) {
		r.demand = demand
	}
}

func NewRepricer(flights repository.FlightRepository, cache Invalidator, demandMin, demandMax float64, opts ...RepricerOption) *Repricer {
	if demandMax < demandMin {
		demandMin, demandMax = demandMax, demandMin
	}
	r := &Repricer{
		flights:   flights,
		cache:     cache,
		demandMin: demandMin,
		demandMax: demandMax,
		now:       time.Now,
	}
	r.demand = r.randomDemand
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repricer) randomDemand() float64 {
	return r.demandMin + rand.Float64()*(r.demandMax-r.demandMin)
}

// Sweep reprices every flight that has not departed yet and returns how many
// prices changed. A failure on one flight is logged and the sweep moves on.
func (r *Repricer) Sweep(ctx context.Context) (int, error) {
	now := r.now().UTC()
	upcoming, err := r.flights.ListDepartingAfter(ctx, now)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, f := range upcoming {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		quote := pricing.Compute(pricing.Input{
			BaseCents:      f.BasePriceCents,
			TotalSeats:     f.TotalSeats,
			AvailableSeats: f.AvailableSeats,
			Departure:      f.DepartureTime,
			Now:            now,
			Demand:         r.demand(),
		})
		if quote.PriceCents == f.DynamicPriceCents {
			continue
		}
		if err := r.flights.UpdateDynamicPrice(ctx, f.ID, quote.PriceCents, quote.Reason); err != nil {
			log.Printf("Failed to reprice flight %d: %v", f.ID, err)
			continue
		}
		changed++
	}

	if changed > 0 && r.cache != nil {
		if err := r.cache.InvalidateFlights(ctx); err != nil {
			log.Printf("Failed to invalidate flights cache: %v", err)
		}
	}
	return changed, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (r *Repricer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("Reprice sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("Repriced %d flights", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
