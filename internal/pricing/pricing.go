// Package pricing derives the dynamic fare of a flight from its base fare,
// seat fill, time to departure and a demand factor.
package pricing

import (
	"fmt"
	"math"
	"time"
)

type Input struct {
	BaseCents      int64
	TotalSeats     int
	AvailableSeats int
	Departure      time.Time
	Now            time.Time
	// Demand is a multiplier around 1.0. Zero is treated as 1.0.
	Demand float64
}

type Quote struct {
	PriceCents int64
	Multiplier float64
	Reason     string
}

// Compute returns the dynamic price for in. Fewer remaining seats and a closer
// departure both push the price up; the result is rounded to a tier step and
// never drops below 90% of the base fare.
func Compute(in Input) Quote {
	total := in.TotalSeats
	if total <= 0 {
		total = 1
	}
	remaining := float64(in.AvailableSeats) / float64(total)
	remaining = math.Max(0, math.Min(1, remaining))

	hours := math.Max(in.Departure.Sub(in.Now).Hours(), 0)

	demand := in.Demand
	if demand == 0 {
		demand = 1
	}

	seatMult := 1 + (1 - remaining)

	var timeMult float64
	if hours <= 0 {
		timeMult = 2
	} else {
		timeMult = 1 + math.Max(0, (48-math.Min(hours, 48))/48)*0.8
	}

	mult := seatMult * timeMult * demand
	base := float64(in.BaseCents) / 100
	price := roundTier(base * mult)
	price = math.Max(price, base*0.9)

	return Quote{
		PriceCents: int64(math.Round(price * 100)),
		Multiplier: mult,
		Reason: fmt.Sprintf("base=%.2f seats_pct=%.2f time_h=%.1f demand=%.2f mult=%.2f",
			base, remaining, hours, demand, mult),
	}
}

func roundTier(v float64) float64 {
	var step float64
	switch {
	case v < 1000:
		step = 10
	case v < 5000:
		step = 50
	default:
		step = 100
	}
	return math.Round(v/step) * step
}
