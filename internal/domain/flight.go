package domain

import "time"

type Airline struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type Airport struct {
	ID      int64  `json:"id"`
	IATA    string `json:"iata"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Flight struct {
	ID                int64     `json:"id"`
	FlightNumber      string    `json:"flight_number"`
	Airline           Airline   `json:"airline"`
	Origin            Airport   `json:"origin"`
	Destination       Airport   `json:"destination"`
	DepartureTime     time.Time `json:"departure_time"`
	ArrivalTime       time.Time `json:"arrival_time"`
	BasePriceCents    int64     `json:"base_price_cents"`
	DynamicPriceCents int64     `json:"dynamic_price_cents"`
	Currency          string    `json:"currency"`
	TotalSeats        int       `json:"total_seats"`
	AvailableSeats    int       `json:"available_seats"`
	Refundable        bool      `json:"refundable"`
}

func (f Flight) Duration() time.Duration {
	return f.ArrivalTime.Sub(f.DepartureTime)
}

type FareRecord struct {
	ID         int64     `json:"id"`
	FlightID   int64     `json:"flight_id"`
	PriceCents int64     `json:"price_cents"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recorded_at"`
}

type SortKey string

const (
	SortByDeparture SortKey = "departure"
	SortByPrice     SortKey = "price"
	SortByDuration  SortKey = "duration"
)

// FlightFilter is a validated search request. Zero values mean "no filter".
type FlightFilter struct {
	Origin      string
	Destination string
	Date        time.Time
	Sort        SortKey
	Descending  bool
}

func (f FlightFilter) HasDate() bool {
	return !f.Date.IsZero()
}
