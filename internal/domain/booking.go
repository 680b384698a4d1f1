package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// CanTransition reports whether a booking may move from s to next.
// confirmed -> cancelled is the only allowed transition.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	return s == BookingStatusConfirmed && next == BookingStatusCancelled
}

type PassengerType string

const (
	PassengerAdult  PassengerType = "ADT"
	PassengerChild  PassengerType = "CHD"
	PassengerInfant PassengerType = "INF"
)

// PassengerTypeForAge follows the usual airline age bands.
func PassengerTypeForAge(age int) PassengerType {
	switch {
	case age < 2:
		return PassengerInfant
	case age < 12:
		return PassengerChild
	default:
		return PassengerAdult
	}
}

type Passenger struct {
	Name string        `json:"name"`
	Age  int           `json:"age"`
	Type PassengerType `json:"type"`
}

type Booking struct {
	ID              int64         `json:"id"`
	PNR             string        `json:"pnr"`
	FlightID        int64         `json:"flight_id"`
	UserID          *int64        `json:"user_id,omitempty"`
	Email           string        `json:"email,omitempty"`
	Seats           int           `json:"seats"`
	TotalPriceCents int64         `json:"total_price_cents"`
	Currency        string        `json:"currency"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	Passengers      []Passenger   `json:"passengers,omitempty"`
	Payment         *Payment      `json:"payment,omitempty"`
}

type PaymentStatus string

const (
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Payment struct {
	AmountCents          int64         `json:"amount_cents"`
	Currency             string        `json:"currency"`
	Method               string        `json:"method"`
	TransactionReference string        `json:"transaction_reference"`
	Status               PaymentStatus `json:"status"`
	PaidAt               time.Time     `json:"paid_at"`
}

// BookingSummary is one row of the booking history listing.
type BookingSummary struct {
	PNR             string        `json:"pnr"`
	FlightID        int64         `json:"flight_id"`
	FlightNumber    string        `json:"flight_number"`
	Origin          string        `json:"origin"`
	Destination     string        `json:"destination"`
	DepartureTime   time.Time     `json:"departure_time"`
	Seats           int           `json:"seats"`
	TotalPriceCents int64         `json:"total_price_cents"`
	Currency        string        `json:"currency"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}

type Receipt struct {
	Booking    Booking     `json:"booking"`
	Flight     Flight      `json:"flight"`
	Passengers []Passenger `json:"passengers"`
	Payment    *Payment    `json:"payment,omitempty"`
	IssuedAt   time.Time   `json:"issued_at"`
}

func TotalPrice(unitCents int64, seats int) int64 {
	return unitCents * int64(seats)
}
