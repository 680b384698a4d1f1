package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run against a disposable PostgreSQL database pointed to by
// TEST_DATABASE_URL and are skipped otherwise.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `TRUNCATE fare_history, payments, booking_passengers, bookings, users, flights, airports, airlines RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

type seededFlight struct {
	ID        int64
	Departure time.Time
}

func seedFlights(t *testing.T, pool *pgxpool.Pool) []seededFlight {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO airlines (name, code) VALUES ('AirBlue', 'AI')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO airports (iata, name, city, country) VALUES
		('BLR', 'Bengaluru Intl', 'Bengaluru', 'India'),
		('DEL', 'Indira Gandhi Intl', 'Delhi', 'India'),
		('HYD', 'Rajiv Gandhi Intl', 'Hyderabad', 'India')`)
	require.NoError(t, err)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []struct {
		number    string
		from, to  int
		dep       time.Time
		minutes   int
		price     int64
		available int
	}{
		{"AI101", 1, 2, day.Add(9 * time.Hour), 170, 600000, 10},
		{"AI102", 1, 2, day.Add(6 * time.Hour), 150, 450000, 1},
		{"AI103", 1, 2, day.Add(30 * time.Hour), 160, 300000, 50},
		{"AI201", 2, 3, day.Add(12 * time.Hour), 120, 380000, 20},
	}

	var flights []seededFlight
	for _, r := range rows {
		var id int64
		err := pool.QueryRow(ctx, `INSERT INTO flights (airline_id, flight_number, origin_airport_id, destination_airport_id,
				departure_time, arrival_time, total_seats, available_seats, base_price_cents, dynamic_price_cents)
			VALUES (1, $1, $2, $3, $4, $5, 180, $6, $7, $7) RETURNING id`,
			r.number, r.from, r.to, r.dep, r.dep.Add(time.Duration(r.minutes)*time.Minute), r.available, r.price).Scan(&id)
		require.NoError(t, err)
		flights = append(flights, seededFlight{ID: id, Departure: r.dep})
	}
	return flights
}

func availableSeats(t *testing.T, pool *pgxpool.Pool, flightID int64) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT available_seats FROM flights WHERE id = $1`, flightID).Scan(&n))
	return n
}

func newBooking(flightID int64, seats int) *domain.Booking {
	b := &domain.Booking{FlightID: flightID, Seats: seats}
	for i := 0; i < seats; i++ {
		b.Passengers = append(b.Passengers, domain.Passenger{Name: "Passenger", Age: 30, Type: domain.PassengerAdult})
	}
	b.Payment = &domain.Payment{Method: "CARD", TransactionReference: "txn-test"}
	return b
}

func TestIntegration_SearchFiltersAndSorts(t *testing.T) {
	pool := testPool(t)
	seedFlights(t, pool)
	repo := NewFlightRepository(pool)
	ctx := context.Background()

	all, err := repo.Search(ctx, domain.FlightFilter{Origin: "BLR", Destination: "DEL"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, f := range all {
		assert.Equal(t, "BLR", f.Origin.IATA)
		assert.Equal(t, "DEL", f.Destination.IATA)
	}

	sameDay, err := repo.Search(ctx, domain.FlightFilter{Origin: "BLR", Destination: "DEL", Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, sameDay, 2)

	byPrice, err := repo.Search(ctx, domain.FlightFilter{Origin: "BLR", Sort: domain.SortByPrice})
	require.NoError(t, err)
	for i := 1; i < len(byPrice); i++ {
		assert.LessOrEqual(t, byPrice[i-1].DynamicPriceCents, byPrice[i].DynamicPriceCents)
	}

	byDeparture, err := repo.Search(ctx, domain.FlightFilter{Origin: "BLR"})
	require.NoError(t, err)
	for i := 1; i < len(byDeparture); i++ {
		assert.False(t, byDeparture[i].DepartureTime.Before(byDeparture[i-1].DepartureTime))
	}

	byDuration, err := repo.Search(ctx, domain.FlightFilter{Sort: domain.SortByDuration})
	require.NoError(t, err)
	for i := 1; i < len(byDuration); i++ {
		assert.LessOrEqual(t, byDuration[i-1].Duration(), byDuration[i].Duration())
	}

	none, err := repo.Search(ctx, domain.FlightFilter{Origin: "XXX"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIntegration_CreateAndCancel(t *testing.T) {
	pool := testPool(t)
	flights := seedFlights(t, pool)
	repo := NewBookingRepository(pool)
	ctx := context.Background()
	flightID := flights[0].ID

	before := availableSeats(t, pool, flightID)
	b := newBooking(flightID, 3)
	b.Email = "demo@example.com"
	require.NoError(t, repo.Create(ctx, b))

	assert.Len(t, b.PNR, 6)
	assert.Equal(t, int64(1800000), b.TotalPriceCents)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.NotNil(t, b.UserID)
	assert.Equal(t, before-3, availableSeats(t, pool, flightID))

	receipt, err := repo.GetReceipt(ctx, b.PNR)
	require.NoError(t, err)
	assert.Equal(t, b.PNR, receipt.Booking.PNR)
	assert.Equal(t, "demo@example.com", receipt.Booking.Email)
	assert.Equal(t, "AI101", receipt.Flight.FlightNumber)
	assert.Len(t, receipt.Passengers, 3)
	require.NotNil(t, receipt.Payment)
	assert.Equal(t, domain.PaymentStatusSuccess, receipt.Payment.Status)

	cancelled, err := repo.Cancel(ctx, b.PNR)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "demo@example.com", cancelled.Email)
	assert.Equal(t, before, availableSeats(t, pool, flightID))

	_, err = repo.Cancel(ctx, b.PNR)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, before, availableSeats(t, pool, flightID))

	_, err = repo.Cancel(ctx, "ZZZ999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	receipt, err = repo.GetReceipt(ctx, b.PNR)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, receipt.Payment.Status)
}

func TestIntegration_CreateErrors(t *testing.T) {
	pool := testPool(t)
	flights := seedFlights(t, pool)
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	err := repo.Create(ctx, newBooking(9999, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Create(ctx, newBooking(flights[1].ID, 2))
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, 1, availableSeats(t, pool, flights[1].ID))
}

func TestIntegration_LastSeatRace(t *testing.T) {
	pool := testPool(t)
	flights := seedFlights(t, pool)
	repo := NewBookingRepository(pool)
	flightID := flights[1].ID // one seat left

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(context.Background(), newBooking(flightID, 1))
		}(i)
	}
	wg.Wait()

	var ok, capacity int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrCapacity):
			capacity++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, capacity)
	assert.Equal(t, 0, availableSeats(t, pool, flightID))
}

func TestIntegration_PNRCollisionRetries(t *testing.T) {
	pool := testPool(t)
	flights := seedFlights(t, pool)
	ctx := context.Background()

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	next := 0
	gen := func() (string, error) {
		code := codes[next]
		next++
		return code, nil
	}
	repo := NewBookingRepository(pool, WithPNRGenerator(gen))

	first := newBooking(flights[0].ID, 1)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, "AAAAAA", first.PNR)

	second := newBooking(flights[0].ID, 1)
	require.NoError(t, repo.Create(ctx, second))
	assert.Equal(t, "BBBBBB", second.PNR)
	assert.Equal(t, 3, next)
}

func TestIntegration_HistoryNewestFirst(t *testing.T) {
	pool := testPool(t)
	flights := seedFlights(t, pool)
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	var pnrs []string
	for i := 0; i < 3; i++ {
		b := newBooking(flights[2].ID, 1)
		require.NoError(t, repo.Create(ctx, b))
		pnrs = append(pnrs, b.PNR)
	}

	history, err := repo.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{pnrs[2], pnrs[1], pnrs[0]}, []string{history[0].PNR, history[1].PNR, history[2].PNR})
	assert.Equal(t, "BLR", history[0].Origin)
	assert.Equal(t, "DEL", history[0].Destination)
}

func TestIntegration_FareHistory(t *testing.T) {
	pool := testPool(t)
	flights := seedFlights(t, pool)
	repo := NewFlightRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.UpdateDynamicPrice(ctx, flights[0].ID, 650000, "mult=1.08"))

	f, err := repo.GetByID(ctx, flights[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(650000), f.DynamicPriceCents)

	records, err := repo.FareHistory(ctx, flights[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mult=1.08", records[0].Reason)

	_, err = repo.FareHistory(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateDynamicPrice(ctx, 9999, 1, ""), domain.ErrNotFound)
}
