package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/pnr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	Cancel(ctx context.Context, pnr string) (*domain.Booking, error)
	ListHistory(ctx context.Context) ([]domain.BookingSummary, error)
	GetReceipt(ctx context.Context, pnr string) (*domain.Receipt, error)
}

type PGBookingRepository struct {
	db          *pgxpool.Pool
	generatePNR func() (string, error)
	pnrAttempts int
}

type BookingRepositoryOption func(*PGBookingRepository)

func WithPNRGenerator(gen func() (string, error)) BookingRepositoryOption {
	return func(r *PGBookingRepository) {
		r.generatePNR = gen
	}
}

func WithPNRAttempts(n int) BookingRepositoryOption {
	return func(r *PGBookingRepository) {
		if n > 0 {
			r.pnrAttempts = n
		}
	}
}

func NewBookingRepository(db *pgxpool.Pool, opts ...BookingRepositoryOption) BookingRepository {
	r := &PGBookingRepository{
		db:          db,
		generatePNR: pnr.Generate,
		pnrAttempts: 5,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create books booking.Seats seats on booking.FlightID in a single transaction:
// the seat decrement is a conditional update so two concurrent requests can
// never both take the last seat. The booking row is inserted under a savepoint
// and retried with a fresh PNR when the locator is already taken.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var unitCents int64
	var currency string
	err = tx.QueryRow(ctx, `UPDATE flights
		SET available_seats = available_seats - $2, updated_at = now()
		WHERE id = $1 AND available_seats >= $2
		RETURNING dynamic_price_cents, currency`, booking.FlightID, booking.Seats).Scan(&unitCents, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainNoSeats(ctx, tx, booking.FlightID, booking.Seats)
		}
		return err
	}

	booking.TotalPriceCents = domain.TotalPrice(unitCents, booking.Seats)
	booking.Currency = currency
	booking.Status = domain.BookingStatusConfirmed

	if booking.Email != "" {
		var userID int64
		if err := tx.QueryRow(ctx, `INSERT INTO users (email) VALUES ($1)
			ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			RETURNING id`, booking.Email).Scan(&userID); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		booking.UserID = &userID
	}

	if err := r.insertWithPNR(ctx, tx, booking); err != nil {
		return err
	}

	rows := make([][]any, 0, len(booking.Passengers))
	for _, p := range booking.Passengers {
		rows = append(rows, []any{booking.ID, p.Name, p.Age, string(p.Type)})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"booking_passengers"},
		[]string{"booking_id", "passenger_name", "passenger_age", "passenger_type"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert passengers: %w", err)
	}

	if booking.Payment != nil {
		p := booking.Payment
		p.AmountCents = booking.TotalPriceCents
		p.Currency = booking.Currency
		p.Status = domain.PaymentStatusSuccess
		if err := tx.QueryRow(ctx, `INSERT INTO payments (booking_id, amount_cents, currency, payment_method, transaction_reference, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING paid_at`, booking.ID, p.AmountCents, p.Currency, p.Method, p.TransactionReference, p.Status).Scan(&p.PaidAt); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) insertWithPNR(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error {
	for attempt := 1; attempt <= r.pnrAttempts; attempt++ {
		code, err := r.generatePNR()
		if err != nil {
			return err
		}

		sp, err := tx.Begin(ctx)
		if err != nil {
			return err
		}
		err = sp.QueryRow(ctx, `INSERT INTO bookings (pnr, user_id, flight_id, seats, total_price_cents, currency, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`, code, booking.UserID, booking.FlightID, booking.Seats, booking.TotalPriceCents, booking.Currency, booking.Status).
			Scan(&booking.ID, &booking.CreatedAt)
		if err != nil {
			_ = sp.Rollback(ctx)
			if isUniqueViolation(err, "bookings_pnr_key") {
				continue
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		if err := sp.Commit(ctx); err != nil {
			return err
		}
		booking.PNR = code
		return nil
	}
	return fmt.Errorf("could not allocate a unique pnr after %d attempts", r.pnrAttempts)
}

// explainNoSeats runs after the conditional decrement matched no row and tells
// a missing flight apart from a full one.
func (r *PGBookingRepository) explainNoSeats(ctx context.Context, tx pgx.Tx, flightID int64, seats int) error {
	var available int
	err := tx.QueryRow(ctx, `SELECT available_seats FROM flights WHERE id = $1`, flightID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: flight %d", domain.ErrNotFound, flightID)
		}
		return err
	}
	return fmt.Errorf("%w: requested %d, available %d", domain.ErrCapacity, seats, available)
}

// Cancel flips a confirmed booking to cancelled and gives its seats back to the
// flight, all in one transaction.
func (r *PGBookingRepository) Cancel(ctx context.Context, code string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var b domain.Booking
	err = tx.QueryRow(ctx, `UPDATE bookings
		SET status = $2, cancelled_at = now()
		WHERE pnr = $1 AND status = $3
		RETURNING id, pnr, user_id, flight_id, seats, total_price_cents, currency, status, created_at, cancelled_at,
			COALESCE((SELECT u.email FROM users u WHERE u.id = bookings.user_id), '')`,
		code, domain.BookingStatusCancelled, domain.BookingStatusConfirmed).
		Scan(&b.ID, &b.PNR, &b.UserID, &b.FlightID, &b.Seats, &b.TotalPriceCents, &b.Currency, &b.Status, &b.CreatedAt, &b.CancelledAt, &b.Email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		var status domain.BookingStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE pnr = $1`, code).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: booking %s", domain.ErrNotFound, code)
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: booking %s is already %s", domain.ErrConflict, code, status)
	}

	res, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats + $2, updated_at = now() WHERE id = $1`, b.FlightID, b.Seats)
	if err != nil {
		return nil, fmt.Errorf("restore seats: %w", err)
	}
	if res.RowsAffected() == 0 {
		return nil, fmt.Errorf("restore seats: flight %d missing", b.FlightID)
	}

	if _, err := tx.Exec(ctx, `UPDATE payments SET status = $2 WHERE booking_id = $1 AND status = $3`,
		b.ID, domain.PaymentStatusRefunded, domain.PaymentStatusSuccess); err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) ListHistory(ctx context.Context) ([]domain.BookingSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT b.pnr, b.flight_id, f.flight_number, o.iata, d.iata, f.departure_time,
			b.seats, b.total_price_cents, b.currency, b.status, b.created_at
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		JOIN airports o ON o.id = f.origin_airport_id
		JOIN airports d ON d.id = f.destination_airport_id
		ORDER BY b.created_at DESC, b.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.BookingSummary, 0)
	for rows.Next() {
		var s domain.BookingSummary
		if err := rows.Scan(&s.PNR, &s.FlightID, &s.FlightNumber, &s.Origin, &s.Destination, &s.DepartureTime,
			&s.Seats, &s.TotalPriceCents, &s.Currency, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

func (r *PGBookingRepository) GetReceipt(ctx context.Context, code string) (*domain.Receipt, error) {
	var b domain.Booking
	err := r.db.QueryRow(ctx, `SELECT b.id, b.pnr, b.user_id, COALESCE(u.email, ''), b.flight_id, b.seats,
			b.total_price_cents, b.currency, b.status, b.created_at, b.cancelled_at
		FROM bookings b
		LEFT JOIN users u ON u.id = b.user_id
		WHERE b.pnr = $1`, code).
		Scan(&b.ID, &b.PNR, &b.UserID, &b.Email, &b.FlightID, &b.Seats, &b.TotalPriceCents, &b.Currency, &b.Status, &b.CreatedAt, &b.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", domain.ErrNotFound, code)
		}
		return nil, err
	}

	flight, err := scanFlight(r.db.QueryRow(ctx, flightSelect+"\nWHERE f.id = $1", b.FlightID))
	if err != nil {
		return nil, fmt.Errorf("load flight %d: %w", b.FlightID, err)
	}

	rows, err := r.db.Query(ctx, `SELECT passenger_name, passenger_age, passenger_type FROM booking_passengers WHERE booking_id = $1 ORDER BY id`, b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	passengers := make([]domain.Passenger, 0, b.Seats)
	for rows.Next() {
		var p domain.Passenger
		if err := rows.Scan(&p.Name, &p.Age, &p.Type); err != nil {
			return nil, err
		}
		passengers = append(passengers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var payment *domain.Payment
	var p domain.Payment
	err = r.db.QueryRow(ctx, `SELECT amount_cents, currency, payment_method, transaction_reference, status, paid_at
		FROM payments WHERE booking_id = $1 ORDER BY id DESC LIMIT 1`, b.ID).
		Scan(&p.AmountCents, &p.Currency, &p.Method, &p.TransactionReference, &p.Status, &p.PaidAt)
	switch {
	case err == nil:
		payment = &p
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, err
	}

	return &domain.Receipt{
		Booking:    b,
		Flight:     flight,
		Passengers: passengers,
		Payment:    payment,
	}, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
