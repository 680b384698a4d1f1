package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	ListDepartingAfter(ctx context.Context, t time.Time) ([]domain.Flight, error)
	UpdateDynamicPrice(ctx context.Context, flightID, priceCents int64, reason string) error
	FareHistory(ctx context.Context, flightID int64) ([]domain.FareRecord, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightSelect = `SELECT f.id, f.flight_number,
	al.id, al.code, al.name,
	o.id, o.iata, o.name, o.city, o.country,
	d.id, d.iata, d.name, d.city, d.country,
	f.departure_time, f.arrival_time, f.base_price_cents, f.dynamic_price_cents, f.currency,
	f.total_seats, f.available_seats, f.refundable
FROM flights f
JOIN airlines al ON al.id = f.airline_id
JOIN airports o ON o.id = f.origin_airport_id
JOIN airports d ON d.id = f.destination_airport_id`

var sortColumns = map[domain.SortKey]string{
	domain.SortByDeparture: "f.departure_time",
	domain.SortByPrice:     "f.dynamic_price_cents",
	domain.SortByDuration:  "(f.arrival_time - f.departure_time)",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(row rowScanner) (domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(&f.ID, &f.FlightNumber,
		&f.Airline.ID, &f.Airline.Code, &f.Airline.Name,
		&f.Origin.ID, &f.Origin.IATA, &f.Origin.Name, &f.Origin.City, &f.Origin.Country,
		&f.Destination.ID, &f.Destination.IATA, &f.Destination.Name, &f.Destination.City, &f.Destination.Country,
		&f.DepartureTime, &f.ArrivalTime, &f.BasePriceCents, &f.DynamicPriceCents, &f.Currency,
		&f.TotalSeats, &f.AvailableSeats, &f.Refundable)
	return f, err
}

// buildSearchQuery renders the filtered, ordered flight query. The sort column
// comes from a fixed whitelist; every user value goes through a placeholder.
func buildSearchQuery(filter domain.FlightFilter) (string, []any) {
	var (
		sb    strings.Builder
		conds []string
		args  []any
	)
	sb.WriteString(flightSelect)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Origin != "" {
		conds = append(conds, "o.iata = "+arg(filter.Origin))
	}
	if filter.Destination != "" {
		conds = append(conds, "d.iata = "+arg(filter.Destination))
	}
	if filter.HasDate() {
		day := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, time.UTC)
		conds = append(conds, "f.departure_time >= "+arg(day))
		conds = append(conds, "f.departure_time < "+arg(day.AddDate(0, 0, 1)))
	}
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	col, ok := sortColumns[filter.Sort]
	if !ok {
		col = sortColumns[domain.SortByDeparture]
	}
	dir := "ASC"
	if filter.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, "\nORDER BY %s %s, f.id %s", col, dir, dir)

	return sb.String(), args
}

func (r *PGFlightRepository) Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	query, args := buildSearchQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, flightSelect+"\nWHERE f.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) ListDepartingAfter(ctx context.Context, t time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, flightSelect+"\nWHERE f.departure_time > $1\nORDER BY f.departure_time, f.id", t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []domain.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) UpdateDynamicPrice(ctx context.Context, flightID, priceCents int64, reason string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `UPDATE flights SET dynamic_price_cents = $2, updated_at = now() WHERE id = $1`, flightID, priceCents)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: flight %d", domain.ErrNotFound, flightID)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO fare_history (flight_id, price_cents, reason) VALUES ($1, $2, $3)`, flightID, priceCents, reason); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGFlightRepository) FareHistory(ctx context.Context, flightID int64) ([]domain.FareRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, flight_id, price_cents, reason, recorded_at FROM fare_history WHERE flight_id = $1 ORDER BY recorded_at DESC, id DESC`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.FareRecord, 0)
	for rows.Next() {
		var rec domain.FareRecord
		if err := rows.Scan(&rec.ID, &rec.FlightID, &rec.PriceCents, &rec.Reason, &rec.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id = $1)`, flightID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: flight %d", domain.ErrNotFound, flightID)
		}
	}
	return records, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
