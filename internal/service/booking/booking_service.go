package booking

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/pnr"
	"github.com/Domenick1991/flightbooking/internal/receipt"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/google/uuid"
)

const (
	DefaultPaymentMethod = "CARD"
	maxPassengerAge      = 120
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, pnr string) (*domain.Booking, error)
	History(ctx context.Context) ([]domain.BookingSummary, error)
	Receipt(ctx context.Context, pnr string) (*domain.Receipt, error)
	ReceiptPDF(ctx context.Context, pnr string) ([]byte, error)
}

// Cache is the part of the flights cache a booking touches: any seat change
// makes cached search results stale.
type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	publishTimeout     time.Duration
	now                func() time.Time
}

const defaultPublishTimeout = 3 * time.Second

type PassengerInput struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type CreateBookingInput struct {
	FlightID      int64            `json:"flight_id"`
	Seats         int              `json:"seats"`
	Passengers    []PassengerInput `json:"passengers"`
	Email         string           `json:"email,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithPublishTimeout bounds how long a committed booking waits on the broker.
func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.publishTimeout = d
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:       bookings,
		cache:          cache,
		producer:       producer,
		bookingTopic:   bookingTopic,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Validate checks the request shape before anything touches the database.
func (in CreateBookingInput) Validate() error {
	if in.FlightID <= 0 {
		return fmt.Errorf("%w: flight_id must be positive", domain.ErrValidation)
	}
	if in.Seats < 1 {
		return fmt.Errorf("%w: seats must be at least 1", domain.ErrValidation)
	}
	if len(in.Passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", domain.ErrValidation)
	}
	if len(in.Passengers) != in.Seats {
		return fmt.Errorf("%w: %d passengers for %d seats", domain.ErrValidation, len(in.Passengers), in.Seats)
	}
	for i, p := range in.Passengers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: passenger %d name is required", domain.ErrValidation, i+1)
		}
		if p.Age < 0 || p.Age > maxPassengerAge {
			return fmt.Errorf("%w: passenger %d age must be between 0 and %d", domain.ErrValidation, i+1, maxPassengerAge)
		}
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return fmt.Errorf("%w: invalid email %q", domain.ErrValidation, in.Email)
		}
	}
	return nil
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		method = DefaultPaymentMethod
	}

	booking := &domain.Booking{
		FlightID: input.FlightID,
		Seats:    input.Seats,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Payment: &domain.Payment{
			Method:               method,
			TransactionReference: uuid.NewString(),
		},
	}
	for _, p := range input.Passengers {
		booking.Passengers = append(booking.Passengers, domain.Passenger{
			Name: strings.TrimSpace(p.Name),
			Age:  p.Age,
			Type: domain.PassengerTypeForAge(p.Age),
		})
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	if err := s.publish(ctx, kafka.EventBookingCreated, booking); err != nil {
		log.Printf("WARNING: Failed to publish booking_created event for booking %s: %v", booking.PNR, err)
	}
	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, locator string) (*domain.Booking, error) {
	code, err := normalizePNR(locator)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.bookings.Cancel(ctx, code)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	if err := s.publish(ctx, kafka.EventBookingCancelled, cancelled); err != nil {
		log.Printf("WARNING: Failed to publish booking_cancelled event for booking %s: %v", cancelled.PNR, err)
	}
	return cancelled, nil
}

func (s *BookingService) History(ctx context.Context) ([]domain.BookingSummary, error) {
	return s.bookings.ListHistory(ctx)
}

func (s *BookingService) Receipt(ctx context.Context, locator string) (*domain.Receipt, error) {
	code, err := normalizePNR(locator)
	if err != nil {
		return nil, err
	}
	r, err := s.bookings.GetReceipt(ctx, code)
	if err != nil {
		return nil, err
	}
	r.IssuedAt = s.now().UTC()
	return r, nil
}

func (s *BookingService) ReceiptPDF(ctx context.Context, locator string) ([]byte, error) {
	r, err := s.Receipt(ctx, locator)
	if err != nil {
		return nil, err
	}
	return receipt.RenderPDF(*r)
}

// normalizePNR upper-cases a locator. Anything Generate could not have issued
// is reported as not found without a database round trip.
func normalizePNR(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", fmt.Errorf("%w: pnr is required", domain.ErrValidation)
	}
	if !pnr.Valid(code) {
		return "", fmt.Errorf("%w: booking %s", domain.ErrNotFound, code)
	}
	return code, nil
}

func (s *BookingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		log.Printf("WARNING: Failed to invalidate flights cache: %v", err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		PNR:             booking.PNR,
		FlightID:        booking.FlightID,
		Seats:           booking.Seats,
		Email:           booking.Email,
		Status:          string(booking.Status),
		TotalPriceCents: booking.TotalPriceCents,
		Currency:        booking.Currency,
		OccurredAt:      s.now().UTC(),
	}
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.PNR, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.PNR, event)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
