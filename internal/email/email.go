package email

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Domenick1991/flightbooking/internal/kafka"
)

// Sender renders booking notifications. Delivery is a line on the configured
// writer until a mail provider is wired in.
type Sender struct {
	out io.Writer
}

func NewSender() *Sender {
	return &Sender{out: os.Stdout}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		return nil
	}
	_, err := fmt.Fprintf(s.out, "send email to %s: %s\n", event.Email, Subject(event))
	return err
}

func Subject(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s confirmed: %d seat(s) on flight %d", event.PNR, event.Seats, event.FlightID)
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %s cancelled", event.PNR)
	default:
		return fmt.Sprintf("Booking %s update: %s", event.PNR, event.Type)
	}
}
