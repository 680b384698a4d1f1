package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestBookingEventHandler_Decodes(t *testing.T) {
	var got BookingEvent
	h := BookingEventHandler(func(_ context.Context, e BookingEvent) error {
		got = e
		return nil
	})

	err := h(context.Background(), kafka.Message{Value: []byte(`{"type":"booking_created","pnr":"ABC234","flight_id":7,"seats":2}`)})

	assert.NoError(t, err)
	assert.Equal(t, EventBookingCreated, got.Type)
	assert.Equal(t, "ABC234", got.PNR)
	assert.Equal(t, int64(7), got.FlightID)
	assert.Equal(t, 2, got.Seats)
}

func TestBookingEventHandler_SkipsGarbage(t *testing.T) {
	called := false
	h := BookingEventHandler(func(context.Context, BookingEvent) error {
		called = true
		return nil
	})

	assert.NoError(t, h(context.Background(), kafka.Message{Value: []byte("not json")}))
	assert.False(t, called)
}

func TestBookingEventHandler_PropagatesErrors(t *testing.T) {
	boom := errors.New("smtp down")
	h := BookingEventHandler(func(context.Context, BookingEvent) error { return boom })

	assert.ErrorIs(t, h(context.Background(), kafka.Message{Value: []byte(`{}`)}), boom)
}

func TestConsumer_CloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())
}
