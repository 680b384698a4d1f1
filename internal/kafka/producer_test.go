package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProducer_BoundsWrites(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"})
	defer p.Close()

	assert.Equal(t, 5*time.Second, p.writer.WriteTimeout)
	assert.Equal(t, 3, p.writer.MaxAttempts)
	assert.False(t, p.writer.Async)
}
