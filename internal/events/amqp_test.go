package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedialDelay_DoublesUpToCap(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, redialDelay(0))
	assert.Equal(t, time.Second, redialDelay(1))
	assert.Equal(t, 4*time.Second, redialDelay(3))
	assert.Equal(t, maxRedialDelay, redialDelay(10))
	assert.Equal(t, maxRedialDelay, redialDelay(1000))
}

func TestAMQPConsumer_ClosedStopsRedialing(t *testing.T) {
	c := &AMQPConsumer{closed: make(chan struct{})}
	assert.False(t, c.isClosed())

	c.Close()
	c.Close()
	assert.True(t, c.isClosed())
	assert.False(t, c.IsConnected())
}
