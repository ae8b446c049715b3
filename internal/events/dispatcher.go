package events

import (
	"context"
	"sync"
	"time"

	"github.com/yukikurage/synergy-api/internal/metrics"
	"go.uber.org/zap"
)

type DispatcherOptions struct {
	Workers        int
	Buffer         int
	HandlerTimeout time.Duration
}

// Dispatcher is an in-process asynchronous Publisher. Events are queued and
// handled by a fixed worker pool; a full queue or a failing handler drops the
// event after logging it.
type Dispatcher struct {
	handler Handler
	logger  *zap.Logger
	opts    DispatcherOptions

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

func NewDispatcher(handler Handler, logger *zap.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 5 * time.Second
	}

	return &Dispatcher{
		handler: handler,
		logger:  logger,
		opts:    opts,
		queue:   make(chan Event, opts.Buffer),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

func (d *Dispatcher) Publish(_ context.Context, e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "closed", nil)
		return
	}

	select {
	case d.queue <- e:
	default:
		d.drop(e, "queue_full", nil)
	}
}

// Close stops accepting events and waits until queued ones are handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for e := range d.queue {
		d.handle(e)
	}
}

func (d *Dispatcher) handle(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.HandlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Event handler panicked",
				zap.String("event_id", e.ID),
				zap.Any("panic", r),
			)
			metrics.IncNotificationDropped("handler_error")
		}
	}()

	if err := d.handler(ctx, e); err != nil {
		d.drop(e, "handler_error", err)
	}
}

func (d *Dispatcher) drop(e Event, reason string, err error) {
	d.logger.Warn("Dropping event",
		zap.String("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("reason", reason),
		zap.Error(err),
	)
	metrics.IncNotificationDropped(reason)
}
