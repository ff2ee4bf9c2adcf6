package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
)

const (
	defaultBufferSize  = 256
	defaultSendTimeout = 5 * time.Second
)

// Sink delivers events to an analytics backend.
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

type EmitterOptions struct {
	BufferSize  int
	SendTimeout time.Duration
	Logger      *logger.Logger
	Metrics     *metrics.CheckoutMetrics
}

// Emitter is a fire-and-forget queue in front of a Sink. Emit never blocks
// the caller; events that do not fit in the buffer are dropped and counted.
type Emitter struct {
	sink        Sink
	events      chan Event
	sendTimeout time.Duration
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

func NewEmitter(sink Sink, opts EmitterOptions) (*Emitter, error) {
	if sink == nil {
		return nil, errors.New("analytics sink is required")
	}
	size := opts.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	e := &Emitter{
		sink:        sink,
		events:      make(chan Event, size),
		sendTimeout: timeout,
		logg:        opts.Logger,
		metrics:     opts.Metrics,
		done:        make(chan struct{}),
	}
	go e.run()
	return e, nil
}

// Emit enqueues event and reports whether it was accepted.
func (e *Emitter) Emit(event Event) bool {
	if e == nil {
		return false
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	select {
	case e.events <- event:
		e.metrics.CartEvent(string(event.Name))
		return true
	default:
		e.metrics.AnalyticsDropped()
		if e.logg != nil {
			ctx := e.logg.WithField(context.Background(), "event", string(event.Name))
			e.logg.Warn(ctx, "analytics buffer full, event dropped")
		}
		return false
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for event := range e.events {
		e.deliver(event)
	}
}

func (e *Emitter) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.sendTimeout)
	defer cancel()
	if err := e.sink.Send(ctx, event); err != nil {
		e.metrics.AnalyticsSendFailed()
		if e.logg != nil {
			logCtx := e.logg.WithFields(ctx, map[string]any{
				"event":      string(event.Name),
				"session_id": event.SessionID,
			})
			e.logg.Warn(logCtx, "analytics delivery failed: "+err.Error())
		}
	}
}

// Close stops accepting events, drains the buffer, and closes the sink.
// Draining stops early when ctx ends.
func (e *Emitter) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.events)
		e.mu.Unlock()

		select {
		case <-e.done:
		case <-ctx.Done():
			err = multierr.Append(err, ctx.Err())
		}
		err = multierr.Append(err, e.sink.Close())
	})
	return err
}
