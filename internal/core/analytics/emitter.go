// Package analytics delivers storefront events to the analytics sink
// without ever blocking or failing the operation that produced them.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
)

const (
	DefaultQueueSize = 256

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	deliverTimeout  = 5 * time.Second
)

var _ port.EventEmitter = (*Emitter)(nil)

type EmitterOpt func(*Emitter)

func WithClock(clock func() time.Time) EmitterOpt {
	return func(e *Emitter) {
		e.clock = clock
	}
}

func WithIDGenerator(newID func() string) EmitterOpt {
	return func(e *Emitter) {
		e.newID = newID
	}
}

func WithQueueSize(n int) EmitterOpt {
	return func(e *Emitter) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// An Emitter queues events and delivers them to the sink from the Run
// goroutine.
//
// A nil sink is allowed: every event is then dropped.
type Emitter struct {
	sink      port.AnalyticsSink
	clock     func() time.Time
	newID     func() string
	queueSize int

	mu     sync.RWMutex
	queue  chan domain.Event
	closed bool
}

func NewEmitter(sink port.AnalyticsSink, opts ...EmitterOpt) *Emitter {
	e := &Emitter{
		sink:      sink,
		clock:     time.Now,
		newID:     uuid.NewString,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue = make(chan domain.Event, e.queueSize)
	return e
}

func (e *Emitter) Emit(_ context.Context, evt domain.Event) {
	const op = "Emitter.Emit"
	log := slog.With("op", op, "type", evt.Type, "event", evt.Name)

	if e.sink == nil {
		log.Debug("analytics sink is absent, event dropped")
		return
	}

	if err := domain.ValidateEvent(evt); err != nil {
		log.Error("event dropped", "err", err)
		return
	}

	evt = e.augment(evt)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		log.Warn("emitter is closed, event dropped")
		return
	}

	select {
	case e.queue <- evt:
	default:
		log.Warn("queue is full, event dropped")
	}
}

// Run delivers queued events until [Emitter.Close] is called and the queue
// is drained.
func (e *Emitter) Run(ctx context.Context, wg *sync.WaitGroup) {
	const op = "Emitter.Run"
	log := slog.With("op", op)

	defer wg.Done()

	log.Info("running")
	for evt := range e.queue {
		e.deliver(ctx, evt)
	}
	log.Info("stopped")
}

// Close stops accepting events. Queued events are still delivered.
func (e *Emitter) Close() {
	const op = "Emitter.Close"
	log := slog.With("op", op)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	log.Info("closing emitter...")
	e.closed = true
	close(e.queue)
}

func (e *Emitter) augment(evt domain.Event) domain.Event {
	if evt.MessageID == "" {
		evt.MessageID = e.newID()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.clock()
	}

	props := evt.Properties.Clone()
	props[domain.PropTimestamp] = evt.Timestamp.UTC().Format(timestampLayout)
	props[domain.PropPageURL] = evt.Page.URL
	props[domain.PropPageTitle] = evt.Page.Title
	evt.Properties = props
	return evt
}

func (e *Emitter) deliver(ctx context.Context, evt domain.Event) {
	const op = "Emitter.deliver"

	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	var err error
	switch evt.Type {
	case domain.EventTrack:
		err = e.sink.Track(ctx, evt)
	case domain.EventPage:
		err = e.sink.Page(ctx, evt)
	case domain.EventIdentify:
		err = e.sink.Identify(ctx, evt)
	}

	if err != nil {
		slog.Warn(
			"failed to deliver event",
			"op", op, "event", evt.Name, "messageID", evt.MessageID, "err", err,
		)
	}
}
