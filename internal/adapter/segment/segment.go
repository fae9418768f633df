// Package segment delivers analytics events to a Segment compatible
// collector.
package segment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
	analytics "github.com/segmentio/analytics-go/v3"
)

var _ port.AnalyticsSink = (*Sink)(nil)

// A Client is the subset of [analytics.Client] used by [Sink].
type Client interface {
	Enqueue(analytics.Message) error
	Close() error
}

type Config struct {
	WriteKey  string
	Endpoint  string
	Interval  time.Duration
	BatchSize int
}

type Sink struct {
	cl Client
}

func NewSink(config Config) (Sink, error) {
	const op = "segment.NewSink"

	cl, err := analytics.NewWithConfig(config.WriteKey, analytics.Config{
		Endpoint:  config.Endpoint,
		Interval:  config.Interval,
		BatchSize: config.BatchSize,
		Logger:    logger{slog.With("op", "segment.Client")},
	})
	if err != nil {
		return Sink{}, fmt.Errorf("%s: %w", op, err)
	}
	return Sink{cl}, nil
}

func NewSinkWithClient(cl Client) Sink {
	return Sink{cl}
}

func (s Sink) Track(ctx context.Context, evt domain.Event) error {
	const op = "Sink.Track"

	msg := analytics.Track{
		MessageId:   evt.MessageID,
		AnonymousId: evt.AnonymousID,
		UserId:      evt.UserID,
		Event:       evt.Name,
		Timestamp:   evt.Timestamp,
		Context:     pageContext(evt.Page),
		Properties:  analytics.Properties(evt.Properties.Clone()),
	}
	return s.enqueue(ctx, op, msg)
}

func (s Sink) Page(ctx context.Context, evt domain.Event) error {
	const op = "Sink.Page"

	msg := analytics.Page{
		MessageId:   evt.MessageID,
		AnonymousId: evt.AnonymousID,
		UserId:      evt.UserID,
		Name:        evt.Name,
		Timestamp:   evt.Timestamp,
		Context:     pageContext(evt.Page),
		Properties:  analytics.Properties(evt.Properties.Clone()),
	}
	return s.enqueue(ctx, op, msg)
}

func (s Sink) Identify(ctx context.Context, evt domain.Event) error {
	const op = "Sink.Identify"

	msg := analytics.Identify{
		MessageId:   evt.MessageID,
		AnonymousId: evt.AnonymousID,
		UserId:      evt.UserID,
		Timestamp:   evt.Timestamp,
		Context:     pageContext(evt.Page),
		Traits:      analytics.Traits(evt.Properties.Clone()),
	}
	return s.enqueue(ctx, op, msg)
}

func (s Sink) enqueue(ctx context.Context, op string, msg analytics.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cl.Enqueue(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close flushes buffered messages.
func (s Sink) Close() {
	const op = "Sink.Close"
	log := slog.With("op", op)

	log.Info("closing segment client...")
	if err := s.cl.Close(); err != nil {
		log.Error("failed to flush messages", "err", err)
	}
	log.Info("segment client is closed")
}

func pageContext(p domain.PageContext) *analytics.Context {
	if p == (domain.PageContext{}) {
		return nil
	}
	return &analytics.Context{
		Page: analytics.PageInfo{URL: p.URL, Title: p.Title},
	}
}

// logger adapts [slog.Logger] to [analytics.Logger].
type logger struct {
	log *slog.Logger
}

func (l logger) Logf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l logger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}
