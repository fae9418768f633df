package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.AnalyticsSink = (*ClientEventsProducer)(nil)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// A ClientEventsProducer is the analytics sink writing every event to the
// client events topic, keyed by the visitor session.
type ClientEventsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewClientEventsProducer(
	opts ...ProducerOpt,
) (ClientEventsProducer, error) {
	const op = "NewClientEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return ClientEventsProducer{}, opErr(err, op)
		}
	}

	opPrefix := "ClientEventsProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return ClientEventsProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p ClientEventsProducer) Close() {
	p.producer.close()
}

func (p ClientEventsProducer) Track(ctx context.Context, evt domain.Event) error {
	const op = "Track"
	return p.produceEvent(ctx, evt, op)
}

func (p ClientEventsProducer) Page(ctx context.Context, evt domain.Event) error {
	const op = "Page"
	return p.produceEvent(ctx, evt, op)
}

func (p ClientEventsProducer) Identify(ctx context.Context, evt domain.Event) error {
	const op = "Identify"
	return p.produceEvent(ctx, evt, op)
}

func (p ClientEventsProducer) produceEvent(
	ctx context.Context, evt domain.Event, op string,
) error {
	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(evt)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

func (p ClientEventsProducer) createRecord(
	v domain.Event,
) (*kgo.Record, error) {
	const op = "createRecord"

	s, err := eventToSchemaV1(v)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}

	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}

	r := &kgo.Record{
		Key:   []byte(s.AnonymousID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(s.Type)},
		},
	}
	return r, nil
}
