package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/niksmo/parentshop/pkg/schema"
)

var _ port.SessionActivityProcessor = (*SessionActivityProcessor)(nil)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
	stopFn   context.CancelFunc
}

func (p *processor) run(ctx context.Context, wg *sync.WaitGroup) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx)

	log.Info("preparing...")
	if p.waitForReady(ctx) {
		log.Info("running")
	}
}

func (p *processor) runProc(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	if p.stopFn != nil {
		defer p.stopFn()
	}

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) bool {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("fall down while preparing", "err", err)
		}
		return false
	}
	return true
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A clientEventCodec used for serde [schema.ClientEventV1]
type clientEventCodec struct {
	serde Serde
}

func newClientEventCodec(s Serde) clientEventCodec {
	return clientEventCodec{s}
}

func (c clientEventCodec) Encode(v any) ([]byte, error) {
	const op = "clientEventCodec.Encode"
	if _, ok := v.(schema.ClientEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c clientEventCodec) Decode(data []byte) (any, error) {
	const op = "clientEventCodec.Decode"
	var s schema.ClientEventV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// An eventCount is the number of events seen for one session.
type eventCount int64

// An eventCountCodec used for serde [eventCount]
type eventCountCodec struct{}

func (eventCountCodec) Encode(v any) ([]byte, error) {
	const op = "eventCountCodec.Encode"
	n, ok := v.(eventCount)
	if !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return strconv.AppendInt(nil, int64(n), 10), nil
}

func (eventCountCodec) Decode(data []byte) (any, error) {
	const op = "eventCountCodec.Decode"
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil, opErr(err, op)
	}
	return eventCount(n), nil
}

// A SessionActivityProcessorConfig used for setup
// [SessionActivityProcessor].
//
// TLSConfig and StopFn are optional. StopFn is called when the processor
// stops on its own.
type SessionActivityProcessorConfig struct {
	SeedBrokers []string
	InputTopic  string
	Group       string
	Serde       Serde
	TLSConfig   *tls.Config
	StopFn      context.CancelFunc
}

// A SessionActivityProcessor counts client events per session key
// into its group table.
type SessionActivityProcessor struct {
	opPrefix string
	proc     processor
}

func NewSessionActivityProcessor(
	config SessionActivityProcessorConfig,
) (*SessionActivityProcessor, error) {
	const op = "NewSessionActivityProcessor"

	gokaConfig(config.TLSConfig)

	var p SessionActivityProcessor
	p.opPrefix = "SessionActivityProcessor"

	gg := goka.DefineGroup(goka.Group(config.Group),
		goka.Input(
			goka.Stream(config.InputTopic),
			newClientEventCodec(config.Serde),
			p.processFn,
		),
		goka.Persist(eventCountCodec{}),
	)

	gp, err := goka.NewProcessor(config.SeedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{
		opPrefix: p.opPrefix,
		gp:       gp,
		stopFn:   config.StopFn,
	}

	return &p, nil
}

func (p *SessionActivityProcessor) Run(ctx context.Context, wg *sync.WaitGroup) {
	p.proc.run(ctx, wg)
}

func (p *SessionActivityProcessor) Close() {
	p.proc.close()
}

func (p *SessionActivityProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	evt, _ := msg.(schema.ClientEventV1)
	n := countEvent(ctx.Value())
	ctx.SetValue(n)

	slog.Debug(
		"session event counted",
		"op", makeOp(p.opPrefix, op),
		"session", ctx.Key(),
		"event", evt.Name,
		"count", int64(n),
	)
}

func countEvent(current any) eventCount {
	n, _ := current.(eventCount)
	return n + 1
}
