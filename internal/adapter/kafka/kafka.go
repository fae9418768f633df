package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/lovoo/goka"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ProducerClientOpt connects to the brokers and pings them. A nil tlsConfig
// means a plaintext connection.
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, tlsConfig *tls.Config,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := []kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		}
		if tlsConfig != nil {
			kopts = append(kopts, kgo.DialTLSConfig(tlsConfig))
		}

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

// gokaConfig replaces the global goka config, enabling TLS when tlsConfig
// is not nil.
func gokaConfig(tlsConfig *tls.Config) {
	cfg := goka.DefaultConfig()
	if tlsConfig != nil {
		cfg.Net.TLS.Enable = true
		cfg.Net.TLS.Config = tlsConfig
	}
	goka.ReplaceGlobalConfig(cfg)
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func withNonlogViewOpt() goka.ViewOption {
	return goka.WithViewLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func eventToSchemaV1(v domain.Event) (s schema.ClientEventV1, err error) {
	props := v.Properties
	if props == nil {
		props = domain.Properties{}
	}
	b, err := json.Marshal(props)
	if err != nil {
		return s, err
	}

	s.MessageID = v.MessageID
	s.Type = string(v.Type)
	s.Name = v.Name
	s.AnonymousID = v.AnonymousID
	s.UserID = v.UserID
	s.Properties = string(b)
	s.PageURL = v.Page.URL
	s.PageTitle = v.Page.Title
	s.Timestamp = v.Timestamp.UTC()
	return s, nil
}

func schemaV1ToEvent(s schema.ClientEventV1) (v domain.Event, err error) {
	var props domain.Properties
	if s.Properties != "" {
		if err := json.Unmarshal([]byte(s.Properties), &props); err != nil {
			return v, err
		}
	}

	v.MessageID = s.MessageID
	v.Type = domain.EventType(s.Type)
	v.Name = s.Name
	v.AnonymousID = s.AnonymousID
	v.UserID = s.UserID
	v.Properties = props
	v.Page = domain.PageContext{URL: s.PageURL, Title: s.PageTitle}
	v.Timestamp = s.Timestamp
	return v, nil
}
