package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/niksmo/parentshop/config"
	"github.com/niksmo/parentshop/internal/adapter"
	"github.com/niksmo/parentshop/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

// initLogger sets the JSON logger on stderr as the default one.
func initLogger(level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

// brokerTLS returns the broker TLS config, or nil for plaintext.
func brokerTLS(cfg config.Config) *tls.Config {
	t := cfg.Broker.TLS
	if !t.Enabled() {
		return nil
	}
	return adapter.MakeTLSConfig(t.CA, t.Cert, t.Key)
}

func newClientEventSerde(
	ctx context.Context, cfg config.Config, tlsConfig *tls.Config,
) (schema.Serde, error) {
	srOpts := []sr.ClientOpt{sr.URLs(cfg.Broker.SchemaRegistryURLs...)}
	if tlsConfig != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(tlsConfig))
	}

	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		return nil, err
	}

	subject := cfg.Broker.Topics.ClientEvents + "-value"
	return schema.NewSerdeClientEventV1(
		ctx,
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schema.NewSchemaCreater(srClient)),
	)
}

// waitGroup waits for wg until ctx is done.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("background workers did not stop in time", "err", ctx.Err())
	}
}

func fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
