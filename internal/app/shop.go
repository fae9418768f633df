package app

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"

	"github.com/niksmo/parentshop/config"
	"github.com/niksmo/parentshop/internal/adapter/httphandler"
	"github.com/niksmo/parentshop/internal/adapter/kafka"
	"github.com/niksmo/parentshop/internal/adapter/segment"
	"github.com/niksmo/parentshop/internal/adapter/session"
	"github.com/niksmo/parentshop/internal/core/analytics"
	"github.com/niksmo/parentshop/internal/core/catalog"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/niksmo/parentshop/internal/core/service"
	"github.com/niksmo/parentshop/pkg/schema"
)

// A Shop is the storefront API process.
type Shop struct {
	ctx        context.Context
	cfg        config.Config
	tlsConfig  *tls.Config
	wg         sync.WaitGroup
	serde      schema.Serde
	sessions   *session.MemoryStore
	sink       port.AnalyticsSink
	closeSink  func()
	emitter    *analytics.Emitter
	activity   *kafka.SessionActivityView
	service    service.Service
	httpServer httphandler.HTTPServer
}

func NewShop(ctx context.Context, cfg config.Config) *Shop {
	app := &Shop{ctx: ctx, cfg: cfg}

	initLogger(cfg.LogLevel)
	app.tlsConfig = brokerTLS(cfg)
	app.initSerdes()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *Shop) initSerdes() {
	const op = "Shop.initSerdes"

	if app.cfg.Analytics.Sink != config.SinkKafka {
		return
	}

	serde, err := newClientEventSerde(app.ctx, app.cfg, app.tlsConfig)
	if err != nil {
		fallDown(op, err)
	}
	app.serde = serde
}

func (app *Shop) initOutboundAdapters() {
	const op = "Shop.initOutboundAdapters"

	cfg := app.cfg
	app.sessions = session.NewMemoryStore(session.WithTTL(cfg.HTTP.SessionTTL))

	switch cfg.Analytics.Sink {
	case config.SinkKafka:
		producer, err := kafka.NewClientEventsProducer(
			kafka.ProducerClientOpt(
				app.ctx,
				cfg.Broker.SeedBrokers,
				cfg.Broker.Topics.ClientEvents,
				app.tlsConfig,
			),
			kafka.ProducerEncoderOpt(app.serde),
		)
		if err != nil {
			fallDown(op, err)
		}
		app.sink = producer
		app.closeSink = producer.Close

		view, err := kafka.NewSessionActivityView(kafka.SessionActivityViewConfig{
			SeedBrokers: cfg.Broker.SeedBrokers,
			Group:       cfg.Broker.Consumers.SessionActivityGroup,
			TLSConfig:   app.tlsConfig,
		})
		if err != nil {
			fallDown(op, err)
		}
		app.activity = view

	case config.SinkSegment:
		sink, err := segment.NewSink(segment.Config{
			WriteKey:  cfg.Analytics.Segment.WriteKey,
			Endpoint:  cfg.Analytics.Segment.Endpoint,
			Interval:  cfg.Analytics.Segment.Interval,
			BatchSize: cfg.Analytics.Segment.BatchSize,
		})
		if err != nil {
			fallDown(op, err)
		}
		app.sink = sink
		app.closeSink = sink.Close
	}

	app.emitter = analytics.NewEmitter(
		app.sink, analytics.WithQueueSize(cfg.Analytics.QueueSize),
	)
}

func (app *Shop) initCoreService() {
	var activity port.SessionActivityReader
	if app.activity != nil {
		activity = app.activity
	}

	app.service = service.New(
		catalog.MustLoad(),
		app.sessions,
		app.emitter,
		activity,
		nil,
		service.CheckoutConfig{
			RedirectURL:   app.cfg.Checkout.RedirectURL,
			RedirectDelay: app.cfg.Checkout.RedirectDelay,
		},
	)
}

func (app *Shop) initInboundAdapters() {
	cfg := app.cfg.HTTP
	s := app.service

	h := httphandler.NewStoreHandler(s, s, s, s)
	limiter := httphandler.NewSessionRateLimiter(
		cfg.EventsRate.PerSecond, cfg.EventsRate.Burst,
	)
	router := httphandler.NewRouter(h, limiter, cfg.SessionTTL)

	app.httpServer = httphandler.NewHTTPServer(
		cfg.Addr, router, cfg.RequestTimeout,
	)
}

func (app *Shop) Run(stopFn context.CancelFunc) {
	app.wg.Add(2)
	go app.emitter.Run(context.WithoutCancel(app.ctx), &app.wg)
	go app.sessions.Run(app.ctx, &app.wg)

	if app.activity != nil {
		app.wg.Add(1)
		go app.activity.Run(app.ctx, &app.wg)
	}

	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

// Close stops accepting requests, then drains queued analytics events
// before closing the sink.
func (app *Shop) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.emitter.Close()
	waitGroup(ctx, &app.wg)

	if app.closeSink != nil {
		app.closeSink()
	}

	slog.Info("application is closed")
}
