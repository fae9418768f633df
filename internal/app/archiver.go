package app

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"

	"github.com/niksmo/parentshop/config"
	"github.com/niksmo/parentshop/internal/adapter/kafka"
	"github.com/niksmo/parentshop/internal/adapter/storage"
	"github.com/niksmo/parentshop/internal/core/catalog"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/niksmo/parentshop/internal/core/service"
	"github.com/niksmo/parentshop/pkg/schema"
)

// An Archiver consumes client events into the archive and keeps the
// session activity table up to date.
type Archiver struct {
	ctx          context.Context
	stopFn       context.CancelFunc
	cfg          config.Config
	tlsConfig    *tls.Config
	wg           sync.WaitGroup
	serde        schema.Serde
	storage      port.ClientEventsStorage
	closeStorage func()
	service      service.Service
	consumer     port.ClientEventsConsumer
	processor    port.SessionActivityProcessor
}

func NewArchiver(
	ctx context.Context, stopFn context.CancelFunc, cfg config.Config,
) *Archiver {
	app := &Archiver{ctx: ctx, stopFn: stopFn, cfg: cfg}

	initLogger(cfg.LogLevel)
	app.tlsConfig = brokerTLS(cfg)
	app.initSerdes()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *Archiver) initSerdes() {
	const op = "Archiver.initSerdes"

	serde, err := newClientEventSerde(app.ctx, app.cfg, app.tlsConfig)
	if err != nil {
		fallDown(op, err)
	}
	app.serde = serde
}

func (app *Archiver) initOutboundAdapters() {
	const op = "Archiver.initOutboundAdapters"

	cfg := app.cfg.Archive
	switch cfg.Backend {
	case config.ArchiveHDFS:
		cl, err := storage.NewHDFSClient(cfg.HDFS.Addresses, cfg.HDFS.User)
		if err != nil {
			fallDown(op, err)
		}
		app.storage = storage.NewHDFSEventsRepository(cl, cfg.HDFS.Root)
		app.closeStorage = cl.Close

	default:
		db, err := storage.NewSQLDB(app.ctx, cfg.SQLDB)
		if err != nil {
			fallDown(op, err)
		}
		app.storage = storage.NewEventsRepository(db)
		app.closeStorage = db.Close
	}
}

func (app *Archiver) initCoreService() {
	app.service = service.New(
		catalog.MustLoad(),
		nil,
		nil,
		nil,
		app.storage,
		service.DefaultCheckoutConfig(),
	)
}

func (app *Archiver) initInboundAdapters() {
	const op = "Archiver.initInboundAdapters"

	broker := app.cfg.Broker

	consumer, err := kafka.NewClientEventsConsumer(
		kafka.ConsumerClientOpt(
			broker.SeedBrokers,
			broker.Topics.ClientEvents,
			broker.Consumers.ArchiverGroup,
			app.tlsConfig,
		),
		kafka.ConsumerDecoderOpt(app.serde),
		kafka.ClientEventsConsumerSaverOpt(app.service),
	)
	if err != nil {
		fallDown(op, err)
	}
	app.consumer = consumer

	processor, err := kafka.NewSessionActivityProcessor(
		kafka.SessionActivityProcessorConfig{
			SeedBrokers: broker.SeedBrokers,
			InputTopic:  broker.Topics.ClientEvents,
			Group:       broker.Consumers.SessionActivityGroup,
			Serde:       app.serde,
			TLSConfig:   app.tlsConfig,
			StopFn:      app.stopFn,
		},
	)
	if err != nil {
		fallDown(op, err)
	}
	app.processor = processor
}

func (app *Archiver) Run() {
	app.wg.Add(2)
	go app.consumer.Run(app.ctx, &app.wg)
	go app.processor.Run(app.ctx, &app.wg)

	slog.Info("application is running")
}

func (app *Archiver) Close(ctx context.Context) {
	slog.Info("application is closing...")

	waitGroup(ctx, &app.wg)
	app.consumer.Close()
	app.processor.Close()
	app.closeStorage()

	slog.Info("application is closed")
}
