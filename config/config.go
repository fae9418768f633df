package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "PARENTSHOP_CONFIG_FILE"
	envPrefix         = "PARENTSHOP"
)

const (
	SinkKafka   = "kafka"
	SinkSegment = "segment"
	SinkNone    = "none"

	ArchivePostgres = "postgres"
	ArchiveHDFS     = "hdfs"
)

type eventsRate struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type httpServer struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	EventsRate     eventsRate    `mapstructure:"events_rate"`
}

type checkout struct {
	RedirectURL   string        `mapstructure:"redirect_url"`
	RedirectDelay time.Duration `mapstructure:"redirect_delay"`
}

type segment struct {
	WriteKey  string        `mapstructure:"write_key"`
	Endpoint  string        `mapstructure:"endpoint"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type analytics struct {
	Sink      string  `mapstructure:"sink"`
	QueueSize int     `mapstructure:"queue_size"`
	Segment   segment `mapstructure:"segment"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

// Enabled reports whether all TLS files are set.
func (t tlsFiles) Enabled() bool {
	return t.CA != "" && t.Cert != "" && t.Key != ""
}

type topics struct {
	ClientEvents      string `mapstructure:"client_events"`
	Partitions        int32  `mapstructure:"partitions"`
	ReplicationFactor int16  `mapstructure:"replication_factor"`
}

type consumers struct {
	ArchiverGroup        string `mapstructure:"archiver_group"`
	SessionActivityGroup string `mapstructure:"session_activity_group"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	TLS                tlsFiles  `mapstructure:"tls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

type hdfsArchive struct {
	Addresses []string `mapstructure:"addresses"`
	User      string   `mapstructure:"user"`
	Root      string   `mapstructure:"root"`
}

type archive struct {
	Backend string      `mapstructure:"backend"`
	SQLDB   string      `mapstructure:"sql_db"`
	HDFS    hdfsArchive `mapstructure:"hdfs"`
}

type Config struct {
	LogLevel  slog.Level `mapstructure:"log_level"`
	HTTP      httpServer `mapstructure:"http"`
	Checkout  checkout   `mapstructure:"checkout"`
	Analytics analytics  `mapstructure:"analytics"`
	Broker    broker     `mapstructure:"broker"`
	Archive   archive    `mapstructure:"archive"`
}

// Load reads the config file named by the --config flag or the
// PARENTSHOP_CONFIG_FILE env. The process exits with status 2 on failure.
func Load() Config {
	cfg, err := LoadFrom(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFrom reads the config file at path. PARENTSHOP_ prefixed env
// variables override file values, e.g. PARENTSHOP_HTTP_ADDR. An empty path
// loads defaults and env only.
func LoadFrom(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", 5*time.Second)
	v.SetDefault("http.session_ttl", 24*time.Hour)
	v.SetDefault("http.events_rate.per_second", 10.0)
	v.SetDefault("http.events_rate.burst", 20)

	v.SetDefault("checkout.redirect_url", "checkout.html")
	v.SetDefault("checkout.redirect_delay", time.Second)

	v.SetDefault("analytics.sink", SinkKafka)
	v.SetDefault("analytics.queue_size", 256)
	v.SetDefault("analytics.segment.write_key", "")
	v.SetDefault("analytics.segment.endpoint", "")
	v.SetDefault("analytics.segment.interval", 5*time.Second)
	v.SetDefault("analytics.segment.batch_size", 250)

	v.SetDefault("broker.seed_brokers", []string{"localhost:9094"})
	v.SetDefault("broker.schema_registry_urls", []string{"http://localhost:8081"})
	v.SetDefault("broker.tls.ca", "")
	v.SetDefault("broker.tls.cert", "")
	v.SetDefault("broker.tls.key", "")
	v.SetDefault("broker.topics.client_events", "client-events")
	v.SetDefault("broker.topics.partitions", 3)
	v.SetDefault("broker.topics.replication_factor", 1)
	v.SetDefault("broker.consumers.archiver_group", "client-events-archiver")
	v.SetDefault("broker.consumers.session_activity_group", "session-activity")

	v.SetDefault("archive.backend", ArchivePostgres)
	v.SetDefault("archive.sql_db", "")
	v.SetDefault("archive.hdfs.addresses", []string{"localhost:9000"})
	v.SetDefault("archive.hdfs.user", "parentshop")
	v.SetDefault("archive.hdfs.root", "/client-events")
}

func (c Config) validate() error {
	var errs []error

	if !slices.Contains([]string{SinkKafka, SinkSegment, SinkNone}, c.Analytics.Sink) {
		errs = append(errs, fmt.Errorf("analytics.sink: unknown sink %q", c.Analytics.Sink))
	}
	if c.Analytics.Sink == SinkSegment && c.Analytics.Segment.WriteKey == "" {
		errs = append(errs, errors.New("analytics.segment.write_key: required for segment sink"))
	}
	if !slices.Contains([]string{ArchivePostgres, ArchiveHDFS}, c.Archive.Backend) {
		errs = append(errs, fmt.Errorf("archive.backend: unknown backend %q", c.Archive.Backend))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout: must be positive"))
	}
	if c.HTTP.EventsRate.PerSecond <= 0 || c.HTTP.EventsRate.Burst <= 0 {
		errs = append(errs, errors.New("http.events_rate: must be positive"))
	}
	if len(c.Broker.SeedBrokers) == 0 {
		errs = append(errs, errors.New("broker.seed_brokers: required"))
	}

	return errors.Join(errs...)
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q

	HTTP:
	Addr=%q
	RequestTimeout=%s
	SessionTTL=%s
	EventsRate=%v/s burst %d

	Checkout:
	RedirectURL=%q
	RedirectDelay=%s

	Analytics:
	Sink=%q
	QueueSize=%d
	SegmentEndpoint=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	Topics:
		ClientEvents=%q
	Consumers:
		ArchiverGroup=%q
		SessionActivityGroup=%q

	Archive:
	Backend=%q
	HDFSAddresses=%q
	HDFSRoot=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTP.Addr,
		c.HTTP.RequestTimeout,
		c.HTTP.SessionTTL,
		c.HTTP.EventsRate.PerSecond,
		c.HTTP.EventsRate.Burst,
		c.Checkout.RedirectURL,
		c.Checkout.RedirectDelay,
		c.Analytics.Sink,
		c.Analytics.QueueSize,
		c.Analytics.Segment.Endpoint,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.Enabled(),
		c.Broker.Topics.ClientEvents,
		c.Broker.Consumers.ArchiverGroup,
		c.Broker.Consumers.SessionActivityGroup,
		c.Archive.Backend,
		c.Archive.HDFS.Addresses,
		c.Archive.HDFS.Root,
	)
}
