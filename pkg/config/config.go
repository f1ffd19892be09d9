package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the realtime market-data core.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Bus       BusConfig       `mapstructure:"bus"`
	StreamLog StreamLogConfig `mapstructure:"stream_log"`
	Store     StoreConfig     `mapstructure:"store"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`

	// Redis and Kafka retained under their original names. None of the
	// four binaries reads them; they connect through the more specific
	// sections above.
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

// UpstreamConfig describes the upstream market-data feed the Ingest
// Worker connects to.
type UpstreamConfig struct {
	WSURL             string   `mapstructure:"ws_url"`
	Key               string   `mapstructure:"key"`
	Secret            string   `mapstructure:"secret"`
	SubscribedSymbols []string `mapstructure:"subscribed_symbols"`
}

// BusConfig describes the durable bus (Kafka) used between the Ingest
// Worker and the Stream Processor.
type BusConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// StreamLogConfig describes the per-stream log (Redis Streams) endpoint.
// URL takes precedence over Host/Port when set (spec §6/§9).
type StreamLogConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	URL          string `mapstructure:"url"`
	ConsumerName string `mapstructure:"consumer_name"`
}

// Addr resolves the effective Redis address, honoring URL precedence.
func (c StreamLogConfig) Addr() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host != "" {
		return c.Host + ":" + c.Port
	}
	return "localhost:6379"
}

// StoreConfig describes the relational store connection.
type StoreConfig struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	Name        string `mapstructure:"name"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
}

// DSN resolves the effective Postgres connection string, honoring
// DATABASE_URL precedence over the discrete DB_* fields.
func (c StoreConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.Name)
}

// ProcessorConfig tunes the Stream Processor's batching policy.
type ProcessorConfig struct {
	NumWorkers      int `mapstructure:"num_workers"`
	BatchSize       int `mapstructure:"batch_size"`
	FlushIntervalMs int `mapstructure:"flush_interval_ms"`
}

// GatewayConfig tunes the WebSocket Gateway.
type GatewayConfig struct {
	ValidTickers    []string `mapstructure:"valid_tickers"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
	MockRealtime    bool     `mapstructure:"mock_realtime"`
	MockIntervalSec int      `mapstructure:"mock_interval_sec"`
	BroadcastGlobal bool     `mapstructure:"broadcast_global"`
	RestAPIBaseURL  string   `mapstructure:"rest_api_base_url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	// This ensures variables like APP_PORT are available as real env vars
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults (12-Factor App: Dev/Prod Parity)
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("upstream.ws_url", "")
	v.SetDefault("upstream.subscribed_symbols", []string{"AAPL", "GOOG", "TSLA", "AMZN"})

	v.SetDefault("bus.brokers", []string{"localhost:9092"})

	v.SetDefault("stream_log.host", "localhost")
	v.SetDefault("stream_log.port", "6379")
	v.SetDefault("stream_log.consumer_name", "gateway-consumer")

	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", "5432")
	v.SetDefault("store.name", "market")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("processor.num_workers", 4)
	v.SetDefault("processor.batch_size", 100)
	v.SetDefault("processor.flush_interval_ms", 1000)

	v.SetDefault("gateway.valid_tickers", []string{"AAPL", "GOOG", "TSLA", "AMZN"})
	v.SetDefault("gateway.mock_realtime", false)
	v.SetDefault("gateway.mock_interval_sec", 3)
	v.SetDefault("gateway.broadcast_global", false)
	v.SetDefault("gateway.rest_api_base_url", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.group_id", "stock-processor-group")

	// 3. Configure Viper to read Environment Variables
	// This maps dot-notation to underscores (e.g., "app.port" -> "APP_PORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	// Multi-segment keys no longer line up with the literal env var names
	// the configuration contract (spec §6) documents once SetEnvKeyReplacer
	// joins segments with "_" (e.g. "stream_log.host" would auto-derive to
	// STREAM_LOG_HOST, not LOG_HOST), so every key is bound to its exact
	// recognized name here rather than left to the replacer.
	bindEnv(v,
		[2]string{"app.port", "APP_PORT"},
		[2]string{"app.env", "APP_ENV"},
		[2]string{"upstream.ws_url", "UPSTREAM_WS_URL"},
		[2]string{"upstream.key", "UPSTREAM_KEY"},
		[2]string{"upstream.secret", "UPSTREAM_SECRET"},
		[2]string{"upstream.subscribed_symbols", "SUBSCRIBED_SYMBOLS"},
		[2]string{"bus.brokers", "BUS_BROKERS"},
		[2]string{"stream_log.host", "LOG_HOST"},
		[2]string{"stream_log.port", "LOG_PORT"},
		[2]string{"stream_log.url", "LOG_URL"},
		[2]string{"stream_log.consumer_name", "LOG_CONSUMER_NAME"},
		[2]string{"store.host", "DB_HOST"},
		[2]string{"store.port", "DB_PORT"},
		[2]string{"store.name", "DB_NAME"},
		[2]string{"store.user", "DB_USER"},
		[2]string{"store.password", "DB_PASSWORD"},
		[2]string{"store.database_url", "DATABASE_URL"},
		[2]string{"processor.num_workers", "PROCESSOR_NUM_WORKERS"},
		[2]string{"processor.batch_size", "BATCH_SIZE"},
		[2]string{"processor.flush_interval_ms", "FLUSH_INTERVAL_MS"},
		[2]string{"gateway.valid_tickers", "GATEWAY_VALID_TICKERS"},
		[2]string{"gateway.cors_origins", "CORS_ORIGINS"},
		[2]string{"gateway.mock_realtime", "MOCK_REALTIME"},
		[2]string{"gateway.mock_interval_sec", "GATEWAY_MOCK_INTERVAL_SEC"},
		[2]string{"gateway.broadcast_global", "BROADCAST_GLOBAL"},
		[2]string{"gateway.rest_api_base_url", "GATEWAY_REST_API_BASE_URL"},
		[2]string{"redis.addr", "REDIS_ADDR"},
		[2]string{"redis.password", "REDIS_PASSWORD"},
		[2]string{"redis.db", "REDIS_DB"},
		[2]string{"kafka.brokers", "KAFKA_BROKERS"},
		[2]string{"kafka.topic", "KAFKA_TOPIC"},
		[2]string{"kafka.group_id", "KAFKA_GROUP_ID"},
	)

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	// 6. Basic Validation
	if len(cfg.Bus.Brokers) == 0 {
		return nil, fmt.Errorf("bus brokers cannot be empty")
	}

	return &cfg, nil
}

// bindEnv binds each (key, envName) pair explicitly rather than relying
// on SetEnvKeyReplacer's dot-to-underscore derivation, which only
// coincidentally matches single-segment keys.
func bindEnv(v *viper.Viper, pairs ...[2]string) {
	for _, p := range pairs {
		if err := v.BindEnv(p[0], p[1]); err != nil {
			log.Printf("Could not bind env var for key %s: %v", p[0], err)
		}
	}
}
