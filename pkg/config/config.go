package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. BONDPANEL_BACKEND.
const EnvPrefix = "BONDPANEL"

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Backend     BackendConfig    `yaml:"backend"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	SQLite      SQLiteConfig     `yaml:"sqlite"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	Cache       CacheConfig      `yaml:"cache"`
	Warehouse   WarehouseConfig  `yaml:"warehouse"`
	FRED        FREDConfig       `yaml:"fred"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
	// CollectTopic receives aggregated error summaries when Kafka is enabled.
	CollectTopic    string        `yaml:"collect_topic" default:"bondpanel.logs"`
	CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	DisableCORS     bool          `yaml:"disable_cors"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

type BackendConfig struct {
	Type      string `yaml:"type" default:"sqlite" validate:"oneof=clickhouse sqlite"`
	BatchSize int    `yaml:"batch_size" default:"5000" validate:"gt=0"`
	// Publish streams clean trades, daily observations and factors to Kafka.
	Publish bool `yaml:"publish"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"bondpanel"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"60s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"60s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"300s"`
}

type SQLiteConfig struct {
	Path        string        `yaml:"path" default:"bondpanel.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" default:"5s"`
}

type KafkaConfig struct {
	Enabled      bool        `yaml:"enabled"`
	Brokers      []string    `yaml:"brokers"`
	Encoding     string      `yaml:"encoding" default:"json" validate:"oneof=json msgpack"`
	RequiredAcks int         `yaml:"required_acks" default:"-1"`
	Compression  string      `yaml:"compression" default:"snappy"`
	Topics       KafkaTopics `yaml:"topics"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"500"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"bondpanel"`
		Workers    int           `yaml:"workers" default:"1"`
		BufferSize int           `yaml:"buffer_size" default:"16"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"bondpanel.run-requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
	} `yaml:"consumer"`
}

type KafkaTopics struct {
	CleanTrades string `yaml:"clean_trades" default:"bondpanel.clean-trades"`
	Daily       string `yaml:"daily" default:"bondpanel.daily"`
	Factors     string `yaml:"factors" default:"bondpanel.factors"`
	RunRequests string `yaml:"run_requests" default:"bondpanel.run-requests"`
}

type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"6379"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size" default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	Timeout      time.Duration `yaml:"timeout" default:"3s"`
	Prefix       string        `yaml:"prefix" default:"bondpanel"`
}

type CacheConfig struct {
	ReferenceTTL time.Duration `yaml:"reference_ttl" default:"24h"`
	MemorySize   int           `yaml:"memory_size" default:"10000"`
	LockTTL      time.Duration `yaml:"lock_ttl" default:"6h"`
	// MemoryTTL caps how long the in-process layer keeps Redis values.
	MemoryTTL       time.Duration `yaml:"memory_ttl" default:"10m"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
}

// WarehouseConfig locates the raw reference, trade, benchmark and credit
// tables read by a run. They live in the configured backend database.
type WarehouseConfig struct {
	IssuesTable    string  `yaml:"issues_table" default:"fisd_issues"`
	TradesTable    string  `yaml:"trades_table" default:"trace_messages"`
	CurvesTable    string  `yaml:"curves_table" default:"benchmark_curves"`
	RiskFreeTable  string  `yaml:"risk_free_table" default:"risk_free"`
	RatingsTable   string  `yaml:"ratings_table" default:"fisd_ratings"`
	AmountsTable   string  `yaml:"amounts_table" default:"fisd_amount_actions"`
	RateLimit      float64 `yaml:"rate_limit" default:"5"`
	Burst          int     `yaml:"burst" default:"1"`
	QueryChunkSize int     `yaml:"query_chunk_size" default:"500" validate:"gt=0"`
}

// FREDConfig enables the risk-free rate from the FRED API instead of the
// warehouse table.
type FREDConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url" default:"https://api.stlouisfed.org"`
	APIKey  string        `yaml:"api_key"`
	Series  string        `yaml:"series" default:"TB3MS"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type ScheduleConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Spec           string `yaml:"spec" default:"0 6 2 * *"`
	TrailingMonths int    `yaml:"trailing_months" default:"3" validate:"gt=0"`
}

type PipelineConfig struct {
	Workers         int     `yaml:"workers" default:"8" validate:"gt=0"`
	ChunkSize       int     `yaml:"chunk_size" default:"500" validate:"gt=0"`
	HistoryMonths   int     `yaml:"history_months" default:"48" validate:"gte=0"`
	Cutover         string  `yaml:"cutover" default:"2012-02-06"`
	ReversalPolicy  string  `yaml:"reversal_policy" default:"strict-fallback" validate:"oneof=strict-fallback price-volume"`
	AmbiguityPolicy string  `yaml:"ambiguity_policy" default:"keep" validate:"oneof=keep discard"`
	SizePriceFilter bool    `yaml:"size_price_filter"`
	MinVolume       float64 `yaml:"min_volume" default:"10000"`
	MinPrice        float64 `yaml:"min_price" default:"5"`
	MaxPrice        float64 `yaml:"max_price" default:"1000"`

	Valuation struct {
		PriceField string         `yaml:"price_field" default:"vw" validate:"oneof=vw ew"`
		DefaultPar float64        `yaml:"default_par" default:"1000" validate:"gt=0"`
		ParTable   []ParRuleEntry `yaml:"par_table" validate:"dive"`
	} `yaml:"valuation"`

	Monthly struct {
		WindowDays int    `yaml:"window_days" default:"5" validate:"gt=0"`
		MaxGapDays int    `yaml:"max_gap_days" default:"31" validate:"gt=0"`
		Base       string `yaml:"base" default:"clean" validate:"oneof=clean dirty"`
	} `yaml:"monthly"`

	Liquidity struct {
		MaxGapBusinessDays int  `yaml:"max_gap_business_days" default:"7" validate:"gt=0"`
		MinObservations    int  `yaml:"min_observations" default:"5" validate:"gt=0"`
		PSMinObservations  int  `yaml:"ps_min_observations" default:"10" validate:"gt=0"`
		PSWinsorize        bool `yaml:"ps_winsorize"`
	} `yaml:"liquidity"`

	VaR struct {
		Window int `yaml:"window" default:"36" validate:"gt=0"`
		MinObs int `yaml:"min_obs" default:"24" validate:"gt=0"`
	} `yaml:"var"`

	Factors struct {
		Quantiles int    `yaml:"quantiles" default:"5" validate:"gt=1"`
		Weighting string `yaml:"weighting" default:"vw" validate:"oneof=vw ew"`
		Return    string `yaml:"return" default:"excess_rf" validate:"oneof=excess_rf duration_adj maturity_adj"`
	} `yaml:"factors"`
}

// ParRuleEntry is one row of the par-value correction table.
type ParRuleEntry struct {
	Par         float64 `yaml:"par" validate:"gt=0"`
	Frequencies []int   `yaml:"frequencies"`
	Multiplier  float64 `yaml:"multiplier" validate:"gt=0"`
}

// envOverrides are read from BONDPANEL_* variables. Unset variables leave
// the file values alone.
type envOverrides struct {
	Environment        string   `envconfig:"ENVIRONMENT"`
	LogLevel           string   `envconfig:"LOG_LEVEL"`
	Backend            string   `envconfig:"BACKEND"`
	Publish            *bool    `envconfig:"PUBLISH"`
	ClickHouseHost     string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePassword string   `envconfig:"CLICKHOUSE_PASSWORD"`
	SQLitePath         string   `envconfig:"SQLITE_PATH"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	RedisHost          string   `envconfig:"REDIS_HOST"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	FREDAPIKey         string   `envconfig:"FRED_API_KEY"`
	Workers            int      `envconfig:"WORKERS"`
}

var validate = validator.New()

// Load reads a YAML configuration file, fills defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load for an in-memory document.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	setString(&c.Environment, env.Environment)
	setString(&c.Log.Level, env.LogLevel)
	setString(&c.Backend.Type, env.Backend)
	setString(&c.ClickHouse.Host, env.ClickHouseHost)
	setString(&c.ClickHouse.Password, env.ClickHousePassword)
	setString(&c.SQLite.Path, env.SQLitePath)
	setString(&c.Redis.Host, env.RedisHost)
	setString(&c.Redis.Password, env.RedisPassword)
	setString(&c.FRED.APIKey, env.FREDAPIKey)
	if env.Publish != nil {
		c.Backend.Publish = *env.Publish
	}
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
	}
	if env.Workers > 0 {
		c.Pipeline.Workers = env.Workers
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks struct tags and the rules spanning several sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", c.Pipeline.Cutover); err != nil {
		return fmt.Errorf("pipeline.cutover: %w", err)
	}
	if (c.Kafka.Enabled || c.Backend.Publish) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka or publishing is enabled")
	}
	if c.Backend.Publish && !c.Kafka.Enabled {
		return fmt.Errorf("backend.publish requires kafka.enabled")
	}
	if c.FRED.Enabled && c.FRED.APIKey == "" {
		return fmt.Errorf("fred.api_key is required when fred is enabled")
	}
	if c.Pipeline.VaR.MinObs > c.Pipeline.VaR.Window {
		return fmt.Errorf("pipeline.var.min_obs must not exceed pipeline.var.window")
	}
	return nil
}

// CutoverDate returns the parsed protocol cutover; Validate guarantees it parses.
func (c *Config) CutoverDate() time.Time {
	t, _ := time.Parse("2006-01-02", c.Pipeline.Cutover)
	return t
}
