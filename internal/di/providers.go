package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"BondPanel/internal/domain/repository"
	internalrepo "BondPanel/internal/repository"
	"BondPanel/internal/usecase"
	"BondPanel/pkg/cache"
	"BondPanel/pkg/calendar"
	pkgch "BondPanel/pkg/clickhouse"
	"BondPanel/pkg/config"
	pkghttp "BondPanel/pkg/http"
	pkgkafka "BondPanel/pkg/kafka"
	"BondPanel/pkg/logger"
	"BondPanel/pkg/metrics"
	"BondPanel/pkg/scheduler"
	"BondPanel/pkg/server"
	"BondPanel/pkg/sqlite"
)

// Database is the opened backend pool with its SQL flavour.
type Database struct {
	DB      *sql.DB
	Dialect internalrepo.Dialect
}

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideRegistry returns the registry served on the metrics endpoint.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideDatabase opens ClickHouse or SQLite according to backend.type.
func ProvideDatabase(cfg *config.Config, log *logger.Logger) (*Database, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dialect, err := internalrepo.ParseDialect(cfg.Backend.Type)
	if err != nil {
		return nil, nil, err
	}
	switch dialect {
	case internalrepo.ClickHouse:
		client, err := pkgch.NewClient(ctx,
			pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(cfg.Pipeline.Workers+2, cfg.Pipeline.Workers),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		log.Info("clickhouse connected",
			logger.String("host", cfg.ClickHouse.Host),
			logger.String("database", cfg.ClickHouse.Database))
		return &Database{DB: client.DB(), Dialect: dialect}, func() { _ = client.Close() }, nil
	default:
		client, err := sqlite.Open(ctx, cfg.SQLite.Path, cfg.SQLite.BusyTimeout)
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite opened", logger.String("path", cfg.SQLite.Path))
		return &Database{DB: client.DB(), Dialect: dialect}, func() { _ = client.Close() }, nil
	}
}

// ProvideStorage creates the output tables and returns the storage.
func ProvideStorage(db *Database, cfg *config.Config, log *logger.Logger) (repository.Storage, error) {
	store := internalrepo.NewSQLStorage(db.DB, db.Dialect, cfg.Backend.BatchSize, log)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideWarehouse reads raw inputs from the backend. SQLite warehouses
// get their schema created so a fresh file can be loaded directly.
func ProvideWarehouse(db *Database, cfg *config.Config, log *logger.Logger) (*internalrepo.Warehouse, error) {
	wh := internalrepo.NewWarehouse(db.DB, db.Dialect, internalrepo.WarehouseTables{
		Issues:   cfg.Warehouse.IssuesTable,
		Trades:   cfg.Warehouse.TradesTable,
		Curves:   cfg.Warehouse.CurvesTable,
		RiskFree: cfg.Warehouse.RiskFreeTable,
		Ratings:  cfg.Warehouse.RatingsTable,
		Amounts:  cfg.Warehouse.AmountsTable,
	},
		internalrepo.WithQueryRate(cfg.Warehouse.RateLimit, cfg.Warehouse.Burst),
		internalrepo.WithQueryChunk(cfg.Warehouse.QueryChunkSize),
		internalrepo.WithWarehouseLogger(log),
	)
	if db.Dialect == internalrepo.SQLite {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := wh.InitSchema(ctx); err != nil {
			return nil, err
		}
	}
	return wh, nil
}

// ProvideCache returns Redis behind an in-process layer when Redis is
// enabled and a process-local cache otherwise.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
			cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
		)
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.Timeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisLogger(log),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideLocker guards run windows with the cache's locks.
func ProvideLocker(c cache.Service) repository.Locker {
	return c
}

func ProvideReferenceSource(wh *internalrepo.Warehouse, c cache.Service, cfg *config.Config, log *logger.Logger) repository.ReferenceSource {
	return internalrepo.NewCachedReference(wh, c, cfg.Cache.ReferenceTTL, log)
}

// ProvideBenchmarkSource takes the short rate from FRED when enabled.
func ProvideBenchmarkSource(wh *internalrepo.Warehouse, cfg *config.Config) repository.BenchmarkSource {
	if !cfg.FRED.Enabled {
		return wh
	}
	client := pkghttp.NewClient(
		pkghttp.WithTimeout(cfg.FRED.Timeout),
		pkghttp.WithRateLimit(2, 1),
		pkghttp.WithRetry(3, time.Second),
	)
	return internalrepo.NewFREDBenchmark(wh, client, cfg.FRED.BaseURL, cfg.FRED.APIKey, cfg.FRED.Series)
}

func ProvideSources(ref repository.ReferenceSource, wh *internalrepo.Warehouse, bench repository.BenchmarkSource) usecase.Sources {
	return usecase.Sources{Reference: ref, Trades: wh, Benchmark: bench, Credit: wh}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	enc, err := pkgkafka.EncoderFor(cfg.Kafka.Encoding)
	if err != nil {
		return nil, nil, err
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithEncoder(enc),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvidePublisher returns nil unless outputs are published.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil || !cfg.Backend.Publish {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, internalrepo.PublisherTopics{
		CleanTrades: cfg.Kafka.Topics.CleanTrades,
		Daily:       cfg.Kafka.Topics.Daily,
		Factors:     cfg.Kafka.Topics.Factors,
	})
}

func ProvideResultSink(store repository.Storage, pub repository.Publisher, m repository.Metrics, cfg *config.Config) *usecase.ResultSink {
	return usecase.NewResultSink(store, pub, m, pub != nil, cfg.Backend.BatchSize)
}

// ProvidePipelineConfig maps the pipeline section onto stage settings.
func ProvidePipelineConfig(cfg *config.Config) usecase.PipelineConfig {
	p := cfg.Pipeline
	par := make([]usecase.ParRule, len(p.Valuation.ParTable))
	for i, r := range p.Valuation.ParTable {
		par[i] = usecase.ParRule{Par: r.Par, Frequencies: r.Frequencies, Multiplier: r.Multiplier}
	}
	return usecase.PipelineConfig{
		Workers:   p.Workers,
		ChunkSize: p.ChunkSize,
		Reconcile: usecase.ReconcileConfig{
			Cutover:         cfg.CutoverDate(),
			ReversalPolicy:  usecase.ReversalPolicy(p.ReversalPolicy),
			AmbiguityPolicy: usecase.AmbiguityPolicy(p.AmbiguityPolicy),
			SizePriceFilter: p.SizePriceFilter,
			MinVolume:       p.MinVolume,
			MinPrice:        p.MinPrice,
			MaxPrice:        p.MaxPrice,
		},
		Valuation: usecase.ValuationConfig{
			ParTable:   par,
			DefaultPar: p.Valuation.DefaultPar,
			PriceField: p.Valuation.PriceField,
		},
		Monthly: usecase.MonthlyConfig{
			WindowDays: p.Monthly.WindowDays,
			MaxGapDays: p.Monthly.MaxGapDays,
			Base:       usecase.ReturnBase(p.Monthly.Base),
		},
		Liquidity: usecase.LiquidityConfig{
			MaxGapBusinessDays: p.Liquidity.MaxGapBusinessDays,
			MinObservations:    p.Liquidity.MinObservations,
			PSMinObservations:  p.Liquidity.PSMinObservations,
			PSWinsorize:        p.Liquidity.PSWinsorize,
		},
		Panel: usecase.PanelConfig{
			VaR: usecase.VaRConfig{Window: p.VaR.Window, MinObs: p.VaR.MinObs},
		},
		Factors: usecase.FactorConfig{
			Quantiles: p.Factors.Quantiles,
			Weighting: usecase.Weighting(p.Factors.Weighting),
			Return:    usecase.FactorReturn(p.Factors.Return),
		},
		History: time.Duration(p.HistoryMonths) * 31 * 24 * time.Hour,
	}
}

func ProvidePipeline(pcfg usecase.PipelineConfig, src usecase.Sources, sink *usecase.ResultSink, m repository.Metrics, log *logger.Logger) *usecase.Pipeline {
	return usecase.NewPipeline(pcfg, src, sink, m, log, calendar.NYSE(), calendar.Federal())
}

func ProvideRunService(pipe *usecase.Pipeline, lock repository.Locker, cfg *config.Config, log *logger.Logger) *usecase.RunService {
	return usecase.NewRunService(pipe, lock, log, cfg.Cache.LockTTL)
}

// ProvideKafkaConsumer creates the run-request consumer, or nil when Kafka
// is off.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideScheduler(log *logger.Logger) *scheduler.Scheduler {
	return scheduler.New(log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	reg *prometheus.Registry,
	m repository.Metrics,
	store repository.Storage,
	runs *usecase.RunService,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	sched *scheduler.Scheduler,
) *server.App {
	return server.New(server.Deps{
		Config:    cfg,
		Logger:    log,
		Registry:  reg,
		Metrics:   m,
		Storage:   store,
		Runs:      runs,
		Producer:  producer,
		Consumer:  consumer,
		Scheduler: sched,
	})
}
