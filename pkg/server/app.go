package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"BondPanel/internal/domain/models"
	"BondPanel/internal/domain/repository"
	"BondPanel/internal/handler/api"
	"BondPanel/internal/usecase"
	"BondPanel/pkg/config"
	xhttp "BondPanel/pkg/http"
	pkgkafka "BondPanel/pkg/kafka"
	"BondPanel/pkg/logger"
	"BondPanel/pkg/scheduler"
)

// Deps are the wired collaborators of an App. Producer and Consumer are nil
// when Kafka is disabled.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *prometheus.Registry
	Metrics   repository.Metrics
	Storage   repository.Storage
	Runs      *usecase.RunService
	Producer  *pkgkafka.Producer
	Consumer  *pkgkafka.Consumer
	Scheduler *scheduler.Scheduler
}

// App encapsulates the application lifecycle in both modes: a one-shot
// batch run and the long-running service.
type App struct {
	Deps
	httpServer *xhttp.Server
}

func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &App{Deps: d}
}

// RunOnce executes a single run over req in the foreground.
func (a *App) RunOnce(ctx context.Context, req models.RunRequest) (models.RunReport, error) {
	a.Logger.Info("batch run",
		logger.Date("from", req.From),
		logger.Date("to", req.To))
	report, err := a.Runs.RunSync(ctx, req)
	if err != nil {
		return report, err
	}
	a.Logger.Info("batch run finished",
		logger.String("run_id", report.ID),
		logger.String("status", string(report.Status)))
	return report, nil
}

// Serve starts the HTTP API, the run-request consumer and the schedule,
// then blocks until SIGINT or SIGTERM.
func (a *App) Serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.Producer != nil && a.Config.Log.CollectTopic != "" {
		a.Logger.AddCollector(&logger.CollectionConfig{
			TimeInterval:   a.Config.Log.CollectInterval,
			CountThreshold: 100,
			Topic:          a.Config.Log.CollectTopic,
			Publisher:      a.Producer,
		})
		defer a.Logger.RemoveCollector()
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.Config.Server.Port),
		xhttp.WithTimeouts(a.Config.Server.ReadTimeout, a.Config.Server.WriteTimeout, a.Config.Server.ShutdownTimeout),
		xhttp.WithCORS(!a.Config.Server.DisableCORS),
	}
	if a.Config.Metrics.Enabled && a.Registry != nil {
		opts = append(opts, xhttp.WithMetrics(a.Config.Metrics.Path, a.Registry))
	}
	handler := api.NewPipelineEchoHandler(ctx, a.Logger, a.Runs, a.Storage)
	a.httpServer = xhttp.NewServer(a.Logger, handler, opts...)

	if a.Consumer != nil {
		a.Consumer.RegisterHandler(usecase.NewRunRequestHandler(ctx, a.Config.Kafka.Topics.RunRequests, a.Runs, a.Metrics, a.Logger))
		a.Consumer.WithConsumerHook(pkgkafka.HookFuncs{
			After: func(_ context.Context, km kafka.Message, err error) {
				a.Logger.Debug("run request consumed",
					logger.Int("partition", km.Partition),
					logger.Int64("offset", km.Offset),
					logger.Bool("ok", err == nil))
			},
		})
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	if a.Config.Schedule.Enabled && a.Scheduler != nil {
		job := usecase.NewTrailingRunJob(a.Runs, a.Config.Schedule.TrailingMonths, a.Logger)
		if err := a.Scheduler.AddJob(a.Config.Schedule.Spec, job); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		a.Scheduler.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	a.Logger.Info("shutdown signal received", logger.String("signal", sig.String()))

	cancel()
	return a.shutdown()
}

// shutdown stops intake first, then waits for cancelled runs to unwind.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+time.Second)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.Logger.Error("http shutdown", logger.Error(err))
	}
	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.Logger.Warn("kafka consumer stop", logger.Error(err))
		}
	}
	if a.Config.Schedule.Enabled && a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			a.Logger.Warn("scheduler stop", logger.Error(err))
		}
	}
	if err := a.Runs.Wait(ctx); err != nil {
		a.Logger.Warn("runs still in flight at shutdown", logger.Error(err))
	}
	a.Logger.Info("shutdown complete")
	return nil
}
