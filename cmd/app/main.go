package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"BondPanel/internal/di"
	"BondPanel/internal/domain/models"
	"BondPanel/pkg/config"
	"BondPanel/pkg/util"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", "serve", "serve or run")
	from := flag.String("from", "", "first trade date of a batch run (YYYY-MM-DD)")
	to := flag.String("to", "", "last trade date of a batch run (YYYY-MM-DD)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("env=%s backend=%s mode=%s", cfg.Environment, cfg.Backend.Type, *mode)

	var req models.RunRequest
	if *mode == "run" {
		var ok bool
		if req.From, ok = util.ParseDate(*from); !ok {
			log.Fatalf("invalid -from %q", *from)
		}
		if req.To, ok = util.ParseDate(*to); !ok {
			log.Fatalf("invalid -to %q", *to)
		}
		if req.To.Before(req.From) {
			log.Fatalf("-to %s is before -from %s", *to, *from)
		}
	} else if *mode != "serve" {
		log.Fatalf("unknown mode %q", *mode)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	if *mode == "run" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		report, err := app.RunOnce(ctx, req)
		if err != nil || report.Status != models.RunSucceeded {
			log.Printf("run %s ended %s: %v", report.ID, report.Status, err)
			cleanup()
			os.Exit(1)
		}
		return
	}

	if err := app.Serve(); err != nil {
		log.Printf("app error: %v", err)
		cleanup()
		os.Exit(1)
	}
}
