package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/TGBox/stat-tracker/pkg/adapters/vision/gemini"
	_ "github.com/TGBox/stat-tracker/pkg/adapters/vision/openai"
	"github.com/TGBox/stat-tracker/pkg/config"
	"github.com/TGBox/stat-tracker/pkg/mcpserver"
	"github.com/TGBox/stat-tracker/pkg/orchestrator"
	"github.com/TGBox/stat-tracker/pkg/otel"
	"github.com/TGBox/stat-tracker/pkg/producer"
	"github.com/TGBox/stat-tracker/pkg/producers/browserhistory"
	"github.com/TGBox/stat-tracker/pkg/producers/holiday"
	"github.com/TGBox/stat-tracker/pkg/producers/location"
	"github.com/TGBox/stat-tracker/pkg/producers/pollen"
	"github.com/TGBox/stat-tracker/pkg/producers/shopping"
	"github.com/TGBox/stat-tracker/pkg/producers/weather"
	"github.com/TGBox/stat-tracker/pkg/store"
	"github.com/TGBox/stat-tracker/pkg/store/entstore"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the exit code. Producer failures
// never change the exit code; only configuration and store failures do.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stat-tracker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  string
		showVersion bool
		list        bool
		serveMCP    bool
	)
	fs.StringVar(&configPath, "config", os.Getenv("STAT_TRACKER_CONFIG"), "path to a YAML configuration file")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.BoolVar(&list, "list", false, "print stored events as JSON lines and exit")
	fs.BoolVar(&serveMCP, "mcp", false, "serve the MCP query server on stdio")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "stat-tracker %s (commit=%s, date=%s)\n", version, commit, date)
		return 0
	}

	logger := log.New(stderr, "stat-tracker: ", log.LstdFlags|log.Lmsgprefix)
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("invalid configuration: %v", err)
		return 1
	}

	shutdown, err := otel.Init(ctx, otel.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Stdout:         cfg.Telemetry.Stdout,
		Writer:         stderr,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		logger.Printf("warning: tracing disabled: %v", err)
	} else {
		defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()
	}

	st, err := entstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("open event store: %v", err)
		return 1
	}
	defer func() { _ = st.Close() }()
	if err := st.Init(ctx); err != nil {
		logger.Printf("initialize event store: %v", err)
		return 1
	}

	if list {
		if err := listEvents(ctx, st, stdout); err != nil {
			logger.Printf("list events: %v", err)
			return 1
		}
		return 0
	}

	producers := registry(cfg, logger).Discover(ctx, logger)
	reg := prometheus.NewRegistry()
	metrics, err := orchestrator.NewMetrics(reg)
	if err != nil {
		logger.Printf("warning: metrics disabled: %v", err)
	}
	orch := orchestrator.New(st, producers, orchestrator.WithLogger(logger), orchestrator.WithMetrics(metrics))

	if serveMCP {
		if err := mcpserver.New(st, orch, version).ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("mcp server: %v", err)
		}
		return 0
	}

	rep, err := orch.Run(ctx)
	if err != nil {
		logger.Printf("run %s interrupted: %v", rep.RunID, err)
	}
	logger.Printf("run %s: %d producer(s), %d event(s) written", rep.RunID, len(rep.Results), rep.Written())

	if path := cfg.Telemetry.MetricsFile; path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			logger.Printf("warning: writing metrics to %s: %v", path, err)
		}
	}
	return 0
}

// registry lists every tracking module in the order they run.
func registry(cfg config.Config, logger *log.Logger) *producer.Registry {
	r := producer.NewRegistry()
	r.MustRegister(weather.Name, weather.Factory(cfg, logger))
	r.MustRegister(pollen.Name, pollen.Factory(cfg, logger))
	r.MustRegister(holiday.Name, holiday.Factory(cfg, logger))
	r.MustRegister(shopping.Name, shopping.Factory(cfg, logger))
	r.MustRegister(browserhistory.Name, browserhistory.Factory(cfg, logger))
	r.MustRegister(location.Name, location.Factory(cfg))
	return r
}

func listEvents(ctx context.Context, st store.EventStore, w io.Writer) error {
	events, err := st.List(ctx, store.ListOptions{})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}
