package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/oraculo/config"
	"github.com/alejandrodnm/oraculo/internal/adapters/anthropic"
	"github.com/alejandrodnm/oraculo/internal/adapters/notify"
	"github.com/alejandrodnm/oraculo/internal/adapters/storage"
	"github.com/alejandrodnm/oraculo/internal/adapters/yahoo"
	"github.com/alejandrodnm/oraculo/internal/domain"
	"github.com/alejandrodnm/oraculo/internal/runner"
	"github.com/alejandrodnm/oraculo/internal/state"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	daemon := flag.Bool("daemon", false, "stay resident and run on the configured cron schedule")
	report := flag.Bool("report", false, "print the aggregate report and exit (no state mutation)")
	checkModel := flag.Bool("check-model", false, "verify API key and model access, then exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	labelSet, ok := domain.ParseLabelSet(cfg.Experiment.Labels)
	if !ok {
		slog.Error("invalid labels mode", "labels", cfg.Experiment.Labels)
		os.Exit(1)
	}

	if *checkModel {
		runCheckModel(ctx, cfg, labelSet)
		return
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	if *report {
		runReport(ctx, store)
		return
	}

	// validar credenciales ANTES de tocar el archivo de estado
	if err := cfg.ValidateForRun(); err != nil {
		slog.Error("configuration invalid", "err", err)
		os.Exit(1)
	}

	machine, err := loadState(cfg)
	if err != nil {
		slog.Error("failed to load experiment state", "err", err, "path", cfg.Experiment.StateFile)
		os.Exit(1)
	}

	prices := yahoo.NewClient(cfg.Market.BaseURL)
	predictor := anthropic.New(anthropic.Config{
		APIKey:         cfg.Model.APIKey,
		Model:          cfg.Model.Name,
		MaxTokens:      cfg.Model.MaxTokens,
		Temperature:    cfg.Model.Temperature,
		SystemPrompt:   runner.SystemPrompt(labelSet),
		CallsPerMinute: cfg.Model.CallsPerMinute,
	})

	r := runner.New(
		runner.Config{
			Tickers:    cfg.Experiment.Tickers,
			LabelSet:   labelSet,
			ExportPath: cfg.Storage.ExportPath,
			Schedule:   cfg.Experiment.Schedule,
		},
		machine, prices, predictor, store,
		notify.NewConsole(),
		notify.NewMailer(notify.MailConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
			Password: cfg.Mail.Password,
		}),
	)

	slog.Info("oraculo starting",
		"config", *configPath,
		"tickers", len(cfg.Experiment.Tickers),
		"labels", cfg.Experiment.Labels,
		"daemon", *daemon,
	)

	if *daemon {
		if err := r.Run(ctx); err != nil {
			slog.Error("daemon exited with error", "err", err)
			os.Exit(1)
		}
		slog.Info("oraculo stopped cleanly")
		return
	}

	if err := r.RunOnce(ctx); err != nil {
		slog.Error("daily cycle failed", "err", err)
		os.Exit(1)
	}
}

// loadState parsea las fechas del experimento y abre (o inicializa) el
// archivo de estado.
func loadState(cfg *config.Config) (*state.Machine, error) {
	start, err := domain.ParseDate(cfg.Experiment.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := domain.ParseDate(cfg.Experiment.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}
	final, err := domain.ParseDate(cfg.Experiment.FinalReportDate)
	if err != nil {
		return nil, fmt.Errorf("final_report_date: %w", err)
	}

	return state.Load(cfg.Experiment.StateFile, state.State{
		StartDate:       start,
		EndDate:         end,
		FinalReportDate: final,
		MaxRuns:         cfg.Experiment.MaxRuns,
	})
}

// runReport imprime el agregado acumulado sin mutar estado alguno.
func runReport(ctx context.Context, store *storage.SQLiteStore) {
	records, err := store.Records(ctx)
	if err != nil {
		slog.Error("failed to read records", "err", err)
		os.Exit(1)
	}
	summary, err := domain.Summarize(records)
	if err != nil {
		slog.Error("cannot build report", "err", err)
		os.Exit(1)
	}
	notify.NewConsole().PrintSummary(summary)
}

// runCheckModel hace una llamada mínima a la API para verificar key y modelo.
func runCheckModel(ctx context.Context, cfg *config.Config, labelSet domain.LabelSet) {
	if cfg.Model.APIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is not set")
		os.Exit(1)
	}
	client := anthropic.New(anthropic.Config{
		APIKey:       cfg.Model.APIKey,
		Model:        cfg.Model.Name,
		SystemPrompt: runner.SystemPrompt(labelSet),
	})
	model, err := client.CheckModel(ctx)
	if err != nil {
		slog.Error("model check failed", "err", err, "model", cfg.Model.Name)
		os.Exit(1)
	}
	fmt.Printf("OK: responding model %s\n", model)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
