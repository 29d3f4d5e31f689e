package runner

// runner.go — el ciclo diario del experimento.
//
// Una invocación por día de calendario. El orden de decisiones es el de
// state.Decide: finalizar > completo > mercado cerrado > correr. Dentro
// de un día, los fallos por ticker (fetch) y por variante (predicción)
// se contienen y quedan como datos; run_count solo avanza tras terminar
// el loop completo de tickers.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/alejandrodnm/oraculo/internal/domain"
	"github.com/alejandrodnm/oraculo/internal/ports"
	"github.com/alejandrodnm/oraculo/internal/state"
)

// Config contiene la configuración del runner.
type Config struct {
	Tickers  []string
	LabelSet domain.LabelSet

	// ExportPath es la ruta del CSV que se regenera y adjunta tras cada
	// día. Vacío desactiva el export.
	ExportPath string

	// Schedule es la expresión cron del modo daemon (ej. "30 9 * * *").
	Schedule string

	// Now permite inyectar el reloj en tests. Nil → time.Now.
	Now func() time.Time
}

// Runner orquesta una invocación diaria del experimento con las
// dependencias inyectadas por el constructor.
type Runner struct {
	cfg       Config
	machine   *state.Machine
	prices    ports.PriceProvider
	predictor ports.Predictor
	store     ports.ResultStore
	notifiers []ports.Notifier
}

// New crea un Runner.
func New(
	cfg Config,
	machine *state.Machine,
	prices ports.PriceProvider,
	predictor ports.Predictor,
	store ports.ResultStore,
	notifiers ...ports.Notifier,
) *Runner {
	return &Runner{
		cfg:       cfg,
		machine:   machine,
		prices:    prices,
		predictor: predictor,
		store:     store,
		notifiers: notifiers,
	}
}

func (r *Runner) now() time.Time {
	if r.cfg.Now != nil {
		return r.cfg.Now()
	}
	return time.Now()
}

// RunOnce ejecuta exactamente una invocación diaria.
func (r *Runner) RunOnce(ctx context.Context) error {
	today := domain.Day(r.now())
	action := r.machine.Decide(today)

	slog.Info("daily cycle",
		"date", today.Format(domain.DateLayout),
		"action", action.String(),
		"run_count", r.machine.State().RunCount,
		"max_runs", r.machine.State().MaxRuns,
	)

	switch action {
	case state.ActionFinalize:
		return r.finalize(ctx)
	case state.ActionSkipComplete:
		slog.Info("experiment complete, nothing to do")
		return nil
	case state.ActionSkipNonMarketDay:
		slog.Info("market closed today, skipping")
		return nil
	}
	return r.runDay(ctx, today)
}

// runDay procesa todos los tickers del día y avanza el estado.
func (r *Runner) runDay(ctx context.Context, today time.Time) error {
	dayNumber := r.machine.State().RunCount + 1
	run := domain.RunInfo{
		ID:        uuid.New().String(),
		Date:      today,
		DayNumber: dayNumber,
	}

	slog.Info("day starting", "run_id", run.ID, "day", dayNumber, "tickers", len(r.cfg.Tickers))

	var (
		records []domain.PredictionRecord
		skipped []string
	)
	// orden fijo: el de la configuración
	for _, ticker := range r.cfg.Tickers {
		rec, err := r.processTicker(ctx, ticker, today, dayNumber)
		if err != nil {
			// fallo de fetch o historia insuficiente: sin registro, el
			// run continúa con el resto
			slog.Warn("ticker skipped", "ticker", ticker, "err", err)
			skipped = append(skipped, ticker)
			continue
		}
		if err := r.store.SaveRecord(ctx, rec); err != nil {
			return fmt.Errorf("runner.runDay: save %s: %w", ticker, err)
		}
		records = append(records, rec)
	}

	run.Processed = len(records)
	run.Skipped = len(skipped)

	// persistir run_count SOLO tras el loop completo: un crash antes de
	// esta línea deja el día sin contar y el upsert absorbe el reproceso
	if err := r.machine.MarkRunComplete(); err != nil {
		return fmt.Errorf("runner.runDay: %w", err)
	}

	if err := r.store.SaveRun(ctx, run); err != nil {
		slog.Warn("run summary not saved", "err", err)
	}

	attachment := r.export(ctx)
	day := domain.DayResult{
		Run:            run,
		MaxRuns:        r.machine.State().MaxRuns,
		Records:        records,
		SkippedTickers: skipped,
		Attachment:     attachment,
	}
	for _, n := range r.notifiers {
		if err := n.NotifyDay(ctx, day); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("day complete",
		"run_id", run.ID,
		"day", dayNumber,
		"processed", run.Processed,
		"skipped", run.Skipped,
	)
	return nil
}

// processTicker hace fetch → score → predict para un ticker.
func (r *Runner) processTicker(ctx context.Context, ticker string, today time.Time, dayNumber int) (domain.PredictionRecord, error) {
	obs, err := r.prices.FetchObservation(ctx, ticker)
	if err != nil {
		return domain.PredictionRecord{}, err
	}

	actual := domain.ActualLabel(obs.TodayOpen, obs.YesterdayClose, r.cfg.LabelSet)
	slog.Info("observation",
		"ticker", ticker,
		"open", obs.TodayOpen,
		"close", obs.TodayClose,
		"prev_close", obs.YesterdayClose,
		"actual", string(actual),
	)

	prompts := BuildPrompts(ticker, obs, r.cfg.LabelSet)
	predicted := make([]domain.Label, len(prompts))
	for k, prompt := range prompts {
		raw, err := r.predictor.Predict(ctx, prompt)
		if err != nil {
			// fallo de transporte/API: ERROR, cuenta como incorrecta, el
			// ticker sigue
			slog.Warn("prediction failed", "ticker", ticker, "variant", k+1, "err", err)
			predicted[k] = domain.LabelError
			continue
		}
		predicted[k] = domain.ParseLabel(raw, r.cfg.LabelSet)
		slog.Info("prediction", "ticker", ticker, "variant", k+1, "label", string(predicted[k]))
	}

	rec := domain.PredictionRecord{
		DayNumber: dayNumber,
		Date:      today,
		Ticker:    ticker,
		Open:      obs.TodayOpen,
		Close:     obs.TodayClose,
		Predicted: predicted,
		Actual:    actual,
	}
	rec.Score()
	return rec, nil
}

// finalize produce el informe final una sola vez.
func (r *Runner) finalize(ctx context.Context) error {
	has, err := r.store.HasRecords(ctx)
	if err != nil {
		return fmt.Errorf("runner.finalize: %w", err)
	}
	if !has {
		// abortar sin marcar: la próxima invocación lo reintenta
		slog.Error("cannot finalize: no records collected")
		return nil
	}

	records, err := r.store.Records(ctx)
	if err != nil {
		return fmt.Errorf("runner.finalize: %w", err)
	}
	summary, err := domain.Summarize(records)
	if errors.Is(err, domain.ErrEmptyDataset) {
		slog.Error("cannot finalize: empty dataset")
		return nil
	}
	if err != nil {
		return fmt.Errorf("runner.finalize: %w", err)
	}

	if err := r.store.RebuildSummary(ctx, summary); err != nil {
		return fmt.Errorf("runner.finalize: %w", err)
	}

	attachment := r.export(ctx)

	// marcar ANTES de notificar: el fallo de un notifier nunca es fatal
	// y no debe provocar un segundo informe final mañana
	if err := r.machine.MarkFinalized(); err != nil {
		return fmt.Errorf("runner.finalize: %w", err)
	}

	report := domain.FinalReport{Summary: summary, Attachment: attachment}
	for _, n := range r.notifiers {
		if err := n.NotifyFinal(ctx, report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("final report generated",
		"predictions", summary.TotalPredictions,
		"trading_days", summary.TradingDays,
	)
	return nil
}

// export regenera el CSV de intercambio. Best-effort: un fallo se loguea
// y la notificación sale sin adjunto.
func (r *Runner) export(ctx context.Context) string {
	if r.cfg.ExportPath == "" {
		return ""
	}
	if err := r.store.ExportCSV(ctx, r.cfg.ExportPath); err != nil {
		slog.Warn("csv export failed", "path", r.cfg.ExportPath, "err", err)
		return ""
	}
	return r.cfg.ExportPath
}

// Run ejecuta el modo daemon: una invocación al día según el schedule
// cron, hasta que el contexto se cancele.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(r.cfg.Schedule, func() {
		if err := r.RunOnce(ctx); err != nil {
			slog.Error("daily cycle failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("runner.Run: invalid schedule %q: %w", r.cfg.Schedule, err)
	}

	slog.Info("scheduler starting", "schedule", r.cfg.Schedule)
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	slog.Info("scheduler stopped")
	return nil
}
