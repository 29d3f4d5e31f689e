package runner_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/oraculo/internal/adapters/storage"
	"github.com/alejandrodnm/oraculo/internal/domain"
	"github.com/alejandrodnm/oraculo/internal/runner"
	"github.com/alejandrodnm/oraculo/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs deterministas ---

type stubPrices struct {
	obs  map[string]domain.PriceObservation
	fail map[string]error
}

func (s *stubPrices) FetchObservation(_ context.Context, ticker string) (domain.PriceObservation, error) {
	if err, ok := s.fail[ticker]; ok {
		return domain.PriceObservation{}, err
	}
	obs, ok := s.obs[ticker]
	if !ok {
		return domain.PriceObservation{}, domain.ErrInsufficientHistory
	}
	return obs, nil
}

type stubPredictor struct {
	out   string
	err   error
	calls int
}

func (s *stubPredictor) Predict(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

type stubNotifier struct {
	days   []domain.DayResult
	finals []domain.FinalReport
}

func (s *stubNotifier) NotifyDay(_ context.Context, d domain.DayResult) error {
	s.days = append(s.days, d)
	return nil
}

func (s *stubNotifier) NotifyFinal(_ context.Context, r domain.FinalReport) error {
	s.finals = append(s.finals, r)
	return nil
}

// --- fixture ---

func upObservation(ticker string) domain.PriceObservation {
	// apertura por encima del cierre de ayer → actual = UP
	return domain.PriceObservation{
		Ticker:           ticker,
		TodayOpen:        105.00,
		TodayClose:       106.50,
		YesterdayClose:   104.00,
		RecentCloses:     []float64{101.0, 102.5, 104.0},
		HistoricalCloses: []float64{90.0, 95.0, 100.0, 104.0},
	}
}

type fixture struct {
	runner    *runner.Runner
	machine   *state.Machine
	store     *storage.SQLiteStore
	prices    *stubPrices
	predictor *stubPredictor
	notifier  *stubNotifier
	clock     *time.Time
}

func newFixture(t *testing.T, tickers []string, maxRuns int) *fixture {
	t.Helper()

	machine, err := state.Load(filepath.Join(t.TempDir(), "state.json"), state.State{
		StartDate:       mustDate("2026-01-14"),
		EndDate:         mustDate("2026-02-18"),
		FinalReportDate: mustDate("2026-02-19"),
		MaxRuns:         maxRuns,
	})
	require.NoError(t, err)

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	prices := &stubPrices{obs: map[string]domain.PriceObservation{}, fail: map[string]error{}}
	for _, tk := range tickers {
		prices.obs[tk] = upObservation(tk)
	}
	predictor := &stubPredictor{out: "UP"}
	notifier := &stubNotifier{}

	clock := mustDate("2026-01-14") // miércoles, día de mercado
	f := &fixture{
		machine:   machine,
		store:     store,
		prices:    prices,
		predictor: predictor,
		notifier:  notifier,
		clock:     &clock,
	}
	f.runner = runner.New(
		runner.Config{
			Tickers:  tickers,
			LabelSet: domain.TwoLabels,
			Now:      func() time.Time { return *f.clock },
		},
		machine, prices, predictor, store, notifier,
	)
	return f
}

func mustDate(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// --- escenarios ---

func TestRunOnce_EndToEnd(t *testing.T) {
	// dos días de mercado consecutivos con un stub que siempre acierta →
	// run_count 2, dos registros, y la finalización da 100% en todo
	f := newFixture(t, []string{"TSLA"}, 2)
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))
	*f.clock = mustDate("2026-01-15")
	require.NoError(t, f.runner.RunOnce(ctx))

	assert.Equal(t, 2, f.machine.State().RunCount)

	records, err := f.store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].DayNumber)
	assert.Equal(t, 2, records[1].DayNumber)
	assert.Equal(t, domain.LabelUp, records[0].Actual)
	assert.Equal(t, []bool{true, true, true}, records[0].Correct)

	// finalización en la fecha de informe
	*f.clock = mustDate("2026-02-19")
	require.NoError(t, f.runner.RunOnce(ctx))

	assert.True(t, f.machine.State().FinalReportGenerated)
	require.Len(t, f.notifier.finals, 1)
	sum := f.notifier.finals[0].Summary
	assert.Equal(t, 2, sum.TotalPredictions)
	for _, st := range sum.ByVariant {
		assert.InDelta(t, 100.00, st.Accuracy, 0.001)
	}
}

func TestRunOnce_FetchFailureSkipsTicker(t *testing.T) {
	f := newFixture(t, []string{"META", "TSLA"}, 5)
	f.prices.fail["META"] = errors.New("yahoo: connection refused")
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))

	// el día cuenta aunque un ticker fallara: sin registro para META
	assert.Equal(t, 1, f.machine.State().RunCount)
	records, err := f.store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TSLA", records[0].Ticker)

	require.Len(t, f.notifier.days, 1)
	assert.Equal(t, []string{"META"}, f.notifier.days[0].SkippedTickers)
}

func TestRunOnce_PredictionFailureBecomesErrorLabel(t *testing.T) {
	f := newFixture(t, []string{"TSLA"}, 5)
	f.predictor.err = errors.New("anthropic: 529 overloaded")
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))

	records, err := f.store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	for k, p := range records[0].Predicted {
		assert.Equal(t, domain.LabelError, p)
		assert.False(t, records[0].Correct[k])
	}
	// el día se completa igualmente
	assert.Equal(t, 1, f.machine.State().RunCount)
}

func TestRunOnce_UnrecognizedOutputScoredIncorrect(t *testing.T) {
	f := newFixture(t, []string{"TSLA"}, 5)
	f.predictor.out = "I cannot make financial predictions."
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))

	records, err := f.store.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LabelInvalid, records[0].Predicted[0])
	assert.False(t, records[0].Correct[0])
}

func TestRunOnce_NonMarketDayNoMutation(t *testing.T) {
	f := newFixture(t, []string{"TSLA"}, 5)
	*f.clock = mustDate("2026-01-17") // sábado
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))

	assert.Equal(t, 0, f.machine.State().RunCount)
	assert.Zero(t, f.predictor.calls)
	has, err := f.store.HasRecords(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRunOnce_CompleteNoMutation(t *testing.T) {
	f := newFixture(t, []string{"TSLA"}, 1)
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))
	assert.Equal(t, 1, f.machine.State().RunCount)

	// max_runs alcanzado: la siguiente invocación no corre ni muta
	*f.clock = mustDate("2026-01-15")
	require.NoError(t, f.runner.RunOnce(ctx))
	assert.Equal(t, 1, f.machine.State().RunCount)
	assert.Equal(t, 3, f.predictor.calls) // solo las 3 variantes del día 1
}

func TestRunOnce_FinalizeWithoutRecordsAborts(t *testing.T) {
	f := newFixture(t, []string{"TSLA"}, 5)
	*f.clock = mustDate("2026-02-19")
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))

	// sin registros no hay informe y el flag queda sin marcar
	assert.False(t, f.machine.State().FinalReportGenerated)
	assert.Empty(t, f.notifier.finals)
}

func TestRunOnce_FinalizeExactlyOnce(t *testing.T) {
	f := newFixture(t, []string{"TSLA"}, 5)
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))

	*f.clock = mustDate("2026-02-19")
	require.NoError(t, f.runner.RunOnce(ctx))
	require.NoError(t, f.runner.RunOnce(ctx))
	*f.clock = mustDate("2026-02-20")
	require.NoError(t, f.runner.RunOnce(ctx))

	// el informe final se produce una sola vez aunque se reintente
	assert.Len(t, f.notifier.finals, 1)
	assert.True(t, f.machine.State().FinalReportGenerated)
}

func TestRunOnce_ReprocessedDayDoesNotDuplicate(t *testing.T) {
	// simula el crash a mitad de loop: registros escritos sin avance de
	// run_count → reinvocar el mismo día sobreescribe, no duplica
	f := newFixture(t, []string{"TSLA"}, 5)
	ctx := context.Background()

	require.NoError(t, f.runner.RunOnce(ctx))
	require.NoError(t, f.runner.RunOnce(ctx)) // mismo día otra vez

	records, err := f.store.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
