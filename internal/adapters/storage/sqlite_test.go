package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/oraculo/internal/adapters/storage"
	"github.com/alejandrodnm/oraculo/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(day int, date, ticker string, actual domain.Label) domain.PredictionRecord {
	d, _ := domain.ParseDate(date)
	rec := domain.PredictionRecord{
		DayNumber: day,
		Date:      d,
		Ticker:    ticker,
		Open:      412.30,
		Close:     415.87,
		Predicted: []domain.Label{domain.LabelUp, domain.LabelDown, domain.LabelError},
		Actual:    actual,
	}
	rec.Score()
	return rec
}

func TestSQLiteStore_SaveAndRead(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRecord(ctx, makeRecord(1, "2026-01-14", "TSLA", domain.LabelUp)))
	require.NoError(t, db.SaveRecord(ctx, makeRecord(1, "2026-01-14", "NVDA", domain.LabelDown)))

	records, err := db.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// ordenados por día y ticker
	assert.Equal(t, "NVDA", records[0].Ticker)
	assert.Equal(t, "TSLA", records[1].Ticker)

	r := records[1]
	assert.Equal(t, 1, r.DayNumber)
	assert.Equal(t, "2026-01-14", r.Date.Format(domain.DateLayout))
	assert.InDelta(t, 412.30, r.Open, 0.001)
	assert.InDelta(t, 415.87, r.Close, 0.001)
	assert.Equal(t, []domain.Label{domain.LabelUp, domain.LabelDown, domain.LabelError}, r.Predicted)
	assert.Equal(t, domain.LabelUp, r.Actual)
	assert.Equal(t, []bool{true, false, false}, r.Correct)
}

func TestSQLiteStore_UpsertDedup(t *testing.T) {
	// reprocesar el mismo ticker-día sobreescribe, nunca duplica
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRecord(ctx, makeRecord(1, "2026-01-14", "TSLA", domain.LabelUp)))

	rewritten := makeRecord(1, "2026-01-14", "TSLA", domain.LabelDown)
	require.NoError(t, db.SaveRecord(ctx, rewritten))

	records, err := db.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.LabelDown, records[0].Actual)
}

func TestSQLiteStore_HasRecords(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	has, err := db.HasRecords(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, db.SaveRecord(ctx, makeRecord(1, "2026-01-14", "TSLA", domain.LabelUp)))
	has, err = db.HasRecords(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSQLiteStore_WrongVariantCountRejected(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	rec := makeRecord(1, "2026-01-14", "TSLA", domain.LabelUp)
	rec.Predicted = rec.Predicted[:2]
	rec.Correct = rec.Correct[:2]
	assert.Error(t, db.SaveRecord(context.Background(), rec))
}

func TestSQLiteStore_SaveRun(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	run := domain.RunInfo{
		ID:        uuid.New().String(),
		Date:      time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
		DayNumber: 1,
		Processed: 4,
		Skipped:   1,
	}
	require.NoError(t, db.SaveRun(context.Background(), run))

	// mismo id dos veces → violación de PK
	assert.Error(t, db.SaveRun(context.Background(), run))
}

func TestSQLiteStore_RebuildSummary(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRecord(ctx, makeRecord(1, "2026-01-14", "TSLA", domain.LabelUp)))
	require.NoError(t, db.SaveRecord(ctx, makeRecord(2, "2026-01-15", "TSLA", domain.LabelUp)))

	records, err := db.Records(ctx)
	require.NoError(t, err)
	sum, err := domain.Summarize(records)
	require.NoError(t, err)

	// regenerar dos veces no acumula filas
	require.NoError(t, db.RebuildSummary(ctx, sum))
	require.NoError(t, db.RebuildSummary(ctx, sum))
}

func TestSQLiteStore_ExportCSV(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRecord(ctx, makeRecord(1, "2026-01-14", "TSLA", domain.LabelUp)))

	path := filepath.Join(t.TempDir(), "predictions.csv")
	require.NoError(t, db.ExportCSV(ctx, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "Day #,Date,Ticker,Open,Close,Prompt 1,Prompt 2,Prompt 3,Actual,P1 correct,P2 correct,P3 correct", lines[0])
	assert.Equal(t, "1,2026-01-14,TSLA,412.30,415.87,UP,DOWN,ERROR,UP,✓,✗,✗", lines[1])
}
