package storage

// sqlite.go — ResultStore sobre SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `predictions`: una fila por (fecha, ticker), clave primaria natural.
//     El UPSERT cierra el hueco de idempotencia: si un run crashea a mitad
//     de loop y el día se reprocesa, los tickers ya escritos se
//     sobreescriben en vez de duplicarse.
//   - `runs`: resumen ligero por invocación completada (uuid, contadores).
//   - `summary`: vista derivada, regenerada entera en la finalización —
//     nunca mantenida incrementalmente.

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/oraculo/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por ticker-día, sin duplicados
CREATE TABLE IF NOT EXISTS predictions (
    date       TEXT    NOT NULL,
    ticker     TEXT    NOT NULL,
    day_number INTEGER NOT NULL,
    open       REAL    NOT NULL,
    close      REAL    NOT NULL,
    prompt_1   TEXT    NOT NULL,
    prompt_2   TEXT    NOT NULL,
    prompt_3   TEXT    NOT NULL,
    actual     TEXT    NOT NULL,
    p1_correct INTEGER NOT NULL,
    p2_correct INTEGER NOT NULL,
    p3_correct INTEGER NOT NULL,
    written_at DATETIME NOT NULL,
    PRIMARY KEY (date, ticker)
);

-- Resumen ligero por invocación completada
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    date         TEXT    NOT NULL,
    day_number   INTEGER NOT NULL,
    processed    INTEGER NOT NULL,
    skipped      INTEGER NOT NULL,
    completed_at DATETIME NOT NULL
);

-- Vista derivada: se borra y regenera entera al finalizar
CREATE TABLE IF NOT EXISTS summary (
    scope        TEXT    NOT NULL,  -- 'total' o un ticker
    variant      INTEGER NOT NULL,  -- 1-based
    correct      INTEGER NOT NULL,
    total        INTEGER NOT NULL,
    accuracy     REAL    NOT NULL,
    generated_at DATETIME NOT NULL,
    PRIMARY KEY (scope, variant)
);

CREATE INDEX IF NOT EXISTS idx_pred_day    ON predictions(day_number);
CREATE INDEX IF NOT EXISTS idx_pred_ticker ON predictions(ticker);
`

// SQLiteStore implementa ports.ResultStore usando SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRecord hace upsert del registro sobre la clave (fecha, ticker).
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec domain.PredictionRecord) error {
	if len(rec.Predicted) != domain.NumVariants || len(rec.Correct) != domain.NumVariants {
		return fmt.Errorf("storage.SaveRecord: record has %d variants, schema wants %d",
			len(rec.Predicted), domain.NumVariants)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions
			(date, ticker, day_number, open, close,
			 prompt_1, prompt_2, prompt_3, actual,
			 p1_correct, p2_correct, p3_correct, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, ticker) DO UPDATE SET
			day_number = excluded.day_number,
			open       = excluded.open,
			close      = excluded.close,
			prompt_1   = excluded.prompt_1,
			prompt_2   = excluded.prompt_2,
			prompt_3   = excluded.prompt_3,
			actual     = excluded.actual,
			p1_correct = excluded.p1_correct,
			p2_correct = excluded.p2_correct,
			p3_correct = excluded.p3_correct,
			written_at = excluded.written_at`,
		rec.Date.Format(domain.DateLayout), rec.Ticker, rec.DayNumber,
		rec.Open, rec.Close,
		string(rec.Predicted[0]), string(rec.Predicted[1]), string(rec.Predicted[2]),
		string(rec.Actual),
		boolInt(rec.Correct[0]), boolInt(rec.Correct[1]), boolInt(rec.Correct[2]),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRecord: %s/%s: %w",
			rec.Date.Format(domain.DateLayout), rec.Ticker, err)
	}
	return nil
}

// SaveRun registra el resumen de la invocación.
func (s *SQLiteStore) SaveRun(ctx context.Context, run domain.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, date, day_number, processed, skipped, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Date.Format(domain.DateLayout), run.DayNumber,
		run.Processed, run.Skipped, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: %s: %w", run.ID, err)
	}
	return nil
}

// Records devuelve el set completo ordenado por día y ticker.
func (s *SQLiteStore) Records(ctx context.Context) ([]domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, ticker, day_number, open, close,
		       prompt_1, prompt_2, prompt_3, actual,
		       p1_correct, p2_correct, p3_correct
		FROM predictions
		ORDER BY day_number, ticker`)
	if err != nil {
		return nil, fmt.Errorf("storage.Records: query: %w", err)
	}
	defer rows.Close()

	var records []domain.PredictionRecord
	for rows.Next() {
		var (
			rec        domain.PredictionRecord
			dateStr    string
			p1, p2, p3 string
			c1, c2, c3 int
		)
		if err := rows.Scan(&dateStr, &rec.Ticker, &rec.DayNumber, &rec.Open, &rec.Close,
			&p1, &p2, &p3, (*string)(&rec.Actual), &c1, &c2, &c3); err != nil {
			return nil, fmt.Errorf("storage.Records: scan: %w", err)
		}
		if rec.Date, err = domain.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("storage.Records: date %q: %w", dateStr, err)
		}
		rec.Predicted = []domain.Label{domain.Label(p1), domain.Label(p2), domain.Label(p3)}
		rec.Correct = []bool{c1 != 0, c2 != 0, c3 != 0}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HasRecords indica si existe al menos un registro.
func (s *SQLiteStore) HasRecords(ctx context.Context) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM predictions LIMIT 1`).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("storage.HasRecords: %w", err)
	}
	return true, nil
}

// RebuildSummary borra la vista derivada y la regenera desde el agregado.
func (s *SQLiteStore) RebuildSummary(ctx context.Context, sum domain.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RebuildSummary: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM summary`); err != nil {
		return fmt.Errorf("storage.RebuildSummary: clear: %w", err)
	}

	now := time.Now().UTC()
	insert := func(scope string, variant int, st domain.VariantStats) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO summary (scope, variant, correct, total, accuracy, generated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			scope, variant, st.Correct, st.Total, st.Accuracy, now)
		return err
	}

	for k, st := range sum.ByVariant {
		if err := insert("total", k+1, st); err != nil {
			return fmt.Errorf("storage.RebuildSummary: total variant %d: %w", k+1, err)
		}
	}
	for _, ticker := range sum.Tickers {
		for k, st := range sum.ByTicker[ticker] {
			if err := insert(ticker, k+1, st); err != nil {
				return fmt.Errorf("storage.RebuildSummary: %s variant %d: %w", ticker, k+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.RebuildSummary: commit: %w", err)
	}
	return nil
}

// ExportCSV vuelca la tabla de predicciones al archivo dado, con las
// columnas del formato de intercambio.
func (s *SQLiteStore) ExportCSV(ctx context.Context, path string) error {
	records, err := s.Records(ctx)
	if err != nil {
		return fmt.Errorf("storage.ExportCSV: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage.ExportCSV: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"Day #", "Date", "Ticker", "Open", "Close",
		"Prompt 1", "Prompt 2", "Prompt 3", "Actual",
		"P1 correct", "P2 correct", "P3 correct",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("storage.ExportCSV: header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.DayNumber),
			rec.Date.Format(domain.DateLayout),
			rec.Ticker,
			strconv.FormatFloat(rec.Open, 'f', 2, 64),
			strconv.FormatFloat(rec.Close, 'f', 2, 64),
			string(rec.Predicted[0]), string(rec.Predicted[1]), string(rec.Predicted[2]),
			string(rec.Actual),
			checkMark(rec.Correct[0]), checkMark(rec.Correct[1]), checkMark(rec.Correct[2]),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("storage.ExportCSV: row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("storage.ExportCSV: flush: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkMark(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}
