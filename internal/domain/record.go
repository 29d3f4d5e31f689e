package domain

import "time"

// NumVariants es el número de variantes de prompt por ticker-día.
// El esquema tabular del store (Prompt 1..N) está fijado a este valor.
const NumVariants = 3

// PredictionRecord es una fila del experimento: un ticker, un día, todas
// las variantes de prompt. Append-only; la clave natural es (Date, Ticker).
type PredictionRecord struct {
	DayNumber int       // secuencial 1-based, igual para todos los tickers del día
	Date      time.Time // día de la sesión, normalizado con Day()
	Ticker    string

	Open  float64 // apertura de hoy
	Close float64 // cierre de hoy

	Predicted []Label // una por variante de prompt, en orden
	Actual    Label
	Correct   []bool // derivado: Predicted[k] == Actual
}

// Score rellena Correct a partir de Predicted y Actual.
func (r *PredictionRecord) Score() {
	r.Correct = make([]bool, len(r.Predicted))
	for k, p := range r.Predicted {
		r.Correct[k] = IsCorrect(p, r.Actual)
	}
}

// RunInfo resume una invocación diaria completada (una fila por run).
type RunInfo struct {
	ID        string // uuid de la invocación
	Date      time.Time
	DayNumber int
	Processed int // tickers con registro escrito
	Skipped   int // tickers omitidos por fallo de fetch / historia insuficiente
}

// DayResult es lo que se notifica tras un día completado.
type DayResult struct {
	Run            RunInfo
	MaxRuns        int
	Records        []PredictionRecord
	SkippedTickers []string
	Attachment     string // ruta al export CSV, vacío si no se generó
}

// FinalReport es lo que se notifica al cerrar el experimento.
type FinalReport struct {
	Summary    Summary
	Attachment string
}
