package domain

import "errors"

// ErrInsufficientHistory se devuelve cuando el proveedor no tiene al menos
// dos sesiones para un ticker (imposible derivar apertura vs cierre previo).
var ErrInsufficientHistory = errors.New("domain: insufficient price history")

// PriceObservation es la foto de precios de un ticker para la sesión actual.
type PriceObservation struct {
	Ticker         string
	TodayOpen      float64
	TodayClose     float64
	YesterdayClose float64

	// RecentCloses son los últimos cierres (~10 sesiones), el más reciente al final.
	RecentCloses []float64
	// HistoricalCloses es la serie extendida (~6 meses, muestreo semanal)
	// para los prompts de análisis de tendencia.
	HistoricalCloses []float64
}
