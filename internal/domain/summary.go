package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrEmptyDataset: agregar sin registros es un error, nunca una división
// por cero silenciosa.
var ErrEmptyDataset = errors.New("domain.Summarize: empty dataset")

// VariantStats es la precisión de una variante de prompt sobre un subconjunto.
type VariantStats struct {
	Correct  int
	Total    int
	Accuracy float64 // porcentaje, redondeado a 2 decimales
}

// Summary es la proyección de solo-lectura sobre el set completo de registros.
type Summary struct {
	TotalPredictions int
	TradingDays      int
	FirstDate        time.Time
	LastDate         time.Time

	ByVariant []VariantStats
	Tickers   []string // orden determinista para render
	ByTicker  map[string][]VariantStats
}

// Summarize calcula precisión por variante y por ticker-variante.
// Requiere al menos un registro; no posee estado propio.
func Summarize(records []PredictionRecord) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrEmptyDataset
	}

	variants := len(records[0].Correct)
	for _, r := range records {
		if len(r.Correct) != variants {
			return Summary{}, fmt.Errorf("domain.Summarize: record %s/%s has %d variants, want %d",
				r.Date.Format(DateLayout), r.Ticker, len(r.Correct), variants)
		}
	}

	s := Summary{
		TotalPredictions: len(records),
		ByVariant:        make([]VariantStats, variants),
		ByTicker:         make(map[string][]VariantStats),
	}

	days := make(map[int]struct{})
	byTickerCount := make(map[string]int)

	for _, r := range records {
		days[r.DayNumber] = struct{}{}
		if s.FirstDate.IsZero() || r.Date.Before(s.FirstDate) {
			s.FirstDate = r.Date
		}
		if r.Date.After(s.LastDate) {
			s.LastDate = r.Date
		}

		if _, ok := s.ByTicker[r.Ticker]; !ok {
			s.ByTicker[r.Ticker] = make([]VariantStats, variants)
			s.Tickers = append(s.Tickers, r.Ticker)
		}
		byTickerCount[r.Ticker]++

		for k, ok := range r.Correct {
			s.ByVariant[k].Total++
			s.ByTicker[r.Ticker][k].Total++
			if ok {
				s.ByVariant[k].Correct++
				s.ByTicker[r.Ticker][k].Correct++
			}
		}
	}

	s.TradingDays = len(days)
	sort.Strings(s.Tickers)

	for k := range s.ByVariant {
		s.ByVariant[k].Accuracy = accuracyPct(s.ByVariant[k].Correct, s.ByVariant[k].Total)
	}
	for _, stats := range s.ByTicker {
		for k := range stats {
			stats[k].Accuracy = accuracyPct(stats[k].Correct, stats[k].Total)
		}
	}

	return s, nil
}

// accuracyPct devuelve correct/total como porcentaje con 2 decimales.
// Los llamantes garantizan total > 0 (guard de ErrEmptyDataset).
func accuracyPct(correct, total int) float64 {
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}
