package yahoo

// chart.go — endpoint /v8/finance/chart y mapeo a domain.PriceObservation.
//
// Dos peticiones por ticker, como series separadas:
//   - range=5d:  apertura/cierre de hoy, cierre de ayer, cierres recientes
//   - range=6mo: serie extendida para los prompts de tendencia
// Los arrays del chart pueden traer nulls (sesiones a medias, halts);
// se compactan antes de mapear.

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

const (
	recentRange   = "5d"
	extendedRange = "6mo"

	// cierres recientes que se incluyen en los prompts
	recentCloses = 10
	// muestreo de la serie extendida: 1 de cada 5 sesiones (~semanal)
	sampleEvery = 5
	// mínimo de puntos tras muestrear; por debajo se usa la serie entera
	minSampled = 20
)

// chartResponse es el envelope del endpoint chart.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// session es una sesión diaria ya compactada (open y close presentes).
type session struct {
	open  float64
	close float64
}

// FetchObservation implementa ports.PriceProvider.
func (c *Client) FetchObservation(ctx context.Context, ticker string) (domain.PriceObservation, error) {
	recent, err := c.fetchSessions(ctx, ticker, recentRange)
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("yahoo.FetchObservation: %s: %w", ticker, err)
	}
	if len(recent) < 2 {
		return domain.PriceObservation{}, fmt.Errorf("yahoo.FetchObservation: %s: %w", ticker, domain.ErrInsufficientHistory)
	}

	obs := domain.PriceObservation{
		Ticker:         ticker,
		TodayOpen:      round2(recent[len(recent)-1].open),
		TodayClose:     round2(recent[len(recent)-1].close),
		YesterdayClose: round2(recent[len(recent)-2].close),
		RecentCloses:   lastCloses(recent, recentCloses),
	}

	// La serie extendida es best-effort: si falla, los prompts de tendencia
	// usan los cierres recientes.
	extended, err := c.fetchSessions(ctx, ticker, extendedRange)
	if err != nil || len(extended) == 0 {
		obs.HistoricalCloses = obs.RecentCloses
		return obs, nil
	}
	obs.HistoricalCloses = sampleCloses(extended)
	return obs, nil
}

// fetchSessions pide el chart para un rango y compacta las sesiones válidas.
func (c *Client) fetchSessions(ctx context.Context, ticker, rng string) ([]session, error) {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", "1d")

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart result")
	}

	quote := resp.Chart.Result[0].Indicators.Quote[0]
	n := min(len(quote.Open), len(quote.Close))

	sessions := make([]session, 0, n)
	for i := 0; i < n; i++ {
		if quote.Open[i] == nil || quote.Close[i] == nil {
			continue
		}
		sessions = append(sessions, session{open: *quote.Open[i], close: *quote.Close[i]})
	}
	return sessions, nil
}

// lastCloses devuelve los últimos n cierres, redondeados, el más reciente al final.
func lastCloses(sessions []session, n int) []float64 {
	if len(sessions) > n {
		sessions = sessions[len(sessions)-n:]
	}
	closes := make([]float64, len(sessions))
	for i, s := range sessions {
		closes[i] = round2(s.close)
	}
	return closes
}

// sampleCloses muestrea la serie extendida a ~1 punto por semana.
// Si quedan menos de minSampled puntos, devuelve la serie completa.
func sampleCloses(sessions []session) []float64 {
	var sampled []float64
	for i := 0; i < len(sessions); i += sampleEvery {
		sampled = append(sampled, round2(sessions[i].close))
	}
	if len(sampled) < minSampled {
		all := make([]float64, len(sessions))
		for i, s := range sessions {
			all[i] = round2(s.close)
		}
		return all
	}
	return sampled
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
