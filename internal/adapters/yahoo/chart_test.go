package yahoo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/oraculo/internal/adapters/yahoo"
	"github.com/alejandrodnm/oraculo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chartJSON construye un payload del endpoint chart con las sesiones dadas.
func chartJSON(opens, closes string) string {
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[1,2,3],
		"indicators":{"quote":[{"open":%s,"close":%s}]}}],"error":null}}`, opens, closes)
}

func TestFetchObservation_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/TSLA", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("range") {
		case "5d":
			fmt.Fprint(w, chartJSON(
				"[100.10, 102.30, 104.567]",
				"[101.50, 103.20, 105.913]",
			))
		case "6mo":
			fmt.Fprint(w, chartJSON(
				"[90.0, 91.0, 92.0, 93.0, 94.0]",
				"[90.5, 91.5, 92.5, 93.5, 94.5]",
			))
		}
	}))
	defer srv.Close()

	client := yahoo.NewClient(srv.URL)
	obs, err := client.FetchObservation(context.Background(), "TSLA")
	require.NoError(t, err)

	assert.Equal(t, "TSLA", obs.Ticker)
	// última sesión, redondeada a 2 decimales
	assert.InDelta(t, 104.57, obs.TodayOpen, 0.001)
	assert.InDelta(t, 105.91, obs.TodayClose, 0.001)
	// penúltimo cierre
	assert.InDelta(t, 103.20, obs.YesterdayClose, 0.001)
	assert.Equal(t, []float64{101.50, 103.20, 105.91}, obs.RecentCloses)
	// 5 sesiones extendidas muestreadas cada 5 → 1 punto < 20 → serie entera
	assert.Equal(t, []float64{90.5, 91.5, 92.5, 93.5, 94.5}, obs.HistoricalCloses)
}

func TestFetchObservation_NullsCompacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// la sesión del medio viene a nulls (halt) y se descarta
		fmt.Fprint(w, chartJSON(
			"[100.0, null, 104.0]",
			"[101.0, null, 105.0]",
		))
	}))
	defer srv.Close()

	client := yahoo.NewClient(srv.URL)
	obs, err := client.FetchObservation(context.Background(), "NVDA")
	require.NoError(t, err)

	assert.InDelta(t, 104.0, obs.TodayOpen, 0.001)
	assert.InDelta(t, 101.0, obs.YesterdayClose, 0.001)
}

func TestFetchObservation_InsufficientHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON("[100.0]", "[101.0]"))
	}))
	defer srv.Close()

	client := yahoo.NewClient(srv.URL)
	_, err := client.FetchObservation(context.Background(), "AMZN")
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestFetchObservation_ChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	client := yahoo.NewClient(srv.URL)
	_, err := client.FetchObservation(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestFetchObservation_ExtendedFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("range") == "6mo" {
			http.Error(w, "boom", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, chartJSON("[100.0, 104.0]", "[101.0, 105.0]"))
	}))
	defer srv.Close()

	client := yahoo.NewClient(srv.URL)
	obs, err := client.FetchObservation(context.Background(), "META")
	require.NoError(t, err)
	// sin serie extendida, los prompts de tendencia usan los cierres recientes
	assert.Equal(t, obs.RecentCloses, obs.HistoricalCloses)
}
