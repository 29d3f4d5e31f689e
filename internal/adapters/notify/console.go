package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/oraculo/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo tablas a stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifyDay imprime la tabla de registros del día.
func (c *Console) NotifyDay(_ context.Context, day domain.DayResult) error {
	fmt.Fprintf(c.out, "\n[%s] DAY %d of %d — %s\n",
		time.Now().Format("15:04:05"),
		day.Run.DayNumber, day.MaxRuns,
		day.Run.Date.Format(domain.DateLayout))

	table := tablewriter.NewWriter(c.out)
	table.Header("Ticker", "Open", "Close", "P1", "P2", "P3", "Actual", "Hits")

	for _, rec := range day.Records {
		hits := 0
		for _, ok := range rec.Correct {
			if ok {
				hits++
			}
		}
		table.Append(
			rec.Ticker,
			fmt.Sprintf("$%.2f", rec.Open),
			fmt.Sprintf("$%.2f", rec.Close),
			string(rec.Predicted[0]),
			string(rec.Predicted[1]),
			string(rec.Predicted[2]),
			string(rec.Actual),
			fmt.Sprintf("%d/%d", hits, len(rec.Correct)),
		)
	}
	table.Render()

	if len(day.SkippedTickers) > 0 {
		fmt.Fprintf(c.out, "  skipped (no data): %v\n", day.SkippedTickers)
	}
	return nil
}

// NotifyFinal imprime el resumen final: precisión por variante y por ticker.
func (c *Console) NotifyFinal(_ context.Context, report domain.FinalReport) error {
	c.PrintSummary(report.Summary)
	return nil
}

// PrintSummary renderiza un agregado; lo usa también el modo -report.
func (c *Console) PrintSummary(s domain.Summary) {
	fmt.Fprintf(c.out, "\n=== EXPERIMENT RESULTS ===\n")
	fmt.Fprintf(c.out, "  Period: %s to %s\n",
		s.FirstDate.Format(domain.DateLayout), s.LastDate.Format(domain.DateLayout))
	fmt.Fprintf(c.out, "  Predictions: %d | Trading days: %d\n\n", s.TotalPredictions, s.TradingDays)

	table := tablewriter.NewWriter(c.out)
	table.Header("Prompt", "Correct", "Total", "Accuracy %")
	for k, st := range s.ByVariant {
		table.Append(
			variantName(k),
			strconv.Itoa(st.Correct),
			strconv.Itoa(st.Total),
			fmt.Sprintf("%.2f%%", st.Accuracy),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "\n  PER-TICKER ACCURACY\n")
	perTicker := tablewriter.NewWriter(c.out)
	perTicker.Header("Ticker", "P1", "P2", "P3")
	for _, ticker := range s.Tickers {
		stats := s.ByTicker[ticker]
		row := make([]any, 0, len(stats)+1)
		row = append(row, ticker)
		for _, st := range stats {
			row = append(row, fmt.Sprintf("%.2f%%", st.Accuracy))
		}
		perTicker.Append(row...)
	}
	perTicker.Render()
}

// variantName es el nombre legible de cada variante de prompt.
func variantName(k int) string {
	switch k {
	case 0:
		return "Prompt 1 (Basic)"
	case 1:
		return "Prompt 2 (Price Data)"
	case 2:
		return "Prompt 3 (Research)"
	}
	return fmt.Sprintf("Prompt %d", k+1)
}
