package runner

// prompts.go — las tres variantes de prompt por ticker-día.
//
// Niveles crecientes de contexto:
//   1. Basic:      solo el ticker, sin datos.
//   2. Price Data: serie extendida de cierres (~6 meses).
//   3. Research:   ambas series + investigación abierta.
// El texto de la instrucción final depende del LabelSet: con dos labels
// el modelo DEBE elegir UP o DOWN; con tres, NEUTRAL también es válido.

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

// SystemPrompt es el mensaje de sistema del predictor.
func SystemPrompt(set domain.LabelSet) string {
	if set == domain.ThreeLabels {
		return "You are a financial analyst. You must respond with ONLY UP, DOWN or NEUTRAL."
	}
	return "You are a financial analyst. You must respond with ONLY UP or DOWN. Neutral is not an option."
}

// BuildPrompts genera las domain.NumVariants variantes para un ticker.
func BuildPrompts(ticker string, obs domain.PriceObservation, set domain.LabelSet) []string {
	recent := priceList(obs.RecentCloses)
	historical := priceList(obs.HistoricalCloses)
	answer := answerInstruction(set)

	basic := fmt.Sprintf(`For the stock ticker %s, predict the direction of the stock price movement for the next trading day.

%s`, ticker, answer)

	priceData := fmt.Sprintf(`You are given EXTENDED HISTORICAL closing prices (over the past 6 months) for the stock ticker %s.
These historical closing prices span multiple months and show long-term price trends (most recent last):
%s

Analyze the EXTENDED historical price trend pattern over time. Look at the overall trend direction, momentum, and price behavior patterns across the entire historical period. Based ONLY on this extended historical numerical price pattern and trend analysis, predict the direction of the stock's movement for the NEXT trading day (tomorrow).
Consider the longer-term trend direction, not just recent short-term fluctuations.

%s`, ticker, historical, answer)

	research := fmt.Sprintf(`For the stock ticker %s, conduct COMPREHENSIVE DETAILED RESEARCH and analysis:

1. HISTORICAL PRICE DATA:
Recent closing prices from previous trading days (most recent last):
%s

Extended historical closing prices over the past 6 months (most recent last):
%s

2. COMPREHENSIVE RESEARCH - Analyze ALL of the following:
- Recent financial news headlines, earnings reports, and earnings history
- Analyst ratings, price targets, and recommendations
- Company fundamentals (revenue trends, profitability, growth metrics)
- Industry trends and sector performance
- Market conditions and broader economic factors
- Technical indicators and price patterns

Using BOTH the comprehensive historical price trend analysis AND your detailed research across all these factors, synthesize a well-informed prediction for the direction of the stock's movement for the next trading day.

%s`, ticker, recent, historical, answer)

	return []string{basic, priceData, research}
}

// answerInstruction es el bloque final común a todas las variantes.
func answerInstruction(set domain.LabelSet) string {
	if set == domain.ThreeLabels {
		return `Respond with ONLY one of the following options:
UP
DOWN
NEUTRAL
Do not include explanations, numbers, probabilities, or additional text.`
	}
	return `You MUST choose either UP or DOWN - neutral is not an option.
Respond with ONLY one of the following options:
UP
DOWN
Do not include explanations, numbers, probabilities, or additional text.`
}

// priceList formatea una serie como "$101.50, $103.20, ...".
func priceList(prices []float64) string {
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = fmt.Sprintf("$%.2f", p)
	}
	return strings.Join(parts, ", ")
}
