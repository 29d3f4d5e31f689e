package anthropic

// predictor.go — adaptador de ports.Predictor sobre la API de Anthropic.
//
// El limiter impone la pausa deliberada entre llamadas al modelo dentro
// del loop de tickers (respeto de rate limits del proveedor). Los errores
// de transporte se devuelven tal cual: el runner los convierte en
// LabelError sin abortar el ticker ni el día.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 16
	requestTimeout   = 60 * time.Second
)

// Config controla el modelo y su comportamiento.
type Config struct {
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	// CallsPerMinute regula el espaciado entre llamadas. <= 0 desactiva.
	CallsPerMinute int
}

// Client implementa ports.Predictor contra la API de mensajes de Anthropic.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	system      string
	limiter     *rate.Limiter
}

// New crea el cliente. El API key es obligatorio (error de configuración
// si falta, detectado antes en el arranque).
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var limiter *rate.Limiter
	if cfg.CallsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), 1)
	}

	return &Client{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: cfg.Temperature,
		system:      cfg.SystemPrompt,
		limiter:     limiter,
	}
}

// Predict envía el prompt y devuelve el texto crudo de la respuesta.
func (c *Client) Predict(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("anthropic.Predict: rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.Messages.New(ctx, c.params(prompt))
	if err != nil {
		return "", fmt.Errorf("anthropic.Predict: %w", err)
	}

	text := textContent(resp)
	if text == "" {
		return "", fmt.Errorf("anthropic.Predict: empty response")
	}
	return text, nil
}

// CheckModel hace una llamada mínima y devuelve el modelo que la API usó
// realmente. Diagnóstico puro: no toca la máquina de estado.
func (c *Client) CheckModel(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 8,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Say 'test'")),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic.CheckModel: %w", err)
	}
	return string(resp.Model), nil
}

func (c *Client) params(prompt string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}
	return params
}

// textContent concatena los bloques de texto de la respuesta.
func textContent(resp *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
