package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del experimento.
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Model      ModelConfig      `yaml:"model"`
	Market     MarketConfig     `yaml:"market"`
	Storage    StorageConfig    `yaml:"storage"`
	Mail       MailConfig       `yaml:"mail"`
	Log        LogConfig        `yaml:"log"`
}

// ExperimentConfig define el alcance del experimento: qué tickers, qué
// ventana de fechas y cuántos días de mercado como máximo.
type ExperimentConfig struct {
	Tickers         []string `yaml:"tickers"`
	StartDate       string   `yaml:"start_date"`        // YYYY-MM-DD
	EndDate         string   `yaml:"end_date"`          // YYYY-MM-DD
	FinalReportDate string   `yaml:"final_report_date"` // YYYY-MM-DD
	MaxRuns         int      `yaml:"max_runs"`
	Labels          string   `yaml:"labels"`   // two | three
	StateFile       string   `yaml:"state_file"`
	Schedule        string   `yaml:"schedule"` // expresión cron del modo daemon
}

// ModelConfig controla las llamadas al modelo de lenguaje.
type ModelConfig struct {
	Name           string  `yaml:"name"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	CallsPerMinute int     `yaml:"calls_per_minute"`
	APIKey         string  `yaml:"-"` // solo vía ANTHROPIC_API_KEY
}

// MarketConfig contiene el base URL del proveedor de precios.
type MarketConfig struct {
	BaseURL string `yaml:"base_url"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN        string `yaml:"dsn"`         // ruta al archivo SQLite, o ":memory:"
	ExportPath string `yaml:"export_path"` // CSV adjunto a las notificaciones; vacío lo desactiva
}

// MailConfig controla las notificaciones por correo. Si Password queda
// vacío (sin SMTP_PASSWORD en el entorno) el mailer no envía nada.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Password string `yaml:"-"` // solo vía SMTP_PASSWORD
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ValidateForRun comprueba lo imprescindible para ejecutar un ciclo
// diario. Se llama antes de tocar el archivo de estado, de modo que una
// configuración rota nunca deja estado a medias.
func (c *Config) ValidateForRun() error {
	if len(c.Experiment.Tickers) == 0 {
		return fmt.Errorf("config: experiment.tickers is empty")
	}
	if c.Experiment.StartDate == "" || c.Experiment.EndDate == "" || c.Experiment.FinalReportDate == "" {
		return fmt.Errorf("config: experiment start_date, end_date and final_report_date are required")
	}
	if c.Experiment.MaxRuns <= 0 {
		return fmt.Errorf("config: experiment.max_runs must be positive")
	}
	if c.Model.APIKey == "" {
		return fmt.Errorf("config: ANTHROPIC_API_KEY is not set")
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Experiment.Labels == "" {
		cfg.Experiment.Labels = "two"
	}
	if cfg.Experiment.StateFile == "" {
		cfg.Experiment.StateFile = "experiment_state.json"
	}
	if cfg.Experiment.Schedule == "" {
		cfg.Experiment.Schedule = "35 9 * * 1-5" // poco después de la apertura, L-V
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "claude-sonnet-4-20250514"
	}
	if cfg.Model.MaxTokens <= 0 {
		cfg.Model.MaxTokens = 16
	}
	if cfg.Model.CallsPerMinute <= 0 {
		cfg.Model.CallsPerMinute = 10
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "oraculo.db"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
