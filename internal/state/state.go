package state

// state.go — máquina de estado del experimento, respaldada por un JSON.
//
// Ciclo de vida:
//   NOT_STARTED (sin archivo) → ACTIVE → COMPLETE → FINALIZED
//
// Reglas de persistencia:
//   - Se lee al inicio de cada invocación; se escribe tras cada mutación.
//   - run_count solo avanza DESPUÉS del loop completo de tickers del día:
//     un crash a mitad de loop no cuenta el día dos veces (el upsert del
//     store absorbe los registros reprocesados).
//   - Un archivo corrupto es fatal para toda la invocación.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

// ErrCorruptState indica que el archivo de estado existe pero no parsea.
var ErrCorruptState = errors.New("state: corrupt state file")

// Action es la decisión para la invocación de hoy.
type Action int

const (
	ActionRun Action = iota
	ActionFinalize
	ActionSkipComplete
	ActionSkipNonMarketDay
)

// String para logs.
func (a Action) String() string {
	switch a {
	case ActionRun:
		return "run"
	case ActionFinalize:
		return "finalize"
	case ActionSkipComplete:
		return "skip_complete"
	case ActionSkipNonMarketDay:
		return "skip_non_market_day"
	}
	return "unknown"
}

// State es el estado persistido del experimento. Fechas inclusivas.
type State struct {
	StartDate            time.Time
	EndDate              time.Time
	FinalReportDate      time.Time
	RunCount             int
	MaxRuns              int
	FinalReportGenerated bool
}

// stateJSON fija el formato de cable: fechas YYYY-MM-DD, todos los campos
// requeridos tras la primera inicialización.
type stateJSON struct {
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	FinalReportDate      string `json:"final_report_date"`
	RunCount             int    `json:"run_count"`
	MaxRuns              int    `json:"max_runs"`
	FinalReportGenerated bool   `json:"final_report_generated"`
}

// MarshalJSON serializa las fechas en formato YYYY-MM-DD.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		StartDate:            s.StartDate.Format(domain.DateLayout),
		EndDate:              s.EndDate.Format(domain.DateLayout),
		FinalReportDate:      s.FinalReportDate.Format(domain.DateLayout),
		RunCount:             s.RunCount,
		MaxRuns:              s.MaxRuns,
		FinalReportGenerated: s.FinalReportGenerated,
	})
}

// UnmarshalJSON valida y parsea el formato persistido.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	if s.StartDate, err = domain.ParseDate(raw.StartDate); err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	if s.EndDate, err = domain.ParseDate(raw.EndDate); err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	if s.FinalReportDate, err = domain.ParseDate(raw.FinalReportDate); err != nil {
		return fmt.Errorf("final_report_date: %w", err)
	}
	s.RunCount = raw.RunCount
	s.MaxRuns = raw.MaxRuns
	s.FinalReportGenerated = raw.FinalReportGenerated
	return nil
}

// Decide es la función pura de decisión: solo depende de la fecha actual,
// del calendario estático y del estado persistido. El chequeo de
// finalización tiene prioridad sobre todos los demás.
func Decide(today time.Time, s State) Action {
	d := domain.Day(today)

	// 1. Finalizar: en (o después de) la fecha de informe final, una sola vez.
	//    "Después de" cubre una invocación perdida el día exacto; la
	//    exclusividad la garantiza FinalReportGenerated.
	if !d.Before(domain.Day(s.FinalReportDate)) && !s.FinalReportGenerated {
		return ActionFinalize
	}

	// 2. Completo: fuera de rango o sin runs restantes — sin mutaciones.
	if d.After(domain.Day(s.EndDate)) || s.RunCount >= s.MaxRuns {
		return ActionSkipComplete
	}

	// 3. Mercado cerrado: sin transición, sin mutación.
	if !domain.IsMarketDay(d) {
		return ActionSkipNonMarketDay
	}

	return ActionRun
}

// Machine acopla un State a su archivo de persistencia.
type Machine struct {
	path string
	st   State
}

// Load lee el estado desde path. Si el archivo no existe (NOT_STARTED),
// inicializa con defaults y persiste inmediatamente.
func Load(path string, defaults State) (*Machine, error) {
	m := &Machine{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.st = defaults
		if err := m.save(); err != nil {
			return nil, fmt.Errorf("state.Load: init %q: %w", path, err)
		}
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("state.Load: read %q: %w", path, err)
	}

	if err := json.Unmarshal(data, &m.st); err != nil {
		return nil, fmt.Errorf("state.Load: %w: %q: %v", ErrCorruptState, path, err)
	}
	return m, nil
}

// State devuelve una copia del estado actual.
func (m *Machine) State() State {
	return m.st
}

// Decide aplica la función de decisión al estado cargado.
func (m *Machine) Decide(today time.Time) Action {
	return Decide(today, m.st)
}

// MarkRunComplete incrementa run_count en exactamente 1 y persiste.
// Solo debe llamarse tras completar el loop de tickers del día.
func (m *Machine) MarkRunComplete() error {
	m.st.RunCount++
	if err := m.save(); err != nil {
		m.st.RunCount--
		return fmt.Errorf("state.MarkRunComplete: %w", err)
	}
	return nil
}

// MarkFinalized marca el informe final como generado (false→true una sola
// vez en la vida del experimento) y persiste.
func (m *Machine) MarkFinalized() error {
	if m.st.FinalReportGenerated {
		return nil
	}
	m.st.FinalReportGenerated = true
	if err := m.save(); err != nil {
		m.st.FinalReportGenerated = false
		return fmt.Errorf("state.MarkFinalized: %w", err)
	}
	return nil
}

// save escribe el JSON de forma atómica: temp + rename en el mismo dir.
func (m *Machine) save() error {
	data, err := json.MarshalIndent(m.st, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), m.path)
}
