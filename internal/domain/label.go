package domain

import "strings"

// Label es el resultado categórico de una predicción o del movimiento real.
type Label string

const (
	LabelUp      Label = "UP"
	LabelDown    Label = "DOWN"
	LabelNeutral Label = "NEUTRAL"

	// LabelError marca un fallo de transporte/API del predictor.
	// Nunca iguala a un label real — siempre cuenta como incorrecta.
	LabelError Label = "ERROR"
	// LabelInvalid marca una respuesta del modelo sin ningún token reconocible.
	LabelInvalid Label = "INVALID"
)

// LabelSet define qué labels son válidos para el experimento activo.
// El esquema de dos labels (default observado) resuelve empates a UP;
// el de tres expone NEUTRAL para empates exactos y lo acepta como predicción.
type LabelSet int

const (
	TwoLabels LabelSet = iota
	ThreeLabels
)

// ParseLabelSet interpreta el valor de configuración "two" | "three".
func ParseLabelSet(s string) (LabelSet, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "two":
		return TwoLabels, true
	case "three":
		return ThreeLabels, true
	}
	return TwoLabels, false
}

// Valid devuelve los labels que el set acepta como predicción.
func (s LabelSet) Valid() []Label {
	if s == ThreeLabels {
		return []Label{LabelUp, LabelDown, LabelNeutral}
	}
	return []Label{LabelUp, LabelDown}
}

// ParseLabel normaliza la salida libre del modelo: mayúsculas, y gana el
// primer token reconocido. Si no aparece ninguno, devuelve LabelInvalid.
func ParseLabel(raw string, set LabelSet) Label {
	valid := set.Valid()
	for _, tok := range strings.FieldsFunc(strings.ToUpper(raw), isSeparator) {
		for _, l := range valid {
			if tok == string(l) {
				return l
			}
		}
	}
	return LabelInvalid
}

func isSeparator(r rune) bool {
	return !(r >= 'A' && r <= 'Z')
}

// ActualLabel deriva el movimiento real: apertura de hoy contra el cierre
// de ayer. El empate exacto se resuelve según el LabelSet configurado.
func ActualLabel(todayOpen, yesterdayClose float64, set LabelSet) Label {
	switch {
	case todayOpen > yesterdayClose:
		return LabelUp
	case todayOpen < yesterdayClose:
		return LabelDown
	case set == ThreeLabels:
		return LabelNeutral
	default:
		// dos labels: el empate cuenta como UP
		return LabelUp
	}
}

// IsCorrect compara predicción contra realidad. ERROR e INVALID nunca
// aciertan porque el label real nunca toma esos valores.
func IsCorrect(predicted, actual Label) bool {
	return predicted == actual
}
