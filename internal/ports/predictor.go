package ports

import "context"

// Predictor invoca el modelo de lenguaje con un prompt y devuelve su
// salida cruda. La normalización a Label es responsabilidad del llamante.
type Predictor interface {
	Predict(ctx context.Context, prompt string) (string, error)
}
