package ports

import (
	"context"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

// PriceProvider obtiene la observación de precios de un ticker para la
// sesión actual desde el proveedor de datos de mercado.
type PriceProvider interface {
	// FetchObservation devuelve apertura/cierre de hoy, cierre de ayer y
	// las series de cierres recientes y extendida.
	// Devuelve domain.ErrInsufficientHistory si hay menos de dos sesiones.
	FetchObservation(ctx context.Context, ticker string) (domain.PriceObservation, error)
}
