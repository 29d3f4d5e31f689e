package ports

import (
	"context"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

// Notifier presenta los resultados al usuario. Un fallo de notificación se
// loguea y nunca es fatal ni se reintenta.
type Notifier interface {
	// NotifyDay comunica los resultados de un día completado.
	NotifyDay(ctx context.Context, day domain.DayResult) error

	// NotifyFinal comunica el informe final del experimento.
	NotifyFinal(ctx context.Context, report domain.FinalReport) error
}
