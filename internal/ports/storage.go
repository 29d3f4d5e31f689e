package ports

import (
	"context"

	"github.com/alejandrodnm/oraculo/internal/domain"
)

// ResultStore persiste los registros del experimento como tabla append-only
// con clave natural (fecha, ticker), más la vista derivada de resumen.
type ResultStore interface {
	// SaveRecord escribe (o sobreescribe) el registro de un ticker-día.
	// El upsert sobre (fecha, ticker) garantiza que reprocesar un día
	// tras un crash parcial no duplica filas.
	SaveRecord(ctx context.Context, rec domain.PredictionRecord) error

	// SaveRun registra el resumen de una invocación completada.
	SaveRun(ctx context.Context, run domain.RunInfo) error

	// Records devuelve el set completo, ordenado por día y ticker.
	Records(ctx context.Context) ([]domain.PredictionRecord, error)

	// HasRecords indica si existe al menos un registro.
	HasRecords(ctx context.Context) (bool, error)

	// RebuildSummary regenera (no mantiene incrementalmente) la vista de
	// resumen a partir del agregado dado.
	RebuildSummary(ctx context.Context, s domain.Summary) error

	// ExportCSV vuelca la tabla de registros a un archivo CSV.
	// El archivo se usa como adjunto de las notificaciones.
	ExportCSV(ctx context.Context, path string) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
