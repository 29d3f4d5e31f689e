package domain

import "time"

// DateLayout es el formato de fecha usado en persistencia y logs.
const DateLayout = "2006-01-02"

// Day normaliza un instante a su día de calendario (medianoche UTC).
// Todas las comparaciones de fechas del experimento trabajan sobre días.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate interpreta una fecha YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
