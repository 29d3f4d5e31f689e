package domain

import "time"

// calendar.go — calendario estático de días de mercado (NYSE).
//
// Sin dependencia de red: la lista de festivos es la publicada por el
// exchange para cada año cubierto. Si el experimento se extiende a otro
// año, hay que añadir aquí la lista correspondiente.

// marketHolidays contiene los festivos oficiales de NYSE (2025 y 2026).
var marketHolidays = map[string]struct{}{
	// 2025
	"2025-01-01": {}, // New Year's Day
	"2025-01-20": {}, // MLK Day
	"2025-02-17": {}, // Presidents Day
	"2025-04-18": {}, // Good Friday
	"2025-05-26": {}, // Memorial Day
	"2025-06-19": {}, // Juneteenth
	"2025-07-04": {}, // Independence Day
	"2025-09-01": {}, // Labor Day
	"2025-11-27": {}, // Thanksgiving
	"2025-12-25": {}, // Christmas

	// 2026
	"2026-01-01": {},
	"2026-01-19": {},
	"2026-01-20": {},
	"2026-02-16": {},
	"2026-04-03": {},
	"2026-05-25": {},
	"2026-06-19": {},
	"2026-07-03": {},
	"2026-09-07": {},
	"2026-11-26": {},
	"2026-12-25": {},
}

// IsMarketDay devuelve true si el exchange de referencia abre ese día.
// Función pura: fin de semana → false, festivo publicado → false.
func IsMarketDay(d time.Time) bool {
	wd := d.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := marketHolidays[d.Format(DateLayout)]
	return !holiday
}
