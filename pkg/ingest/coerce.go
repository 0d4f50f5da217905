package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"retail-rfm/pkg/models"
)

// TimestampLayout sert à la réécriture des dates.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts sont essayés dans l'ordre. Les formats US couvrent l'export
// UCI Online Retail ("12/1/2010 8:26") : mois en premier, chiffres seuls admis.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
	"1/2/2006",
}

// parseQuantity : valeur non numérique, infinie ou non entière => absente.
func parseQuantity(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

// parsePrice : valeur non numérique ou infinie => absente.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseTimestamp convertit la date de facture en UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// optionalText : cellule vide ou colonne absente => non renseignée.
func optionalText(row []string, i int) models.Optional[string] {
	if i < 0 {
		return models.Optional[string]{}
	}
	v := strings.TrimSpace(cell(row, i))
	if v == "" {
		return models.Optional[string]{}
	}
	return models.Some(v)
}
