package stats

import (
	"fmt"
	"time"

	"retail-rfm/pkg/models"
)

// MonthRevenue : revenu d'un mois calendaire.
type MonthRevenue struct {
	Month   string    `json:"month"` // MM/YYYY
	Start   time.Time `json:"start"`
	Revenue float64   `json:"revenue"`
}

// MonthlyRevenue somme le revenu par mois, du premier au dernier mois
// présents ; un mois sans vente vaut 0.
func MonthlyRevenue(t models.Table) []MonthRevenue {
	if t.Len() == 0 {
		return nil
	}
	sums := make(map[time.Time]float64)
	first, last := monthStart(t.Rows[0].InvoiceDate), monthStart(t.Rows[0].InvoiceDate)
	for _, tx := range t.Rows {
		m := monthStart(tx.InvoiceDate)
		sums[m] += tx.Revenue
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	months := monthsBetweenInclusive(first, last)
	out := make([]MonthRevenue, 0, len(months))
	for _, m := range months {
		out = append(out, MonthRevenue{Month: formatMonth(m), Start: m, Revenue: sums[m]})
	}
	return out
}

// WindowMonths garde les mois dans [from, to] (format MMYYYY) ; borne vide =
// pas de limite.
func WindowMonths(series []MonthRevenue, from, to string) ([]MonthRevenue, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = parseMonth(from); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	}
	if to != "" {
		if end, err = parseMonth(to); err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
	}
	if from != "" && to != "" && end.Before(start) {
		return nil, fmt.Errorf("to < from")
	}

	out := make([]MonthRevenue, 0, len(series))
	for _, m := range series {
		if from != "" && m.Start.Before(start) {
			continue
		}
		if to != "" && m.Start.After(end) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// parseMonth("MMYYYY") -> 1er jour du mois UTC
func parseMonth(mmyyyy string) (time.Time, error) {
	if len(mmyyyy) != 6 {
		return time.Time{}, fmt.Errorf("expected MMYYYY (e.g. 012025)")
	}
	for i := 0; i < len(mmyyyy); i++ {
		if mmyyyy[i] < '0' || mmyyyy[i] > '9' {
			return time.Time{}, fmt.Errorf("expected digits only in %q", mmyyyy)
		}
	}
	month := int(mmyyyy[0]-'0')*10 + int(mmyyyy[1]-'0')
	year := int(mmyyyy[2]-'0')*1000 + int(mmyyyy[3]-'0')*100 + int(mmyyyy[4]-'0')*10 + int(mmyyyy[5]-'0')
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month")
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

func monthsBetweenInclusive(start, end time.Time) []time.Time {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

func formatMonth(t time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(t.Month()), t.Year())
}
