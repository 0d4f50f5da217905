package stats

import (
	"math"
	"sort"

	"retail-rfm/pkg/models"
)

// ColumnQuality : complétude d'une colonne.
type ColumnQuality struct {
	Column     string  `json:"column"`
	NonNull    int     `json:"non_null"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missing_pct"`
	Unique     int     `json:"unique"`
}

type NumericSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

type QualityReport struct {
	Rows    int              `json:"rows"`
	Columns []ColumnQuality  `json:"columns"`
	Numeric []NumericSummary `json:"numeric"`
}

// Quality profile chaque colonne présente dans le schéma et décrit les
// colonnes numériques.
func Quality(t models.Table) QualityReport {
	rep := QualityReport{Rows: t.Len()}

	text := func(name string, get func(models.Transaction) models.Optional[string]) {
		seen := make(map[string]struct{})
		q := ColumnQuality{Column: name}
		for _, tx := range t.Rows {
			if v, ok := get(tx).Get(); ok {
				q.NonNull++
				seen[v] = struct{}{}
			}
		}
		q.Missing = t.Len() - q.NonNull
		q.Unique = len(seen)
		if t.Len() > 0 {
			q.MissingPct = math.Round(float64(q.Missing)/float64(t.Len())*10000) / 100
		}
		rep.Columns = append(rep.Columns, q)
	}
	always := func(v string) models.Optional[string] { return models.Some(v) }

	text(models.ColInvoiceNo, func(tx models.Transaction) models.Optional[string] { return always(tx.InvoiceNo) })
	if t.Schema.StockCode {
		text(models.ColStockCode, func(tx models.Transaction) models.Optional[string] { return tx.StockCode })
	}
	if t.Schema.Description {
		text(models.ColDescription, func(tx models.Transaction) models.Optional[string] { return tx.Description })
	}
	text(models.ColInvoiceDate, func(tx models.Transaction) models.Optional[string] {
		return always(tx.InvoiceDate.String())
	})
	if t.Schema.CustomerID {
		text(models.ColCustomerID, func(tx models.Transaction) models.Optional[string] { return tx.CustomerID })
	}
	if t.Schema.Country {
		text(models.ColCountry, func(tx models.Transaction) models.Optional[string] { return tx.Country })
	}

	quantity := make([]float64, t.Len())
	price := make([]float64, t.Len())
	revenue := make([]float64, t.Len())
	for i, tx := range t.Rows {
		quantity[i] = float64(tx.Quantity)
		price[i] = tx.UnitPrice
		revenue[i] = tx.Revenue
	}
	rep.Numeric = []NumericSummary{
		describe(models.ColQuantity, quantity),
		describe(models.ColUnitPrice, price),
		describe(models.ColRevenue, revenue),
	}
	return rep
}

// describe : effectif, moyenne, écart-type (échantillon), quartiles.
func describe(column string, values []float64) NumericSummary {
	s := NumericSummary{Column: column, Count: len(values)}
	if len(values) == 0 {
		return s
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	for _, v := range sorted {
		s.Mean += v
	}
	s.Mean /= float64(len(sorted))
	if len(sorted) > 1 {
		var ss float64
		for _, v := range sorted {
			ss += (v - s.Mean) * (v - s.Mean)
		}
		s.Std = math.Sqrt(ss / float64(len(sorted)-1))
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.P25 = percentile(sorted, 0.25)
	s.P50 = percentile(sorted, 0.5)
	s.P75 = percentile(sorted, 0.75)
	return s
}

// percentile interpole entre les rangs voisins de sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
