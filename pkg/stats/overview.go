// Package stats calcule les indicateurs affichés à côté de la segmentation
// RFM : KPI, revenu mensuel, classements, paniers et qualité des données.
package stats

import (
	"sort"
	"time"

	"retail-rfm/pkg/models"
)

type Options struct {
	// MaxRows plafonne les lignes analysées ; 0 = toutes.
	MaxRows      int
	TopCountries int
	TopProducts  int
}

// DefaultOptions : 300 000 lignes, 10 pays, 15 produits.
func DefaultOptions() Options {
	return Options{
		MaxRows:      300000,
		TopCountries: 10,
		TopProducts:  15,
	}
}

// Overview : KPI principaux d'une table nettoyée.
type Overview struct {
	Rows         int                        `json:"rows"`
	TotalRevenue float64                    `json:"total_revenue"`
	Orders       int                        `json:"orders"`
	Customers    models.Optional[int]       `json:"customers"`
	Products     models.Optional[int]       `json:"products"`
	MinDate      models.Optional[time.Time] `json:"min_date"`
	MaxDate      models.Optional[time.Time] `json:"max_date"`
}

// ComputeOverview compte revenu, commandes, clients et produits distincts.
// Clients et produits restent non renseignés si la colonne manque.
func ComputeOverview(t models.Table) Overview {
	ov := Overview{Rows: t.Len()}
	orders := make(map[string]struct{})
	customers := make(map[string]struct{})
	products := make(map[string]struct{})

	for _, tx := range t.Rows {
		ov.TotalRevenue += tx.Revenue
		orders[tx.InvoiceNo] = struct{}{}
		if id, ok := tx.CustomerID.Get(); ok {
			customers[id] = struct{}{}
		}
		if code, ok := tx.StockCode.Get(); ok {
			products[code] = struct{}{}
		}
		if !ov.MinDate.Set || tx.InvoiceDate.Before(ov.MinDate.Value) {
			ov.MinDate = models.Some(tx.InvoiceDate)
		}
		if !ov.MaxDate.Set || tx.InvoiceDate.After(ov.MaxDate.Value) {
			ov.MaxDate = models.Some(tx.InvoiceDate)
		}
	}

	ov.Orders = len(orders)
	if t.Schema.CustomerID {
		ov.Customers = models.Some(len(customers))
	}
	if t.Schema.StockCode {
		ov.Products = models.Some(len(products))
	}
	return ov
}

// Dimension : colonne de classement du revenu.
type Dimension string

const (
	DimCountry     Dimension = "country"
	DimDescription Dimension = "description"
	DimStockCode   Dimension = "stock_code"
	DimCustomer    Dimension = "customer_id"
)

type Ranked struct {
	Key     string  `json:"key"`
	Revenue float64 `json:"revenue"`
}

// TopN renvoie les n valeurs au plus fort revenu (valeurs absentes ignorées) ;
// ok=false si la colonne manque.
func TopN(t models.Table, dim Dimension, n int) (top []Ranked, ok bool) {
	var get func(models.Transaction) models.Optional[string]
	switch dim {
	case DimCountry:
		ok, get = t.Schema.Country, func(tx models.Transaction) models.Optional[string] { return tx.Country }
	case DimDescription:
		ok, get = t.Schema.Description, func(tx models.Transaction) models.Optional[string] { return tx.Description }
	case DimStockCode:
		ok, get = t.Schema.StockCode, func(tx models.Transaction) models.Optional[string] { return tx.StockCode }
	case DimCustomer:
		ok, get = t.Schema.CustomerID, func(tx models.Transaction) models.Optional[string] { return tx.CustomerID }
	}
	if !ok {
		return nil, false
	}

	sums := make(map[string]float64)
	for _, tx := range t.Rows {
		if key, set := get(tx).Get(); set {
			sums[key] += tx.Revenue
		}
	}
	top = make([]Ranked, 0, len(sums))
	for k, v := range sums {
		top = append(top, Ranked{Key: k, Revenue: v})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Revenue != top[j].Revenue {
			return top[i].Revenue > top[j].Revenue
		}
		return top[i].Key < top[j].Key
	})
	if n > 0 && len(top) > n {
		top = top[:n]
	}
	return top, true
}

// Basket résume une facture.
type Basket struct {
	InvoiceNo string  `json:"invoice_no"`
	Items     int64   `json:"items"`
	Lines     int     `json:"lines"`
	Revenue   float64 `json:"revenue"`
}

// Baskets regroupe les lignes par facture, triées par numéro.
func Baskets(t models.Table) []Basket {
	byInvoice := make(map[string]*Basket)
	for _, tx := range t.Rows {
		b, ok := byInvoice[tx.InvoiceNo]
		if !ok {
			b = &Basket{InvoiceNo: tx.InvoiceNo}
			byInvoice[tx.InvoiceNo] = b
		}
		b.Items += tx.Quantity
		b.Lines++
		b.Revenue += tx.Revenue
	}
	out := make([]Basket, 0, len(byInvoice))
	for _, b := range byInvoice {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNo < out[j].InvoiceNo })
	return out
}

type BasketSummary struct {
	Orders        int     `json:"orders"`
	MeanRevenue   float64 `json:"mean_revenue"`
	MedianRevenue float64 `json:"median_revenue"`
	MeanLines     float64 `json:"mean_lines"`
	MeanItems     float64 `json:"mean_items"`
}

// SummarizeBaskets : moyennes et médiane des paniers.
func SummarizeBaskets(baskets []Basket) BasketSummary {
	s := BasketSummary{Orders: len(baskets)}
	if len(baskets) == 0 {
		return s
	}
	revenues := make([]float64, len(baskets))
	var lines, items float64
	for i, b := range baskets {
		revenues[i] = b.Revenue
		s.MeanRevenue += b.Revenue
		lines += float64(b.Lines)
		items += float64(b.Items)
	}
	n := float64(len(baskets))
	s.MeanRevenue /= n
	s.MeanLines = lines / n
	s.MeanItems = items / n
	sort.Float64s(revenues)
	s.MedianRevenue = percentile(revenues, 0.5)
	return s
}

// Dashboard regroupe toutes les vues sur la table plafonnée.
type Dashboard struct {
	Overview     Overview       `json:"overview"`
	Monthly      []MonthRevenue `json:"monthly_revenue"`
	TopCountries []Ranked       `json:"top_countries,omitempty"`
	TopProducts  []Ranked       `json:"top_products,omitempty"`
	Baskets      BasketSummary  `json:"baskets"`
	Truncated    bool           `json:"truncated"`
}

// BuildDashboard calcule le tableau de bord sur au plus opts.MaxRows lignes.
func BuildDashboard(t models.Table, opts Options) Dashboard {
	capped := t.Head(opts.MaxRows)
	d := Dashboard{
		Overview:  ComputeOverview(capped),
		Monthly:   MonthlyRevenue(capped),
		Baskets:   SummarizeBaskets(Baskets(capped)),
		Truncated: capped.Len() < t.Len(),
	}
	if top, ok := TopN(capped, DimCountry, opts.TopCountries); ok {
		d.TopCountries = top
	}
	if top, ok := TopN(capped, DimDescription, opts.TopProducts); ok {
		d.TopProducts = top
	}
	return d
}
