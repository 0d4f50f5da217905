package stats

import (
	"math"
	"testing"
	"time"

	"retail-rfm/pkg/models"
)

func sampleTable() models.Table {
	day := time.Date(2011, 12, 1, 12, 0, 0, 0, time.UTC)
	mk := func(invoice, code, desc, customer, country string, qty int64, price float64, offset int) models.Transaction {
		r := tx(invoice, day.AddDate(0, 0, offset), qty, price)
		r.StockCode = models.Some(code)
		r.Description = models.Some(desc)
		if customer != "" {
			r.CustomerID = models.Some(customer)
		}
		r.Country = models.Some(country)
		return r
	}
	return models.Table{
		Schema: models.Schema{StockCode: true, Description: true, CustomerID: true, Country: true},
		Rows: []models.Transaction{
			mk("536365", "85123A", "HEART", "17850", "United Kingdom", 6, 2.55, 0),
			mk("536365", "71053", "LANTERN", "17850", "United Kingdom", 6, 3.39, 0),
			mk("536366", "22633", "HAND WARMER", "", "France", 6, 1.85, 1),
			mk("536367", "85123A", "HEART", "12583", "France", 24, 2.55, 2),
			mk("536368", "21730", "GLASS", "13047", "Germany", 1, 4.25, -3),
		},
	}
}

func TestComputeOverview(t *testing.T) {
	table := sampleTable()
	ov := ComputeOverview(table)
	if ov.Rows != 5 || ov.Orders != 4 {
		t.Fatalf("rows/orders = %d/%d, want 5/4", ov.Rows, ov.Orders)
	}
	if c, ok := ov.Customers.Get(); !ok || c != 3 {
		t.Fatalf("customers = %v, want 3", ov.Customers)
	}
	if p, ok := ov.Products.Get(); !ok || p != 4 {
		t.Fatalf("products = %v, want 4", ov.Products)
	}
	var want float64
	for _, r := range table.Rows {
		want += r.Revenue
	}
	if math.Abs(ov.TotalRevenue-want) > 1e-9 {
		t.Fatalf("revenue = %v, want %v", ov.TotalRevenue, want)
	}
	if !ov.MinDate.Value.Equal(table.Rows[4].InvoiceDate) || !ov.MaxDate.Value.Equal(table.Rows[3].InvoiceDate) {
		t.Fatalf("dates = %v..%v", ov.MinDate.Value, ov.MaxDate.Value)
	}
}

func TestComputeOverview_AbsentColumns(t *testing.T) {
	ov := ComputeOverview(models.Table{Rows: []models.Transaction{tx("1", time.Now(), 1, 1)}})
	if ov.Customers.Set || ov.Products.Set {
		t.Fatalf("expected unset customers/products, got %+v", ov)
	}
}

func TestTopN(t *testing.T) {
	table := sampleTable()
	top, ok := TopN(table, DimCountry, 2)
	if !ok {
		t.Fatal("expected country column to be present")
	}
	if len(top) != 2 || top[0].Key != "France" || top[1].Key != "United Kingdom" {
		t.Fatalf("unexpected ranking: %+v", top)
	}

	// unset customer ids are not ranked
	customers, _ := TopN(table, DimCustomer, 0)
	if len(customers) != 3 {
		t.Fatalf("got %d customers, want 3", len(customers))
	}

	if _, ok := TopN(models.Table{}, DimCountry, 10); ok {
		t.Fatal("expected ok=false when the column is absent")
	}
	if _, ok := TopN(table, Dimension("nope"), 10); ok {
		t.Fatal("expected ok=false for an unknown dimension")
	}
}

func TestTopN_TiesByKey(t *testing.T) {
	table := models.Table{Schema: models.Schema{Country: true}}
	for _, c := range []string{"Spain", "Austria", "Norway"} {
		r := tx("1", time.Now(), 1, 10)
		r.Country = models.Some(c)
		table.Rows = append(table.Rows, r)
	}
	top, _ := TopN(table, DimCountry, 0)
	if top[0].Key != "Austria" || top[1].Key != "Norway" || top[2].Key != "Spain" {
		t.Fatalf("unexpected tie order: %+v", top)
	}
}

func TestBaskets(t *testing.T) {
	baskets := Baskets(sampleTable())
	if len(baskets) != 4 {
		t.Fatalf("got %d baskets, want 4", len(baskets))
	}
	first := baskets[0]
	if first.InvoiceNo != "536365" || first.Lines != 2 || first.Items != 12 {
		t.Fatalf("unexpected first basket: %+v", first)
	}

	s := SummarizeBaskets([]Basket{
		{Revenue: 10, Lines: 1, Items: 2},
		{Revenue: 30, Lines: 3, Items: 4},
		{Revenue: 20, Lines: 2, Items: 6},
		{Revenue: 100, Lines: 2, Items: 8},
	})
	if s.Orders != 4 || s.MeanRevenue != 40 || s.MedianRevenue != 25 || s.MeanLines != 2 || s.MeanItems != 5 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if got := SummarizeBaskets(nil); got.Orders != 0 || got.MeanRevenue != 0 {
		t.Fatalf("unexpected empty summary: %+v", got)
	}
}

func TestBuildDashboard_Caps(t *testing.T) {
	table := sampleTable()
	d := BuildDashboard(table, Options{MaxRows: 2, TopCountries: 10, TopProducts: 15})
	if !d.Truncated || d.Overview.Rows != 2 {
		t.Fatalf("expected capped dashboard, got rows=%d truncated=%v", d.Overview.Rows, d.Truncated)
	}
	if len(d.TopCountries) != 1 || len(d.TopProducts) != 2 {
		t.Fatalf("unexpected rankings: %+v / %+v", d.TopCountries, d.TopProducts)
	}

	full := BuildDashboard(table, DefaultOptions())
	if full.Truncated || full.Overview.Rows != 5 {
		t.Fatalf("unexpected full dashboard: %+v", full.Overview)
	}
	if len(full.Monthly) != 2 || full.Monthly[0].Month != "11/2011" || full.Monthly[1].Month != "12/2011" {
		t.Fatalf("unexpected monthly series: %+v", full.Monthly)
	}
}
