package ingest

import (
	"retail-rfm/pkg/models"
)

// synonyms : variantes d'en-tête → noms canoniques, dans l'ordre d'application.
// Comparaison exacte, sensible à la casse.
var synonyms = []struct {
	from string
	to   string
}{
	{"Invoice", models.ColInvoiceNo},
	{"Invoice Date", models.ColInvoiceDate},
	{"Customer ID", models.ColCustomerID},
	{"Price", models.ColUnitPrice},
}

var requiredColumns = []string{
	models.ColInvoiceNo,
	models.ColInvoiceDate,
	models.ColQuantity,
	models.ColUnitPrice,
}

// NormalizeHeader renomme les synonymes connus, seulement si la colonne
// canonique est absente : une colonne canonique existante n'est jamais
// écrasée. header n'est pas modifié.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	copy(out, header)

	present := make(map[string]bool, len(out))
	for _, h := range out {
		present[h] = true
	}

	for _, s := range synonyms {
		if present[s.to] {
			continue
		}
		for i, h := range out {
			if h == s.from {
				out[i] = s.to
				present[s.to] = true
				break
			}
		}
	}
	return out
}

// columns : position de chaque colonne canonique, -1 si absente.
type columns struct {
	invoice     int
	stockCode   int
	description int
	quantity    int
	date        int
	price       int
	customer    int
	country     int
}

func indexColumns(header []string) columns {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	find := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	return columns{
		invoice:     find(models.ColInvoiceNo),
		stockCode:   find(models.ColStockCode),
		description: find(models.ColDescription),
		quantity:    find(models.ColQuantity),
		date:        find(models.ColInvoiceDate),
		price:       find(models.ColUnitPrice),
		customer:    find(models.ColCustomerID),
		country:     find(models.ColCountry),
	}
}

// missing liste les colonnes obligatoires absentes.
func (c columns) missing() []string {
	have := map[string]bool{
		models.ColInvoiceNo:   c.invoice >= 0,
		models.ColInvoiceDate: c.date >= 0,
		models.ColQuantity:    c.quantity >= 0,
		models.ColUnitPrice:   c.price >= 0,
	}
	var out []string
	for _, name := range requiredColumns {
		if !have[name] {
			out = append(out, name)
		}
	}
	return out
}

func (c columns) schema() models.Schema {
	return models.Schema{
		StockCode:   c.stockCode >= 0,
		Description: c.description >= 0,
		CustomerID:  c.customer >= 0,
		Country:     c.country >= 0,
	}
}

// cell : "" si la colonne manque ou si la ligne est courte.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
