package ingest

import (
	"log/slog"
	"strings"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/models"

	"golang.org/x/sync/errgroup"
)

// DefaultCancellationPrefix signale un avoir dans le numéro de facture.
const DefaultCancellationPrefix = "C"

// MinParallelRows : en dessous, le filtrage reste séquentiel.
const MinParallelRows = 10000

// Options du nettoyage.
type Options struct {
	// CancellationPrefix : factures exclues ; vide => "C".
	CancellationPrefix string
	// Workers > 1 : conversion et filtrage par blocs contigus.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		CancellationPrefix: DefaultCancellationPrefix,
		Workers:            1,
	}
}

// Clean décode l'export brut puis enchaîne CleanTable.
func Clean(data []byte, opts Options) (models.Table, models.CleaningReport, error) {
	raw, err := Decode(data)
	if err != nil {
		return models.Table{}, models.CleaningReport{}, err
	}
	return CleanTable(raw, opts)
}

// CleanTable normalise les colonnes, valide le schéma, convertit puis filtre
// une table déjà découpée. raw n'est pas modifiée.
func CleanTable(raw models.RawTable, opts Options) (models.Table, models.CleaningReport, error) {
	cols := indexColumns(NormalizeHeader(raw.Header))
	if missing := cols.missing(); len(missing) > 0 {
		return models.Table{}, models.CleaningReport{}, apperr.Schema(missing).WithOp("clean")
	}

	prefix := opts.CancellationPrefix
	if prefix == "" {
		prefix = DefaultCancellationPrefix
	}

	chunks := splitRows(raw.Rows, opts.Workers)
	results := make([]chunkResult, len(chunks))
	if len(chunks) == 1 {
		results[0] = cleanChunk(chunks[0], cols, prefix)
	} else {
		var g errgroup.Group
		for i, chunk := range chunks {
			i, chunk := i, chunk
			g.Go(func() error {
				results[i] = cleanChunk(chunk, cols, prefix)
				return nil
			})
		}
		_ = g.Wait()
	}

	table := models.Table{Schema: cols.schema()}
	report := models.CleaningReport{RawRows: len(raw.Rows)}
	total := 0
	for _, r := range results {
		total += len(r.rows)
	}
	table.Rows = make([]models.Transaction, 0, total)
	for _, r := range results {
		table.Rows = append(table.Rows, r.rows...)
		report.Dropped.Cancelled += r.dropped.Cancelled
		report.Dropped.Incomplete += r.dropped.Incomplete
		report.Dropped.Invalid += r.dropped.Invalid
	}

	report.CleanedRows = len(table.Rows)
	report.DroppedRows = report.RawRows - report.CleanedRows
	for _, tx := range table.Rows {
		if !report.MinDate.Set || tx.InvoiceDate.Before(report.MinDate.Value) {
			report.MinDate = models.Some(tx.InvoiceDate)
		}
		if !report.MaxDate.Set || tx.InvoiceDate.After(report.MaxDate.Value) {
			report.MaxDate = models.Some(tx.InvoiceDate)
		}
	}

	slog.Debug("cleaning complete",
		"raw_rows", report.RawRows,
		"cleaned_rows", report.CleanedRows,
		"cancelled", report.Dropped.Cancelled,
		"incomplete", report.Dropped.Incomplete,
		"invalid", report.Dropped.Invalid,
		"chunks", len(chunks),
	)

	return table, report, nil
}

type chunkResult struct {
	rows    []models.Transaction
	dropped models.DropReasons
}

// cleanChunk : conversion puis les trois filtres, dans l'ordre ; le premier
// filtre qui rejette compte.
func cleanChunk(rows [][]string, cols columns, prefix string) chunkResult {
	out := chunkResult{rows: make([]models.Transaction, 0, len(rows))}
	for _, row := range rows {
		invoice := strings.TrimSpace(cell(row, cols.invoice))
		qty, qtyOK := parseQuantity(cell(row, cols.quantity))
		price, priceOK := parsePrice(cell(row, cols.price))
		date, dateOK := parseTimestamp(cell(row, cols.date))

		switch {
		case strings.HasPrefix(invoice, prefix):
			out.dropped.Cancelled++
			continue
		case !qtyOK || !priceOK || !dateOK:
			out.dropped.Incomplete++
			continue
		case qty <= 0 || price <= 0:
			out.dropped.Invalid++
			continue
		}

		out.rows = append(out.rows, models.Transaction{
			InvoiceNo:   invoice,
			StockCode:   optionalText(row, cols.stockCode),
			Description: optionalText(row, cols.description),
			Quantity:    qty,
			InvoiceDate: date,
			UnitPrice:   price,
			CustomerID:  optionalText(row, cols.customer),
			Country:     optionalText(row, cols.country),
			Revenue:     float64(qty) * price,
		})
	}
	return out
}

// splitRows découpe en au plus workers blocs contigus.
func splitRows(rows [][]string, workers int) [][][]string {
	if workers <= 1 || len(rows) < MinParallelRows {
		return [][][]string{rows}
	}
	size := (len(rows) + workers - 1) / workers
	chunks := make([][][]string, 0, workers)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
