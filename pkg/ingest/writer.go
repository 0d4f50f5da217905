package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"retail-rfm/pkg/models"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// WriteCSV réécrit une table nettoyée en CSV ISO-8859-1 : en-têtes canoniques,
// colonnes facultatives selon le schéma, Revenue en dernier. Relu par Clean,
// le fichier ne perd aucune ligne.
func WriteCSV(w io.Writer, t models.Table) error {
	header := []string{models.ColInvoiceNo}
	if t.Schema.StockCode {
		header = append(header, models.ColStockCode)
	}
	if t.Schema.Description {
		header = append(header, models.ColDescription)
	}
	header = append(header, models.ColQuantity, models.ColInvoiceDate, models.ColUnitPrice)
	if t.Schema.CustomerID {
		header = append(header, models.ColCustomerID)
	}
	if t.Schema.Country {
		header = append(header, models.ColCountry)
	}
	header = append(header, models.ColRevenue)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, tx := range t.Rows {
		record = record[:0]
		record = append(record, tx.InvoiceNo)
		if t.Schema.StockCode {
			record = append(record, tx.StockCode.Value)
		}
		if t.Schema.Description {
			record = append(record, tx.Description.Value)
		}
		record = append(record,
			strconv.FormatInt(tx.Quantity, 10),
			tx.InvoiceDate.Format(TimestampLayout+".999999999"),
			strconv.FormatFloat(tx.UnitPrice, 'f', -1, 64),
		)
		if t.Schema.CustomerID {
			record = append(record, tx.CustomerID.Value)
		}
		if t.Schema.Country {
			record = append(record, tx.Country.Value)
		}
		record = append(record, strconv.FormatFloat(tx.Revenue, 'f', -1, 64))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("encode latin1: %w", err)
	}
	_, err = w.Write(out)
	return err
}
