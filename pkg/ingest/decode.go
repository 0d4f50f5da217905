// Package ingest transforme un export brut de transactions en table nettoyée
// accompagnée de son rapport de nettoyage.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/models"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode lit un CSV ISO-8859-1 avec ligne d'en-tête. Une ligne plus longue
// que l'en-tête est une erreur de lecture ; une ligne plus courte est gardée,
// ses cellules manquantes lues comme vides.
func Decode(data []byte) (models.RawTable, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return models.RawTable{}, apperr.Parse(err).WithOp("decode")
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return models.RawTable{}, apperr.Parse(errors.New("no header row")).WithOp("decode")
	}
	if err != nil {
		return models.RawTable{}, apperr.Parse(err).WithOp("decode")
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.RawTable{}, apperr.Parse(err).WithOp("decode")
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return models.RawTable{}, apperr.Parse(
				fmt.Errorf("line %d: expected at most %d fields, saw %d", line, len(header), len(rec)),
			).WithOp("decode")
		}
		rows = append(rows, rec)
	}

	return models.RawTable{Header: header, Rows: rows}, nil
}
