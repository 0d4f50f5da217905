// Package export écrit les résultats RFM en JSON, sur disque ou dans MinIO.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"retail-rfm/pkg/models"
)

const timestampLayout = "20060102_150405"

func ExportJSON(filename string, data interface{}) error {
	// crée le dossier si besoin
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := encode(file, data); err != nil {
		return err
	}

	slog.Info("exported", "file", filename)
	return nil
}

func encode(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func TimestampedFilename(baseDir, name string, at time.Time) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.json", name, at.Format(timestampLayout)))
}

// JSONSink écrit chaque livraison dans <dir>/rfm_<horodatage>.json.
type JSONSink struct {
	dir string
}

func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Deliver(_ context.Context, d models.Delivery) error {
	return ExportJSON(s.Path(d.GeneratedAt), d)
}

func (s *JSONSink) Path(t time.Time) string {
	return TimestampedFilename(s.dir, "rfm", t)
}

func marshal(d models.Delivery) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
