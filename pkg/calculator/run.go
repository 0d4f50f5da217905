package calculator

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"retail-rfm/pkg/cache"
	"retail-rfm/pkg/database"
	"retail-rfm/pkg/ingest"
	"retail-rfm/pkg/models"
	"retail-rfm/pkg/rfm"
	"retail-rfm/pkg/stats"

	"github.com/schollz/progressbar/v3"
)

// Source fournit un jeu de données nettoyé.
type Source interface {
	Load(ctx context.Context, cfg models.Config) (models.Dataset, error)
}

// Sink reçoit le résultat RFM (fichier, base, bus, archive).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d models.Delivery) error
}

// FileSource lit un export CSV sur disque.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context, cfg models.Config) (models.Dataset, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return LoadBytes(data, cfg)
}

// TableSource lit l'export depuis une table MySQL/MariaDB.
type TableSource struct {
	DB    *sql.DB
	Table string
}

func (s TableSource) Load(ctx context.Context, cfg models.Config) (models.Dataset, error) {
	raw, err := database.LoadTable(ctx, s.DB, s.Table)
	if err != nil {
		return models.Dataset{}, err
	}
	table, report, err := ingest.CleanTable(raw, ingestOptions(cfg))
	if err != nil {
		return models.Dataset{}, err
	}

	// identifiant = empreinte de la table nettoyée re-sérialisée
	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, table); err != nil {
		return models.Dataset{}, fmt.Errorf("fingerprint %s: %w", s.Table, err)
	}
	return models.Dataset{
		ID:       cache.Key(buf.Bytes()),
		Table:    table,
		Report:   report,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// LoadBytes nettoie un export brut; l'identifiant est le hash des octets.
func LoadBytes(data []byte, cfg models.Config) (models.Dataset, error) {
	table, report, err := ingest.Clean(data, ingestOptions(cfg))
	if err != nil {
		return models.Dataset{}, err
	}
	return models.Dataset{
		ID:       cache.Key(data),
		Table:    table,
		Report:   report,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// Analysis regroupe tout ce que produit un passage du pipeline.
type Analysis struct {
	Dataset   models.Dataset
	Dashboard stats.Dashboard
	Customers []models.CustomerRFM
	Segments  []models.SegmentSummary
}

// Delivery construit la charge remise aux destinations.
func (a Analysis) Delivery(at time.Time) models.Delivery {
	return models.Delivery{
		DatasetID:   a.Dataset.ID,
		Report:      a.Dataset.Report,
		Customers:   a.Customers,
		Segments:    a.Segments,
		GeneratedAt: at.UTC(),
	}
}

/*
RUN → load → stats → rfm → deliver
*/
func Run(ctx context.Context, src Source, cfg models.Config, sinks ...Sink) (Analysis, error) {
	bar := progressbar.Default(4, "rfm")

	ds, err := src.Load(ctx, cfg)
	if err != nil {
		return Analysis{}, fmt.Errorf("load: %w", err)
	}
	_ = bar.Add(1)
	if cfg.Verbose {
		slog.Info("dataset cleaned",
			"dataset_id", ds.ID,
			"raw_rows", ds.Report.RawRows,
			"cleaned_rows", ds.Report.CleanedRows,
			"cancelled", ds.Report.Dropped.Cancelled,
			"incomplete", ds.Report.Dropped.Incomplete,
			"invalid", ds.Report.Dropped.Invalid,
		)
	}

	a, err := Analyze(ds, cfg)
	_ = bar.Add(2)
	if err != nil {
		// le rapport de nettoyage et le tableau de bord restent exploitables
		return a, err
	}
	if cfg.Verbose {
		slog.Info("customers scored", "customers", len(a.Customers), "segments", len(a.Segments))
	}

	if err := Deliver(ctx, a.Delivery(time.Now()), sinks...); err != nil {
		return a, err
	}
	_ = bar.Add(1)
	return a, nil
}

// Analyze calcule les statistiques et la table RFM d'un jeu déjà chargé.
// En cas d'échec du scoring, l'analyse renvoyée garde le jeu et le tableau
// de bord ; seuls Customers et Segments restent vides.
func Analyze(ds models.Dataset, cfg models.Config) (Analysis, error) {
	a := Analysis{
		Dataset:   ds,
		Dashboard: stats.BuildDashboard(ds.Table, StatsOptions(cfg)),
	}
	customers, err := rfm.Compute(ds.Table, rfm.Options{Workers: cfg.RFMWorkers})
	if err != nil {
		return a, fmt.Errorf("rfm: %w", err)
	}
	a.Customers = customers
	a.Segments = rfm.Summarize(customers)
	return a, nil
}

// Deliver remet d à chaque destination; les échecs sont agrégés après
// avoir tenté toutes les destinations.
func Deliver(ctx context.Context, d models.Delivery, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Deliver(ctx, d); err != nil {
			slog.Error("delivery failed", "sink", s.Name(), "dataset_id", d.DatasetID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		slog.Debug("delivered", "sink", s.Name(), "dataset_id", d.DatasetID, "customers", len(d.Customers))
	}
	return errors.Join(errs...)
}

// StatsOptions convertit la configuration globale pour pkg/stats.
func StatsOptions(cfg models.Config) stats.Options {
	opts := stats.DefaultOptions()
	opts.MaxRows = cfg.StatsMaxRows
	if cfg.TopN > 0 {
		opts.TopCountries = cfg.TopN
	}
	return opts
}

func ingestOptions(cfg models.Config) ingest.Options {
	return ingest.Options{
		CancellationPrefix: cfg.CancellationPrefix,
		Workers:            cfg.IngestWorkers,
	}
}
