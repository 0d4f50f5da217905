package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/calculator"
	"retail-rfm/pkg/config"
	"retail-rfm/pkg/database"
	"retail-rfm/pkg/models"
)

var errNoSource = errors.New("aucune source : -input ou -dsn avec -table")

// selectSource choisit le fichier CSV s'il est fourni, sinon la table SQL.
// La fonction renvoyée libère la connexion éventuelle.
func selectSource(input string, src config.SourceConfig, verbose bool) (calculator.Source, func(), error) {
	switch {
	case input != "":
		return calculator.FileSource{Path: input}, func() {}, nil
	case src.DSN != "" && src.Table != "":
		db, dsnUsed, err := database.Open(src.DSN)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open db: %w", err)
		}
		if verbose {
			log.Printf("[INFO] connected dsn=%s", dsnUsed)
		}
		return calculator.TableSource{DB: db, Table: src.Table}, func() { _ = db.Close() }, nil
	default:
		return nil, func() {}, errNoSource
	}
}

// runBatch lance le calcul puis écrit le rapport sur w. Dès que le jeu est
// chargé, le rapport de nettoyage est affiché, même si le scoring ou une
// destination échoue ; l'erreur est alors ajoutée avec son type.
func runBatch(ctx context.Context, w io.Writer, src calculator.Source, cfg models.Config, top int, sinks ...calculator.Sink) error {
	a, err := calculator.Run(ctx, src, cfg, sinks...)
	if a.Dataset.ID == "" {
		return err
	}
	printAnalysis(w, a, top)
	if err != nil {
		fmt.Fprintf(w, "error ; %s ; %v\n", apperr.GetKind(err), err)
	}
	return err
}

// Sortie : rapport ; tableau de bord ; segments ; meilleurs clients
func printAnalysis(w io.Writer, a calculator.Analysis, top int) {
	r := a.Dataset.Report
	fmt.Fprintf(w, "dataset=%s ; raw=%d ; cleaned=%d ; dropped=%d (cancelled=%d incomplete=%d invalid=%d)\n",
		shortID(a.Dataset.ID), r.RawRows, r.CleanedRows, r.DroppedRows,
		r.Dropped.Cancelled, r.Dropped.Incomplete, r.Dropped.Invalid)
	if r.MinDate.Set {
		fmt.Fprintf(w, "period ; %s ; %s\n", r.MinDate.Value.Format("2006-01-02"), r.MaxDate.Value.Format("2006-01-02"))
	}

	d := a.Dashboard
	fmt.Fprintf(w, "revenue ; %.2f ; orders=%d\n", d.Overview.TotalRevenue, d.Overview.Orders)
	for _, m := range d.Monthly {
		fmt.Fprintf(w, "month ; %s ; %.2f\n", m.Month, m.Revenue)
	}
	for _, c := range d.TopCountries {
		fmt.Fprintf(w, "country ; %s ; %.2f\n", c.Key, c.Revenue)
	}

	for _, s := range a.Segments {
		fmt.Fprintf(w, "%s ; customers=%d (%.1f%%) ; revenue=%.2f (%.1f%%)\n",
			s.Segment, s.Customers, 100*s.CustomerShare, s.Revenue, 100*s.RevenueShare)
	}
	for i, c := range a.Customers {
		if i >= top {
			break
		}
		fmt.Fprintf(w, "%s ; R=%d F=%d M=%.2f ; %s ; %s\n",
			c.CustomerID, c.Recency, c.Frequency, c.Monetary, c.RFMScore, c.Segment)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
