// Package rfm note les clients en quintiles de récence, fréquence et montant,
// puis les range dans des segments fixes.
package rfm

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/models"
)

// Bins : nombre de classes d'effectif égal par axe.
const Bins = 5

type Options struct {
	// Workers > 1 : agrégation partitionnée.
	Workers int
}

func DefaultOptions() Options {
	return Options{Workers: 1}
}

// Compute note chaque client d'une table nettoyée ; erreur MissingKey si la
// table n'a pas de colonne client.
func Compute(table models.Table, opts Options) ([]models.CustomerRFM, error) {
	ct, err := table.Customers()
	if err != nil {
		return nil, err
	}
	return Score(ct, opts)
}

// Score calcule la table RFM, triée par montant décroissant (identifiant
// croissant à égalité).
//
// Pas de repli : moins de Bins clients, ou des bornes de récence confondues,
// donnent une erreur DegenerateBinning.
func Score(ct models.CustomerTable, opts Options) ([]models.CustomerRFM, error) {
	rows := ct.Rows()
	if len(rows) == 0 {
		return nil, apperr.EmptyResult("no cleaned transactions to score").WithOp("rfm")
	}

	ref := referenceTimestamp(rows)
	groups := aggregate(rows, opts.Workers)
	if len(groups) == 0 {
		return nil, apperr.EmptyResult("no rows carry a customer id").WithOp("rfm")
	}
	if len(groups) < Bins {
		return nil, apperr.DegenerateBinning("customers",
			fmt.Sprintf("%d distinct customers, need at least %d", len(groups), Bins)).WithOp("rfm")
	}

	out := make([]models.CustomerRFM, len(groups))
	recency := make([]float64, len(groups))
	frequency := make([]float64, len(groups))
	monetary := make([]float64, len(groups))
	for i, g := range groups {
		days := int(ref.Sub(g.last) / (24 * time.Hour))
		out[i] = models.CustomerRFM{
			CustomerID:   g.id,
			LastPurchase: g.last,
			Frequency:    len(g.invoices),
			Monetary:     g.monetary,
			Recency:      days,
		}
		recency[i] = float64(days)
		frequency[i] = float64(len(g.invoices))
		monetary[i] = g.monetary
	}

	rBins, err := qcut(recency, Bins)
	if err != nil {
		return nil, apperr.DegenerateBinning("recency", err.Error()).WithOp("rfm")
	}
	fBins, err := qcut(rankFirst(frequency), Bins)
	if err != nil {
		return nil, apperr.DegenerateBinning("frequency", err.Error()).WithOp("rfm")
	}
	mBins, err := qcut(rankFirst(monetary), Bins)
	if err != nil {
		return nil, apperr.DegenerateBinning("monetary", err.Error()).WithOp("rfm")
	}

	for i := range out {
		// récence inversée : la classe la plus fraîche vaut 5
		s := models.Scores{R: Bins - rBins[i], F: fBins[i] + 1, M: mBins[i] + 1}
		out[i].Scores = s
		out[i].RFMScore = s.Code()
		out[i].Segment = Classify(s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Monetary != out[j].Monetary {
			return out[i].Monetary > out[j].Monetary
		}
		return lessCustomerID(out[i].CustomerID, out[j].CustomerID)
	})

	slog.Debug("rfm scored",
		"customers", len(out),
		"reference", ref.Format(time.RFC3339),
		"workers", opts.Workers,
	)
	return out, nil
}
