package rfm

import (
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"time"

	"retail-rfm/pkg/models"

	"golang.org/x/sync/errgroup"
)

// customerAgg cumule les transactions d'un client.
type customerAgg struct {
	id       string
	last     time.Time
	invoices map[string]struct{}
	monetary float64
}

// aggregate regroupe par client (lignes sans identifiant ignorées), trié par
// identifiant pour ne pas dépendre de l'ordre des lignes. Avec workers > 1,
// chaque worker ne garde que sa partition de hash ; les partitions sont
// disjointes, la fusion est une simple union.
func aggregate(rows []models.Transaction, workers int) []customerAgg {
	var groups map[string]*customerAgg
	if workers <= 1 {
		groups = aggregatePartition(rows, 0, 1)
	} else {
		parts := make([]map[string]*customerAgg, workers)
		var g errgroup.Group
		for p := range parts {
			p := p
			g.Go(func() error {
				parts[p] = aggregatePartition(rows, p, workers)
				return nil
			})
		}
		_ = g.Wait()

		groups = make(map[string]*customerAgg)
		for _, part := range parts {
			for id, agg := range part {
				groups[id] = agg
			}
		}
	}

	out := make([]customerAgg, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return lessCustomerID(out[i].id, out[j].id) })
	return out
}

// lessCustomerID compare deux identifiants numériquement quand les deux sont
// des nombres ("999" < "12345"), sinon lexicographiquement. Les identifiants
// numériques passent avant les autres.
func lessCustomerID(a, b string) bool {
	x, numA := numericID(a)
	y, numB := numericID(b)
	switch {
	case numA && numB && x != y:
		return x < y
	case numA != numB:
		return numA
	}
	return a < b
}

func numericID(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func aggregatePartition(rows []models.Transaction, part, parts int) map[string]*customerAgg {
	groups := make(map[string]*customerAgg)
	for _, tx := range rows {
		id, ok := tx.CustomerID.Get()
		if !ok || id == "" {
			continue
		}
		if parts > 1 && partitionOf(id, parts) != part {
			continue
		}
		agg, exists := groups[id]
		if !exists {
			agg = &customerAgg{id: id, last: tx.InvoiceDate, invoices: make(map[string]struct{})}
			groups[id] = agg
		}
		if tx.InvoiceDate.After(agg.last) {
			agg.last = tx.InvoiceDate
		}
		agg.invoices[tx.InvoiceNo] = struct{}{}
		agg.monetary += tx.Revenue
	}
	return groups
}

func partitionOf(id string, parts int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(parts))
}

// referenceTimestamp : date de facture la plus récente, lignes sans client
// comprises.
func referenceTimestamp(rows []models.Transaction) time.Time {
	var ref time.Time
	for i, tx := range rows {
		if i == 0 || tx.InvoiceDate.After(ref) {
			ref = tx.InvoiceDate
		}
	}
	return ref
}
