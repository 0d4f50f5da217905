package rfm

import (
	"errors"
	"math"
	"sort"
)

var errDuplicateEdges = errors.New("quantile edges are not strictly increasing")

// quantileEdges renvoie les bins+1 percentiles 0, 1/bins, ..., 1, interpolés
// linéairement entre rangs voisins.
func quantileEdges(values []float64, bins int) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	edges := make([]float64, bins+1)
	for k := 0; k <= bins; k++ {
		pos := float64(k) * float64(n-1) / float64(bins)
		lo := int(math.Floor(pos))
		if lo >= n-1 {
			edges[k] = sorted[n-1]
			continue
		}
		frac := pos - float64(lo)
		edges[k] = sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
	}
	return edges
}

// qcut affecte à chaque valeur une classe (base 0). Intervalles fermés à
// droite, la plus petite valeur en classe 0. Des bornes non strictement
// croissantes sont refusées.
func qcut(values []float64, bins int) ([]int, error) {
	if len(values) == 0 {
		return nil, errDuplicateEdges
	}
	edges := quantileEdges(values, bins)
	for k := 1; k < len(edges); k++ {
		if !(edges[k] > edges[k-1]) {
			return nil, errDuplicateEdges
		}
	}

	inner := edges[1:bins]
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = sort.SearchFloat64s(inner, v)
	}
	return out, nil
}

// rankFirst classe de 1 à n par ordre croissant ; à égalité, l'ordre
// d'entrée départage.
func rankFirst(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})
	ranks := make([]float64, len(values))
	for pos, i := range idx {
		ranks[i] = float64(pos + 1)
	}
	return ranks
}
