package rfm

import (
	"sort"

	"retail-rfm/pkg/models"
)

// Summarize agrège la table RFM par segment (clients, revenu et leurs parts),
// par revenu décroissant.
func Summarize(rows []models.CustomerRFM) []models.SegmentSummary {
	bySegment := make(map[models.Segment]*models.SegmentSummary)
	totalRevenue := 0.0
	for _, r := range rows {
		s, ok := bySegment[r.Segment]
		if !ok {
			s = &models.SegmentSummary{Segment: r.Segment}
			bySegment[r.Segment] = s
		}
		s.Customers++
		s.Revenue += r.Monetary
		totalRevenue += r.Monetary
	}

	order := make(map[models.Segment]int, len(models.Segments))
	for i, seg := range models.Segments {
		order[seg] = i
	}

	out := make([]models.SegmentSummary, 0, len(bySegment))
	for _, s := range bySegment {
		if len(rows) > 0 {
			s.CustomerShare = float64(s.Customers) / float64(len(rows))
		}
		if totalRevenue > 0 {
			s.RevenueShare = s.Revenue / totalRevenue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return order[out[i].Segment] < order[out[j].Segment]
	})
	return out
}
