package rfm

import "retail-rfm/pkg/models"

// Rule associe un prédicat sur les notes à un segment.
type Rule struct {
	Segment models.Segment
	Match   func(models.Scores) bool
}

// Rules est évaluée de haut en bas ; la première règle vérifiée l'emporte.
// La dernière règle est toujours vraie.
var Rules = []Rule{
	{models.SegmentChampions, func(s models.Scores) bool { return s.R >= 4 && s.F >= 4 && s.M >= 4 }},
	{models.SegmentLoyal, func(s models.Scores) bool { return s.R >= 4 && s.F >= 3 }},
	{models.SegmentNewCustomers, func(s models.Scores) bool { return s.R >= 4 && s.F <= 2 }},
	{models.SegmentAtRiskFrequency, func(s models.Scores) bool { return s.R <= 2 && s.F >= 4 }},
	{models.SegmentAtRiskMonetary, func(s models.Scores) bool { return s.R <= 2 && s.M >= 4 }},
	{models.SegmentPotentialLoyalist, func(s models.Scores) bool { return s.R == 3 && s.F == 3 }},
	{models.SegmentOthers, func(models.Scores) bool { return true }},
}

func Classify(s models.Scores) models.Segment {
	return classifyWith(Rules, s)
}

func classifyWith(rules []Rule, s models.Scores) models.Segment {
	for _, r := range rules {
		if r.Match(s) {
			return r.Segment
		}
	}
	return models.SegmentOthers
}
