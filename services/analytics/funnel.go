package analytics

import (
	"sort"

	"bloomify-insights/models"
)

// Funnel computes, for each step, its conversion relative to the first step
// and its drop-off relative to the previous one. Both are kept within [0,100].
func Funnel(steps []models.FunnelStep) []models.FunnelStepResult {
	out := make([]models.FunnelStepResult, 0, len(steps))
	if len(steps) == 0 {
		return out
	}
	first := float64(steps[0].Count)
	for i, step := range steps {
		res := models.FunnelStepResult{
			Name:       step.Name,
			Count:      step.Count,
			Conversion: clamp(Rate(float64(step.Count), first), 0, 100),
		}
		if i > 0 {
			prev := float64(steps[i-1].Count)
			res.Dropoff = clamp(Rate(prev-float64(step.Count), prev), 0, 100)
		}
		out = append(out, res)
	}
	return out
}

// SegmentConversions returns the conversion rate of every segment seen in
// either map, ordered by segment name.
func SegmentConversions(visitors, conversions map[string]int) []models.SegmentConversion {
	names := make(map[string]struct{}, len(visitors))
	for k := range visitors {
		names[k] = struct{}{}
	}
	for k := range conversions {
		names[k] = struct{}{}
	}
	out := make([]models.SegmentConversion, 0, len(names))
	for name := range names {
		v, c := visitors[name], conversions[name]
		out = append(out, models.SegmentConversion{
			Segment:     name,
			Visitors:    v,
			Conversions: c,
			Rate:        clamp(Rate(float64(c), float64(v)), 0, 100),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}
