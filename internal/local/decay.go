package local

import (
	"math"
	"sort"
	"time"

	"github.com/rcliao/lorekeeper/internal/model"
)

// AdjustedImportance returns the effective importance of r at now.
//
// Age decays the score linearly by the recollection's decay rate per day and
// each recall adds 0.2 back, up to 2.0. The multiplier never drops below 0.1
// and the result stays within [0.5, importance].
func AdjustedImportance(r *model.Recollection, now time.Time) float64 {
	ageDays := now.Sub(r.Timestamp).Hours() / 24
	decay := r.DecayRate * ageDays
	boost := math.Min(2.0, 0.2*float64(r.RecallCount))

	importance := float64(r.Importance)
	adjusted := importance * math.Max(0.1, 1.0-decay+boost)
	return math.Max(0.5, math.Min(importance, adjusted))
}

type rankedRef struct {
	rec      *model.Recollection
	adjusted float64
}

// ranked returns every recollection ordered by adjusted importance, ties
// keeping canonical order.
func (m *Memory) ranked(now time.Time) []rankedRef {
	out := make([]rankedRef, len(m.memories))
	for i, r := range m.memories {
		out[i] = rankedRef{rec: r, adjusted: AdjustedImportance(r, now)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].adjusted > out[j].adjusted
	})
	return out
}
