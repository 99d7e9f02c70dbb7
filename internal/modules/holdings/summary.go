package holdings

import (
	"sort"

	"github.com/aristath/thirteenf/internal/domain"
	"gonum.org/v1/gonum/floats"
)

const topN = 10

// Summarize computes concentration statistics over a holdings list.
// Weights are shares of total reported value; a zero total yields zero weights.
func Summarize(holdings []domain.Holding) domain.HoldingsSummary {
	summary := domain.HoldingsSummary{Positions: len(holdings)}
	if len(holdings) == 0 {
		return summary
	}

	values := make([]float64, len(holdings))
	resolved := 0
	for i, h := range holdings {
		values[i] = h.Value
		if h.Ticker != "" {
			resolved++
		}
	}
	summary.ResolvedTickerRate = float64(resolved) / float64(len(holdings))

	total := floats.Sum(values)
	summary.TotalValueK = total
	if total <= 0 {
		return summary
	}

	weights := make([]float64, len(values))
	copy(weights, values)
	floats.Scale(1/total, weights)

	summary.LargestWeight = floats.Max(weights)
	summary.HerfindahlIndex = floats.Dot(weights, weights)

	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))
	n := topN
	if n > len(weights) {
		n = len(weights)
	}
	summary.TopTenWeight = floats.Sum(weights[:n])

	return summary
}
