package allocation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Strategy selects how locations are ranked before the greedy walk.
type Strategy string

const (
	// StrategyLP ranks locations by their weight in the LP relaxation.
	StrategyLP Strategy = "lp"

	// StrategyGreedy repeatedly takes the location with the most uncovered
	// cards, ties broken by enumeration order.
	StrategyGreedy Strategy = "greedy"
)

// ParseStrategy maps a flag value to a Strategy. The empty string is StrategyLP.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyLP:
		return StrategyLP, nil
	case StrategyGreedy:
		return StrategyGreedy, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want %q or %q)", s, StrategyLP, StrategyGreedy)
	}
}

// weightPrecision bounds the simplex noise that may reorder equal weights.
const weightPrecision = 1e-9

const simplexTolerance = 1e-10

// relax solves min Σx_j subject to Σ_{j∋e} x_j ≥ 1 for every element e and
// 0 ≤ x_j ≤ 1, over k elements and the given sets. It returns the optimal
// weight per set and the objective, a lower bound on the cover size.
//
// The program is brought into the standard form min cᵀy, Ay = b, y ≥ 0 with
// y = [x, s, t], where s_e is the surplus of element e and t_j the slack of
// the upper bound of x_j.
func relax(sets [][]int, k int) ([]float64, float64, error) {
	m := len(sets)
	if m == 0 || k == 0 {
		return make([]float64, m), 0, nil
	}

	rows, cols := k+m, m+k+m
	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)

	for j, set := range sets {
		c[j] = 1
		for _, e := range set {
			a.Set(e, j, 1)
		}
		a.Set(k+j, j, 1)
		a.Set(k+j, m+k+j, 1)
		b[k+j] = 1
	}
	for e := 0; e < k; e++ {
		a.Set(e, m+e, -1)
		b[e] = 1
	}

	opt, y, err := lp.Simplex(c, a, b, simplexTolerance, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to solve LP relaxation: %w", err)
	}

	weights := make([]float64, m)
	for j := range weights {
		weights[j] = math.Min(1, math.Max(0, y[j]))
	}
	return weights, opt, nil
}

// rankByWeight returns set indices ordered by weight descending. Equal
// weights keep enumeration order.
func rankByWeight(weights []float64) []int {
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	rounded := func(i int) float64 {
		return math.Round(weights[i]/weightPrecision) * weightPrecision
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rounded(order[a]) > rounded(order[b])
	})
	return order
}

// acceptance is one accepted set and the elements it newly covers, in
// ascending order.
type acceptance struct {
	set      int
	elements []int
}

// walk accepts sets in the given order while they add uncovered elements and
// stops once all k elements are collected. It reports false if the order is
// exhausted first.
func walk(sets [][]int, k int, order []int) ([]acceptance, bool) {
	collected := make([]bool, k)
	remaining := k
	var accepted []acceptance

	for _, j := range order {
		if remaining == 0 {
			break
		}
		var fresh []int
		for _, e := range sets[j] {
			if !collected[e] {
				fresh = append(fresh, e)
			}
		}
		if len(fresh) == 0 {
			continue
		}
		sort.Ints(fresh)
		for _, e := range fresh {
			collected[e] = true
		}
		remaining -= len(fresh)
		accepted = append(accepted, acceptance{set: j, elements: fresh})
	}
	return accepted, remaining == 0
}

// greedyOrder builds the order of the classical max-new-coverage heuristic.
// Only sets that add coverage at the time they are picked are returned.
func greedyOrder(sets [][]int, k int) []int {
	collected := make([]bool, k)
	used := make([]bool, len(sets))
	remaining := k
	var order []int

	for remaining > 0 {
		best, bestGain := -1, 0
		for j, set := range sets {
			if used[j] {
				continue
			}
			gain := 0
			for _, e := range set {
				if !collected[e] {
					gain++
				}
			}
			if gain > bestGain {
				best, bestGain = j, gain
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		for _, e := range sets[best] {
			collected[e] = true
		}
		remaining -= bestGain
		order = append(order, best)
	}
	return order
}

// cover picks sets whose union is all k elements. bound is the LP objective
// for StrategyLP and zero otherwise.
func cover(sets [][]int, k int, strategy Strategy) (accepted []acceptance, bound float64, err error) {
	var order []int
	switch strategy {
	case StrategyGreedy:
		order = greedyOrder(sets, k)
	default:
		var weights []float64
		weights, bound, err = relax(sets, k)
		if err != nil {
			return nil, 0, err
		}
		order = rankByWeight(weights)
	}

	accepted, ok := walk(sets, k, order)
	if !ok {
		return nil, 0, fmt.Errorf("sets do not cover all %d elements", k)
	}
	return accepted, bound, nil
}
