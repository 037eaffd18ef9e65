// Package stats holds the statistics used to compare engine outputs.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrEmptySample is returned when a test receives an empty sample.
var ErrEmptySample = errors.New("stats: empty sample")

// exactLimit is the largest size the smaller sample may have for the exact
// U distribution to be used.
const exactLimit = 8

// Method names how a p-value was computed
type Method string

const (
	Exact      Method = "exact"
	Asymptotic Method = "asymptotic"
)

// MannWhitneyResult is the outcome of a two-sided Mann–Whitney U test
type MannWhitneyResult struct {
	U1     float64 `json:"u1"` // pairs (x, y) with x > y, ties counted as one half
	U2     float64 `json:"u2"`
	PValue float64 `json:"p_value"`
	Method Method  `json:"method"`
	N1     int     `json:"n1"`
	N2     int     `json:"n2"`
}

// MannWhitneyU tests the null hypothesis that x and y are drawn from the
// same distribution against the two-sided alternative.
//
// Ties get midranks. Without ties, and with at least one sample of at most
// exactLimit observations, the exact null distribution of U is used;
// everything else uses the normal approximation with tie and continuity
// corrections.
func MannWhitneyU(x, y []float64) (MannWhitneyResult, error) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return MannWhitneyResult{}, fmt.Errorf("mann-whitney with sizes %d and %d: %w", n1, n2, ErrEmptySample)
	}

	ranks, ties := rank(x, y)

	r1 := 0.0
	for _, r := range ranks[:n1] {
		r1 += r
	}

	fn1, fn2 := float64(n1), float64(n2)
	u1 := r1 - fn1*(fn1+1)/2
	u2 := fn1*fn2 - u1

	res := MannWhitneyResult{U1: u1, U2: u2, N1: n1, N2: n2}
	u := math.Max(u1, u2)

	if min(n1, n2) <= exactLimit && len(ties) == 0 {
		res.Method = Exact
		res.PValue = exactPValue(int(math.Round(u)), n1, n2)
		return res, nil
	}

	res.Method = Asymptotic
	res.PValue = asymptoticPValue(u, n1, n2, ties)
	return res, nil
}

// rank assigns midranks to the pooled samples x ++ y and returns the sizes
// of all tie groups.
func rank(x, y []float64) ([]float64, []int) {
	n := len(x) + len(y)
	values := make([]float64, 0, n)
	values = append(values, x...)
	values = append(values, y...)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return values[order[i]] < values[order[j]] })

	ranks := make([]float64, n)
	ties := make([]int, 0)

	for i := 0; i < n; {
		j := i + 1
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		// positions i..j-1 share ranks i+1..j
		mid := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = mid
		}
		if j-i > 1 {
			ties = append(ties, j-i)
		}
		i = j
	}

	return ranks, ties
}

func asymptoticPValue(u float64, n1, n2 int, ties []int) float64 {
	fn1, fn2 := float64(n1), float64(n2)
	n := fn1 + fn2

	tieTerm := 0.0
	for _, t := range ties {
		ft := float64(t)
		tieTerm += ft*ft*ft - ft
	}

	sigma := math.Sqrt(fn1 * fn2 / 12 * ((n + 1) - tieTerm/(n*(n-1))))
	if sigma == 0 || math.IsNaN(sigma) {
		// every observation is equal
		return 1
	}

	z := (u - fn1*fn2/2 - 0.5) / sigma
	return clip(2 * distuv.UnitNormal.Survival(z))
}

// exactPValue returns 2 * P(U >= u) under the null distribution of U.
func exactPValue(u, n1, n2 int) float64 {
	// the distribution is symmetric in the sample sizes
	counts := uDistribution(min(n1, n2), max(n1, n2))

	// P(U >= u) = P(U <= n1*n2 - u); the low coefficients stay exact
	lower := n1*n2 - u
	total, tail := 0.0, 0.0
	for k, c := range counts {
		total += c
		if k <= lower {
			tail += c
		}
	}
	return clip(2 * tail / total)
}

// uDistribution returns the number of rank arrangements giving each value
// of U for sample sizes m and n: the coefficients of the Gaussian binomial
// coefficient [m+n choose m]_q. Counts are exact while they stay below 2^53;
// beyond that they keep float64 relative precision, which is all the p-value
// needs.
func uDistribution(m, n int) []float64 {
	c := make([]float64, m*n+m+1)
	c[0] = 1

	for i := 1; i <= m; i++ {
		// multiply by (1 - q^(n+i))
		a := n + i
		for k := len(c) - 1; k >= a; k-- {
			c[k] -= c[k-a]
		}
		// divide by (1 - q^i)
		for k := i; k < len(c); k++ {
			c[k] += c[k-i]
		}
	}

	return c[:m*n+1]
}

func clip(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// PooledMean returns the mean over all values of all samples, or NaN when
// there are none.
func PooledMean(samples ...[]int) float64 {
	values := make([]float64, 0)
	for _, s := range samples {
		for _, v := range s {
			values = append(values, float64(v))
		}
	}
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// Floats converts integer observations to float64.
func Floats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
