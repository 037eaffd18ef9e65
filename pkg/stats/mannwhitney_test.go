package stats

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func seq(from, to int) []float64 {
	out := make([]float64, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, float64(v))
	}
	return out
}

func TestMannWhitneyExactSeparated(t *testing.T) {
	res, err := MannWhitneyU(seq(1, 5), seq(6, 10))
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}

	if res.Method != Exact {
		t.Errorf("Method = %s, want %s", res.Method, Exact)
	}
	if res.U1 != 0 || res.U2 != 25 {
		t.Errorf("U1, U2 = %v, %v, want 0, 25", res.U1, res.U2)
	}
	// only one of C(10,5) = 252 arrangements is this extreme, on each side
	if want := 2.0 / 252; math.Abs(res.PValue-want) > 1e-12 {
		t.Errorf("PValue = %v, want %v", res.PValue, want)
	}
}

func TestMannWhitneyExactUnbalanced(t *testing.T) {
	// only the smaller sample needs to be small for the exact distribution
	res, err := MannWhitneyU(seq(1, 5), seq(100, 119))
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}

	if res.Method != Exact {
		t.Errorf("Method = %s, want %s", res.Method, Exact)
	}
	if res.U1 != 0 || res.U2 != 100 {
		t.Errorf("U1, U2 = %v, %v, want 0, 100", res.U1, res.U2)
	}
	// one extreme arrangement of C(25, 5) = 53130 on each side
	if want := 2.0 / 53130; math.Abs(res.PValue-want) > 1e-15 {
		t.Errorf("PValue = %v, want %v", res.PValue, want)
	}

	swapped, err := MannWhitneyU(seq(100, 119), seq(1, 5))
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if swapped.Method != Exact || math.Abs(swapped.PValue-res.PValue) > 1e-15 {
		t.Errorf("swapped samples: %+v, want exact p = %v", swapped, res.PValue)
	}
}

func TestMannWhitneyExactLargeSecondSample(t *testing.T) {
	// C(2008, 8) overflows int64; the p-value must still be a probability
	res, err := MannWhitneyU(seq(5000, 5007), seq(1, 2000))
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if res.Method != Exact {
		t.Errorf("Method = %s, want %s", res.Method, Exact)
	}
	if !(res.PValue > 0 && res.PValue < 1e-15) {
		t.Errorf("PValue = %v, want a tiny positive probability", res.PValue)
	}
}

func TestMannWhitneyExactInterleaved(t *testing.T) {
	// Perfectly interleaved samples sit at the centre of the distribution
	res, err := MannWhitneyU([]float64{1, 4, 5, 8}, []float64{2, 3, 6, 7})
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if res.U1 != 8 || res.U2 != 8 {
		t.Errorf("U1, U2 = %v, %v, want 8, 8", res.U1, res.U2)
	}
	if res.PValue != 1 {
		t.Errorf("PValue = %v, want 1", res.PValue)
	}
}

func TestMannWhitneyIdenticalSamples(t *testing.T) {
	sample := []float64{3, 7, 7, 1, 12, 40, 3, 3, 9, 15, 2, 2}

	res, err := MannWhitneyU(sample, sample)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if res.PValue != 1 {
		t.Errorf("PValue = %v, want 1", res.PValue)
	}
	if res.Method != Asymptotic {
		t.Errorf("Method = %s, want %s (ties present)", res.Method, Asymptotic)
	}
}

func TestMannWhitneyAllEqual(t *testing.T) {
	res, err := MannWhitneyU([]float64{4, 4, 4}, []float64{4, 4})
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if res.PValue != 1 {
		t.Errorf("PValue = %v, want 1", res.PValue)
	}
}

func TestMannWhitneyAsymptoticSeparated(t *testing.T) {
	res, err := MannWhitneyU(seq(1, 20), seq(21, 40))
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	if res.Method != Asymptotic {
		t.Errorf("Method = %s, want %s", res.Method, Asymptotic)
	}
	// z = (400 - 200 - 0.5) / sqrt(400 * 41 / 12) ~ 5.40
	if res.PValue > 1e-6 {
		t.Errorf("PValue = %v, want < 1e-6", res.PValue)
	}
}

func TestMannWhitneySymmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 5))
	x := make([]float64, 40)
	y := make([]float64, 55)
	for i := range x {
		x[i] = float64(r.IntN(30))
	}
	for i := range y {
		y[i] = float64(r.IntN(30) + 3)
	}

	a, err := MannWhitneyU(x, y)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}
	b, err := MannWhitneyU(y, x)
	if err != nil {
		t.Fatalf("MannWhitneyU failed: %v", err)
	}

	if math.Abs(a.PValue-b.PValue) > 1e-12 {
		t.Errorf("p-value depends on argument order: %v vs %v", a.PValue, b.PValue)
	}
	if a.U1 != b.U2 || a.U2 != b.U1 {
		t.Errorf("U statistics not mirrored: %+v vs %+v", a, b)
	}
	if a.U1+a.U2 != float64(len(x)*len(y)) {
		t.Errorf("U1 + U2 = %v, want %d", a.U1+a.U2, len(x)*len(y))
	}
}

func TestMannWhitneySameDistributionNotRejected(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 13))
	draw := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Floor(r.ExpFloat64() * 50)
		}
		return out
	}

	rejected := 0
	for trial := 0; trial < 200; trial++ {
		res, err := MannWhitneyU(draw(30), draw(30))
		if err != nil {
			t.Fatalf("MannWhitneyU failed: %v", err)
		}
		if res.PValue < 0.01 {
			rejected++
		}
	}

	// about 2 expected at the 1% level
	if rejected > 10 {
		t.Errorf("rejected %d/200 tests of identical distributions", rejected)
	}
}

func TestMannWhitneyEmpty(t *testing.T) {
	if _, err := MannWhitneyU(nil, []float64{1}); !errors.Is(err, ErrEmptySample) {
		t.Errorf("expected ErrEmptySample, got %v", err)
	}
}

func TestRankMidranks(t *testing.T) {
	ranks, ties := rank([]float64{10, 20, 20}, []float64{5, 20})

	want := []float64{2, 4, 4, 1, 4}
	for i := range want {
		if ranks[i] != want[i] {
			t.Errorf("rank[%d] = %v, want %v", i, ranks[i], want[i])
		}
	}
	if len(ties) != 1 || ties[0] != 3 {
		t.Errorf("ties = %v, want [3]", ties)
	}
}

func TestUDistribution(t *testing.T) {
	tests := []struct {
		m, n int
		want []float64
	}{
		{1, 1, []float64{1, 1}},
		{2, 2, []float64{1, 1, 2, 1, 1}},
		{2, 3, []float64{1, 1, 2, 2, 2, 1, 1}},
	}

	for _, tt := range tests {
		got := uDistribution(tt.m, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("uDistribution(%d, %d) = %v, want %v", tt.m, tt.n, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("uDistribution(%d, %d) = %v, want %v", tt.m, tt.n, got, tt.want)
				break
			}
		}
	}

	// total arrangements is C(16, 8)
	var total float64
	for _, c := range uDistribution(8, 8) {
		total += c
	}
	if total != 12870 {
		t.Errorf("C(16, 8) = %v, want 12870", total)
	}
}

func TestPooledMean(t *testing.T) {
	if got := PooledMean([]int{1, 2, 3}, []int{4}, nil); got != 2.5 {
		t.Errorf("PooledMean() = %v, want 2.5", got)
	}
	if got := PooledMean(); !math.IsNaN(got) {
		t.Errorf("PooledMean() of nothing = %v, want NaN", got)
	}
}
