package constrained

import (
	"testing"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// lineProblem: min x₀² + x₁² s.t. x₀ + x₁ = 1.
// Solution x* = (½, ½) with multiplier λ* = -1.
func lineProblem() *Problem {
	return &Problem{
		Objective: &numeric.Objective{
			Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] },
			Grad: func(dst, x []float64) {
				dst[0] = 2 * x[0]
				dst[1] = 2 * x[1]
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.SetSym(0, 0, 2)
				dst.SetSym(0, 1, 0)
				dst.SetSym(1, 1, 2)
			},
		},
		Equalities: []Constraint{{
			Name: "line",
			Func: func(x []float64) float64 { return x[0] + x[1] - 1 },
			Grad: func(dst, x []float64) {
				dst[0] = 1
				dst[1] = 1
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.Zero()
			},
		}},
	}
}

// diskProblem: min (x₀-2)² + x₁² s.t. x₀² + x₁² ≤ 1.
// Solution x* = (1, 0) with multiplier μ* = 1.
func diskProblem() *Problem {
	return &Problem{
		Objective: &numeric.Objective{
			Func: func(x []float64) float64 {
				a := x[0] - 2
				return a*a + x[1]*x[1]
			},
			Grad: func(dst, x []float64) {
				dst[0] = 2 * (x[0] - 2)
				dst[1] = 2 * x[1]
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.SetSym(0, 0, 2)
				dst.SetSym(0, 1, 0)
				dst.SetSym(1, 1, 2)
			},
		},
		Inequalities: []Constraint{{
			Name: "disk",
			Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] - 1 },
			Grad: func(dst, x []float64) {
				dst[0] = 2 * x[0]
				dst[1] = 2 * x[1]
			},
			Hess: func(dst *mat.SymDense, x []float64) {
				dst.SetSym(0, 0, 2)
				dst.SetSym(0, 1, 0)
				dst.SetSym(1, 1, 2)
			},
		}},
	}
}

func TestCheckKKTAtOptimum(t *testing.T) {
	report, err := CheckKKT(diskProblem(), []float64{1, 0}, nil, []float64{1}, 1e-6)
	require.NoError(t, err)
	assert.True(t, report.Satisfied, "KKT conditions hold at the optimum with μ=1")
	assert.InDelta(t, 0, report.Stationarity, 1e-10)
	assert.Equal(t, []int{0}, report.ActiveSet)
	assert.True(t, report.LICQ)
}

func TestCheckKKTRejectsWrongMultiplier(t *testing.T) {
	report, err := CheckKKT(diskProblem(), []float64{1, 0}, nil, []float64{0}, 1e-6)
	require.NoError(t, err)
	assert.False(t, report.Satisfied, "stationarity fails with μ=0")
	assert.InDelta(t, 2, report.Stationarity, 1e-10)
}

func TestCheckKKTNegativeMultiplier(t *testing.T) {
	report, err := CheckKKT(diskProblem(), []float64{1, 0}, nil, []float64{-1}, 1e-6)
	require.NoError(t, err)
	assert.False(t, report.Satisfied)
	assert.InDelta(t, 1, report.DualFeasibility, 1e-12)
}

func TestCheckKKTEqualityProblem(t *testing.T) {
	report, err := CheckKKT(lineProblem(), []float64{0.5, 0.5}, []float64{-1}, nil, 1e-6)
	require.NoError(t, err)
	assert.True(t, report.Satisfied)
	assert.True(t, report.LICQ)
	assert.Empty(t, report.ActiveSet)
}

func TestCheckKKTMultiplierCountMismatch(t *testing.T) {
	_, err := CheckKKT(diskProblem(), []float64{1, 0}, nil, nil, 1e-6)
	assert.ErrorIs(t, err, numeric.ErrDimensionMismatch)
}

func TestVerifyLICQFailsOnDuplicateConstraints(t *testing.T) {
	p := diskProblem()
	// A second copy of the disk constraint makes the active gradients
	// linearly dependent everywhere on the boundary.
	p.Inequalities = append(p.Inequalities, p.Inequalities[0])

	ok, err := VerifyLICQ(p, []float64{1, 0}, 1e-6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyLICQTrivialWhenInactive(t *testing.T) {
	ok, err := VerifyLICQ(diskProblem(), []float64{0, 0}, 1e-6)
	require.NoError(t, err)
	assert.True(t, ok, "no active constraints means LICQ holds trivially")
}

func TestPenaltyEqualityProblem(t *testing.T) {
	res, err := Penalty(lineProblem(), []float64{0, 0}, PenaltyParams{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 0.5, res.X[0], 1e-5)
	assert.InDelta(t, 0.5, res.X[1], 1e-5)
	assert.LessOrEqual(t, res.GradNorm, 1e-6, "constraint violation within tolerance")
}

func TestPenaltyInequalityProblem(t *testing.T) {
	res, err := Penalty(diskProblem(), []float64{0, 0}, PenaltyParams{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 1, res.X[0], 1e-4)
	assert.InDelta(t, 0, res.X[1], 1e-4)
}

func TestPenaltyRecordsOuterIterations(t *testing.T) {
	var tr numeric.Trace
	_, err := Penalty(lineProblem(), []float64{0, 0}, PenaltyParams{Recorder: tr.Record})
	require.NoError(t, err)
	require.Greater(t, tr.Len(), 1)

	// The penalty weight grows monotonically across outer iterations.
	for i := 1; i < tr.Len(); i++ {
		assert.Greater(t, tr.Iterates[i].Step, tr.Iterates[i-1].Step)
	}
}

func TestBarrierDiskProblem(t *testing.T) {
	res, err := Barrier(diskProblem(), []float64{0, 0}, BarrierParams{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 1, res.X[0], 1e-3)
	assert.InDelta(t, 0, res.X[1], 1e-4)

	// All outer iterates stay strictly feasible.
	g := res.X[0]*res.X[0] + res.X[1]*res.X[1] - 1
	assert.Negative(t, g, "barrier iterates remain interior")
}

func TestBarrierRequiresFeasibleStart(t *testing.T) {
	_, err := Barrier(diskProblem(), []float64{2, 0}, BarrierParams{})
	assert.ErrorIs(t, err, numeric.ErrInfeasibleStart)
}

func TestBarrierRejectsEqualities(t *testing.T) {
	_, err := Barrier(lineProblem(), []float64{0, 0}, BarrierParams{})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}
