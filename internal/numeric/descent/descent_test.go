package descent

import (
	"errors"
	"testing"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/linesearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadratic() *numeric.Objective {
	// f(x) = (x₀-3)² + 2(x₁+1)², minimum at (3,-1).
	return &numeric.Objective{
		Func: func(x []float64) float64 {
			a := x[0] - 3
			b := x[1] + 1
			return a*a + 2*b*b
		},
		Grad: func(dst, x []float64) {
			dst[0] = 2 * (x[0] - 3)
			dst[1] = 4 * (x[1] + 1)
		},
	}
}

func TestMinimizeQuadratic(t *testing.T) {
	res, err := Minimize(quadratic(), []float64{0, 0}, Params{Tol: 1e-8})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 3, res.X[0], 1e-6)
	assert.InDelta(t, -1, res.X[1], 1e-6)
	assert.InDelta(t, 0, res.F, 1e-10)
}

func TestMinimizeWithWolfeSearch(t *testing.T) {
	res, err := Minimize(quadratic(), []float64{10, 10}, Params{
		Tol:    1e-8,
		Search: linesearch.StrongWolfe{},
	})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 3, res.X[0], 1e-6)
	assert.InDelta(t, -1, res.X[1], 1e-6)
}

func TestMinimizeRecordsTrace(t *testing.T) {
	var tr numeric.Trace
	res, err := Minimize(quadratic(), []float64{0, 0}, Params{
		Tol:      1e-8,
		Recorder: tr.Record,
	})
	require.NoError(t, err)
	require.Greater(t, tr.Len(), 1)

	// First recorded iterate is the start, last is the converged point.
	assert.Equal(t, 0, tr.Iterates[0].K)
	assert.Equal(t, []float64{0, 0}, tr.Iterates[0].X)
	assert.InDelta(t, res.F, tr.Last().F, 1e-12)

	// Objective values are monotonically nonincreasing under Armijo.
	for i := 1; i < tr.Len(); i++ {
		assert.LessOrEqual(t, tr.Iterates[i].F, tr.Iterates[i-1].F,
			"f must not increase at iterate %d", i)
	}
}

func TestMinimizeMaxIterations(t *testing.T) {
	// Rosenbrock is too hard for 5 steepest-descent iterations.
	obj := &numeric.Objective{
		Func: func(x []float64) float64 {
			a := 1 - x[0]
			b := x[1] - x[0]*x[0]
			return a*a + 100*b*b
		},
	}
	res, err := Minimize(obj, []float64{-1.2, 1}, Params{Tol: 1e-12, MaxIter: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, numeric.ErrMaxIterations)
	require.NotNil(t, res)
	assert.Equal(t, 5, res.Iterations)
	assert.False(t, res.Converged)
}

func TestMinimizeInterrupt(t *testing.T) {
	stop := errors.New("stop requested")
	calls := 0
	res, err := Minimize(quadratic(), []float64{0, 0}, Params{
		Tol: 1e-12,
		Interrupt: func() error {
			calls++
			if calls > 3 {
				return stop
			}
			return nil
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, stop)
	require.NotNil(t, res)
	assert.False(t, res.Converged)
	assert.Equal(t, 3, res.Iterations)
}

func TestMinimizeAtStationaryStart(t *testing.T) {
	res, err := Minimize(quadratic(), []float64{3, -1}, Params{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
}
