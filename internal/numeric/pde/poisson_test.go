package pde

import (
	"math"
	"testing"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sineProblem has exact solution u = sin(πx)·sin(πy) on the unit
// square with zero boundary values and f = 2π²·sin(πx)·sin(πy).
func sineProblem(n int) (Problem, func(x, y float64) float64) {
	p := Problem{
		X0: 0, X1: 1, Y0: 0, Y1: 1,
		Nx: n, Ny: n,
		Source: func(x, y float64) float64 {
			return 2 * math.Pi * math.Pi * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
		},
	}
	exact := func(x, y float64) float64 {
		return math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	}
	return p, exact
}

func TestSolveSineSource(t *testing.T) {
	p, exact := sineProblem(15)
	s, err := Solve(p)
	require.NoError(t, err)
	assert.Less(t, MaxError(p, s, exact), 5e-3)
}

func TestSolveSecondOrderConvergence(t *testing.T) {
	var errs []float64
	for _, n := range []int{7, 15, 31} {
		p, exact := sineProblem(n)
		s, err := Solve(p)
		require.NoError(t, err)
		errs = append(errs, MaxError(p, s, exact))
	}

	// Halving h should shrink the error by about 4×.
	for i := 1; i < len(errs); i++ {
		ratio := errs[i-1] / errs[i]
		assert.Greater(t, ratio, 3.4, "refinement %d", i)
		assert.Less(t, ratio, 4.6, "refinement %d", i)
	}
}

func TestSolveHarmonicBoundary(t *testing.T) {
	// u = x² - y² is harmonic, so f = 0 and the solution is driven
	// entirely by the boundary data. The stencil is exact for
	// quadratics up to rounding.
	exact := func(x, y float64) float64 { return x*x - y*y }
	p := Problem{
		X0: 0, X1: 1, Y0: 0, Y1: 1,
		Nx: 9, Ny: 9,
		Source:   func(x, y float64) float64 { return 0 },
		Boundary: exact,
	}
	s, err := Solve(p)
	require.NoError(t, err)
	assert.Less(t, MaxError(p, s, exact), 1e-10)
}

func TestSolveRectangularGrid(t *testing.T) {
	// Anisotropic grid on [0,2]×[0,1] with u = sin(πx/2)·sin(πy).
	exact := func(x, y float64) float64 {
		return math.Sin(math.Pi*x/2) * math.Sin(math.Pi*y)
	}
	p := Problem{
		X0: 0, X1: 2, Y0: 0, Y1: 1,
		Nx: 19, Ny: 14,
		Source: func(x, y float64) float64 {
			return (math.Pi*math.Pi/4 + math.Pi*math.Pi) * exact(x, y)
		},
	}
	s, err := Solve(p)
	require.NoError(t, err)
	assert.Less(t, MaxError(p, s, exact), 5e-3)
}

func TestSolveValidation(t *testing.T) {
	_, err := Solve(Problem{X0: 0, X1: 1, Y0: 0, Y1: 1, Nx: 0, Ny: 3,
		Source: func(x, y float64) float64 { return 0 }})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

	_, err = Solve(Problem{X0: 1, X1: 0, Y0: 0, Y1: 1, Nx: 3, Ny: 3,
		Source: func(x, y float64) float64 { return 0 }})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

	_, err = Solve(Problem{X0: 0, X1: 1, Y0: 0, Y1: 1, Nx: 3, Ny: 3})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}

func TestSolutionIndexing(t *testing.T) {
	s := &Solution{Nx: 3, Ny: 2, U: []float64{0, 1, 2, 3, 4, 5}}
	assert.Equal(t, 2.0, s.At(2, 0))
	assert.Equal(t, 3.0, s.At(0, 1))
}
