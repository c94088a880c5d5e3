package eigen

import (
	"math"
	"testing"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// diag3 has eigenvalues 5, 2, 1 with eigenvectors the coordinate axes.
func diag3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		5, 0, 0,
		0, 2, 0,
		0, 0, 1,
	})
}

// sym3 = I + ones(3), with known spectrum {4, 1, 1}.
func sym3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		2, 1, 1,
		1, 2, 1,
		1, 1, 2,
	})
}

func TestPowerDominantEigenpair(t *testing.T) {
	lambda, v, err := Power(diag3(), []float64{1, 1, 1}, PowerParams{})
	require.NoError(t, err)
	assert.InDelta(t, 5, lambda, 1e-8)
	assert.InDelta(t, 1, math.Abs(v[0]), 1e-6)
	assert.InDelta(t, 0, v[1], 1e-6)
	assert.InDelta(t, 0, v[2], 1e-6)
}

func TestPowerSymmetricMatrix(t *testing.T) {
	lambda, v, err := Power(sym3(), []float64{1, 0, 0}, PowerParams{})
	require.NoError(t, err)
	assert.InDelta(t, 4, lambda, 1e-8)

	// Dominant eigenvector is (1,1,1)/√3 up to sign.
	want := 1 / math.Sqrt(3)
	for i := range v {
		assert.InDelta(t, want, math.Abs(v[i]), 1e-6)
	}
}

func TestPowerRejectsZeroVector(t *testing.T) {
	_, _, err := Power(diag3(), []float64{0, 0, 0}, PowerParams{})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}

func TestPowerRejectsDimensionMismatch(t *testing.T) {
	_, _, err := Power(diag3(), []float64{1, 1}, PowerParams{})
	assert.ErrorIs(t, err, numeric.ErrDimensionMismatch)
}

func TestPowerRecordsTrace(t *testing.T) {
	var tr numeric.Trace
	_, _, err := Power(diag3(), []float64{1, 1, 1}, PowerParams{Recorder: tr.Record})
	require.NoError(t, err)
	require.Greater(t, tr.Len(), 0)
	assert.InDelta(t, 5, tr.Last().F, 1e-8)
}

func TestInversePowerFindsNearestEigenvalue(t *testing.T) {
	lambda, v, err := InversePower(diag3(), 1.8, []float64{1, 1, 1}, PowerParams{})
	require.NoError(t, err)
	assert.InDelta(t, 2, lambda, 1e-8)
	assert.InDelta(t, 1, math.Abs(v[1]), 1e-6)
}

func TestInversePowerSmallestEigenvalue(t *testing.T) {
	lambda, _, err := InversePower(sym3(), 0, []float64{1, -1, 0.3}, PowerParams{})
	require.NoError(t, err)
	assert.InDelta(t, 1, lambda, 1e-8)
}

func TestQREigenDiagonal(t *testing.T) {
	eigs, err := QREigen(diag3(), QRParams{})
	require.NoError(t, err)
	require.Len(t, eigs, 3)
	assert.InDelta(t, 5, eigs[0], 1e-10)
	assert.InDelta(t, 2, eigs[1], 1e-10)
	assert.InDelta(t, 1, eigs[2], 1e-10)
}

func TestQREigenSymmetric(t *testing.T) {
	eigs, err := QREigen(sym3(), QRParams{})
	require.NoError(t, err)
	require.Len(t, eigs, 3)
	assert.InDelta(t, 4, eigs[0], 1e-9)
	assert.InDelta(t, 1, eigs[1], 1e-9)
	assert.InDelta(t, 1, eigs[2], 1e-9)
}

func TestQREigenTridiagonalLaplacian(t *testing.T) {
	// The n×n second-difference matrix has eigenvalues
	// 2 - 2·cos(kπ/(n+1)), k = 1..n.
	const n = 8
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 2)
		if i > 0 {
			a.Set(i, i-1, -1)
			a.Set(i-1, i, -1)
		}
	}

	eigs, err := QREigen(a, QRParams{})
	require.NoError(t, err)
	require.Len(t, eigs, n)

	for k := 1; k <= n; k++ {
		want := 2 - 2*math.Cos(float64(n+1-k)*math.Pi/float64(n+1))
		assert.InDelta(t, want, eigs[k-1], 1e-8, "eigenvalue %d", k)
	}
}

func TestQREigenRejectsAsymmetric(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	_, err := QREigen(a, QRParams{})
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}

func TestQREigenRejectsNonSquare(t *testing.T) {
	a := mat.NewDense(2, 3, nil)
	_, err := QREigen(a, QRParams{})
	assert.ErrorIs(t, err, numeric.ErrDimensionMismatch)
}

func TestHessenbergPreservesSpectrumShape(t *testing.T) {
	h := mat.NewDense(4, 4, []float64{
		4, 1, 2, 0,
		1, 3, 0, 1,
		2, 0, 2, 1,
		0, 1, 1, 1,
	})
	hessenberg(h)

	// Symmetric input reduces to tridiagonal form.
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i > j+1 || j > i+1 {
				assert.InDelta(t, 0, h.At(i, j), 1e-12, "entry (%d,%d)", i, j)
			}
		}
	}
}
