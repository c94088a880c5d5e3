package svdcompress

import (
	"image"
	"testing"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// rankOne is 4×3 with a single nonzero singular value.
func rankOne() *mat.Dense {
	u := []float64{1, 2, 3, 4}
	v := []float64{2, 1, 2}
	a := mat.NewDense(4, 3, nil)
	for r := 0; r < 4; r++ {
		for c := 0; c < 3; c++ {
			a.Set(r, c, u[r]*v[c])
		}
	}
	return a
}

func TestTruncateRankOneIsExact(t *testing.T) {
	a := rankOne()
	comp, err := Truncate(a, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, comp.Rank)
	assert.InDelta(t, 0, comp.RelativeError, 1e-12)
	assert.InDelta(t, 0, mat.Norm(diff(a, comp.Approx), 2), 1e-9)
}

func TestTruncateFullRankIsExact(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		4, 1, 0,
		2, 5, 1,
		0, 3, 6,
	})
	comp, err := Truncate(a, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0, comp.RelativeError, 1e-12)
	assert.InDelta(t, 0, mat.Norm(diff(a, comp.Approx), 2), 1e-9)
}

func TestTruncateErrorMatchesSpectrumTail(t *testing.T) {
	// Diagonal matrix: singular values are the absolute diagonal.
	a := mat.NewDense(3, 3, []float64{
		10, 0, 0,
		0, 4, 0,
		0, 0, 3,
	})
	comp, err := Truncate(a, 1)
	require.NoError(t, err)

	// ‖tail‖_F / ‖A‖_F = √(16+9) / √(100+16+9) = 5/√125.
	assert.InDelta(t, 0.4472135955, comp.RelativeError, 1e-9)
	assert.InDelta(t, 10, comp.SingularValues[0], 1e-9)
}

func TestTruncateStorageRatio(t *testing.T) {
	comp, err := Truncate(rankOne(), 1)
	require.NoError(t, err)
	// k(m+n+1)/(mn) = 1·8/12.
	assert.InDelta(t, 8.0/12.0, comp.StorageRatio, 1e-12)
}

func TestTruncateRejectsBadRank(t *testing.T) {
	_, err := Truncate(rankOne(), 0)
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)

	_, err = Truncate(rankOne(), 4)
	assert.ErrorIs(t, err, numeric.ErrInvalidParameter)
}

func TestGrayRoundTrip(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Pix[y*img.Stride+x] = uint8(40*y + 10*x)
		}
	}

	a := FromGray(img)
	m, n := a.Dims()
	assert.Equal(t, 3, m)
	assert.Equal(t, 4, n)
	assert.Equal(t, 80.0, a.At(2, 0))

	back := ToGray(a)
	assert.Equal(t, img.Pix, back.Pix)
}

func TestToGrayClamps(t *testing.T) {
	a := mat.NewDense(1, 3, []float64{-12, 300, 127.6})
	img := ToGray(a)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(128), img.GrayAt(2, 0).Y)
}

func TestCompressGray(t *testing.T) {
	// Constant image is rank one: a single triplet reconstructs it.
	img := image.NewGray(image.Rect(0, 0, 6, 6))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	comp, out, err := CompressGray(img, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, comp.RelativeError, 1e-12)
	assert.Equal(t, img.Pix, out.Pix)
}

func diff(a, b mat.Matrix) mat.Matrix {
	var d mat.Dense
	d.Sub(a, b)
	return &d
}
