// Package svdcompress implements low-rank image compression: a
// grayscale image is treated as a matrix, truncated to its k leading
// singular triplets, and reconstructed with pixel values clamped back to
// the displayable range.
package svdcompress

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"gonum.org/v1/gonum/mat"
)

// Compression is the outcome of a rank-k truncation.
type Compression struct {
	// Rank is the truncation rank actually used.
	Rank int `json:"rank"`

	// StorageRatio is k·(m+n+1) / (m·n), the fraction of the original
	// storage the truncated factors need.
	StorageRatio float64 `json:"storage_ratio"`

	// RelativeError is ‖A - A_k‖_F / ‖A‖_F.
	RelativeError float64 `json:"relative_error"`

	// SingularValues holds the full spectrum, descending.
	SingularValues []float64 `json:"singular_values"`

	// Approx is the rank-k reconstruction.
	Approx *mat.Dense `json:"-"`
}

// Truncate computes the rank-k approximation of a via the thin SVD.
// k must be between 1 and min(m, n).
func Truncate(a mat.Matrix, k int) (*Compression, error) {
	m, n := a.Dims()
	maxRank := m
	if n < m {
		maxRank = n
	}
	if k < 1 || k > maxRank {
		return nil, fmt.Errorf("svdcompress: rank %d outside [1, %d]: %w",
			k, maxRank, numeric.ErrInvalidParameter)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svdcompress: SVD failed to converge: %w", numeric.ErrSingular)
	}
	sigma := svd.Values(nil)

	var u, vt mat.Dense
	svd.UTo(&u)
	svd.VTo(&vt)

	// A_k = Σᵢ σᵢ uᵢ vᵢᵀ, i < k.
	approx := mat.NewDense(m, n, nil)
	for i := 0; i < k; i++ {
		ui := u.ColView(i)
		vi := vt.ColView(i)
		for r := 0; r < m; r++ {
			for c := 0; c < n; c++ {
				approx.Set(r, c, approx.At(r, c)+sigma[i]*ui.AtVec(r)*vi.AtVec(c))
			}
		}
	}

	// Truncation error in the Frobenius norm is the tail of the spectrum.
	tail, total := 0.0, 0.0
	for i, s := range sigma {
		total += s * s
		if i >= k {
			tail += s * s
		}
	}
	relErr := 0.0
	if total > 0 {
		relErr = math.Sqrt(tail / total)
	}

	return &Compression{
		Rank:           k,
		StorageRatio:   float64(k*(m+n+1)) / float64(m*n),
		RelativeError:  relErr,
		SingularValues: sigma,
		Approx:         approx,
	}, nil
}

// FromGray converts a grayscale image into a matrix of pixel
// intensities in [0, 255].
func FromGray(img *image.Gray) *mat.Dense {
	b := img.Bounds()
	m, n := b.Dy(), b.Dx()
	a := mat.NewDense(m, n, nil)
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			a.Set(r, c, float64(img.GrayAt(b.Min.X+c, b.Min.Y+r).Y))
		}
	}
	return a
}

// ToGray converts a matrix of intensities back into a grayscale image,
// clamping each entry to [0, 255] before rounding.
func ToGray(a mat.Matrix) *image.Gray {
	m, n := a.Dims()
	img := image.NewGray(image.Rect(0, 0, n, m))
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			v := math.Round(a.At(r, c))
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			img.SetGray(c, r, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

// CompressGray truncates a grayscale image to rank k and reconstructs
// it, returning the compression report alongside the rebuilt image.
func CompressGray(img *image.Gray, k int) (*Compression, *image.Gray, error) {
	comp, err := Truncate(FromGray(img), k)
	if err != nil {
		return nil, nil, err
	}
	return comp, ToGray(comp.Approx), nil
}
