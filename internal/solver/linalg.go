package solver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/nvalden/numlab-api/internal/numeric"
	"github.com/nvalden/numlab-api/internal/numeric/eigen"
	"github.com/nvalden/numlab-api/internal/numeric/fourier"
	"github.com/nvalden/numlab-api/internal/numeric/pde"
	"github.com/nvalden/numlab-api/internal/numeric/svdcompress"
	"gonum.org/v1/gonum/mat"
)

// maxMatrixDim caps request matrices, like the Poisson grid cap: large
// dense factorizations belong offline, not behind a course endpoint.
const maxMatrixDim = 512

// denseFromRows validates a rectangular [][]float64 and converts it.
func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	m := len(rows)
	if m == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: matrix must be non-empty", ErrBadParams)
	}
	n := len(rows[0])
	if m > maxMatrixDim || n > maxMatrixDim {
		return nil, fmt.Errorf("%w: matrix is %d×%d, limit is %d per side",
			ErrBadParams, m, n, maxMatrixDim)
	}
	a := mat.NewDense(m, n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrBadParams, i, len(row), n)
		}
		a.SetRow(i, row)
	}
	return a, nil
}

type powerIterationParams struct {
	Matrix  [][]float64 `json:"matrix" validate:"required,min=1"`
	Start   []float64   `json:"start,omitempty"`
	Shift   *float64    `json:"shift,omitempty"`
	Tol     float64     `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxIter int         `json:"max_iter,omitempty" validate:"omitempty,gt=0,lte=1000000"`
}

type eigenpairResult struct {
	Eigenvalue  float64   `json:"eigenvalue"`
	Eigenvector []float64 `json:"eigenvector"`
	Iterations  int       `json:"iterations"`
}

// runPowerIteration runs power iteration, or shifted inverse iteration
// when a shift is supplied.
func (r *Registry) runPowerIteration(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p powerIterationParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	a, err := denseFromRows(p.Matrix)
	if err != nil {
		return nil, err
	}
	n, _ := a.Dims()
	start := p.Start
	if start == nil {
		// Deterministic nonzero default with components along every axis.
		start = make([]float64, n)
		for i := range start {
			start[i] = 1 + float64(i)/float64(n)
		}
	}

	var tr numeric.Trace
	params := eigen.PowerParams{Tol: p.Tol, MaxIter: p.MaxIter, Recorder: tr.Record, Interrupt: ctx.Err}

	var lambda float64
	var v []float64
	if p.Shift != nil {
		lambda, v, err = eigen.InversePower(a, *p.Shift, start, params)
	} else {
		lambda, v, err = eigen.Power(a, start, params)
	}
	if err != nil {
		if errors.Is(err, numeric.ErrDimensionMismatch) || errors.Is(err, numeric.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		return nil, err
	}
	return marshalOutcome(eigenpairResult{
		Eigenvalue: lambda, Eigenvector: v, Iterations: tr.Len(),
	}, tr.Iterates)
}

type qrEigenParams struct {
	Matrix  [][]float64 `json:"matrix" validate:"required,min=1"`
	Tol     float64     `json:"tol,omitempty" validate:"omitempty,gt=0"`
	MaxIter int         `json:"max_iter,omitempty" validate:"omitempty,gt=0,lte=1000000"`
}

type spectrumResult struct {
	Eigenvalues []float64 `json:"eigenvalues"`
}

func (r *Registry) runQREigen(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p qrEigenParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	a, err := denseFromRows(p.Matrix)
	if err != nil {
		return nil, err
	}

	eigs, err := eigen.QREigen(a, eigen.QRParams{Tol: p.Tol, MaxIter: p.MaxIter, Interrupt: ctx.Err})
	if err != nil {
		if errors.Is(err, numeric.ErrDimensionMismatch) || errors.Is(err, numeric.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		return nil, err
	}
	return marshalOutcome(spectrumResult{Eigenvalues: eigs}, nil)
}

type poissonParams struct {
	Nx          int     `json:"nx" validate:"required,gt=0,lte=128"`
	Ny          int     `json:"ny" validate:"required,gt=0,lte=128"`
	X0          float64 `json:"x0,omitempty"`
	X1          float64 `json:"x1,omitempty"`
	Y0          float64 `json:"y0,omitempty"`
	Y1          float64 `json:"y1,omitempty"`
	Source      string  `json:"source" validate:"required,oneof=constant sine_product"`
	SourceValue float64 `json:"source_value,omitempty"`
}

type poissonResult struct {
	Nx   int       `json:"nx"`
	Ny   int       `json:"ny"`
	Hx   float64   `json:"hx"`
	Hy   float64   `json:"hy"`
	UMax float64   `json:"u_max"`
	U    []float64 `json:"u"`
}

func (r *Registry) runPoisson(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p poissonParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	// Default to the unit square.
	if p.X0 == 0 && p.X1 == 0 {
		p.X1 = 1
	}
	if p.Y0 == 0 && p.Y1 == 0 {
		p.Y1 = 1
	}

	var source func(x, y float64) float64
	switch p.Source {
	case "constant":
		v := p.SourceValue
		if v == 0 {
			v = 1
		}
		source = func(x, y float64) float64 { return v }
	case "sine_product":
		source = func(x, y float64) float64 {
			return 2 * math.Pi * math.Pi * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
		}
	}

	sol, err := pde.Solve(pde.Problem{
		X0: p.X0, X1: p.X1, Y0: p.Y0, Y1: p.Y1,
		Nx: p.Nx, Ny: p.Ny,
		Source: source,
	})
	if err != nil {
		if errors.Is(err, numeric.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		return nil, err
	}

	umax := 0.0
	for _, u := range sol.U {
		if a := math.Abs(u); a > umax {
			umax = a
		}
	}
	return marshalOutcome(poissonResult{
		Nx: sol.Nx, Ny: sol.Ny, Hx: sol.Hx, Hy: sol.Hy, UMax: umax, U: sol.U,
	}, nil)
}

type svdCompressParams struct {
	Matrix   [][]float64 `json:"matrix,omitempty"`
	ImagePNG string      `json:"image_png,omitempty"`
	Rank     int         `json:"rank" validate:"required,gt=0"`
}

type svdCompressResult struct {
	Rank           int       `json:"rank"`
	StorageRatio   float64   `json:"storage_ratio"`
	RelativeError  float64   `json:"relative_error"`
	SingularValues []float64 `json:"singular_values"`
	ImagePNG       string    `json:"image_png,omitempty"`
}

// runSVDCompress truncates either a raw matrix or a base64-encoded PNG
// (converted to grayscale) to the requested rank.
func (r *Registry) runSVDCompress(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p svdCompressParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	if (p.Matrix == nil) == (p.ImagePNG == "") {
		return nil, fmt.Errorf("%w: exactly one of matrix and image_png required", ErrBadParams)
	}

	if p.Matrix != nil {
		a, err := denseFromRows(p.Matrix)
		if err != nil {
			return nil, err
		}
		comp, err := svdcompress.Truncate(a, p.Rank)
		if err != nil {
			if errors.Is(err, numeric.ErrInvalidParameter) {
				return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
			}
			return nil, err
		}
		return marshalOutcome(svdCompressResult{
			Rank: comp.Rank, StorageRatio: comp.StorageRatio,
			RelativeError: comp.RelativeError, SingularValues: comp.SingularValues,
		}, nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(p.ImagePNG)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image_png: %v", ErrBadParams, err)
	}
	img, err := png.Decode(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing PNG: %v", ErrBadParams, err)
	}
	gray := toGray(img)

	comp, out, err := svdcompress.CompressGray(gray, p.Rank)
	if err != nil {
		if errors.Is(err, numeric.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("solver: encoding compressed PNG: %w", err)
	}
	return marshalOutcome(svdCompressResult{
		Rank: comp.Rank, StorageRatio: comp.StorageRatio,
		RelativeError: comp.RelativeError, SingularValues: comp.SingularValues,
		ImagePNG: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

type fftParams struct {
	Real    []float64 `json:"real" validate:"required,min=1,max=16384"`
	Imag    []float64 `json:"imag,omitempty"`
	Inverse bool      `json:"inverse,omitempty"`
}

type fftResult struct {
	Real   []float64 `json:"real"`
	Imag   []float64 `json:"imag"`
	Method string    `json:"method"`
}

// runFFT transforms the input signal, using the radix-2 FFT when the
// length is a power of two and the direct O(N²) transform otherwise.
func (r *Registry) runFFT(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p fftParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Imag != nil && len(p.Imag) != len(p.Real) {
		return nil, fmt.Errorf("%w: real and imag lengths differ", ErrBadParams)
	}

	n := len(p.Real)
	x := make([]complex128, n)
	for i := range x {
		im := 0.0
		if p.Imag != nil {
			im = p.Imag[i]
		}
		x[i] = complex(p.Real[i], im)
	}

	var out []complex128
	method := "fft"
	if n&(n-1) == 0 {
		var err error
		if p.Inverse {
			out, err = fourier.IFFT(x)
		} else {
			out, err = fourier.FFT(x)
		}
		if err != nil {
			return nil, err
		}
	} else {
		method = "dft"
		if p.Inverse {
			out = fourier.IDFT(x)
		} else {
			out = fourier.DFT(x)
		}
	}

	res := fftResult{
		Real:   make([]float64, n),
		Imag:   make([]float64, n),
		Method: method,
	}
	for i, v := range out {
		res.Real[i] = real(v)
		res.Imag[i] = imag(v)
	}
	return marshalOutcome(res, nil)
}

type trigInterpParams struct {
	Samples []float64 `json:"samples" validate:"required,min=2,max=16384"`
	Eval    []float64 `json:"eval,omitempty" validate:"omitempty,max=16384"`
}

type trigInterpResult struct {
	CoeffsReal []float64 `json:"coeffs_real"`
	CoeffsImag []float64 `json:"coeffs_imag"`
	Eval       []float64 `json:"eval,omitempty"`
}

// runTrigInterp fits the trigonometric interpolant through uniform
// samples on [0, 2π) and optionally evaluates it at the given points.
func (r *Registry) runTrigInterp(ctx context.Context, raw json.RawMessage) (*Outcome, error) {
	var p trigInterpParams
	if err := r.decode(raw, &p); err != nil {
		return nil, err
	}
	interp, err := fourier.Interpolate(p.Samples)
	if err != nil {
		// The only interpolation failure is a sample count that is not a
		// power of two.
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}

	coeffs := interp.Coeffs()
	res := trigInterpResult{
		CoeffsReal: make([]float64, len(coeffs)),
		CoeffsImag: make([]float64, len(coeffs)),
	}
	for i, d := range coeffs {
		res.CoeffsReal[i] = real(d)
		res.CoeffsImag[i] = imag(d)
	}
	if p.Eval != nil {
		res.Eval = make([]float64, len(p.Eval))
		for i, x := range p.Eval {
			res.Eval[i] = interp.Eval(x)
		}
	}
	return marshalOutcome(res, nil)
}
