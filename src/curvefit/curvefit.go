// Package curvefit fits least-squares polynomial trends to metric series.
//
// Coefficients are solved with a Householder QR factorization of the
// Vandermonde matrix whose columns are first scaled to unit norm. High degrees
// over large iteration domains (degree 10 with x around 1e6) remain
// numerically sensitive: the fit itself is stable but the returned
// coefficients span many orders of magnitude and evaluation far outside the
// observed domain amplifies rounding. Nothing is clamped.
package curvefit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultDegree is used when callers do not pick a degree.
const DefaultDegree = 10

// InsufficientDataError is returned when fewer than degree+1 points are supplied.
type InsufficientDataError struct {
	Points int
	Degree int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d points for degree %d (need %d)", e.Points, e.Degree, e.Degree+1)
}

// Curve is a fitted polynomial. It is never modified after Fit returns.
type Curve struct {
	Degree    int
	Coeffs    []float64 // highest degree first
	DomainMin float64
	DomainMax float64
	Points    int
}

// Fit performs ordinary least-squares polynomial regression of ys on xs.
func Fit(xs, ys []float64, degree int) (*Curve, error) {
	if degree < 0 {
		return nil, fmt.Errorf("negative degree %d", degree)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("length mismatch: %d xs, %d ys", len(xs), len(ys))
	}
	n, p := len(xs), degree+1
	if n < p {
		return nil, &InsufficientDataError{Points: n, Degree: degree}
	}

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i, x := range xs {
		v := 1.0
		// column j holds x^(degree-j)
		for j := p - 1; j >= 0; j-- {
			a.Set(i, j, v)
			v *= x
		}
		b.Set(i, 0, ys[i])
	}
	scale := make([]float64, p)
	for j := 0; j < p; j++ {
		scale[j] = mat.Norm(a.ColView(j), 2)
		if scale[j] == 0 || math.IsInf(scale[j], 0) || math.IsNaN(scale[j]) {
			scale[j] = 1
		}
		for i := 0; i < n; i++ {
			a.Set(i, j, a.At(i, j)/scale[j])
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
			return nil, fmt.Errorf("solve: %w", err)
		}
		// Ill-conditioned but solved; the coefficients are still the least-squares answer.
	}

	c := &Curve{Degree: degree, Coeffs: make([]float64, p), Points: n, DomainMin: math.Inf(1), DomainMax: math.Inf(-1)}
	for j := 0; j < p; j++ {
		c.Coeffs[j] = sol.At(j, 0) / scale[j]
	}
	for _, x := range xs {
		c.DomainMin = math.Min(c.DomainMin, x)
		c.DomainMax = math.Max(c.DomainMax, x)
	}
	return c, nil
}

// FitFinite drops pairs with a non-finite value before fitting.
func FitFinite(xs, ys []float64, degree int) (*Curve, error) {
	n := len(xs)
	if len(ys) != n {
		return nil, fmt.Errorf("length mismatch: %d xs, %d ys", len(xs), len(ys))
	}
	fx := make([]float64, 0, n)
	fy := make([]float64, 0, n)
	for i := range xs {
		if finite(xs[i]) && finite(ys[i]) {
			fx = append(fx, xs[i])
			fy = append(fy, ys[i])
		}
	}
	return Fit(fx, fy, degree)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// At evaluates the polynomial at x (Horner).
func (c *Curve) At(x float64) float64 {
	r := 0.0
	for _, k := range c.Coeffs {
		r = r*x + k
	}
	return r
}

// Evaluate evaluates the polynomial at every x. Extrapolation is allowed.
func (c *Curve) Evaluate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c.At(x)
	}
	return out
}

// Derivative evaluates the first derivative at x.
func (c *Curve) Derivative(x float64) float64 {
	r := 0.0
	for i, k := range c.Coeffs[:len(c.Coeffs)-1] {
		r = r*x + k*float64(c.Degree-i)
	}
	return r
}

// TangentAngle returns the angle in degrees between the tangent at x and the y-axis.
// A flat tangent reports 90.
func (c *Curve) TangentAngle(x float64) float64 {
	slope := c.Derivative(x)
	if math.Abs(slope) < 1e-10 {
		return 90
	}
	return 90 - math.Atan(math.Abs(slope))*180/math.Pi
}

// Slope returns the leading coefficient, the slope for linear fits.
func (c *Curve) Slope() float64 {
	if len(c.Coeffs) == 0 {
		return 0
	}
	return c.Coeffs[0]
}

// SlopeAngle returns atan(Slope()) in degrees.
func (c *Curve) SlopeAngle() float64 {
	return math.Atan(c.Slope()) * 180 / math.Pi
}

// Linspace returns n evenly spaced values from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = end
	return out
}
