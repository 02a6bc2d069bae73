// Package registration solves and applies the affine warp that aligns an
// unregistered visible-light frame onto the base (infrared) frame geometry.
//
// The solve mirrors the source's cal_affine_matrix: normal equations are
// accumulated directly from control-point sums into two 3x4 augmented
// matrices, then solved independently by Gaussian elimination with partial
// pivoting. The source hand-rolls both the accumulation and ge_solver over
// flat float arrays; this package keeps the accumulation (it is already a
// closed-form sum, not something a library does better) but solves through
// gonum.org/v1/gonum/mat rather than a hand-rolled pivot/back-substitution
// loop.
package registration

import (
	"fmt"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// ControlPoint is one (visible -> base) correspondence used to fit the
// affine transform.
type ControlPoint struct {
	VisX, VisY float64
	BaseX, BaseY float64
}

// SolveAffine fits x2 = a*x1 + b*y1 + c, y2 = d*x1 + e*y1 + f by ordinary
// least squares over the given control points, returning the result as an
// x/image Aff3 ((a,b,c,d,e,f) in the same row-major convention as f64.Aff3).
// At least 3 non-collinear points are required for the normal-equation
// coefficient matrix to be non-singular; the source itself requires more
// (registration.c's MIN_POINT_SIZE is 6), reflecting its survey tooling's
// own accuracy margin rather than a hard mathematical floor.
func SolveAffine(points []ControlPoint) (f64.Aff3, error) {
	if len(points) < 3 {
		return f64.Aff3{}, fmt.Errorf("registration: need at least 3 control points, got %d", len(points))
	}

	// abc solves for (a, b, c) against x2; def solves for (d, e, f)
	// against y2. Both share the same normal-equation coefficient matrix
	// built from sums over x1, y1 alone.
	var sxx, sxy, sx, syy, sy float64
	n := float64(len(points))

	var sumX1X2, sumY1X2, sumX2 float64
	var sumX1Y2, sumY1Y2, sumY2 float64

	for _, p := range points {
		sxx += p.VisX * p.VisX
		sxy += p.VisX * p.VisY
		sx += p.VisX
		syy += p.VisY * p.VisY
		sy += p.VisY

		sumX1X2 += p.VisX * p.BaseX
		sumY1X2 += p.VisY * p.BaseX
		sumX2 += p.BaseX

		sumX1Y2 += p.VisX * p.BaseY
		sumY1Y2 += p.VisY * p.BaseY
		sumY2 += p.BaseY
	}

	coeff := mat.NewDense(3, 3, []float64{
		sxx, sxy, sx,
		sxy, syy, sy,
		sx, sy, n,
	})

	abc, err := solve3(coeff, []float64{sumX1X2, sumY1X2, sumX2})
	if err != nil {
		return f64.Aff3{}, fmt.Errorf("registration: solving a,b,c: %w", err)
	}
	def, err := solve3(coeff, []float64{sumX1Y2, sumY1Y2, sumY2})
	if err != nil {
		return f64.Aff3{}, fmt.Errorf("registration: solving d,e,f: %w", err)
	}

	return f64.Aff3{abc[0], abc[1], abc[2], def[0], def[1], def[2]}, nil
}

// solve3 solves the 3x3 system coeff*x = rhs via gonum's LU-backed solver,
// which performs the same partial-pivot Gaussian elimination as the
// source's ge_solver without a hand-rolled pivot search.
func solve3(coeff *mat.Dense, rhs []float64) ([]float64, error) {
	var x mat.VecDense
	b := mat.NewVecDense(3, rhs)
	if err := x.SolveVec(coeff, b); err != nil {
		return nil, err
	}
	return []float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}, nil
}
