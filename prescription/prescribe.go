package prescription

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/notargets/directional/field"
	"github.com/notargets/directional/tangentbundle"
	"github.com/notargets/directional/utils"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
)

// cgTolerance bounds the normal-equation residual |A^T r| relative to |A^T b|
const cgTolerance = 1e-13

// IndicesFromSingularities builds a per-cycle index vector with the given
// vertex indices on their local cycles and zero everywhere else, generators
// and boundary loops included. Boundary vertices have no cycle and are rejected.
func IndicesFromSingularities(tb tangentbundle.TangentBundle, vertices, indices []int) ([]int, error) {
	if len(vertices) != len(indices) {
		return nil, fmt.Errorf("%w: %d vertices with %d indices", field.ErrShapeMismatch, len(vertices), len(indices))
	}
	dc := tb.Cycles()
	out := make([]int, dc.NumCycles())
	for i, v := range vertices {
		if v < 0 || v >= len(dc.Local2Cycle) {
			return nil, fmt.Errorf("vertex %d out of range [0,%d)", v, len(dc.Local2Cycle))
		}
		c := dc.Local2Cycle[v]
		if c == -1 {
			return nil, fmt.Errorf("vertex %d lies on the boundary and cannot be singular", v)
		}
		out[c] = indices[i]
	}
	return out, nil
}

// SetBoundaryIndices writes indices for boundary loops into a per-cycle index
// vector. The last loop of every connected component has no cycle of its own
// since its index follows from the others, so setting it is an error.
func SetBoundaryIndices(tb tangentbundle.TangentBundle, cycleIndices []int, loops, indices []int) error {
	if len(loops) != len(indices) {
		return fmt.Errorf("%w: %d loops with %d indices", field.ErrShapeMismatch, len(loops), len(indices))
	}
	dc := tb.Cycles()
	if len(cycleIndices) != dc.NumCycles() {
		return fmt.Errorf("%w: %d indices for %d cycles", field.ErrShapeMismatch, len(cycleIndices), dc.NumCycles())
	}
	for i, l := range loops {
		if l < 0 || l >= len(dc.Loop2Cycle) {
			return fmt.Errorf("boundary loop %d out of range [0,%d)", l, len(dc.Loop2Cycle))
		}
		c := dc.Loop2Cycle[l]
		if c == -1 {
			return fmt.Errorf("boundary loop %d has no independent cycle", l)
		}
		cycleIndices[c] = indices[i]
	}
	return nil
}

// Solve returns per-adjacency rotation angles theta (zero on the boundary)
// forming the minimum-norm least squares solution of
//
//	Cycles * theta = -curvature + 2*pi*index/N
//
// and the largest absolute residual. The residual is non-zero when the indices
// violate Poincare-Hopf (local indices summing to other than N*chi on a closed
// surface).
func Solve(tb tangentbundle.TangentBundle, cycleIndices []int, N int) ([]float64, float64, error) {
	if N < 1 {
		return nil, 0, fmt.Errorf("%w: degree %d", field.ErrShapeMismatch, N)
	}
	dc := tb.Cycles()
	if len(cycleIndices) != dc.NumCycles() {
		return nil, 0, fmt.Errorf("%w: %d indices for %d cycles", field.ErrShapeMismatch, len(cycleIndices), dc.NumCycles())
	}
	angles := make([]float64, tb.NumAdjacencies())
	if dc.Matrix == nil {
		return angles, 0, nil
	}

	rhs := make([]float64, dc.NumCycles())
	for c, idx := range cycleIndices {
		rhs[c] = -dc.Curvatures[c] + 2*math.Pi*float64(idx)/float64(N)
	}
	theta := leastSquares(dc.Matrix, rhs)

	for col, e := range dc.InnerAdjacencies {
		angles[e] = theta[col]
	}
	residual := dc.Apply(angles)
	floats.Sub(residual, rhs)
	linf := floats.Norm(residual, math.Inf(1))
	return angles, linf, nil
}

// RotationToRaw integrates per-adjacency rotation angles into a unit raw field.
// Each connected component starts from its lowest face with the direction at
// globalRotation from that face's first basis vector; crossing adjacency e
// from EF[e][0] to EF[e][1] maps u to u*connection*exp(i*theta[e]). Vector k
// of a face is u*exp(2*pi*i*k/N).
func RotationToRaw(tb tangentbundle.TangentBundle, rotationAngles []float64, N int, globalRotation float64) (*field.CartesianField, error) {
	if len(rotationAngles) != tb.NumAdjacencies() {
		return nil, fmt.Errorf("%w: %d angles for %d adjacencies", field.ErrShapeMismatch, len(rotationAngles), tb.NumAdjacencies())
	}
	raw, err := field.New(tb, field.RawField, N)
	if err != nil {
		return nil, err
	}
	nf := tb.NumSpaces()
	u := make([]complex128, nf)
	visited := make([]bool, nf)
	for root := 0; root < nf; root++ {
		if visited[root] {
			continue
		}
		visited[root] = true
		u[root] = utils.UnitPolar(globalRotation)
		queue := []int{root}
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, e := range tb.SpaceAdjacencies(f) {
				f0, f1 := tb.Adjacency(e)
				if f1 == -1 {
					continue
				}
				step := tb.Transport(e) * utils.UnitPolar(rotationAngles[e])
				next := f1
				if f == f1 {
					next, step = f0, 1/step
				}
				if visited[next] {
					continue
				}
				visited[next] = true
				u[next] = u[f] * step
				queue = append(queue, next)
			}
		}
	}

	values := make([][]complex128, nf)
	for f := range values {
		values[f] = make([]complex128, N)
		for k := range values[f] {
			values[f][k] = u[f] * cmplx.Rect(1, 2*math.Pi*float64(k)/float64(N))
		}
	}
	if err := raw.SetIntrinsicFieldComplex(values); err != nil {
		return nil, err
	}
	return raw, nil
}

// leastSquares runs conjugate gradients on the normal equations A^T A x = A^T b
// (CGLS). Starting from zero the iterates stay in the row space of A, so the
// result is the minimum-norm least squares solution whether or not the system
// is consistent. A is only touched through sparse products.
func leastSquares(A *sparse.CSR, b []float64) []float64 {
	rows, cols := A.Dims()
	x := make([]float64, cols)
	r := append([]float64(nil), b...)
	s := make([]float64, cols)
	A.MulVecTo(s, true, r)
	norm0 := floats.Norm(s, 2)
	if norm0 == 0 {
		return x
	}
	p := append([]float64(nil), s...)
	q := make([]float64, rows)
	gamma := floats.Dot(s, s)
	for iter := 0; iter < 4*cols+100; iter++ {
		for i := range q {
			q[i] = 0
		}
		A.MulVecTo(q, false, p)
		qq := floats.Dot(q, q)
		if qq == 0 {
			break
		}
		alpha := gamma / qq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)
		for i := range s {
			s[i] = 0
		}
		A.MulVecTo(s, true, r)
		next := floats.Dot(s, s)
		if math.Sqrt(next) <= cgTolerance*norm0 {
			break
		}
		floats.AddScaledTo(p, s, next/gamma, p)
		gamma = next
	}
	return x
}

// Field designs a unit N-RoSy field whose singularity indices are the given
// per-cycle indices. It returns the field and the residual of Solve.
func Field(tb tangentbundle.TangentBundle, cycleIndices []int, N int, globalRotation float64) (*field.CartesianField, float64, error) {
	angles, linf, err := Solve(tb, cycleIndices, N)
	if err != nil {
		return nil, 0, err
	}
	raw, err := RotationToRaw(tb, angles, N, globalRotation)
	if err != nil {
		return nil, 0, err
	}
	return raw, linf, nil
}
