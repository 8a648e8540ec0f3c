package field

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

func requireType(cf *CartesianField, want FieldType) error {
	if cf.Type != want {
		return fmt.Errorf("%w: have %v, need %v", ErrFieldType, cf.Type, want)
	}
	return nil
}

// RawToPower represents each face by the N-th power of its first vector. The
// power field is blind to the other vectors, so it is exact only for N-RoSy input.
func RawToPower(raw *CartesianField) (*CartesianField, error) {
	if err := requireType(raw, RawField); err != nil {
		return nil, err
	}
	pf, err := New(raw.TB, PowerField, raw.N)
	if err != nil {
		return nil, err
	}
	for s := 0; s < raw.TB.NumSpaces(); s++ {
		pf.setVector(s, 0, cmplx.Pow(raw.Vector(s, 0), complex(float64(raw.N), 0)))
	}
	return pf, nil
}

// PowerToRaw expands a power field into the N-RoSy of its N-th roots, vector k
// at angle arg(p)/N + 2*pi*k/N. With normalize the vectors have unit length.
func PowerToRaw(pf *CartesianField, normalize bool) (*CartesianField, error) {
	if err := requireType(pf, PowerField); err != nil {
		return nil, err
	}
	raw, err := New(pf.TB, RawField, pf.N)
	if err != nil {
		return nil, err
	}
	N := float64(pf.N)
	for s := 0; s < pf.TB.NumSpaces(); s++ {
		p := pf.Vector(s, 0)
		mag := math.Pow(cmplx.Abs(p), 1/N)
		if normalize {
			mag = 1
		}
		base := cmplx.Phase(p) / N
		for k := 0; k < pf.N; k++ {
			raw.setVector(s, k, cmplx.Rect(mag, base+2*math.Pi*float64(k)/N))
		}
	}
	return raw, nil
}

// RawToPolyVector stores per face the coefficients a_0..a_{N-1} of the monic
// polynomial whose roots are the face's vectors
func RawToPolyVector(raw *CartesianField) (*CartesianField, error) {
	if err := requireType(raw, RawField); err != nil {
		return nil, err
	}
	pv, err := New(raw.TB, PolyVectorField, raw.N)
	if err != nil {
		return nil, err
	}
	for s := 0; s < raw.TB.NumSpaces(); s++ {
		coeffs := monicFromRoots(raw.Vectors(s))
		for k := 0; k < raw.N; k++ {
			pv.setVector(s, k, coeffs[k])
		}
	}
	return pv, nil
}

// PolyVectorToRaw recovers the N vectors of each face as the roots of its
// polynomial, ordered counter-clockwise by angle from (-pi, pi]
func PolyVectorToRaw(pv *CartesianField) (*CartesianField, error) {
	if err := requireType(pv, PolyVectorField); err != nil {
		return nil, err
	}
	raw, err := New(pv.TB, RawField, pv.N)
	if err != nil {
		return nil, err
	}
	for s := 0; s < pv.TB.NumSpaces(); s++ {
		roots, err := polynomialRoots(pv.Vectors(s))
		if err != nil {
			return nil, fmt.Errorf("tangent space %d: %w", s, err)
		}
		for k, z := range roots {
			raw.setVector(s, k, z)
		}
	}
	return raw, nil
}

// monicFromRoots expands prod_k (z - roots[k]) and returns the coefficients
// below the leading one, lowest degree first
func monicFromRoots(roots []complex128) []complex128 {
	poly := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(poly)+1)
		for i, a := range poly {
			next[i] -= r * a
			next[i+1] += a
		}
		poly = next
	}
	return poly[:len(roots)]
}

// deflate divides the monic polynomial by (x - z), dropping the remainder
func deflate(coeffs []complex128, z complex128) []complex128 {
	if len(coeffs) == 0 {
		return nil
	}
	q := make([]complex128, len(coeffs)-1)
	b := complex(1, 0)
	for k := len(coeffs) - 1; k >= 1; k-- {
		b = coeffs[k] + z*b
		q[k-1] = b
	}
	return q
}

func evalMonic(coeffs []complex128, z complex128) complex128 {
	p := complex(1, 0)
	for i := len(coeffs) - 1; i >= 0; i-- {
		p = p*z + coeffs[i]
	}
	return p
}

// polynomialRoots returns the roots of z^N + sum a_i z^i sorted by angle. The
// complex companion matrix C = A + iB is realified to [[A, -B], [B, A]], whose
// spectrum is the roots together with their conjugates. Roots are taken one at
// a time as the candidate with the smallest residual, deflating after each.
func polynomialRoots(coeffs []complex128) ([]complex128, error) {
	n := len(coeffs)
	if n == 1 {
		return []complex128{-coeffs[0]}, nil
	}
	M := mat.NewDense(2*n, 2*n, nil)
	for i := 1; i < n; i++ {
		M.Set(i, i-1, 1)
		M.Set(n+i, n+i-1, 1)
	}
	for i, a := range coeffs {
		re, im := -real(a), -imag(a)
		M.Set(i, n-1, re)
		M.Set(n+i, 2*n-1, re)
		M.Set(i, 2*n-1, -im)
		M.Set(n+i, n-1, im)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(M, mat.EigenNone); !ok {
		return nil, fmt.Errorf("companion eigen decomposition did not converge")
	}
	candidates := eig.Values(nil)

	roots := make([]complex128, 0, n)
	used := make([]bool, len(candidates))
	q := append([]complex128(nil), coeffs...)
	for len(roots) < n {
		best, bestRes := -1, math.Inf(1)
		for i, z := range candidates {
			if used[i] {
				continue
			}
			if res := cmplx.Abs(evalMonic(q, z)); res < bestRes {
				best, bestRes = i, res
			}
		}
		used[best] = true
		z := candidates[best]
		roots = append(roots, z)
		q = deflate(q, z)
	}
	sort.Slice(roots, func(i, j int) bool {
		return cmplx.Phase(roots[i]) < cmplx.Phase(roots[j])
	})
	return roots, nil
}
