package field

import (
	"math"
	"math/cmplx"
	"math/rand"
	"sort"
	"testing"

	"github.com/notargets/directional/mesh"
	"github.com/notargets/directional/tangentbundle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func sphereBundle(t *testing.T) *tangentbundle.FaceTangentBundle {
	t.Helper()
	m, err := mesh.Icosphere(1)
	require.NoError(t, err)
	tb, err := tangentbundle.New(m, tangentbundle.Config{})
	require.NoError(t, err)
	return tb
}

func randomIntrinsic(rng *rand.Rand, rows, cols int) *mat.Dense {
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, rng.NormFloat64())
		}
	}
	return d
}

// sameSet compares two vector sets regardless of order
func sameSet(t *testing.T, want, got []complex128, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	used := make([]bool, len(got))
	for _, w := range want {
		found := false
		for i, g := range got {
			if !used[i] && cmplx.Abs(w-g) < tol {
				used[i], found = true, true
				break
			}
		}
		assert.True(t, found, "vector %v missing from %v", w, got)
	}
}

func TestNewField(t *testing.T) {
	tb := sphereBundle(t)
	cf, err := New(tb, RawField, 4)
	require.NoError(t, err)
	r, c := cf.IntrinsicField().Dims()
	assert.Equal(t, tb.NumSpaces(), r)
	assert.Equal(t, 8, c)
	ext, err := cf.ExtrinsicField()
	require.NoError(t, err)
	_, c = ext.Dims()
	assert.Equal(t, 12, c)
	for _, m := range cf.Matching {
		assert.Equal(t, -1, m)
	}
	assert.Empty(t, cf.SingElements)
	assert.False(t, cf.HasMatching())

	pf, err := New(tb, PowerField, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, pf.IntrinsicCols())
	assert.Equal(t, 3, pf.ExtrinsicCols())

	_, err = New(tb, RawField, 0)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = New(tb, FieldType(9), 2)
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestSetIntrinsicShapeMismatch(t *testing.T) {
	tb := sphereBundle(t)
	nf := tb.NumSpaces()
	tests := []struct {
		name string
		typ  FieldType
		rows int
		cols int
		ok   bool
	}{
		{"raw", RawField, nf, 6, true},
		{"raw wrong columns", RawField, nf, 2, false},
		{"raw wrong rows", RawField, nf - 1, 6, false},
		{"power", PowerField, nf, 2, true},
		{"power with raw columns", PowerField, nf, 6, false},
		{"polyvector", PolyVectorField, nf, 6, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cf, err := New(tb, tc.typ, 3)
			require.NoError(t, err)
			err = cf.SetIntrinsicField(mat.NewDense(tc.rows, tc.cols, nil))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrShapeMismatch)
			}
		})
	}
}

func TestIntrinsicExtrinsicRoundTrip(t *testing.T) {
	tb := sphereBundle(t)
	rng := rand.New(rand.NewSource(1))
	cf, err := New(tb, RawField, 3)
	require.NoError(t, err)
	v := randomIntrinsic(rng, tb.NumSpaces(), 6)
	require.NoError(t, cf.SetIntrinsicField(v))

	ext, err := cf.ExtrinsicField()
	require.NoError(t, err)
	back, err := cf.ProjectToIntrinsic(nil, ext)
	require.NoError(t, err)
	assert.InDeltaSlice(t, v.RawMatrix().Data, back.RawMatrix().Data, 1e-12)

	// the stored field is a copy
	v.Set(0, 0, 1e6)
	assert.NotEqual(t, 1e6, cf.IntrinsicField().At(0, 0))

	// a new intrinsic write refreshes the cached embedding
	w := randomIntrinsic(rng, tb.NumSpaces(), 6)
	require.NoError(t, cf.SetIntrinsicField(w))
	ext2, err := cf.ExtrinsicField()
	require.NoError(t, err)
	want, err := tb.ProjectToExtrinsic(nil, w)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawMatrix().Data, ext2.RawMatrix().Data, 1e-12)
}

func TestSetExtrinsicDropsNormalComponent(t *testing.T) {
	tb := sphereBundle(t)
	m := tb.Mesh
	cf, err := New(tb, RawField, 1)
	require.NoError(t, err)
	ext := mat.NewDense(m.NumFaces(), 3, nil)
	for f := 0; f < m.NumFaces(); f++ {
		v := r3.Add(r3.Add(m.FBx[f], r3.Scale(0.5, m.FBy[f])), r3.Scale(3, m.FaceNormals[f]))
		ext.SetRow(f, []float64{v.X, v.Y, v.Z})
	}
	require.NoError(t, cf.SetExtrinsicField(ext))
	for f := 0; f < m.NumFaces(); f++ {
		assert.InDelta(t, 0, cmplx.Abs(cf.Vector(f, 0)-complex(1, 0.5)), 1e-12)
	}
	assert.ErrorIs(t, cf.SetExtrinsicField(mat.NewDense(m.NumFaces(), 6, nil)), ErrShapeMismatch)
}

func TestSetIntrinsicFieldComplex(t *testing.T) {
	tb := sphereBundle(t)
	cf, err := New(tb, RawField, 2)
	require.NoError(t, err)
	values := make([][]complex128, tb.NumSpaces())
	for f := range values {
		values[f] = []complex128{complex(float64(f), 1), complex(-1, float64(f))}
	}
	require.NoError(t, cf.SetIntrinsicFieldComplex(values))
	for f := range values {
		assert.Equal(t, values[f], cf.Vectors(f))
		assert.Equal(t, float64(f), cf.IntrinsicField().At(f, 0))
		assert.Equal(t, 1.0, cf.IntrinsicField().At(f, 1))
	}
	values[3] = values[3][:1]
	assert.ErrorIs(t, cf.SetIntrinsicFieldComplex(values), ErrShapeMismatch)
	assert.ErrorIs(t, cf.SetIntrinsicFieldComplex(values[:2]), ErrShapeMismatch)
}

func TestSettersResetDerivedData(t *testing.T) {
	tb := sphereBundle(t)
	cf, err := New(tb, RawField, 1)
	require.NoError(t, err)
	matching := make([]int, tb.NumAdjacencies())
	effort := make([]float64, tb.NumAdjacencies())
	for i := range effort {
		effort[i] = 0.1
	}
	require.NoError(t, cf.SetMatching(matching, effort))
	require.NoError(t, cf.SetSingularities([]int{0}, []int{1}))
	assert.True(t, cf.HasMatching())
	assert.Equal(t, []int{0}, cf.SingElements)

	require.NoError(t, cf.SetIntrinsicField(mat.NewDense(tb.NumSpaces(), 2, nil)))
	assert.False(t, cf.HasMatching())
	assert.Empty(t, cf.SingElements)
	assert.Equal(t, 0.0, cf.Effort[0])

	assert.ErrorIs(t, cf.SetMatching(matching[1:], effort), ErrShapeMismatch)
}

func TestSetMatchingRejectsOutOfRangeValues(t *testing.T) {
	m, err := mesh.Grid(2, 2, nil)
	require.NoError(t, err)
	tb, err := tangentbundle.New(m, tangentbundle.Config{})
	require.NoError(t, err)
	cf, err := New(tb, RawField, 4)
	require.NoError(t, err)

	inner, boundary := m.InnerEdges[0], -1
	for e := 0; e < m.NumEdges(); e++ {
		if !m.IsInnerEdge(e) {
			boundary = e
			break
		}
	}
	require.NotEqual(t, -1, boundary)
	valid := func() []int {
		out := make([]int, m.NumEdges())
		for e := range out {
			if !m.IsInnerEdge(e) {
				out[e] = -1
			}
		}
		return out
	}
	effort := make([]float64, m.NumEdges())

	matching := valid()
	matching[inner] = 3
	require.NoError(t, cf.SetMatching(matching, effort))
	assert.Equal(t, []int{inner}, cf.SeamEdges())

	cases := map[string]func(mt []int){
		"inner equals degree": func(mt []int) { mt[inner] = 4 },
		"inner negative":      func(mt []int) { mt[inner] = -1 },
		"boundary matched":    func(mt []int) { mt[boundary] = 0 },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			matching := valid()
			corrupt(matching)
			assert.ErrorIs(t, cf.SetMatching(matching, effort), ErrInvalidMatching)
		})
	}
}

func TestSetSingularities(t *testing.T) {
	m, err := mesh.Grid(3, 3, nil)
	require.NoError(t, err)
	tb, err := tangentbundle.New(m, tangentbundle.Config{})
	require.NoError(t, err)
	cf, err := New(tb, RawField, 4)
	require.NoError(t, err)

	var boundary, interior []int
	for v := 0; v < m.NumVertices(); v++ {
		if m.IsBoundaryVertex[v] {
			boundary = append(boundary, v)
		} else {
			interior = append(interior, v)
		}
	}
	require.Len(t, interior, 4)

	t.Run("boundary vertices are never singular", func(t *testing.T) {
		idx := make([]int, len(boundary))
		for i := range idx {
			idx[i] = 1
		}
		require.NoError(t, cf.SetSingularities(boundary, idx))
		assert.Empty(t, cf.SingElements)
		assert.Empty(t, cf.SingIndices)
	})
	t.Run("ascending, zero dropped, last duplicate wins", func(t *testing.T) {
		verts := []int{interior[3], boundary[0], interior[0], interior[1], interior[3]}
		idx := []int{5, 1, -1, 0, 2}
		require.NoError(t, cf.SetSingularities(verts, idx))
		assert.Equal(t, []int{interior[0], interior[3]}, cf.SingElements)
		assert.Equal(t, []int{-1, 2}, cf.SingIndices)
	})
	t.Run("length mismatch", func(t *testing.T) {
		assert.ErrorIs(t, cf.SetSingularities([]int{1, 2}, []int{1}), ErrShapeMismatch)
		assert.Error(t, cf.SetSingularities([]int{-3}, []int{1}))
	})
}

func TestClone(t *testing.T) {
	tb := sphereBundle(t)
	rng := rand.New(rand.NewSource(2))
	cf, err := New(tb, RawField, 2)
	require.NoError(t, err)
	require.NoError(t, cf.SetIntrinsicField(randomIntrinsic(rng, tb.NumSpaces(), 4)))
	cp := cf.Clone()
	cp.setVector(0, 0, 42)
	cp.Matching[0] = 1
	assert.NotEqual(t, complex(42, 0), cf.Vector(0, 0))
	assert.Equal(t, -1, cf.Matching[0])
	assert.Equal(t, cf.Vector(1, 1), cp.Vector(1, 1))
}

func TestPowerConversions(t *testing.T) {
	tb := sphereBundle(t)
	N := 4
	rng := rand.New(rand.NewSource(5))
	raw, err := New(tb, RawField, N)
	require.NoError(t, err)
	for f := 0; f < tb.NumSpaces(); f++ {
		u := cmplx.Rect(0.5+rng.Float64(), 2*math.Pi*rng.Float64())
		for k := 0; k < N; k++ {
			raw.setVector(f, k, u*cmplx.Rect(1, 2*math.Pi*float64(k)/float64(N)))
		}
	}
	pf, err := RawToPower(raw)
	require.NoError(t, err)
	assert.Equal(t, PowerField, pf.Type)

	back, err := PowerToRaw(pf, false)
	require.NoError(t, err)
	unit, err := PowerToRaw(pf, true)
	require.NoError(t, err)
	for f := 0; f < tb.NumSpaces(); f++ {
		sameSet(t, raw.Vectors(f), back.Vectors(f), 1e-9)
		for k := 0; k < N; k++ {
			assert.InDelta(t, 1, cmplx.Abs(unit.Vector(f, k)), 1e-12)
		}
	}

	_, err = PowerToRaw(raw, false)
	assert.ErrorIs(t, err, ErrFieldType)
	_, err = RawToPower(pf)
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestPolyVectorConversions(t *testing.T) {
	tb := sphereBundle(t)
	rng := rand.New(rand.NewSource(9))
	for _, N := range []int{1, 2, 3, 4} {
		raw, err := New(tb, RawField, N)
		require.NoError(t, err)
		require.NoError(t, raw.SetIntrinsicField(randomIntrinsic(rng, tb.NumSpaces(), 2*N)))

		pv, err := RawToPolyVector(raw)
		require.NoError(t, err)
		back, err := PolyVectorToRaw(pv)
		require.NoError(t, err)
		for f := 0; f < tb.NumSpaces(); f++ {
			got := back.Vectors(f)
			sameSet(t, raw.Vectors(f), got, 1e-6)
			assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
				return cmplx.Phase(got[i]) < cmplx.Phase(got[j])
			}))
		}
	}
	_, err := PolyVectorToRaw(sphereFieldOfType(t, tb, RawField))
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestPolyVectorRootsWithConjugatePairs(t *testing.T) {
	// roots i and -i, and a repeated real root, share values with their conjugates
	for _, roots := range [][]complex128{
		{1i, -1i},
		{1, 1},
		{1, -1},
		{2, 1i, -1i, -2},
	} {
		got, err := polynomialRoots(monicFromRoots(roots))
		require.NoError(t, err)
		sameSet(t, roots, got, 1e-6)
	}
}

func sphereFieldOfType(t *testing.T, tb tangentbundle.TangentBundle, typ FieldType) *CartesianField {
	t.Helper()
	cf, err := New(tb, typ, 2)
	require.NoError(t, err)
	return cf
}
