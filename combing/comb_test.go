package combing

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/notargets/directional/field"
	"github.com/notargets/directional/matching"
	"github.com/notargets/directional/mesh"
	"github.com/notargets/directional/tangentbundle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedField(t *testing.T, m *mesh.TriMesh, err error, N int, seed int64) *field.CartesianField {
	t.Helper()
	require.NoError(t, err)
	tb, err := tangentbundle.New(m, tangentbundle.Config{})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	values := make([][]complex128, tb.NumSpaces())
	for f := range values {
		values[f] = make([]complex128, N)
		for k := range values[f] {
			values[f][k] = cmplx.Rect(0.5+rng.Float64(), 2*math.Pi*rng.Float64())
		}
	}
	cf, err := field.New(tb, field.RawField, N)
	require.NoError(t, err)
	require.NoError(t, cf.SetIntrinsicFieldComplex(values))
	require.NoError(t, matching.Apply(cf, matching.Config{}))
	return cf
}

func assertRelabeled(t *testing.T, raw, combed *field.CartesianField, report *Report) {
	t.Helper()
	N := raw.N
	for f := 0; f < raw.TB.NumSpaces(); f++ {
		r := report.Turns[f]
		for k := 0; k < N; k++ {
			assert.Equal(t, raw.Vector(f, (k+r)%N), combed.Vector(f, k), "face %d vector %d", f, k)
		}
	}
}

func TestCombTetrahedron(t *testing.T) {
	m, err := mesh.Tetrahedron()
	N := 2
	raw := matchedField(t, m, err, N, 1)
	combed, report, err := Comb(raw, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, report.Seeds)
	assert.Empty(t, report.Unvisited)
	assert.Len(t, report.TreeEdges, 3)
	assertRelabeled(t, raw, combed, report)
	for _, e := range report.TreeEdges {
		assert.Equal(t, 0, combed.Matching[e])
	}
	for e := 0; e < m.NumEdges(); e++ {
		assert.GreaterOrEqual(t, combed.Matching[e], 0)
		assert.Less(t, combed.Matching[e], N)
	}

	indices, err := matching.EffortToIndices(combed.TB, combed.Effort, N)
	require.NoError(t, err)
	sum := 0
	for _, idx := range indices {
		sum += idx
	}
	assert.Equal(t, 4, sum)
}

func TestCombedMatchingIsPrincipalMatchingOfCombedField(t *testing.T) {
	m, err := mesh.Icosphere(1)
	N := 4
	raw := matchedField(t, m, err, N, 3)
	combed, report, err := Comb(raw, Options{Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Turns[7])
	assertRelabeled(t, raw, combed, report)

	recomputed, effort, err := matching.PrincipalMatching(combed, matching.Config{})
	require.NoError(t, err)
	assert.Equal(t, combed.Matching, recomputed)
	assert.InDeltaSlice(t, raw.Effort, effort, 1e-9)
}

func TestCombSphereLeavesResidualOffTree(t *testing.T) {
	m, err := mesh.Icosphere(2)
	N := 4
	raw := matchedField(t, m, err, N, 5)
	combed, report, err := Comb(raw, Options{})
	require.NoError(t, err)
	require.Empty(t, report.Unvisited)
	require.Len(t, report.TreeEdges, m.NumFaces()-1)

	onTree := make(map[int]bool)
	for _, e := range report.TreeEdges {
		onTree[e] = true
		assert.Equal(t, 0, combed.Matching[e])
	}
	for _, e := range combed.SeamEdges() {
		assert.False(t, onTree[e])
	}
	for _, e := range m.InnerEdges {
		f0, f1 := m.EF[e][0], m.EF[e][1]
		want := ((report.Turns[f0]-report.Turns[f1]+raw.Matching[e])%N + N) % N
		assert.Equal(t, want, combed.Matching[e])
	}
}

func TestCombDoesNotMutateInput(t *testing.T) {
	m, err := mesh.Torus(3, 1, 8, 6)
	raw := matchedField(t, m, err, 3, 9)
	before := raw.IntrinsicField()
	matchingBefore := append([]int(nil), raw.Matching...)
	effortBefore := append([]float64(nil), raw.Effort...)

	_, _, err = Comb(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, before.RawMatrix().Data, raw.IntrinsicField().RawMatrix().Data)
	assert.Equal(t, matchingBefore, raw.Matching)
	assert.Equal(t, effortBefore, raw.Effort)
}

func TestCombIsIdempotent(t *testing.T) {
	m, err := mesh.Torus(3, 1, 8, 6)
	raw := matchedField(t, m, err, 4, 11)
	once, _, err := Comb(raw, Options{})
	require.NoError(t, err)
	twice, report, err := Comb(once, Options{})
	require.NoError(t, err)
	for f, r := range report.Turns {
		assert.Equal(t, 0, r, "face %d", f)
	}
	assert.Equal(t, once.Matching, twice.Matching)
	assert.Equal(t, once.IntrinsicField().RawMatrix().Data, twice.IntrinsicField().RawMatrix().Data)
}

func TestCombWithCutRegion(t *testing.T) {
	rows, cols := 2, 4
	m, err := mesh.Grid(rows, cols, func(x, y float64) float64 { return 0.1 * x * y })
	N := 4
	raw := matchedField(t, m, err, N, 13)

	cut := make([][3]bool, m.NumFaces())
	for f := range cut {
		for i, e := range m.FE[f] {
			a, b := m.V[m.EV[e][0]], m.V[m.EV[e][1]]
			cut[f][i] = a.X == 2 && b.X == 2
		}
	}
	var right []int
	for f := 0; f < m.NumFaces(); f++ {
		if (f/2)%cols >= 2 {
			right = append(right, f)
		}
	}

	t.Run("single seed reports the unreached region", func(t *testing.T) {
		combed, report, err := Comb(raw, Options{FaceIsCut: cut})
		require.NoError(t, err)
		assert.Equal(t, right, report.Unvisited)
		assert.Equal(t, []int{0}, report.Seeds)
		for _, f := range right {
			for k := 0; k < N; k++ {
				assert.Equal(t, complex128(0), combed.Vector(f, k))
			}
		}
	})
	t.Run("reseed combs every region", func(t *testing.T) {
		combed, report, err := Comb(raw, Options{FaceIsCut: cut, Reseed: true})
		require.NoError(t, err)
		assert.Empty(t, report.Unvisited)
		assert.Equal(t, []int{0, right[0]}, report.Seeds)
		assertRelabeled(t, raw, combed, report)
		for _, e := range report.TreeEdges {
			assert.Equal(t, 0, combed.Matching[e])
		}
	})
	t.Run("strict fails", func(t *testing.T) {
		_, report, err := Comb(raw, Options{FaceIsCut: cut, Strict: true})
		assert.ErrorIs(t, err, ErrDisconnectedRegion)
		require.NotNil(t, report)
		assert.Len(t, report.Unvisited, len(right))
	})
	t.Run("boundary keeps the sentinel", func(t *testing.T) {
		combed, _, err := Comb(raw, Options{FaceIsCut: cut, Reseed: true})
		require.NoError(t, err)
		for e := 0; e < m.NumEdges(); e++ {
			if !m.IsInnerEdge(e) {
				assert.Equal(t, -1, combed.Matching[e])
			}
		}
	})
}

func TestCombPreconditions(t *testing.T) {
	m, err := mesh.Octahedron()
	require.NoError(t, err)
	tb, err := tangentbundle.New(m, tangentbundle.Config{})
	require.NoError(t, err)

	unmatched, err := field.New(tb, field.RawField, 2)
	require.NoError(t, err)
	_, _, err = Comb(unmatched, Options{})
	assert.ErrorIs(t, err, ErrNoMatching)

	power, err := field.New(tb, field.PowerField, 2)
	require.NoError(t, err)
	_, _, err = Comb(power, Options{})
	assert.ErrorIs(t, err, field.ErrFieldType)

	raw := matchedField(t, m, nil, 2, 1)
	_, _, err = Comb(raw, Options{FaceIsCut: make([][3]bool, 2)})
	assert.ErrorIs(t, err, field.ErrShapeMismatch)
	_, _, err = Comb(raw, Options{Seed: 99})
	assert.Error(t, err)
}
