package field

import (
	"errors"
	"fmt"

	"github.com/notargets/directional/tangentbundle"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is shared with the tangent bundle so callers can test a
	// single sentinel for any row or column count violation
	ErrShapeMismatch = tangentbundle.ErrShapeMismatch
	// ErrFieldType marks an operation applied to the wrong representation
	ErrFieldType = errors.New("unsupported field type")
	// ErrInvalidMatching marks a matching outside [0,N) on an inner adjacency
	// or other than -1 on a boundary adjacency
	ErrInvalidMatching = errors.New("invalid matching")
)

// FieldType is the representation stored in the intrinsic columns of a field
type FieldType uint8

const (
	RawField        FieldType = iota // N explicit vectors, 2N columns
	PowerField                       // One complex number u^N, 2 columns
	PolyVectorField                  // Coefficients a_0..a_{N-1} of a monic polynomial, 2N columns
)

func (t FieldType) String() string {
	switch t {
	case RawField:
		return "raw"
	case PowerField:
		return "power"
	case PolyVectorField:
		return "polyvector"
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// CartesianField stores a directional field per tangent space. The intrinsic
// matrix is authoritative; the extrinsic matrix is a cache rebuilt after any
// intrinsic write.
type CartesianField struct {
	TB   tangentbundle.TangentBundle
	Type FieldType
	N    int // Degree, vectors per tangent space

	intField *mat.Dense // #spaces x IntrinsicCols()
	extField *mat.Dense // Cached embedding, valid when !extDirty
	extDirty bool

	Matching     []int     // Per adjacency, -1 on boundary or before matching
	Effort       []float64 // Per adjacency
	SingElements []int     // Singular vertices, ascending
	SingIndices  []int     // Index of each singular vertex in units of 2pi/N
}

// New allocates a zero field of the given type and degree over tb
func New(tb tangentbundle.TangentBundle, fieldType FieldType, N int) (*CartesianField, error) {
	if tb == nil {
		return nil, fmt.Errorf("nil tangent bundle")
	}
	if N < 1 {
		return nil, fmt.Errorf("%w: degree %d", ErrShapeMismatch, N)
	}
	if fieldType > PolyVectorField {
		return nil, fmt.Errorf("%w: %v", ErrFieldType, fieldType)
	}
	cf := &CartesianField{
		TB:   tb,
		Type: fieldType,
		N:    N,
	}
	cf.intField = mat.NewDense(tb.NumSpaces(), cf.IntrinsicCols(), nil)
	cf.resetDerived()
	return cf, nil
}

// IntrinsicCols is the number of real columns per tangent space
func (cf *CartesianField) IntrinsicCols() int {
	if cf.Type == PowerField {
		return 2
	}
	return 2 * cf.N
}

// ExtrinsicCols is the number of ambient columns per tangent space
func (cf *CartesianField) ExtrinsicCols() int {
	return 3 * cf.IntrinsicCols() / 2
}

// resetDerived drops everything computed from the field values
func (cf *CartesianField) resetDerived() {
	cf.extDirty = true
	cf.extField = nil
	cf.Matching = make([]int, cf.TB.NumAdjacencies())
	for i := range cf.Matching {
		cf.Matching[i] = -1
	}
	cf.Effort = make([]float64, cf.TB.NumAdjacencies())
	cf.SingElements = nil
	cf.SingIndices = nil
}

// SetIntrinsicField copies values as the new field, one row per tangent space
func (cf *CartesianField) SetIntrinsicField(values *mat.Dense) error {
	rows, cols := values.Dims()
	if rows != cf.TB.NumSpaces() || cols != cf.IntrinsicCols() {
		return fmt.Errorf("%w: intrinsic %v field of degree %d needs %dx%d, got %dx%d",
			ErrShapeMismatch, cf.Type, cf.N, cf.TB.NumSpaces(), cf.IntrinsicCols(), rows, cols)
	}
	cf.intField = mat.DenseCopyOf(values)
	cf.resetDerived()
	return nil
}

// SetIntrinsicFieldComplex is SetIntrinsicField with each complex entry split
// into a (real, imaginary) column pair
func (cf *CartesianField) SetIntrinsicFieldComplex(values [][]complex128) error {
	want := cf.IntrinsicCols() / 2
	if len(values) != cf.TB.NumSpaces() {
		return fmt.Errorf("%w: %d complex rows for %d tangent spaces", ErrShapeMismatch, len(values), cf.TB.NumSpaces())
	}
	d := mat.NewDense(len(values), 2*want, nil)
	for i, row := range values {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d complex columns, want %d", ErrShapeMismatch, i, len(row), want)
		}
		for j, z := range row {
			d.Set(i, 2*j, real(z))
			d.Set(i, 2*j+1, imag(z))
		}
	}
	return cf.SetIntrinsicField(d)
}

// SetExtrinsicField projects ambient vectors into the local bases and stores the
// result. Components along the face normal are lost.
func (cf *CartesianField) SetExtrinsicField(values *mat.Dense) error {
	rows, cols := values.Dims()
	if rows != cf.TB.NumSpaces() || cols != cf.ExtrinsicCols() {
		return fmt.Errorf("%w: extrinsic %v field of degree %d needs %dx%d, got %dx%d",
			ErrShapeMismatch, cf.Type, cf.N, cf.TB.NumSpaces(), cf.ExtrinsicCols(), rows, cols)
	}
	intr, err := cf.TB.ProjectToIntrinsic(nil, values)
	if err != nil {
		return err
	}
	return cf.SetIntrinsicField(intr)
}

// IntrinsicField returns a copy of the intrinsic values
func (cf *CartesianField) IntrinsicField() *mat.Dense {
	return mat.DenseCopyOf(cf.intField)
}

// ExtrinsicField returns a copy of the ambient embedding of the field
func (cf *CartesianField) ExtrinsicField() (*mat.Dense, error) {
	if cf.extDirty {
		ext, err := cf.TB.ProjectToExtrinsic(nil, cf.intField)
		if err != nil {
			return nil, err
		}
		cf.extField, cf.extDirty = ext, false
	}
	return mat.DenseCopyOf(cf.extField), nil
}

// Vector returns complex column k of tangent space s
func (cf *CartesianField) Vector(s, k int) complex128 {
	return complex(cf.intField.At(s, 2*k), cf.intField.At(s, 2*k+1))
}

// Vectors returns every complex column of tangent space s
func (cf *CartesianField) Vectors(s int) []complex128 {
	out := make([]complex128, cf.IntrinsicCols()/2)
	for k := range out {
		out[k] = cf.Vector(s, k)
	}
	return out
}

func (cf *CartesianField) setVector(s, k int, z complex128) {
	cf.intField.Set(s, 2*k, real(z))
	cf.intField.Set(s, 2*k+1, imag(z))
	cf.extDirty = true
}

// ProjectToIntrinsic converts ambient vectors on the given tangent spaces to
// local coordinates without touching the field
func (cf *CartesianField) ProjectToIntrinsic(spaces []int, ext *mat.Dense) (*mat.Dense, error) {
	return cf.TB.ProjectToIntrinsic(spaces, ext)
}

// SetSingularities records the singular vertices. Repeated vertices keep the
// last index given, vertices on a boundary loop are never singular, and the
// stored list is ascending by vertex with zero indices removed.
func (cf *CartesianField) SetSingularities(vertices, indices []int) error {
	if len(vertices) != len(indices) {
		return fmt.Errorf("%w: %d singular vertices with %d indices", ErrShapeMismatch, len(vertices), len(indices))
	}
	m := cf.TB.Topology()
	nv := m.NumVertices()
	dense := make([]int, nv)
	for i, v := range vertices {
		if v < 0 || v >= nv {
			return fmt.Errorf("singular vertex %d out of range [0,%d)", v, nv)
		}
		dense[v] = indices[i]
	}
	for _, loop := range m.BoundaryLoops {
		for _, v := range loop {
			dense[v] = 0
		}
	}
	cf.SingElements, cf.SingIndices = nil, nil
	for v, idx := range dense {
		if idx != 0 {
			cf.SingElements = append(cf.SingElements, v)
			cf.SingIndices = append(cf.SingIndices, idx)
		}
	}
	return nil
}

// SetMatching stores a matching and its effort, one entry per adjacency.
// Inner adjacencies take values in [0,N), boundary adjacencies -1.
func (cf *CartesianField) SetMatching(matching []int, effort []float64) error {
	na := cf.TB.NumAdjacencies()
	if len(matching) != na || len(effort) != na {
		return fmt.Errorf("%w: %d matchings and %d efforts for %d adjacencies",
			ErrShapeMismatch, len(matching), len(effort), na)
	}
	for e, m := range matching {
		if _, f1 := cf.TB.Adjacency(e); f1 == -1 {
			if m != -1 {
				return fmt.Errorf("%w: boundary adjacency %d has matching %d", ErrInvalidMatching, e, m)
			}
		} else if m < 0 || m >= cf.N {
			return fmt.Errorf("%w: adjacency %d has matching %d, degree %d", ErrInvalidMatching, e, m, cf.N)
		}
	}
	cf.Matching = append([]int(nil), matching...)
	cf.Effort = append([]float64(nil), effort...)
	return nil
}

// HasMatching reports whether any inner adjacency carries a matching
func (cf *CartesianField) HasMatching() bool {
	for e, m := range cf.Matching {
		if _, f1 := cf.TB.Adjacency(e); f1 != -1 && m >= 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy sharing only the tangent bundle
func (cf *CartesianField) Clone() *CartesianField {
	out := &CartesianField{
		TB:           cf.TB,
		Type:         cf.Type,
		N:            cf.N,
		intField:     mat.DenseCopyOf(cf.intField),
		extDirty:     true,
		Matching:     append([]int(nil), cf.Matching...),
		Effort:       append([]float64(nil), cf.Effort...),
		SingElements: append([]int(nil), cf.SingElements...),
		SingIndices:  append([]int(nil), cf.SingIndices...),
	}
	return out
}

// SeamEdges lists the inner adjacencies whose matching is not the identity
func (cf *CartesianField) SeamEdges() []int {
	var seams []int
	for e, m := range cf.Matching {
		if m > 0 {
			seams = append(seams, e)
		}
	}
	return seams
}
