package tangentbundle

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/james-bowman/sparse"
	"github.com/notargets/directional/mesh"
	"github.com/notargets/directional/partitions"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrShapeMismatch marks input arrays whose row or column counts do not fit
// the tangent spaces or the field degree
var ErrShapeMismatch = errors.New("shape mismatch")

// DiscretizationKind identifies where tangent spaces live
type DiscretizationKind uint8

const (
	FaceSpaces   DiscretizationKind = iota // One tangent plane per face, dual cycles around vertices
	VertexSpaces                           // Reserved, no implementation
)

func (k DiscretizationKind) String() string {
	switch k {
	case FaceSpaces:
		return "FaceSpaces"
	case VertexSpaces:
		return "VertexSpaces"
	}
	return fmt.Sprintf("DiscretizationKind(%d)", uint8(k))
}

// TangentBundle is the capability set fields, matching and combing rely on
type TangentBundle interface {
	Kind() DiscretizationKind
	NumSpaces() int
	NumAdjacencies() int
	// Adjacency returns the two tangent spaces joined by adjacency e, -1 if absent
	Adjacency(e int) (int, int)
	// SpaceAdjacencies returns the adjacencies bounding tangent space s
	SpaceAdjacencies(s int) [3]int
	// Transport maps a complex tangent vector of the first space of e into the second
	Transport(e int) complex128
	ProjectToIntrinsic(spaces []int, ext *mat.Dense) (*mat.Dense, error)
	ProjectToExtrinsic(spaces []int, intr *mat.Dense) (*mat.Dense, error)
	GradientOperator(N int) (*sparse.CSR, error)
	Cycles() *DualCycles
	Topology() *mesh.TriMesh
}

// Config controls how the bundle is built
type Config struct {
	NumPartitions int // Workers for per-edge work, <= 0 uses GOMAXPROCS
	Strategy      partitions.PartitionStrategy
	Logger        *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// FaceTangentBundle holds one tangent plane per face, with dual edges as
// adjacencies. Immutable once built.
type FaceTangentBundle struct {
	Mesh *mesh.TriMesh

	// Connection[e] = eg/ef, the rotation taking the frame of EF[e][0] to that
	// of EF[e][1]; zero on boundary edges
	Connection []complex128

	StiffnessWeights []float64 // Per edge, zero on the boundary
	MassWeights      []float64 // Per face, face area

	DualCycles *DualCycles
}

var _ TangentBundle = (*FaceTangentBundle)(nil)

// New builds the face-based tangent bundle over m. m must pass Validate.
func New(m *mesh.TriMesh, cfg Config) (*FaceTangentBundle, error) {
	if m == nil {
		return nil, fmt.Errorf("nil mesh")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	log := cfg.logger()

	tb := &FaceTangentBundle{
		Mesh:             m,
		Connection:       make([]complex128, m.NumEdges()),
		StiffnessWeights: make([]float64, m.NumEdges()),
		MassWeights:      make([]float64, m.NumFaces()),
	}
	copy(tb.MassWeights, m.FaceAreas)

	err := partitions.ForRange(m.NumEdges(), cfg.NumPartitions, cfg.Strategy, func(e int) error {
		if !m.IsInnerEdge(e) {
			return nil
		}
		f0, f1 := m.EF[e][0], m.EF[e][1]
		d := r3.Unit(r3.Sub(m.V[m.EV[e][1]], m.V[m.EV[e][0]]))
		ef := complex(r3.Dot(d, m.FBx[f0]), r3.Dot(d, m.FBy[f0]))
		eg := complex(r3.Dot(d, m.FBx[f1]), r3.Dot(d, m.FBy[f1]))
		if ef == 0 {
			return fmt.Errorf("edge %d has no tangent direction in face %d", e, f0)
		}
		tb.Connection[e] = eg / ef

		// Harmonic weights after Brandt et al. 2020
		l := m.EdgeLength(e)
		tb.StiffnessWeights[e] = 3 * l * l / (tb.MassWeights[f0] + tb.MassWeights[f0])
		return nil
	})
	if err != nil {
		return nil, err
	}

	if tb.DualCycles, err = buildDualCycles(tb); err != nil {
		return nil, err
	}
	log.Debug("tangent bundle built",
		"faces", m.NumFaces(),
		"edges", m.NumEdges(),
		"innerEdges", len(m.InnerEdges),
		"localCycles", tb.DualCycles.NumLocal,
		"generatorCycles", tb.DualCycles.NumGenerators,
		"boundaryCycles", tb.DualCycles.NumBoundary)
	return tb, nil
}

func (tb *FaceTangentBundle) Kind() DiscretizationKind { return FaceSpaces }
func (tb *FaceTangentBundle) NumSpaces() int           { return tb.Mesh.NumFaces() }
func (tb *FaceTangentBundle) NumAdjacencies() int      { return tb.Mesh.NumEdges() }
func (tb *FaceTangentBundle) Cycles() *DualCycles      { return tb.DualCycles }
func (tb *FaceTangentBundle) Topology() *mesh.TriMesh  { return tb.Mesh }

func (tb *FaceTangentBundle) Adjacency(e int) (int, int) {
	return tb.Mesh.EF[e][0], tb.Mesh.EF[e][1]
}

func (tb *FaceTangentBundle) SpaceAdjacencies(s int) [3]int {
	return tb.Mesh.FE[s]
}

func (tb *FaceTangentBundle) Transport(e int) complex128 {
	return tb.Connection[e]
}
