package tangentbundle

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/notargets/directional/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// triplets is an append-only (row, col, value) list materialized into a CSR
// matrix once assembly is complete. Callers never add the same (row, col) twice.
type triplets struct {
	rows, cols int
	ia, ja     []int
	data       []float64
}

func (t *triplets) add(i, j int, v float64) {
	t.ia = append(t.ia, i)
	t.ja = append(t.ja, j)
	t.data = append(t.data, v)
}

func (t *triplets) toCSR() *sparse.CSR {
	return sparse.NewCOO(t.rows, t.cols, t.ia, t.ja, t.data).ToCSR()
}

// GradientOperator maps N piecewise-linear vertex functions (column v*N+j) to
// their per-face intrinsic gradients (row 2N*f + 2j + {0,1}).
// Size [2N*#F x N*#V].
func (tb *FaceTangentBundle) GradientOperator(N int) (*sparse.CSR, error) {
	if N < 1 {
		return nil, fmt.Errorf("%w: degree %d", ErrShapeMismatch, N)
	}
	m := tb.Mesh
	t := &triplets{rows: 2 * N * m.NumFaces(), cols: N * m.NumVertices()}
	for f, tri := range m.F {
		scale := 1 / (2 * m.FaceAreas[f])
		for i := 0; i < 3; i++ {
			// edge opposite corner i, counter-clockwise
			e := r3.Sub(m.V[tri[(i+2)%3]], m.V[tri[(i+1)%3]])
			px := -r3.Dot(e, m.FBy[f]) * scale
			py := r3.Dot(e, m.FBx[f]) * scale
			for j := 0; j < N; j++ {
				t.add(2*N*f+2*j, tri[i]*N+j, px)
				t.add(2*N*f+2*j+1, tri[i]*N+j, py)
			}
		}
	}
	return t.toCSR(), nil
}

// CurlOperator measures, per inner edge and per vector, the jump of the
// tangential component across the edge: <u(EF1) - u(EF0), e>. Vector k of the
// first face is paired with vector (k+matching[e]) mod N of the second; a nil
// matching pairs equal indices. Size [N*#inner x 2N*#F], row N*c+k for column
// c of DualCycles.InnerAdjacencies.
func (tb *FaceTangentBundle) CurlOperator(N int, matching []int) (*sparse.CSR, error) {
	if N < 1 {
		return nil, fmt.Errorf("%w: degree %d", ErrShapeMismatch, N)
	}
	m := tb.Mesh
	if matching != nil && len(matching) != m.NumEdges() {
		return nil, fmt.Errorf("%w: %d matchings for %d edges", ErrShapeMismatch, len(matching), m.NumEdges())
	}
	t := &triplets{rows: N * len(m.InnerEdges), cols: 2 * N * m.NumFaces()}
	for c, e := range m.InnerEdges {
		f0, f1 := m.EF[e][0], m.EF[e][1]
		ev := r3.Sub(m.V[m.EV[e][1]], m.V[m.EV[e][0]])
		l0 := [2]float64{r3.Dot(ev, m.FBx[f0]), r3.Dot(ev, m.FBy[f0])}
		l1 := [2]float64{r3.Dot(ev, m.FBx[f1]), r3.Dot(ev, m.FBy[f1])}
		shift := 0
		if matching != nil {
			shift = matching[e]
		}
		for k := 0; k < N; k++ {
			k1 := utils.PosMod(k+shift, N)
			row := N*c + k
			t.add(row, 2*N*f0+2*k, -l0[0])
			t.add(row, 2*N*f0+2*k+1, -l0[1])
			t.add(row, 2*N*f1+2*k1, l1[0])
			t.add(row, 2*N*f1+2*k1+1, l1[1])
		}
	}
	if t.rows == 0 {
		return nil, fmt.Errorf("mesh has no inner edges")
	}
	return t.toCSR(), nil
}
