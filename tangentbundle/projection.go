package tangentbundle

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// resolveSpaces expands an empty index list to every face in order and checks
// the row count of the data against it
func (tb *FaceTangentBundle) resolveSpaces(spaces []int, rows int) ([]int, error) {
	nf := tb.Mesh.NumFaces()
	if len(spaces) == 0 {
		if rows != nf {
			return nil, fmt.Errorf("%w: %d rows for %d tangent spaces", ErrShapeMismatch, rows, nf)
		}
		spaces = make([]int, nf)
		for i := range spaces {
			spaces[i] = i
		}
		return spaces, nil
	}
	if len(spaces) != rows {
		return nil, fmt.Errorf("%w: %d tangent space indices for %d rows", ErrShapeMismatch, len(spaces), rows)
	}
	for _, s := range spaces {
		if s < 0 || s >= nf {
			return nil, fmt.Errorf("tangent space %d out of range [0,%d)", s, nf)
		}
	}
	return spaces, nil
}

// ProjectToIntrinsic expresses ambient vectors (3 columns per vector) in the
// local bases of the given faces (2 columns per vector). Out-of-plane
// components are dropped. An empty spaces list means every face, in order.
func (tb *FaceTangentBundle) ProjectToIntrinsic(spaces []int, ext *mat.Dense) (*mat.Dense, error) {
	rows, cols := ext.Dims()
	if cols%3 != 0 {
		return nil, fmt.Errorf("%w: extrinsic data has %d columns, want a multiple of 3", ErrShapeMismatch, cols)
	}
	spaces, err := tb.resolveSpaces(spaces, rows)
	if err != nil {
		return nil, err
	}
	N := cols / 3
	intr := mat.NewDense(rows, 2*N, nil)
	for i, s := range spaces {
		bx, by := tb.Mesh.FBx[s], tb.Mesh.FBy[s]
		for j := 0; j < N; j++ {
			v := r3.Vec{X: ext.At(i, 3*j), Y: ext.At(i, 3*j+1), Z: ext.At(i, 3*j+2)}
			intr.Set(i, 2*j, r3.Dot(v, bx))
			intr.Set(i, 2*j+1, r3.Dot(v, by))
		}
	}
	return intr, nil
}

// ProjectToExtrinsic embeds intrinsic vectors (2 columns per vector) into
// ambient space through the local bases of the given faces
func (tb *FaceTangentBundle) ProjectToExtrinsic(spaces []int, intr *mat.Dense) (*mat.Dense, error) {
	rows, cols := intr.Dims()
	if cols%2 != 0 {
		return nil, fmt.Errorf("%w: intrinsic data has %d columns, want an even count", ErrShapeMismatch, cols)
	}
	spaces, err := tb.resolveSpaces(spaces, rows)
	if err != nil {
		return nil, err
	}
	N := cols / 2
	ext := mat.NewDense(rows, 3*N, nil)
	for i, s := range spaces {
		bx, by := tb.Mesh.FBx[s], tb.Mesh.FBy[s]
		for j := 0; j < N; j++ {
			v := r3.Add(r3.Scale(intr.At(i, 2*j), bx), r3.Scale(intr.At(i, 2*j+1), by))
			ext.Set(i, 3*j, v.X)
			ext.Set(i, 3*j+1, v.Y)
			ext.Set(i, 3*j+2, v.Z)
		}
	}
	return ext, nil
}
