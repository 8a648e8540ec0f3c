package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Procedural meshes used by tests and the fieldcheck tool.

// Tetrahedron returns a regular tetrahedron centred at the origin
func Tetrahedron() (*TriMesh, error) {
	V := []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1}}
	F := [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}, {1, 3, 2}}
	return NewTriMesh(V, orientOutward(V, F))
}

// Octahedron returns the unit octahedron
func Octahedron() (*TriMesh, error) {
	V := []r3.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}}
	F := [][3]int{
		{4, 0, 2}, {4, 2, 1}, {4, 1, 3}, {4, 3, 0},
		{5, 2, 0}, {5, 1, 2}, {5, 3, 1}, {5, 0, 3},
	}
	return NewTriMesh(V, orientOutward(V, F))
}

// Icosphere returns an icosahedron subdivided `subdivisions` times with all
// vertices projected onto the unit sphere
func Icosphere(subdivisions int) (*TriMesh, error) {
	if subdivisions < 0 {
		return nil, fmt.Errorf("invalid subdivision count %d", subdivisions)
	}
	t := (1 + math.Sqrt(5)) / 2
	V := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range V {
		V[i] = r3.Unit(V[i])
	}
	F := orientOutward(V, [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	})

	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[edgeKey]int)
		midpoint := func(a, b int) int {
			key := newEdgeKey(a, b)
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			V = append(V, r3.Unit(r3.Scale(0.5, r3.Add(V[a], V[b]))))
			midpoints[key] = len(V) - 1
			return len(V) - 1
		}
		next := make([][3]int, 0, 4*len(F))
		for _, tri := range F {
			a, b, c := tri[0], tri[1], tri[2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next, [3]int{a, ab, ca}, [3]int{b, bc, ab}, [3]int{c, ca, bc}, [3]int{ab, bc, ca})
		}
		F = next
	}
	return NewTriMesh(V, F)
}

// Torus returns a closed genus-1 torus with major radius R and minor radius r,
// sampled with `rings` steps around the main axis and `segments` steps around
// the tube
func Torus(R, r float64, rings, segments int) (*TriMesh, error) {
	if rings < 3 || segments < 3 {
		return nil, fmt.Errorf("torus needs at least 3 rings and 3 segments, got %d and %d", rings, segments)
	}
	if r <= 0 || R <= r {
		return nil, fmt.Errorf("torus radii must satisfy 0 < r < R, got R=%g r=%g", R, r)
	}
	V := make([]r3.Vec, 0, rings*segments)
	for i := 0; i < rings; i++ {
		theta := 2 * math.Pi * float64(i) / float64(rings)
		for j := 0; j < segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			V = append(V, r3.Vec{
				X: (R + r*math.Cos(phi)) * math.Cos(theta),
				Y: (R + r*math.Cos(phi)) * math.Sin(theta),
				Z: r * math.Sin(phi),
			})
		}
	}
	idx := func(i, j int) int { return (i%rings)*segments + j%segments }
	F := make([][3]int, 0, 2*rings*segments)
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			F = append(F,
				[3]int{idx(i, j), idx(i+1, j), idx(i+1, j+1)},
				[3]int{idx(i, j), idx(i+1, j+1), idx(i, j+1)})
		}
	}
	return NewTriMesh(V, F)
}

// Frustum returns an open truncated cone around the z axis with `rings` vertex
// rings from radius bottom at z=0 to radius top at z=height, and `segments`
// vertices per ring. It is an annulus with two boundary loops.
func Frustum(bottom, top, height float64, rings, segments int) (*TriMesh, error) {
	if rings < 2 || segments < 3 {
		return nil, fmt.Errorf("frustum needs at least 2 rings and 3 segments, got %d and %d", rings, segments)
	}
	if bottom <= 0 || top <= 0 || (height == 0 && bottom == top) {
		return nil, fmt.Errorf("frustum radii must be positive and the rings distinct, got bottom=%g top=%g height=%g",
			bottom, top, height)
	}
	V := make([]r3.Vec, 0, rings*segments)
	for i := 0; i < rings; i++ {
		s := float64(i) / float64(rings-1)
		radius := bottom + s*(top-bottom)
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			V = append(V, r3.Vec{X: radius * math.Cos(theta), Y: radius * math.Sin(theta), Z: s * height})
		}
	}
	idx := func(i, j int) int { return i*segments + j%segments }
	F := make([][3]int, 0, 2*(rings-1)*segments)
	for i := 0; i < rings-1; i++ {
		for j := 0; j < segments; j++ {
			F = append(F,
				[3]int{idx(i, j), idx(i, j+1), idx(i+1, j+1)},
				[3]int{idx(i, j), idx(i+1, j+1), idx(i+1, j)})
		}
	}
	return NewTriMesh(V, F)
}

// Grid returns a rows x cols patch of the unit-spaced xy grid, two triangles per
// cell, lifted by height (nil keeps it flat). The patch is a disk with one
// boundary loop.
func Grid(rows, cols int, height func(x, y float64) float64) (*TriMesh, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("grid needs at least one cell, got %dx%d", rows, cols)
	}
	V := make([]r3.Vec, 0, (rows+1)*(cols+1))
	for i := 0; i <= rows; i++ {
		for j := 0; j <= cols; j++ {
			x, y := float64(j), float64(i)
			z := 0.0
			if height != nil {
				z = height(x, y)
			}
			V = append(V, r3.Vec{X: x, Y: y, Z: z})
		}
	}
	idx := func(i, j int) int { return i*(cols+1) + j }
	F := make([][3]int, 0, 2*rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			F = append(F,
				[3]int{idx(i, j), idx(i, j+1), idx(i+1, j+1)},
				[3]int{idx(i, j), idx(i+1, j+1), idx(i+1, j)})
		}
	}
	return NewTriMesh(V, F)
}

// orientOutward flips faces of a convex, origin-enclosing shape so normals point
// away from the vertex centroid
func orientOutward(V []r3.Vec, F [][3]int) [][3]int {
	var c r3.Vec
	for _, v := range V {
		c = r3.Add(c, v)
	}
	c = r3.Scale(1/float64(len(V)), c)
	out := make([][3]int, len(F))
	for f, tri := range F {
		v0, v1, v2 := V[tri[0]], V[tri[1]], V[tri[2]]
		n := r3.Cross(r3.Sub(v1, v0), r3.Sub(v2, v0))
		if r3.Dot(n, r3.Sub(v0, c)) < 0 {
			tri[1], tri[2] = tri[2], tri[1]
		}
		out[f] = tri
	}
	return out
}
