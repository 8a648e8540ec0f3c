package matching

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/notargets/directional/field"
	"github.com/notargets/directional/partitions"
	"github.com/notargets/directional/tangentbundle"
	"github.com/notargets/directional/utils"
)

// Config controls the parallel edge sweep
type Config struct {
	NumPartitions int // Workers, <= 0 uses GOMAXPROCS
	Strategy      partitions.PartitionStrategy
	Logger        *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// PrincipalMatching finds, for every inner adjacency (f0, f1), the cyclic shift
// k in [0, N) that pairs vector j of f0, transported into f1, with vector
// (j+k) mod N of f1 at the least total absolute rotation. Ties go to the
// smaller k. The effort is the signed sum of the residual rotations. Boundary
// adjacencies get matching -1 and effort 0.
func PrincipalMatching(cf *field.CartesianField, cfg Config) ([]int, []float64, error) {
	if cf.Type != field.RawField {
		return nil, nil, fmt.Errorf("%w: matching needs a raw field, have %v", field.ErrFieldType, cf.Type)
	}
	tb := cf.TB
	N := cf.N
	ne := tb.NumAdjacencies()
	matching := make([]int, ne)
	effort := make([]float64, ne)

	err := partitions.ForRange(ne, cfg.NumPartitions, cfg.Strategy, func(e int) error {
		f0, f1 := tb.Adjacency(e)
		if f1 == -1 {
			matching[e], effort[e] = -1, 0
			return nil
		}
		c := tb.Transport(e)
		u0, u1 := cf.Vectors(f0), cf.Vectors(f1)
		transported := make([]complex128, N)
		for j := range u0 {
			transported[j] = c * u0[j]
		}

		best, bestMis := 0, math.Inf(1)
		for k := 0; k < N; k++ {
			mis := 0.0
			for j := 0; j < N; j++ {
				mis += math.Abs(utils.RotationAngle(transported[j], u1[(j+k)%N]))
			}
			if mis < bestMis {
				best, bestMis = k, mis
			}
		}
		matching[e] = best
		for j := 0; j < N; j++ {
			effort[e] += utils.RotationAngle(transported[j], u1[(j+best)%N])
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return matching, effort, nil
}

// Apply computes the principal matching of cf and stores it with its effort
func Apply(cf *field.CartesianField, cfg Config) error {
	matching, effort, err := PrincipalMatching(cf, cfg)
	if err != nil {
		return err
	}
	if err := cf.SetMatching(matching, effort); err != nil {
		return err
	}
	cfg.logger().Debug("principal matching",
		"adjacencies", len(matching),
		"degree", cf.N,
		"seams", len(cf.SeamEdges()))
	return nil
}

// EffortToIndices returns, per dual cycle, the integer index
// round((sum of signed effort + N * curvature) / 2pi). A local cycle's value
// over N is the fractional index of its vertex.
func EffortToIndices(tb tangentbundle.TangentBundle, effort []float64, N int) ([]int, error) {
	if len(effort) != tb.NumAdjacencies() {
		return nil, fmt.Errorf("%w: %d efforts for %d adjacencies", field.ErrShapeMismatch, len(effort), tb.NumAdjacencies())
	}
	dc := tb.Cycles()
	sums := dc.Apply(effort)
	indices := make([]int, len(sums))
	for c, s := range sums {
		indices[c] = int(math.Round((s + float64(N)*dc.Curvatures[c]) / (2 * math.Pi)))
	}
	return indices, nil
}

// SingularitiesFromIndices maps nonzero local cycle indices to their vertices,
// ascending by vertex. Generator and boundary loop cycles carry no vertex and
// are skipped.
func SingularitiesFromIndices(tb tangentbundle.TangentBundle, cycleIndices []int) (vertices, indices []int) {
	dc := tb.Cycles()
	for c := 0; c < dc.NumLocal && c < len(cycleIndices); c++ {
		if cycleIndices[c] != 0 {
			vertices = append(vertices, dc.Cycle2Local[c])
			indices = append(indices, cycleIndices[c])
		}
	}
	return vertices, indices
}

// DetectSingularities derives singularities from the stored effort of cf and
// records them on the field. The field must carry a matching.
func DetectSingularities(cf *field.CartesianField, cfg Config) error {
	if !cf.HasMatching() {
		return fmt.Errorf("field has no matching")
	}
	indices, err := EffortToIndices(cf.TB, cf.Effort, cf.N)
	if err != nil {
		return err
	}
	vertices, idx := SingularitiesFromIndices(cf.TB, indices)
	if err := cf.SetSingularities(vertices, idx); err != nil {
		return err
	}
	cfg.logger().Debug("singularities detected", "count", len(cf.SingElements))
	return nil
}
