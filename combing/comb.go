package combing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/notargets/directional/field"
	"github.com/notargets/directional/utils"
)

var (
	// ErrDisconnectedRegion is returned in strict mode when faces cannot be
	// reached from the seed without crossing a cut
	ErrDisconnectedRegion = errors.New("disconnected region")
	// ErrNoMatching marks a field whose inner adjacencies carry no matching yet
	ErrNoMatching = errors.New("field has no matching")
)

// Options controls a comb
type Options struct {
	Seed      int       // First face, offset 0
	FaceIsCut [][3]bool // Per face and local edge slot, true blocks the traversal; empty means no cuts
	Reseed    bool      // Start a new traversal in every region the seed cannot reach
	Strict    bool      // Fail with ErrDisconnectedRegion if faces remain unreached
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Report describes the traversal behind a comb
type Report struct {
	Seeds     []int // Seed face of every traversal, in order
	Turns     []int // Per face rotation r: combed vector k is raw vector (k+r) mod N
	TreeEdges []int // Adjacencies through which faces were first reached
	Unvisited []int // Faces left at zero in the combed field
}

type queued struct {
	face     int
	rotation int
	via      int // Adjacency the entry came through, -1 for a seed
}

// Comb relabels the vectors of every reachable face so the matching becomes
// the identity across every adjacency of a breadth-first spanning tree of the
// dual graph. The input is not modified. The returned field carries the
// matching (turns[f0] - turns[f1] + matching) mod N, -1 on the boundary, which
// is non-zero only across cuts and the non-tree adjacencies closing loops.
func Comb(raw *field.CartesianField, opts Options) (*field.CartesianField, *Report, error) {
	if raw.Type != field.RawField {
		return nil, nil, fmt.Errorf("%w: combing needs a raw field, have %v", field.ErrFieldType, raw.Type)
	}
	tb := raw.TB
	nf, ne, N := tb.NumSpaces(), tb.NumAdjacencies(), raw.N
	for e := 0; e < ne; e++ {
		if _, f1 := tb.Adjacency(e); f1 != -1 && raw.Matching[e] < 0 {
			return nil, nil, fmt.Errorf("%w: adjacency %d", ErrNoMatching, e)
		}
	}
	if len(opts.FaceIsCut) != 0 && len(opts.FaceIsCut) != nf {
		return nil, nil, fmt.Errorf("%w: %d cut rows for %d faces", field.ErrShapeMismatch, len(opts.FaceIsCut), nf)
	}
	if opts.Seed < 0 || opts.Seed >= nf {
		return nil, nil, fmt.Errorf("seed face %d out of range [0,%d)", opts.Seed, nf)
	}
	log := opts.logger()

	combed, err := field.New(tb, field.RawField, N)
	if err != nil {
		return nil, nil, err
	}
	values := make([][]complex128, nf)
	for f := range values {
		values[f] = make([]complex128, N)
	}

	report := &Report{Turns: make([]int, nf)}
	visited := make([]bool, nf)
	traverse := func(seed int) {
		report.Seeds = append(report.Seeds, seed)
		queue := []queued{{face: seed, rotation: 0, via: -1}}
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]
			f, r := q.face, q.rotation
			if visited[f] {
				continue
			}
			visited[f] = true
			report.Turns[f] = r
			if q.via != -1 {
				report.TreeEdges = append(report.TreeEdges, q.via)
			}
			// rotating block copy: [r, N) then [0, r)
			src := raw.Vectors(f)
			copy(values[f], src[r:])
			copy(values[f][N-r:], src[:r])

			for i, e := range tb.SpaceAdjacencies(f) {
				if len(opts.FaceIsCut) != 0 && opts.FaceIsCut[f][i] {
					continue
				}
				f0, f1 := tb.Adjacency(e)
				if f1 == -1 {
					continue
				}
				next, sign := f1, 1
				if f == f1 {
					next, sign = f0, -1
				}
				if visited[next] {
					continue
				}
				queue = append(queue, queued{
					face:     next,
					rotation: utils.PosMod(sign*raw.Matching[e]+r, N),
					via:      e,
				})
			}
		}
	}

	traverse(opts.Seed)
	for f := 0; f < nf; f++ {
		if visited[f] {
			continue
		}
		if opts.Reseed {
			log.Debug("reseeding comb", "face", f)
			traverse(f)
			continue
		}
		report.Unvisited = append(report.Unvisited, f)
	}
	if len(report.Unvisited) > 0 {
		if opts.Strict {
			return nil, report, fmt.Errorf("%w: %d of %d faces unreachable from seed %d",
				ErrDisconnectedRegion, len(report.Unvisited), nf, opts.Seed)
		}
		log.Warn("comb left faces unreached", "unvisited", len(report.Unvisited), "faces", nf)
	}

	if err := combed.SetIntrinsicFieldComplex(values); err != nil {
		return nil, nil, err
	}
	matching := make([]int, ne)
	for e := 0; e < ne; e++ {
		f0, f1 := tb.Adjacency(e)
		if f1 == -1 {
			matching[e] = -1
			continue
		}
		matching[e] = utils.PosMod(report.Turns[f0]-report.Turns[f1]+raw.Matching[e], N)
	}
	if err := combed.SetMatching(matching, raw.Effort); err != nil {
		return nil, nil, err
	}
	if err := combed.SetSingularities(raw.SingElements, raw.SingIndices); err != nil {
		return nil, nil, err
	}
	log.Debug("combed field",
		"faces", nf,
		"seeds", len(report.Seeds),
		"treeEdges", len(report.TreeEdges),
		"seams", len(combed.SeamEdges()))
	return combed, report, nil
}
