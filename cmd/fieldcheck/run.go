package main

import (
	"fmt"
	"log/slog"

	"github.com/notargets/directional/combing"
	"github.com/notargets/directional/matching"
	"github.com/notargets/directional/prescription"
	"github.com/notargets/directional/tangentbundle"
	"gonum.org/v1/gonum/floats"
)

// Report is the YAML document printed by `fieldcheck run`
type Report struct {
	Mesh              MeshReport          `yaml:"mesh"`
	Degree            int                 `yaml:"degree"`
	PrescriptionError float64             `yaml:"prescriptionError"`
	Singularities     []SingularityConfig `yaml:"singularities"`
	IndexSum          int                 `yaml:"indexSum"`
	ExpectedIndexSum  int                 `yaml:"expectedIndexSum"`
	GeneratorIndices  []int               `yaml:"generatorIndices,omitempty"`
	BoundaryIndices   []int               `yaml:"boundaryIndices,omitempty"`
	Comb              CombReport          `yaml:"comb"`
}

type MeshReport struct {
	Shape          string  `yaml:"shape"`
	Vertices       int     `yaml:"vertices"`
	Faces          int     `yaml:"faces"`
	Edges          int     `yaml:"edges"`
	Euler          int     `yaml:"euler"`
	BoundaryLoops  int     `yaml:"boundaryLoops"`
	Area           float64 `yaml:"area"`
	LocalCycles    int     `yaml:"localCycles"`
	Generators     int     `yaml:"generators"`
	BoundaryCycles int     `yaml:"boundaryCycles"`
	MaxDefect      float64 `yaml:"maxDefect"`
}

type CombReport struct {
	Seeds      []int `yaml:"seeds"`
	SeamEdges  int   `yaml:"seamEdges"`
	TreeEdges  int   `yaml:"treeEdges"`
	Unvisited  []int `yaml:"unvisited,omitempty"`
	InnerEdges int   `yaml:"innerEdges"`
}

// runPipeline designs a field with the configured singularities, matches it,
// measures its indices and combs it
func runPipeline(cfg *Config, log *slog.Logger) (*Report, error) {
	m, err := buildMesh(cfg.Mesh)
	if err != nil {
		return nil, fmt.Errorf("build mesh: %w", err)
	}
	log.Info("mesh built",
		"shape", cfg.Mesh.Shape,
		"vertices", m.NumVertices(),
		"faces", m.NumFaces(),
		"euler", m.EulerCharacteristic())
	log.Debug(m.String())

	tb, err := tangentbundle.New(m, tangentbundle.Config{NumPartitions: cfg.Partitions, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("tangent bundle: %w", err)
	}

	vertices := make([]int, len(cfg.Singularities))
	indices := make([]int, len(cfg.Singularities))
	for i, s := range cfg.Singularities {
		vertices[i], indices[i] = s.Vertex, s.Index
	}
	cycleIndices, err := prescription.IndicesFromSingularities(tb, vertices, indices)
	if err != nil {
		return nil, fmt.Errorf("prescribed singularities: %w", err)
	}
	loops := make([]int, len(cfg.BoundaryIndices))
	loopIndices := make([]int, len(cfg.BoundaryIndices))
	for i, b := range cfg.BoundaryIndices {
		loops[i], loopIndices[i] = b.Loop, b.Index
	}
	if err := prescription.SetBoundaryIndices(tb, cycleIndices, loops, loopIndices); err != nil {
		return nil, fmt.Errorf("prescribed boundary indices: %w", err)
	}
	raw, linf, err := prescription.Field(tb, cycleIndices, cfg.Degree, cfg.GlobalRotation)
	if err != nil {
		return nil, fmt.Errorf("index prescription: %w", err)
	}
	if linf > 1e-6 {
		log.Warn("prescribed indices are not attainable exactly", "linf", linf,
			"expectedSum", cfg.Degree*m.EulerCharacteristic())
	}

	mcfg := matching.Config{NumPartitions: cfg.Partitions, Logger: log}
	if err := matching.Apply(raw, mcfg); err != nil {
		return nil, fmt.Errorf("matching: %w", err)
	}
	if err := matching.DetectSingularities(raw, mcfg); err != nil {
		return nil, fmt.Errorf("singularities: %w", err)
	}
	measured, err := matching.EffortToIndices(tb, raw.Effort, cfg.Degree)
	if err != nil {
		return nil, err
	}

	combed, comb, err := combing.Comb(raw, combing.Options{
		Seed:   cfg.Comb.Seed,
		Reseed: cfg.Comb.Reseed,
		Strict: cfg.Comb.Strict,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("combing: %w", err)
	}

	dc := tb.Cycles()
	defects := m.AngleDefects()
	report := &Report{
		Mesh: MeshReport{
			Shape:          cfg.Mesh.Shape,
			Vertices:       m.NumVertices(),
			Faces:          m.NumFaces(),
			Edges:          m.NumEdges(),
			Euler:          m.EulerCharacteristic(),
			BoundaryLoops:  len(m.BoundaryLoops),
			Area:           m.TotalArea(),
			LocalCycles:    dc.NumLocal,
			Generators:     dc.NumGenerators,
			BoundaryCycles: dc.NumBoundary,
		},
		Degree:            cfg.Degree,
		PrescriptionError: linf,
		ExpectedIndexSum:  cfg.Degree * m.EulerCharacteristic(),
		Comb: CombReport{
			Seeds:      comb.Seeds,
			SeamEdges:  len(combed.SeamEdges()),
			TreeEdges:  len(comb.TreeEdges),
			Unvisited:  comb.Unvisited,
			InnerEdges: len(m.InnerEdges),
		},
	}
	if len(defects) > 0 {
		report.Mesh.MaxDefect = floats.Max(defects)
	}
	for i, v := range raw.SingElements {
		report.Singularities = append(report.Singularities, SingularityConfig{Vertex: v, Index: raw.SingIndices[i]})
	}
	for c := 0; c < dc.NumLocal; c++ {
		report.IndexSum += measured[c]
	}
	report.GeneratorIndices = measured[dc.NumLocal : dc.NumLocal+dc.NumGenerators]
	for _, c := range dc.Loop2Cycle {
		if c == -1 {
			continue
		}
		report.BoundaryIndices = append(report.BoundaryIndices, measured[c])
	}
	return report, nil
}
