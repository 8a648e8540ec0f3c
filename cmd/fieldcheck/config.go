package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/notargets/directional/mesh"
	"gopkg.in/yaml.v3"
)

var configValidate = validator.New()

// Config describes one pipeline run
type Config struct {
	Mesh           MeshConfig          `yaml:"mesh"`
	Degree         int                 `yaml:"degree" validate:"required,min=1,max=12"`
	Singularities  []SingularityConfig `yaml:"singularities" validate:"dive"`
	// BoundaryIndices prescribes indices around holes; the last loop is implied
	BoundaryIndices []BoundaryIndexConfig `yaml:"boundaryIndices" validate:"dive"`
	GlobalRotation  float64               `yaml:"globalRotation"`
	Partitions      int                   `yaml:"partitions" validate:"gte=0"`
	Comb            CombConfig            `yaml:"comb"`
}

// MeshConfig selects a procedural mesh. Unset sizes take the defaults below.
type MeshConfig struct {
	Shape        string  `yaml:"shape" validate:"required,oneof=tetrahedron octahedron icosphere torus grid frustum"`
	Subdivisions int     `yaml:"subdivisions" validate:"gte=0,lte=6"`
	Rings        int     `yaml:"rings" validate:"gte=0"`
	Segments     int     `yaml:"segments" validate:"gte=0"`
	MajorRadius  float64 `yaml:"majorRadius" validate:"gte=0"`
	MinorRadius  float64 `yaml:"minorRadius" validate:"gte=0"`
	Rows         int     `yaml:"rows" validate:"gte=0"`
	Cols         int     `yaml:"cols" validate:"gte=0"`
	BottomRadius float64 `yaml:"bottomRadius" validate:"gte=0"`
	TopRadius    float64 `yaml:"topRadius" validate:"gte=0"`
	Height       float64 `yaml:"height"`
}

// SingularityConfig prescribes an index on an interior vertex
type SingularityConfig struct {
	Vertex int `yaml:"vertex" validate:"gte=0"`
	Index  int `yaml:"index" validate:"ne=0"`
}

// BoundaryIndexConfig prescribes an index around a boundary loop
type BoundaryIndexConfig struct {
	Loop  int `yaml:"loop" validate:"gte=0"`
	Index int `yaml:"index"`
}

// CombConfig maps onto combing.Options
type CombConfig struct {
	Seed   int  `yaml:"seed" validate:"gte=0"`
	Reseed bool `yaml:"reseed"`
	Strict bool `yaml:"strict"`
}

func (c *Config) applyDefaults() {
	m := &c.Mesh
	switch m.Shape {
	case "torus":
		if m.Rings == 0 {
			m.Rings = 16
		}
		if m.Segments == 0 {
			m.Segments = 10
		}
		if m.MajorRadius == 0 {
			m.MajorRadius = 3
		}
		if m.MinorRadius == 0 {
			m.MinorRadius = 1
		}
	case "grid":
		if m.Rows == 0 {
			m.Rows = 4
		}
		if m.Cols == 0 {
			m.Cols = 4
		}
	case "frustum":
		if m.Rings == 0 {
			m.Rings = 3
		}
		if m.Segments == 0 {
			m.Segments = 16
		}
		if m.BottomRadius == 0 {
			m.BottomRadius = 2
		}
		if m.TopRadius == 0 {
			m.TopRadius = 1
		}
		if m.Height == 0 {
			m.Height = 1
		}
	}
}

// parseConfig decodes YAML, fills defaults and validates the result
func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := configValidate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

// buildMesh constructs the configured procedural mesh
func buildMesh(c MeshConfig) (*mesh.TriMesh, error) {
	switch c.Shape {
	case "tetrahedron":
		return mesh.Tetrahedron()
	case "octahedron":
		return mesh.Octahedron()
	case "icosphere":
		return mesh.Icosphere(c.Subdivisions)
	case "torus":
		return mesh.Torus(c.MajorRadius, c.MinorRadius, c.Rings, c.Segments)
	case "grid":
		return mesh.Grid(c.Rows, c.Cols, nil)
	case "frustum":
		return mesh.Frustum(c.BottomRadius, c.TopRadius, c.Height, c.Rings, c.Segments)
	}
	return nil, fmt.Errorf("unknown shape %q", c.Shape)
}

var shapeDescriptions = []struct {
	Name, Description string
}{
	{"tetrahedron", "regular tetrahedron, 4 faces, genus 0"},
	{"octahedron", "unit octahedron, 8 faces, genus 0"},
	{"icosphere", "subdivided icosahedron on the unit sphere (subdivisions)"},
	{"torus", "genus 1 torus (majorRadius, minorRadius, rings, segments)"},
	{"grid", "flat rows x cols patch of unit squares, one boundary loop"},
	{"frustum", "open truncated cone, two boundary loops (bottomRadius, topRadius, height, rings, segments)"},
}
