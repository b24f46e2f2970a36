package bivgen

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/gcfg.v1"

	"bivgen/ldrb"
	"bivgen/mesh"
	"bivgen/tree"
)

const ExampleConfigFile = `[Geometry]

# Target characteristic edge length of the mesh. Reduce for a finer
# mesh; runtime grows roughly with the inverse cube.
CharLength = 0.2

# Semi-axes of the endocardial and epicardial ellipsoids of each
# ventricle, and the in-plane offsets of their centers. The long axis
# runs along x with the base plane at x = 0. Every epicardial semi-axis
# must exceed its endocardial counterpart, or the wall would have no
# thickness.
LVCenterY = 0.2
LVCenterZ = 0.0
LVEndoA = 5.0
LVEndoB = 2.2
LVEndoC = 2.2
LVEpiA = 6.0
LVEpiB = 3.0
LVEpiC = 3.0

RVCenterY = 1.0
RVCenterZ = 0.0
RVEndoA = 6.0
RVEndoB = 2.5
RVEndoC = 2.7
RVEpiA = 8.0
RVEpiB = 5.5
RVEpiC = 4.0

[Fiber]

# Helix (alpha) and transverse (beta) angles of the fiber rule, in
# degrees, on the endocardium and the epicardium.
AlphaEndo = 60
AlphaEpi = -60
BetaEndo = 0
BetaEpi = 0

# One conduction tree is grown per ventricle, rooted near the seed
# point on the matching endocardium.
[Tree "lv"]
SeedX = 0.0
SeedY = 2.34484
SeedZ = 0.19
InitLength = 7.0
Iterations = 12
BranchLength = 0.5
DirectionX = 1.0
DirectionY = 0.0
DirectionZ = 0.0

[Tree "rv"]
SeedX = 0.0
SeedY = 3.19
SeedZ = 0.19
InitLength = 9.7
Iterations = 15
BranchLength = 0.5
DirectionX = 1.0
DirectionY = 0.0
DirectionZ = 0.0`

type GeometryConfig struct {
	CharLength float64

	LVCenterY, LVCenterZ      float64
	LVEndoA, LVEndoB, LVEndoC float64
	LVEpiA, LVEpiB, LVEpiC    float64

	RVCenterY, RVCenterZ      float64
	RVEndoA, RVEndoB, RVEndoC float64
	RVEpiA, RVEpiB, RVEpiC    float64
}

func (con *GeometryConfig) ValidCharLength() bool {
	return con.CharLength > 0
}
func (con *GeometryConfig) ValidLVAxes() bool {
	return con.LVEpiA > con.LVEndoA && con.LVEpiB > con.LVEndoB &&
		con.LVEpiC > con.LVEndoC && con.LVEndoA > 0 &&
		con.LVEndoB > 0 && con.LVEndoC > 0
}
func (con *GeometryConfig) ValidRVAxes() bool {
	return con.RVEpiA > con.RVEndoA && con.RVEpiB > con.RVEndoB &&
		con.RVEpiC > con.RVEndoC && con.RVEndoA > 0 &&
		con.RVEndoB > 0 && con.RVEndoC > 0
}

// Params converts the section to mesh generator parameters.
func (con *GeometryConfig) Params() mesh.Params {
	return mesh.Params{
		CharLength: con.CharLength,

		CenterLVY: con.LVCenterY, CenterLVZ: con.LVCenterZ,
		AEndoLV: con.LVEndoA, BEndoLV: con.LVEndoB, CEndoLV: con.LVEndoC,
		AEpiLV: con.LVEpiA, BEpiLV: con.LVEpiB, CEpiLV: con.LVEpiC,

		CenterRVY: con.RVCenterY, CenterRVZ: con.RVCenterZ,
		AEndoRV: con.RVEndoA, BEndoRV: con.RVEndoB, CEndoRV: con.RVEndoC,
		AEpiRV: con.RVEpiA, BEpiRV: con.RVEpiB, CEpiRV: con.RVEpiC,
	}
}

type FiberConfig struct {
	AlphaEndo, AlphaEpi float64
	BetaEndo, BetaEpi   float64
}

func (con *FiberConfig) ValidAlphaEndo() bool {
	return con.AlphaEndo >= -90 && con.AlphaEndo <= 90
}
func (con *FiberConfig) ValidAlphaEpi() bool {
	return con.AlphaEpi >= -90 && con.AlphaEpi <= 90
}

// Params converts the section to fiber rule parameters.
func (con *FiberConfig) Params() ldrb.Params {
	return ldrb.Params{
		AlphaEndoLV: con.AlphaEndo, AlphaEpiLV: con.AlphaEpi,
		BetaEndoLV: con.BetaEndo, BetaEpiLV: con.BetaEpi,
	}
}

type TreeConfig struct {
	SeedX, SeedY, SeedZ                float64
	InitLength                         float64
	Iterations                         int
	BranchLength                       float64
	DirectionX, DirectionY, DirectionZ float64
}

func (con *TreeConfig) ValidInitLength() bool {
	return con.InitLength > 0
}
func (con *TreeConfig) ValidIterations() bool {
	return con.Iterations >= 0
}
func (con *TreeConfig) ValidBranchLength() bool {
	return con.BranchLength > 0
}
func (con *TreeConfig) ValidDirection() bool {
	d := r3.Vec{X: con.DirectionX, Y: con.DirectionY, Z: con.DirectionZ}
	return r3.Norm(d) > 0
}

// Seed is the point the tree is rooted at. The actual root is the
// nearest endocardial vertex.
func (con *TreeConfig) Seed() r3.Vec {
	return r3.Vec{X: con.SeedX, Y: con.SeedY, Z: con.SeedZ}
}

// Params converts the section to tree growth parameters.
func (con *TreeConfig) Params() tree.Params {
	return tree.Params{
		InitLength: con.InitLength,
		NIt:        con.Iterations,
		Length:     con.BranchLength,
		InitialDirection: r3.Vec{
			X: con.DirectionX, Y: con.DirectionY, Z: con.DirectionZ,
		},
	}
}

// Config is the full pipeline configuration. The zero value is not
// useful; start from DefaultConfig.
type Config struct {
	Geometry GeometryConfig
	Fiber    FiberConfig
	Tree     map[string]*TreeConfig
}

// DefaultConfig reproduces the reference data set.
func DefaultConfig() *Config {
	return &Config{
		Geometry: GeometryConfig{
			CharLength: 0.2,

			LVCenterY: 0.2, LVCenterZ: 0.0,
			LVEndoA: 5.0, LVEndoB: 2.2, LVEndoC: 2.2,
			LVEpiA: 6.0, LVEpiB: 3.0, LVEpiC: 3.0,

			RVCenterY: 1.0, RVCenterZ: 0.0,
			RVEndoA: 6.0, RVEndoB: 2.5, RVEndoC: 2.7,
			RVEpiA: 8.0, RVEpiB: 5.5, RVEpiC: 4.0,
		},
		Fiber: FiberConfig{AlphaEndo: 60, AlphaEpi: -60},
		Tree: map[string]*TreeConfig{
			"lv": {
				SeedX: 0, SeedY: 2.34484, SeedZ: 0.19,
				InitLength: 7.0, Iterations: 12, BranchLength: 0.5,
				DirectionX: 1,
			},
			"rv": {
				SeedX: 0, SeedY: 3.19, SeedZ: 0.19,
				InitLength: 9.7, Iterations: 15, BranchLength: 0.5,
				DirectionX: 1,
			},
		},
	}
}

// ReadConfig parses a gcfg file over the defaults, so a config file
// only needs to name the values it changes.
func ReadConfig(path string) (*Config, error) {
	con := DefaultConfig()
	if err := gcfg.ReadFileInto(con, path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := con.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return con, nil
}

func (con *Config) validate() error {
	if !con.Geometry.ValidCharLength() {
		return fmt.Errorf("Geometry.CharLength must be positive")
	}
	if !con.Geometry.ValidLVAxes() {
		return fmt.Errorf("LV epicardial semi-axes must exceed " +
			"the endocardial ones")
	}
	if !con.Geometry.ValidRVAxes() {
		return fmt.Errorf("RV epicardial semi-axes must exceed " +
			"the endocardial ones")
	}
	if !con.Fiber.ValidAlphaEndo() || !con.Fiber.ValidAlphaEpi() {
		return fmt.Errorf("fiber helix angles must lie in [-90, 90]")
	}
	for _, name := range []string{"lv", "rv"} {
		t, ok := con.Tree[name]
		if !ok {
			return fmt.Errorf("missing [Tree %q] section", name)
		}
		switch {
		case !t.ValidInitLength():
			return fmt.Errorf("Tree %q: InitLength must be positive", name)
		case !t.ValidIterations():
			return fmt.Errorf(
				"Tree %q: Iterations must not be negative", name,
			)
		case !t.ValidBranchLength():
			return fmt.Errorf(
				"Tree %q: BranchLength must be positive", name,
			)
		case !t.ValidDirection():
			return fmt.Errorf("Tree %q: direction must not be zero", name)
		}
	}
	return nil
}
