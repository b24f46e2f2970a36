package bivgen

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"bivgen/ldrb"
	"bivgen/mesh"
	"bivgen/meshio"
	"bivgen/tree"
)

// Pipeline runs the three generation stages against one data
// directory. Stages communicate exclusively through files, so a stage
// whose outputs exist is skipped and a deleted product is rebuilt from
// the files of the stage before it.
type Pipeline struct {
	Dir    string
	Config *Config

	log *zap.Logger

	// cached is the mesh as read back from disk, shared by the fiber
	// and tree stages. It is only ever populated by loadMesh.
	cached *mesh.Mesh
}

// New returns a pipeline writing into dir. A nil logger disables
// logging.
func New(dir string, con *Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{Dir: dir, Config: con, log: log}
}

// Run executes every stage in order: mesh, fibers, conduction trees.
func (p *Pipeline) Run() error {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return err
	}
	if err := p.Mesh(); err != nil {
		return err
	}
	if err := p.Fibers(); err != nil {
		return err
	}
	return p.Trees()
}

// Mesh generates the labeled biventricular mesh unless it already
// exists on disk.
func (p *Pipeline) Mesh() error {
	path := filepath.Join(p.Dir, MeshFile)
	if exists(path) {
		p.log.Info("mesh exists, skipping", zap.String("path", path))
		return nil
	}
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return err
	}

	p.log.Info("generating biventricular mesh",
		zap.Float64("char_length", p.Config.Geometry.CharLength))
	m, err := mesh.GenerateBivEllipsoid(p.Config.Geometry.Params())
	if err != nil {
		return err
	}
	p.log.Info("mesh generated",
		zap.Int("vertices", len(m.Verts)),
		zap.Int("tetrahedra", len(m.Tets)),
		zap.Int("boundary_facets", len(m.Tris)))

	// Later stages reload the mesh from disk rather than taking this
	// one in memory, so a resumed run sees exactly the same input as
	// the run that produced the file.
	return meshio.WriteGmsh(path, m.File())
}

// Fibers computes fiber, sheet and sheet-normal fields from the mesh
// on disk. Only the fiber file gates the stage; the sheet and
// sheet-normal checkpoints are rewritten along with it.
func (p *Pipeline) Fibers() error {
	path := filepath.Join(p.Dir, FiberFile)
	if exists(path) {
		p.log.Info("fibers exist, skipping", zap.String("path", path))
		return nil
	}

	m, err := p.loadMesh()
	if err != nil {
		return err
	}
	mk, err := ldrb.MarkersFromMesh(m)
	if err != nil {
		return err
	}

	p.log.Info("computing fiber orientations",
		zap.Float64("alpha_endo", p.Config.Fiber.AlphaEndo),
		zap.Float64("alpha_epi", p.Config.Fiber.AlphaEpi))
	sys, err := ldrb.Run(m, mk, p.Config.Fiber.Params())
	if err != nil {
		return err
	}

	if err := meshio.WriteCheckpoint(
		path, "fiber", 0, m.Verts, m.Tets, sys.Fiber,
	); err != nil {
		return err
	}
	if err := meshio.WriteCheckpoint(
		filepath.Join(p.Dir, SheetFile), "sheet", 0,
		m.Verts, m.Tets, sys.Sheet,
	); err != nil {
		return err
	}
	return meshio.WriteCheckpoint(
		filepath.Join(p.Dir, SheetNormalFile), "sheet_normal", 0,
		m.Verts, m.Tets, sys.SheetNormal,
	)
}

// Trees grows the conduction tree of each ventricle whose output file
// is missing.
func (p *Pipeline) Trees() error {
	ventricles := []struct {
		name, file, group string
	}{
		{"lv", LVTreeFile, mesh.GroupEndoLV},
		{"rv", RVTreeFile, mesh.GroupEndoRV},
	}

	for _, v := range ventricles {
		path := filepath.Join(p.Dir, v.file)
		if exists(path) {
			p.log.Info("tree exists, skipping",
				zap.String("ventricle", v.name), zap.String("path", path))
			continue
		}
		con, ok := p.Config.Tree[v.name]
		if !ok {
			return fmt.Errorf("missing [Tree %q] section", v.name)
		}
		if err := p.growTree(path, v.group, con); err != nil {
			return fmt.Errorf("%s tree: %w", v.name, err)
		}
	}
	return nil
}

func (p *Pipeline) growTree(path, group string, con *TreeConfig) error {
	m, err := p.loadMesh()
	if err != nil {
		return err
	}
	tag, err := m.Tag(group)
	if err != nil {
		return err
	}
	surf, err := m.Surface(tag)
	if err != nil {
		return err
	}

	seed := surf.NearestVertex(con.Seed())
	tm, err := tree.NewMesh(surf.Verts, surf.Tris, seed)
	if err != nil {
		return err
	}

	p.log.Info("growing conduction tree",
		zap.String("path", path),
		zap.Int("seed_vertex", seed),
		zap.Int("iterations", con.Iterations))
	tr, err := tree.Grow(tm, con.Params(), rand.New(rand.NewSource(TreeSeed)))
	if err != nil {
		return err
	}
	p.log.Info("tree grown",
		zap.Int("nodes", len(tr.Nodes)),
		zap.Int("segments", len(tr.Segments)))

	return meshio.WriteVTU(path, tr.Nodes, tr.Segments)
}

// loadMesh reads the mesh file once and caches it for later stages.
func (p *Pipeline) loadMesh() (*mesh.Mesh, error) {
	if p.cached != nil {
		return p.cached, nil
	}
	path := filepath.Join(p.Dir, MeshFile)
	if !exists(path) {
		return nil, fmt.Errorf(
			"%s not found; run the mesh stage first", path,
		)
	}
	f, err := meshio.ReadGmsh(path)
	if err != nil {
		return nil, err
	}
	m, err := mesh.FromFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.cached = m
	return m, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
