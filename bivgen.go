/*package bivgen generates a synthetic cardiac data set: a labeled
biventricular ellipsoid mesh, rule-based fiber orientations, and one
fractal conduction tree per ventricle.

The pipeline is file-driven. Each stage writes its results into a data
directory and is skipped on rerun when its outputs already exist, so a
partially completed run resumes where it left off and individual
products can be regenerated by deleting their files.
*/
package bivgen

// Output file names within the data directory. Downstream consumers
// key on these names, so they are fixed rather than configurable.
const (
	MeshFile        = "biv_ellipsoid.msh"
	FiberFile       = "fiber.xdmf"
	SheetFile       = "sheet.xdmf"
	SheetNormalFile = "sheet_normal.xdmf"
	LVTreeFile      = "lv_tree.vtu"
	RVTreeFile      = "rv_tree.vtu"
)

// TreeSeed seeds the random source of every conduction-tree growth, so
// regenerated trees are bit-identical across runs.
const TreeSeed = 1234
