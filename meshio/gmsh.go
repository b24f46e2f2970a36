/*package meshio reads and writes the mesh and field files the pipeline
exchanges between stages: Gmsh 2.2 ASCII meshes, XDMF checkpoints for
vertex fields, and VTK XML unstructured grids for conduction trees.

The Gmsh reader exposes points, cell blocks and named physical groups;
it does not try to be a general mesh-format library beyond what the
pipeline writes.
*/
package meshio

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Gmsh element type ids for the two cell kinds the pipeline uses.
const (
	gmshTriangle = 2
	gmshTetra    = 4
)

// CellBlock is a run of cells of one type sharing one physical tag,
// the unit in which Gmsh files list elements.
type CellBlock struct {
	Type  string // "triangle" or "tetra"
	Tag   int32
	Cells [][]int32 // 0-based vertex indices
}

// PhysicalGroup names a tagged region and its topological dimension.
type PhysicalGroup struct {
	Tag int32
	Dim int
}

// File is an in-memory Gmsh file: points, cell blocks, and the named
// physical groups ("field data" in meshio terms).
type File struct {
	Points    []r3.Vec
	Blocks    []CellBlock
	FieldData map[string]PhysicalGroup
}

// CellsWithTag stacks the connectivity of every block of the given type
// carrying the given physical tag. A selection that matches nothing is
// an error rather than an empty result: downstream stages must not run
// on a silently empty region.
func (f *File) CellsWithTag(cellType string, tag int32) ([][]int32, error) {
	var cells [][]int32
	for _, b := range f.Blocks {
		if b.Type == cellType && b.Tag == tag {
			cells = append(cells, b.Cells...)
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf(
			"no %s cells carry physical tag %d", cellType, tag,
		)
	}
	return cells, nil
}

// WriteGmsh writes f in Gmsh 2.2 ASCII format.
func WriteGmsh(path string, f *File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")

	if len(f.FieldData) > 0 {
		fmt.Fprintf(w, "$PhysicalNames\n%d\n", len(f.FieldData))
		// Sorted by tag so output is reproducible.
		for _, name := range sortedGroupNames(f.FieldData) {
			g := f.FieldData[name]
			fmt.Fprintf(w, "%d %d \"%s\"\n", g.Dim, g.Tag, name)
		}
		fmt.Fprintf(w, "$EndPhysicalNames\n")
	}

	fmt.Fprintf(w, "$Nodes\n%d\n", len(f.Points))
	for i, p := range f.Points {
		fmt.Fprintf(w, "%d %s %s %s\n", i+1, ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	fmt.Fprintf(w, "$EndNodes\n")

	nElems := 0
	for _, b := range f.Blocks {
		nElems += len(b.Cells)
	}
	fmt.Fprintf(w, "$Elements\n%d\n", nElems)
	id := 1
	for _, b := range f.Blocks {
		typ, err := gmshType(b.Type)
		if err != nil {
			return err
		}
		for _, cell := range b.Cells {
			// Two tags per element: physical and elementary. The
			// pipeline only distinguishes physical tags.
			fmt.Fprintf(w, "%d %d 2 %d %d", id, typ, b.Tag, b.Tag)
			for _, v := range cell {
				fmt.Fprintf(w, " %d", v+1)
			}
			fmt.Fprintf(w, "\n")
			id++
		}
	}
	fmt.Fprintf(w, "$EndElements\n")

	return w.Flush()
}

// ReadGmsh parses a Gmsh 2.2 ASCII file. Elements are grouped into
// blocks by runs of equal type and physical tag, preserving file order.
func ReadGmsh(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	f := &File{FieldData: make(map[string]PhysicalGroup)}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 1<<16), 1<<22)

	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "$MeshFormat":
			if err := readFormat(sc); err != nil {
				return nil, err
			}
		case "$PhysicalNames":
			if err := readPhysicalNames(sc, f); err != nil {
				return nil, err
			}
		case "$Nodes":
			if err := readNodes(sc, f); err != nil {
				return nil, err
			}
		case "$Elements":
			if err := readElements(sc, f); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(f.Points) == 0 {
		return nil, fmt.Errorf("%s: no $Nodes section", path)
	}
	return f, nil
}

func readFormat(sc *bufio.Scanner) error {
	if !sc.Scan() {
		return fmt.Errorf("truncated $MeshFormat section")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 3 || !strings.HasPrefix(fields[0], "2.") {
		return fmt.Errorf("unsupported mesh format %q", sc.Text())
	}
	if fields[1] != "0" {
		return fmt.Errorf("binary Gmsh files are not supported")
	}
	return skipToEnd(sc, "$EndMeshFormat")
}

func readPhysicalNames(sc *bufio.Scanner, f *File) error {
	n, err := readCount(sc, "$PhysicalNames")
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return fmt.Errorf("truncated $PhysicalNames section")
		}
		fields := strings.SplitN(strings.TrimSpace(sc.Text()), " ", 3)
		if len(fields) != 3 {
			return fmt.Errorf("invalid physical name line %q", sc.Text())
		}
		dim, err1 := strconv.Atoi(fields[0])
		tag, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid physical name line %q", sc.Text())
		}
		name := strings.Trim(fields[2], `"`)
		f.FieldData[name] = PhysicalGroup{Tag: int32(tag), Dim: dim}
	}
	return skipToEnd(sc, "$EndPhysicalNames")
}

func readNodes(sc *bufio.Scanner, f *File) error {
	n, err := readCount(sc, "$Nodes")
	if err != nil {
		return err
	}
	f.Points = make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return fmt.Errorf("truncated $Nodes section")
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != 4 {
			return fmt.Errorf("invalid node line %q", sc.Text())
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil || id != i+1 {
			return fmt.Errorf(
				"non-sequential node id %q (want %d)", fields[0], i+1,
			)
		}
		var xyz [3]float64
		for k := 0; k < 3; k++ {
			xyz[k], err = strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return fmt.Errorf("invalid node coordinate %q", fields[k+1])
			}
		}
		f.Points[i] = r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return skipToEnd(sc, "$EndNodes")
}

func readElements(sc *bufio.Scanner, f *File) error {
	n, err := readCount(sc, "$Elements")
	if err != nil {
		return err
	}
	var cur *CellBlock
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return fmt.Errorf("truncated $Elements section")
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			return fmt.Errorf("invalid element line %q", sc.Text())
		}
		ints := make([]int, len(fields))
		for k, s := range fields {
			ints[k], err = strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid element field %q", s)
			}
		}

		typ, nTags := ints[1], ints[2]
		typeName, nVerts, err := gmshTypeName(typ)
		if err != nil {
			return err
		}
		if len(ints) != 3+nTags+nVerts {
			return fmt.Errorf(
				"element line %q has %d fields, want %d",
				sc.Text(), len(ints), 3+nTags+nVerts,
			)
		}
		tag := int32(0)
		if nTags > 0 {
			tag = int32(ints[3])
		}
		cell := make([]int32, nVerts)
		for k := 0; k < nVerts; k++ {
			cell[k] = int32(ints[3+nTags+k]) - 1
		}

		if cur == nil || cur.Type != typeName || cur.Tag != tag {
			f.Blocks = append(f.Blocks, CellBlock{Type: typeName, Tag: tag})
			cur = &f.Blocks[len(f.Blocks)-1]
		}
		cur.Cells = append(cur.Cells, cell)
	}
	return skipToEnd(sc, "$EndElements")
}

func readCount(sc *bufio.Scanner, section string) (int, error) {
	if !sc.Scan() {
		return 0, fmt.Errorf("truncated %s section", section)
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s count %q", section, sc.Text())
	}
	return n, nil
}

func skipToEnd(sc *bufio.Scanner, end string) error {
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == end {
			return nil
		}
	}
	return fmt.Errorf("missing %s", end)
}

func gmshType(name string) (int, error) {
	switch name {
	case "triangle":
		return gmshTriangle, nil
	case "tetra":
		return gmshTetra, nil
	}
	return 0, fmt.Errorf("unsupported cell type %q", name)
}

func gmshTypeName(typ int) (name string, nVerts int, err error) {
	switch typ {
	case gmshTriangle:
		return "triangle", 3, nil
	case gmshTetra:
		return "tetra", 4, nil
	}
	return "", 0, fmt.Errorf("unsupported Gmsh element type %d", typ)
}

// ftoa formats a coordinate with the shortest representation that
// parses back to exactly the same float64, so write/read round trips
// preserve vertices bit for bit.
func ftoa(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func sortedGroupNames(groups map[string]PhysicalGroup) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return groups[names[i]].Tag < groups[names[j]].Tag
	})
	return names
}
