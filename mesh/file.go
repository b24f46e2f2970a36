package mesh

import (
	"fmt"

	"bivgen/meshio"
)

// File converts the mesh to its on-disk representation. Cells are
// grouped into blocks by runs of equal physical tag, triangles first,
// matching the order the generator emits them in.
func (m *Mesh) File() *meshio.File {
	f := &meshio.File{
		Points:    m.Verts,
		FieldData: make(map[string]meshio.PhysicalGroup),
	}

	triDim := make(map[int32]bool)
	var cur *meshio.CellBlock
	for i, tri := range m.Tris {
		tag := m.TriTags[i]
		triDim[tag] = true
		if cur == nil || cur.Tag != tag {
			f.Blocks = append(f.Blocks, meshio.CellBlock{
				Type: "triangle", Tag: tag,
			})
			cur = &f.Blocks[len(f.Blocks)-1]
		}
		cur.Cells = append(cur.Cells, []int32{tri[0], tri[1], tri[2]})
	}
	cur = nil
	for i, tet := range m.Tets {
		tag := m.TetTags[i]
		if cur == nil || cur.Tag != tag {
			f.Blocks = append(f.Blocks, meshio.CellBlock{
				Type: "tetra", Tag: tag,
			})
			cur = &f.Blocks[len(f.Blocks)-1]
		}
		cur.Cells = append(cur.Cells, []int32{tet[0], tet[1], tet[2], tet[3]})
	}

	for name, tag := range m.Names {
		dim := 3
		if triDim[tag] {
			dim = 2
		}
		f.FieldData[name] = meshio.PhysicalGroup{Tag: tag, Dim: dim}
	}
	return f
}

// FromFile rebuilds a Mesh from its on-disk representation.
func FromFile(f *meshio.File) (*Mesh, error) {
	m := &Mesh{
		Verts: f.Points,
		Names: make(map[string]int32),
	}
	for name, g := range f.FieldData {
		m.Names[name] = g.Tag
	}

	n := int32(len(f.Points))
	for _, b := range f.Blocks {
		for _, cell := range b.Cells {
			for _, v := range cell {
				if v < 0 || v >= n {
					return nil, fmt.Errorf(
						"cell vertex %d out of range (%d points)", v, n,
					)
				}
			}
			switch b.Type {
			case "triangle":
				m.Tris = append(m.Tris, [3]int32{cell[0], cell[1], cell[2]})
				m.TriTags = append(m.TriTags, b.Tag)
			case "tetra":
				m.Tets = append(m.Tets, [4]int32{
					cell[0], cell[1], cell[2], cell[3],
				})
				m.TetTags = append(m.TetTags, b.Tag)
			default:
				return nil, fmt.Errorf("unsupported cell type %q", b.Type)
			}
		}
	}
	if len(m.Tets) == 0 {
		return nil, fmt.Errorf("mesh file contains no tetrahedra")
	}
	return m, nil
}
