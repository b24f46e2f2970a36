package meshio

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func writeTempMsh(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.msh")
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))
	return path
}

func sampleFile() *File {
	return &File{
		Points: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
			{X: 1, Y: 1, Z: 1},
		},
		Blocks: []CellBlock{
			{Type: "triangle", Tag: 2, Cells: [][]int32{
				{0, 1, 2}, {1, 2, 3},
			}},
			{Type: "triangle", Tag: 4, Cells: [][]int32{{2, 3, 4}}},
			{Type: "tetra", Tag: 5, Cells: [][]int32{{0, 1, 2, 3}}},
		},
		FieldData: map[string]PhysicalGroup{
			"ENDO_LV": {Tag: 2, Dim: 2},
			"EPI":     {Tag: 4, Dim: 2},
			"WALL_LV": {Tag: 5, Dim: 3},
		},
	}
}

func TestGmshRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.msh")
	want := sampleFile()
	require.NoError(t, WriteGmsh(path, want))

	got, err := ReadGmsh(path)
	require.NoError(t, err)

	require.Equal(t, want.Points, got.Points)
	require.Equal(t, want.Blocks, got.Blocks)
	require.Equal(t, want.FieldData, got.FieldData)
}

func TestGmshCoordinatesRoundTripExactly(t *testing.T) {
	// Coordinates that need all 17 significant digits. Anything
	// shorter than the exact shortest representation would perturb
	// them by an ulp across write/read.
	path := filepath.Join(t.TempDir(), "exact.msh")
	want := &File{
		Points: []r3.Vec{
			{X: 4.8296291314453415, Y: 1.0 / 3.0, Z: math.Pi},
			{X: 0.1, Y: math.Sqrt2, Z: -2.7755575615628914e-17},
			{X: math.Nextafter(1, 2), Y: 0, Z: 1e300},
		},
		Blocks: []CellBlock{
			{Type: "triangle", Tag: 1, Cells: [][]int32{{0, 1, 2}}},
		},
		FieldData: map[string]PhysicalGroup{},
	}
	require.NoError(t, WriteGmsh(path, want))

	got, err := ReadGmsh(path)
	require.NoError(t, err)
	require.Equal(t, want.Points, got.Points)
}

func TestCellsWithTag(t *testing.T) {
	f := sampleFile()

	cells, err := f.CellsWithTag("triangle", 2)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	// A tag present zero times must surface as an error, not an empty
	// connectivity.
	_, err = f.CellsWithTag("triangle", 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "physical tag 3")

	_, err = f.CellsWithTag("tetra", 2)
	require.Error(t, err)
}

func TestReadGmshMalformedNode(t *testing.T) {
	path := writeTempMsh(t, `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
2
1 0.0 0.0 0.0
2 1.0 nope 0.0
$EndNodes
`)
	_, err := ReadGmsh(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid node coordinate")
}

func TestReadGmshTruncatedElements(t *testing.T) {
	path := writeTempMsh(t, `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
3
1 0 0 0
2 1 0 0
3 0 1 0
$EndNodes
$Elements
2
1 2 2 1 1 1 2 3
`)
	_, err := ReadGmsh(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "truncated $Elements")
}

func TestReadGmshShortElementLine(t *testing.T) {
	path := writeTempMsh(t, `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
3
1 0 0 0
2 1 0 0
3 0 1 0
$EndNodes
$Elements
1
1 2 2 1 1 1 2
$EndElements
`)
	_, err := ReadGmsh(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "want 8")
}

func TestReadGmshRejectsBinary(t *testing.T) {
	path := writeTempMsh(t, `$MeshFormat
2.2 1 8
$EndMeshFormat
`)
	_, err := ReadGmsh(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "binary"))
}

func TestReadGmshMissingNodes(t *testing.T) {
	path := writeTempMsh(t, `$MeshFormat
2.2 0 8
$EndMeshFormat
`)
	_, err := ReadGmsh(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no $Nodes")
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fiber.xdmf")

	points := []r3.Vec{{X: 0}, {X: 1}, {Y: 1}, {Z: 1}}
	tets := [][4]int32{{0, 1, 2, 3}}
	field := []r3.Vec{
		{X: 1}, {Y: 1}, {Z: 1}, {X: 0.5, Y: 0.5},
	}

	require.NoError(t,
		WriteCheckpoint(path, "fiber", 0.0, points, tets, field))

	// Companion binary sits next to the XML.
	got, err := ReadFieldBin(filepath.Join(dir, "fiber.bin"), len(field))
	require.NoError(t, err)
	require.Equal(t, field, got)

	xml, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, want := range []string{
		`Name="fiber"`, `Time Value="0"`, `Format="Binary"`, "fiber.bin",
	} {
		require.Contains(t, string(xml), want)
	}
}

func TestCheckpointLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fiber.xdmf")
	err := WriteCheckpoint(path, "fiber", 0,
		[]r3.Vec{{}, {}}, nil, []r3.Vec{{}})
	require.Error(t, err)
}

func TestWriteVTU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.vtu")
	points := []r3.Vec{{X: 0}, {X: 1}, {X: 1, Y: 1}}
	lines := [][2]int32{{0, 1}, {1, 2}}

	require.NoError(t, WriteVTU(path, points, lines))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	require.Contains(t, s, `NumberOfPoints="3"`)
	require.Contains(t, s, `NumberOfCells="2"`)
	require.Contains(t, s, `Name="connectivity"`)
	require.Contains(t, s, "</VTKFile>")
}
