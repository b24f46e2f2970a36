package meshio

import (
	"bufio"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

// vtkLine is the VTK cell type id for a two-point line segment.
const vtkLine = 3

// WriteVTU writes a line network (a conduction tree) as a VTK XML
// unstructured grid in ASCII.
func WriteVTU(path string, points []r3.Vec, lines [][2]int32) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "<?xml version=\"1.0\"?>\n")
	fmt.Fprintf(w, "<VTKFile type=\"UnstructuredGrid\" version=\"0.1\" "+
		"byte_order=\"LittleEndian\">\n")
	fmt.Fprintf(w, "  <UnstructuredGrid>\n")
	fmt.Fprintf(w, "    <Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n",
		len(points), len(lines))

	fmt.Fprintf(w, "      <Points>\n")
	fmt.Fprintf(w, "        <DataArray type=\"Float64\" "+
		"NumberOfComponents=\"3\" format=\"ascii\">\n")
	for _, p := range points {
		fmt.Fprintf(w, "          %s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	fmt.Fprintf(w, "        </DataArray>\n      </Points>\n")

	fmt.Fprintf(w, "      <Cells>\n")
	fmt.Fprintf(w, "        <DataArray type=\"Int32\" "+
		"Name=\"connectivity\" format=\"ascii\">\n")
	for _, l := range lines {
		fmt.Fprintf(w, "          %d %d\n", l[0], l[1])
	}
	fmt.Fprintf(w, "        </DataArray>\n")
	fmt.Fprintf(w, "        <DataArray type=\"Int32\" "+
		"Name=\"offsets\" format=\"ascii\">\n")
	for i := range lines {
		fmt.Fprintf(w, "          %d\n", 2*(i+1))
	}
	fmt.Fprintf(w, "        </DataArray>\n")
	fmt.Fprintf(w, "        <DataArray type=\"UInt8\" "+
		"Name=\"types\" format=\"ascii\">\n")
	for range lines {
		fmt.Fprintf(w, "          %d\n", vtkLine)
	}
	fmt.Fprintf(w, "        </DataArray>\n      </Cells>\n")

	fmt.Fprintf(w, "    </Piece>\n  </UnstructuredGrid>\n</VTKFile>\n")

	return w.Flush()
}
