package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
)

// WriteCheckpoint persists one vertex vector field as an XDMF
// checkpoint keyed by simulation time. The XML file carries the mesh
// geometry and topology inline; the field values go to a raw
// little-endian float64 companion file next to it (the heavy-data blob
// an XDMF Binary item references), named after the XML file with a
// .bin extension.
func WriteCheckpoint(
	path, fieldName string, time float64,
	points []r3.Vec, tets [][4]int32, field []r3.Vec,
) error {
	if len(field) != len(points) {
		return fmt.Errorf(
			"checkpoint %s: %d field values for %d points",
			fieldName, len(field), len(points),
		)
	}

	binPath := trimExt(path) + ".bin"
	if err := writeFieldBin(binPath, field); err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "<?xml version=\"1.0\"?>\n")
	fmt.Fprintf(w, "<Xdmf Version=\"3.0\">\n  <Domain>\n")
	fmt.Fprintf(w, "    <Grid Name=\"%s\" GridType=\"Uniform\">\n", fieldName)
	fmt.Fprintf(w, "      <Time Value=\"%g\"/>\n", time)

	fmt.Fprintf(w,
		"      <Topology TopologyType=\"Tetrahedron\" "+
			"NumberOfElements=\"%d\">\n", len(tets))
	fmt.Fprintf(w,
		"        <DataItem Dimensions=\"%d 4\" Format=\"XML\">\n", len(tets))
	for _, tet := range tets {
		fmt.Fprintf(w, "          %d %d %d %d\n",
			tet[0], tet[1], tet[2], tet[3])
	}
	fmt.Fprintf(w, "        </DataItem>\n      </Topology>\n")

	fmt.Fprintf(w, "      <Geometry GeometryType=\"XYZ\">\n")
	fmt.Fprintf(w,
		"        <DataItem Dimensions=\"%d 3\" Format=\"XML\">\n",
		len(points))
	for _, p := range points {
		fmt.Fprintf(w, "          %s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
	fmt.Fprintf(w, "        </DataItem>\n      </Geometry>\n")

	fmt.Fprintf(w,
		"      <Attribute Name=\"%s\" AttributeType=\"Vector\" "+
			"Center=\"Node\">\n", fieldName)
	fmt.Fprintf(w,
		"        <DataItem Dimensions=\"%d 3\" NumberType=\"Float\" "+
			"Precision=\"8\" Format=\"Binary\" Endian=\"Little\">\n",
		len(field))
	fmt.Fprintf(w, "          %s\n", filepath.Base(binPath))
	fmt.Fprintf(w, "        </DataItem>\n      </Attribute>\n")

	fmt.Fprintf(w, "    </Grid>\n  </Domain>\n</Xdmf>\n")

	return w.Flush()
}

func writeFieldBin(path string, field []r3.Vec) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	buf := make([]float64, 0, 3*len(field))
	for _, v := range field {
		buf = append(buf, v.X, v.Y, v.Z)
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return err
	}
	return w.Flush()
}

// ReadFieldBin reads back the companion binary written by
// WriteCheckpoint. Mostly useful in tests.
func ReadFieldBin(path string, n int) ([]r3.Vec, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	buf := make([]float64, 3*n)
	if err := binary.Read(bufio.NewReader(in), binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	field := make([]r3.Vec, n)
	for i := range field {
		field[i] = r3.Vec{X: buf[3*i], Y: buf[3*i+1], Z: buf[3*i+2]}
	}
	return field, nil
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}
