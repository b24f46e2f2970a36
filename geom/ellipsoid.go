/*package geom provides the small geometric types the generator is
built from: parametric ellipsoids, unit quaternions, and orthonormal
axis systems with the rotation and blending rules used for fiber
orientation.
*/
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Ellipsoid is an axis-aligned ellipsoid with semi-axes A, B, C along
// x, y, z. The long axis runs along x: phi = 0 is the apex at
// Center.X + A and phi = pi/2 is the equator in the x = Center.X
// plane.
type Ellipsoid struct {
	A, B, C float64
	Center  r3.Vec
}

// Point evaluates the surface at longitudinal angle phi (from the
// apex) and circumferential angle theta.
func (e *Ellipsoid) Point(phi, theta float64) r3.Vec {
	return r3.Vec{
		X: e.Center.X + e.A*math.Cos(phi),
		Y: e.Center.Y + e.B*math.Sin(phi)*math.Cos(theta),
		Z: e.Center.Z + e.C*math.Sin(phi)*math.Sin(theta),
	}
}

// Normal returns the outward unit normal at (phi, theta).
func (e *Ellipsoid) Normal(phi, theta float64) r3.Vec {
	// Gradient of the implicit surface function.
	n := r3.Vec{
		X: math.Cos(phi) / e.A,
		Y: math.Sin(phi) * math.Cos(theta) / e.B,
		Z: math.Sin(phi) * math.Sin(theta) / e.C,
	}
	return r3.Unit(n)
}

// Contains reports whether p lies inside or on the surface.
func (e *Ellipsoid) Contains(p r3.Vec) bool {
	dx := (p.X - e.Center.X) / e.A
	dy := (p.Y - e.Center.Y) / e.B
	dz := (p.Z - e.Center.Z) / e.C
	return dx*dx+dy*dy+dz*dz <= 1
}

// MeanRadius is the arithmetic mean of the semi-axes, used for
// resolution estimates.
func (e *Ellipsoid) MeanRadius() float64 {
	return (e.A + e.B + e.C) / 3
}
