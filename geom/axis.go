package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AxisSystem is a right-handed orthonormal triad. In fiber terms E0 is
// the fiber (circumferential) direction, E1 the sheet (apicobasal)
// direction, and E2 the sheet normal (transmural).
type AxisSystem struct {
	E0, E1, E2 r3.Vec
}

// NewAxisSystem builds a triad from an apicobasal direction u and a
// transmural direction v by Gram-Schmidt: E1 is u normalized, E2 the
// component of v orthogonal to u, and E0 completes the right-handed
// system. Returns ok = false when u vanishes or u and v are parallel.
func NewAxisSystem(u, v r3.Vec) (AxisSystem, bool) {
	const eps = 1e-12

	if r3.Norm(u) < eps {
		return AxisSystem{}, false
	}
	e1 := r3.Unit(u)

	w := r3.Sub(v, r3.Scale(r3.Dot(v, e1), e1))
	if r3.Norm(w) < eps {
		return AxisSystem{}, false
	}
	e2 := r3.Unit(w)

	return AxisSystem{E0: r3.Cross(e1, e2), E1: e1, E2: e2}, true
}

// Orient applies the orientation rule: the fiber and sheet axes rotate
// by alpha about the sheet normal, then the sheet and normal rotate by
// beta about the new fiber axis. Both rotations preserve handedness.
func (a AxisSystem) Orient(alpha, beta float64) AxisSystem {
	ca, sa := math.Cos(alpha), math.Sin(alpha)
	f := r3.Add(r3.Scale(ca, a.E0), r3.Scale(sa, a.E1))
	s := r3.Add(r3.Scale(-sa, a.E0), r3.Scale(ca, a.E1))

	cb, sb := math.Cos(beta), math.Sin(beta)
	s2 := r3.Add(r3.Scale(cb, s), r3.Scale(sb, a.E2))
	n2 := r3.Sub(r3.Scale(cb, a.E2), r3.Scale(sb, s))

	return AxisSystem{E0: f, E1: s2, E2: n2}
}

// Quat converts the triad to the rotation mapping the standard basis
// onto it (Shepperd's method).
func (a AxisSystem) Quat() Quat {
	r00, r01, r02 := a.E0.X, a.E1.X, a.E2.X
	r10, r11, r12 := a.E0.Y, a.E1.Y, a.E2.Y
	r20, r21, r22 := a.E0.Z, a.E1.Z, a.E2.Z

	var q Quat
	switch tr := r00 + r11 + r22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = Quat{
			W: s / 4,
			X: (r21 - r12) / s,
			Y: (r02 - r20) / s,
			Z: (r10 - r01) / s,
		}
	case r00 > r11 && r00 > r22:
		s := 2 * math.Sqrt(1+r00-r11-r22)
		q = Quat{
			W: (r21 - r12) / s,
			X: s / 4,
			Y: (r01 + r10) / s,
			Z: (r02 + r20) / s,
		}
	case r11 > r22:
		s := 2 * math.Sqrt(1+r11-r00-r22)
		q = Quat{
			W: (r02 - r20) / s,
			X: (r01 + r10) / s,
			Y: s / 4,
			Z: (r12 + r21) / s,
		}
	default:
		s := 2 * math.Sqrt(1+r22-r00-r11)
		q = Quat{
			W: (r10 - r01) / s,
			X: (r02 + r20) / s,
			Y: (r12 + r21) / s,
			Z: s / 4,
		}
	}
	return q.normalized()
}

// AxisSystemFromQuat converts a rotation back to its triad.
func AxisSystemFromQuat(q Quat) AxisSystem {
	q = q.normalized()
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return AxisSystem{
		E0: r3.Vec{
			X: 1 - 2*(y*y+z*z),
			Y: 2 * (x*y + w*z),
			Z: 2 * (x*z - w*y),
		},
		E1: r3.Vec{
			X: 2 * (x*y - w*z),
			Y: 1 - 2*(x*x+z*z),
			Z: 2 * (y*z + w*x),
		},
		E2: r3.Vec{
			X: 2 * (x*z + w*y),
			Y: 2 * (y*z - w*x),
			Z: 1 - 2*(x*x+y*y),
		},
	}
}
