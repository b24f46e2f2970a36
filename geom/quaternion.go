package geom

import "math"

// Quat is a unit quaternion representing a rotation.
type Quat struct {
	W, X, Y, Z float64
}

func (q Quat) dot(p Quat) float64 {
	return q.W*p.W + q.X*p.X + q.Y*p.Y + q.Z*p.Z
}

func (q Quat) neg() Quat {
	return Quat{-q.W, -q.X, -q.Y, -q.Z}
}

func (q Quat) normalized() Quat {
	n := math.Sqrt(q.dot(q))
	if n == 0 {
		return Quat{W: 1}
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// mul is the Hamilton product q * p.
func (q Quat) mul(p Quat) Quat {
	return Quat{
		W: q.W*p.W - q.X*p.X - q.Y*p.Y - q.Z*p.Z,
		X: q.W*p.X + q.X*p.W + q.Y*p.Z - q.Z*p.Y,
		Y: q.W*p.Y - q.X*p.Z + q.Y*p.W + q.Z*p.X,
		Z: q.W*p.Z + q.X*p.Y - q.Y*p.X + q.Z*p.W,
	}
}

// Slerp interpolates between two rotations along the shortest arc.
func Slerp(q, p Quat, t float64) Quat {
	d := q.dot(p)
	if d < 0 {
		p, d = p.neg(), -d
	}
	if d > 1-1e-12 {
		// Nearly parallel; the arc degenerates to a chord.
		return Quat{
			W: q.W + t*(p.W-q.W),
			X: q.X + t*(p.X-q.X),
			Y: q.Y + t*(p.Y-q.Y),
			Z: q.Z + t*(p.Z-q.Z),
		}.normalized()
	}
	theta := math.Acos(d)
	s := math.Sin(theta)
	a := math.Sin((1-t)*theta) / s
	b := math.Sin(t*theta) / s
	return Quat{
		W: a*q.W + b*p.W,
		X: a*q.X + b*p.X,
		Y: a*q.Y + b*p.Y,
		Z: a*q.Z + b*p.Z,
	}.normalized()
}

// quatSymmetries are the 180-degree rotations about the local axes
// (plus the identity). An axis system is physically unchanged when two
// of its axes flip sign, and these cover exactly those flips.
var quatSymmetries = [4]Quat{
	{W: 1}, {X: 1}, {Y: 1}, {Z: 1},
}

// Bislerp interpolates between two axis-system rotations, first
// mapping q onto the symmetry-equivalent representative closest to p
// so that equivalent triads do not produce spurious rotation.
func Bislerp(q, p Quat, t float64) Quat {
	best, bestDot := q, math.Inf(-1)
	for _, s := range quatSymmetries {
		c := q.mul(s)
		d := c.dot(p)
		if d < 0 {
			c, d = c.neg(), -d
		}
		if d > bestDot {
			best, bestDot = c, d
		}
	}
	return Slerp(best, p, t)
}
