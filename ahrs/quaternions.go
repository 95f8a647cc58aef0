package ahrs

import (
	"math"

	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/mat"
)

// ToQuaternion calculates the rotation quaternion corresponding to the
// Tait-Bryan angles roll phi (about x), pitch theta (about y) and yaw
// psi (about z), composed in ZYX order.
func ToQuaternion(phi, theta, psi float64) quaternion.Quaternion {
	cphi := math.Cos(phi / 2)
	sphi := math.Sin(phi / 2)
	ctheta := math.Cos(theta / 2)
	stheta := math.Sin(theta / 2)
	cpsi := math.Cos(psi / 2)
	spsi := math.Sin(psi / 2)

	return quaternion.Quaternion{
		W: cphi*ctheta*cpsi + sphi*stheta*spsi,
		X: sphi*ctheta*cpsi - cphi*stheta*spsi,
		Y: cphi*stheta*cpsi + sphi*ctheta*spsi,
		Z: cphi*ctheta*spsi - sphi*stheta*cpsi,
	}
}

// FromQuaternion calculates the Tait-Bryan angles phi, theta, psi
// corresponding to the quaternion. The pitch argument of Asin is clamped
// so near-gimbal-lock quaternions stay finite.
func FromQuaternion(q quaternion.Quaternion) (phi, theta, psi float64) {
	phi = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	sinTheta := 2 * (q.W*q.Y - q.Z*q.X)
	if sinTheta > 1 {
		sinTheta = 1
	} else if sinTheta < -1 {
		sinTheta = -1
	}
	theta = math.Asin(sinTheta)
	psi = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return phi, theta, psi
}

// Unit returns q scaled to unit norm. A degenerate zero quaternion maps
// to the identity rotation.
func Unit(q quaternion.Quaternion) quaternion.Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n < 1e-15 {
		return quaternion.Quaternion{W: 1}
	}
	return quaternion.Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Dot returns the 4-component dot product of two quaternions.
func Dot(p, q quaternion.Quaternion) float64 {
	return p.W*q.W + p.X*q.X + p.Y*q.Y + p.Z*q.Z
}

// AngularDistance returns the rotation angle, in radians, taking attitude
// p to attitude q, ignoring double-cover sign.
func AngularDistance(p, q quaternion.Quaternion) float64 {
	d := math.Abs(Dot(Unit(p), Unit(q)))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Slerp spherically interpolates from p (t=0) to q (t=1), always along
// the shorter arc, and returns a unit quaternion. Nearly parallel inputs
// fall back to linear interpolation.
func Slerp(p, q quaternion.Quaternion, t float64) quaternion.Quaternion {
	p = Unit(p)
	q = Unit(q)
	d := Dot(p, q)
	if d < 0 {
		q = quaternion.Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
		d = -d
	}

	var wp, wq float64
	if d > 0.9995 {
		wp = 1 - t
		wq = t
	} else {
		theta := math.Acos(d)
		sinTheta := math.Sin(theta)
		wp = math.Sin((1-t)*theta) / sinTheta
		wq = math.Sin(t*theta) / sinTheta
	}

	return Unit(quaternion.Quaternion{
		W: wp*p.W + wq*q.W,
		X: wp*p.X + wq*q.X,
		Y: wp*p.Y + wq*q.Y,
		Z: wp*p.Z + wq*q.Z,
	})
}

// RotationMatrix returns the 3x3 body-to-reference rotation matrix of a
// unit quaternion.
func RotationMatrix(q quaternion.Quaternion) *mat.Dense {
	q = Unit(q)
	return mat.NewDense(3, 3, []float64{
		1 - 2*(q.Y*q.Y+q.Z*q.Z), 2 * (q.X*q.Y - q.W*q.Z), 2 * (q.X*q.Z + q.W*q.Y),
		2 * (q.X*q.Y + q.W*q.Z), 1 - 2*(q.X*q.X+q.Z*q.Z), 2 * (q.Y*q.Z - q.W*q.X),
		2 * (q.X*q.Z - q.W*q.Y), 2 * (q.Y*q.Z + q.W*q.X), 1 - 2*(q.X*q.X+q.Y*q.Y),
	})
}

// Rotate applies the rotation q to v, returning q*v*conj(q).
func Rotate(q quaternion.Quaternion, v Vector3) Vector3 {
	p := quaternion.Quaternion{X: v.X, Y: v.Y, Z: v.Z}
	r := quaternion.Prod(q, p, q.Conj())
	return Vector3{r.X, r.Y, r.Z}
}

// YawQuaternion returns a pure yaw rotation of psi radians about z.
func YawQuaternion(psi float64) quaternion.Quaternion {
	return quaternion.Quaternion{W: math.Cos(psi / 2), Z: math.Sin(psi / 2)}
}
