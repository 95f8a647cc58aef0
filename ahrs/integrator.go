package ahrs

import (
	"math"

	"github.com/westphae/quaternion"
)

// Integrator advances an attitude quaternion across one time step given
// the angular velocity at both ends of the step, rad/s in the body frame.
// Implementations are pure functions of their inputs so a single instance
// can be shared between estimators.
type Integrator interface {
	Integrate(q quaternion.Quaternion, wPrev, wCurr Vector3, dt float64) quaternion.Quaternion
}

// MeanRateIntegrator composes the attitude with the rotation increment of
// the mean of the two angular velocity samples over dt. The result is
// renormalized to counter accumulated drift.
type MeanRateIntegrator struct{}

func (MeanRateIntegrator) Integrate(q quaternion.Quaternion, wPrev, wCurr Vector3, dt float64) quaternion.Quaternion {
	if dt == 0 {
		return q
	}
	w := Vector3{
		X: (wPrev.X + wCurr.X) / 2,
		Y: (wPrev.Y + wCurr.Y) / 2,
		Z: (wPrev.Z + wCurr.Z) / 2,
	}
	return Unit(quaternion.Prod(q, rotationIncrement(w, dt)))
}

// rotationIncrement returns the unit quaternion rotating by |w|*dt about
// the axis of w. Zero angular velocity yields the identity increment.
func rotationIncrement(w Vector3, dt float64) quaternion.Quaternion {
	rate := w.Norm()
	if rate < 1e-15 {
		return quaternion.Quaternion{W: 1}
	}
	angle := rate * dt
	s := math.Sin(angle/2) / rate
	return quaternion.Quaternion{
		W: math.Cos(angle / 2),
		X: w.X * s,
		Y: w.Y * s,
		Z: w.Z * s,
	}
}

// RungeKuttaIntegrator integrates the quaternion kinematic equation
// qdot = q*(0,w)/2 with a classical fourth-order Runge-Kutta step,
// interpolating the angular velocity linearly between the two samples.
// More accurate than MeanRateIntegrator for fast rotations at the cost
// of three extra derivative evaluations.
type RungeKuttaIntegrator struct{}

func (RungeKuttaIntegrator) Integrate(q quaternion.Quaternion, wPrev, wCurr Vector3, dt float64) quaternion.Quaternion {
	if dt == 0 {
		return q
	}
	wMid := Vector3{
		X: (wPrev.X + wCurr.X) / 2,
		Y: (wPrev.Y + wCurr.Y) / 2,
		Z: (wPrev.Z + wCurr.Z) / 2,
	}

	k1 := qdot(q, wPrev)
	k2 := qdot(addScaled(q, k1, dt/2), wMid)
	k3 := qdot(addScaled(q, k2, dt/2), wMid)
	k4 := qdot(addScaled(q, k3, dt), wCurr)

	return Unit(quaternion.Quaternion{
		W: q.W + dt/6*(k1.W+2*k2.W+2*k3.W+k4.W),
		X: q.X + dt/6*(k1.X+2*k2.X+2*k3.X+k4.X),
		Y: q.Y + dt/6*(k1.Y+2*k2.Y+2*k3.Y+k4.Y),
		Z: q.Z + dt/6*(k1.Z+2*k2.Z+2*k3.Z+k4.Z),
	})
}

func qdot(q quaternion.Quaternion, w Vector3) quaternion.Quaternion {
	p := quaternion.Prod(q, quaternion.Quaternion{X: w.X, Y: w.Y, Z: w.Z})
	return quaternion.Quaternion{W: p.W / 2, X: p.X / 2, Y: p.Y / 2, Z: p.Z / 2}
}

func addScaled(q, d quaternion.Quaternion, s float64) quaternion.Quaternion {
	return quaternion.Quaternion{
		W: q.W + d.W*s,
		X: q.X + d.X*s,
		Y: q.Y + d.Y*s,
		Z: q.Z + d.Z*s,
	}
}
