// Package pose composes fused attitudes and accelerometer samples into
// incremental rigid-pose transformations relative to an initial frame.
package pose

import (
	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/mat"

	"github.com/goinertial/goattitude/ahrs"
)

// GravityNorm is standard gravity, m/s^2, used by the default kinematics
// to remove the gravity component from rotated specific force.
const GravityNorm = 9.80665

// Frame is a kinematic state in a local level (NED) reference: position
// and velocity in meters and m/s, orientation as the body-to-local
// quaternion. Frames are value types; estimators copy them across
// boundaries, never alias them.
type Frame struct {
	Position    ahrs.Vector3
	Velocity    ahrs.Vector3
	Orientation quaternion.Quaternion
}

// Transform is a rigid transformation between two frames.
type Transform struct {
	Rotation    quaternion.Quaternion
	Translation ahrs.Vector3
}

// RotationMatrix returns the 3x3 matrix of the transform rotation.
func (t Transform) RotationMatrix() *mat.Dense {
	return ahrs.RotationMatrix(t.Rotation)
}

// Kinematics advances a frame by one navigation step given the latest
// body-frame specific force and angular rate over dt seconds.
type Kinematics interface {
	Step(prev Frame, specificForce, angularRate ahrs.Vector3, dt float64) Frame
}

// NEDKinematics is the default strapdown step: rotate specific force
// into the local frame, remove gravity, and integrate velocity and
// position with the trapezoidal rule. Orientation advances by the
// averaged angular rate; the pose estimator overwrites it with the fused
// attitude afterwards, which keeps the step self-contained when used
// standalone.
type NEDKinematics struct{}

func (NEDKinematics) Step(prev Frame, specificForce, angularRate ahrs.Vector3, dt float64) Frame {
	if dt <= 0 {
		return prev
	}

	fLocal := ahrs.Rotate(prev.Orientation, specificForce)
	// Down is +z in NED; static specific force measures +g on z.
	accel := ahrs.Vector3{X: fLocal.X, Y: fLocal.Y, Z: fLocal.Z - GravityNorm}

	next := prev
	next.Velocity = ahrs.Vector3{
		X: prev.Velocity.X + accel.X*dt,
		Y: prev.Velocity.Y + accel.Y*dt,
		Z: prev.Velocity.Z + accel.Z*dt,
	}
	next.Position = ahrs.Vector3{
		X: prev.Position.X + (prev.Velocity.X+next.Velocity.X)/2*dt,
		Y: prev.Position.Y + (prev.Velocity.Y+next.Velocity.Y)/2*dt,
		Z: prev.Position.Z + (prev.Velocity.Z+next.Velocity.Z)/2*dt,
	}
	next.Orientation = ahrs.MeanRateIntegrator{}.Integrate(prev.Orientation, angularRate, angularRate, dt)
	return next
}
