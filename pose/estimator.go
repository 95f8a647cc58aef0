package pose

import (
	"github.com/westphae/quaternion"

	"github.com/goinertial/goattitude/ahrs"
)

// Event carries one pose update: the current, previous and initial
// frames, the elapsed time since the initial frame in seconds, and the
// optional rigid transformation from the initial frame.
type Event struct {
	Current, Previous, Initial Frame
	T                          int64
	Elapsed                    float64

	Transform    Transform
	HasTransform bool
}

// EventFunc receives pose updates.
type EventFunc func(Event)

// TransformMode selects how the rigid transformation from the initial
// frame is expressed.
type TransformMode int

const (
	// TransformNone computes no transformation.
	TransformNone TransformMode = iota
	// TransformLeveled expresses rotation as the current attitude with
	// only the initial yaw offset cancelled, and translation in the
	// yaw-cancelled local frame.
	TransformLeveled
	// TransformRaw expresses rotation and translation relative to the
	// full initial orientation.
	TransformRaw
)

// LocalPoseEstimator turns the fused attitude stream plus raw
// accelerometer and gyroscope samples into incremental rigid pose
// transformations relative to the frame captured on the first fused
// attitude after Start.
type LocalPoseEstimator struct {
	kinematics Kinematics

	initialPosition ahrs.Vector3
	initialVelocity ahrs.Vector3
	mode            TransformMode

	running     bool
	initialized bool
	initial     Frame
	previous    Frame
	initialT    int64
	lastT       int64
	initialYaw  float64

	accel       ahrs.Vector3
	angularRate ahrs.Vector3

	OnPose EventFunc
}

// NewLocalPoseEstimator builds a pose estimator. The initial position
// comes from a caller-supplied reference location expressed in the local
// frame; kinematics may be nil to use the NED strapdown step.
func NewLocalPoseEstimator(initialPosition, initialVelocity ahrs.Vector3, mode TransformMode, kinematics Kinematics) *LocalPoseEstimator {
	if kinematics == nil {
		kinematics = NEDKinematics{}
	}
	return &LocalPoseEstimator{
		kinematics:      kinematics,
		initialPosition: initialPosition,
		initialVelocity: initialVelocity,
		mode:            mode,
	}
}

// Start resets the estimator so the next fused attitude captures a new
// initial frame.
func (p *LocalPoseEstimator) Start() error {
	if p.running {
		return ahrs.ErrAlreadyRunning
	}
	p.initialized = false
	p.accel = ahrs.Vector3{}
	p.angularRate = ahrs.Vector3{}
	p.running = true
	return nil
}

// Stop freezes the estimator.
func (p *LocalPoseEstimator) Stop() { p.running = false }

// OnAccelerometer records the latest specific-force triad.
func (p *LocalPoseEstimator) OnAccelerometer(s ahrs.TriadSample) {
	if !p.running {
		return
	}
	p.accel = s.Corrected()
}

// OnGyroscope records the latest angular-rate triad.
func (p *LocalPoseEstimator) OnGyroscope(s ahrs.TriadSample) {
	if !p.running {
		return
	}
	p.angularRate = s.Corrected()
}

// OnFusedAttitude advances the pose by one step. The first call after
// Start captures the initial frame; subsequent calls run the kinematics
// step from the previous frame, overwrite the orientation with the fused
// attitude and emit a pose event.
func (p *LocalPoseEstimator) OnFusedAttitude(q quaternion.Quaternion, t int64) {
	if !p.running {
		return
	}
	if !p.initialized {
		f := Frame{
			Position:    p.initialPosition,
			Velocity:    p.initialVelocity,
			Orientation: ahrs.Unit(q),
		}
		p.initial = f
		p.previous = f
		p.initialT = t
		p.lastT = t
		_, _, p.initialYaw = ahrs.FromQuaternion(f.Orientation)
		p.initialized = true
		return
	}

	dt := float64(t-p.lastT) * 1e-9
	current := p.kinematics.Step(p.previous, p.accel, p.angularRate, dt)
	current.Orientation = ahrs.Unit(q)
	p.lastT = t

	ev := Event{
		Current:  current,
		Previous: p.previous,
		Initial:  p.initial,
		T:        t,
		Elapsed:  float64(t-p.initialT) * 1e-9,
	}
	if p.mode != TransformNone {
		ev.Transform = p.transform(current)
		ev.HasTransform = true
	}

	p.previous = current
	if p.OnPose != nil {
		p.OnPose(ev)
	}
}

// transform computes the rigid transformation from the initial frame to
// the current one. The leveled mode cancels only the initial yaw offset,
// keeping the current roll and pitch intact; the raw mode relates the
// full orientations. Translation is the position delta rotated into the
// corresponding local frame.
func (p *LocalPoseEstimator) transform(current Frame) Transform {
	delta := current.Position.Minus(p.initial.Position)
	switch p.mode {
	case TransformLeveled:
		unyaw := ahrs.YawQuaternion(-p.initialYaw)
		return Transform{
			Rotation:    ahrs.Unit(quaternion.Prod(unyaw, current.Orientation)),
			Translation: ahrs.Rotate(unyaw, delta),
		}
	default:
		inv := p.initial.Orientation.Conj()
		return Transform{
			Rotation:    ahrs.Unit(quaternion.Prod(inv, current.Orientation)),
			Translation: ahrs.Rotate(inv, delta),
		}
	}
}
