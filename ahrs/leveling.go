package ahrs

import (
	"math"

	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/mat"
)

// LevelingFunc receives a leveled attitude: the quaternion with yaw fixed
// at zero, the roll and pitch angles in radians, and, when requested, the
// body-to-local rotation matrix.
type LevelingFunc func(est *LevelingEstimator, q quaternion.Quaternion, roll, pitch float64, c *mat.Dense)

// LevelRollPitch derives roll and pitch from a specific-force vector in
// the body frame. Yaw is unobservable from gravity alone. Both angles are
// computed via atan2 so the result is continuous through the horizon.
func LevelRollPitch(f Vector3) (roll, pitch float64) {
	roll = math.Atan2(f.Y, f.Z)
	pitch = math.Atan2(-f.X, math.Hypot(f.Y, f.Z))
	return roll, pitch
}

// LevelingEstimator derives roll and pitch from accelerometer specific
// force. The input samples are expected to be bias-corrected by the
// caller; any bias attached to the sample is removed before leveling.
type LevelingEstimator struct {
	running bool

	offset                 quaternion.Quaternion
	hasOffset              bool
	estimateTransformation bool

	OnLeveling LevelingFunc
}

// NewLevelingEstimator returns a leveling estimator with no display
// offset and no transformation output.
func NewLevelingEstimator() *LevelingEstimator {
	return &LevelingEstimator{}
}

// SetDisplayOffset composes a fixed rotation, typically the display
// orientation, into every emitted attitude. It cannot change while the
// estimator is running.
func (l *LevelingEstimator) SetDisplayOffset(q quaternion.Quaternion) error {
	if l.running {
		return ErrRunning
	}
	l.offset = Unit(q)
	l.hasOffset = true
	return nil
}

// SetEstimateCoordinateTransformation controls whether the listener also
// receives the rotation matrix of each leveled attitude.
func (l *LevelingEstimator) SetEstimateCoordinateTransformation(enabled bool) error {
	if l.running {
		return ErrRunning
	}
	l.estimateTransformation = enabled
	return nil
}

// Start begins processing accelerometer samples.
func (l *LevelingEstimator) Start() error {
	if l.running {
		return ErrAlreadyRunning
	}
	l.running = true
	return nil
}

// Stop ends processing. Samples delivered after Stop are dropped.
func (l *LevelingEstimator) Stop() { l.running = false }

// OnMeasurement is the accelerometer sample callback.
func (l *LevelingEstimator) OnMeasurement(s TriadSample) {
	if !l.running {
		return
	}
	l.emit(s.Corrected())
}

func (l *LevelingEstimator) emit(f Vector3) {
	roll, pitch := LevelRollPitch(f)
	q := ToQuaternion(roll, pitch, 0)
	if l.hasOffset {
		q = Unit(quaternion.Prod(q, l.offset))
		roll, pitch, _ = FromQuaternion(q)
	}
	if l.OnLeveling == nil {
		return
	}
	var c *mat.Dense
	if l.estimateTransformation {
		c = RotationMatrix(q)
	}
	l.OnLeveling(l, q, roll, pitch, c)
}

// GravitySource supplies a filtered estimate of the gravity vector in
// the body frame, robust to linear acceleration. The gravity package
// provides a Kalman implementation.
type GravitySource interface {
	Update(s TriadSample)
	Gravity() Vector3
}

// AccurateLevelingEstimator levels from a filtered gravity estimate
// instead of the raw accelerometer, so transient linear acceleration
// does not tilt the result. It otherwise follows the same formulas as
// LevelingEstimator.
type AccurateLevelingEstimator struct {
	LevelingEstimator

	gravity GravitySource
}

// NewAccurateLevelingEstimator builds an accurate leveling estimator
// around the given gravity source.
func NewAccurateLevelingEstimator(gravity GravitySource) *AccurateLevelingEstimator {
	return &AccurateLevelingEstimator{gravity: gravity}
}

// OnMeasurement feeds the gravity filter and levels from its estimate.
func (l *AccurateLevelingEstimator) OnMeasurement(s TriadSample) {
	if !l.running {
		return
	}
	l.gravity.Update(s)
	l.emit(l.gravity.Gravity())
}
