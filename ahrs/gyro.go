package ahrs

import (
	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/mat"
)

// AttitudeEvent carries one attitude update. Roll, pitch and yaw are
// populated only when HasAngles is set; Transformation only when the
// emitting estimator was configured to compute it.
type AttitudeEvent struct {
	Attitude quaternion.Quaternion
	T        int64

	Roll, Pitch, Yaw float64
	HasAngles        bool

	Transformation *mat.Dense
}

// AttitudeFunc receives attitude updates.
type AttitudeFunc func(AttitudeEvent)

// RelativeGyroscopeAttitudeEstimator integrates gyroscope samples into a
// continuously updated attitude relative to the orientation held when
// the first sample arrived. The first sample only warms the estimator
// up; integration uses the average observed sampling interval rather
// than the raw per-sample delta, which smooths timer jitter from the
// sample source.
type RelativeGyroscopeAttitudeEstimator struct {
	integrator Integrator
	interval   *IntervalEstimator

	running  bool
	hasPrev  bool
	q        quaternion.Quaternion
	prevW    Vector3
	lastT    int64
	initialT int64

	estimateEuler          bool
	estimateTransformation bool

	OnAttitude AttitudeFunc
}

// NewRelativeGyroscopeAttitudeEstimator returns an estimator using the
// averaged-rate quaternion integrator.
func NewRelativeGyroscopeAttitudeEstimator() *RelativeGyroscopeAttitudeEstimator {
	return &RelativeGyroscopeAttitudeEstimator{
		integrator: MeanRateIntegrator{},
		interval:   NewIntervalEstimator(0),
		q:          quaternion.Quaternion{W: 1},
	}
}

// NewAccurateRelativeGyroscopeAttitudeEstimator returns an estimator
// using the fourth-order Runge-Kutta quaternion integrator.
func NewAccurateRelativeGyroscopeAttitudeEstimator() *RelativeGyroscopeAttitudeEstimator {
	e := NewRelativeGyroscopeAttitudeEstimator()
	e.integrator = RungeKuttaIntegrator{}
	return e
}

// SetIntegrator substitutes the quaternion integrator. It cannot change
// while the estimator is running.
func (e *RelativeGyroscopeAttitudeEstimator) SetIntegrator(i Integrator) error {
	if e.running {
		return ErrRunning
	}
	e.integrator = i
	return nil
}

// SetEstimateEulerAngles controls whether emitted events carry roll,
// pitch and yaw derived from the relative attitude.
func (e *RelativeGyroscopeAttitudeEstimator) SetEstimateEulerAngles(enabled bool) error {
	if e.running {
		return ErrRunning
	}
	e.estimateEuler = enabled
	return nil
}

// SetEstimateCoordinateTransformation controls whether emitted events
// carry the rotation matrix of the relative attitude.
func (e *RelativeGyroscopeAttitudeEstimator) SetEstimateCoordinateTransformation(enabled bool) error {
	if e.running {
		return ErrRunning
	}
	e.estimateTransformation = enabled
	return nil
}

// Start resets the relative attitude to identity and begins integrating.
func (e *RelativeGyroscopeAttitudeEstimator) Start() error {
	if e.running {
		return ErrAlreadyRunning
	}
	e.q = quaternion.Quaternion{W: 1}
	e.interval.Reset(0)
	e.hasPrev = false
	e.prevW = Vector3{}
	e.lastT = 0
	e.initialT = 0
	e.running = true
	return nil
}

// Stop freezes the estimator. Samples delivered after Stop are dropped.
func (e *RelativeGyroscopeAttitudeEstimator) Stop() { e.running = false }

// Attitude returns the current relative attitude.
func (e *RelativeGyroscopeAttitudeEstimator) Attitude() quaternion.Quaternion { return e.q }

// AverageTimeInterval returns the mean observed gyroscope sampling
// interval in seconds, zero before the second sample.
func (e *RelativeGyroscopeAttitudeEstimator) AverageTimeInterval() float64 {
	return e.interval.Average()
}

// InitialTimestamp returns the timestamp of the first sample since
// Start, the origin of the relative attitude.
func (e *RelativeGyroscopeAttitudeEstimator) InitialTimestamp() int64 { return e.initialT }

// OnMeasurement is the gyroscope sample callback. Angular velocities are
// rad/s; a bias attached to the sample is subtracted before integration.
func (e *RelativeGyroscopeAttitudeEstimator) OnMeasurement(s TriadSample) {
	if !e.running {
		return
	}
	w := s.Corrected()

	if !e.hasPrev {
		e.initialT = s.T
		e.prevW = w
		e.lastT = s.T
		e.hasPrev = true
		return
	}

	e.interval.Add(float64(s.T-e.lastT) * 1e-9)
	if e.interval.Count() > 0 {
		e.q = e.integrator.Integrate(e.q, e.prevW, w, e.interval.Average())
	}
	e.prevW = w
	e.lastT = s.T

	if e.OnAttitude == nil {
		return
	}
	ev := AttitudeEvent{Attitude: e.q, T: s.T}
	if e.estimateEuler {
		ev.Roll, ev.Pitch, ev.Yaw = FromQuaternion(e.q)
		ev.HasAngles = true
	}
	if e.estimateTransformation {
		ev.Transformation = RotationMatrix(e.q)
	}
	e.OnAttitude(ev)
}
