// Package ahrs implements attitude estimation from inertial sensor triads:
// quaternion integration of gyroscope rates, gravity-based leveling,
// windowed noise accumulation and a complementary filter blending the two.
package ahrs

import "math"

// Accuracy reports the quality of a sensor reading as delivered by the
// sensor source.
type Accuracy int

const (
	AccuracyUnreliable Accuracy = iota
	AccuracyLow
	AccuracyMedium
	AccuracyHigh
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyHigh:
		return "high"
	case AccuracyMedium:
		return "medium"
	case AccuracyLow:
		return "low"
	default:
		return "unreliable"
	}
}

// Vector3 is a plain 3-component vector in the body frame.
type Vector3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Minus returns v - w.
func (v Vector3) Minus(w Vector3) Vector3 {
	return Vector3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// TriadSample is a single 3-axis measurement as delivered by a sensor
// source. Bias is present only for sensors that report one; when HasBias
// is false the Bias components are zero and ignored.
type TriadSample struct {
	X, Y, Z float64

	Bias    Vector3
	HasBias bool

	// T is a monotonic timestamp in nanoseconds.
	T int64

	Accuracy Accuracy
}

// Corrected returns the measurement with its bias removed, or the raw
// values when no bias accompanies the sample.
func (s TriadSample) Corrected() Vector3 {
	if !s.HasBias {
		return Vector3{s.X, s.Y, s.Z}
	}
	return Vector3{s.X - s.Bias.X, s.Y - s.Bias.Y, s.Z - s.Bias.Z}
}

// MeasurementFunc receives one triad sample. Sources deliver samples
// serially; no handler is ever invoked concurrently with another for the
// same estimator.
type MeasurementFunc func(TriadSample)

// AccuracyFunc receives sensor accuracy changes.
type AccuracyFunc func(Accuracy)

// Source is a startable stream of triad samples for one sensor family.
// Sample acquisition itself lives outside this package; estimators only
// start and stop sources and receive their callbacks.
type Source interface {
	// Available reports whether the underlying sensor exists on this device.
	Available() bool
	// Start begins sample delivery. It fails if the sensor cannot be started.
	Start() error
	// Stop ends sample delivery. Stopping a stopped source is a no-op.
	Stop()
}
