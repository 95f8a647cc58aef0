// Package gravity estimates the slowly varying gravity vector from
// accelerometer specific-force samples with a Kalman filter, so leveling
// can be made robust to transient linear acceleration.
package gravity

import (
	"fmt"
	"math"

	"github.com/skelterjohn/go.matrix"

	"github.com/goinertial/goattitude/ahrs"
)

const (
	// DefaultProcessNoise is the default gravity random-walk intensity,
	// (m/s^2)^2 per second.
	DefaultProcessNoise = 1e-4
	// DefaultMeasurementNoise is the default accelerometer measurement
	// variance, (m/s^2)^2. Linear acceleration shows up here.
	DefaultMeasurementNoise = 0.5
)

// Estimator is a three-state Kalman filter tracking the gravity vector
// in the body frame. The state evolves as a random walk; each
// accelerometer sample is a direct (identity) measurement of it.
type Estimator struct {
	q float64 // process noise intensity
	r float64 // measurement noise variance

	x *matrix.DenseMatrix // state: gravity vector, 3x1
	p *matrix.DenseMatrix // state covariance, 3x3

	initialized bool
	lastT       int64
}

// New builds a gravity estimator. Both noise parameters must be
// positive.
func New(processNoise, measurementNoise float64) (*Estimator, error) {
	if processNoise <= 0 {
		return nil, fmt.Errorf("gravity: process noise must be positive, got %g", processNoise)
	}
	if measurementNoise <= 0 {
		return nil, fmt.Errorf("gravity: measurement noise must be positive, got %g", measurementNoise)
	}
	return &Estimator{
		q: processNoise,
		r: measurementNoise,
		x: matrix.Zeros(3, 1),
		p: matrix.Scaled(matrix.Eye(3), measurementNoise),
	}, nil
}

// Reset discards the filter state so the next sample reinitializes it.
func (e *Estimator) Reset() {
	e.x = matrix.Zeros(3, 1)
	e.p = matrix.Scaled(matrix.Eye(3), e.r)
	e.initialized = false
	e.lastT = 0
}

// Update feeds one accelerometer sample. The first sample seeds the
// state directly.
func (e *Estimator) Update(s ahrs.TriadSample) {
	f := s.Corrected()
	if !e.initialized {
		e.x.Set(0, 0, f.X)
		e.x.Set(1, 0, f.Y)
		e.x.Set(2, 0, f.Z)
		e.initialized = true
		e.lastT = s.T
		return
	}

	dt := float64(s.T-e.lastT) * 1e-9
	if dt < 0 {
		dt = 0
	}
	e.lastT = s.T

	// Predict: random walk, so only the covariance evolves.
	e.p = matrix.Sum(e.p, matrix.Scaled(matrix.Eye(3), e.q*dt))

	// Update with the identity measurement model.
	y := matrix.Zeros(3, 1)
	y.Set(0, 0, f.X-e.x.Get(0, 0))
	y.Set(1, 0, f.Y-e.x.Get(1, 0))
	y.Set(2, 0, f.Z-e.x.Get(2, 0))

	ss := matrix.Sum(e.p, matrix.Scaled(matrix.Eye(3), e.r))
	ssInv, err := ss.Inverse()
	if err != nil {
		return
	}
	kk := matrix.Product(e.p, ssInv)
	e.x = matrix.Sum(e.x, matrix.Product(kk, y))
	e.p = matrix.Product(matrix.Difference(matrix.Eye(3), kk), e.p)
}

// Gravity returns the current gravity estimate in the body frame.
func (e *Estimator) Gravity() ahrs.Vector3 {
	return ahrs.Vector3{
		X: e.x.Get(0, 0),
		Y: e.x.Get(1, 0),
		Z: e.x.Get(2, 0),
	}
}

// Norm returns the magnitude of the current gravity estimate.
func (e *Estimator) Norm() float64 {
	g := e.Gravity()
	return math.Sqrt(g.X*g.X + g.Y*g.Y + g.Z*g.Z)
}
