package gravity

import (
	"math"
	"testing"

	"github.com/goinertial/goattitude/ahrs"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Error("zero process noise accepted")
	}
	if _, err := New(1e-4, -1); err == nil {
		t.Error("negative measurement noise accepted")
	}
}

func TestFirstSampleSeedsState(t *testing.T) {
	e, err := New(DefaultProcessNoise, DefaultMeasurementNoise)
	if err != nil {
		t.Fatal(err)
	}
	e.Update(ahrs.TriadSample{X: 0.1, Y: -0.2, Z: 9.8, T: 0})
	g := e.Gravity()
	if g.X != 0.1 || g.Y != -0.2 || g.Z != 9.8 {
		t.Errorf("seed state %+v", g)
	}
}

func TestConvergesToConstantInput(t *testing.T) {
	e, err := New(DefaultProcessNoise, DefaultMeasurementNoise)
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 500; i++ {
		e.Update(ahrs.TriadSample{Z: 9.81, T: i * 10e6})
	}
	if math.Abs(e.Norm()-9.81) > 1e-6 {
		t.Errorf("norm %g after constant input, want 9.81", e.Norm())
	}
}

func TestSmoothsTransientAcceleration(t *testing.T) {
	e, err := New(DefaultProcessNoise, DefaultMeasurementNoise)
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 200; i++ {
		e.Update(ahrs.TriadSample{Z: 9.81, T: i * 10e6})
	}
	// One sample with a 5 m/s^2 spike must barely move the estimate.
	e.Update(ahrs.TriadSample{X: 5, Z: 9.81, T: 201 * 10e6})
	if g := e.Gravity(); math.Abs(g.X) > 0.5 {
		t.Errorf("gravity x jumped to %g on a transient", g.X)
	}
}

func TestResetForgetsState(t *testing.T) {
	e, err := New(DefaultProcessNoise, DefaultMeasurementNoise)
	if err != nil {
		t.Fatal(err)
	}
	e.Update(ahrs.TriadSample{Z: 9.81, T: 0})
	e.Reset()
	e.Update(ahrs.TriadSample{X: 1, T: 0})
	if g := e.Gravity(); g.X != 1 || g.Z != 0 {
		t.Errorf("state after reset %+v", g)
	}
}
