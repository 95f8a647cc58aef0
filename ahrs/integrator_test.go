package ahrs

import (
	"math"
	"testing"

	"github.com/westphae/quaternion"
)

func TestIntegrateZeroRateReturnsInput(t *testing.T) {
	q := ToQuaternion(0.3, 0.1, -0.8)
	for _, integ := range []Integrator{MeanRateIntegrator{}, RungeKuttaIntegrator{}} {
		for _, dt := range []float64{0, 1e-3, 0.02, 1, 100} {
			r := integ.Integrate(q, Vector3{}, Vector3{}, dt)
			if !small(AngularDistance(q, r)) {
				t.Errorf("%T dt=%g: rotated by %g with zero rate", integ, dt, AngularDistance(q, r))
			}
		}
	}
}

func TestIntegrateZeroDtReturnsInput(t *testing.T) {
	q := ToQuaternion(-0.2, 0.5, 1.4)
	w := Vector3{X: 1, Y: -2, Z: 0.5}
	for _, integ := range []Integrator{MeanRateIntegrator{}, RungeKuttaIntegrator{}} {
		if r := integ.Integrate(q, w, w, 0); r != q {
			t.Errorf("%T: dt=0 altered the quaternion", integ)
		}
	}
}

func TestIntegrateResultIsUnitNorm(t *testing.T) {
	q := quaternion.Quaternion{W: 0.9, X: 0.1, Y: -0.3, Z: 0.2} // deliberately not unit
	w := Vector3{X: 0.7, Y: 0.1, Z: -2}
	for _, integ := range []Integrator{MeanRateIntegrator{}, RungeKuttaIntegrator{}} {
		r := integ.Integrate(q, w, w, 0.013)
		if n := math.Sqrt(Dot(r, r)); !small(n - 1) {
			t.Errorf("%T: norm %g after integration", integ, n)
		}
	}
}

func TestIntegrateConstantYawRate(t *testing.T) {
	// 0.5 rad/s about z for 100 steps of 10 ms should yaw by 0.5 rad.
	w := Vector3{Z: 0.5}
	for _, integ := range []Integrator{MeanRateIntegrator{}, RungeKuttaIntegrator{}} {
		q := quaternion.Quaternion{W: 1}
		for i := 0; i < 100; i++ {
			q = integ.Integrate(q, w, w, 0.01)
		}
		_, _, psi := FromQuaternion(q)
		if math.Abs(psi-0.5) > 1e-6 {
			t.Errorf("%T: yaw %g after 1 s at 0.5 rad/s", integ, psi)
		}
	}
}

func TestIntegrateUsesMeanOfRates(t *testing.T) {
	// Rates 0 and 1 rad/s about z over 1 s must rotate by the mean, 0.5 rad.
	q := MeanRateIntegrator{}.Integrate(quaternion.Quaternion{W: 1}, Vector3{}, Vector3{Z: 1}, 1)
	_, _, psi := FromQuaternion(q)
	if math.Abs(psi-0.5) > 1e-9 {
		t.Errorf("yaw %g, want 0.5", psi)
	}
}
