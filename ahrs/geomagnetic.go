package ahrs

import "math"

// GeomagneticAttitudeEstimator derives an absolute attitude with heading
// by combining gravity-based leveling with a tilt-compensated
// magnetometer heading. The magnetic declination for the device location
// is supplied by the caller; this package does not evaluate geomagnetic
// field models.
type GeomagneticAttitudeEstimator struct {
	gravity GravitySource // optional; raw accelerometer leveling when nil

	running     bool
	declination float64

	roll, pitch float64
	hasLevel    bool

	mag    Vector3
	hasMag bool
	lastT  int64

	estimateEuler          bool
	estimateTransformation bool

	OnAttitude AttitudeFunc
}

// NewGeomagneticAttitudeEstimator builds a geomagnetic estimator. A nil
// gravity source levels from the raw accelerometer.
func NewGeomagneticAttitudeEstimator(gravity GravitySource) *GeomagneticAttitudeEstimator {
	return &GeomagneticAttitudeEstimator{gravity: gravity}
}

// SetDeclination sets the magnetic declination in radians, added to the
// magnetic heading to obtain true heading. It follows the device
// location and cannot change while running.
func (g *GeomagneticAttitudeEstimator) SetDeclination(rad float64) error {
	if g.running {
		return ErrRunning
	}
	g.declination = rad
	return nil
}

// SetEstimateEulerAngles controls whether emitted events carry roll,
// pitch and yaw.
func (g *GeomagneticAttitudeEstimator) SetEstimateEulerAngles(enabled bool) error {
	if g.running {
		return ErrRunning
	}
	g.estimateEuler = enabled
	return nil
}

// SetEstimateCoordinateTransformation controls whether emitted events
// carry the rotation matrix.
func (g *GeomagneticAttitudeEstimator) SetEstimateCoordinateTransformation(enabled bool) error {
	if g.running {
		return ErrRunning
	}
	g.estimateTransformation = enabled
	return nil
}

// Start resets the estimator state.
func (g *GeomagneticAttitudeEstimator) Start() error {
	if g.running {
		return ErrAlreadyRunning
	}
	g.hasLevel = false
	g.hasMag = false
	g.running = true
	return nil
}

// Stop freezes the estimator.
func (g *GeomagneticAttitudeEstimator) Stop() { g.running = false }

// OnAccelerometer is the accelerometer sample callback.
func (g *GeomagneticAttitudeEstimator) OnAccelerometer(s TriadSample) {
	if !g.running {
		return
	}
	f := s.Corrected()
	if g.gravity != nil {
		g.gravity.Update(s)
		f = g.gravity.Gravity()
	}
	g.roll, g.pitch = LevelRollPitch(f)
	g.hasLevel = true
	g.lastT = s.T
	g.emit()
}

// OnMagnetometer is the magnetometer sample callback.
func (g *GeomagneticAttitudeEstimator) OnMagnetometer(s TriadSample) {
	if !g.running {
		return
	}
	g.mag = s.Corrected()
	g.hasMag = true
	g.lastT = s.T
	g.emit()
}

// Heading returns the tilt-compensated heading, radians, for the current
// roll, pitch and magnetometer reading.
func (g *GeomagneticAttitudeEstimator) Heading() float64 {
	sr, cr := math.Sincos(g.roll)
	sp, cp := math.Sincos(g.pitch)
	mx := g.mag.X*cp + g.mag.Y*sp*sr + g.mag.Z*sp*cr
	my := g.mag.Y*cr - g.mag.Z*sr
	return math.Atan2(-my, mx) + g.declination
}

func (g *GeomagneticAttitudeEstimator) emit() {
	if !g.hasLevel || !g.hasMag || g.OnAttitude == nil {
		return
	}
	yaw := g.Heading()
	q := ToQuaternion(g.roll, g.pitch, yaw)
	ev := AttitudeEvent{Attitude: q, T: g.lastT}
	if g.estimateEuler {
		ev.Roll, ev.Pitch, ev.Yaw = g.roll, g.pitch, yaw
		ev.HasAngles = true
	}
	if g.estimateTransformation {
		ev.Transformation = RotationMatrix(q)
	}
	g.OnAttitude(ev)
}
