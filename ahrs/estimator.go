package ahrs

import (
	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/mat"
)

// Location is a geodetic position. Only its presence matters to the
// dispatcher; geodetic model evaluation happens outside this package.
type Location struct {
	Latitude  float64 // degrees
	Longitude float64 // degrees
	Height    float64 // meters above the ellipsoid
}

// Type identifies the estimation strategy resolved from the available
// sensors and location.
type Type int

const (
	TypeNone Type = iota
	// TypeLeveling fuses raw accelerometer leveling with gyroscope
	// integration. Requires accelerometer and gyroscope.
	TypeLeveling
	// TypeImprovedLeveling fuses gravity-filtered leveling with
	// gyroscope integration. Requires location, accelerometer and
	// gyroscope.
	TypeImprovedLeveling
	// TypeGeomagnetic fuses leveling with magnetometer heading.
	// Requires location, accelerometer and magnetometer.
	TypeGeomagnetic
)

func (t Type) String() string {
	switch t {
	case TypeLeveling:
		return "leveling"
	case TypeImprovedLeveling:
		return "improved-leveling"
	case TypeGeomagnetic:
		return "geomagnetic"
	default:
		return "none"
	}
}

// MeasurementSource is a Source whose sample callback the dispatcher
// installs when it starts the sensor.
type MeasurementSource interface {
	Source
	SetCallback(MeasurementFunc)
}

// AttitudeEstimator selects an estimation strategy from the sensors and
// location available, starts exactly the sensor subset that strategy
// needs and runs the corresponding fusion pipeline. Fused attitude
// updates are delivered through OnAttitude.
type AttitudeEstimator struct {
	accelerometer MeasurementSource
	gyroscope     MeasurementSource
	magnetometer  MeasurementSource
	gravity       GravitySource

	location    *Location
	declination float64

	fusedCfg FusedConfig

	leveling    *LevelingEstimator
	accurate    *AccurateLevelingEstimator
	gyro        *RelativeGyroscopeAttitudeEstimator
	geomagnetic *GeomagneticAttitudeEstimator
	fused       *FusedAttitudeEstimator

	running  bool
	resolved Type

	hasAccSample  bool
	hasGyroSample bool
	hasMagSample  bool
	lastAccT      int64

	OnAttitude AttitudeFunc
}

// NewAttitudeEstimator builds a dispatcher over the given sources. Any
// source and the gravity filter may be nil when that sensor does not
// exist on the device; the resolved type degrades accordingly.
func NewAttitudeEstimator(accel, gyro, mag MeasurementSource, gravity GravitySource, cfg FusedConfig) (*AttitudeEstimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AttitudeEstimator{
		accelerometer: accel,
		gyroscope:     gyro,
		magnetometer:  mag,
		gravity:       gravity,
		fusedCfg:      cfg,
	}, nil
}

// SetLocation sets or clears the device location. It cannot change while
// running.
func (d *AttitudeEstimator) SetLocation(loc *Location) error {
	if d.running {
		return ErrRunning
	}
	d.location = loc
	return nil
}

// SetDeclination sets the magnetic declination, radians, used by the
// geomagnetic strategy. It cannot change while running.
func (d *AttitudeEstimator) SetDeclination(rad float64) error {
	if d.running {
		return ErrRunning
	}
	d.declination = rad
	return nil
}

func available(s MeasurementSource) bool {
	return s != nil && s.Available()
}

// Resolve recomputes the strategy from current sensor availability and
// location.
func (d *AttitudeEstimator) Resolve() Type {
	switch {
	case d.location != nil && available(d.accelerometer) && available(d.magnetometer):
		d.resolved = TypeGeomagnetic
	case d.location != nil && available(d.accelerometer) && available(d.gyroscope):
		d.resolved = TypeImprovedLeveling
	case available(d.accelerometer) && available(d.gyroscope):
		d.resolved = TypeLeveling
	default:
		d.resolved = TypeNone
	}
	return d.resolved
}

// Type returns the last resolved strategy.
func (d *AttitudeEstimator) Type() Type { return d.resolved }

// IsReady reports whether some strategy can run.
func (d *AttitudeEstimator) IsReady() bool { return d.Resolve() != TypeNone }

// Running reports whether the dispatcher is running.
func (d *AttitudeEstimator) Running() bool { return d.running }

// Start resolves the strategy, builds the fusion pipeline and starts the
// required sensors. If any required sensor fails to start, sensors
// already started are stopped again and the error is returned.
func (d *AttitudeEstimator) Start() error {
	if d.running {
		return ErrAlreadyRunning
	}
	if d.Resolve() == TypeNone {
		return ErrNotReady
	}

	if err := d.buildPipeline(); err != nil {
		return err
	}

	var started []MeasurementSource
	for _, s := range d.requiredSources() {
		if err := s.Start(); err != nil {
			for _, prev := range started {
				prev.Stop()
			}
			d.teardownPipeline()
			return err
		}
		started = append(started, s)
	}

	d.running = true
	return nil
}

// Stop stops all sensors and resets the per-sensor sample flags. It is
// idempotent.
func (d *AttitudeEstimator) Stop() {
	for _, s := range []MeasurementSource{d.accelerometer, d.gyroscope, d.magnetometer} {
		if s != nil {
			s.Stop()
		}
	}
	d.teardownPipeline()
	d.hasAccSample = false
	d.hasGyroSample = false
	d.hasMagSample = false
	d.running = false
}

func (d *AttitudeEstimator) requiredSources() []MeasurementSource {
	switch d.resolved {
	case TypeGeomagnetic:
		return []MeasurementSource{d.accelerometer, d.magnetometer}
	default:
		return []MeasurementSource{d.accelerometer, d.gyroscope}
	}
}

func (d *AttitudeEstimator) buildPipeline() error {
	fused, err := NewFusedAttitudeEstimator(d.fusedCfg, d.gyroInterval)
	if err != nil {
		return err
	}
	d.fused = fused
	d.fused.OnAttitude = func(ev AttitudeEvent) {
		if d.OnAttitude != nil {
			d.OnAttitude(ev)
		}
	}
	if err := d.fused.Start(); err != nil {
		return err
	}

	switch d.resolved {
	case TypeGeomagnetic:
		d.geomagnetic = NewGeomagneticAttitudeEstimator(d.gravity)
		if err := d.geomagnetic.SetDeclination(d.declination); err != nil {
			return err
		}
		d.geomagnetic.OnAttitude = func(ev AttitudeEvent) {
			d.fused.OnAbsoluteAttitude(ev.Attitude, ev.T)
		}
		if err := d.geomagnetic.Start(); err != nil {
			return err
		}
		d.accelerometer.SetCallback(func(s TriadSample) {
			d.hasAccSample = true
			d.geomagnetic.OnAccelerometer(s)
		})
		d.magnetometer.SetCallback(func(s TriadSample) {
			d.hasMagSample = true
			d.geomagnetic.OnMagnetometer(s)
		})

	default:
		d.gyro = NewRelativeGyroscopeAttitudeEstimator()
		d.gyro.OnAttitude = func(ev AttitudeEvent) {
			d.fused.OnRelativeAttitude(ev.Attitude, ev.T)
		}
		if err := d.gyro.Start(); err != nil {
			return err
		}

		if d.resolved == TypeImprovedLeveling && d.gravity != nil {
			d.accurate = NewAccurateLevelingEstimator(d.gravity)
			d.accurate.OnLeveling = d.onLeveled
			if err := d.accurate.Start(); err != nil {
				return err
			}
			d.accelerometer.SetCallback(func(s TriadSample) {
				d.hasAccSample = true
				d.lastAccT = s.T
				d.accurate.OnMeasurement(s)
			})
		} else {
			d.leveling = NewLevelingEstimator()
			d.leveling.OnLeveling = d.onLeveled
			if err := d.leveling.Start(); err != nil {
				return err
			}
			d.accelerometer.SetCallback(func(s TriadSample) {
				d.hasAccSample = true
				d.lastAccT = s.T
				d.leveling.OnMeasurement(s)
			})
		}
		d.gyroscope.SetCallback(func(s TriadSample) {
			d.hasGyroSample = true
			d.gyro.OnMeasurement(s)
		})
	}
	return nil
}

func (d *AttitudeEstimator) teardownPipeline() {
	if d.fused != nil {
		d.fused.Stop()
	}
	if d.gyro != nil {
		d.gyro.Stop()
	}
	if d.leveling != nil {
		d.leveling.Stop()
	}
	if d.accurate != nil {
		d.accurate.Stop()
	}
	if d.geomagnetic != nil {
		d.geomagnetic.Stop()
	}
}

// onLeveled forwards leveled attitudes to the complementary filter as
// absolute references, stamped with the accelerometer sample time.
func (d *AttitudeEstimator) onLeveled(_ *LevelingEstimator, q quaternion.Quaternion, _, _ float64, _ *mat.Dense) {
	d.fused.OnAbsoluteAttitude(q, d.lastAccT)
}

func (d *AttitudeEstimator) gyroInterval() float64 {
	if d.gyro == nil {
		return 0
	}
	return d.gyro.AverageTimeInterval()
}
