// Package sensors defines the sensor-source abstraction the estimators
// consume and provides simulated sources for tests and demos. Real
// hardware acquisition lives behind the same interfaces, outside this
// module.
package sensors

import (
	"github.com/goinertial/goattitude/ahrs"
)

// Type identifies a sensor family.
type Type int

const (
	Accelerometer Type = iota
	Gyroscope
	Magnetometer
)

func (t Type) String() string {
	switch t {
	case Accelerometer:
		return "accelerometer"
	case Gyroscope:
		return "gyroscope"
	default:
		return "magnetometer"
	}
}

// Delay is a sampling-rate hint passed through to the sensor source; the
// estimation core does not interpret it.
type Delay int

const (
	DelayFastest Delay = iota
	DelayGame
	DelayUI
	DelayNormal
)

// ScriptedSource is a sensor source driven entirely by the test or
// caller: samples are delivered with Push, synchronously, on the
// caller's goroutine. It implements ahrs.MeasurementSource.
type ScriptedSource struct {
	sensorType Type
	available  bool
	running    bool
	cb         ahrs.MeasurementFunc

	// StartErr, when set, makes Start fail; used to exercise rollback
	// paths.
	StartErr error
}

// NewScriptedSource returns an available scripted source of the given
// type.
func NewScriptedSource(t Type) *ScriptedSource {
	return &ScriptedSource{sensorType: t, available: true}
}

// SetAvailable marks the underlying sensor present or absent.
func (s *ScriptedSource) SetAvailable(available bool) { s.available = available }

func (s *ScriptedSource) Available() bool { return s.available }

func (s *ScriptedSource) SetCallback(cb ahrs.MeasurementFunc) { s.cb = cb }

func (s *ScriptedSource) Start() error {
	if s.StartErr != nil {
		return s.StartErr
	}
	s.running = true
	return nil
}

func (s *ScriptedSource) Stop() { s.running = false }

// Running reports whether the source has been started and not stopped.
func (s *ScriptedSource) Running() bool { return s.running }

// Push delivers one sample to the installed callback. Samples pushed
// while the source is stopped are dropped, as a stopped sensor delivers
// nothing.
func (s *ScriptedSource) Push(sample ahrs.TriadSample) {
	if !s.running || s.cb == nil {
		return
	}
	s.cb(sample)
}
