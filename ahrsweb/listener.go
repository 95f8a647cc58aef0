package ahrsweb

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/goinertial/goattitude/ahrs"
)

// AttitudeForwarder accumulates the latest sensor readings and fused
// attitudes and forwards JSON snapshots to a room. Its On* methods are
// meant to be chained into the estimator callbacks.
type AttitudeForwarder struct {
	room *Room
	data AttitudeData
}

// NewAttitudeForwarder returns a forwarder publishing into room.
func NewAttitudeForwarder(room *Room) *AttitudeForwarder {
	return &AttitudeForwarder{room: room}
}

// OnAccelerometer records the latest accelerometer triad.
func (f *AttitudeForwarder) OnAccelerometer(s ahrs.TriadSample) {
	f.data.A1, f.data.A2, f.data.A3 = s.X, s.Y, s.Z
}

// OnGyroscope records the latest gyroscope triad.
func (f *AttitudeForwarder) OnGyroscope(s ahrs.TriadSample) {
	f.data.B1, f.data.B2, f.data.B3 = s.X, s.Y, s.Z
}

// OnMagnetometer records the latest magnetometer triad.
func (f *AttitudeForwarder) OnMagnetometer(s ahrs.TriadSample) {
	f.data.M1, f.data.M2, f.data.M3 = s.X, s.Y, s.Z
}

// OnAttitude publishes a snapshot for one fused attitude event.
func (f *AttitudeForwarder) OnAttitude(ev ahrs.AttitudeEvent) {
	q := ev.Attitude
	f.data.Q0, f.data.Q1, f.data.Q2, f.data.Q3 = q.W, q.X, q.Y, q.Z
	if ev.HasAngles {
		f.data.Roll, f.data.Pitch, f.data.Yaw = ev.Roll, ev.Pitch, ev.Yaw
	} else {
		f.data.Roll, f.data.Pitch, f.data.Yaw = ahrs.FromQuaternion(q)
	}
	f.data.T = ev.T

	msg, err := json.Marshal(f.data)
	if err != nil {
		log.WithError(err).Error("ahrsweb: marshalling attitude data")
		return
	}
	f.room.Forward(msg)
}
