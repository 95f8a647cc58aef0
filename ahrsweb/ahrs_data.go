package ahrsweb

const Port = 8000

// AttitudeData is one snapshot of the fusion pipeline, marshalled to
// JSON for websocket viewers.
type AttitudeData struct {
	// Fused attitude quaternion, body to local frame
	Q0, Q1, Q2, Q3 float64

	// Euler angles, radians
	Roll, Pitch, Yaw float64

	// Latest raw sensor triads
	A1, A2, A3 float64 // accelerometer, m/s^2
	B1, B2, B3 float64 // gyroscope, rad/s
	M1, M2, M3 float64 // magnetometer, µT

	// Timestamp of the fused attitude, monotonic nanoseconds
	T int64
}
