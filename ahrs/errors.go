package ahrs

import "errors"

var (
	// ErrAlreadyRunning is returned when Start is called on an estimator
	// that is already running.
	ErrAlreadyRunning = errors.New("ahrs: estimator already running")

	// ErrRunning is returned when fixed configuration is changed while
	// the estimator is running.
	ErrRunning = errors.New("ahrs: configuration cannot change while running")

	// ErrNotReady is returned when Start is called before the required
	// sensors and location are available.
	ErrNotReady = errors.New("ahrs: estimator not ready")
)
