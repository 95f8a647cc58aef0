package sensors

import (
	"math/rand"
	"sync"
	"time"

	"github.com/goinertial/goattitude/ahrs"
)

// GenerateFunc synthesizes the i-th sample of a simulated sensor at
// timestamp t nanoseconds.
type GenerateFunc func(i int, t int64) ahrs.TriadSample

// SimSource synthesizes samples from a generator on a fixed period and
// delivers them serially from a single goroutine, matching the
// one-callback-in-flight guarantee real sensor hosts provide.
type SimSource struct {
	sensorType Type
	period     time.Duration
	generate   GenerateFunc

	mu      sync.Mutex
	cb      ahrs.MeasurementFunc
	done    chan struct{}
	running bool

	deliver *sync.Mutex
}

// Serialize makes this source take the shared mutex around every
// callback invocation. Estimators require one callback in flight at a
// time; sources running on separate goroutines share one mutex to honor
// that.
func (s *SimSource) Serialize(mu *sync.Mutex) { s.deliver = mu }

// NewSimSource builds a simulated source emitting one sample per period.
func NewSimSource(t Type, period time.Duration, generate GenerateFunc) *SimSource {
	return &SimSource{sensorType: t, period: period, generate: generate}
}

func (s *SimSource) Available() bool { return true }

func (s *SimSource) SetCallback(cb ahrs.MeasurementFunc) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *SimSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ahrs.ErrAlreadyRunning
	}
	s.running = true
	s.done = make(chan struct{})
	go s.run(s.done)
	return nil
}

func (s *SimSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.done)
}

func (s *SimSource) run(done chan struct{}) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			sample := s.generate(i, now.UnixNano())
			i++
			s.mu.Lock()
			cb := s.cb
			running := s.running
			s.mu.Unlock()
			if running && cb != nil {
				if s.deliver != nil {
					s.deliver.Lock()
					cb(sample)
					s.deliver.Unlock()
				} else {
					cb(sample)
				}
			}
		}
	}
}

// StaticAccelerometer returns a generator for a device at rest with the
// given gravity magnitude on the body z axis and gaussian noise sigma on
// every axis.
func StaticAccelerometer(gravity, sigma float64) GenerateFunc {
	return func(_ int, t int64) ahrs.TriadSample {
		return ahrs.TriadSample{
			X:        sigma * rand.NormFloat64(),
			Y:        sigma * rand.NormFloat64(),
			Z:        gravity + sigma*rand.NormFloat64(),
			T:        t,
			Accuracy: ahrs.AccuracyHigh,
		}
	}
}

// ConstantRateGyroscope returns a generator for a steady rotation at
// rate rad/s about the body z axis with gaussian noise sigma.
func ConstantRateGyroscope(rate, sigma float64) GenerateFunc {
	return func(_ int, t int64) ahrs.TriadSample {
		return ahrs.TriadSample{
			X:        sigma * rand.NormFloat64(),
			Y:        sigma * rand.NormFloat64(),
			Z:        rate + sigma*rand.NormFloat64(),
			T:        t,
			Accuracy: ahrs.AccuracyHigh,
		}
	}
}

// UniformField returns a generator for a fixed magnetic field vector
// with gaussian noise sigma, for magnetometer simulation.
func UniformField(field ahrs.Vector3, sigma float64) GenerateFunc {
	return func(_ int, t int64) ahrs.TriadSample {
		return ahrs.TriadSample{
			X:        field.X + sigma*rand.NormFloat64(),
			Y:        field.Y + sigma*rand.NormFloat64(),
			Z:        field.Z + sigma*rand.NormFloat64(),
			T:        t,
			Accuracy: ahrs.AccuracyMedium,
		}
	}
}
