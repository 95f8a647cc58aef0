package ahrs

import (
	"fmt"
	"math"
)

// StopMode selects when a windowed accumulation run is complete.
type StopMode int

const (
	// StopMaxSamplesOnly completes when the configured number of samples
	// has been processed.
	StopMaxSamplesOnly StopMode = iota
	// StopMaxDurationOnly completes when the elapsed time between the
	// first and last sample reaches the configured duration.
	StopMaxDurationOnly
	// StopMaxSamplesOrDuration completes on whichever bound is hit first.
	StopMaxSamplesOrDuration
)

// CompletionFunc is invoked exactly once when a windowed accumulation
// run completes.
type CompletionFunc func(*WindowedTriadAccumulator)

// UnreliableFunc is invoked the first time an accumulation run receives
// a sample with unreliable accuracy.
type UnreliableFunc func(*WindowedTriadAccumulator)

// WindowedTriadAccumulator accumulates a bounded window of triad samples
// and derives noise statistics from them: per-axis mean and variance,
// time-interval statistics and the noise power spectral density. It is
// used to characterize sensor noise while the device is static.
type WindowedTriadAccumulator struct {
	source Source

	maxSamples        int
	maxDurationMillis int64
	stopMode          StopMode

	OnCompletion CompletionFunc
	OnUnreliable UnreliableFunc

	running         bool
	resultAvailable bool
	unreliable      bool

	accX, accY, accZ    func(float64) (float64, float64, float64)
	meanX, meanY, meanZ float64
	varX, varY, varZ    float64
	count               int

	interval *IntervalEstimator
	firstT   int64
	lastT    int64
}

// NewWindowedTriadAccumulator builds an accumulator over the given sample
// source. maxSamples and maxDurationMillis must be positive regardless of
// stop mode.
func NewWindowedTriadAccumulator(source Source, maxSamples int, maxDurationMillis int64, stopMode StopMode) (*WindowedTriadAccumulator, error) {
	if maxSamples <= 0 {
		return nil, fmt.Errorf("ahrs: maxSamples must be positive, got %d", maxSamples)
	}
	if maxDurationMillis <= 0 {
		return nil, fmt.Errorf("ahrs: maxDurationMillis must be positive, got %d", maxDurationMillis)
	}
	switch stopMode {
	case StopMaxSamplesOnly, StopMaxDurationOnly, StopMaxSamplesOrDuration:
	default:
		return nil, fmt.Errorf("ahrs: unknown stop mode %d", stopMode)
	}
	return &WindowedTriadAccumulator{
		source:            source,
		maxSamples:        maxSamples,
		maxDurationMillis: maxDurationMillis,
		stopMode:          stopMode,
		interval:          NewIntervalEstimator(0),
	}, nil
}

// Start resets all statistics and begins accumulating from the source.
func (w *WindowedTriadAccumulator) Start() error {
	if w.running {
		return ErrAlreadyRunning
	}

	w.accX = NewVarianceAccumulator()
	w.accY = NewVarianceAccumulator()
	w.accZ = NewVarianceAccumulator()
	w.meanX, w.meanY, w.meanZ = 0, 0, 0
	w.varX, w.varY, w.varZ = 0, 0, 0
	w.count = 0
	w.firstT = 0
	w.lastT = 0
	w.resultAvailable = false
	w.unreliable = false

	// Interval capacity mirrors the sample bound; duration-only runs
	// cannot predict how many intervals they will see.
	if w.stopMode == StopMaxDurationOnly {
		w.interval.Reset(0)
	} else {
		w.interval.Reset(w.maxSamples)
	}

	if w.source != nil {
		if err := w.source.Start(); err != nil {
			return err
		}
	}
	w.running = true
	return nil
}

// Stop ends accumulation without completing the run. Stopping a stopped
// accumulator is a no-op.
func (w *WindowedTriadAccumulator) Stop() {
	if !w.running {
		return
	}
	w.running = false
	if w.source != nil {
		w.source.Stop()
	}
}

// OnMeasurement is the sample-delivery callback. Samples arriving after
// completion or stop are ignored; the source may deliver a few more
// before it physically stops.
func (w *WindowedTriadAccumulator) OnMeasurement(s TriadSample) {
	if !w.running || w.resultAvailable {
		return
	}

	if w.count == 0 {
		w.firstT = s.T
	} else {
		w.interval.Add(float64(s.T-w.lastT) * 1e-9)
	}

	_, w.meanX, w.varX = w.accX(s.X)
	_, w.meanY, w.varY = w.accY(s.Y)
	_, w.meanZ, w.varZ = w.accZ(s.Z)
	w.count++
	w.lastT = s.T

	if s.Accuracy == AccuracyUnreliable && !w.unreliable {
		w.unreliable = true
		if w.OnUnreliable != nil {
			w.OnUnreliable(w)
		}
	}

	if w.isComplete() {
		w.running = false
		w.resultAvailable = true
		if w.source != nil {
			w.source.Stop()
		}
		if w.OnCompletion != nil {
			w.OnCompletion(w)
		}
	}
}

// OnAccuracyChanged records accuracy degradation reported outside the
// sample stream. Unreliable readings set a sticky flag; accumulation
// continues.
func (w *WindowedTriadAccumulator) OnAccuracyChanged(a Accuracy) {
	if !w.running {
		return
	}
	if a == AccuracyUnreliable && !w.unreliable {
		w.unreliable = true
		if w.OnUnreliable != nil {
			w.OnUnreliable(w)
		}
	}
}

func (w *WindowedTriadAccumulator) isComplete() bool {
	bySamples := w.count >= w.maxSamples
	byDuration := w.count > 0 && (w.lastT-w.firstT) >= w.maxDurationMillis*int64(1e6)
	switch w.stopMode {
	case StopMaxSamplesOnly:
		return bySamples
	case StopMaxDurationOnly:
		return byDuration
	default:
		return bySamples || byDuration
	}
}

// Running reports whether a run is in progress.
func (w *WindowedTriadAccumulator) Running() bool { return w.running }

// ResultAvailable reports whether a run has completed and its statistics
// are final.
func (w *WindowedTriadAccumulator) ResultAvailable() bool { return w.resultAvailable }

// ResultUnreliable reports whether any sample of the current run carried
// unreliable accuracy.
func (w *WindowedTriadAccumulator) ResultUnreliable() bool { return w.unreliable }

// SampleCount returns the number of processed samples.
func (w *WindowedTriadAccumulator) SampleCount() int { return w.count }

// Mean returns the per-axis running mean.
func (w *WindowedTriadAccumulator) Mean() Vector3 {
	return Vector3{w.meanX, w.meanY, w.meanZ}
}

// MeanNorm returns the Euclidean norm of the per-axis mean.
func (w *WindowedTriadAccumulator) MeanNorm() float64 {
	return w.Mean().Norm()
}

// Variance returns the per-axis running sample variance.
func (w *WindowedTriadAccumulator) Variance() Vector3 {
	return Vector3{w.varX, w.varY, w.varZ}
}

// StandardDeviation returns the per-axis standard deviation.
func (w *WindowedTriadAccumulator) StandardDeviation() Vector3 {
	return Vector3{math.Sqrt(w.varX), math.Sqrt(w.varY), math.Sqrt(w.varZ)}
}

// AverageStandardDeviation returns the standard deviations averaged
// across the three axes.
func (w *WindowedTriadAccumulator) AverageStandardDeviation() float64 {
	sd := w.StandardDeviation()
	return (sd.X + sd.Y + sd.Z) / 3
}

// AverageTimeInterval returns the mean elapsed time between consecutive
// samples, seconds; zero until at least one interval has been observed.
func (w *WindowedTriadAccumulator) AverageTimeInterval() float64 {
	return w.interval.Average()
}

// TimeIntervalVariance returns the sample variance of the observed
// intervals.
func (w *WindowedTriadAccumulator) TimeIntervalVariance() float64 {
	return w.interval.Variance()
}

// PSD returns the per-axis noise power spectral density, approximated as
// variance times the average sampling interval. It is zero until at
// least one interval has been observed.
func (w *WindowedTriadAccumulator) PSD() Vector3 {
	dt := w.interval.Average()
	if w.interval.Count() == 0 {
		return Vector3{}
	}
	return Vector3{w.varX * dt, w.varY * dt, w.varZ * dt}
}

// RootPSD returns the square root of the per-axis PSD.
func (w *WindowedTriadAccumulator) RootPSD() Vector3 {
	psd := w.PSD()
	return Vector3{math.Sqrt(psd.X), math.Sqrt(psd.Y), math.Sqrt(psd.Z)}
}
