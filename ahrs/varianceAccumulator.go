package ahrs

// NewVarianceAccumulator returns a function that, when passed successive
// observations, accumulates a running mean and variance using Welford's
// numerically stable incremental update. Each call returns the current
// number of observations, the mean and the unbiased sample variance
// (zero until at least two observations have been seen).
func NewVarianceAccumulator() func(float64) (float64, float64, float64) {
	var (
		n  float64
		m  float64
		m2 float64
	)

	f := func(obs float64) (float64, float64, float64) {
		n++
		d := obs - m
		m += d / n
		m2 += d * (obs - m)
		if n < 2 {
			return n, m, 0
		}
		return n, m, m2 / (n - 1)
	}
	return f
}

// IntervalEstimator accumulates statistics over the elapsed time between
// consecutive samples, in seconds. A positive capacity bounds how many
// intervals are accepted; zero capacity means unbounded.
type IntervalEstimator struct {
	capacity int

	acc      func(float64) (float64, float64, float64)
	n        int
	mean     float64
	variance float64
}

// NewIntervalEstimator returns an estimator accepting up to capacity
// intervals, or unbounded when capacity is zero.
func NewIntervalEstimator(capacity int) *IntervalEstimator {
	e := &IntervalEstimator{}
	e.Reset(capacity)
	return e
}

// Reset discards all accumulated intervals and sets a new capacity.
func (e *IntervalEstimator) Reset(capacity int) {
	e.capacity = capacity
	e.acc = NewVarianceAccumulator()
	e.n = 0
	e.mean = 0
	e.variance = 0
}

// Add feeds one interval. It reports false, without accumulating, once
// the capacity has been reached.
func (e *IntervalEstimator) Add(interval float64) bool {
	if e.capacity > 0 && e.n >= e.capacity {
		return false
	}
	_, m, v := e.acc(interval)
	e.n++
	e.mean = m
	e.variance = v
	return true
}

// Count returns the number of accumulated intervals.
func (e *IntervalEstimator) Count() int { return e.n }

// Average returns the mean accumulated interval, seconds.
func (e *IntervalEstimator) Average() float64 { return e.mean }

// Variance returns the sample variance of the accumulated intervals.
func (e *IntervalEstimator) Variance() float64 { return e.variance }
