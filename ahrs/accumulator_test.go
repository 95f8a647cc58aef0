package ahrs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSource counts starts and stops so completion semantics can be
// asserted.
type recordingSource struct {
	startErr error
	starts   int
	stops    int
}

func (r *recordingSource) Available() bool { return true }

func (r *recordingSource) Start() error {
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	return nil
}

func (r *recordingSource) Stop() { r.stops++ }

func sampleAt(x, y, z float64, tMillis int64) TriadSample {
	return TriadSample{X: x, Y: y, Z: z, T: tMillis * 1e6, Accuracy: AccuracyHigh}
}

func TestAccumulatorValidation(t *testing.T) {
	_, err := NewWindowedTriadAccumulator(nil, -1, 1000, StopMaxSamplesOnly)
	assert.Error(t, err)
	_, err = NewWindowedTriadAccumulator(nil, 0, 1000, StopMaxSamplesOnly)
	assert.Error(t, err)
	_, err = NewWindowedTriadAccumulator(nil, 100, 0, StopMaxDurationOnly)
	assert.Error(t, err)
	_, err = NewWindowedTriadAccumulator(nil, 100, -5, StopMaxDurationOnly)
	assert.Error(t, err)
	_, err = NewWindowedTriadAccumulator(nil, 100, 1000, StopMode(99))
	assert.Error(t, err)
}

func TestAccumulatorStartWhileRunning(t *testing.T) {
	w, err := NewWindowedTriadAccumulator(&recordingSource{}, 10, 1000, StopMaxSamplesOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	assert.ErrorIs(t, w.Start(), ErrAlreadyRunning)
}

func TestAccumulatorPropagatesSourceStartError(t *testing.T) {
	boom := errors.New("sensor busy")
	w, err := NewWindowedTriadAccumulator(&recordingSource{startErr: boom}, 10, 1000, StopMaxSamplesOnly)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Start(), boom)
	assert.False(t, w.Running())
}

func TestAccumulatorConstantTriad(t *testing.T) {
	src := &recordingSource{}
	w, err := NewWindowedTriadAccumulator(src, 50, 60000, StopMaxSamplesOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	for i := 0; i < 50; i++ {
		w.OnMeasurement(sampleAt(0.1, -9.8, 0.3, int64(i)*20))
	}

	require.True(t, w.ResultAvailable())
	mean := w.Mean()
	assert.InDelta(t, 0.1, mean.X, 1e-12)
	assert.InDelta(t, -9.8, mean.Y, 1e-12)
	assert.InDelta(t, 0.3, mean.Z, 1e-12)
	v := w.Variance()
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 0, v.Y, 1e-12)
	assert.InDelta(t, 0, v.Z, 1e-12)
	assert.InDelta(t, 0.02, w.AverageTimeInterval(), 1e-9)
}

func TestAccumulatorMaxSamplesCompletesOnNth(t *testing.T) {
	src := &recordingSource{}
	w, err := NewWindowedTriadAccumulator(src, 5, 60000, StopMaxSamplesOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	var completions int
	w.OnCompletion = func(got *WindowedTriadAccumulator) {
		completions++
		assert.Same(t, w, got)
	}

	// Wildly irregular timestamps must not matter in samples-only mode.
	times := []int64{0, 1, 500, 501, 99999}
	for i, ts := range times {
		w.OnMeasurement(sampleAt(1, 2, 3, ts))
		if i < len(times)-1 {
			assert.False(t, w.ResultAvailable(), "completed early at sample %d", i)
		}
	}

	assert.True(t, w.ResultAvailable())
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 5, w.SampleCount())

	// A straggler delivered before the source physically stops is dropped.
	w.OnMeasurement(sampleAt(100, 100, 100, 999999))
	assert.Equal(t, 5, w.SampleCount())
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, src.stops)
}

func TestAccumulatorMaxDurationBound(t *testing.T) {
	src := &recordingSource{}
	w, err := NewWindowedTriadAccumulator(src, 3, 100, StopMaxDurationOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	w.OnMeasurement(sampleAt(0, 0, 1, 0))
	w.OnMeasurement(sampleAt(0, 0, 1, 40))
	w.OnMeasurement(sampleAt(0, 0, 1, 80))
	w.OnMeasurement(sampleAt(0, 0, 1, 99))
	// Sample count exceeded maxSamples but duration mode ignores it.
	assert.False(t, w.ResultAvailable())

	w.OnMeasurement(sampleAt(0, 0, 1, 100))
	assert.True(t, w.ResultAvailable())
	assert.Equal(t, 5, w.SampleCount())
}

func TestAccumulatorSamplesOrDuration(t *testing.T) {
	w, err := NewWindowedTriadAccumulator(&recordingSource{}, 3, 1000, StopMaxSamplesOrDuration)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	w.OnMeasurement(sampleAt(0, 0, 1, 0))
	w.OnMeasurement(sampleAt(0, 0, 1, 10))
	assert.False(t, w.ResultAvailable())
	w.OnMeasurement(sampleAt(0, 0, 1, 20))
	assert.True(t, w.ResultAvailable(), "sample bound should complete before duration")
}

func TestAccumulatorUnreliableIsStickyNotFatal(t *testing.T) {
	w, err := NewWindowedTriadAccumulator(&recordingSource{}, 3, 1000, StopMaxSamplesOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	var unreliable int
	w.OnUnreliable = func(*WindowedTriadAccumulator) { unreliable++ }

	w.OnMeasurement(sampleAt(0, 0, 1, 0))
	bad := sampleAt(0, 0, 1, 10)
	bad.Accuracy = AccuracyUnreliable
	w.OnMeasurement(bad)
	assert.True(t, w.ResultUnreliable())
	assert.False(t, w.ResultAvailable(), "unreliable must not stop accumulation")

	bad.T = 20 * 1e6
	w.OnMeasurement(bad)
	assert.True(t, w.ResultAvailable())
	assert.Equal(t, 1, unreliable, "unreliable listener fires once")
}

func TestAccumulatorPSDWithoutIntervals(t *testing.T) {
	w, err := NewWindowedTriadAccumulator(&recordingSource{}, 1, 1000, StopMaxSamplesOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	w.OnMeasurement(sampleAt(3, 4, 0, 0))

	assert.True(t, w.ResultAvailable())
	assert.Equal(t, Vector3{}, w.PSD())
	assert.Equal(t, Vector3{}, w.RootPSD())
	assert.InDelta(t, 5, w.MeanNorm(), 1e-12)
}

func TestAccumulatorStopFreezesState(t *testing.T) {
	src := &recordingSource{}
	w, err := NewWindowedTriadAccumulator(src, 10, 1000, StopMaxSamplesOnly)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	w.OnMeasurement(sampleAt(1, 1, 1, 0))
	w.Stop()
	w.OnMeasurement(sampleAt(9, 9, 9, 10))
	assert.Equal(t, 1, w.SampleCount())
	assert.Equal(t, 1, src.stops)

	w.Stop() // idempotent
	assert.Equal(t, 1, src.stops)
}
