package ahrs

import (
	"fmt"

	"github.com/westphae/quaternion"
)

// FusedConfig parameterizes the complementary filter. All values are
// validated at construction.
type FusedConfig struct {
	// UseIndirectInterpolation derives the blending factor from the
	// average gyroscope sampling interval instead of a fixed value.
	UseIndirectInterpolation bool

	// InterpolationValue is the fixed blending factor for direct mode,
	// in (0,1]. Larger values trust the absolute reference more.
	InterpolationValue float64

	// IndirectInterpolationWeight scales the average gyroscope interval
	// into a blending factor in indirect mode. Must be positive.
	IndirectInterpolationWeight float64

	// OutlierThreshold is the angular distance, radians, up to which an
	// absolute reference is blended normally. In [0,1].
	OutlierThreshold float64

	// OutlierPanicThreshold is the angular distance beyond which a
	// reference counts toward panic recovery. In [0,1] and at least
	// OutlierThreshold.
	OutlierPanicThreshold float64

	// PanicCounterThreshold is the number of consecutive outliers after
	// which the filter hard-resets to the reference. At least 1.
	PanicCounterThreshold int
}

// DefaultFusedConfig returns the filter parameters used when nothing
// device-specific is known.
func DefaultFusedConfig() FusedConfig {
	return FusedConfig{
		InterpolationValue:          0.005,
		IndirectInterpolationWeight: 0.01,
		OutlierThreshold:            0.002,
		OutlierPanicThreshold:       0.005,
		PanicCounterThreshold:       60,
	}
}

// Validate reports the first configuration value outside its domain.
func (c FusedConfig) Validate() error {
	if c.InterpolationValue <= 0 || c.InterpolationValue > 1 {
		return fmt.Errorf("ahrs: interpolation value must be in (0,1], got %g", c.InterpolationValue)
	}
	if c.IndirectInterpolationWeight <= 0 {
		return fmt.Errorf("ahrs: indirect interpolation weight must be positive, got %g", c.IndirectInterpolationWeight)
	}
	if c.OutlierThreshold < 0 || c.OutlierThreshold > 1 {
		return fmt.Errorf("ahrs: outlier threshold must be in [0,1], got %g", c.OutlierThreshold)
	}
	if c.OutlierPanicThreshold < 0 || c.OutlierPanicThreshold > 1 {
		return fmt.Errorf("ahrs: outlier panic threshold must be in [0,1], got %g", c.OutlierPanicThreshold)
	}
	if c.OutlierPanicThreshold < c.OutlierThreshold {
		return fmt.Errorf("ahrs: outlier panic threshold %g below outlier threshold %g",
			c.OutlierPanicThreshold, c.OutlierThreshold)
	}
	if c.PanicCounterThreshold < 1 {
		return fmt.Errorf("ahrs: panic counter threshold must be at least 1, got %d", c.PanicCounterThreshold)
	}
	return nil
}

// IntervalSource reports the current average gyroscope sampling interval
// in seconds, zero when unknown. RelativeGyroscopeAttitudeEstimator's
// AverageTimeInterval satisfies it.
type IntervalSource func() float64

// FusedAttitudeEstimator blends a drift-free but noisy absolute
// reference attitude (leveling, or leveling plus geomagnetic heading)
// with the smooth but drifting gyroscope-integrated attitude.
//
// Between references the fused attitude is propagated by the gyroscope's
// relative rotation increments. Each incoming reference is compared
// against the fused attitude: nearby references are blended by slerp,
// moderate disagreements are skipped as statistical outliers, and
// sustained large disagreement forces a hard reset to the reference.
type FusedAttitudeEstimator struct {
	cfg      FusedConfig
	interval IntervalSource

	running      bool
	fused        quaternion.Quaternion
	hasFused     bool
	prevRel      quaternion.Quaternion
	hasPrevRel   bool
	panicCounter int

	estimateEuler          bool
	estimateTransformation bool

	OnAttitude AttitudeFunc
}

// NewFusedAttitudeEstimator validates cfg and builds a filter. interval
// may be nil when direct interpolation is used.
func NewFusedAttitudeEstimator(cfg FusedConfig, interval IntervalSource) (*FusedAttitudeEstimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FusedAttitudeEstimator{cfg: cfg, interval: interval}, nil
}

// SetEstimateEulerAngles controls whether emitted events carry roll,
// pitch and yaw.
func (f *FusedAttitudeEstimator) SetEstimateEulerAngles(enabled bool) error {
	if f.running {
		return ErrRunning
	}
	f.estimateEuler = enabled
	return nil
}

// SetEstimateCoordinateTransformation controls whether emitted events
// carry the rotation matrix.
func (f *FusedAttitudeEstimator) SetEstimateCoordinateTransformation(enabled bool) error {
	if f.running {
		return ErrRunning
	}
	f.estimateTransformation = enabled
	return nil
}

// Start resets the fusion state.
func (f *FusedAttitudeEstimator) Start() error {
	if f.running {
		return ErrAlreadyRunning
	}
	f.fused = quaternion.Quaternion{W: 1}
	f.hasFused = false
	f.prevRel = quaternion.Quaternion{W: 1}
	f.hasPrevRel = false
	f.panicCounter = 0
	f.running = true
	return nil
}

// Stop freezes the filter.
func (f *FusedAttitudeEstimator) Stop() { f.running = false }

// Attitude returns the current fused attitude.
func (f *FusedAttitudeEstimator) Attitude() quaternion.Quaternion { return f.fused }

// PanicCounter returns the current consecutive-outlier count.
func (f *FusedAttitudeEstimator) PanicCounter() int { return f.panicCounter }

// OnRelativeAttitude propagates the fused attitude by the rotation
// increment between the previous and current gyroscope-integrated
// relative attitudes, advancing the estimate through time without
// waiting for an absolute reference.
func (f *FusedAttitudeEstimator) OnRelativeAttitude(rel quaternion.Quaternion, t int64) {
	if !f.running {
		return
	}
	if !f.hasPrevRel {
		f.prevRel = rel
		f.hasPrevRel = true
		return
	}
	dq := quaternion.Prod(f.prevRel.Conj(), rel)
	f.prevRel = rel
	if !f.hasFused {
		return
	}
	f.fused = Unit(quaternion.Prod(f.fused, dq))
	f.emit(t)
}

// OnAbsoluteAttitude feeds a new absolute reference attitude. The first
// reference seeds the fused attitude directly.
func (f *FusedAttitudeEstimator) OnAbsoluteAttitude(ref quaternion.Quaternion, t int64) {
	if !f.running {
		return
	}
	ref = Unit(ref)
	if !f.hasFused {
		f.fused = ref
		f.hasFused = true
		f.panicCounter = 0
		f.emit(t)
		return
	}

	d := AngularDistance(f.fused, ref)
	switch {
	case d <= f.cfg.OutlierThreshold:
		f.fused = Slerp(f.fused, ref, f.alpha())
		f.panicCounter = 0
	case d <= f.cfg.OutlierPanicThreshold:
		// Statistical outlier: keep the gyroscope-propagated estimate.
		f.panicCounter++
	default:
		f.panicCounter++
		if f.panicCounter >= f.cfg.PanicCounterThreshold {
			// Sustained disagreement means the gyroscope estimate has
			// diverged; snap back to the reference.
			f.fused = ref
			f.panicCounter = 0
		}
	}
	f.emit(t)
}

// alpha returns the blending factor. In indirect mode a longer average
// gyroscope interval means less confidence in the propagated estimate,
// so the reference is weighted more heavily; the factor is bounded to
// (0,1] and falls back to the direct value until an interval is known.
func (f *FusedAttitudeEstimator) alpha() float64 {
	if !f.cfg.UseIndirectInterpolation || f.interval == nil {
		return f.cfg.InterpolationValue
	}
	dt := f.interval()
	if dt <= 0 {
		return f.cfg.InterpolationValue
	}
	a := f.cfg.IndirectInterpolationWeight * dt
	if a > 1 {
		a = 1
	}
	return a
}

func (f *FusedAttitudeEstimator) emit(t int64) {
	if f.OnAttitude == nil {
		return
	}
	ev := AttitudeEvent{Attitude: f.fused, T: t}
	if f.estimateEuler {
		ev.Roll, ev.Pitch, ev.Yaw = FromQuaternion(f.fused)
		ev.HasAngles = true
	}
	if f.estimateTransformation {
		ev.Transformation = RotationMatrix(f.fused)
	}
	f.OnAttitude(ev)
}
