package ahrs

import (
	"math"
	"testing"

	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/mat"
)

func TestLevelingPureVerticalGravity(t *testing.T) {
	roll, pitch := LevelRollPitch(Vector3{Z: 9.81})
	if !small(roll) || !small(pitch) {
		t.Errorf("level device gave roll %g pitch %g", roll, pitch)
	}
}

func TestLevelingKnownTilts(t *testing.T) {
	g := 9.81
	cases := []struct {
		name        string
		f           Vector3
		roll, pitch float64
	}{
		{"roll 45", Vector3{Y: g * math.Sin(math.Pi/4), Z: g * math.Cos(math.Pi/4)}, math.Pi / 4, 0},
		{"pitch 30", Vector3{X: -g * math.Sin(math.Pi/6), Z: g * math.Cos(math.Pi/6)}, 0, math.Pi / 6},
		{"roll -90", Vector3{Y: -g}, -math.Pi / 2, 0},
	}
	for _, c := range cases {
		roll, pitch := LevelRollPitch(c.f)
		if math.Abs(roll-c.roll) > 1e-9 || math.Abs(pitch-c.pitch) > 1e-9 {
			t.Errorf("%s: got roll %g pitch %g, want %g %g", c.name, roll, pitch, c.roll, c.pitch)
		}
	}
}

func TestLevelingEstimatorEmitsYawFreeAttitude(t *testing.T) {
	l := NewLevelingEstimator()
	var gotQ quaternion.Quaternion
	var gotRoll, gotPitch float64
	events := 0
	l.OnLeveling = func(_ *LevelingEstimator, q quaternion.Quaternion, roll, pitch float64, _ *mat.Dense) {
		gotQ, gotRoll, gotPitch = q, roll, pitch
		events++
	}
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}

	g := 9.81
	l.OnMeasurement(TriadSample{Y: g * math.Sin(0.2), Z: g * math.Cos(0.2), T: 1e6})
	if events != 1 {
		t.Fatalf("got %d events, want 1", events)
	}
	if math.Abs(gotRoll-0.2) > 1e-9 || !small(gotPitch) {
		t.Errorf("roll %g pitch %g, want 0.2 0", gotRoll, gotPitch)
	}
	_, _, psi := FromQuaternion(gotQ)
	if !small(psi) {
		t.Errorf("leveled attitude has yaw %g", psi)
	}
}

func TestLevelingDisplayOffsetComposed(t *testing.T) {
	l := NewLevelingEstimator()
	offset := ToQuaternion(0.1, 0, 0)
	if err := l.SetDisplayOffset(offset); err != nil {
		t.Fatal(err)
	}

	var gotRoll float64
	l.OnLeveling = func(_ *LevelingEstimator, _ quaternion.Quaternion, roll, _ float64, _ *mat.Dense) {
		gotRoll = roll
	}
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	if err := l.SetDisplayOffset(offset); err != ErrRunning {
		t.Errorf("SetDisplayOffset while running returned %v, want ErrRunning", err)
	}

	l.OnMeasurement(TriadSample{Z: 9.81, T: 1e6})
	if math.Abs(gotRoll-0.1) > 1e-9 {
		t.Errorf("roll %g with display offset, want 0.1", gotRoll)
	}
}

// fixedGravity returns a canned gravity vector regardless of input.
type fixedGravity struct {
	g Vector3
}

func (f *fixedGravity) Update(TriadSample) {}
func (f *fixedGravity) Gravity() Vector3   { return f.g }

func TestAccurateLevelingUsesGravitySource(t *testing.T) {
	g := 9.81
	src := &fixedGravity{g: Vector3{Y: g * math.Sin(0.3), Z: g * math.Cos(0.3)}}
	l := NewAccurateLevelingEstimator(src)

	var gotRoll, gotPitch float64
	l.OnLeveling = func(_ *LevelingEstimator, _ quaternion.Quaternion, roll, pitch float64, _ *mat.Dense) {
		gotRoll, gotPitch = roll, pitch
	}
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}

	// The raw sample shows heavy linear acceleration; the filtered
	// gravity must win.
	l.OnMeasurement(TriadSample{X: 5, Y: -3, Z: 20, T: 1e6})
	if math.Abs(gotRoll-0.3) > 1e-9 || !small(gotPitch) {
		t.Errorf("roll %g pitch %g, want 0.3 0", gotRoll, gotPitch)
	}
}
