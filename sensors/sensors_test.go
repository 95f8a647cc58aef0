package sensors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goinertial/goattitude/ahrs"
)

func TestScriptedSourceDelivery(t *testing.T) {
	s := NewScriptedSource(Accelerometer)
	var got []ahrs.TriadSample
	s.SetCallback(func(sample ahrs.TriadSample) { got = append(got, sample) })

	// Pushes before Start are dropped.
	s.Push(ahrs.TriadSample{X: 1})
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Push(ahrs.TriadSample{X: 2, T: 10})
	s.Push(ahrs.TriadSample{X: 3, T: 20})
	s.Stop()
	s.Push(ahrs.TriadSample{X: 4})

	if len(got) != 2 {
		t.Fatalf("delivered %d samples, want 2", len(got))
	}
	if got[0].X != 2 || got[1].X != 3 {
		t.Errorf("samples out of order: %+v", got)
	}
}

func TestScriptedSourceStartError(t *testing.T) {
	s := NewScriptedSource(Gyroscope)
	s.StartErr = errors.New("sensor unavailable")
	if err := s.Start(); err == nil {
		t.Fatal("expected start error")
	}
	if !s.Available() {
		t.Error("availability should not depend on start outcome")
	}
}

func TestSimSourceEmitsAtRate(t *testing.T) {
	src := NewSimSource(Accelerometer, 2*time.Millisecond, StaticAccelerometer(9.81, 0))

	var (
		mu sync.Mutex
		n  int
	)
	src.SetCallback(func(s ahrs.TriadSample) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	src.Stop()

	mu.Lock()
	count := n
	mu.Unlock()
	if count < 3 {
		t.Errorf("got %d samples in 30ms at 2ms period", count)
	}

	// Stop must quiesce the generator goroutine.
	mu.Lock()
	final := n
	mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	after := n
	mu.Unlock()
	if after != final {
		t.Error("samples delivered after Stop")
	}
}
