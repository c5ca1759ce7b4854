package orientation

import (
	"sync"
	"testing"
	"time"

	"xrdisplay/internal/quirks"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTrackerIgnoresSamplesBeforeSensorInit(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	tr := newTracker(quirks.Quirks{SensorInitDelay: 10 * time.Second}, nil, c.now)

	tr.OnYaw(45)
	if snap := tr.Snapshot(); snap.Pose.Yaw != 0 || snap.Dropped != 1 {
		t.Fatalf("expected sample dropped before init, got %+v", snap)
	}

	c.advance(10 * time.Second)
	tr.OnYaw(45)
	tr.OnPitch(-5)
	snap := tr.Snapshot()
	if snap.Pose.Yaw != 45 || snap.Pose.Pitch != -5 || snap.Samples != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !snap.UpdatedAt.Equal(c.now()) {
		t.Fatalf("unexpected update time: %v", snap.UpdatedAt)
	}
}

func TestTrackerDropsRollWhenZVectorDisabled(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	tr := newTracker(quirks.Quirks{ZVectorDisabled: true}, nil, c.now)

	tr.OnRoll(12.5)
	if snap := tr.Snapshot(); snap.Pose.Roll != 0 || snap.Dropped != 1 {
		t.Fatalf("expected roll dropped, got %+v", snap)
	}

	tr = newTracker(quirks.Quirks{}, nil, c.now)
	tr.OnRoll(12.5)
	if snap := tr.Snapshot(); snap.Pose.Roll != 12.5 {
		t.Fatalf("expected roll kept, got %+v", snap)
	}
}

func TestTrackerRecordsTextAndBrightnessImmediately(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	tr := newTracker(quirks.Quirks{SensorInitDelay: time.Hour}, nil, c.now)

	tr.OnText("hi")
	tr.OnBrightnessUp(4)
	tr.OnBrightnessDown(2)
	snap := tr.Snapshot()
	if snap.Message != "hi" || snap.Brightness != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTrackerConcurrentUpdates(t *testing.T) {
	tr := NewTracker(quirks.Quirks{}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.OnYaw(float32(i))
				_ = tr.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	if got := tr.Snapshot().Samples; got != 800 {
		t.Fatalf("expected 800 samples, got %d", got)
	}
}
