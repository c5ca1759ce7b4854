// Package orientation keeps the latest head pose and brightness reported by
// the glasses for the renderer to poll.
package orientation

import (
	"log/slog"
	"sync"
	"time"

	"xrdisplay/internal/logging"
	"xrdisplay/internal/quirks"
)

// Pose is a head orientation in degrees.
type Pose struct {
	Roll  float32
	Pitch float32
	Yaw   float32
}

// Snapshot is a consistent copy of tracker state.
type Snapshot struct {
	Pose       Pose
	Brightness uint8
	Message    string
	Samples    uint64
	Dropped    uint64
	UpdatedAt  time.Time
}

// Tracker implements mcu.Sink. It drops orientation samples that arrive
// before the sensor init delay and roll samples when the glasses report no
// usable z axis.
type Tracker struct {
	mu       sync.RWMutex
	state    Snapshot
	readyAt  time.Time
	dropRoll bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewTracker returns a tracker gated by q, starting the init delay now.
func NewTracker(q quirks.Quirks, logger *slog.Logger) *Tracker {
	return newTracker(q, logger, time.Now)
}

func newTracker(q quirks.Quirks, logger *slog.Logger, now func() time.Time) *Tracker {
	return &Tracker{
		readyAt:  now().Add(q.SensorInitDelay),
		dropRoll: q.ZVectorDisabled,
		now:      now,
		logger:   logging.NewComponentLogger(logger, "orientation"),
	}
}

// Ready reports whether the sensor init delay has elapsed.
func (t *Tracker) Ready() bool {
	return !t.now().Before(t.readyAt)
}

func (t *Tracker) accept() bool {
	if t.Ready() {
		return true
	}
	t.state.Dropped++
	return false
}

func (t *Tracker) OnRoll(v float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dropRoll {
		t.state.Dropped++
		return
	}
	if !t.accept() {
		return
	}
	t.state.Pose.Roll = v
	t.touch()
}

func (t *Tracker) OnPitch(v float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.accept() {
		return
	}
	t.state.Pose.Pitch = v
	t.touch()
}

func (t *Tracker) OnYaw(v float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.accept() {
		return
	}
	t.state.Pose.Yaw = v
	t.touch()
}

func (t *Tracker) OnText(text string) {
	t.mu.Lock()
	t.state.Message = text
	t.mu.Unlock()
	t.logger.Info("driver message", logging.String("message", text))
}

func (t *Tracker) OnBrightnessUp(level uint8) {
	t.setBrightness(level, "up")
}

func (t *Tracker) OnBrightnessDown(level uint8) {
	t.setBrightness(level, "down")
}

func (t *Tracker) setBrightness(level uint8, direction string) {
	t.mu.Lock()
	t.state.Brightness = level
	t.mu.Unlock()
	t.logger.Debug("brightness changed", logging.Int("level", int(level)), logging.String("direction", direction))
}

func (t *Tracker) touch() {
	t.state.Samples++
	t.state.UpdatedAt = t.now()
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
