package mcu

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Simulate streams a slow synthetic head sweep to enc until ctx ends. It
// stands in for a vendor driver when no glasses are attached.
func Simulate(ctx context.Context, enc *Encoder, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	if err := enc.Text("simulated driver connected"); err != nil {
		return fmt.Errorf("send greeting: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			phase := now.Sub(start).Seconds()
			if err := enc.Yaw(float32(30 * math.Sin(phase/4))); err != nil {
				return fmt.Errorf("send yaw: %w", err)
			}
			if err := enc.Pitch(float32(10 * math.Sin(phase/3))); err != nil {
				return fmt.Errorf("send pitch: %w", err)
			}
			if err := enc.Roll(float32(5 * math.Sin(phase/5))); err != nil {
				return fmt.Errorf("send roll: %w", err)
			}
		}
	}
}
