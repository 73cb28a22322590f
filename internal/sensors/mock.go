// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"

	"github.com/relabs-tech/sign_glove/internal/clock"
	"github.com/relabs-tech/sign_glove/internal/frame"
)

// MockSource generates smoothly changing raw frames for running without
// hardware. Flex counts sweep between lo and hi; the accelerometer reports a
// slowly tilting 1 g vector at ±2g full scale.
type MockSource struct {
	clk    clock.Clock
	start  float64
	lo, hi int
}

// NewMockSource creates a mock frame source whose flex counts stay within
// [lo, hi].
func NewMockSource(clk clock.Clock, lo, hi int) *MockSource {
	if clk == nil {
		clk = clock.System()
	}
	return &MockSource{
		clk:   clk,
		start: seconds(clk),
		lo:    lo,
		hi:    hi,
	}
}

func seconds(clk clock.Clock) float64 {
	return float64(clk.Now().UnixNano()) / 1e9
}

func (m *MockSource) ReadRawFrame() (frame.RawFrame, error) {
	elapsed := seconds(m.clk) - m.start

	var raw frame.RawFrame
	mid := float64(m.lo+m.hi) / 2
	amp := float64(m.hi-m.lo) / 2
	for i := range raw.Flex {
		phase := float64(i) * 0.9
		raw.Flex[i] = int(math.Round(mid + amp*math.Sin(elapsed*0.8+phase)))
	}

	const g = 16384
	roll := 0.35 * math.Sin(elapsed)
	pitch := 0.25 * math.Cos(elapsed*0.7)
	raw.Ax = int16(-g * math.Sin(pitch))
	raw.Ay = int16(g * math.Cos(pitch) * math.Sin(roll))
	raw.Az = int16(g * math.Cos(pitch) * math.Cos(roll))

	// d/dt of the angles above, in ±250 deg/s ticks.
	const dps = 131 * 180 / math.Pi
	raw.Gx = int16(dps * 0.35 * math.Cos(elapsed))
	raw.Gy = int16(dps * -0.25 * 0.7 * math.Sin(elapsed*0.7))
	return raw, nil
}
