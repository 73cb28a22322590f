// Package window accumulates sensor frames for one sentence recording.
package window

import (
	"fmt"
	"time"

	"github.com/relabs-tech/sign_glove/internal/clock"
	"github.com/relabs-tech/sign_glove/internal/frame"
)

// Config describes the recording geometry.
type Config struct {
	Capacity int           // W, frames per window
	Interval time.Duration // minimum spacing between accepted samples
	Duration time.Duration // hard upper bound on a recording
}

// Validate rejects geometries that could never complete.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("window: capacity must be positive, got %d", c.Capacity)
	}
	if c.Interval < 0 {
		return fmt.Errorf("window: negative sample interval %s", c.Interval)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("window: duration must be positive, got %s", c.Duration)
	}
	return nil
}

// Dim is the length of the flattened feature vector.
func (c Config) Dim() int {
	return c.Capacity * frame.FieldsPerFrame
}

// Buffer is a fixed-capacity recording window. Storage is allocated once by
// New; nothing grows afterwards. Buffer has a single owner and no locking.
type Buffer struct {
	cfg   Config
	clock clock.Clock

	frames []frame.SensorFrame
	n      int

	started    time.Time
	lastSample time.Time
	haveSample bool

	recording bool
	ready     bool
}

// New allocates a buffer for cfg.Capacity frames.
func New(cfg Config, clk clock.Clock) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Buffer{
		cfg:    cfg,
		clock:  clk,
		frames: make([]frame.SensorFrame, cfg.Capacity),
	}, nil
}

// Start begins a new recording. Stored slots are zeroed so that a window
// completed by the time bound leaves its unused tail at zero.
func (b *Buffer) Start() {
	clear(b.frames)
	b.n = 0
	b.started = b.clock.Now()
	b.haveSample = false
	b.recording = true
	b.ready = false
}

// AddSample appends f if a recording is active and the sample interval has
// elapsed since the last accepted sample. It returns true exactly once per
// recording, when the window completes by count or by elapsed time.
func (b *Buffer) AddSample(f frame.SensorFrame) bool {
	if !b.recording {
		return false
	}

	now := b.clock.Now()
	if b.haveSample && now.Sub(b.lastSample) < b.cfg.Interval {
		return false
	}

	b.frames[b.n] = f
	b.n++
	b.lastSample = now
	b.haveSample = true

	if b.n >= b.cfg.Capacity || now.Sub(b.started) >= b.cfg.Duration {
		b.recording = false
		b.ready = true
		return true
	}
	return false
}

// Expire completes an active recording whose duration bound has passed
// without a sample arriving to close it. It reports whether it did.
func (b *Buffer) Expire() bool {
	if !b.recording || b.clock.Now().Sub(b.started) < b.cfg.Duration {
		return false
	}
	b.recording = false
	b.ready = true
	return true
}

// Reset drops the recording state. Stored frames are left in place; they are
// never read before the next Start refills them.
func (b *Buffer) Reset() {
	b.n = 0
	b.recording = false
	b.ready = false
	b.haveSample = false
}

func (b *Buffer) Recording() bool { return b.recording }
func (b *Buffer) Ready() bool     { return b.ready }
func (b *Buffer) Len() int        { return b.n }
func (b *Buffer) Cap() int        { return b.cfg.Capacity }
func (b *Buffer) Config() Config  { return b.cfg }

// Progress is the elapsed fraction of the window duration, clamped to [0,1].
// It is 0 when no recording is active.
func (b *Buffer) Progress() float64 {
	if !b.recording {
		return 0
	}
	p := float64(b.clock.Now().Sub(b.started)) / float64(b.cfg.Duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Remaining is the time left before the duration bound, or 0 when idle.
func (b *Buffer) Remaining() time.Duration {
	if !b.recording {
		return 0
	}
	elapsed := b.clock.Now().Sub(b.started)
	if elapsed >= b.cfg.Duration {
		return 0
	}
	return b.cfg.Duration - elapsed
}

// Frame returns slot i.
func (b *Buffer) Frame(i int) frame.SensorFrame {
	return b.frames[i]
}

// Features writes the row-major flattening of all Capacity slots into dst,
// which must hold Config.Dim() values. It reports false, leaving dst
// untouched, unless the window is ready.
func (b *Buffer) Features(dst []float64) bool {
	if !b.ready || len(dst) < b.cfg.Dim() {
		return false
	}
	for i := range b.frames {
		b.frames[i].PutFields(dst[i*frame.FieldsPerFrame:])
	}
	return true
}
