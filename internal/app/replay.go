package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/sign_glove/internal/clock"
	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/mode"
	"github.com/relabs-tech/sign_glove/internal/model"
	"github.com/relabs-tech/sign_glove/internal/output"
	"github.com/relabs-tech/sign_glove/internal/rawlog"
)

// ReplayOptions configure an offline run over a raw-log capture.
type ReplayOptions struct {
	Prediction mode.Prediction
	Normalizer frame.Normalizer
	Debounce   time.Duration

	// PressAtStart holds the trigger down for the first few frames so a
	// sentence capture is recorded from its beginning.
	PressAtStart bool

	// FramePeriod is the spacing the capture lines were recorded at. When
	// positive the clock advances by it for every line; collect-mode
	// captures are written every COLLECT_PERIOD_MS. Zero advances by the
	// controller's tick delay, which matches captures armed with 'S' in
	// predict mode (one line per tick).
	FramePeriod time.Duration
}

// ReplayStats summarizes a replay.
type ReplayStats struct {
	Frames  int
	Skipped int
	Records int
}

// Replay feeds a raw-log capture through the controller, one line per tick,
// on a simulated clock that advances by each tick's delay or by
// opts.FramePeriod. Records are written to w as JSON lines.
func Replay(r io.Reader, w io.Writer, models model.Bundle, opts ReplayOptions) (ReplayStats, error) {
	clk := clock.NewManual(time.Unix(0, 0))
	src := &countingSource{src: rawlog.NewLineSource(r)}
	pub := &linePublisher{sink: output.NewLineSink(w)}

	mopts := mode.DefaultOptions()
	mopts.Prediction = opts.Prediction
	mopts.Debounce = opts.Debounce

	var trig mode.Trigger
	if opts.PressAtStart {
		// Long enough to survive debouncing across two idle ticks.
		step := mopts.GestureTick
		if opts.FramePeriod > 0 {
			step = opts.FramePeriod
		}
		hold := opts.Debounce + 2*step
		trig = &heldTrigger{clk: clk, until: clk.Now().Add(hold)}
	}

	ctrl, err := mode.New(mode.Deps{
		Source:     src,
		Normalizer: opts.Normalizer,
		Publisher:  pub,
		Models:     models,
		Trigger:    trig,
		Clock:      clk,
	}, mopts)
	if err != nil {
		return ReplayStats{}, err
	}

	for {
		d := ctrl.Tick()
		if src.err != nil {
			break
		}
		if opts.FramePeriod > 0 {
			d = opts.FramePeriod
		}
		clk.Advance(d)
	}

	stats := ReplayStats{
		Frames:  src.frames,
		Skipped: src.src.Skipped(),
		Records: pub.records,
	}
	if !errors.Is(src.err, io.EOF) {
		return stats, fmt.Errorf("replay: %w", src.err)
	}
	if pub.err != nil {
		return stats, fmt.Errorf("replay: write: %w", pub.err)
	}
	return stats, nil
}

// countingSource remembers the first error so the replay loop can stop at
// the end of the capture.
type countingSource struct {
	src    *rawlog.LineSource
	frames int
	err    error
}

func (s *countingSource) ReadRawFrame() (frame.RawFrame, error) {
	if s.err != nil {
		return frame.RawFrame{}, s.err
	}
	raw, err := s.src.ReadRawFrame()
	if err != nil {
		s.err = err
		return frame.RawFrame{}, err
	}
	s.frames++
	return raw, nil
}

// heldTrigger is pressed until the clock reaches until.
type heldTrigger struct {
	clk   clock.Clock
	until time.Time
}

func (t *heldTrigger) Asserted() bool {
	return t.clk.Now().Before(t.until)
}

// linePublisher writes records synchronously; offline there is no loop to
// protect from a slow writer.
type linePublisher struct {
	sink    *output.LineSink
	records int
	err     error
}

func (p *linePublisher) Publish(r output.Record) bool {
	line, err := output.Encode(r)
	if err != nil {
		log.Printf("replay: encode: %v", err)
		return false
	}
	if err := p.sink.WriteLine(line); err != nil {
		if p.err == nil {
			p.err = err
		}
		return false
	}
	p.records++
	return true
}
