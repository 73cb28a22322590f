package mode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/sign_glove/internal/clock"
	"github.com/relabs-tech/sign_glove/internal/control"
	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/knn"
	"github.com/relabs-tech/sign_glove/internal/model"
	"github.com/relabs-tech/sign_glove/internal/output"
	"github.com/relabs-tech/sign_glove/internal/window"
)

// Options tune the control loop.
type Options struct {
	Prediction   Prediction
	Debounce     time.Duration
	GestureTick  time.Duration // delay after a gesture or idle tick
	SentenceTick time.Duration // delay after a recording tick
}

// DefaultOptions matches the glove firmware timing.
func DefaultOptions() Options {
	return Options{
		Prediction:   PredictAuto,
		Debounce:     50 * time.Millisecond,
		GestureTick:  100 * time.Millisecond,
		SentenceTick: 10 * time.Millisecond,
	}
}

// Deps are the controller's collaborators. Source, Publisher and
// Models.Gesture are required; the rest fall back to inert defaults.
type Deps struct {
	Source     frame.Source
	Normalizer frame.Normalizer
	Publisher  Publisher
	Models     model.Bundle

	Trigger  Trigger
	Control  Control
	Feedback Feedback
	RawLog   RawLog
	Clock    clock.Clock
}

// Controller owns all recognition state. It is driven from a single
// goroutine and does no locking.
type Controller struct {
	deps Deps
	opts Options

	gestureEnabled  bool
	sentenceEnabled bool

	state        State
	idleState    State
	debounce     debouncer
	loggingArmed bool

	gesture      *knn.Classifier
	gestureQuery []float64

	sentence      *knn.Classifier
	sentenceQuery []float64
	window        *window.Buffer
	lastProgress  float64

	readErrors int
}

// New validates the collaborators and allocates every buffer the loop will
// use.
func New(deps Deps, opts Options) (*Controller, error) {
	if deps.Source == nil {
		return nil, errors.New("mode: frame source is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("mode: publisher is required")
	}
	if deps.Models.Gesture == nil {
		return nil, errors.New("mode: gesture model is required")
	}
	if opts.Debounce < 0 || opts.GestureTick <= 0 || opts.SentenceTick <= 0 {
		return nil, fmt.Errorf("mode: invalid timing debounce=%s gesture=%s sentence=%s",
			opts.Debounce, opts.GestureTick, opts.SentenceTick)
	}
	if deps.Trigger == nil {
		deps.Trigger = released{}
	}
	if deps.Control == nil {
		deps.Control = noControl{}
	}
	if deps.Feedback == nil {
		deps.Feedback = nopFeedback{}
	}
	if deps.RawLog == nil {
		deps.RawLog = nopRawLog{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}

	gm := deps.Models.Gesture
	if gm.Dim() != frame.FieldsPerFrame {
		return nil, fmt.Errorf("mode: gesture model %q has dimension %d, want %d", gm.Name, gm.Dim(), frame.FieldsPerFrame)
	}

	c := &Controller{
		deps:         deps,
		opts:         opts,
		debounce:     debouncer{window: opts.Debounce},
		gesture:      knn.NewClassifier(gm.Set),
		gestureQuery: make([]float64, frame.FieldsPerFrame),
	}

	wantSentence := opts.Prediction == PredictSentence || opts.Prediction == PredictAuto
	switch {
	case wantSentence && deps.Models.SentenceAvailable():
		sm := deps.Models.Sentence
		if sm.Window == nil || sm.Window.Dim() != sm.Dim() {
			return nil, fmt.Errorf("mode: sentence model %q window does not match its dimension %d", sm.Name, sm.Dim())
		}
		buf, err := window.New(*sm.Window, deps.Clock)
		if err != nil {
			return nil, fmt.Errorf("mode: %w", err)
		}
		c.window = buf
		c.sentence = knn.NewClassifier(sm.Set)
		c.sentenceQuery = make([]float64, sm.Dim())
		c.sentenceEnabled = true
		c.gestureEnabled = opts.Prediction == PredictAuto
	case wantSentence:
		log.Printf("mode: %s prediction requested but no sentence model is built in, running gesture only", opts.Prediction)
		c.gestureEnabled = true
	default:
		c.gestureEnabled = true
	}

	c.idleState = Idle
	if c.gestureEnabled {
		c.idleState = Gesture
	}
	c.state = c.idleState
	return c, nil
}

func (c *Controller) State() State          { return c.state }
func (c *Controller) LoggingArmed() bool    { return c.loggingArmed }
func (c *Controller) SentenceEnabled() bool { return c.sentenceEnabled }
func (c *Controller) GestureEnabled() bool  { return c.gestureEnabled }

// Prediction is the mode actually in effect after the capability check.
func (c *Controller) Prediction() Prediction {
	switch {
	case c.sentenceEnabled && c.gestureEnabled:
		return PredictAuto
	case c.sentenceEnabled:
		return PredictSentence
	}
	return PredictGesture
}

// Announce publishes the ready record and plays the power-on feedback.
func (c *Controller) Announce() {
	c.deps.Publisher.Publish(output.NewReady(c.Prediction().String(), c.deps.Models.SentenceAvailable()))
	c.deps.Feedback.Ready()
}

// Tick runs one iteration of the loop and returns the delay before the next.
func (c *Controller) Tick() time.Duration {
	c.drainControl()

	if c.sentenceEnabled {
		pressed := c.debounce.update(c.deps.Clock.Now(), c.deps.Trigger.Asserted())
		if pressed && c.state != SentenceRecording {
			c.startSentence()
		}
	}

	raw, err := c.deps.Source.ReadRawFrame()
	if err != nil {
		c.readFailed(err)
		if c.state == SentenceRecording {
			// The duration bound still holds without frames.
			c.advanceSentence(c.window.Expire())
			return c.opts.SentenceTick
		}
		return c.opts.GestureTick
	}
	if c.loggingArmed {
		if err := c.deps.RawLog.Write(raw); err != nil {
			log.Printf("mode: raw log write: %v", err)
		}
	}
	sf := c.deps.Normalizer.Normalize(raw)

	switch c.state {
	case SentenceRecording:
		c.recordSentence(sf)
		return c.opts.SentenceTick
	case Gesture:
		c.classifyGesture(sf)
	}
	return c.opts.GestureTick
}

// Run ticks until ctx is done. On return, armed logging is disarmed.
func (c *Controller) Run(ctx context.Context) error {
	c.Announce()

	timer := time.NewTimer(c.Tick())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if c.loggingArmed {
				if err := c.deps.RawLog.Disarm(); err != nil {
					log.Printf("mode: raw log disarm: %v", err)
				}
				c.loggingArmed = false
			}
			return ctx.Err()
		case <-timer.C:
			timer.Reset(c.Tick())
		}
	}
}

func (c *Controller) drainControl() {
	for {
		b, ok := c.deps.Control.Poll()
		if !ok {
			return
		}
		switch b {
		case control.ArmLogging:
			if err := c.deps.RawLog.Arm(); err != nil {
				log.Printf("mode: raw log arm: %v", err)
			}
			c.loggingArmed = true
			c.deps.Feedback.Logging(true)
		case control.DisarmLogging:
			if err := c.deps.RawLog.Disarm(); err != nil {
				log.Printf("mode: raw log disarm: %v", err)
			}
			c.loggingArmed = false
			c.deps.Feedback.Logging(false)
		}
	}
}

func (c *Controller) startSentence() {
	c.window.Start()
	c.lastProgress = 0
	c.state = SentenceRecording
	c.deps.Publisher.Publish(output.NewSentenceStart())
	c.deps.Feedback.SentenceStarted()
}

func (c *Controller) recordSentence(sf frame.SensorFrame) {
	c.advanceSentence(c.window.AddSample(sf))
}

// advanceSentence publishes progress and, once the window is complete,
// classifies it and returns to the idle state.
func (c *Controller) advanceSentence(complete bool) {
	progress := c.window.Progress()
	if complete {
		progress = 1
	}
	if progress < c.lastProgress {
		progress = c.lastProgress
	}
	c.lastProgress = progress
	c.deps.Publisher.Publish(output.NewProgress(progress))

	if !complete {
		return
	}

	sm := c.deps.Models.Sentence
	label := knn.Unknown
	var meanD float64
	if c.window.Features(c.sentenceQuery) {
		sm.Scaler.Apply(c.sentenceQuery)
		res, err := c.sentence.Classify(c.sentenceQuery)
		if err != nil {
			log.Printf("mode: sentence classify: %v", err)
		} else {
			label, meanD = thresholded(res, sm.MaxDistance)
		}
	}
	name := sm.LabelName(label)
	c.deps.Publisher.Publish(output.NewSentence(name, meanD))
	c.deps.Feedback.SentenceCompleted(name)

	c.window.Reset()
	c.state = c.idleState
}

func (c *Controller) classifyGesture(sf frame.SensorFrame) {
	gm := c.deps.Models.Gesture
	sf.PutFields(c.gestureQuery)
	gm.Scaler.Apply(c.gestureQuery)

	res, err := c.gesture.Classify(c.gestureQuery)
	if err != nil {
		log.Printf("mode: gesture classify: %v", err)
		return
	}
	label, meanD := thresholded(res, gm.MaxDistance)
	c.deps.Publisher.Publish(output.NewGesture(gm.LabelName(label), meanD, sf))
}

// thresholded reports Unknown when the neighbours are farther than limit
// on average. A non-positive limit disables the check.
func thresholded(res knn.Result, limit float64) (int, float64) {
	if limit > 0 && res.MeanDistance > limit {
		return knn.Unknown, res.MeanDistance
	}
	return res.Label, res.MeanDistance
}

func (c *Controller) readFailed(err error) {
	c.readErrors++
	if c.readErrors == 1 || c.readErrors%100 == 0 {
		log.Printf("mode: frame read failed (%d so far): %v", c.readErrors, err)
	}
}
