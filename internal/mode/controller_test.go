package mode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sign_glove/internal/clock"
	"github.com/relabs-tech/sign_glove/internal/control"
	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/knn"
	"github.com/relabs-tech/sign_glove/internal/model"
	"github.com/relabs-tech/sign_glove/internal/output"
	"github.com/relabs-tech/sign_glove/internal/window"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const tick = 10 * time.Millisecond

type fakeSource struct {
	raw frame.RawFrame
	err error
}

func (s *fakeSource) ReadRawFrame() (frame.RawFrame, error) { return s.raw, s.err }

type fakeTrigger struct{ asserted bool }

func (t *fakeTrigger) Asserted() bool { return t.asserted }

type recordingPublisher struct{ records []output.Record }

func (p *recordingPublisher) Publish(r output.Record) bool {
	p.records = append(p.records, r)
	return true
}

func (p *recordingPublisher) take() []output.Record {
	out := p.records
	p.records = nil
	return out
}

type recordingFeedback struct{ events []string }

func (f *recordingFeedback) Ready()           { f.events = append(f.events, "ready") }
func (f *recordingFeedback) SentenceStarted() { f.events = append(f.events, "start") }

func (f *recordingFeedback) SentenceCompleted(label string) {
	f.events = append(f.events, "done:"+label)
}

func (f *recordingFeedback) Logging(armed bool) {
	if armed {
		f.events = append(f.events, "armed")
	} else {
		f.events = append(f.events, "disarmed")
	}
}

type recordingRawLog struct {
	arms, disarms int
	frames        []frame.RawFrame
}

func (l *recordingRawLog) Arm() error    { l.arms++; return nil }
func (l *recordingRawLog) Disarm() error { l.disarms++; return nil }
func (l *recordingRawLog) Write(raw frame.RawFrame) error {
	l.frames = append(l.frames, raw)
	return nil
}

type harness struct {
	c        *Controller
	clk      *clock.Manual
	source   *fakeSource
	trigger  *fakeTrigger
	control  *control.Queue
	pub      *recordingPublisher
	feedback *recordingFeedback
	rawlog   *recordingRawLog
}

// Raw flex counts map to [0,1] over [0,1000]; inertial readings are zero.
func rawFlex(v int) frame.RawFrame {
	return frame.RawFrame{Flex: [frame.FlexChannels]int{v, v, v, v, v}}
}

func gestureModel(t *testing.T) *model.Model {
	t.Helper()
	open := frame.SensorFrame{}.AppendFields(nil)
	fist := frame.SensorFrame{Flex: [frame.FlexChannels]float64{1, 1, 1, 1, 1}}.AppendFields(nil)
	set, err := knn.NewTrainingSet(append(open, fist...), []int{0, 1}, frame.FieldsPerFrame, 2, 1)
	require.NoError(t, err)
	return &model.Model{Name: "gesture", Labels: []string{"open", "fist"}, Set: set, MaxDistance: 0.5}
}

func sentenceModel(t *testing.T) *model.Model {
	t.Helper()
	wc := window.Config{Capacity: 4, Interval: 50 * time.Millisecond, Duration: 4 * time.Second}
	var data []float64
	for _, v := range []float64{0, 1} {
		f := frame.SensorFrame{Flex: [frame.FlexChannels]float64{v, v, v, v, v}}
		for i := 0; i < wc.Capacity; i++ {
			data = f.AppendFields(data)
		}
	}
	set, err := knn.NewTrainingSet(data, []int{0, 1}, wc.Dim(), 2, 1)
	require.NoError(t, err)
	return &model.Model{Name: "sentence", Labels: []string{"rest", "hello"}, Set: set, Window: &wc}
}

func newHarness(t *testing.T, prediction Prediction, withSentence bool) *harness {
	t.Helper()
	n, err := frame.NewNormalizer(frame.Calibration{
		Min: [frame.FlexChannels]int{0, 0, 0, 0, 0},
		Max: [frame.FlexChannels]int{1000, 1000, 1000, 1000, 1000},
	}, 0, 0)
	require.NoError(t, err)

	bundle := model.Bundle{Gesture: gestureModel(t)}
	if withSentence {
		bundle.Sentence = sentenceModel(t)
	}

	h := &harness{
		clk:      clock.NewManual(epoch),
		source:   &fakeSource{},
		trigger:  &fakeTrigger{},
		control:  control.NewQueue(8),
		pub:      &recordingPublisher{},
		feedback: &recordingFeedback{},
		rawlog:   &recordingRawLog{},
	}
	opts := DefaultOptions()
	opts.Prediction = prediction
	h.c, err = New(Deps{
		Source:     h.source,
		Normalizer: n,
		Publisher:  h.pub,
		Models:     bundle,
		Trigger:    h.trigger,
		Control:    h.control,
		Feedback:   h.feedback,
		RawLog:     h.rawlog,
		Clock:      h.clk,
	}, opts)
	require.NoError(t, err)
	return h
}

// tickAt sets the clock to epoch+at and runs one tick.
func (h *harness) tickAt(at time.Duration) time.Duration {
	h.clk.Set(epoch.Add(at))
	return h.c.Tick()
}

func countStarts(records []output.Record) int {
	n := 0
	for _, r := range records {
		if e, ok := r.(output.EventRecord); ok && e.Event == output.EventSentenceStart {
			n++
		}
	}
	return n
}

func TestShortPressDoesNotStartSentence(t *testing.T) {
	h := newHarness(t, PredictAuto, true)

	for at := time.Duration(0); at <= 200*time.Millisecond; at += tick {
		h.trigger.asserted = at <= 30*time.Millisecond
		h.tickAt(at)
		require.NotEqual(t, SentenceRecording, h.c.State(), "t=%s", at)
	}
	assert.Zero(t, countStarts(h.pub.records))
	assert.Empty(t, h.feedback.events)
}

func TestStablePressStartsSentenceAfterDebounce(t *testing.T) {
	h := newHarness(t, PredictAuto, true)
	h.trigger.asserted = true

	for at := time.Duration(0); at < 50*time.Millisecond; at += tick {
		h.tickAt(at)
		assert.Equal(t, Gesture, h.c.State(), "t=%s", at)
	}
	assert.Equal(t, 10*time.Millisecond, h.tickAt(50*time.Millisecond))
	assert.Equal(t, SentenceRecording, h.c.State())
	assert.Equal(t, 1, countStarts(h.pub.records))
	assert.Equal(t, []string{"start"}, h.feedback.events)
}

func TestSentenceRecordingCompletes(t *testing.T) {
	h := newHarness(t, PredictAuto, true)
	h.source.raw = rawFlex(1000)
	h.trigger.asserted = true

	h.tickAt(0)
	h.tickAt(50 * time.Millisecond)
	require.Equal(t, SentenceRecording, h.c.State())
	h.trigger.asserted = false

	var records []output.Record
	records = append(records, h.pub.take()...)
	for at := 60 * time.Millisecond; h.c.State() == SentenceRecording; at += tick {
		require.Less(t, at, time.Second, "recording never completed")
		h.tickAt(at)
		records = append(records, h.pub.take()...)
	}

	var progress []float64
	var result *output.SentenceRecord
	for _, r := range records {
		switch rec := r.(type) {
		case output.ProgressRecord:
			require.Nil(t, result, "progress after the result")
			progress = append(progress, rec.Progress)
		case output.SentenceRecord:
			result = &rec
		}
	}
	require.NotNil(t, result)
	assert.Equal(t, "hello", result.Sentence)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Zero(t, result.MeanD)

	require.NotEmpty(t, progress)
	for i, p := range progress {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, p, progress[i-1], "progress went backwards at %d", i)
		}
	}
	assert.Equal(t, 1.0, progress[len(progress)-1], "completion tick reports full progress")

	assert.Equal(t, []string{"start", "done:hello"}, h.feedback.events)
	assert.Equal(t, Gesture, h.c.State())

	h.tickAt(time.Second)
	recs := h.pub.take()
	require.Len(t, recs, 1)
	assert.IsType(t, output.GestureRecord{}, recs[0], "gesture classification resumes")
}

func TestPressDuringRecordingIsIgnored(t *testing.T) {
	h := newHarness(t, PredictAuto, true)
	h.trigger.asserted = true
	h.tickAt(0)
	h.tickAt(50 * time.Millisecond)
	require.Equal(t, SentenceRecording, h.c.State())

	// Release, then press again long enough to be stable, while the window
	// is still filling.
	h.trigger.asserted = false
	h.tickAt(60 * time.Millisecond)
	h.tickAt(120 * time.Millisecond)
	h.trigger.asserted = true
	h.tickAt(130 * time.Millisecond)
	h.tickAt(190 * time.Millisecond)
	assert.Equal(t, SentenceRecording, h.c.State())

	h.tickAt(240 * time.Millisecond)
	assert.Equal(t, Gesture, h.c.State(), "recording ends by count, not by the press")
	assert.Equal(t, 1, countStarts(h.pub.records))
}

func TestControlBytesToggleLogging(t *testing.T) {
	h := newHarness(t, PredictGesture, false)
	h.source.raw = rawFlex(10)

	h.control.Push('S')
	h.control.Push('x')
	h.tickAt(0)
	assert.True(t, h.c.LoggingArmed())
	assert.Len(t, h.rawlog.frames, 1, "the frame of the arming tick is logged")

	h.tickAt(100 * time.Millisecond)
	assert.Len(t, h.rawlog.frames, 2)

	h.control.Push('E')
	h.tickAt(200 * time.Millisecond)
	assert.False(t, h.c.LoggingArmed())
	assert.Len(t, h.rawlog.frames, 2)

	assert.Equal(t, 1, h.rawlog.arms)
	assert.Equal(t, 1, h.rawlog.disarms)
	assert.Equal(t, []string{"armed", "disarmed"}, h.feedback.events)
	assert.Equal(t, Gesture, h.c.State(), "logging never changes recognition state")
}

func TestGestureRecords(t *testing.T) {
	tests := []struct {
		name  string
		flex  int
		label string
	}{
		{"open", 0, "open"},
		{"fist", 1000, "fist"},
		{"near fist", 950, "fist"},
		{"halfway is too far from both", 500, model.UnknownLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, PredictGesture, false)
			h.source.raw = rawFlex(tt.flex)

			assert.Equal(t, 100*time.Millisecond, h.tickAt(0))
			recs := h.pub.take()
			require.Len(t, recs, 1)
			g, ok := recs[0].(output.GestureRecord)
			require.True(t, ok)
			assert.Equal(t, tt.label, g.Label)
			assert.Equal(t, output.ModeGesture, g.Mode)
		})
	}
}

func TestGestureModeIgnoresTrigger(t *testing.T) {
	h := newHarness(t, PredictGesture, true)
	h.trigger.asserted = true
	for at := time.Duration(0); at <= 300*time.Millisecond; at += tick {
		h.tickAt(at)
	}
	assert.Equal(t, Gesture, h.c.State())
	assert.Zero(t, countStarts(h.pub.records))
	assert.False(t, h.c.SentenceEnabled())
}

func TestSentenceModeFallsBackWithoutModel(t *testing.T) {
	h := newHarness(t, PredictSentence, false)
	assert.Equal(t, PredictGesture, h.c.Prediction())
	assert.Equal(t, Gesture, h.c.State())

	h.tickAt(0)
	require.Len(t, h.pub.records, 1)
	assert.IsType(t, output.GestureRecord{}, h.pub.records[0])
}

func TestSentenceModeIsIdleBetweenRecordings(t *testing.T) {
	h := newHarness(t, PredictSentence, true)
	assert.Equal(t, PredictSentence, h.c.Prediction())
	assert.Equal(t, Idle, h.c.State())

	h.tickAt(0)
	h.tickAt(100 * time.Millisecond)
	assert.Empty(t, h.pub.records)

	h.trigger.asserted = true
	h.tickAt(200 * time.Millisecond)
	h.tickAt(250 * time.Millisecond)
	assert.Equal(t, SentenceRecording, h.c.State())
	for at := 260 * time.Millisecond; h.c.State() == SentenceRecording; at += tick {
		h.tickAt(at)
	}
	assert.Equal(t, Idle, h.c.State())
}

func TestReadErrorSkipsTick(t *testing.T) {
	h := newHarness(t, PredictAuto, true)
	h.source.err = errors.New("spi timeout")

	assert.Equal(t, 100*time.Millisecond, h.tickAt(0))
	assert.Empty(t, h.pub.records)
}

func TestReadErrorsCannotOutlastRecording(t *testing.T) {
	h := newHarness(t, PredictAuto, true)
	h.source.raw = rawFlex(1000)
	h.trigger.asserted = true
	h.tickAt(0)
	h.tickAt(50 * time.Millisecond)
	require.Equal(t, SentenceRecording, h.c.State())
	h.trigger.asserted = false
	h.pub.take()

	// The front end goes silent for good after the first frame.
	h.source.err = errors.New("front end: stream closed")

	var progress []float64
	var result *output.SentenceRecord
	end := 50*time.Millisecond + h.c.deps.Models.Sentence.Window.Duration
	at := 60 * time.Millisecond
	for ; h.c.State() == SentenceRecording; at += tick {
		require.LessOrEqual(t, at, end, "recording outlived its duration bound")
		assert.Equal(t, 10*time.Millisecond, h.tickAt(at))
		for _, r := range h.pub.take() {
			switch rec := r.(type) {
			case output.ProgressRecord:
				progress = append(progress, rec.Progress)
			case output.SentenceRecord:
				result = &rec
			}
		}
	}
	assert.Equal(t, end, at-tick, "completes on the first tick past the bound")

	require.NotNil(t, result)
	assert.Equal(t, "rest", result.Sentence, "one held frame, zero tail")
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 1.0, progress[len(progress)-1])
	assert.Equal(t, []string{"start", "done:rest"}, h.feedback.events)
	assert.Equal(t, Gesture, h.c.State())
}

func TestAnnounce(t *testing.T) {
	h := newHarness(t, PredictAuto, true)
	h.c.Announce()
	require.Len(t, h.pub.records, 1)
	assert.Equal(t, output.NewReady("auto", true), h.pub.records[0])
	assert.Equal(t, []string{"ready"}, h.feedback.events)
}

func TestRunStopsOnContextAndDisarms(t *testing.T) {
	h := newHarness(t, PredictGesture, false)
	h.control.Push('S')

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := h.c.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.GreaterOrEqual(t, len(h.pub.records), 2)
	assert.IsType(t, output.ReadyRecord{}, h.pub.records[0])
	assert.IsType(t, output.GestureRecord{}, h.pub.records[1])
	assert.Equal(t, 1, h.rawlog.disarms)
	assert.False(t, h.c.LoggingArmed())
}

func TestNewRejects(t *testing.T) {
	gm := gestureModel(t)
	src := &fakeSource{}
	pub := &recordingPublisher{}

	_, err := New(Deps{Publisher: pub, Models: model.Bundle{Gesture: gm}}, DefaultOptions())
	assert.Error(t, err)
	_, err = New(Deps{Source: src, Models: model.Bundle{Gesture: gm}}, DefaultOptions())
	assert.Error(t, err)
	_, err = New(Deps{Source: src, Publisher: pub}, DefaultOptions())
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.GestureTick = 0
	_, err = New(Deps{Source: src, Publisher: pub, Models: model.Bundle{Gesture: gm}}, opts)
	assert.Error(t, err)
}
