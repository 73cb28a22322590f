package mode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	type step struct {
		at      time.Duration
		level   bool
		pressed bool
	}
	tests := []struct {
		name  string
		steps []step
	}{
		{"bounce shorter than window", []step{
			{0, true, false}, {20, false, false}, {30, true, false}, {70, true, false}, {80, true, true},
		}},
		{"held exactly the window", []step{
			{0, true, false}, {50, true, true}, {60, true, false},
		}},
		{"release is not a press", []step{
			{0, true, false}, {50, true, true}, {60, false, false}, {200, false, false},
		}},
		{"second press after release", []step{
			{0, true, false}, {50, true, true}, {60, false, false}, {110, false, false},
			{120, true, false}, {170, true, true},
		}},
		{"idle line", []step{
			{0, false, false}, {1000, false, false},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := debouncer{window: 50 * time.Millisecond}
			for _, s := range tt.steps {
				got := d.update(epoch.Add(s.at*time.Millisecond), s.level)
				assert.Equal(t, s.pressed, got, "t=%dms", s.at)
			}
		})
	}
}

func TestParsePrediction(t *testing.T) {
	for _, p := range []Prediction{PredictGesture, PredictSentence, PredictAuto} {
		got, err := ParsePrediction(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParsePrediction(" AUTO ")
	assert.NoError(t, err)
	assert.Equal(t, PredictAuto, got)

	_, err = ParsePrediction("both")
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "sentence_recording", SentenceRecording.String())
	assert.Equal(t, "State(9)", State(9).String())
}
