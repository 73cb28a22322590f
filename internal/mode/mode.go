// Package mode runs the glove's control loop: it debounces the sentence
// button, drains control bytes, classifies frames and publishes records.
package mode

import (
	"fmt"
	"strings"
)

// Prediction selects which classifiers run.
type Prediction int

const (
	// PredictGesture classifies every frame and ignores the button.
	PredictGesture Prediction = iota
	// PredictSentence only records sentences; nothing is published between
	// recordings.
	PredictSentence
	// PredictAuto classifies gestures until the button starts a sentence.
	PredictAuto
)

func (p Prediction) String() string {
	switch p {
	case PredictGesture:
		return "gesture"
	case PredictSentence:
		return "sentence"
	case PredictAuto:
		return "auto"
	}
	return fmt.Sprintf("Prediction(%d)", int(p))
}

// ParsePrediction accepts the names printed by Prediction.String.
func ParsePrediction(s string) (Prediction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gesture":
		return PredictGesture, nil
	case "sentence":
		return PredictSentence, nil
	case "auto":
		return PredictAuto, nil
	}
	return 0, fmt.Errorf("mode: unknown prediction mode %q (want gesture, sentence or auto)", s)
}

// State is the controller's recognition state.
type State int

const (
	// Idle publishes nothing; the controller waits for the button.
	Idle State = iota
	// Gesture classifies each frame on its own.
	Gesture
	// SentenceRecording fills the recording window.
	SentenceRecording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Gesture:
		return "gesture"
	case SentenceRecording:
		return "sentence_recording"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
