// Package output encodes classifier results as JSON lines and hands them to
// the record link without ever blocking the control loop.
package output

import (
	"encoding/json"
	"math"

	"github.com/relabs-tech/sign_glove/internal/frame"
)

// Record is any value that can be published on the record stream.
type Record interface {
	kind() string
}

// GestureRecord is published once per gesture tick.
type GestureRecord struct {
	Mode  string  `json:"mode"`
	Label string  `json:"label"`
	MeanD float64 `json:"meanD"`
	GDP   float64 `json:"gdp"`
	F1    float64 `json:"f1"`
	F2    float64 `json:"f2"`
	F3    float64 `json:"f3"`
	F4    float64 `json:"f4"`
	F5    float64 `json:"f5"`
	Ax    float64 `json:"ax"`
	Ay    float64 `json:"ay"`
	Az    float64 `json:"az"`
	Gx    float64 `json:"gx"`
	Gy    float64 `json:"gy"`
	Gz    float64 `json:"gz"`
}

// ProgressRecord reports how far a sentence recording has advanced.
type ProgressRecord struct {
	Mode      string  `json:"mode"`
	Recording bool    `json:"recording"`
	Progress  float64 `json:"progress"`
}

// SentenceRecord is the result of a completed sentence recording.
type SentenceRecord struct {
	Mode       string  `json:"mode"`
	Recording  bool    `json:"recording"`
	Sentence   string  `json:"sentence"`
	Confidence float64 `json:"confidence"`
	MeanD      float64 `json:"meanD"`
}

// EventRecord marks a discrete controller event.
type EventRecord struct {
	Event string `json:"event"`
}

// ReadyRecord is published once at startup.
type ReadyRecord struct {
	Event             string `json:"event"`
	Prediction        string `json:"prediction"`
	SentenceAvailable bool   `json:"sentence_available"`
}

// SensorInitFailedRecord is published when the hardware cannot be brought up.
type SensorInitFailedRecord struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

func (GestureRecord) kind() string          { return "gesture" }
func (ProgressRecord) kind() string         { return "progress" }
func (SentenceRecord) kind() string         { return "sentence" }
func (EventRecord) kind() string            { return "event" }
func (ReadyRecord) kind() string            { return "ready" }
func (SensorInitFailedRecord) kind() string { return "sensor_init_failed" }

const (
	ModeGesture  = "gesture"
	ModeSentence = "sentence"

	EventSentenceStart    = "sentence_start"
	EventReady            = "ready"
	EventSensorInitFailed = "sensor_init_failed"
)

// Confidence maps a mean neighbour distance to (0,1]; a distance of 0 gives 1.
func Confidence(meanD float64) float64 {
	return 1 / (1 + meanD)
}

// minConfidence is the smallest published confidence; rounding to three
// decimals must not turn a far match into 0.
const minConfidence = 0.001

// NewGesture builds a gesture record from the classified frame.
func NewGesture(label string, meanD float64, f frame.SensorFrame) GestureRecord {
	return GestureRecord{
		Mode:  ModeGesture,
		Label: label,
		MeanD: round(meanD, 2),
		GDP:   round(f.GDP, 1),
		F1:    round(f.Flex[0], 2),
		F2:    round(f.Flex[1], 2),
		F3:    round(f.Flex[2], 2),
		F4:    round(f.Flex[3], 2),
		F5:    round(f.Flex[4], 2),
		Ax:    round(f.Ax, 2),
		Ay:    round(f.Ay, 2),
		Az:    round(f.Az, 2),
		Gx:    round(f.Gx, 1),
		Gy:    round(f.Gy, 1),
		Gz:    round(f.Gz, 1),
	}
}

func NewProgress(p float64) ProgressRecord {
	return ProgressRecord{Mode: ModeSentence, Recording: true, Progress: round(p, 2)}
}

func NewSentence(label string, meanD float64) SentenceRecord {
	return SentenceRecord{
		Mode:       ModeSentence,
		Recording:  false,
		Sentence:   label,
		Confidence: max(round(Confidence(meanD), 3), minConfidence),
		MeanD:      round(meanD, 2),
	}
}

func NewSentenceStart() EventRecord {
	return EventRecord{Event: EventSentenceStart}
}

func NewReady(prediction string, sentenceAvailable bool) ReadyRecord {
	return ReadyRecord{Event: EventReady, Prediction: prediction, SentenceAvailable: sentenceAvailable}
}

func NewSensorInitFailed(err error) SensorInitFailedRecord {
	return SensorInitFailedRecord{Event: EventSensorInitFailed, Error: err.Error()}
}

// Encode renders r as a single JSON object without a trailing newline.
func Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
