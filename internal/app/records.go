package app

import (
	"encoding/json"
	"fmt"

	"github.com/relabs-tech/sign_glove/internal/output"
)

// wireRecord is the union of every record the glove publishes, for
// subscribers that only see the JSON.
type wireRecord struct {
	Mode  string `json:"mode"`
	Event string `json:"event"`

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

	Recording  bool    `json:"recording"`
	Progress   float64 `json:"progress"`
	Sentence   string  `json:"sentence"`
	Confidence float64 `json:"confidence"`

	Prediction        string `json:"prediction"`
	SentenceAvailable bool   `json:"sentence_available"`
	Error             string `json:"error"`
}

// recordKind names what a decoded record is.
type recordKind int

const (
	kindUnknown recordKind = iota
	kindGesture
	kindProgress
	kindSentence
	kindSentenceStart
	kindReady
	kindSensorInitFailed
)

func decodeRecord(payload []byte) (wireRecord, recordKind, error) {
	var r wireRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return wireRecord{}, kindUnknown, fmt.Errorf("decode record: %w", err)
	}
	switch {
	case r.Mode == output.ModeGesture:
		return r, kindGesture, nil
	case r.Mode == output.ModeSentence && r.Recording:
		return r, kindProgress, nil
	case r.Mode == output.ModeSentence:
		return r, kindSentence, nil
	case r.Event == output.EventSentenceStart:
		return r, kindSentenceStart, nil
	case r.Event == output.EventReady:
		return r, kindReady, nil
	case r.Event == output.EventSensorInitFailed:
		return r, kindSensorInitFailed, nil
	}
	return r, kindUnknown, nil
}
