package mode

import (
	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/output"
)

// Trigger is the sentence button. Asserted reports the raw, undebounced level.
type Trigger interface {
	Asserted() bool
}

// Control is a non-blocking source of inbound control bytes.
type Control interface {
	Poll() (byte, bool)
}

// Publisher accepts records without blocking.
type Publisher interface {
	Publish(r output.Record) bool
}

// RawLog receives raw frames while logging is armed.
type RawLog interface {
	Arm() error
	Disarm() error
	Write(raw frame.RawFrame) error
}

// Feedback is told about user-visible events (LED, buzzer, display).
// Implementations must return quickly.
type Feedback interface {
	Ready()
	SentenceStarted()
	SentenceCompleted(label string)
	Logging(armed bool)
}

// Feedbacks fans every event out to all of its members.
type Feedbacks []Feedback

func (fs Feedbacks) Ready() {
	for _, f := range fs {
		f.Ready()
	}
}

func (fs Feedbacks) SentenceStarted() {
	for _, f := range fs {
		f.SentenceStarted()
	}
}

func (fs Feedbacks) SentenceCompleted(label string) {
	for _, f := range fs {
		f.SentenceCompleted(label)
	}
}

func (fs Feedbacks) Logging(armed bool) {
	for _, f := range fs {
		f.Logging(armed)
	}
}

type nopFeedback struct{}

func (nopFeedback) Ready()                   {}
func (nopFeedback) SentenceStarted()         {}
func (nopFeedback) SentenceCompleted(string) {}
func (nopFeedback) Logging(bool)             {}

type nopRawLog struct{}

func (nopRawLog) Arm() error                 { return nil }
func (nopRawLog) Disarm() error              { return nil }
func (nopRawLog) Write(frame.RawFrame) error { return nil }

type released struct{}

func (released) Asserted() bool { return false }

type noControl struct{}

func (noControl) Poll() (byte, bool) { return 0, false }
