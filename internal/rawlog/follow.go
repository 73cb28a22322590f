package rawlog

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/relabs-tech/sign_glove/internal/frame"
)

// ErrNoFrame is returned by Follower before the first line has arrived.
var ErrNoFrame = errors.New("rawlog: no frame received yet")

// Follower tracks the newest frame of a raw-log stream coming from a
// serial-attached front end. ReadRawFrame never blocks; it returns the most
// recent frame, so a fast control loop may see the same frame twice.
type Follower struct {
	mu     sync.Mutex
	latest frame.RawFrame
	have   bool
	err    error
}

func NewFollower() *Follower {
	return &Follower{}
}

// Run consumes r until it fails. Run it on its own goroutine.
func (f *Follower) Run(r io.Reader) error {
	src := NewLineSource(r)
	for {
		raw, err := src.ReadRawFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			log.Printf("rawlog: front end stream ended: %v", err)
			f.mu.Lock()
			f.err = err
			f.mu.Unlock()
			return err
		}
		f.mu.Lock()
		f.latest = raw
		f.have = true
		f.mu.Unlock()
	}
}

func (f *Follower) ReadRawFrame() (frame.RawFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return frame.RawFrame{}, f.err
	}
	if !f.have {
		return frame.RawFrame{}, ErrNoFrame
	}
	return f.latest, nil
}
