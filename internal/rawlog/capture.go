package rawlog

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/relabs-tech/sign_glove/internal/frame"
)

// Capture writes raw-log lines to a new file while armed. Each arming opens
// a fresh file named after a random session id.
type Capture struct {
	dir string

	path  string
	file  *os.File
	w     *bufio.Writer
	lines int
	buf   []byte
}

// NewCapture stores capture files under dir. The directory is created on
// first use.
func NewCapture(dir string) *Capture {
	return &Capture{dir: dir}
}

func (c *Capture) Armed() bool {
	return c.file != nil
}

// Path is the file of the current or most recent session.
func (c *Capture) Path() string {
	return c.path
}

// Lines is the number of frames written in the current or most recent session.
func (c *Capture) Lines() int {
	return c.lines
}

// Arm starts a new session. Arming while armed keeps the current session.
func (c *Capture) Arm() error {
	if c.file != nil {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("rawlog: create %s: %w", c.dir, err)
	}
	session := uuid.New()
	path := filepath.Join(c.dir, "capture-"+session.String()+".log")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rawlog: create capture: %w", err)
	}
	c.path = path
	c.file = f
	c.w = bufio.NewWriter(f)
	c.lines = 0
	log.Printf("rawlog: capture %s armed", path)
	return nil
}

// Write appends one frame if armed; otherwise it does nothing.
func (c *Capture) Write(raw frame.RawFrame) error {
	if c.file == nil {
		return nil
	}
	c.buf = append(AppendFormat(c.buf[:0], raw), '\n')
	if _, err := c.w.Write(c.buf); err != nil {
		return fmt.Errorf("rawlog: write capture: %w", err)
	}
	c.lines++
	return nil
}

// Disarm flushes and closes the current session file.
func (c *Capture) Disarm() error {
	if c.file == nil {
		return nil
	}
	ferr := c.w.Flush()
	cerr := c.file.Close()
	c.file = nil
	c.w = nil
	if ferr != nil {
		return fmt.Errorf("rawlog: flush capture: %w", ferr)
	}
	if cerr != nil {
		return fmt.Errorf("rawlog: close capture: %w", cerr)
	}
	log.Printf("rawlog: capture %s closed after %d frames", c.path, c.lines)
	return nil
}
