// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// displayAddr is the only address the ssd1306 I²C driver talks to.
const displayAddr = 0x3C

// screen is what the display currently shows.
type screen struct {
	mode      string
	ready     bool
	recording bool
	armed     bool
	sentence  string
}

// Display mirrors the controller's state on a 128x64 SSD1306 panel.
// Feedback calls only update the screen model; Run does the I²C writes.
type Display struct {
	dev   *ssd1306.Dev
	dirty chan struct{}

	mu  sync.Mutex
	scr screen
}

// OpenDisplay initializes the panel at addr on bus. mode is shown on the
// idle screen.
func OpenDisplay(bus i2c.Bus, addr uint16, mode string) (*Display, error) {
	if addr != displayAddr {
		return nil, fmt.Errorf("display: unsupported I2C address 0x%02X (driver uses 0x%02X)", addr, displayAddr)
	}
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("display: init ssd1306: %w", err)
	}
	d := &Display{
		dev:   dev,
		dirty: make(chan struct{}, 1),
		scr:   screen{mode: mode},
	}
	if err := d.draw(); err != nil {
		log.Printf("display: splash: %v", err)
	}
	return d, nil
}

func (d *Display) Ready() {
	d.update(func(s *screen) { s.ready = true })
}

func (d *Display) SentenceStarted() {
	d.update(func(s *screen) { s.recording = true })
}

func (d *Display) SentenceCompleted(label string) {
	d.update(func(s *screen) {
		s.recording = false
		s.sentence = label
	})
}

func (d *Display) Logging(armed bool) {
	d.update(func(s *screen) { s.armed = armed })
}

// Run redraws the panel whenever the screen model changes and blanks it
// when ctx is done.
func (d *Display) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := d.dev.Halt(); err != nil {
				log.Printf("display: halt: %v", err)
			}
			return
		case <-d.dirty:
			if err := d.draw(); err != nil {
				log.Printf("display: update error: %v", err)
			}
		}
	}
}

func (d *Display) update(change func(*screen)) {
	d.mu.Lock()
	change(&d.scr)
	d.mu.Unlock()
	select {
	case d.dirty <- struct{}{}:
	default:
	}
}

func (d *Display) draw() error {
	d.mu.Lock()
	s := d.scr
	d.mu.Unlock()
	return d.dev.Draw(d.dev.Bounds(), render(s), image.Point{})
}

// render lays out one frame of the panel.
func render(s screen) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	line := func(y int, text string) {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(text)
	}

	if !s.ready {
		drawer.Dot = fixed.P(15, 26)
		drawer.DrawString("Sign Glove")
		drawer.Dot = fixed.P(15, 43)
		drawer.DrawString("Starting...")
		return img
	}

	header := "Mode: " + s.mode
	if s.armed {
		header += " LOG"
	}
	line(13, header)

	if s.recording {
		line(32, "Recording...")
		return img
	}
	if s.sentence != "" {
		line(32, "Last sentence:")
		line(47, s.sentence)
	} else {
		line(32, "Ready")
	}
	return img
}
