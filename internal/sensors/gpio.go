package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Button is the active-low sentence trigger, wired to ground with the
// internal pull-up enabled.
type Button struct {
	pin gpio.PinIO
}

// OpenButton configures the named pin as a pulled-up input.
func OpenButton(name string) (*Button, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("button: periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("button: pin %q not found", name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button: configure %s: %w", name, err)
	}
	return &Button{pin: p}, nil
}

// Asserted reports the raw, undebounced level: true while held down.
func (b *Button) Asserted() bool {
	return b.pin.Read() == gpio.Low
}

// OpenOutput configures the named pin as an output driven low.
func OpenOutput(name string) (gpio.PinOut, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("gpio: periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: pin %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio: drive %s low: %w", name, err)
	}
	return p, nil
}
