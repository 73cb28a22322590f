package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/frame"
	"github.com/relabs-tech/sign_glove/internal/mode"
	"github.com/relabs-tech/sign_glove/internal/rawlog"
	"github.com/relabs-tech/sign_glove/internal/sensors"
)

// rig is the hardware side of the glove for one FRAME_SOURCE setting.
type rig struct {
	source   frame.Source
	trigger  mode.Trigger
	feedback mode.Feedbacks

	// background loops (buzzer player, display refresher)
	loops   []func(context.Context)
	closers []io.Closer
}

// OpenFrameSource opens the frame source selected by FRAME_SOURCE. The
// returned closer may be nil.
func OpenFrameSource(cfg *config.Config) (frame.Source, io.Closer, error) {
	switch cfg.FrameSource {
	case "mock":
		log.Println("rig: using mock frame source")
		return sensors.NewMockSource(nil, cfg.FlexMin[0], cfg.FlexMax[0]), nil, nil

	case "serial":
		port, err := sensors.OpenSerial(cfg.FrontendSerialPort, cfg.FrontendBaudRate)
		if err != nil {
			return nil, nil, err
		}
		follower := rawlog.NewFollower()
		go follower.Run(port)
		log.Printf("rig: following front end on %s", cfg.FrontendSerialPort)
		return follower, port, nil

	case "spi":
		glove, err := sensors.OpenGlove(cfg)
		if err != nil {
			return nil, nil, err
		}
		return glove, glove, nil
	}
	return nil, nil, fmt.Errorf("rig: unknown frame source %q", cfg.FrameSource)
}

// openRig brings up the frame source and, except in mock mode, the GPIO
// trigger, LED/buzzer and display. Any failure is a sensor init failure.
func openRig(cfg *config.Config, prediction string) (*rig, error) {
	src, closer, err := OpenFrameSource(cfg)
	if err != nil {
		return nil, err
	}
	r := &rig{source: src}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
	if cfg.FrameSource == "mock" {
		return r, nil
	}

	if glove, ok := src.(*sensors.Glove); ok && cfg.DisplayI2CAddr != 0 {
		d, err := sensors.OpenDisplay(glove.Bus(), cfg.DisplayI2CAddr, prediction)
		if err != nil {
			r.close()
			return nil, err
		}
		r.feedback = append(r.feedback, d)
		r.loops = append(r.loops, d.Run)
	}

	if cfg.TriggerPin != "" {
		b, err := sensors.OpenButton(cfg.TriggerPin)
		if err != nil {
			r.close()
			return nil, err
		}
		r.trigger = b
	}

	if cfg.LEDPin != "" || cfg.BuzzerPin != "" {
		led, err := optionalOutput(cfg.LEDPin)
		if err != nil {
			r.close()
			return nil, err
		}
		buzzer, err := optionalOutput(cfg.BuzzerPin)
		if err != nil {
			r.close()
			return nil, err
		}
		ind := sensors.NewIndicator(led, buzzer)
		r.feedback = append(r.feedback, ind)
		r.loops = append(r.loops, ind.Run)
	}
	return r, nil
}

func optionalOutput(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}
	return sensors.OpenOutput(name)
}

func (r *rig) start(ctx context.Context) {
	for _, loop := range r.loops {
		go loop(ctx)
	}
}

func (r *rig) close() {
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			log.Printf("rig: close: %v", err)
		}
	}
}
