// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sign_glove/internal/config"
	"github.com/relabs-tech/sign_glove/internal/frame"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost runs periph's driver registration once per process.
func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// Glove reads the MPU-9250 over SPI and the five flex sensors through two
// ADS1115 converters on a shared I²C bus.
type Glove struct {
	imu  *mpu9250.MPU9250
	bus  i2c.BusCloser
	flex [frame.FlexChannels]ads1x15.PinADC
}

// OpenGlove brings up the glove hardware described by cfg.
func OpenGlove(cfg *config.Config) (*Glove, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("glove: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("glove: IMU CS pin %q not found", cfg.IMUCSPin)
	}
	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("glove: IMU SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}
	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("glove: IMU device creation: %w", err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("glove: IMU initialization: %w", err)
	}

	if err := imu.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("glove: set accel range: %w", err)
	}
	log.Printf("glove: accelerometer range set to %d (±%dg)", cfg.IMUAccelRange, []int{2, 4, 8, 16}[cfg.IMUAccelRange])

	if err := imu.SetGyroRange(cfg.IMUGyroRange); err != nil {
		return nil, fmt.Errorf("glove: set gyro range: %w", err)
	}
	log.Printf("glove: gyroscope range set to %d (±%d°/s)", cfg.IMUGyroRange, []int{250, 500, 1000, 2000}[cfg.IMUGyroRange])

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: glove IMU calibration failed: %v", err)
	} else {
		log.Printf("glove: IMU calibration complete")
	}

	bus, err := i2creg.Open(cfg.FlexI2CBus)
	if err != nil {
		return nil, fmt.Errorf("glove: open I2C bus %q: %w", cfg.FlexI2CBus, err)
	}
	g := &Glove{imu: imu, bus: bus}

	// Flex 1-4 sit on converter A, flex 5 on channel 0 of converter B.
	adcA, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.FlexADCAddrA})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("glove: ADS1115 at 0x%02X: %w", cfg.FlexADCAddrA, err)
	}
	adcB, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: cfg.FlexADCAddrB})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("glove: ADS1115 at 0x%02X: %w", cfg.FlexADCAddrB, err)
	}

	channels := []struct {
		dev *ads1x15.Dev
		ch  ads1x15.Channel
	}{
		{adcA, ads1x15.Channel0},
		{adcA, ads1x15.Channel1},
		{adcA, ads1x15.Channel2},
		{adcA, ads1x15.Channel3},
		{adcB, ads1x15.Channel0},
	}
	for i, c := range channels {
		pin, err := c.dev.PinForChannel(c.ch, 5*physic.Volt, 860*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("glove: flex %d channel: %w", i+1, err)
		}
		g.flex[i] = pin
	}

	log.Printf("glove: IMU on %s, flex ADCs 0x%02X/0x%02X on I2C bus %s",
		cfg.IMUSPIDevice, cfg.FlexADCAddrA, cfg.FlexADCAddrB, cfg.FlexI2CBus)
	return g, nil
}

// ReadRawFrame samples every sensor once.
func (g *Glove) ReadRawFrame() (frame.RawFrame, error) {
	var raw frame.RawFrame

	for i, pin := range g.flex {
		s, err := pin.Read()
		if err != nil {
			return frame.RawFrame{}, fmt.Errorf("glove: flex %d: %w", i+1, err)
		}
		raw.Flex[i] = int(s.Raw)
	}

	var err error
	if raw.Ax, err = g.imu.GetAccelerationX(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("glove: accel X: %w", err)
	}
	if raw.Ay, err = g.imu.GetAccelerationY(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("glove: accel Y: %w", err)
	}
	if raw.Az, err = g.imu.GetAccelerationZ(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("glove: accel Z: %w", err)
	}
	if raw.Gx, err = g.imu.GetRotationX(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("glove: gyro X: %w", err)
	}
	if raw.Gy, err = g.imu.GetRotationY(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("glove: gyro Y: %w", err)
	}
	if raw.Gz, err = g.imu.GetRotationZ(); err != nil {
		return frame.RawFrame{}, fmt.Errorf("glove: gyro Z: %w", err)
	}
	return raw, nil
}

// Bus is the flex I²C bus, shared with the display.
func (g *Glove) Bus() i2c.Bus {
	return g.bus
}

// Close halts the converters and releases the I²C bus.
func (g *Glove) Close() error {
	for _, pin := range g.flex {
		if pin != nil {
			pin.Halt()
		}
	}
	return g.bus.Close()
}
