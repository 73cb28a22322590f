package frame

import "fmt"

// Accelerometer full-scale sensitivities in LSB/g, indexed by MPU range code
// (0=±2g, 1=±4g, 2=±8g, 3=±16g).
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// Gyroscope sensitivities in LSB/(deg/s), indexed by MPU range code
// (0=±250, 1=±500, 2=±1000, 3=±2000 deg/s).
var gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}

// Calibration holds the per-channel flex bounds measured for the wearer.
type Calibration struct {
	Min [FlexChannels]int `json:"min"`
	Max [FlexChannels]int `json:"max"`
}

// Normalizer converts raw HAL counts into a SensorFrame.
type Normalizer struct {
	Calibration Calibration

	AccelLSBPerG  float64
	GyroLSBPerDPS float64
}

// NewNormalizer returns a Normalizer for the given calibration and MPU range
// codes.
func NewNormalizer(cal Calibration, accelRange, gyroRange byte) (Normalizer, error) {
	if int(accelRange) >= len(accelLSBPerG) {
		return Normalizer{}, fmt.Errorf("frame: accel range code %d out of range", accelRange)
	}
	if int(gyroRange) >= len(gyroLSBPerDPS) {
		return Normalizer{}, fmt.Errorf("frame: gyro range code %d out of range", gyroRange)
	}
	return Normalizer{
		Calibration:   cal,
		AccelLSBPerG:  accelLSBPerG[accelRange],
		GyroLSBPerDPS: gyroLSBPerDPS[gyroRange],
	}, nil
}

// Normalize converts one raw frame. Flex values outside the calibrated range
// are clamped; a channel whose bounds coincide reads 0.
func (n Normalizer) Normalize(raw RawFrame) SensorFrame {
	var f SensorFrame
	for i := 0; i < FlexChannels; i++ {
		span := n.Calibration.Max[i] - n.Calibration.Min[i]
		if span == 0 {
			continue
		}
		v := float64(raw.Flex[i]-n.Calibration.Min[i]) / float64(span)
		f.Flex[i] = clamp01(v)
	}

	f.Ax = float64(raw.Ax) / n.AccelLSBPerG
	f.Ay = float64(raw.Ay) / n.AccelLSBPerG
	f.Az = float64(raw.Az) / n.AccelLSBPerG

	f.Gx = float64(raw.Gx) / n.GyroLSBPerDPS
	f.Gy = float64(raw.Gy) / n.GyroLSBPerDPS
	f.Gz = float64(raw.Gz) / n.GyroLSBPerDPS

	f.GDP = GDP(f.Gx, f.Gy, f.Gz)
	return f
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
