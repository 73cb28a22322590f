// Package frame converts raw glove readings into the canonical feature
// representation consumed by the classifiers.
package frame

import "math"

// FlexChannels is the number of flex sensors on the glove.
const FlexChannels = 5

// FieldsPerFrame is the number of features contributed by one SensorFrame:
// five flex values, GDP, three accelerations and three angular rates.
const FieldsPerFrame = 12

// FieldNames lists the features in canonical order.
var FieldNames = [FieldsPerFrame]string{
	"f1", "f2", "f3", "f4", "f5", "gdp", "ax", "ay", "az", "gx", "gy", "gz",
}

// RawFrame is one unconverted HAL reading.
type RawFrame struct {
	Flex [FlexChannels]int `json:"flex"` // ADC counts

	Ax int16 `json:"ax"` // accel ticks
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro ticks
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Source is anything that can provide raw frames, one per call.
type Source interface {
	ReadRawFrame() (RawFrame, error)
}

// SensorFrame is a converted snapshot. It is passed by value and never mutated.
type SensorFrame struct {
	Flex [FlexChannels]float64 // normalized [0,1]

	Ax, Ay, Az float64 // g
	Gx, Gy, Gz float64 // deg/s

	GDP float64 // |gyro| in deg/s
}

// AppendFields appends the frame's features to dst in canonical order.
func (f SensorFrame) AppendFields(dst []float64) []float64 {
	return append(dst,
		f.Flex[0], f.Flex[1], f.Flex[2], f.Flex[3], f.Flex[4],
		f.GDP,
		f.Ax, f.Ay, f.Az,
		f.Gx, f.Gy, f.Gz,
	)
}

// PutFields writes the frame's features into dst, which must hold at least
// FieldsPerFrame values.
func (f SensorFrame) PutFields(dst []float64) {
	_ = dst[FieldsPerFrame-1]
	dst[0], dst[1], dst[2], dst[3], dst[4] = f.Flex[0], f.Flex[1], f.Flex[2], f.Flex[3], f.Flex[4]
	dst[5] = f.GDP
	dst[6], dst[7], dst[8] = f.Ax, f.Ay, f.Az
	dst[9], dst[10], dst[11] = f.Gx, f.Gy, f.Gz
}

// GDP returns the magnitude of an angular-rate vector.
func GDP(gx, gy, gz float64) float64 {
	return math.Sqrt(gx*gx + gy*gy + gz*gz)
}
