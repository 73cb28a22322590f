package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().validate())
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
# glove on the bench
PREDICTION_MODE = Sentence
FRAME_SOURCE=mock
MQTT_BROKER=tcp://localhost:1883
FLEX_MIN=100, 200,300,400,500
FLEX_MAX=1100,1200,1300,1400,1500
FLEX_ADC_ADDR_B=0x4A
IMU_GYRO_RANGE=2
DEBOUNCE_MS=30
WEB_ADVERTISE=true
`))
	require.NoError(t, err)

	assert.Equal(t, "sentence", cfg.PredictionMode)
	assert.Equal(t, "mock", cfg.FrameSource)
	assert.Equal(t, "predict", cfg.RunMode, "untouched keys keep their default")
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, [5]int{100, 200, 300, 400, 500}, cfg.FlexMin)
	assert.Equal(t, [5]int{1100, 1200, 1300, 1400, 1500}, cfg.FlexMax)
	assert.Equal(t, uint16(0x4A), cfg.FlexADCAddrB)
	assert.Equal(t, byte(2), cfg.IMUGyroRange)
	assert.Equal(t, 30*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 100*time.Millisecond, cfg.GestureTick())
	assert.Equal(t, 10*time.Millisecond, cfg.SentenceTick())
	assert.True(t, cfg.WebAdvertise)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"missing equals":       "RUN_MODE predict",
		"unknown key":          "IMU_LEFT_SPI_DEVICE=/dev/spidev0.0",
		"bad run mode":         "RUN_MODE=train",
		"accel range":          "IMU_ACCEL_RANGE=4",
		"gyro not a number":    "IMU_GYRO_RANGE=fast",
		"short flex list":      "FLEX_MIN=1,2,3",
		"flex not a number":    "FLEX_MAX=1,2,3,4,x",
		"inverted calibration": "FLEX_MIN=5000,5000,5000,5000,5000\nFLEX_MAX=4000,4000,4000,4000,4000",
		"zero gesture tick":    "GESTURE_TICK_MS=0",
		"wide i2c address":     "DISPLAY_I2C_ADDR=0x100",
		"serial without port":  "FRAME_SOURCE=serial",
		"shared serial port":   "SERIAL_PORT=/dev/ttyS0\nFRONTEND_SERIAL_PORT=/dev/ttyS0",
		"mqtt without topic":   "MQTT_BROKER=tcp://b:1883\nTOPIC_CONTROL=",
		"bad bool":             "WEB_ADVERTISE=maybe",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndGlobal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("RUN_MODE=collect\n"), 0o644))

	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, "collect", Get().RunMode)

	require.NoError(t, InitGlobal("ignored-after-first-call.txt"))
	assert.Equal(t, "collect", Get().RunMode)
}
