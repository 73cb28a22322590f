package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPath is where the binaries look for their configuration file.
const DefaultPath = "glove_config.txt"

// Config holds all application configuration values.
type Config struct {
	// Modes
	RunMode        string // "predict" or "collect"
	PredictionMode string // "gesture", "sentence" or "auto"
	FrameSource    string // "spi", "serial" or "mock"

	// Record link (JSON lines out, control bytes in)
	SerialPort     string // empty: records go to stdout
	SerialBaudRate int

	// Serial-attached sensor front end (FRAME_SOURCE=serial)
	FrontendSerialPort string
	FrontendBaudRate   int

	// MQTT
	MQTTBroker          string // empty: no MQTT mirror
	MQTTClientIDGlove   string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string

	// Topics
	TopicRecords string
	TopicControl string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Flex ADCs
	FlexI2CBus   string
	FlexADCAddrA uint16 // flex 1-4 on channels 0-3
	FlexADCAddrB uint16 // flex 5 on channel 0
	FlexMin      [5]int
	FlexMax      [5]int

	// GPIO
	TriggerPin string
	LEDPin     string
	BuzzerPin  string

	// Display (0 = none)
	DisplayI2CAddr uint16

	// Timing (milliseconds)
	DebounceMS      int
	GestureTickMS   int
	SentenceTickMS  int
	CollectPeriodMS int

	// Raw logging
	RawLogDir string

	// Output
	EmitQueueSize int

	// Web Server
	WebServerPort int
	WebAdvertise  bool
}

// Default returns the configuration the glove firmware shipped with.
func Default() *Config {
	return &Config{
		RunMode:        "predict",
		PredictionMode: "auto",
		FrameSource:    "spi",

		SerialBaudRate:   115200,
		FrontendBaudRate: 115200,

		MQTTClientIDGlove:   "sign-glove",
		MQTTClientIDConsole: "sign-glove-console",
		MQTTClientIDWeb:     "sign-glove-web",
		TopicRecords:        "glove/records",
		TopicControl:        "glove/control",

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "GPIO8",

		FlexI2CBus:   "1",
		FlexADCAddrA: 0x48,
		FlexADCAddrB: 0x49,
		FlexMin:      [5]int{9000, 9000, 9000, 9000, 9000},
		FlexMax:      [5]int{21000, 21000, 21000, 21000, 21000},

		TriggerPin: "GPIO17",
		LEDPin:     "GPIO27",
		BuzzerPin:  "GPIO22",

		DisplayI2CAddr: 0x3C,

		DebounceMS:      50,
		GestureTickMS:   100,
		SentenceTickMS:  10,
		CollectPeriodMS: 50,

		RawLogDir: "captures",

		EmitQueueSize: 64,

		WebServerPort: 8080,
	}
}

// Package-level unexported variables for the singleton:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: InitGlobal only loads once.
//   - configMu: write lock for initialization, read lock for Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file on top of Default.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default. Blank lines and
// lines starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Modes
	case "RUN_MODE":
		c.RunMode, err = oneOf(key, value, "predict", "collect")
	case "PREDICTION_MODE":
		c.PredictionMode, err = oneOf(key, value, "gesture", "sentence", "auto")
	case "FRAME_SOURCE":
		c.FrameSource, err = oneOf(key, value, "spi", "serial", "mock")

	// Serial links
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = intRange(key, value, 1200, 4000000)
	case "FRONTEND_SERIAL_PORT":
		c.FrontendSerialPort = value
	case "FRONTEND_BAUD_RATE":
		c.FrontendBaudRate, err = intRange(key, value, 1200, 4000000)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_GLOVE":
		c.MQTTClientIDGlove = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_RECORDS":
		c.TopicRecords = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// IMU Sensor Ranges
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// Flex ADCs
	case "FLEX_I2C_BUS":
		c.FlexI2CBus = value
	case "FLEX_ADC_ADDR_A":
		c.FlexADCAddrA, err = i2cAddr(key, value)
	case "FLEX_ADC_ADDR_B":
		c.FlexADCAddrB, err = i2cAddr(key, value)
	case "FLEX_MIN":
		c.FlexMin, err = flexCounts(key, value)
	case "FLEX_MAX":
		c.FlexMax, err = flexCounts(key, value)

	// GPIO
	case "TRIGGER_PIN":
		c.TriggerPin = value
	case "LED_PIN":
		c.LEDPin = value
	case "BUZZER_PIN":
		c.BuzzerPin = value

	// Display
	case "DISPLAY_I2C_ADDR":
		c.DisplayI2CAddr, err = i2cAddr(key, value)

	// Timing
	case "DEBOUNCE_MS":
		c.DebounceMS, err = intRange(key, value, 0, 10000)
	case "GESTURE_TICK_MS":
		c.GestureTickMS, err = intRange(key, value, 1, 10000)
	case "SENTENCE_TICK_MS":
		c.SentenceTickMS, err = intRange(key, value, 1, 10000)
	case "COLLECT_PERIOD_MS":
		c.CollectPeriodMS, err = intRange(key, value, 1, 10000)

	// Raw logging
	case "RAW_LOG_DIR":
		c.RawLogDir = value

	// Output
	case "EMIT_QUEUE_SIZE":
		c.EmitQueueSize, err = intRange(key, value, 1, 1<<16)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = intRange(key, value, 1, 65535)
	case "WEB_ADVERTISE":
		c.WebAdvertise, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid WEB_ADVERTISE %q: %w", value, err)
		}

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func oneOf(key, value string, allowed ...string) (string, error) {
	v := strings.ToLower(value)
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func intRange(key, value string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func i2cAddr(key, value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("%s must be a 7-bit address, got %#x", key, addr)
	}
	return uint16(addr), nil
}

// flexCounts parses five comma separated ADC counts.
func flexCounts(key, value string) ([5]int, error) {
	var out [5]int
	parts := strings.Split(value, ",")
	if len(parts) != len(out) {
		return out, fmt.Errorf("%s needs %d comma separated values, got %d", key, len(out), len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("invalid %s value %d %q: %w", key, i+1, p, err)
		}
		out[i] = n
	}
	return out, nil
}

// validate checks the combinations setValue cannot see on its own.
func (c *Config) validate() error {
	for i := range c.FlexMin {
		if c.FlexMax[i] <= c.FlexMin[i] {
			return fmt.Errorf("FLEX_MAX must exceed FLEX_MIN for flex %d (%d <= %d)", i+1, c.FlexMax[i], c.FlexMin[i])
		}
	}
	if c.FrameSource == "spi" && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required when FRAME_SOURCE=spi")
	}
	if c.FrameSource == "serial" && c.FrontendSerialPort == "" {
		return fmt.Errorf("FRONTEND_SERIAL_PORT is required when FRAME_SOURCE=serial")
	}
	if c.FrontendSerialPort != "" && c.FrontendSerialPort == c.SerialPort {
		return fmt.Errorf("FRONTEND_SERIAL_PORT and SERIAL_PORT must differ")
	}
	if c.MQTTBroker != "" && (c.TopicRecords == "" || c.TopicControl == "") {
		return fmt.Errorf("TOPIC_RECORDS and TOPIC_CONTROL are required with MQTT_BROKER")
	}
	return nil
}

func (c *Config) Debounce() time.Duration      { return ms(c.DebounceMS) }
func (c *Config) GestureTick() time.Duration   { return ms(c.GestureTickMS) }
func (c *Config) SentenceTick() time.Duration  { return ms(c.SentenceTickMS) }
func (c *Config) CollectPeriod() time.Duration { return ms(c.CollectPeriodMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call loads; later calls return nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
