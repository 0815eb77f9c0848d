// Package config loads the hardware wiring and endpoints of the monitor.
// Cadences and thresholds are fixed in code, not configured.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/aquaponics-monitor/internal/adc"
	"github.com/sweeney/aquaponics-monitor/internal/display"
	"github.com/sweeney/aquaponics-monitor/internal/gpio"
	"github.com/sweeney/aquaponics-monitor/internal/onewire"
	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// Config represents the application configuration.
type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	I2C     I2CConfig     `yaml:"i2c"`
	ADC     ADCConfig     `yaml:"adc"`
	OneWire OneWireConfig `yaml:"onewire"`
	Flow    FlowConfig    `yaml:"flow"`
	Oxygen  OxygenConfig  `yaml:"oxygen"`
	Report  ReportConfig  `yaml:"report"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

// GPIOConfig contains BCM line offsets.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	LEDRed    int    `yaml:"led_red"`
	LEDGreen  int    `yaml:"led_green"`
	GrowLight int    `yaml:"grow_light"`
	Switch    int    `yaml:"switch"`
	Toggle    int    `yaml:"toggle"`
	Flow      int    `yaml:"flow"`
	DHT       int    `yaml:"dht"`
}

// I2CConfig contains 7-bit device addresses.
type I2CConfig struct {
	LCDAddress byte `yaml:"lcd_address"`
	ADCAddress byte `yaml:"adc_address"`
}

// ADCConfig selects the pH probe input.
type ADCConfig struct {
	Channel int `yaml:"channel"`
}

// OneWireConfig locates the kernel w1 tree.
type OneWireConfig struct {
	Root string `yaml:"root"`
}

// FlowConfig selects the flow sensor model.
type FlowConfig struct {
	Sensor string `yaml:"sensor"`
}

// OxygenConfig holds the dissolved oxygen placeholder value (mg/L).
type OxygenConfig struct {
	Placeholder float64 `yaml:"placeholder"`
}

// ReportConfig locates the remote collector.
type ReportConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig contains the mirror broker. Empty disables the mirror.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig locates the append-only event log.
type LogConfig struct {
	Path string `yaml:"path"`
}

// Default returns a configuration matching the standard enclosure.
func Default() *Config {
	pins := gpio.DefaultPins()
	return &Config{
		GPIO: GPIOConfig{
			Chip:      gpio.DefaultChip,
			LEDRed:    pins.Red,
			LEDGreen:  pins.Green,
			GrowLight: pins.GrowLight,
			Switch:    pins.Switch,
			Toggle:    pins.Toggle,
			Flow:      pins.Flow,
			DHT:       pins.DHT,
		},
		I2C: I2CConfig{
			LCDAddress: display.DefaultAddress,
			ADCAddress: adc.DefaultAddress,
		},
		ADC:     ADCConfig{Channel: 0},
		OneWire: OneWireConfig{Root: onewire.DefaultRoot},
		Flow:    FlowConfig{Sensor: string(sensor.FlowBrass)},
		Oxygen:  OxygenConfig{Placeholder: sensor.DefaultOxygenPlaceholder},
		Report: ReportConfig{
			URL:     "http://localhost/aquaponics",
			Timeout: 10 * time.Second,
		},
		MQTT: MQTTConfig{Broker: "tcp://localhost:1883"},
		HTTP: HTTPConfig{Addr: ":80"},
		Log:  LogConfig{Path: "/var/log/aquaponics.log"},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults; fields absent from the file keep their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Pins returns the GPIO wiring.
func (c *Config) Pins() gpio.Pins {
	return gpio.Pins{
		Red:       c.GPIO.LEDRed,
		Green:     c.GPIO.LEDGreen,
		GrowLight: c.GPIO.GrowLight,
		Switch:    c.GPIO.Switch,
		Toggle:    c.GPIO.Toggle,
		Flow:      c.GPIO.Flow,
		DHT:       c.GPIO.DHT,
	}
}

// Validate rejects wiring the hardware layer cannot honour.
func (c *Config) Validate() error {
	var errs []error

	seen := map[int]string{}
	lines := []struct {
		name string
		pin  int
	}{
		{"led_red", c.GPIO.LEDRed},
		{"led_green", c.GPIO.LEDGreen},
		{"grow_light", c.GPIO.GrowLight},
		{"switch", c.GPIO.Switch},
		{"toggle", c.GPIO.Toggle},
		{"flow", c.GPIO.Flow},
		{"dht", c.GPIO.DHT},
	}
	for _, l := range lines {
		if l.pin < 0 {
			errs = append(errs, fmt.Errorf("gpio.%s: negative pin %d", l.name, l.pin))
			continue
		}
		if other, ok := seen[l.pin]; ok {
			errs = append(errs, fmt.Errorf("gpio.%s: pin %d already used by gpio.%s", l.name, l.pin, other))
			continue
		}
		seen[l.pin] = l.name
	}

	if c.I2C.LCDAddress == c.I2C.ADCAddress {
		errs = append(errs, fmt.Errorf("i2c: lcd and adc share address 0x%02x", c.I2C.LCDAddress))
	}
	if c.ADC.Channel < 0 || c.ADC.Channel > 3 {
		errs = append(errs, fmt.Errorf("adc.channel: %d out of range 0-3", c.ADC.Channel))
	}
	if _, err := sensor.ParseFlowSensor(c.Flow.Sensor); err != nil {
		errs = append(errs, fmt.Errorf("flow.sensor: %w", err))
	}
	if c.Report.URL == "" {
		errs = append(errs, errors.New("report.url: required"))
	}
	if c.Report.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("report.timeout: must be positive, got %v", c.Report.Timeout))
	}

	return errors.Join(errs...)
}
