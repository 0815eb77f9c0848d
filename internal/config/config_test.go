package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip)
	assert.Equal(t, byte(0x27), cfg.I2C.LCDAddress)
	assert.Equal(t, byte(0x48), cfg.I2C.ADCAddress)
	assert.Equal(t, "brass", cfg.Flow.Sensor)
	assert.Equal(t, 6.0, cfg.Oxygen.Placeholder)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesSelectedFields(t *testing.T) {
	path := writeConfig(t, `
gpio:
  led_red: 5
  dht: 6
i2c:
  lcd_address: 0x3f
flow:
  sensor: plastic
report:
  url: http://collector.lan/aq
  timeout: 3s
mqtt:
  broker: ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.GPIO.LEDRed)
	assert.Equal(t, 6, cfg.GPIO.DHT)
	assert.Equal(t, Default().GPIO.LEDGreen, cfg.GPIO.LEDGreen, "unset fields keep defaults")
	assert.Equal(t, byte(0x3f), cfg.I2C.LCDAddress)
	assert.Equal(t, "plastic", cfg.Flow.Sensor)
	assert.Equal(t, "http://collector.lan/aq", cfg.Report.URL)
	assert.Equal(t, 3*time.Second, cfg.Report.Timeout)
	assert.Empty(t, cfg.MQTT.Broker)

	pins := cfg.Pins()
	assert.Equal(t, 5, pins.Red)
	assert.Equal(t, 6, pins.DHT)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "gpio: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"duplicate pin", func(c *Config) { c.GPIO.Toggle = c.GPIO.LEDRed }, "already used by gpio.led_red"},
		{"negative pin", func(c *Config) { c.GPIO.DHT = -1 }, "negative pin"},
		{"unknown flow sensor", func(c *Config) { c.Flow.Sensor = "copper" }, "unknown flow sensor"},
		{"shared i2c address", func(c *Config) { c.I2C.ADCAddress = c.I2C.LCDAddress }, "share address"},
		{"adc channel", func(c *Config) { c.ADC.Channel = 4 }, "out of range"},
		{"empty report url", func(c *Config) { c.Report.URL = "" }, "report.url"},
		{"zero timeout", func(c *Config) { c.Report.Timeout = 0 }, "report.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
