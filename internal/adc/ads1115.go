// Package adc reads the pH amplifier through an ADS1115 on the I2C bus and
// presents samples as 10-bit counts over a 5V reference, the scale the pH
// calibration constants were derived on.
package adc

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/reef-pi/rpi/i2c"
)

// DefaultAddress is the ADS1115 address with ADDR tied to GND.
const DefaultAddress = 0x48

const (
	regConversion = 0x00
	regConfig     = 0x01

	configOSSingle   = 0x8000
	configMuxSingle0 = 0x4000 // AIN0 vs GND; AINn adds n<<12
	configPGA6144    = 0x0000 // +/-6.144V full scale
	configModeSingle = 0x0100
	configDR860      = 0x00E0
	configCompOff    = 0x0003

	fullScaleV = 6.144
	refV       = 5.0
	maxCount   = 1023

	convTimeout  = 20 * time.Millisecond
	convPollWait = 1 * time.Millisecond
)

// ADS1115 is one single-ended input of an ADS1115.
type ADS1115 struct {
	bus     i2c.Bus
	addr    byte
	channel int
	sleep   func(time.Duration)
	now     func() time.Time
}

// New returns a reader for the given input (0-3).
func New(bus i2c.Bus, addr byte, channel int) (*ADS1115, error) {
	if channel < 0 || channel > 3 {
		return nil, fmt.Errorf("ads1115: channel %d out of range 0-3", channel)
	}
	return &ADS1115{bus: bus, addr: addr, channel: channel, sleep: time.Sleep, now: time.Now}, nil
}

// ReadRaw performs one single-shot conversion and returns 10-bit counts.
func (a *ADS1115) ReadRaw() (int, error) {
	raw, err := a.convert()
	if err != nil {
		return 0, err
	}
	return Counts10(raw), nil
}

func (a *ADS1115) convert() (int16, error) {
	cfg := uint16(configOSSingle | configMuxSingle0 | configPGA6144 | configModeSingle | configDR860 | configCompOff)
	cfg |= uint16(a.channel) << 12

	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, cfg)
	if err := a.bus.WriteToReg(a.addr, regConfig, buf); err != nil {
		return 0, fmt.Errorf("ads1115: write config: %w", err)
	}

	deadline := a.now().Add(convTimeout)
	for {
		if err := a.bus.ReadFromReg(a.addr, regConfig, buf); err != nil {
			return 0, fmt.Errorf("ads1115: read config: %w", err)
		}
		if binary.BigEndian.Uint16(buf)&configOSSingle != 0 {
			break
		}
		if a.now().After(deadline) {
			return 0, fmt.Errorf("ads1115: conversion timeout")
		}
		a.sleep(convPollWait)
	}

	if err := a.bus.ReadFromReg(a.addr, regConversion, buf); err != nil {
		return 0, fmt.Errorf("ads1115: read conversion: %w", err)
	}
	return int16(binary.BigEndian.Uint16(buf)), nil
}

// Counts10 rescales a raw ADS1115 code at +/-6.144V to 10-bit counts over
// 0-5V, clamped to 0-1023.
func Counts10(raw int16) int {
	volts := float64(raw) / 32768 * fullScaleV
	n := int(volts / refV * 1024)
	if n < 0 {
		return 0
	}
	if n > maxCount {
		return maxCount
	}
	return n
}
