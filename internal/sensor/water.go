package sensor

import (
	"fmt"
	"time"
)

// ROM is a 1-Wire device address: family code, 6-byte serial, CRC-8.
type ROM [8]byte

func (r ROM) String() string {
	return fmt.Sprintf("%02x-%02x%02x%02x%02x%02x%02x", r[0], r[6], r[5], r[4], r[3], r[2], r[1])
}

// Valid reports whether the trailing byte matches the CRC-8 of the first seven.
func (r ROM) Valid() bool {
	return CRC8(r[:7]) == r[7]
}

// OneWireBus is the subset of a 1-Wire master the water probe needs.
type OneWireBus interface {
	Devices() ([]ROM, error)
	// Convert starts a temperature conversion and returns immediately.
	Convert(rom ROM) error
	ReadScratchpad(rom ROM) ([9]byte, error)
}

const (
	familyDS18B20 = 0x28

	WaterMinC = 0.0
	WaterMaxC = 50.0
)

// WaterTemperatureProbe reads a DS18B20. Conversion is started on one call
// and collected on the next, so the settle time is the task's cadence.
type WaterTemperatureProbe struct {
	bus        OneWireBus
	rom        *ROM
	converting bool
	last       Reading
}

// NewWaterTemperatureProbe creates a probe on the given bus.
func NewWaterTemperatureProbe(bus OneWireBus) *WaterTemperatureProbe {
	return &WaterTemperatureProbe{bus: bus}
}

// Channels implements Source.
func (p *WaterTemperatureProbe) Channels() []Channel {
	return []Channel{Water}
}

// Last returns the most recent accepted reading.
func (p *WaterTemperatureProbe) Last() Reading {
	return p.last
}

// Acquire implements Source.
func (p *WaterTemperatureProbe) Acquire(now time.Time) ([]Reading, error) {
	if p.rom == nil {
		if err := p.discover(); err != nil {
			return invalid(p.Channels(), now), err
		}
	}

	if !p.converting {
		if err := p.startConversion(); err != nil {
			return invalid(p.Channels(), now), err
		}
		return invalid(p.Channels(), now), p.fail(CodeNotConverted, nil)
	}

	sp, err := p.bus.ReadScratchpad(*p.rom)
	p.converting = false
	if err != nil {
		p.rom = nil
		return invalid(p.Channels(), now), p.fail(CodeIO, err)
	}
	// Re-arm for the next cycle regardless of this frame's outcome. A failed
	// re-arm clears the ROM, so the next call rediscovers and reports it.
	_ = p.startConversion()

	if CRC8(sp[:8]) != sp[8] {
		return invalid(p.Channels(), now), p.fail(CodeCRC, nil)
	}

	c := ScratchpadCelsius(sp)
	if c < WaterMinC || c > WaterMaxC {
		// Previous accepted value stays in place.
		return invalid(p.Channels(), now), p.fail(CodeOutOfRange, fmt.Errorf("%.2fC", c))
	}

	p.last = Reading{Channel: Water, Value: c, Valid: true, Time: now}
	return []Reading{p.last}, nil
}

func (p *WaterTemperatureProbe) discover() error {
	roms, err := p.bus.Devices()
	if err != nil {
		return p.fail(CodeIO, err)
	}
	for _, rom := range roms {
		if rom[0] != familyDS18B20 {
			continue
		}
		if !rom.Valid() {
			return p.fail(CodeCRC, fmt.Errorf("rom %s", rom))
		}
		r := rom
		p.rom = &r
		return nil
	}
	return p.fail(CodeNoDevice, nil)
}

func (p *WaterTemperatureProbe) startConversion() error {
	if err := p.bus.Convert(*p.rom); err != nil {
		p.rom = nil
		p.converting = false
		return p.fail(CodeIO, err)
	}
	p.converting = true
	return nil
}

func (p *WaterTemperatureProbe) fail(code Code, err error) error {
	return &AcquireError{Channel: Water, Code: code, Err: err}
}

// ScratchpadCelsius decodes the two's complement temperature in bytes 0-1
// (LSB first) at 1/16 C resolution.
func ScratchpadCelsius(sp [9]byte) float64 {
	raw := int16(uint16(sp[1])<<8 | uint16(sp[0]))
	return float64(raw) / 16
}

// CRC8 computes the Dallas/Maxim 1-Wire CRC (polynomial x^8+x^5+x^4+1).
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			mix := (crc ^ b) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8C
			}
			b >>= 1
		}
	}
	return crc
}
