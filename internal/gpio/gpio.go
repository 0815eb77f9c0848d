// Package gpio drives the enclosure's digital lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// LED is the state of the bi-colour status indicator.
type LED int

const (
	LEDOff LED = iota
	LEDGreen
	LEDAmber
	LEDRed
)

func (l LED) String() string {
	switch l {
	case LEDGreen:
		return "GREEN"
	case LEDAmber:
		return "AMBER"
	case LEDRed:
		return "RED"
	default:
		return "OFF"
	}
}

// Levels returns the (red, green) line levels for the LED state.
// Amber lights both dies.
func (l LED) Levels() (red, green int) {
	switch l {
	case LEDGreen:
		return 0, 1
	case LEDAmber:
		return 1, 1
	case LEDRed:
		return 1, 0
	default:
		return 0, 0
	}
}

// Board is the set of digital collaborators the monitor drives.
type Board interface {
	// SetLED shows the given status colour.
	SetLED(LED) error

	// SetGrowLight switches the grow light relay.
	SetGrowLight(on bool) error

	// ReadSwitch returns the logical state of the front panel switch.
	ReadSwitch() (bool, error)

	// SetToggle drives the output controlled by the switch.
	SetToggle(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRed       = 17
	DefaultPinGreen     = 27
	DefaultPinGrowLight = 22
	DefaultPinSwitch    = 23
	DefaultPinToggle    = 24
	DefaultPinFlow      = 25
	DefaultPinDHT       = 4
)

// DefaultChip is the Pi's main GPIO controller.
const DefaultChip = "gpiochip0"

// Pins maps each function to a BCM line offset.
type Pins struct {
	Red       int
	Green     int
	GrowLight int
	Switch    int
	Toggle    int
	Flow      int
	DHT       int
}

// DefaultPins returns the standard wiring.
func DefaultPins() Pins {
	return Pins{
		Red:       DefaultPinRed,
		Green:     DefaultPinGreen,
		GrowLight: DefaultPinGrowLight,
		Switch:    DefaultPinSwitch,
		Toggle:    DefaultPinToggle,
		Flow:      DefaultPinFlow,
		DHT:       DefaultPinDHT,
	}
}
