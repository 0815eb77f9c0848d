package sensor

import "time"

// DefaultOxygenPlaceholder is reported while no dissolved oxygen probe is wired.
const DefaultOxygenPlaceholder = 6.0

// DissolvedOxygenProbe reads dissolved oxygen in mg/L. Without a reader it
// reports a fixed placeholder.
type DissolvedOxygenProbe struct {
	placeholder float64
	read        func() (float64, error)
}

// NewPlaceholderOxygenProbe returns a probe that always reports value.
func NewPlaceholderOxygenProbe(value float64) *DissolvedOxygenProbe {
	return &DissolvedOxygenProbe{placeholder: value}
}

// NewOxygenProbe wraps a live reader returning mg/L.
func NewOxygenProbe(read func() (float64, error)) *DissolvedOxygenProbe {
	return &DissolvedOxygenProbe{read: read}
}

// Channels implements Source.
func (p *DissolvedOxygenProbe) Channels() []Channel {
	return []Channel{DO}
}

// Acquire implements Source.
func (p *DissolvedOxygenProbe) Acquire(now time.Time) ([]Reading, error) {
	if p.read == nil {
		return []Reading{{Channel: DO, Value: p.placeholder, Valid: true, Time: now}}, nil
	}
	v, err := p.read()
	if err != nil {
		return invalid(p.Channels(), now), &AcquireError{Channel: DO, Code: CodeIO, Err: err}
	}
	return []Reading{{Channel: DO, Value: v, Valid: true, Time: now}}, nil
}
