// Package sensor models the monitored channels and the probes that acquire them.
// Probes never panic or block indefinitely: every failure is reported as an
// *AcquireError and the caller keeps the last good value.
package sensor

import (
	"errors"
	"time"
)

// Channel identifies one monitored physical quantity.
type Channel string

const (
	Ambient  Channel = "AMBIENT"
	Water    Channel = "WATER"
	Humidity Channel = "HUMIDITY"
	FlowRate Channel = "FLOWRATE"
	PH       Channel = "PH"
	DO       Channel = "DO"
)

// Channels lists every channel in display order.
var Channels = []Channel{Ambient, Water, Humidity, FlowRate, PH, DO}

// Reading is one channel's sampled value.
type Reading struct {
	Channel Channel
	Value   float64
	Valid   bool
	Time    time.Time
}

// Entry is the stored state of one channel inside a Set.
type Entry struct {
	// Last good reading. Zero value until the first successful acquisition.
	Reading Reading
	// Stale is true when the most recent acquisition failed.
	Stale bool
	// LastError is the human-readable message of the most recent failure.
	LastError string
	Failures  int
}

// HasValue reports whether the channel has ever produced a valid reading.
func (e Entry) HasValue() bool {
	return e.Reading.Valid
}

// Set holds the latest reading of every channel. It is owned by the main loop
// and is not safe for concurrent use; hand out copies with Snapshot.
type Set struct {
	entries map[Channel]*Entry
}

// NewSet creates an empty Set with an entry for every channel.
func NewSet() *Set {
	s := &Set{entries: make(map[Channel]*Entry, len(Channels))}
	for _, ch := range Channels {
		s.entries[ch] = &Entry{}
	}
	return s
}

// Update stores valid readings. Invalid readings leave the previous value in
// place and only mark the channel stale.
func (s *Set) Update(readings []Reading) {
	for _, r := range readings {
		e := s.entry(r.Channel)
		if !r.Valid {
			e.Stale = true
			continue
		}
		e.Reading = r
		e.Stale = false
		e.LastError = ""
	}
}

// Fail records an acquisition failure against the given channels.
func (s *Set) Fail(channels []Channel, err error) {
	for _, ch := range channels {
		e := s.entry(ch)
		e.Stale = true
		e.Failures++
		if err != nil {
			e.LastError = failureMessage(err)
		}
	}
}

func failureMessage(err error) string {
	var ae *AcquireError
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return err.Error()
}

// Value returns the last good value of a channel (0 if none yet).
func (s *Set) Value(ch Channel) float64 {
	return s.entry(ch).Reading.Value
}

// Get returns a copy of the channel's entry.
func (s *Set) Get(ch Channel) Entry {
	return *s.entry(ch)
}

// Snapshot returns an immutable copy safe to hand to other goroutines.
func (s *Set) Snapshot() Snapshot {
	snap := make(Snapshot, len(s.entries))
	for ch, e := range s.entries {
		snap[ch] = *e
	}
	return snap
}

func (s *Set) entry(ch Channel) *Entry {
	e, ok := s.entries[ch]
	if !ok {
		e = &Entry{}
		s.entries[ch] = e
	}
	return e
}

// Snapshot is a value copy of a Set.
type Snapshot map[Channel]Entry

// Value returns the last good value of a channel (0 if none yet).
func (s Snapshot) Value(ch Channel) float64 {
	return s[ch].Reading.Value
}

// Get returns the channel's entry.
func (s Snapshot) Get(ch Channel) Entry {
	return s[ch]
}
