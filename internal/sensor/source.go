package sensor

import (
	"fmt"
	"time"
)

// Source acquires one or more channels on demand.
// Acquire must return within roughly one sensor's latency (~250ms).
// On failure it returns readings marked invalid together with an *AcquireError.
type Source interface {
	Channels() []Channel
	Acquire(now time.Time) ([]Reading, error)
}

// Code classifies an acquisition failure.
type Code string

const (
	CodeChecksum     Code = "checksum_mismatch"
	CodeAcquiring    Code = "acquiring"
	CodeResponse     Code = "response_timeout"
	CodeDataTimeout  Code = "data_timeout"
	CodeDeltaSmall   Code = "delta_too_small"
	CodeNotStarted   Code = "not_started"
	CodeNoDevice     Code = "no_device"
	CodeCRC          Code = "crc_mismatch"
	CodeNotConverted Code = "conversion_pending"
	CodeOutOfRange   Code = "out_of_range"
	CodeIO           Code = "io_error"
	CodeUnknown      Code = "unknown"
)

// AcquireError is returned by every Source on failure. All codes are
// retry-next-cycle; none is fatal.
type AcquireError struct {
	Channel Channel
	Code    Code
	Err     error
}

func (e *AcquireError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Channel, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Channel, e.Code)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// Message returns the short operator-facing text for the failure.
func (e *AcquireError) Message() string {
	switch e.Code {
	case CodeChecksum, CodeCRC:
		return "checksum error"
	case CodeAcquiring:
		return "acquiring"
	case CodeResponse:
		return "no response"
	case CodeDataTimeout:
		return "data timeout"
	case CodeDeltaSmall:
		return "signal too weak"
	case CodeNotStarted:
		return "not started"
	case CodeNoDevice:
		return "no device"
	case CodeNotConverted:
		return "converting"
	case CodeOutOfRange:
		return "out of range"
	case CodeIO:
		return "io error"
	}
	return "unknown error"
}

func invalid(channels []Channel, now time.Time) []Reading {
	out := make([]Reading, len(channels))
	for i, ch := range channels {
		out[i] = Reading{Channel: ch, Time: now}
	}
	return out
}
