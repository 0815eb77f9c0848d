package sensor

import (
	"sort"
	"time"
)

// AnalogReader returns one raw sample in 10-bit counts (0-1023 over 0-5V).
type AnalogReader interface {
	ReadRaw() (int, error)
}

const (
	phSamples     = 10
	phTrim        = 2
	phSampleDelay = 10 * time.Millisecond
)

// PHProbe samples an analog pH electrode amplifier and applies an
// outlier-trimmed mean before the linear calibration.
type PHProbe struct {
	adc   AnalogReader
	sleep func(time.Duration)
}

// NewPHProbe creates a probe reading from adc.
func NewPHProbe(adc AnalogReader) *PHProbe {
	return &PHProbe{adc: adc, sleep: time.Sleep}
}

// Channels implements Source.
func (p *PHProbe) Channels() []Channel {
	return []Channel{PH}
}

// Acquire implements Source.
func (p *PHProbe) Acquire(now time.Time) ([]Reading, error) {
	samples := make([]int, phSamples)
	for i := range samples {
		v, err := p.adc.ReadRaw()
		if err != nil {
			return invalid(p.Channels(), now), &AcquireError{Channel: PH, Code: CodeIO, Err: err}
		}
		samples[i] = v
		if i < phSamples-1 {
			p.sleep(phSampleDelay)
		}
	}
	return []Reading{{Channel: PH, Value: PHFromSamples(samples), Valid: true, Time: now}}, nil
}

// TrimmedMean sorts the samples, drops the two lowest and two highest and
// averages the rest.
func TrimmedMean(samples []int) float64 {
	sorted := append([]int(nil), samples...)
	sort.Ints(sorted)
	mid := sorted[phTrim : len(sorted)-phTrim]
	sum := 0
	for _, v := range mid {
		sum += v
	}
	return float64(sum) / float64(len(mid))
}

// PHFromSamples applies the calibration pH = 3.5 * (avg * 5.0 / 1024 / 6)
// to the trimmed mean. The constants match the deployed probe's calibration.
func PHFromSamples(samples []int) float64 {
	avg := TrimmedMean(samples)
	phValue := avg * 5.0 / 1024 / 6
	return 3.5 * phValue
}
