package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	var ae *AcquireError
	require.True(t, errors.As(err, &ae), "expected *AcquireError, got %v", err)
	assert.Equal(t, code, ae.Code)
}

func TestSetUpdateKeepsLastGoodValue(t *testing.T) {
	s := NewSet()
	s.Update([]Reading{{Channel: Water, Value: 24.5, Valid: true, Time: t0}})
	s.Update([]Reading{{Channel: Water, Value: 99, Valid: false, Time: t0.Add(time.Second)}})

	e := s.Get(Water)
	assert.Equal(t, 24.5, e.Reading.Value)
	assert.True(t, e.Stale)
	assert.True(t, e.HasValue())
	assert.Equal(t, t0, e.Reading.Time)
}

func TestSetFailRecordsMessage(t *testing.T) {
	s := NewSet()
	s.Fail([]Channel{Ambient, Humidity}, &AcquireError{Channel: Humidity, Code: CodeChecksum})

	for _, ch := range []Channel{Ambient, Humidity} {
		e := s.Get(ch)
		assert.True(t, e.Stale)
		assert.Equal(t, 1, e.Failures)
		assert.Equal(t, "checksum error", e.LastError)
		assert.False(t, e.HasValue())
	}

	s.Update([]Reading{{Channel: Ambient, Value: 21, Valid: true, Time: t0}})
	assert.Empty(t, s.Get(Ambient).LastError)
	assert.False(t, s.Get(Ambient).Stale)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewSet()
	s.Update([]Reading{{Channel: PH, Value: 7, Valid: true}})
	snap := s.Snapshot()
	s.Update([]Reading{{Channel: PH, Value: 6, Valid: true}})

	assert.Equal(t, 7.0, snap.Value(PH))
	assert.Equal(t, 6.0, s.Value(PH))
}

func TestTrimmedMeanDropsOutliers(t *testing.T) {
	samples := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	assert.Equal(t, 55.0, TrimmedMean(samples))

	shuffled := []int{100, 10, 60, 30, 90, 20, 50, 80, 40, 70}
	assert.Equal(t, 55.0, TrimmedMean(shuffled))

	spikes := []int{500, 500, 0, 0, 50, 50, 50, 50, 50, 50}
	assert.Equal(t, 50.0, TrimmedMean(spikes))
}

func TestPHFromSamples(t *testing.T) {
	samples := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	phValue := 55 * 5.0 / 1024 / 6
	assert.InDelta(t, 0.0448, phValue, 0.0001)
	assert.InDelta(t, 0.157, PHFromSamples(samples), 0.001)
	assert.InDelta(t, 3.5*phValue, PHFromSamples(samples), 1e-12)
}

func TestPHProbeAcquire(t *testing.T) {
	adc := &FakeAnalog{Samples: []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}}
	p := NewPHProbe(adc)
	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }

	rs, err := p.Acquire(t0)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.True(t, rs[0].Valid)
	assert.Equal(t, PH, rs[0].Channel)
	assert.InDelta(t, 0.1567, rs[0].Value, 0.0001)
	assert.Len(t, slept, phSamples-1)
}

func TestPHProbeReadError(t *testing.T) {
	p := NewPHProbe(&FakeAnalog{Err: errors.New("i2c: nack")})
	p.sleep = func(time.Duration) {}

	rs, err := p.Acquire(t0)
	requireCode(t, err, CodeIO)
	require.Len(t, rs, 1)
	assert.False(t, rs[0].Valid)
}

func TestScratchpadCelsius(t *testing.T) {
	tests := []struct {
		name string
		lsb  byte
		msb  byte
		want float64
	}{
		{"25C", 0x90, 0x01, 25.0},
		{"zero", 0x00, 0x00, 0},
		{"85C power-on", 0x50, 0x05, 85.0},
		{"negative", 0x5E, 0xFF, -10.125},
		{"fraction", 0x91, 0x01, 25.0625},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sp [9]byte
			sp[0], sp[1] = tt.lsb, tt.msb
			assert.Equal(t, tt.want, ScratchpadCelsius(sp))
		})
	}
}

func TestCRC8KnownROM(t *testing.T) {
	// Example ROM from the Maxim 1-Wire application note 27.
	rom := ROM{0x02, 0x1C, 0xB8, 0x01, 0x00, 0x00, 0x00, 0xA2}
	assert.True(t, rom.Valid())
	rom[7] = 0xA3
	assert.False(t, rom.Valid())
}

func TestWaterProbeConvertThenRead(t *testing.T) {
	bus := &FakeOneWire{
		ROMs:        []ROM{NewROM([6]byte{1, 2, 3, 4, 5, 6})},
		Scratchpads: [][9]byte{NewScratchpad(0x0190)},
	}
	p := NewWaterTemperatureProbe(bus)

	rs, err := p.Acquire(t0)
	requireCode(t, err, CodeNotConverted)
	assert.False(t, rs[0].Valid)
	assert.Equal(t, 1, bus.Conversions)

	rs, err = p.Acquire(t0.Add(4 * time.Second))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.True(t, rs[0].Valid)
	assert.Equal(t, 25.0, rs[0].Value)
	assert.Equal(t, 2, bus.Conversions, "next conversion is started after each read")
}

func TestWaterProbeRejectsOutOfRange(t *testing.T) {
	bus := &FakeOneWire{
		ROMs: []ROM{NewROM([6]byte{1, 2, 3, 4, 5, 6})},
		Scratchpads: [][9]byte{
			NewScratchpad(0x0190), // 25.0
			NewScratchpad(0x03C0), // 60.0
		},
	}
	p := NewWaterTemperatureProbe(bus)
	set := NewSet()

	p.Acquire(t0)
	rs, err := p.Acquire(t0.Add(4 * time.Second))
	require.NoError(t, err)
	set.Update(rs)

	rs, err = p.Acquire(t0.Add(8 * time.Second))
	requireCode(t, err, CodeOutOfRange)
	set.Update(rs)

	assert.Equal(t, 25.0, set.Value(Water))
	assert.Equal(t, 25.0, p.Last().Value)
	assert.True(t, set.Get(Water).Stale)
}

func TestWaterProbeBadROMCRC(t *testing.T) {
	rom := NewROM([6]byte{9, 9, 9, 9, 9, 9})
	rom[7] ^= 0xFF
	p := NewWaterTemperatureProbe(&FakeOneWire{ROMs: []ROM{rom}})

	_, err := p.Acquire(t0)
	requireCode(t, err, CodeCRC)
}

func TestWaterProbeNoDevice(t *testing.T) {
	p := NewWaterTemperatureProbe(&FakeOneWire{ROMs: []ROM{{0x10, 1, 2, 3, 4, 5, 6, 0}}})

	_, err := p.Acquire(t0)
	requireCode(t, err, CodeNoDevice)
}

func TestWaterProbeScratchpadCRC(t *testing.T) {
	sp := NewScratchpad(0x0190)
	sp[8] ^= 0x01
	bus := &FakeOneWire{
		ROMs:        []ROM{NewROM([6]byte{1, 2, 3, 4, 5, 6})},
		Scratchpads: [][9]byte{sp},
	}
	p := NewWaterTemperatureProbe(bus)

	p.Acquire(t0)
	_, err := p.Acquire(t0.Add(4 * time.Second))
	requireCode(t, err, CodeCRC)
}

func TestWaterProbeReadErrorRediscovers(t *testing.T) {
	bus := &FakeOneWire{
		ROMs:        []ROM{NewROM([6]byte{1, 2, 3, 4, 5, 6})},
		Scratchpads: [][9]byte{NewScratchpad(0x0190)},
	}
	p := NewWaterTemperatureProbe(bus)
	p.Acquire(t0)

	bus.ReadErr = errors.New("w1: read failed")
	_, err := p.Acquire(t0.Add(4 * time.Second))
	requireCode(t, err, CodeIO)
	assert.Nil(t, p.rom)

	bus.ReadErr = nil
	_, err = p.Acquire(t0.Add(8 * time.Second))
	requireCode(t, err, CodeNotConverted)
	rs, err := p.Acquire(t0.Add(12 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 25.0, rs[0].Value)
}

func TestWaterProbeKeepsFrameWhenRearmFails(t *testing.T) {
	bus := &FakeOneWire{
		ROMs:        []ROM{NewROM([6]byte{1, 2, 3, 4, 5, 6})},
		Scratchpads: [][9]byte{NewScratchpad(0x0190)},
	}
	p := NewWaterTemperatureProbe(bus)
	p.Acquire(t0)

	bus.ConvertErr = errors.New("w1: bus reset")
	rs, err := p.Acquire(t0.Add(4 * time.Second))
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.True(t, rs[0].Valid)
	assert.Equal(t, 25.0, rs[0].Value)
	assert.Nil(t, p.rom, "failed re-arm forces rediscovery")

	_, err = p.Acquire(t0.Add(8 * time.Second))
	requireCode(t, err, CodeIO)

	bus.ConvertErr = nil
	_, err = p.Acquire(t0.Add(12 * time.Second))
	requireCode(t, err, CodeNotConverted)
}

func TestFlowLitres(t *testing.T) {
	assert.InDelta(t, 0.0667, FlowBrass.Litres(81), 0.0001)
	assert.InDelta(t, (81.0/8.1-6)/60, FlowBrass.Litres(81), 1e-12)
	assert.InDelta(t, 75.0/7.5/60, FlowPlastic.Litres(75), 1e-12)
	assert.Equal(t, 0.0, FlowBrass.Litres(0), "brass offset is clamped at zero")
}

func TestParseFlowSensor(t *testing.T) {
	s, err := ParseFlowSensor("plastic")
	require.NoError(t, err)
	assert.Equal(t, FlowPlastic, s)

	_, err = ParseFlowSensor("copper")
	assert.Error(t, err)
}

func TestFlowRateCounterReportsDelta(t *testing.T) {
	var c PulseCounter
	for i := 0; i < 5; i++ {
		c.Inc()
	}
	f := NewFlowRateCounter(&c, FlowBrass)

	for i := 0; i < 81; i++ {
		c.Inc()
	}
	rs, err := f.Acquire(t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0667, rs[0].Value, 0.0001)

	rs, _ = f.Acquire(t0.Add(6 * time.Second))
	assert.Equal(t, 0.0, rs[0].Value)
	assert.Equal(t, uint64(86), c.Count(), "counter is never reset")
}

func TestPulseCounterConcurrentProducer(t *testing.T) {
	var c PulseCounter
	f := NewFlowRateCounter(&c, FlowPlastic)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 900; i++ {
			c.Inc()
		}
	}()

	var total float64
	for i := 0; i < 10; i++ {
		rs, _ := f.Acquire(t0.Add(time.Duration(i) * time.Second))
		total += rs[0].Value
	}
	<-done
	rs, _ := f.Acquire(t0.Add(10 * time.Second))
	total += rs[0].Value

	assert.Equal(t, uint64(900), c.Count())
	assert.InDelta(t, 2.0, total, 1e-9, "900 pulses / 7.5 / 60")
}

// dhtFrame builds the edges of a sensor response followed by 40 data bits.
func dhtFrame(data [5]byte) []Edge {
	var edges []Edge
	at := 80 * time.Microsecond
	edges = append(edges, Edge{At: at, Rising: true})
	at += 80 * time.Microsecond
	edges = append(edges, Edge{At: at})
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			at += 50 * time.Microsecond
			edges = append(edges, Edge{At: at, Rising: true})
			if b&(1<<i) != 0 {
				at += 70 * time.Microsecond
			} else {
				at += 27 * time.Microsecond
			}
			edges = append(edges, Edge{At: at})
		}
	}
	return edges
}

func TestDecodeDHT(t *testing.T) {
	tests := []struct {
		name     string
		data     [5]byte
		wantT    float64
		wantRH   float64
		wantCode Code
	}{
		{"positive", [5]byte{0x02, 0x8C, 0x01, 0x5F, 0xEE}, 35.1, 65.2, ""},
		{"negative", [5]byte{0x02, 0x8C, 0x80, 0x65, 0x73}, -10.1, 65.2, ""},
		{"checksum", [5]byte{0x02, 0x8C, 0x01, 0x5F, 0xEF}, 0, 0, CodeChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, rh, code := DecodeDHT(dhtFrame(tt.data))
			assert.Equal(t, tt.wantCode, code)
			assert.InDelta(t, tt.wantT, temp, 1e-9)
			assert.InDelta(t, tt.wantRH, rh, 1e-9)
		})
	}
}

func TestDecodeDHTFailures(t *testing.T) {
	full := dhtFrame([5]byte{0x02, 0x8C, 0x01, 0x5F, 0xEE})

	_, _, code := DecodeDHT(nil)
	assert.Equal(t, CodeResponse, code)

	_, _, code = DecodeDHT(full[:40])
	assert.Equal(t, CodeDataTimeout, code)

	glitch := append([]Edge(nil), full...)
	glitch[5].At = glitch[4].At + 2*time.Microsecond
	_, _, code = DecodeDHT(glitch)
	assert.Equal(t, CodeDeltaSmall, code)

	noResponse := []Edge{{At: 0, Rising: true}, {At: 20 * time.Microsecond}}
	_, _, code = DecodeDHT(noResponse)
	assert.Equal(t, CodeResponse, code)
}

type fakeCapture struct {
	edges []Edge
	err   error
}

func (f *fakeCapture) Capture(time.Duration) ([]Edge, error) { return f.edges, f.err }

func TestHumidityProbeAcquire(t *testing.T) {
	p := NewHumidityProbe(&fakeCapture{edges: dhtFrame([5]byte{0x02, 0x8C, 0x01, 0x5F, 0xEE})})

	rs, err := p.Acquire(t0)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, Ambient, rs[0].Channel)
	assert.InDelta(t, 35.1, rs[0].Value, 1e-9)
	assert.Equal(t, Humidity, rs[1].Channel)
	assert.InDelta(t, 65.2, rs[1].Value, 1e-9)
}

func TestHumidityProbeErrors(t *testing.T) {
	p := NewHumidityProbe(&fakeCapture{err: ErrLineBusy})
	rs, err := p.Acquire(t0)
	requireCode(t, err, CodeAcquiring)
	assert.False(t, rs[0].Valid)
	assert.False(t, rs[1].Valid)

	p = NewHumidityProbe(&fakeCapture{err: errors.New("gpio: request line")})
	_, err = p.Acquire(t0)
	requireCode(t, err, CodeNotStarted)

	p = NewHumidityProbe(nil)
	_, err = p.Acquire(t0)
	requireCode(t, err, CodeNotStarted)
}

func TestOxygenProbe(t *testing.T) {
	rs, err := NewPlaceholderOxygenProbe(DefaultOxygenPlaceholder).Acquire(t0)
	require.NoError(t, err)
	assert.Equal(t, DefaultOxygenPlaceholder, rs[0].Value)

	live := NewOxygenProbe(func() (float64, error) { return 7.8, nil })
	rs, err = live.Acquire(t0)
	require.NoError(t, err)
	assert.Equal(t, 7.8, rs[0].Value)

	broken := NewOxygenProbe(func() (float64, error) { return 0, errors.New("timeout") })
	_, err = broken.Acquire(t0)
	requireCode(t, err, CodeIO)
}

func TestAcquireErrorMessage(t *testing.T) {
	err := &AcquireError{Channel: Water, Code: CodeOutOfRange, Err: errors.New("60.00C")}
	assert.Equal(t, "WATER: out_of_range: 60.00C", err.Error())
	assert.Equal(t, "out of range", err.Message())
	assert.Equal(t, "unknown error", (&AcquireError{Code: CodeUnknown}).Message())
}
