package sensor_test

import (
	"testing"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"codeberg.org/mutker/buoyctl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type fakeADC struct {
	raw   int32
	err   error
	reads int
}

func (p *fakeADC) String() string   { return "fakeADC" }
func (p *fakeADC) Halt() error      { return nil }
func (p *fakeADC) Name() string     { return "fakeADC" }
func (p *fakeADC) Number() int      { return 0 }
func (p *fakeADC) Function() string { return "ADC" }

func (p *fakeADC) Read() (analog.Sample, error) {
	p.reads++
	if p.err != nil {
		return analog.Sample{}, p.err
	}

	return analog.Sample{Raw: p.raw}, nil
}

func (p *fakeADC) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{Raw: 4095}
}

type fakeMeter struct {
	ph          float64
	beginErr    error
	beginCalls  int
	pending     bool
	lastVoltage float64
	lastTemp    float64
	calibrated  []float64

	// When set, ReadPH records whether the rail was powered at read time.
	rail          *sensor.Rail
	poweredAtRead bool
}

func (m *fakeMeter) Begin() error {
	m.beginCalls++

	return m.beginErr
}

func (m *fakeMeter) ReadPH(voltageMV, temperature float64) float64 {
	m.lastVoltage = voltageMV
	m.lastTemp = temperature
	if m.rail != nil {
		m.poweredAtRead = m.rail.Powered()
	}

	return m.ph
}

func (m *fakeMeter) Pending() bool { return m.pending }

func (m *fakeMeter) Calibrate(voltageMV, _ float64) {
	m.pending = false
	m.calibrated = append(m.calibrated, voltageMV)
}

func phTestConfig() sensor.PHConfig {
	return sensor.PHConfig{
		Samples:          10,
		SampleDelay:      0,
		ADCResolution:    4095,
		ReferenceVoltage: 3.3,
	}
}

func newTestPH(adc analog.PinADC, meter sensor.Meter) (*sensor.PH, *sensor.Rail) {
	rail := sensor.NewRail(&gpiotest.Pin{N: "rail"}, 0, 0, nil)
	layout := payload.For([]payload.Tag{payload.TagPH})

	return sensor.NewPH(phTestConfig(), adc, rail, meter, nil, layout), rail
}

func TestPHInitWithoutDevice(t *testing.T) {
	rail := sensor.NewRail(nil, 0, 0, nil)
	layout := payload.For([]payload.Tag{payload.TagPH})
	d := sensor.NewPH(phTestConfig(), nil, rail, &fakeMeter{}, nil, layout)

	err := d.Init()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrNoDevice))
	assert.False(t, d.Available())
}

func TestPHReadAll(t *testing.T) {
	meter := &fakeMeter{ph: 7.23}
	d, rail := newTestPH(&fakeADC{raw: 2048}, meter)
	meter.rail = rail
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))

	assert.InDelta(t, 7.23, r.PH, 1e-9)
	// 2048/4095 of a 3.3V reference, in millivolts
	assert.InDelta(t, 1650.5, meter.lastVoltage, 0.5)
	assert.True(t, meter.poweredAtRead, "Expected the rail powered during the probe read")
	assert.False(t, rail.Powered(), "Expected the rail powered off after the read")
}

func TestPHReadAllNilReading(t *testing.T) {
	d, _ := newTestPH(&fakeADC{raw: 2048}, &fakeMeter{})
	require.NoError(t, d.Init())

	err := d.ReadAll(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrNilReading))
}

func TestPHReadAllUnavailable(t *testing.T) {
	d, _ := newTestPH(&fakeADC{raw: 2048}, &fakeMeter{})

	r := sensor.NewReading()
	err := d.ReadAll(&r)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrUnavailable))
}

func TestPHReadFailureStoresSentinel(t *testing.T) {
	adc := &fakeADC{err: assert.AnError}
	d, _ := newTestPH(adc, &fakeMeter{ph: 7.0})
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	// A failed probe read is not a cycle failure, the slot carries the
	// sentinel instead.
	require.NoError(t, d.ReadAll(&r))
	assert.Equal(t, sensor.ErrValuePH, r.PH)
}

func TestPHOutOfRangeReadingIsKept(t *testing.T) {
	d, _ := newTestPH(&fakeADC{raw: 2048}, &fakeMeter{ph: -5.0})
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, -5.0, r.PH, 1e-9)
}

func TestPHAveragesConfiguredSamples(t *testing.T) {
	adc := &fakeADC{raw: 2048}
	d, _ := newTestPH(adc, &fakeMeter{ph: 7.0})
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.Equal(t, 10, adc.reads)
}

func TestPHEncodePayload(t *testing.T) {
	d, _ := newTestPH(&fakeADC{raw: 2048}, &fakeMeter{ph: 7.23})
	require.NoError(t, d.Init())

	layout := payload.For([]payload.Tag{payload.TagPH})
	buf := layout.NewBuffer()

	n := d.EncodePayload(buf)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint16(723), buf.Uint16(1))
}

func TestPHEncodePayloadUnavailable(t *testing.T) {
	d, _ := newTestPH(&fakeADC{raw: 2048}, &fakeMeter{})

	layout := payload.For([]payload.Tag{payload.TagPH})
	buf := layout.NewBuffer()

	assert.Equal(t, 0, d.EncodePayload(buf))
	assert.Equal(t, make([]byte, layout.Size()), buf.Bytes())
}

func TestPHSetTemperature(t *testing.T) {
	meter := &fakeMeter{ph: 7.0}
	d, _ := newTestPH(&fakeADC{raw: 2048}, meter)
	require.NoError(t, d.Init())

	d.SetTemperature(18.3)
	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, 18.3, meter.lastTemp, 1e-9)

	// Out-of-range updates are ignored, the last good value sticks.
	d.SetTemperature(250)
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, 18.3, meter.lastTemp, 1e-9)
}

func TestPHPollCalibration(t *testing.T) {
	meter := &fakeMeter{pending: true}
	d, rail := newTestPH(&fakeADC{raw: 2048}, meter)
	require.NoError(t, d.Init())

	d.PollCalibration()

	require.Len(t, meter.calibrated, 1)
	assert.InDelta(t, 1650.5, meter.calibrated[0], 0.5)
	assert.False(t, rail.Powered(), "Expected the rail powered off after calibration")
}

func TestPHPollCalibrationNothingPending(t *testing.T) {
	meter := &fakeMeter{}
	d, _ := newTestPH(&fakeADC{raw: 2048}, meter)
	require.NoError(t, d.Init())

	d.PollCalibration()
	assert.Empty(t, meter.calibrated)
}

func TestPHRetryInit(t *testing.T) {
	meter := &fakeMeter{beginErr: assert.AnError}
	d, _ := newTestPH(&fakeADC{raw: 2048}, meter)

	require.Error(t, d.Init())
	assert.False(t, d.RetryInit())

	// The vendor routine recovers, the retry brings the sensor up.
	meter.beginErr = nil
	assert.True(t, d.RetryInit())
	assert.True(t, d.Available())

	// Once available, further retries succeed without touching hardware.
	calls := meter.beginCalls
	assert.True(t, d.RetryInit())
	assert.Equal(t, calls, meter.beginCalls)
}
