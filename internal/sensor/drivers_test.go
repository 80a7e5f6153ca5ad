package sensor_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"codeberg.org/mutker/buoyctl/internal/sensor"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

type fakeHygro struct {
	temp  float64
	hum   float64
	err   error
	reads int
}

func (d *fakeHygro) ReadTemperatureHumidity() (float64, float64, error) {
	d.reads++

	return d.temp, d.hum, d.err
}

type fakeThermo struct {
	temp float64
	err  error
}

func (d *fakeThermo) Temperature() (float64, error) { return d.temp, d.err }

type fakeEnv struct {
	temp     float64 // °C
	humidity float64 // %RH
	pressure float64 // hPa
	err      error
}

func (d *fakeEnv) Sense(env *physic.Env) error {
	if d.err != nil {
		return d.err
	}

	env.Temperature = physic.ZeroCelsius + physic.Temperature(d.temp*float64(physic.Kelvin))
	env.Humidity = physic.RelativeHumidity(d.humidity * float64(physic.PercentRH))
	env.Pressure = physic.Pressure(d.pressure * 100 * float64(physic.Pascal))

	return nil
}

type fakeRanger struct {
	distance float64
	err      error
}

func (d *fakeRanger) DistanceCM() (float64, error) { return d.distance, d.err }

func TestDS18B20Read(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagDS18B20})
	d := sensor.NewDS18B20(&fakeThermo{temp: 18.3}, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, 18.3, r.TemperatureWater, 1e-9)

	buf := layout.NewBuffer()
	assert.Equal(t, 2, d.EncodePayload(buf))
	assert.Equal(t, uint16(1830), buf.Uint16(1))
}

func TestDS18B20ReadFailureStoresSentinel(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagDS18B20})
	d := sensor.NewDS18B20(&fakeThermo{err: assert.AnError}, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.Equal(t, sensor.ErrValueTemperature, r.TemperatureWater)
}

func TestDS18B20InitWithoutDevice(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagDS18B20})
	d := sensor.NewDS18B20(nil, layout)

	err := d.Init()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, sensor.ErrNoDevice))
	assert.False(t, d.RetryInit())
}

func TestBME280Read(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagBME280})
	d := sensor.NewBME280(&fakeEnv{temp: 22.15, humidity: 45.5, pressure: 1013.2}, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, 22.15, r.TemperatureExt, 0.01)
	assert.InDelta(t, 45.5, r.Humidity, 0.01)
	assert.InDelta(t, 1013.2, r.Pressure, 0.1)

	buf := layout.NewBuffer()
	assert.Equal(t, 6, d.EncodePayload(buf))
	assert.Equal(t, uint16(2215), buf.Uint16(1))
	assert.Equal(t, uint16(4550), buf.Uint16(3))
	assert.Equal(t, uint16(10132), buf.Uint16(5))
}

func TestBME280ReadFailureStoresSentinels(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagBME280})
	d := sensor.NewBME280(&fakeEnv{err: assert.AnError}, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.Equal(t, sensor.ErrValueTemperature, r.TemperatureExt)
	assert.Equal(t, sensor.ErrValueHumidity, r.Humidity)
	assert.Equal(t, sensor.ErrValuePressure, r.Pressure)
}

func TestDHT22Read(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagDHT22})
	d := sensor.NewDHT22(&fakeHygro{temp: 21.4, hum: 60.2}, clock.NewMock(), layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, 21.4, r.TemperatureExt, 1e-9)
	assert.InDelta(t, 60.2, r.Humidity, 1e-9)

	buf := layout.NewBuffer()
	assert.Equal(t, 4, d.EncodePayload(buf))
}

func TestDHT22MinimumSamplingPeriod(t *testing.T) {
	mock := clock.NewMock()
	layout := payload.For([]payload.Tag{payload.TagDHT22})
	dev := &fakeHygro{temp: 21.4, hum: 60.2}
	d := sensor.NewDHT22(dev, mock, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r)) // first read is immediate

	// The second read must wait out the 2s conversion interval.
	done := make(chan struct{})
	go func() {
		_ = d.ReadAll(&r)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond) // let the goroutine reach the wait
	mock.Add(2 * time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second read never completed")
	}
	assert.Equal(t, 2, dev.reads)
}

func TestHCSR04Read(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagHCSR04})
	d := sensor.NewHCSR04(&fakeRanger{distance: 86.4}, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.InDelta(t, 86.4, r.DistanceCM, 1e-9)

	buf := layout.NewBuffer()
	assert.Equal(t, 2, d.EncodePayload(buf))
	assert.Equal(t, uint16(864), buf.Uint16(1))
}

func TestHCSR04ReadFailureStoresSentinel(t *testing.T) {
	layout := payload.For([]payload.Tag{payload.TagHCSR04})
	d := sensor.NewHCSR04(&fakeRanger{err: assert.AnError}, layout)
	require.NoError(t, d.Init())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.Equal(t, sensor.ErrValueDistance, r.DistanceCM)
}

func TestNoneDriver(t *testing.T) {
	d := sensor.NewNone()
	require.NoError(t, d.Init())
	assert.True(t, d.Available())

	r := sensor.NewReading()
	require.NoError(t, d.ReadAll(&r))
	assert.Equal(t, sensor.NewReading(), r, "Expected no fields touched")

	buf := payload.NewBuffer(2)
	assert.Equal(t, 0, d.EncodePayload(buf))
}
