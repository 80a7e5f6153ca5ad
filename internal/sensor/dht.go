package sensor

import (
	"time"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"github.com/benbjohnson/clock"
)

// DHT-class devices need a minimum interval between conversions; the two
// supported variants only differ in name and timing profile.
const (
	dht22MinPeriod = 2 * time.Second
	dht11MinPeriod = 1 * time.Second

	dhtTempMin = -40.0
	dhtTempMax = 80.0
)

type dht struct {
	tag        payload.Tag
	name       string
	dev        HygroThermometer
	clk        clock.Clock
	layout     payload.Layout
	minPeriod  time.Duration
	lastSample time.Time
	available  bool
}

func NewDHT22(dev HygroThermometer, clk clock.Clock, layout payload.Layout) Driver {
	return newDHT(payload.TagDHT22, "DHT22", dev, clk, layout, dht22MinPeriod)
}

func NewDHT11(dev HygroThermometer, clk clock.Clock, layout payload.Layout) Driver {
	return newDHT(payload.TagDHT11, "DHT11", dev, clk, layout, dht11MinPeriod)
}

func newDHT(tag payload.Tag, name string, dev HygroThermometer, clk clock.Clock, layout payload.Layout, minPeriod time.Duration) *dht {
	if clk == nil {
		clk = clock.New()
	}

	return &dht{
		tag:       tag,
		name:      name,
		dev:       dev,
		clk:       clk,
		layout:    layout,
		minPeriod: minPeriod,
	}
}

func (d *dht) Init() error {
	errFactory := errors.New()

	if d.dev == nil {
		return errFactory.New(ErrNoDevice)
	}

	d.available = true
	logger.Info().Str("sensor", d.name).Msg("Sensor initialized")

	return nil
}

func (d *dht) Available() bool {
	return d.available
}

func (d *dht) RetryInit() bool {
	if d.available {
		return true
	}

	logger.Debug().Str("sensor", d.name).Msg("Retrying sensor initialization")

	return d.Init() == nil
}

func (d *dht) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}
	if !d.available {
		return errFactory.New(ErrUnavailable)
	}

	// Honor the device's minimum sampling period.
	if wait := d.minPeriod - d.clk.Now().Sub(d.lastSample); wait > 0 && !d.lastSample.IsZero() {
		d.clk.Sleep(wait)
	}

	temp, hum, err := d.dev.ReadTemperatureHumidity()
	d.lastSample = d.clk.Now()
	if err != nil {
		logger.Warn().Err(err).Str("sensor", d.name).Msg("Device read failed, storing sentinels")
		r.TemperatureExt = ErrValueTemperature
		r.Humidity = ErrValueHumidity

		return nil
	}

	if temp < dhtTempMin || temp > dhtTempMax {
		logger.Warn().Float64("temperature", temp).Str("sensor", d.name).Msg("Reading out of plausible range")
	}

	r.TemperatureExt = temp
	r.Humidity = hum

	logger.Debug().Float64("temperature", temp).Float64("humidity", hum).Str("sensor", d.name).Msg("Measured")

	return nil
}

func (d *dht) EncodePayload(buf *payload.Buffer) int {
	if buf == nil || !d.available {
		return 0
	}

	r := NewReading()
	if err := d.ReadAll(&r); err != nil {
		r.TemperatureExt = ErrValueTemperature
		r.Humidity = ErrValueHumidity
	}

	n := 0
	if f, ok := d.layout.FieldFor(payload.FieldTempExt, d.tag); ok {
		n += buf.PutUint16(f.Offset, payload.ScaledUint16(r.TemperatureExt, f.Scale))
	}
	if f, ok := d.layout.FieldFor(payload.FieldHumidity, d.tag); ok {
		n += buf.PutUint16(f.Offset, payload.ScaledUint16(r.Humidity, f.Scale))
	}

	return n
}

func (d *dht) Name() string {
	return d.name
}

func (d *dht) SetAvailableForTesting(available bool) {
	d.available = available
	logger.Debug().Bool("available", available).Str("sensor", d.name).Msg("Availability forced for testing")
}
