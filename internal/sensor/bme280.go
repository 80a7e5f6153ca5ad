package sensor

import (
	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"periph.io/x/conn/v3/physic"
)

const bme280Name = "BME280"

// bme280 reads the environmental sensor above the waterline: external
// temperature, relative humidity and barometric pressure.
type bme280 struct {
	dev       Environmental
	layout    payload.Layout
	available bool
}

func NewBME280(dev Environmental, layout payload.Layout) Driver {
	return &bme280{dev: dev, layout: layout}
}

func (d *bme280) Init() error {
	errFactory := errors.New()

	if d.dev == nil {
		return errFactory.New(ErrNoDevice)
	}

	d.available = true
	logger.Info().Str("sensor", bme280Name).Msg("Sensor initialized")

	return nil
}

func (d *bme280) Available() bool {
	return d.available
}

func (d *bme280) RetryInit() bool {
	if d.available {
		return true
	}

	logger.Debug().Str("sensor", bme280Name).Msg("Retrying sensor initialization")

	return d.Init() == nil
}

func (d *bme280) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}
	if !d.available {
		return errFactory.New(ErrUnavailable)
	}

	var env physic.Env
	if err := d.dev.Sense(&env); err != nil {
		logger.Warn().Err(err).Str("sensor", bme280Name).Msg("Device read failed, storing sentinels")
		r.TemperatureExt = ErrValueTemperature
		r.Humidity = ErrValueHumidity
		r.Pressure = ErrValuePressure

		return nil
	}

	r.TemperatureExt = env.Temperature.Celsius()
	r.Humidity = float64(env.Humidity) / float64(physic.PercentRH)
	r.Pressure = float64(env.Pressure) / float64(physic.Pascal) / 100 // hPa

	logger.Debug().
		Float64("temperature", r.TemperatureExt).
		Float64("humidity", r.Humidity).
		Float64("pressure", r.Pressure).
		Str("sensor", bme280Name).
		Msg("Measured")

	return nil
}

func (d *bme280) EncodePayload(buf *payload.Buffer) int {
	if buf == nil || !d.available {
		return 0
	}

	r := NewReading()
	if err := d.ReadAll(&r); err != nil {
		r.TemperatureExt = ErrValueTemperature
		r.Humidity = ErrValueHumidity
		r.Pressure = ErrValuePressure
	}

	n := 0
	if f, ok := d.layout.FieldFor(payload.FieldTempExt, payload.TagBME280); ok {
		n += buf.PutUint16(f.Offset, payload.ScaledUint16(r.TemperatureExt, f.Scale))
	}
	if f, ok := d.layout.FieldFor(payload.FieldHumidity, payload.TagBME280); ok {
		n += buf.PutUint16(f.Offset, payload.ScaledUint16(r.Humidity, f.Scale))
	}
	if f, ok := d.layout.FieldFor(payload.FieldPressure, payload.TagBME280); ok {
		n += buf.PutUint16(f.Offset, payload.ScaledUint16(r.Pressure, f.Scale))
	}

	return n
}

func (d *bme280) Name() string {
	return bme280Name
}

func (d *bme280) SetAvailableForTesting(available bool) {
	d.available = available
	logger.Debug().Bool("available", available).Str("sensor", bme280Name).Msg("Availability forced for testing")
}
