package sensor

import (
	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
)

const (
	ds18b20Name    = "DS18B20"
	ds18b20TempMin = -55.0
	ds18b20TempMax = 125.0
)

// ds18b20 reads the submersible temperature probe at 1m depth.
type ds18b20 struct {
	dev       Thermometer
	layout    payload.Layout
	available bool
}

func NewDS18B20(dev Thermometer, layout payload.Layout) Driver {
	return &ds18b20{dev: dev, layout: layout}
}

func (d *ds18b20) Init() error {
	errFactory := errors.New()

	if d.dev == nil {
		return errFactory.New(ErrNoDevice)
	}

	d.available = true
	logger.Info().Str("sensor", ds18b20Name).Msg("Sensor initialized")

	return nil
}

func (d *ds18b20) Available() bool {
	return d.available
}

func (d *ds18b20) RetryInit() bool {
	if d.available {
		return true
	}

	logger.Debug().Str("sensor", ds18b20Name).Msg("Retrying sensor initialization")

	return d.Init() == nil
}

func (d *ds18b20) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}
	if !d.available {
		return errFactory.New(ErrUnavailable)
	}

	temp, err := d.dev.Temperature()
	if err != nil {
		logger.Warn().Err(err).Str("sensor", ds18b20Name).Msg("Probe read failed, storing sentinel")
		r.TemperatureWater = ErrValueTemperature

		return nil
	}

	if temp < ds18b20TempMin || temp > ds18b20TempMax {
		logger.Warn().Float64("temperature", temp).Str("sensor", ds18b20Name).Msg("Reading out of plausible range")
	}
	r.TemperatureWater = temp

	logger.Debug().Float64("temperature", temp).Str("sensor", ds18b20Name).Msg("Measured")

	return nil
}

func (d *ds18b20) EncodePayload(buf *payload.Buffer) int {
	if buf == nil || !d.available {
		return 0
	}

	r := NewReading()
	if err := d.ReadAll(&r); err != nil {
		r.TemperatureWater = ErrValueTemperature
	}

	f, ok := d.layout.FieldFor(payload.FieldTempWater, payload.TagDS18B20)
	if !ok {
		return 0
	}

	return buf.PutUint16(f.Offset, payload.ScaledUint16(r.TemperatureWater, f.Scale))
}

func (d *ds18b20) Name() string {
	return ds18b20Name
}

func (d *ds18b20) SetAvailableForTesting(available bool) {
	d.available = available
	logger.Debug().Bool("available", available).Str("sensor", ds18b20Name).Msg("Availability forced for testing")
}
