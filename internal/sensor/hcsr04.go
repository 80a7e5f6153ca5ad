package sensor

import (
	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
)

const (
	hcsr04Name    = "HC-SR04"
	hcsr04RangeCM = 400.0
)

// hcsr04 reads the ultrasonic rangefinder (freeboard / water level).
type hcsr04 struct {
	dev       Rangefinder
	layout    payload.Layout
	available bool
}

func NewHCSR04(dev Rangefinder, layout payload.Layout) Driver {
	return &hcsr04{dev: dev, layout: layout}
}

func (d *hcsr04) Init() error {
	errFactory := errors.New()

	if d.dev == nil {
		return errFactory.New(ErrNoDevice)
	}

	d.available = true
	logger.Info().Str("sensor", hcsr04Name).Msg("Sensor initialized")

	return nil
}

func (d *hcsr04) Available() bool {
	return d.available
}

func (d *hcsr04) RetryInit() bool {
	if d.available {
		return true
	}

	logger.Debug().Str("sensor", hcsr04Name).Msg("Retrying sensor initialization")

	return d.Init() == nil
}

func (d *hcsr04) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}
	if !d.available {
		return errFactory.New(ErrUnavailable)
	}

	distance, err := d.dev.DistanceCM()
	if err != nil {
		logger.Warn().Err(err).Str("sensor", hcsr04Name).Msg("Device read failed, storing sentinel")
		r.DistanceCM = ErrValueDistance

		return nil
	}

	if distance < 0 || distance > hcsr04RangeCM {
		logger.Warn().Float64("distance_cm", distance).Str("sensor", hcsr04Name).Msg("Reading out of plausible range")
	}
	r.DistanceCM = distance

	logger.Debug().Float64("distance_cm", distance).Str("sensor", hcsr04Name).Msg("Measured")

	return nil
}

func (d *hcsr04) EncodePayload(buf *payload.Buffer) int {
	if buf == nil || !d.available {
		return 0
	}

	r := NewReading()
	if err := d.ReadAll(&r); err != nil {
		r.DistanceCM = ErrValueDistance
	}

	f, ok := d.layout.FieldFor(payload.FieldDistance, payload.TagHCSR04)
	if !ok {
		return 0
	}

	return buf.PutUint16(f.Offset, payload.ScaledUint16(r.DistanceCM, f.Scale))
}

func (d *hcsr04) Name() string {
	return hcsr04Name
}

func (d *hcsr04) SetAvailableForTesting(available bool) {
	d.available = available
	logger.Debug().Bool("available", available).Str("sensor", hcsr04Name).Msg("Availability forced for testing")
}
