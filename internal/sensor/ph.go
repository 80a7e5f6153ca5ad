package sensor

import (
	"time"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/analog"
)

const (
	phName = "DFRobot pH"

	phPlausibleMin = 0.0
	phPlausibleMax = 14.0

	// Compensation temperature is clamped to what liquid water can do.
	phCompTempMin = -50.0
	phCompTempMax = 100.0

	// DefaultPHTemperature is used for compensation until a real water
	// temperature arrives.
	DefaultPHTemperature = 25.0
)

// Meter is the opaque vendor pH routine: voltage in, physical value out,
// plus the line-oriented calibration vocabulary it consumes by itself.
type Meter interface {
	// Begin loads stored calibration points.
	Begin() error
	// ReadPH converts a probe voltage (mV) to pH, compensated for the
	// given water temperature (°C).
	ReadPH(voltageMV, temperature float64) float64
	// Pending reports whether console calibration input is buffered.
	Pending() bool
	// Calibrate forwards one quick probe sample to the calibration
	// command handler. The command semantics are the vendor's.
	Calibrate(voltageMV, temperature float64)
}

// PHConfig carries the analog front-end constants for the probe.
type PHConfig struct {
	Samples          int
	SampleDelay      time.Duration
	ADCResolution    float64 // full-scale counts, e.g. 4095
	ReferenceVoltage float64 // volts
}

// PH drives the DFRobot analog pH probe. Every physical read and every
// calibration pass runs inside one full power cycle of the shared rail.
type PH struct {
	cfg         PHConfig
	adc         analog.PinADC
	rail        *Rail
	meter       Meter
	clk         clock.Clock
	layout      payload.Layout
	available   bool
	temperature float64
}

func NewPH(cfg PHConfig, adc analog.PinADC, rail *Rail, meter Meter, clk clock.Clock, layout payload.Layout) *PH {
	if clk == nil {
		clk = clock.New()
	}

	return &PH{
		cfg:         cfg,
		adc:         adc,
		rail:        rail,
		meter:       meter,
		clk:         clk,
		layout:      layout,
		temperature: DefaultPHTemperature,
	}
}

func (d *PH) Init() error {
	errFactory := errors.New()

	if d.adc == nil || d.rail == nil || d.meter == nil {
		return errFactory.New(ErrNoDevice)
	}

	if err := d.meter.Begin(); err != nil {
		return errFactory.Wrap(ErrInitFailed, err)
	}

	d.available = true
	logger.Info().Str("sensor", phName).Msg("Sensor initialized")

	return nil
}

func (d *PH) Available() bool {
	return d.available
}

func (d *PH) RetryInit() bool {
	if d.available {
		return true
	}

	logger.Debug().Str("sensor", phName).Msg("Retrying sensor initialization")

	return d.Init() == nil
}

func (d *PH) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}
	if !d.available {
		return errFactory.New(ErrUnavailable)
	}

	d.rail.PowerOn()
	defer d.rail.PowerOff()

	voltageMV, err := d.sampleVoltageMV(d.cfg.Samples)
	if err != nil {
		logger.Warn().Err(err).Str("sensor", phName).Msg("Probe read failed, storing sentinel")
		r.PH = ErrValuePH

		return nil
	}

	value := d.meter.ReadPH(voltageMV, d.temperature)
	if value < phPlausibleMin || value > phPlausibleMax {
		logger.Warn().Float64("ph", value).Str("sensor", phName).Msg("Reading out of plausible range")
	}
	r.PH = value

	logger.Debug().Float64("ph", value).Float64("voltage_mv", voltageMV).Msg("pH measured")

	return nil
}

func (d *PH) EncodePayload(buf *payload.Buffer) int {
	if buf == nil || !d.available {
		return 0
	}

	r := NewReading()
	if err := d.ReadAll(&r); err != nil {
		r.PH = ErrValuePH
	}

	field, ok := d.layout.FieldFor(payload.FieldPH, payload.TagPH)
	if !ok {
		return 0
	}

	return buf.PutUint16(field.Offset, payload.ScaledUint16(r.PH, field.Scale))
}

func (d *PH) Name() string {
	return phName
}

func (d *PH) SetAvailableForTesting(available bool) {
	d.available = available
	logger.Debug().Bool("available", available).Str("sensor", phName).Msg("Availability forced for testing")
}

// SetTemperature updates the compensation temperature. Values outside the
// plausible physical range are silently ignored.
func (d *PH) SetTemperature(temp float64) {
	if temp < phCompTempMin || temp > phCompTempMax {
		return
	}

	d.temperature = temp
	logger.Debug().Float64("temperature", temp).Msg("pH compensation temperature updated")
}

// PollCalibration must run once per scheduler tick while the driver is
// available: the console command buffer is bounded and not drained anywhere
// else, so a missed tick risks dropping calibration input. When input is
// pending it powers the rail, takes one quick sample and forwards it, along
// with the compensation temperature, to the vendor calibration routine.
func (d *PH) PollCalibration() {
	if !d.available || !d.meter.Pending() {
		return
	}

	d.rail.PowerOn()
	defer d.rail.PowerOff()

	voltageMV, err := d.sampleVoltageMV(1)
	if err != nil {
		logger.Warn().Err(err).Msg("Calibration sample failed")

		return
	}

	d.meter.Calibrate(voltageMV, d.temperature)
}

func (d *PH) sampleVoltageMV(samples int) (float64, error) {
	errFactory := errors.New()

	if samples < 1 {
		samples = 1
	}

	sum := 0.0
	for i := 0; i < samples; i++ {
		s, err := d.adc.Read()
		if err != nil {
			return 0, errFactory.Wrap(ErrReadFailed, err)
		}
		sum += float64(s.Raw)

		if i < samples-1 {
			d.clk.Sleep(d.cfg.SampleDelay)
		}
	}

	avg := sum / float64(samples)
	volts := avg / d.cfg.ADCResolution * d.cfg.ReferenceVoltage

	return volts * 1000, nil
}
