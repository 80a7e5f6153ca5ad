package sensor

import (
	"codeberg.org/mutker/buoyctl/internal/payload"
)

// Driver is the uniform handle every sensor variant implements. The registry
// only ever talks to this interface; variant-specific operations (pH
// compensation, calibration polling) stay on the concrete types.
type Driver interface {
	// Init configures I/O lines and the underlying measurement device and
	// marks the driver available on success.
	Init() error

	// Available reports the current availability flag.
	Available() bool

	// RetryInit returns true immediately when the driver is already
	// available; otherwise it re-runs Init. It never panics, and a failed
	// retry leaves the driver unavailable.
	RetryInit() bool

	// ReadAll performs the variant's power sequencing around a physical
	// measurement and writes the result into the matching Reading fields.
	// It fails softly, without mutation, when the driver is unavailable or
	// r is nil. A vendor read failure stores the field's sentinel value
	// and still counts as success; out-of-range values are logged, never
	// rejected.
	ReadAll(r *Reading) error

	// EncodePayload performs a fresh read and writes the scaled wire
	// representation at the variant's designated layout offsets. It
	// returns the number of bytes written, 0 when unavailable.
	EncodePayload(buf *payload.Buffer) int

	// Name returns the variant's human-readable identifier.
	Name() string

	// SetAvailableForTesting overrides the availability flag directly,
	// bypassing hardware interaction.
	SetAvailableForTesting(available bool)
}

// Sentinel values standing in for "no valid reading". They are encoded like
// any other value; the console distinguishes them by convention.
const (
	ErrValueBattery     uint8   = 0xFF
	ErrValuePH          float64 = -1
	ErrValueTemperature float64 = -127
	ErrValueHumidity    float64 = -1
	ErrValuePressure    float64 = -1
	ErrValueDistance    float64 = -1
)

// Reading holds one sampling cycle's measurements. It lives on the caller's
// stack: populated by Registry.ReadAll, encoded, then discarded.
type Reading struct {
	BatteryPercent   uint8
	PH               float64
	TemperatureExt   float64
	TemperatureWater float64
	Humidity         float64
	Pressure         float64
	DistanceCM       float64
}

// NewReading returns a Reading with every field at its sentinel, so a sensor
// that never gets to run still encodes as "no valid reading".
func NewReading() Reading {
	return Reading{
		BatteryPercent:   ErrValueBattery,
		PH:               ErrValuePH,
		TemperatureExt:   ErrValueTemperature,
		TemperatureWater: ErrValueTemperature,
		Humidity:         ErrValueHumidity,
		Pressure:         ErrValuePressure,
		DistanceCM:       ErrValueDistance,
	}
}
