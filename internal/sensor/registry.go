package sensor

import (
	"strings"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
)

// BatteryFunc reports the pack charge percent. Nodes without a fuel gauge
// report the sentinel.
type BatteryFunc func() uint8

// Registry holds the enabled drivers in configuration order and fans every
// operation out across them. The drivers and the wire layout are derived
// from the same tag list, so the encoded payload always matches the layout
// the decoder generator documents.
type Registry struct {
	drivers []Driver
	layout  payload.Layout
	battery BatteryFunc
}

func NewRegistry(layout payload.Layout, drivers []Driver, battery BatteryFunc) *Registry {
	if battery == nil {
		battery = func() uint8 { return ErrValueBattery }
	}

	return &Registry{
		drivers: drivers,
		layout:  layout,
		battery: battery,
	}
}

// InitAll initializes every enabled driver. The node proceeds in degraded
// mode when some or even all sensors fail, so the aggregate result is
// always true; failures are logged per sensor.
func (reg *Registry) InitAll() bool {
	for _, d := range reg.drivers {
		if err := d.Init(); err != nil {
			logger.Warn().Err(err).Str("sensor", d.Name()).Msg("Sensor initialization failed, continuing degraded")
		}
	}

	return true
}

// AnyAvailable reports whether at least one driver is ready.
func (reg *Registry) AnyAvailable() bool {
	for _, d := range reg.drivers {
		if d.Available() {
			return true
		}
	}

	return false
}

// AllAvailable reports whether every driver is ready. The sampling loop uses
// it to keep retrying a failed sensor even while its peers deliver readings.
func (reg *Registry) AllAvailable() bool {
	for _, d := range reg.drivers {
		if !d.Available() {
			return false
		}
	}

	return true
}

// RetryAll re-runs initialization on unavailable drivers. Progress is made
// if any one sensor comes up, so the aggregate is the logical OR.
func (reg *Registry) RetryAll() bool {
	any := false
	for _, d := range reg.drivers {
		if d.RetryInit() {
			any = true
		}
	}

	return any
}

// ReadAll invokes every driver in configuration order. A per-sensor failure
// leaves that sensor's fields at their sentinels and never aborts the rest.
func (reg *Registry) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}

	r.BatteryPercent = reg.battery()

	for _, d := range reg.drivers {
		if err := d.ReadAll(r); err != nil {
			logger.Debug().Err(err).Str("sensor", d.Name()).Msg("Sensor skipped")
		}
	}

	return nil
}

// Payload writes the battery byte, every available driver's fragment at its
// designated offset and the reserved rounding byte, returning the total
// byte count. With every driver available the count equals the layout size.
func (reg *Registry) Payload(buf *payload.Buffer) int {
	if buf == nil {
		return 0
	}

	n := 0
	if off, ok := reg.layout.Offset(payload.FieldBattery); ok {
		n += buf.PutByte(off, reg.battery())
	}

	for _, d := range reg.drivers {
		n += d.EncodePayload(buf)
	}

	if off, ok := reg.layout.Offset(payload.FieldReserved); ok {
		n += buf.PutByte(off, 0)
	}

	return n
}

// Name joins the active drivers' names for diagnostics.
func (reg *Registry) Name() string {
	names := make([]string, 0, len(reg.drivers))
	for _, d := range reg.drivers {
		names = append(names, d.Name())
	}

	return strings.Join(names, "+")
}

// SetAvailableForTesting propagates the override to every driver. Per-sensor
// overrides are done by driving the individual driver directly.
func (reg *Registry) SetAvailableForTesting(available bool) {
	for _, d := range reg.drivers {
		d.SetAvailableForTesting(available)
	}
}

// Layout returns the wire layout shared with the decoder generator.
func (reg *Registry) Layout() payload.Layout {
	return reg.layout
}

// Drivers returns the enabled drivers in configuration order.
func (reg *Registry) Drivers() []Driver {
	return reg.drivers
}
