package sensor

import (
	"time"

	"codeberg.org/mutker/buoyctl/internal/logger"
	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio"
)

// Rail gates the shared power line feeding the analog sensors. Both
// transitions are idempotent and block for their settle delay; hardware
// faults are not detected at this layer.
type Rail struct {
	pin      gpio.PinIO
	clk      clock.Clock
	onDelay  time.Duration
	offDelay time.Duration
	powered  bool
}

// NewRail wires the rail to a GPIO line. onDelay is the stabilization wait
// after powering on, offDelay the grace wait after powering off.
func NewRail(pin gpio.PinIO, onDelay, offDelay time.Duration, clk clock.Clock) *Rail {
	if clk == nil {
		clk = clock.New()
	}

	return &Rail{
		pin:      pin,
		clk:      clk,
		onDelay:  onDelay,
		offDelay: offDelay,
	}
}

// PowerOn drives the rail high and blocks until the sensors are stable.
// A second call without an intervening PowerOff is a no-op.
func (r *Rail) PowerOn() {
	if r.powered {
		return
	}

	if r.pin != nil {
		if err := r.pin.Out(gpio.High); err != nil {
			logger.Warn().Err(err).Msg("Failed to drive sensor rail high")
		}
	}
	r.powered = true

	logger.Debug().Dur("settle", r.onDelay).Msg("Sensor rail powered on")
	r.clk.Sleep(r.onDelay)
}

// PowerOff drives the rail low and blocks for the discharge grace period.
// A second call without an intervening PowerOn is a no-op.
func (r *Rail) PowerOff() {
	if !r.powered {
		return
	}

	if r.pin != nil {
		if err := r.pin.Out(gpio.Low); err != nil {
			logger.Warn().Err(err).Msg("Failed to drive sensor rail low")
		}
	}
	r.powered = false

	logger.Debug().Dur("grace", r.offDelay).Msg("Sensor rail powered off")
	r.clk.Sleep(r.offDelay)
}

// Powered reports the rail state.
func (r *Rail) Powered() bool {
	return r.powered
}
