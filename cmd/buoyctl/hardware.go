package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/buoyctl/internal/config"
	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"codeberg.org/mutker/buoyctl/internal/sensor"
	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/bmxx80"
)

// buildRegistry constructs the enabled drivers from the configuration.
// Hardware that cannot be opened leaves its driver without a device: Init
// fails, the node runs degraded, and RetryAll keeps probing.
func buildRegistry(cfg *config.Config) (*sensor.Registry, *sensor.PH) {
	tags := cfg.Tags()
	layout := payload.For(tags)
	clk := clock.New()

	var (
		rail     *sensor.Rail
		phDriver *sensor.PH
		drivers  []sensor.Driver
	)

	for _, tag := range tags {
		switch tag {
		case payload.TagPH:
			rail = sensor.NewRail(
				openPin(cfg.RailPin),
				time.Duration(cfg.PowerOnDelayMS)*time.Millisecond,
				time.Duration(cfg.PowerOffDelayMS)*time.Millisecond,
				clk,
			)
			phDriver = sensor.NewPH(
				sensor.PHConfig{
					Samples:          cfg.PHSamples,
					SampleDelay:      time.Duration(cfg.PHSampleDelayMS) * time.Millisecond,
					ADCResolution:    cfg.PHADCResolution,
					ReferenceVoltage: cfg.PHVref,
				},
				openADC(cfg.PHPin),
				rail,
				sensor.NewConsoleMeter(os.Stdin),
				clk,
				layout,
			)
			drivers = append(drivers, phDriver)
		case payload.TagDHT22:
			drivers = append(drivers, sensor.NewDHT22(openDHT(), clk, layout))
		case payload.TagDHT11:
			drivers = append(drivers, sensor.NewDHT11(openDHT(), clk, layout))
		case payload.TagDS18B20:
			drivers = append(drivers, sensor.NewDS18B20(openW1Probe(cfg.W1Device), layout))
		case payload.TagBME280:
			drivers = append(drivers, sensor.NewBME280(openBME280(cfg), layout))
		case payload.TagHCSR04:
			drivers = append(drivers, sensor.NewHCSR04(openHCSR04(cfg), layout))
		case payload.TagNone:
			drivers = append(drivers, sensor.NewNone())
		}
	}

	return sensor.NewRegistry(layout, drivers, batteryGauge), phDriver
}

func openPin(name string) gpio.PinIO {
	p := gpioreg.ByName(name)
	if p == nil {
		logger.Warn().Str("pin", name).Msg("GPIO pin not found")
	}

	return p
}

// openADC resolves a pin that the host exposes as an analog input.
func openADC(name string) analog.PinADC {
	p := gpioreg.ByName(name)
	if p == nil {
		logger.Warn().Str("pin", name).Msg("ADC pin not found")

		return nil
	}

	adc, ok := p.(analog.PinADC)
	if !ok {
		logger.Warn().Str("pin", name).Msg("Pin has no analog capability on this host")

		return nil
	}

	return adc
}

func openBME280(cfg *config.Config) sensor.Environmental {
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		logger.Warn().Err(err).Str("bus", cfg.I2CBus).Msg("Failed to open I2C bus")

		return nil
	}

	dev, err := bmxx80.NewI2C(bus, cfg.BME280Addr, &bmxx80.DefaultOpts)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize BME280")
		bus.Close()

		return nil
	}

	return dev
}

// openDHT has no userspace implementation: the single-wire timing the DHT
// protocol needs is not reliable without kernel support, so the variant
// stays unavailable unless a vendor device is wired in at build time.
func openDHT() sensor.HygroThermometer {
	logger.Warn().Msg("No userspace DHT driver on this host, sensor stays unavailable")

	return nil
}

// w1Probe reads a DS18B20 through the kernel's 1-Wire sysfs interface.
type w1Probe struct {
	path string
}

const w1Devices = "/sys/bus/w1/devices"

func openW1Probe(device string) sensor.Thermometer {
	if device == "" {
		// Auto-discover the first DS18B20 family device.
		matches, err := filepath.Glob(filepath.Join(w1Devices, "28-*"))
		if err != nil || len(matches) == 0 {
			logger.Warn().Msg("No 1-Wire temperature probe found")

			return nil
		}
		device = filepath.Base(matches[0])
	}

	path := filepath.Join(w1Devices, device, "temperature")
	if _, err := os.Stat(path); err != nil {
		logger.Warn().Err(err).Str("device", device).Msg("1-Wire probe not readable")

		return nil
	}

	return &w1Probe{path: path}
}

func (p *w1Probe) Temperature() (float64, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return 0, err
	}

	milli, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, err
	}

	return float64(milli) / 1000, nil
}

// hcsr04Dev bit-bangs the ultrasonic rangefinder: 10µs trigger pulse, then
// the echo pulse width gives the round-trip time of flight.
type hcsr04Dev struct {
	trigger gpio.PinIO
	echo    gpio.PinIO
}

const (
	hcsr04EchoTimeout = 100 * time.Millisecond
	speedOfSoundCMUS  = 0.0343 // cm per µs
)

var errEchoTimeout = errors.New().WithMessage(sensor.ErrReadFailed, "echo pulse timed out")

func openHCSR04(cfg *config.Config) sensor.Rangefinder {
	trigger := gpioreg.ByName(cfg.HCSR04TriggerPin)
	echo := gpioreg.ByName(cfg.HCSR04EchoPin)
	if trigger == nil || echo == nil {
		logger.Warn().Msg("HC-SR04 pins not found")

		return nil
	}

	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		logger.Warn().Err(err).Msg("Failed to configure HC-SR04 echo pin")

		return nil
	}

	return &hcsr04Dev{trigger: trigger, echo: echo}
}

func (d *hcsr04Dev) DistanceCM() (float64, error) {
	if err := d.trigger.Out(gpio.High); err != nil {
		return 0, err
	}
	time.Sleep(10 * time.Microsecond)
	if err := d.trigger.Out(gpio.Low); err != nil {
		return 0, err
	}

	if !d.echo.WaitForEdge(hcsr04EchoTimeout) {
		return 0, errEchoTimeout
	}
	start := time.Now()
	if !d.echo.WaitForEdge(hcsr04EchoTimeout) {
		return 0, errEchoTimeout
	}
	flight := time.Since(start)

	return flight.Seconds() * 1e6 * speedOfSoundCMUS / 2, nil
}

// batteryGauge reads the charge percent from the first power supply the
// kernel reports; nodes without a fuel gauge report the sentinel.
func batteryGauge() uint8 {
	matches, err := filepath.Glob("/sys/class/power_supply/*/capacity")
	if err != nil || len(matches) == 0 {
		return sensor.ErrValueBattery
	}

	raw, err := os.ReadFile(matches[0])
	if err != nil {
		return sensor.ErrValueBattery
	}

	pct, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pct < 0 || pct > 100 {
		return sensor.ErrValueBattery
	}

	return uint8(pct)
}
