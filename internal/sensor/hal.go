package sensor

import (
	"periph.io/x/conn/v3/physic"
)

// Vendor measurement devices are opaque to the drivers: each is a
// read-to-physical-value function behind a narrow interface, so tests (and
// boards with different silicon) supply their own implementations.

// HygroThermometer is the measurement surface of a DHT-class device.
type HygroThermometer interface {
	// ReadTemperatureHumidity returns °C and relative humidity percent.
	ReadTemperatureHumidity() (temperature, humidity float64, err error)
}

// Thermometer is the measurement surface of a submersible probe (DS18B20).
type Thermometer interface {
	// Temperature returns °C.
	Temperature() (float64, error)
}

// Environmental is the measurement surface of a BME280-class device.
// *bmxx80.Dev from periph.io/x/devices satisfies it directly.
type Environmental interface {
	Sense(env *physic.Env) error
}

// Rangefinder is the measurement surface of an ultrasonic distance sensor.
type Rangefinder interface {
	// DistanceCM returns the measured distance in centimeters.
	DistanceCM() (float64, error)
}
