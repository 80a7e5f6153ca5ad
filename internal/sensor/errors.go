package sensor

import "codeberg.org/mutker/buoyctl/internal/errors"

const (
	// Initialization and lifecycle errors
	ErrNoDevice   = errors.ErrorCode("sensor_no_device")
	ErrInitFailed = errors.ErrorCode("sensor_init_failed")

	// Read errors
	ErrUnavailable = errors.ErrSensorUnavailable
	ErrNilReading  = errors.ErrInvalidArgument
	ErrReadFailed  = errors.ErrSensorRead
)
