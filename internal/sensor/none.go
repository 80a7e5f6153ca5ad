package sensor

import (
	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/payload"
)

const noneName = "NONE"

// none is the no-op variant for boards shipped without an optional slot
// populated. It contributes nothing to the payload.
type none struct {
	available bool
}

func NewNone() Driver {
	return &none{}
}

func (d *none) Init() error {
	d.available = true

	return nil
}

func (d *none) Available() bool {
	return d.available
}

func (d *none) RetryInit() bool {
	if d.available {
		return true
	}

	return d.Init() == nil
}

func (d *none) ReadAll(r *Reading) error {
	errFactory := errors.New()

	if r == nil {
		return errFactory.New(ErrNilReading)
	}
	if !d.available {
		return errFactory.New(ErrUnavailable)
	}

	return nil
}

func (d *none) EncodePayload(_ *payload.Buffer) int {
	return 0
}

func (d *none) Name() string {
	return noneName
}

func (d *none) SetAvailableForTesting(available bool) {
	d.available = available
}
