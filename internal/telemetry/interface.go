package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/buoyctl/internal/sensor"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository defines the interface for sample storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot is one sampling cycle as stored on the node: the physical
// readings plus the exact wire bytes that went to the uplink.
type Snapshot struct {
	Timestamp  time.Time
	Reading    sensor.Reading
	PayloadHex string
	PayloadLen int
}
