package telemetry

import "codeberg.org/mutker/buoyctl/internal/errors"

const (
	defaultDirPerm  = 0o755
	defaultDBPath   = "/var/lib/buoyctl/telemetry.db"
	defaultBatch    = 16
	defaultFlushSec = 60
)

type Config struct {
	DBPath       string
	Enabled      bool
	BatchSize    int
	BatchTimeout int // seconds
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false,
		BatchSize:    defaultBatch,
		BatchTimeout: defaultFlushSec,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the path when collection is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}
