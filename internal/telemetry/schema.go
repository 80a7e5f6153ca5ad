package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/buoyctl/internal/errors"
)

const (
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS samples (
	       timestamp          INTEGER PRIMARY KEY,
	       battery_percent    INTEGER NOT NULL,
	       ph                 REAL NOT NULL,
	       temperature_ext    REAL NOT NULL,
	       temperature_water  REAL NOT NULL,
	       humidity           REAL NOT NULL,
	       pressure           REAL NOT NULL,
	       distance_cm        REAL NOT NULL,
	       payload_hex        TEXT NOT NULL,
	       payload_len        INTEGER NOT NULL
	   );`

	insertSampleSQL = `
    INSERT INTO samples (
        timestamp, battery_percent,
        ph, temperature_ext, temperature_water,
        humidity, pressure, distance_cm,
        payload_hex, payload_len
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(timestamp) DO NOTHING`
)

// initSchema creates the sample table if missing.
func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	if _, err := db.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return nil
}
