package sensor_test

import (
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/buoyctl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleMeterFactoryDefaults(t *testing.T) {
	m := sensor.NewConsoleMeter(nil)
	require.NoError(t, m.Begin())

	// The factory calibration maps 1500mV to pH 7.0 and 2032.44mV to 4.0.
	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 25.0), 0.01)
	assert.InDelta(t, 4.0, m.ReadPH(2032.44, 25.0), 0.01)
}

func TestConsoleMeterTemperatureCompensation(t *testing.T) {
	m := sensor.NewConsoleMeter(nil)

	// The neutral point is temperature-invariant, the slope is not.
	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 5.0), 0.01)
	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 40.0), 0.01)

	cold := m.ReadPH(2032.44, 5.0)
	warm := m.ReadPH(2032.44, 40.0)
	assert.Greater(t, cold, warm, "Expected a steeper slope at higher temperature")
}

func TestConsoleMeterNoConsole(t *testing.T) {
	m := sensor.NewConsoleMeter(nil)
	assert.False(t, m.Pending())

	// Calibrate with nothing buffered is a no-op.
	m.Calibrate(1500.0, 25.0)
	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 25.0), 0.01)
}

func waitPending(t *testing.T, m *sensor.ConsoleMeter) {
	t.Helper()
	require.Eventually(t, m.Pending, time.Second, 5*time.Millisecond, "console input never buffered")
}

func TestConsoleMeterCalibrationFlow(t *testing.T) {
	m := sensor.NewConsoleMeter(strings.NewReader("enterph\nCALPH\nEXITPH\n"))

	waitPending(t, m)
	m.Calibrate(1600.0, 25.0) // ENTERPH, case-insensitive
	waitPending(t, m)
	m.Calibrate(1600.0, 25.0) // CALPH logs the neutral point at 1600mV
	waitPending(t, m)
	m.Calibrate(1600.0, 25.0) // EXITPH stores

	// 1600mV is now the neutral point.
	assert.InDelta(t, 7.0, m.ReadPH(1600.0, 25.0), 0.01)
}

func TestConsoleMeterCalibrateOutsideMode(t *testing.T) {
	m := sensor.NewConsoleMeter(strings.NewReader("CALPH\n"))

	waitPending(t, m)
	m.Calibrate(1600.0, 25.0)

	// The point was rejected, the factory calibration still applies.
	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 25.0), 0.01)
}

func TestConsoleMeterVoltageOutsideWindows(t *testing.T) {
	m := sensor.NewConsoleMeter(strings.NewReader("ENTERPH\nCALPH\n"))

	waitPending(t, m)
	m.Calibrate(3000.0, 25.0)
	waitPending(t, m)
	// 3000mV matches neither standard solution window, the point is dropped.
	m.Calibrate(3000.0, 25.0)

	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 25.0), 0.01)
	assert.InDelta(t, 4.0, m.ReadPH(2032.44, 25.0), 0.01)
}

func TestConsoleMeterAcidPoint(t *testing.T) {
	m := sensor.NewConsoleMeter(strings.NewReader("ENTERPH\nCALPH\nEXITPH\n"))

	waitPending(t, m)
	m.Calibrate(2000.0, 25.0)
	waitPending(t, m)
	m.Calibrate(2000.0, 25.0) // 2000mV falls in the pH 4.0 window
	waitPending(t, m)
	m.Calibrate(2000.0, 25.0)

	assert.InDelta(t, 4.0, m.ReadPH(2000.0, 25.0), 0.01)
	assert.InDelta(t, 7.0, m.ReadPH(1500.0, 25.0), 0.01)
}
