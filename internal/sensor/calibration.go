package sensor

import (
	"bufio"
	"io"
	"strings"

	"codeberg.org/mutker/buoyctl/internal/logger"
)

// ConsoleMeter is the line-oriented pH calibration routine. It mirrors the
// DFRobot probe vocabulary: ENTERPH opens calibration mode, CALPH logs the
// buffered standard-solution point closest to the sampled voltage, EXITPH
// stores the points and leaves calibration mode.
//
// Console lines are fed through a bounded channel; input that arrives while
// the channel is full is dropped, which is why the driver has to poll every
// scheduler tick.
const (
	cmdEnterCalibration = "ENTERPH"
	cmdLogPoint         = "CALPH"
	cmdExitCalibration  = "EXITPH"

	calCommandBuffer = 8

	// Factory calibration points in millivolts.
	defaultNeutralVoltageMV = 1500.0
	defaultAcidVoltageMV    = 2032.44

	// Acceptance windows for standard buffer solutions (pH 7.0 and 4.0).
	neutralWindowLowMV  = 1322.0
	neutralWindowHighMV = 1678.0
	acidWindowLowMV     = 1854.0
	acidWindowHighMV    = 2210.0
)

type ConsoleMeter struct {
	commands chan string

	calibrating      bool
	neutralVoltageMV float64
	acidVoltageMV    float64
}

// NewConsoleMeter starts draining console lines into the bounded command
// buffer. console may be nil for nodes without a serial console attached.
func NewConsoleMeter(console io.Reader) *ConsoleMeter {
	m := &ConsoleMeter{
		commands:         make(chan string, calCommandBuffer),
		neutralVoltageMV: defaultNeutralVoltageMV,
		acidVoltageMV:    defaultAcidVoltageMV,
	}

	if console != nil {
		go m.readConsole(console)
	}

	return m
}

func (m *ConsoleMeter) readConsole(console io.Reader) {
	scanner := bufio.NewScanner(console)
	for scanner.Scan() {
		line := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}

		select {
		case m.commands <- line:
		default:
			logger.Warn().Str("command", line).Msg("Calibration buffer full, dropping input")
		}
	}
}

func (m *ConsoleMeter) Begin() error {
	// Calibration points would normally come from non-volatile storage;
	// the factory defaults are used until EXITPH stores new ones.
	return nil
}

// ReadPH converts a probe voltage to pH using the two stored calibration
// points, with Nernst slope compensation for water temperature.
func (m *ConsoleMeter) ReadPH(voltageMV, temperature float64) float64 {
	slope := (7.0 - 4.0) / ((m.neutralVoltageMV - 1500.0) - (m.acidVoltageMV - 1500.0)) * 3.0
	intercept := 7.0 - slope*(m.neutralVoltageMV-1500.0)/3.0

	// Electrode response scales with absolute temperature.
	compensation := (273.15 + temperature) / (273.15 + 25.0)

	return slope*(voltageMV-1500.0)/3.0*compensation + intercept
}

func (m *ConsoleMeter) Pending() bool {
	return len(m.commands) > 0
}

// Calibrate consumes one buffered console command against the sampled probe
// voltage. Unknown commands are reported and discarded.
func (m *ConsoleMeter) Calibrate(voltageMV, temperature float64) {
	var cmd string
	select {
	case cmd = <-m.commands:
	default:
		return
	}

	switch cmd {
	case cmdEnterCalibration:
		m.calibrating = true
		logger.Info().Msg("pH calibration mode entered; put the probe in a standard solution and send CALPH")
	case cmdLogPoint:
		if !m.calibrating {
			logger.Warn().Msg("CALPH outside calibration mode, send ENTERPH first")

			return
		}
		m.logPoint(voltageMV, temperature)
	case cmdExitCalibration:
		if m.calibrating {
			m.calibrating = false
			logger.Info().
				Float64("neutral_mv", m.neutralVoltageMV).
				Float64("acid_mv", m.acidVoltageMV).
				Msg("pH calibration stored")
		}
	default:
		logger.Warn().Str("command", cmd).Msg("Unknown calibration command")
	}
}

func (m *ConsoleMeter) logPoint(voltageMV, temperature float64) {
	switch {
	case voltageMV >= neutralWindowLowMV && voltageMV <= neutralWindowHighMV:
		m.neutralVoltageMV = voltageMV
		logger.Info().Float64("voltage_mv", voltageMV).Float64("temperature", temperature).
			Msg("Neutral point (pH 7.0) logged")
	case voltageMV >= acidWindowLowMV && voltageMV <= acidWindowHighMV:
		m.acidVoltageMV = voltageMV
		logger.Info().Float64("voltage_mv", voltageMV).Float64("temperature", temperature).
			Msg("Acid point (pH 4.0) logged")
	default:
		logger.Warn().Float64("voltage_mv", voltageMV).
			Msg("Voltage outside any standard solution window, point ignored")
	}
}
