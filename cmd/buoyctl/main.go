package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/buoyctl/internal/config"
	"codeberg.org/mutker/buoyctl/internal/decoder"
	"codeberg.org/mutker/buoyctl/internal/logger"
	"codeberg.org/mutker/buoyctl/internal/pid"
	"codeberg.org/mutker/buoyctl/internal/sensor"
	"codeberg.org/mutker/buoyctl/internal/telemetry"
	"codeberg.org/mutker/buoyctl/internal/uplink"
	"periph.io/x/host/v3"
)

const calibrationPollInterval = time.Second

var (
	cfg       *config.Config
	registry  *sensor.Registry
	phDriver  *sensor.PH
	collector telemetry.Collector
	transport uplink.Transport
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel == "debug", cfg.LogLevel == "info", logger.IsService())
	if cfg.LogLevel == "error" {
		logger.SetLogLevel(logger.ErrorLevel)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	if _, err := host.Init(); err != nil {
		logger.Warn().Err(err).Msg("Host peripheral init failed, sensors may stay unavailable")
	}

	registry, phDriver = buildRegistry(cfg)

	if cfg.ShowDecoder {
		fmt.Println(decoder.Summary(registry.Layout(), cfg.Sensors))
		fmt.Println(decoder.Script(registry.Layout()))
	}

	registry.InitAll()
	if !registry.AnyAvailable() {
		logger.Warn().Msg("No sensor available at startup, running degraded")
	}
	logger.Info().
		Str("sensors", registry.Name()).
		Int("payload_bytes", registry.Layout().Size()).
		Msg("Node initialized")

	var err error
	collector, err = telemetry.NewService(telemetry.Config{
		DBPath:       cfg.TelemetryDB,
		Enabled:      cfg.Telemetry,
		BatchSize:    telemetry.DefaultConfig().BatchSize,
		BatchTimeout: telemetry.DefaultConfig().BatchTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry")
		}
	}()

	transport, err = openTransport()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open uplink transport")
	}
	defer transport.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := loop(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
}

func openTransport() (uplink.Transport, error) {
	if cfg.MQTTBroker == "" {
		logger.Info().Msg("No MQTT broker configured, logging payloads locally")

		return uplink.NewLogTransport(), nil
	}

	return uplink.NewMQTTTransport(cfg.MQTTBroker, cfg.MQTTTopic, cfg.MQTTClientID)
}

func loop(ctx context.Context) error {
	interval := time.Duration(cfg.Interval) * time.Second
	sampleTicker := time.NewTicker(interval)
	defer sampleTicker.Stop()

	calTicker := time.NewTicker(calibrationPollInterval)
	defer calTicker.Stop()

	// First cycle runs immediately rather than one full interval in.
	sample(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-calTicker.C:
			if phDriver != nil {
				phDriver.PollCalibration()
			}
		case <-sampleTicker.C:
			sample(ctx)
		}
	}
}

func sample(ctx context.Context) {
	// Any sensor still down gets another initialization attempt each cycle,
	// including while its peers are already delivering readings.
	if !registry.AllAvailable() && !registry.RetryAll() {
		logger.Warn().Msg("All sensors unavailable, skipping cycle")

		return
	}

	reading := sensor.NewReading()
	if err := registry.ReadAll(&reading); err != nil {
		logger.Error().Err(err).Msg("failed to read sensors")

		return
	}

	// A valid water temperature feeds the pH compensation for the next read.
	if phDriver != nil && reading.TemperatureWater != sensor.ErrValueTemperature {
		phDriver.SetTemperature(reading.TemperatureWater)
	}

	buf := registry.Layout().NewBuffer()
	count := registry.Payload(buf)
	if count != registry.Layout().Size() {
		logger.Warn().
			Int("encoded", count).
			Int("expected", registry.Layout().Size()).
			Msg("Payload shorter than layout, a sensor is unavailable")
	}

	if err := transport.Publish(ctx, buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("failed to publish payload")
	}

	snapshot := telemetry.Snapshot{
		Timestamp:  time.Now(),
		Reading:    reading,
		PayloadHex: hex.EncodeToString(buf.Bytes()),
		PayloadLen: count,
	}
	if err := collector.Record(ctx, &snapshot); err != nil {
		logger.Error().Err(err).Msg("failed to record telemetry")
	}

	logStatus(&reading, count)
}

func logStatus(r *sensor.Reading, count int) {
	logger.Info().
		Uint8("battery", r.BatteryPercent).
		Float64("ph", r.PH).
		Float64("temp_ext", r.TemperatureExt).
		Float64("temp_water", r.TemperatureWater).
		Float64("humidity", r.Humidity).
		Float64("pressure", r.Pressure).
		Int("payload_bytes", count).
		Msg("Cycle complete")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
