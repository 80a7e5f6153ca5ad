package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/payload"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval    = 60
	defaultTelemetryDB = "/var/lib/buoyctl/telemetry.db"

	defaultRailPin       = "GPIO17"
	defaultPowerOnDelay  = 1000 // ms
	defaultPowerOffDelay = 1000 // ms

	defaultPHPin           = "ADC0"
	defaultPHSamples       = 10
	defaultPHSampleDelayMS = 40
	defaultPHResolution    = 4095
	defaultPHVref          = 3.3
)

// Config is the single source of truth for the node: the Sensors list drives
// both the payload encoder and the mirror decoder generator.
type Config struct {
	Interval int      `mapstructure:"interval"`
	Sensors  []string `mapstructure:"sensors"`
	LogLevel string   `mapstructure:"log_level"`

	Telemetry   bool   `mapstructure:"telemetry"`
	TelemetryDB string `mapstructure:"database"`

	ShowDecoder bool `mapstructure:"show_decoder"`

	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTClientID string `mapstructure:"mqtt_client_id"`

	RailPin         string `mapstructure:"rail_pin"`
	PowerOnDelayMS  int    `mapstructure:"power_on_delay_ms"`
	PowerOffDelayMS int    `mapstructure:"power_off_delay_ms"`

	PHPin           string  `mapstructure:"ph_pin"`
	PHSamples       int     `mapstructure:"ph_samples"`
	PHSampleDelayMS int     `mapstructure:"ph_sample_delay_ms"`
	PHADCResolution float64 `mapstructure:"ph_adc_resolution"`
	PHVref          float64 `mapstructure:"ph_reference_voltage"`

	I2CBus     string `mapstructure:"i2c_bus"`
	BME280Addr uint16 `mapstructure:"bme280_addr"`

	W1Device string `mapstructure:"w1_device"`

	HCSR04TriggerPin string `mapstructure:"hcsr04_trigger_pin"`
	HCSR04EchoPin    string `mapstructure:"hcsr04_echo_pin"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("sensors", []string{"ph", "bme280", "ds18b20"})
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", defaultTelemetryDB)
	v.SetDefault("show_decoder", false)
	v.SetDefault("mqtt_client_id", "buoyctl")
	v.SetDefault("mqtt_topic", "buoy/uplink")
	v.SetDefault("rail_pin", defaultRailPin)
	v.SetDefault("power_on_delay_ms", defaultPowerOnDelay)
	v.SetDefault("power_off_delay_ms", defaultPowerOffDelay)
	v.SetDefault("ph_pin", defaultPHPin)
	v.SetDefault("ph_samples", defaultPHSamples)
	v.SetDefault("ph_sample_delay_ms", defaultPHSampleDelayMS)
	v.SetDefault("ph_adc_resolution", defaultPHResolution)
	v.SetDefault("ph_reference_voltage", defaultPHVref)
	v.SetDefault("bme280_addr", 0x76)
	v.SetDefault("hcsr04_trigger_pin", "GPIO23")
	v.SetDefault("hcsr04_echo_pin", "GPIO24")

	// Load configuration from file. An explicit path via BUOYCTL_CONFIG
	// wins over the system location.
	if path := os.Getenv("BUOYCTL_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithMessage("Failed to read config file")
		}
	} else {
		v.SetConfigName("buoyctl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithMessage("Failed to read config file")
			}
		}
	}

	// Override config file values with command line flags.
	flags := pflag.NewFlagSet("buoyctl", pflag.ContinueOnError)
	flags.Int("interval", v.GetInt("interval"), "Seconds between sampling cycles")
	flags.StringSlice("sensors", v.GetStringSlice("sensors"), "Enabled sensor variants")
	flags.String("log-level", v.GetString("log_level"), "Log level (debug, info, warning, error)")
	flags.Bool("telemetry", v.GetBool("telemetry"), "Record sampling cycles to the local telemetry database")
	flags.String("database", v.GetString("database"), "Telemetry database path")
	flags.Bool("show-decoder", v.GetBool("show_decoder"), "Print the payload decoder for the active configuration and continue")
	flags.String("mqtt-broker", v.GetString("mqtt_broker"), "MQTT broker URL for the bench uplink")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if f.Name == "sensors" {
			slice, _ := flags.GetStringSlice("sensors")
			v.Set(key, slice)

			return
		}
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks intervals, sensor tags and log level.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	for _, s := range c.Sensors {
		if _, ok := payload.ParseTag(s); !ok {
			return errFactory.WithData(errors.ErrInvalidSensor, s)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// Tags returns the enabled sensor set as typed tags, deduplicated, in
// configuration order.
func (c *Config) Tags() []payload.Tag {
	seen := make(map[payload.Tag]bool, len(c.Sensors))
	tags := make([]payload.Tag, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		if t, ok := payload.ParseTag(s); ok && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}

	return tags
}
