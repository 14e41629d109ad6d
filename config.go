package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyACM0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem
	BaudRate int `yaml:"baud_rate"`
	// TelnetAddress reaches the modem through a serial server instead of
	// SerialPort when set (e.g. "10.0.0.5:2000")
	TelnetAddress string `yaml:"telnet_address"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// SimPIN is the SIM card PIN code
	SimPIN string `yaml:"sim_pin"`
	// ATTimeout bounds a single AT command on the live modem
	ATTimeout time.Duration `yaml:"at_timeout"`
	// TraceFile switches to replay mode: the stored trace is decoded
	// instead of talking to a modem
	TraceFile string `yaml:"trace_file"`
	// TraceCodec names the trace encoding; empty means by file extension
	TraceCodec string `yaml:"trace_codec"`
	// RecordFile receives every live packet as JSON Lines
	RecordFile string `yaml:"record_file"`
	// Macro is run on the live modem after start up
	Macro string `yaml:"macro"`
	// Console enables the interactive prompt on stdin
	Console bool `yaml:"console"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyACM0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.ATTimeout = 5 * time.Second
		return nil
	}
}

// WithFile overlays the YAML file at path. Keys missing from the file keep
// their value. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		strs := map[string]*string{
			"BIND_ADDRESS":   &c.BindAddress,
			"SERIAL_PORT":    &c.SerialPort,
			"TELNET_ADDRESS": &c.TelnetAddress,
			"LOG_LEVEL":      &c.LogLevel,
			"SIM_PIN":        &c.SimPIN,
			"TRACE_FILE":     &c.TraceFile,
			"TRACE_CODEC":    &c.TraceCodec,
			"RECORD_FILE":    &c.RecordFile,
			"MACRO":          &c.Macro,
		}
		for name, field := range strs {
			if v := os.Getenv(name); v != "" {
				*field = v
			}
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if timeout := os.Getenv("AT_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.ATTimeout = d
			}
		}

		if console := os.Getenv("CONSOLE"); console != "" {
			if b, err := strconv.ParseBool(console); err == nil {
				c.Console = b
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags that were set
// explicitly
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "telnet-address":
				c.TelnetAddress = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "sim-pin":
				c.SimPIN = f.Value.String()
			case "at-timeout":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.ATTimeout = d
				}
			case "trace":
				c.TraceFile = f.Value.String()
			case "trace-codec":
				c.TraceCodec = f.Value.String()
			case "record":
				c.RecordFile = f.Value.String()
			case "macro":
				c.Macro = f.Value.String()
			case "console":
				if b, err := strconv.ParseBool(f.Value.String()); err == nil {
					c.Console = b
				}
			}
		})
		return nil
	}
}
