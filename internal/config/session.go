package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/zone"
)

// DefaultConfigPath is the path to the canonical session defaults file.
const DefaultConfigPath = "config/session.defaults.json"

// Feed transports.
const (
	TransportTCP    = "tcp"
	TransportSerial = "serial"
	TransportReplay = "replay"
)

// SessionConfig is the root configuration of a recording session. Every
// field is optional; the Get* methods supply defaults for missing ones.
type SessionConfig struct {
	// Intersection selection
	IntersectionSource         *string  `json:"intersection_source,omitempty"` // "Gaze" or "AI"
	IntersectionSourceFiltered *bool    `json:"intersection_source_filtered,omitempty"`
	Zones                      []string `json:"zones,omitempty"`

	// Tracker feed
	FeedTransport *string `json:"feed_transport,omitempty"` // "tcp", "serial" or "replay"
	FeedHost      *string `json:"feed_host,omitempty"`
	FeedPort      *int    `json:"feed_port,omitempty"`
	SerialPort    *string `json:"serial_port,omitempty"`
	BaudRate      *int    `json:"baud_rate,omitempty"`
	ReplayFile    *string `json:"replay_file,omitempty"`
	ReplayRate    *string `json:"replay_rate,omitempty"` // duration string like "16ms"

	// Output
	OutputDir *string `json:"output_dir,omitempty"`
	DBPath    *string `json:"db_path,omitempty"`
	Listen    *string `json:"listen,omitempty"`
}

// LoadSessionConfig loads a SessionConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SessionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. It panics if the file cannot be loaded and is
// intended for test setup.
func MustLoadDefaultConfig() *SessionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSessionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *SessionConfig) Validate() error {
	if c.IntersectionSource != nil {
		if _, err := gaze.ParseSource(*c.IntersectionSource); err != nil {
			return err
		}
	}

	if c.Zones != nil {
		if _, err := zone.NewRegistry(c.Zones); err != nil {
			return err
		}
	}

	if c.FeedTransport != nil {
		switch *c.FeedTransport {
		case TransportTCP, TransportSerial, TransportReplay:
		default:
			return fmt.Errorf("feed_transport must be one of tcp, serial, replay, got %q", *c.FeedTransport)
		}
	}

	if c.FeedPort != nil && (*c.FeedPort < 1 || *c.FeedPort > 65535) {
		return fmt.Errorf("feed_port must be between 1 and 65535, got %d", *c.FeedPort)
	}

	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}

	if c.ReplayRate != nil && *c.ReplayRate != "" {
		if _, err := parsePositiveDuration(*c.ReplayRate); err != nil {
			return fmt.Errorf("invalid replay_rate '%s': %w", *c.ReplayRate, err)
		}
	}

	if c.GetFeedTransport() == TransportReplay && strings.TrimSpace(c.GetReplayFile()) == "" {
		return fmt.Errorf("replay_file is required for the replay transport")
	}

	return nil
}

// GetIntersectionSource returns the configured source, defaulting to Gaze.
func (c *SessionConfig) GetIntersectionSource() gaze.Source {
	if c.IntersectionSource == nil {
		return gaze.SourceGaze
	}
	s, err := gaze.ParseSource(*c.IntersectionSource)
	if err != nil {
		return gaze.SourceGaze
	}
	return s
}

// GetIntersectionSourceFiltered returns the filtered flag, defaulting to false.
func (c *SessionConfig) GetIntersectionSourceFiltered() bool {
	if c.IntersectionSourceFiltered == nil {
		return false
	}
	return *c.IntersectionSourceFiltered
}

// Selector combines the source and filtered flag.
func (c *SessionConfig) Selector() gaze.Selector {
	return gaze.Selector{Source: c.GetIntersectionSource(), Filtered: c.GetIntersectionSourceFiltered()}
}

// GetZones returns the configured zone names or the six cockpit zones.
func (c *SessionConfig) GetZones() []string {
	if len(c.Zones) == 0 {
		return append([]string(nil), zone.DefaultNames...)
	}
	return append([]string(nil), c.Zones...)
}

func (c *SessionConfig) GetFeedTransport() string {
	if c.FeedTransport == nil {
		return TransportTCP
	}
	return *c.FeedTransport
}

func (c *SessionConfig) GetFeedHost() string {
	if c.FeedHost == nil || *c.FeedHost == "" {
		return "127.0.0.1"
	}
	return *c.FeedHost
}

func (c *SessionConfig) GetFeedPort() int {
	if c.FeedPort == nil {
		return 5555
	}
	return *c.FeedPort
}

// FeedAddress returns host:port for the TCP transport.
func (c *SessionConfig) FeedAddress() string {
	return fmt.Sprintf("%s:%d", c.GetFeedHost(), c.GetFeedPort())
}

func (c *SessionConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPort
}

func (c *SessionConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

func (c *SessionConfig) GetReplayFile() string {
	if c.ReplayFile == nil {
		return ""
	}
	return *c.ReplayFile
}

// GetReplayRate returns the interval between replayed samples. The
// default matches a 60Hz tracker.
func (c *SessionConfig) GetReplayRate() time.Duration {
	const def = 16 * time.Millisecond
	if c.ReplayRate == nil || *c.ReplayRate == "" {
		return def
	}
	d, err := parsePositiveDuration(*c.ReplayRate)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetOutputDir returns the directory relative report paths are placed in.
func (c *SessionConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "log"
	}
	return *c.OutputDir
}

// GetDBPath returns the sqlite path. An empty value disables the database.
func (c *SessionConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "richa.db"
	}
	return *c.DBPath
}

func (c *SessionConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return "127.0.0.1:8080"
	}
	return *c.Listen
}

func parsePositiveDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
