// Package config loads and persists the gateway's static declaration of
// devices and tags, and holds the process-wide Settings under a
// writer-preferring lock for runtime mutation via the HTTP facade.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DriverConfig describes one configured device.
type DriverConfig struct {
	ID   string `toml:"id" json:"id"`
	Name string `toml:"name" json:"name"`
	// Type selects the driver implementation to construct. Only "opcua"
	// ships in this release; the field exists so the registry construction
	// step can dispatch on it without a breaking config change later.
	Type    string `toml:"type" json:"type"`
	Address string `toml:"address" json:"address"`

	ScanRateMS uint64 `toml:"scan_rate_ms" json:"scan_rate_ms"`

	ApplicationName *string  `toml:"application_name" json:"application_name,omitempty"`
	ApplicationURI  *string  `toml:"application_uri" json:"application_uri,omitempty"`
	SessionName     *string  `toml:"session_name" json:"session_name,omitempty"`
	MaxMessageSize  *int     `toml:"max_message_size" json:"max_message_size,omitempty"`
	MaxChunkCount   *int     `toml:"max_chunk_count" json:"max_chunk_count,omitempty"`

	ConnectRetryAttempts *int     `toml:"connect_retry_attempts" json:"connect_retry_attempts,omitempty"`
	ConnectRetryDelayMS  *uint64  `toml:"connect_retry_delay_ms" json:"connect_retry_delay_ms,omitempty"`
	ConnectRetryBackoff  *float64 `toml:"connect_retry_backoff" json:"connect_retry_backoff,omitempty"`
	ConnectTimeoutMS     *uint64  `toml:"connect_timeout_ms" json:"connect_timeout_ms,omitempty"`
}

// Defaults for the optional client-tuning fields, per spec.md §3.
const (
	DefaultConnectRetryAttempts = 0
	DefaultConnectRetryDelayMS  = 0
	DefaultConnectRetryBackoff  = 2.0
	DefaultConnectTimeoutMS     = 5000
)

func (d DriverConfig) Attempts() int {
	if d.ConnectRetryAttempts != nil {
		return *d.ConnectRetryAttempts
	}
	return DefaultConnectRetryAttempts
}

func (d DriverConfig) DelayMS() uint64 {
	if d.ConnectRetryDelayMS != nil {
		return *d.ConnectRetryDelayMS
	}
	return DefaultConnectRetryDelayMS
}

func (d DriverConfig) Backoff() float64 {
	if d.ConnectRetryBackoff != nil {
		return *d.ConnectRetryBackoff
	}
	return DefaultConnectRetryBackoff
}

func (d DriverConfig) TimeoutMS() uint64 {
	if d.ConnectTimeoutMS != nil {
		return *d.ConnectTimeoutMS
	}
	return DefaultConnectTimeoutMS
}

func (d DriverConfig) DriverType() string {
	if d.Type == "" {
		return "opcua"
	}
	return d.Type
}

// TagConfig describes one configured tag.
type TagConfig struct {
	Path       string `toml:"path" json:"path"`
	DriverID   string `toml:"driver_id" json:"driver_id"`
	Address    string `toml:"address" json:"address"`
	PollRateMS uint64 `toml:"poll_rate_ms" json:"poll_rate_ms"`
}

// Settings is the ordered declaration of devices and tags loaded from, and
// saved to, config.toml.
type Settings struct {
	Devices []DriverConfig `toml:"devices" json:"devices"`
	Tags    []TagConfig    `toml:"tags" json:"tags"`
}

// Load deserializes path into a Settings value. Failure here is fatal at
// startup per spec.md §7.
func Load(path string) (Settings, error) {
	var s Settings
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Settings{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return s, nil
}

// Save serializes s as TOML and writes it to path. Errors are returned to
// the caller, wrapped with the path, so PUT /api/config can report them and
// leave the in-memory copy unchanged.
func Save(path string, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: open %s for write: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}
