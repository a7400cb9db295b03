// Package config loads server configuration from config.toml using
// viper, the way Danor93-Articles-Chat/internal/config/config.go wires
// viper for its own config file, adapted here to viper's native TOML
// support and to spec §6's two-key schema (network.ip, network.port)
// instead of a YAML/env-var-heavy schema. Missing file or missing keys
// fall back to defaults rather than failing startup, matching
// original_source/src/main.rs's get_ip_port_from_config.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 6969

	// DefaultMaxFrameBytes and DefaultIdleTimeoutSeconds are ambient
	// connection-hygiene knobs (spec §4.D expansion), not part of the
	// wire protocol itself.
	DefaultMaxFrameBytes      = 1 << 20
	DefaultIdleTimeoutSeconds = 300
)

// Config is the fully-resolved server configuration: network address plus
// the ambient transport tuning knobs.
type Config struct {
	Host               string
	Port               uint16
	MaxFrameBytes      int
	IdleTimeoutSeconds int
}

// Addr returns the "host:port" listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the TOML config file at path. A missing file is not
// an error — every field falls back to its default independently — but a
// malformed file that exists is, since that most likely indicates an
// operator mistake worth surfacing.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("network.ip", DefaultHost)
	v.SetDefault("network.port", DefaultPort)
	v.SetDefault("server.max_frame_bytes", DefaultMaxFrameBytes)
	v.SetDefault("server.idle_timeout_seconds", DefaultIdleTimeoutSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: malformed %s: %w", path, err)
		}
		// Fall through: file absent, defaults (already set above) apply.
	}

	return Config{
		Host:               v.GetString("network.ip"),
		Port:                uint16(v.GetUint("network.port")),
		MaxFrameBytes:      v.GetInt("server.max_frame_bytes"),
		IdleTimeoutSeconds: v.GetInt("server.idle_timeout_seconds"),
	}, nil
}
