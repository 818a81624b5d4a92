// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sage-x-project/remoting/client"
	sagecrypto "github.com/sage-x-project/remoting/crypto"
	"github.com/sage-x-project/remoting/server"
)

// Config is the root configuration document for a host process embedding
// either a Server, a Client, or both. It is the on-disk counterpart to
// server.Config and client.Config: it adds YAML/JSON tags and sane
// per-environment defaults, and is translated into the two wire-level
// Config types via ToServerConfig/ToClientConfig rather than replacing
// them.
type Config struct {
	Environment string           `yaml:"environment" json:"environment"`
	Server      *ServerConfig    `yaml:"server" json:"server"`
	Client      *ClientConfig    `yaml:"client" json:"client"`
	Session     *SessionConfig   `yaml:"session" json:"session"`
	Handshake   *HandshakeConfig `yaml:"handshake" json:"handshake"`
	KeyStore    *KeyStoreConfig  `yaml:"keystore" json:"keystore"`
	Logging     *LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig   `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig    `yaml:"health" json:"health"`
}

// ServerConfig is the on-disk form of server.Config's security and
// authentication surface.
type ServerConfig struct {
	KeySizeBits            int  `yaml:"key_size_bits" json:"key_size_bits"`
	MessageEncryption      bool `yaml:"message_encryption" json:"message_encryption"`
	AuthenticationRequired bool `yaml:"authentication_required" json:"authentication_required"`
}

// ClientConfig is the on-disk form of client.Config's security surface.
// Timeouts live under Handshake rather than being duplicated here.
type ClientConfig struct {
	KeySizeBits       int  `yaml:"key_size_bits" json:"key_size_bits"`
	MessageEncryption bool `yaml:"message_encryption" json:"message_encryption"`
}

// SessionConfig governs how long an idle session is allowed to live and
// how often the sweeper looks for one; it maps onto
// server.Config.MaximumSessionInactivityTime/InactiveSessionSweepInterval.
type SessionConfig struct {
	MaxIdleTime     time.Duration `yaml:"max_idle_time" json:"max_idle_time"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	MaxSessions     int           `yaml:"max_sessions" json:"max_sessions"`
}

// HandshakeConfig governs the client's connect/authenticate path: the
// per-attempt timeout and the retry policy a dialer wraps around
// Client.Connect.
type HandshakeConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

// KeyStoreConfig represents key storage configuration.
type KeyStoreConfig struct {
	Type          string `yaml:"type" json:"type"`
	Directory     string `yaml:"directory" json:"directory"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration.
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// ToServerConfig translates the on-disk server/session surface into a
// server.Config. Fields the caller still needs to supply programmatically
// (Channel, Serializer, AuthenticationProvider, AuditSink) are left zero.
func (c *Config) ToServerConfig() server.Config {
	cfg := server.DefaultConfig()
	if c.Server != nil {
		if c.Server.KeySizeBits != 0 {
			cfg.KeySizeBits = c.Server.KeySizeBits
		}
		cfg.MessageEncryption = c.Server.MessageEncryption
		cfg.AuthenticationRequired = c.Server.AuthenticationRequired
	}
	if c.Session != nil {
		if c.Session.MaxIdleTime != 0 {
			cfg.MaximumSessionInactivityTime = c.Session.MaxIdleTime
		}
		if c.Session.CleanupInterval != 0 {
			cfg.InactiveSessionSweepInterval = c.Session.CleanupInterval
		}
	}
	return cfg
}

// ToClientConfig translates the on-disk client/handshake surface into a
// client.Config. Fields the caller still needs to supply programmatically
// (Channel, Serializer, Credentials) are left zero.
func (c *Config) ToClientConfig() client.Config {
	cfg := client.DefaultConfig()
	if c.Client != nil {
		if c.Client.KeySizeBits != 0 {
			cfg.KeySizeBits = c.Client.KeySizeBits
		}
		cfg.MessageEncryption = c.Client.MessageEncryption
	}
	if c.Handshake != nil {
		if c.Handshake.Timeout != 0 {
			cfg.AuthenticationTimeout = c.Handshake.Timeout
		}
	}
	return cfg
}

// LoadFromFile loads configuration from a file, trying YAML then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file, picking the format by
// extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults fills in documented defaults for every populated
// sub-config. Key sizes and the 30-minute session idle limit match
// server.DefaultConfig/client.DefaultConfig; the session cleanup interval
// defaults to 5 minutes, unlike the server's 60s sweep interval.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Server != nil {
		if cfg.Server.KeySizeBits == 0 {
			cfg.Server.KeySizeBits = sagecrypto.DefaultRSAKeyBits
		}
	}

	if cfg.Client != nil {
		if cfg.Client.KeySizeBits == 0 {
			cfg.Client.KeySizeBits = sagecrypto.DefaultRSAKeyBits
		}
	}

	if cfg.Session != nil {
		if cfg.Session.MaxIdleTime == 0 {
			cfg.Session.MaxIdleTime = 30 * time.Minute
		}
		if cfg.Session.CleanupInterval == 0 {
			cfg.Session.CleanupInterval = 5 * time.Minute
		}
		if cfg.Session.MaxSessions == 0 {
			cfg.Session.MaxSessions = 10000
		}
	}

	if cfg.Handshake != nil {
		if cfg.Handshake.Timeout == 0 {
			cfg.Handshake.Timeout = 30 * time.Second
		}
		if cfg.Handshake.MaxRetries == 0 {
			cfg.Handshake.MaxRetries = 3
		}
		if cfg.Handshake.RetryBackoff == 0 {
			cfg.Handshake.RetryBackoff = 1 * time.Second
		}
	}

	if cfg.KeyStore != nil {
		if cfg.KeyStore.Type == "" {
			cfg.KeyStore.Type = "encrypted-file"
		}
		if cfg.KeyStore.Directory == "" {
			cfg.KeyStore.Directory = ".sage/keys"
		}
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = "json"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}
}
