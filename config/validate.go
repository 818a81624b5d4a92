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

import "fmt"

// ValidationIssue is one problem found by ValidateConfiguration. Level is
// either "error" (Load fails) or "warning" (Load logs and continues).
type ValidationIssue struct {
	Field   string
	Message string
	Level   string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Level, v.Field, v.Message)
}

// ValidateConfiguration checks cfg for values that would make the
// process misbehave at runtime rather than fail fast at load time.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Environment == "" {
		issues = append(issues, ValidationIssue{"environment", "environment is required", "error"})
	}

	if cfg.Server != nil && cfg.Server.KeySizeBits != 0 && cfg.Server.KeySizeBits < 2048 {
		issues = append(issues, ValidationIssue{"server.key_size_bits", "RSA keys below 2048 bits are not supported", "error"})
	}
	if cfg.Client != nil && cfg.Client.KeySizeBits != 0 && cfg.Client.KeySizeBits < 2048 {
		issues = append(issues, ValidationIssue{"client.key_size_bits", "RSA keys below 2048 bits are not supported", "error"})
	}

	if cfg.Session != nil && cfg.Session.MaxSessions < 0 {
		issues = append(issues, ValidationIssue{"session.max_sessions", "must not be negative", "error"})
	}

	if cfg.Handshake != nil && cfg.Handshake.MaxRetries < 0 {
		issues = append(issues, ValidationIssue{"handshake.max_retries", "must not be negative", "error"})
	}

	if cfg.Server != nil && cfg.Server.AuthenticationRequired && cfg.KeyStore == nil {
		issues = append(issues, ValidationIssue{"keystore", "authentication_required is set but no keystore is configured", "warning"})
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "", "debug", "info", "warn", "error":
		default:
			issues = append(issues, ValidationIssue{"logging.level", "unrecognized log level: " + cfg.Logging.Level, "warning"})
		}
	}

	return issues
}
