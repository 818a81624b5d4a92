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

package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig configures the connection used by PostgresSink.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c PostgresConfig) connString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// PostgresSink persists call records to a "call_audit" table via pgx.
// The table is expected to already exist; PostgresSink never runs DDL.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink opens a connection pool and verifies it with Ping.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("audit: connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping postgres: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) RecordCall(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO call_audit
			(server_instance_name, session_id, service_name, method_name, started_at, duration_ms, outcome, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		rec.ServerInstanceName,
		rec.SessionID,
		rec.ServiceName,
		rec.MethodName,
		rec.StartedAt,
		rec.Duration.Milliseconds(),
		rec.Outcome,
		rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("audit: insert call record: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
