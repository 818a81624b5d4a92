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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopSinkDiscardsRecords(t *testing.T) {
	var sink NoopSink
	err := sink.RecordCall(context.Background(), Record{
		ServiceName: "Calculator",
		MethodName:  "Add",
		StartedAt:   time.Now(),
		Duration:    time.Millisecond,
		Outcome:     "ok",
	})
	assert.NoError(t, err)
	assert.NoError(t, sink.Close())
}

func TestPostgresConfigConnString(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "remoting"}
	assert.Equal(t, "postgres://u:p@db:5432/remoting?sslmode=disable", cfg.connString())

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@db:5432/remoting?sslmode=require", cfg.connString())
}
