// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package store

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		assert.True(t, pattern.MatchString(name), "file %s should match NNNNNN_name.(up|down).sql", name)
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	assert.True(t, ups["000001_create_auth_tables"])
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrationsFS_AccountTables(t *testing.T) {
	up, err := migrationsFS.ReadFile("migrations/000001_create_auth_tables.up.sql")
	require.NoError(t, err)
	sql := string(up)

	for _, table := range []string{"accounts", "user_sessions", "security_events"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email")
	assert.NotContains(t, strings.ToUpper(sql), "ON DELETE CASCADE")
}
