package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsAreSequential(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.version)
		assert.Contains(t, m.sql, "INSERT INTO schema_version")
	}
}

func TestChangeTriggerCoversFeedTables(t *testing.T) {
	last := migrations[len(migrations)-1].sql
	for _, table := range []string{"food_requests", "recommendations", "notifications"} {
		assert.Contains(t, last, "ON "+table)
	}
	assert.Contains(t, last, "pg_notify('row_changes'")
}
