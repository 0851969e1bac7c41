package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"writehub/internal/model"
)

func TestMigrate_CreatesPostIndexes(t *testing.T) {
	gormDB, err := NewSQLite(":memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(gormDB))

	m := gormDB.Migrator()
	assert.True(t, m.HasTable(&model.User{}))
	assert.True(t, m.HasTable(&model.Post{}))
	assert.True(t, m.HasIndex(&model.Post{}, "idx_posts_status_created"))
	assert.True(t, m.HasIndex(&model.Post{}, "idx_posts_views"))
	assert.True(t, m.HasIndex(&model.Post{}, "AuthorID"))
}

func TestMigrate_Idempotent(t *testing.T) {
	gormDB, err := NewSQLite(":memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(gormDB))
	assert.NoError(t, Migrate(gormDB))
}
