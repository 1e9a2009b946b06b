package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/filevault"
	"github.com/mkravets/filevault/database"
)

func TestConnect(t *testing.T) {
	ctx := context.Background()
	tables := filevault.Tables{Users: "users", Files: "files"}

	t.Run("success - sqlite", func(t *testing.T) {
		db, err := database.Connect(ctx, database.Config{
			Type:   "sqlite",
			DSN:    ":memory:",
			Tables: tables,
		})
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		assert.NoError(t, db.Ping(ctx))
	})

	t.Run("error - unsupported type", func(t *testing.T) {
		_, err := database.Connect(ctx, database.Config{
			Type:   "mysql",
			DSN:    "whatever",
			Tables: tables,
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database type")
	})

	t.Run("error - invalid table names", func(t *testing.T) {
		_, err := database.Connect(ctx, database.Config{
			Type: "sqlite",
			DSN:  ":memory:",
			Tables: filevault.Tables{
				Users: "users;drop table",
				Files: "files",
			},
		})
		assert.Error(t, err)
	})
}
