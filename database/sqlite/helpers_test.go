package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/filevault"
	"github.com/mkravets/filevault/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepos creates repos with unique table names for test isolation.
func setupTestRepos(t *testing.T) (filevault.UserRepo, filevault.FileRepo, func()) {
	t.Helper()

	ctx := context.Background()

	// Use unique table names for each test to avoid conflicts
	suffix := getRandomString(t)
	tables := filevault.Tables{
		Users: fmt.Sprintf("users_%s", suffix),
		Files: fmt.Sprintf("files_%s", suffix),
	}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	assert.NoError(t, err, "failed to connect")

	err = db.Migrate(ctx)
	assert.NoError(t, err, "failed to migrate")

	cleanup := func() {
		_ = db.Close()
	}

	return db.Users(), db.Files(), cleanup
}

// createTestUser inserts a user and returns the stored record.
func createTestUser(t *testing.T, users filevault.UserRepo, username string) filevault.User {
	t.Helper()
	user, err := users.Create(context.Background(), filevault.User{
		Username:     username,
		PasswordHash: "$2a$10$fakehashfortesting",
	})
	require.NoError(t, err, "create test user")
	return user
}
