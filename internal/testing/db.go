// Package testing provides testing utilities and helpers for the thirteenf project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/thirteenf/internal/clientdata"
	"github.com/aristath/thirteenf/internal/database"
)

// NewTestDB creates a migrated SQLite database under t.TempDir().
// The connection is closed by t.Cleanup.
//
// Supported schema names:
//   - "client_data" - applies client_data_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	return db
}

// NewClientDataRepo returns a repository over a fresh client_data database.
func NewClientDataRepo(t *testing.T) *clientdata.Repository {
	t.Helper()
	return clientdata.NewRepository(NewTestDB(t, "client_data").Conn())
}
