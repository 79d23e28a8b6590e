// Package testing provides testing utilities and helpers for the replica project.
package testing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aristath/replica/internal/database"
)

// NewTestDB opens a private in-memory SQLite database, applies the embedded
// schema for name and closes it when the test ends.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	// subtest names contain slashes, which would read as a path
	id := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:%s_%s?mode=memory", name, id),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
