package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/firestore"
)

// TestSQLite returns a migrated SQLite database in a temporary directory.
func TestSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test sqlite database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// TestFirestore returns a client connected to the Firestore emulator.
// Skips the test if FIRESTORE_EMULATOR_HOST is not set.
func TestFirestore(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping firestore test")
	}

	client, err := Firestore(context.Background(), FirestoreCredentials{ProjectID: "egresos-test"})
	if err != nil {
		t.Fatalf("failed to connect to firestore emulator: %v", err)
	}

	return client
}
