package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		if migrations[0].Name != "create_rooms" {
			t.Errorf("expected first migration create_rooms, got %q", migrations[0].Name)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		applied, err := RunMigrations(ctx, db)
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if len(applied) != 3 {
			t.Errorf("expected 3 applied migrations, got %v", applied)
		}

		for _, table := range []string{"rooms", "credentials", "sessions"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		version, err := RollbackMigration(ctx, db)
		if err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if version != 2 {
			t.Errorf("expected to roll back version 2, got %d", version)
		}

		if _, err := db.Exec("SELECT 1 FROM sessions LIMIT 1"); err == nil {
			t.Error("sessions table should be gone after rollback")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		applied, err := RunMigrations(ctx, db)
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if len(applied) != 0 {
			t.Errorf("expected nothing applied on second run, got %v", applied)
		}
	})

	t.Run("splitStatements", func(t *testing.T) {
		tests := []struct {
			name   string
			script string
			want   []string
		}{
			{
				name:   "semicolon inside a comment",
				script: "-- first; second\nCREATE TABLE a (id INTEGER);\n",
				want:   []string{"CREATE TABLE a (id INTEGER)"},
			},
			{
				name:   "trailing comment after statement",
				script: "CREATE TABLE a (id INTEGER); -- done; really\nCREATE TABLE b (id INTEGER);",
				want:   []string{"CREATE TABLE a (id INTEGER)", "CREATE TABLE b (id INTEGER)"},
			},
			{
				name:   "only comments",
				script: "-- nothing; here\n-- at all",
				want:   nil,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := splitStatements(tt.script)
				if len(got) != len(tt.want) {
					t.Fatalf("expected %d statements, got %d: %q", len(tt.want), len(got), got)
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("statement %d: expected %q, got %q", i, tt.want[i], got[i])
					}
				}
			})
		}
	})

	t.Run("Comment With Semicolon Executes", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		script := "-- bindings; one per session\nCREATE TABLE notes (id INTEGER PRIMARY KEY);"
		if err := execMigration(ctx, db, script, "SELECT ?", 1); err != nil {
			t.Fatalf("failed to execute script: %v", err)
		}
		if _, err := db.Exec("SELECT 1 FROM notes LIMIT 1"); err != nil {
			t.Errorf("notes table should exist: %v", err)
		}
	})

	t.Run("Rollback Empty", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(ctx, db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		for range 3 {
			if _, err := RollbackMigration(ctx, db); err != nil {
				t.Fatalf("unexpected rollback error: %v", err)
			}
		}
		if _, err := RollbackMigration(ctx, db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	insert := `INSERT INTO rooms (code, host_key, created_at, updated_at, active_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	if _, err := db.Exec(insert, "AAAAAA", "host-1"); err != nil {
		t.Fatalf("failed to insert room: %v", err)
	}

	_, err = db.Exec(insert, "AAAAAA", "host-2")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if !IsUniqueViolation(err, "rooms.code") {
		t.Error("expected violation to name rooms.code")
	}
	if IsUniqueViolation(err, "rooms.host_key") {
		t.Error("violation should not name rooms.host_key")
	}

	if IsUniqueViolation(errors.New("UNIQUE constraint failed")) {
		t.Error("plain errors should not match")
	}
	if IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrBusy}) {
		t.Error("busy errors should not match")
	}
}
