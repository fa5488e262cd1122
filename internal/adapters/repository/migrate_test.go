package repository

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMigrator_UpDownUp(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultSQLiteConfig(MemoryPath)
	cfg.AutoMigrate = false

	store, err := OpenSQLite(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	mm, err := store.Migrator()
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	defer func() { _ = mm.Close() }()

	if v, dirty, err := mm.Version(); err != nil || v != 0 || dirty {
		t.Fatalf("expected fresh schema at version 0, got %d dirty=%v err=%v", v, dirty, err)
	}

	if err := mm.Up(); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mm.Up(); err != nil {
		t.Fatalf("second up should be a no-op: %v", err)
	}
	if v, _, _ := mm.Version(); v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
	if _, err := store.Counts(ctx); err != nil {
		t.Fatalf("expected tables after up: %v", err)
	}

	if err := mm.Down(); err != nil {
		t.Fatalf("down: %v", err)
	}
	if _, err := store.Counts(ctx); err == nil {
		t.Fatal("expected tables to be dropped after down")
	}

	if err := mm.Up(); err != nil {
		t.Fatalf("re-up: %v", err)
	}
	if _, err := store.Counts(ctx); err != nil {
		t.Fatalf("expected tables after re-up: %v", err)
	}
}

func TestOpenSQLite_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "formcoach.db")

	store, err := OpenSQLite(ctx, DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := sampleSession("athlete", 70)
	id, err := store.CreateSession(ctx, &s)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening runs migrations again and must keep existing rows.
	reopened, err := OpenSQLite(ctx, DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if reopened.Path() != path {
		t.Errorf("expected path %s, got %s", path, reopened.Path())
	}
	if _, err := reopened.GetSession(ctx, id); err != nil {
		t.Fatalf("expected session to survive reopen: %v", err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), SQLiteConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
