package bbolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/artpar/maintforms/adapters/bbolt"
)

func TestKVStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "fields.bolt")
	ctx := context.Background()

	store, err := bbolt.Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Fatal("fresh store should not contain k")
	}
	if err := store.Set(ctx, "k", `{"a":1}`); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	store, err = bbolt.Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer store.Close()

	v, found, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found || v != `{"a":1}` {
		t.Errorf("Get = %q, %v", v, found)
	}
}

func TestKVStore_Overwrite(t *testing.T) {
	store, err := bbolt.Open(filepath.Join(t.TempDir(), "kv.bolt"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	_ = store.Set(ctx, "k", "one")
	_ = store.Set(ctx, "k", "two")

	if v, _, _ := store.Get(ctx, "k"); v != "two" {
		t.Errorf("Get = %q, want two", v)
	}
}
