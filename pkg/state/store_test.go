package state

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

var storeFactories = []struct {
	name string
	new  func(t *testing.T) Store
}{
	{
		name: "memory",
		new: func(t *testing.T) Store {
			return NewMemoryStore()
		},
	},
	{
		name: "bolt",
		new: func(t *testing.T) Store {
			store, err := Open(filepath.Join(t.TempDir(), "state.db"))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
	},
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for _, factory := range storeFactories {
		t.Run(factory.name, func(t *testing.T) {
			store := factory.new(t)

			if _, ok, err := store.Get(ctx, "quiz", "answer"); err != nil || ok {
				t.Fatalf("unwritten field: ok=%v err=%v, expected absent", ok, err)
			}

			if err := store.Set(ctx, "quiz", "answer", "b"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := store.Set(ctx, "quiz", "attempts", float64(2)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			value, ok, err := store.Get(ctx, "quiz", "answer")
			if err != nil || !ok || value != "b" {
				t.Fatalf("Get = (%v, %v, %v), expected (b, true, nil)", value, ok, err)
			}

			// Same field under a different key is independent.
			if _, ok, _ := store.Get(ctx, "list:0:quiz", "answer"); ok {
				t.Fatalf("scoped key leaked into an unscoped one")
			}

			snapshot, err := store.Snapshot(ctx, "quiz")
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			want := map[string]any{"answer": "b", "attempts": float64(2)}
			if !reflect.DeepEqual(snapshot, want) {
				t.Fatalf("Snapshot = %#v, expected %#v", snapshot, want)
			}

			// Snapshots are detached copies.
			snapshot["answer"] = "tampered"
			if value, _, _ := store.Get(ctx, "quiz", "answer"); value != "b" {
				t.Fatalf("mutating a snapshot changed the store: %v", value)
			}

			if snap, err := store.Snapshot(ctx, "never-written"); err != nil || len(snap) != 0 {
				t.Fatalf("snapshot of an absent key = (%v, %v), expected empty", snap, err)
			}
		})
	}
}

func TestStoreSnapshotScope(t *testing.T) {
	ctx := context.Background()
	for _, factory := range storeFactories {
		t.Run(factory.name, func(t *testing.T) {
			store := factory.new(t)
			writes := map[string]string{
				"list:0:quiz":  "a",
				"list:1:quiz":  "b",
				"list:10:quiz": "c",
				"quiz":         "outside",
			}
			for key, answer := range writes {
				if err := store.Set(ctx, key, "answer", answer); err != nil {
					t.Fatalf("Set %s failed: %v", key, err)
				}
			}

			scoped, err := store.SnapshotScope(ctx, "list:0")
			if err != nil {
				t.Fatalf("SnapshotScope failed: %v", err)
			}
			if len(scoped) != 1 {
				t.Fatalf("scope list:0 returned keys %v, expected only quiz", scoped)
			}
			if scoped["quiz"]["answer"] != "a" {
				t.Fatalf("scope list:0 quiz = %#v", scoped["quiz"])
			}

			all, err := store.SnapshotScope(ctx, "")
			if err != nil {
				t.Fatalf("SnapshotScope(\"\") failed: %v", err)
			}
			if len(all) != len(writes) {
				t.Fatalf("full snapshot has %d keys, expected %d", len(all), len(writes))
			}
		})
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Set(ctx, "essay", "text", "draft one"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Set(ctx, "essay", "text", "after close"); err != ErrClosed {
		t.Fatalf("Set after Close = %v, expected ErrClosed", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	value, ok, err := reopened.Get(ctx, "essay", "text")
	if err != nil || !ok || value != "draft one" {
		t.Fatalf("Get after reopen = (%v, %v, %v)", value, ok, err)
	}
}
