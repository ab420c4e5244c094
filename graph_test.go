package content

import (
	"errors"
	"testing"
)

func TestNewStoreRejectsDuplicateKeys(t *testing.T) {
	_, err := NewStore(
		&StaticNode{Key: "quiz", Tag: "Quiz"},
		&StaticNode{Key: "quiz", Tag: "Quiz"},
	)
	if err == nil {
		t.Fatalf("expected duplicate keys to be rejected")
	}
}

func TestNewStoreRejectsKeylessNodes(t *testing.T) {
	if _, err := NewStore(&StaticNode{Tag: "Quiz"}); err == nil {
		t.Fatalf("expected a keyless node to be rejected")
	}
}

func TestStoreLookup(t *testing.T) {
	store, err := NewStore(&StaticNode{Key: "quiz", Tag: "Quiz"})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	node, err := store.Lookup("quiz")
	if err != nil || node.Tag != "Quiz" {
		t.Fatalf("Lookup = (%v, %v)", node, err)
	}

	_, err = store.Lookup("missing")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Key != "missing" {
		t.Fatalf("expected NotFoundError for missing, got %v", err)
	}
}

func TestStorePublishCreatesNewVersion(t *testing.T) {
	store, err := NewStore(&StaticNode{Key: "quiz", Tag: "Quiz", Attributes: map[string]any{"limit": float64(1)}})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	next, err := store.Publish(
		&StaticNode{Key: "quiz", Tag: "Quiz", Attributes: map[string]any{"limit": float64(2)}},
		&StaticNode{Key: "essay", Tag: "Essay"},
	)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if next.Version() == store.Version() {
		t.Fatalf("publishing must mint a new version")
	}
	if store.Len() != 1 || next.Len() != 2 {
		t.Fatalf("unexpected sizes: old=%d new=%d", store.Len(), next.Len())
	}

	old, _ := store.Lookup("quiz")
	if old.Attributes["limit"] != float64(1) {
		t.Fatalf("the old version changed: %v", old.Attributes)
	}
	updated, _ := next.Lookup("quiz")
	if updated.Attributes["limit"] != float64(2) {
		t.Fatalf("the new version missed the edit: %v", updated.Attributes)
	}
}

func TestPublishedAttributesAreDetached(t *testing.T) {
	attrs := map[string]any{"prompt": "original"}
	store, err := NewStore(&StaticNode{Key: "quiz", Tag: "Quiz", Attributes: attrs})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	attrs["prompt"] = "tampered"

	node, _ := store.Lookup("quiz")
	if node.Attributes["prompt"] != "original" {
		t.Fatalf("caller mutation reached a published node")
	}
}

func TestApplyOverridesNeverMutatesTheNode(t *testing.T) {
	node := &StaticNode{
		Key: "quiz",
		Tag: "Quiz",
		Attributes: map[string]any{
			"prompt": "what is 2+2",
			"hints":  map[string]any{"first": "think"},
		},
	}

	merged := ApplyOverrides(node, map[string]any{
		"prompt": "what is 3+3",
		"hints":  map[string]any{"first": "count"},
	})

	if merged == node {
		t.Fatalf("override application must return a detached copy")
	}
	if merged.Attributes["prompt"] != "what is 3+3" {
		t.Fatalf("override not applied: %v", merged.Attributes)
	}
	if node.Attributes["prompt"] != "what is 2+2" {
		t.Fatalf("shared node mutated: %v", node.Attributes)
	}
	if node.Attributes["hints"].(map[string]any)["first"] != "think" {
		t.Fatalf("nested attribute mutated: %v", node.Attributes)
	}

	if got := ApplyOverrides(node, nil); got != node {
		t.Fatalf("no overrides should return the node itself")
	}
}
