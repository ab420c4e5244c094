package layering

import (
	"reflect"
	"testing"
)

func TestMergeAttributes(t *testing.T) {
	tests := []struct {
		name      string
		base      map[string]any
		overrides map[string]any
		want      map[string]any
	}{
		{
			name: "override wins wholesale",
			base: map[string]any{
				"title": "Intro",
				"meta":  map[string]any{"level": "easy", "points": float64(5)},
			},
			overrides: map[string]any{
				"meta": map[string]any{"level": "hard"},
			},
			want: map[string]any{
				"title": "Intro",
				"meta":  map[string]any{"level": "hard"},
			},
		},
		{
			name:      "base only",
			base:      map[string]any{"title": "Intro"},
			overrides: nil,
			want:      map[string]any{"title": "Intro"},
		},
		{
			name:      "overrides only",
			base:      nil,
			overrides: map[string]any{"limit": float64(3)},
			want:      map[string]any{"limit": float64(3)},
		},
		{
			name:      "both empty yields nil",
			base:      nil,
			overrides: map[string]any{},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeAttributes(tt.base, tt.overrides)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("MergeAttributes() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMergeAttributesDetachesInputs(t *testing.T) {
	base := map[string]any{
		"tags": []any{"a", "b"},
		"meta": map[string]any{"level": "easy"},
	}
	overrides := map[string]any{
		"extra": map[string]any{"note": "x"},
	}

	merged := MergeAttributes(base, overrides)

	merged["tags"].([]any)[0] = "mutated"
	merged["meta"].(map[string]any)["level"] = "mutated"
	merged["extra"].(map[string]any)["note"] = "mutated"

	if base["tags"].([]any)[0] != "a" {
		t.Fatalf("base slice mutated through merged copy")
	}
	if base["meta"].(map[string]any)["level"] != "easy" {
		t.Fatalf("base map mutated through merged copy")
	}
	if overrides["extra"].(map[string]any)["note"] != "x" {
		t.Fatalf("overrides map mutated through merged copy")
	}
}

func TestCloneAttributesNil(t *testing.T) {
	if got := CloneAttributes(nil); got != nil {
		t.Fatalf("CloneAttributes(nil) = %#v, want nil", got)
	}
}

func TestCloneValue(t *testing.T) {
	original := map[string]any{
		"list": []any{
			map[string]any{"k": "v"},
			float64(2),
		},
		"scalar": "s",
	}

	cloned, ok := CloneValue(original).(map[string]any)
	if !ok {
		t.Fatalf("CloneValue returned %T, want map[string]any", CloneValue(original))
	}
	if !reflect.DeepEqual(cloned, original) {
		t.Fatalf("clone differs from original: %#v", cloned)
	}

	cloned["list"].([]any)[0].(map[string]any)["k"] = "mutated"
	if original["list"].([]any)[0].(map[string]any)["k"] != "v" {
		t.Fatalf("nested map mutated through clone")
	}

	if got := CloneValue("plain"); got != "plain" {
		t.Fatalf("CloneValue scalar = %#v", got)
	}
}
