package events

import (
	"context"
	"errors"
	"testing"
)

func TestHooksNotifyFansOut(t *testing.T) {
	first := &CaptureHook{}
	second := &CaptureHook{}
	hooks := Hooks{first, nil, second}

	err := hooks.Notify(context.Background(), Event{Verb: ResolveStart, Key: "key:quiz"})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("fan-out missed a hook: %d / %d", len(first.Events()), len(second.Events()))
	}
	if got := first.Events()[0]; got.OccurredAt.IsZero() {
		t.Fatalf("normalization should stamp OccurredAt")
	}
}

func TestHooksNotifyDropsIncompleteEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	if err := hooks.Notify(context.Background(), Event{Key: "key:quiz"}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if err := hooks.Notify(context.Background(), Event{Verb: ResolveStart}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("verb-less or key-less events must be dropped, got %d", len(capture.Events()))
	}
}

func TestHooksNotifyJoinsErrors(t *testing.T) {
	boom := errors.New("sink unavailable")
	failing := &CaptureHook{Err: boom}
	healthy := &CaptureHook{}

	err := Hooks{failing, healthy}.Notify(context.Background(), Event{Verb: ResolveRejected, Key: "key:quiz"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the hook error to surface, got %v", err)
	}
	if len(healthy.Events()) != 1 {
		t.Fatalf("one failing hook must not starve the others")
	}
}

func TestEmitterRespectsConfig(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("disabled emitter reports enabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: ResolveStart, Key: "k"}); err != nil {
		t.Fatalf("Emit on a disabled emitter failed: %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("disabled emitter delivered events")
	}

	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("nil emitter reports enabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if err := enabled.Emit(context.Background(), Event{Verb: ResolveStart, Key: "k"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if len(capture.Events()) != 1 {
		t.Fatalf("enabled emitter delivered %d events", len(capture.Events()))
	}

	empty := NewEmitter(nil, Config{Enabled: true})
	if empty.Enabled() {
		t.Fatalf("an emitter with no hooks has nothing to do")
	}
}
