// Package hydrate converts raw attribute payloads into the strongly typed
// schema structs component handlers declare.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context carries identifiers tied to the node being decoded, for error
// messages an author can act on.
type Context struct {
	Key   string
	Tag   string
	Scope string
}

func (c Context) label() string {
	if c.Key != "" {
		return c.Key
	}
	return c.Tag
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts attribute maps into handler schema structs.
type Decoder struct {
	preHooks     []PreHook
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields rejects attributes the schema does not declare.
func WithDisallowUnknownFields() DecoderOption {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode fills target (a pointer to a schema struct) from payload, applying
// configured hooks. A nil payload decodes to the schema's zero value.
func (d *Decoder) Decode(ctx Context, payload map[string]any, target any) error {
	if target == nil {
		return fmt.Errorf("hydrate: decode target for %q is nil", ctx.label())
	}
	if payload == nil {
		payload = map[string]any{}
	}

	current := payload
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	buffer, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("hydrate: marshal attributes of %q: %w", ctx.label(), err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("hydrate: decode attributes of %q: %w", ctx.label(), err)
	}
	return nil
}
