package content

import (
	"time"

	"github.com/goliatone/go-content/pkg/events"
)

// ResolutionEvent describes one resolution attempt for logging.
type ResolutionEvent struct {
	Key      string
	Scope    string
	Version  string
	CacheHit bool
	State    HandleState
	Duration time.Duration
	Err      error
}

// ResolveLogger records resolution events.
type ResolveLogger interface {
	LogResolution(ResolutionEvent)
}

// ResolveLoggerFunc adapts a function to ResolveLogger.
type ResolveLoggerFunc func(ResolutionEvent)

// LogResolution implements ResolveLogger.
func (f ResolveLoggerFunc) LogResolution(event ResolutionEvent) {
	if f != nil {
		f(event)
	}
}

type noopResolveLogger struct{}

func (noopResolveLogger) LogResolution(ResolutionEvent) {}

func (e *Engine) logStart(ck CompositeKey) {
	e.emit(events.ResolveStart, ck, nil)
}

func (e *Engine) logCacheHit(ck CompositeKey) {
	e.logger.LogResolution(ResolutionEvent{
		Key:      ck.identity,
		Scope:    ck.scope,
		Version:  e.cache.version,
		CacheHit: true,
	})
	e.emit(events.ResolveCacheHit, ck, nil)
}

// watchSettle logs and emits once the handle leaves pending.
func (e *Engine) watchSettle(h *Handle, ck CompositeKey, start time.Time) {
	version := e.cache.version
	h.Subscribe(func(_ *Instance, err error) {
		e.logger.LogResolution(ResolutionEvent{
			Key:      ck.identity,
			Scope:    ck.scope,
			Version:  version,
			State:    h.State(),
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			e.emit(events.ResolveRejected, ck, err)
			return
		}
		e.emit(events.ResolveFulfilled, ck, nil)
	})
}

func (e *Engine) emit(verb string, ck CompositeKey, err error) {
	if !e.emitter.Enabled() {
		return
	}
	_ = e.emitter.Emit(e.baseCtx, events.Event{
		Verb:    verb,
		Key:     ck.identity,
		Scope:   ck.scope,
		Version: e.cache.version,
		Err:     err,
	})
}
