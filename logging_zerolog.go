package content

import "github.com/rs/zerolog"

// NewZerologResolveLogger adapts a zerolog logger to ResolveLogger. Settled
// resolutions log at debug, rejections at error with the original cause.
func NewZerologResolveLogger(logger zerolog.Logger) ResolveLogger {
	return ResolveLoggerFunc(func(event ResolutionEvent) {
		entry := logger.Debug()
		if event.Err != nil {
			entry = logger.Error().Err(event.Err)
		}
		entry.
			Str("key", event.Key).
			Str("scope", event.Scope).
			Str("version", event.Version).
			Bool("cache_hit", event.CacheHit).
			Stringer("state", event.State).
			Dur("duration", event.Duration).
			Msg("resolution")
	})
}
