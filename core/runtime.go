package core

import "log/slog"

// Runtime is the handle the loop passes to every worker extension
// point. It carries the per-worker logger, the operator-supplied
// parameter map, and operation tracking. One Runtime is constructed
// per loop and shared by reference.
type Runtime struct {
	logger  *slog.Logger
	params  map[string]any
	tracker *Tracker
}

// Logger returns the per-worker logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Params returns the worker-specific parameter map.
func (r *Runtime) Params() map[string]any {
	return r.params
}

// Param returns a single named parameter.
func (r *Runtime) Param(key string) (any, bool) {
	v, ok := r.params[key]
	return v, ok
}

// StringParam returns a string parameter, or def when absent or not a
// string.
func (r *Runtime) StringParam(key, def string) string {
	if v, ok := r.params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// IntParam returns an integer parameter, or def when absent. JSON
// decoding yields float64 for numbers, so both forms are accepted.
func (r *Runtime) IntParam(key string, def int) int {
	switch v := r.params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// FloatParam returns a float parameter, or def when absent.
func (r *Runtime) FloatParam(key string, def float64) float64 {
	switch v := r.params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Track runs fn as one invocation of the named operation. See
// Tracker.Track.
func (r *Runtime) Track(name string, fn func() error) error {
	return r.tracker.Track(name, fn)
}
