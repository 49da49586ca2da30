package storageless

import (
	"reflect"
	"sort"

	"github.com/MrEthical07/storageless/clock"
)

// RegeneratedKey is the session key stamped by Session.Regenerate.
const RegeneratedKey = "_regenerated"

// Session is the per-request key/value store carried in the session cookie.
// Values must be JSON-serializable for the session to be persisted.
//
// A Session is owned by a single request and must not be mutated concurrently.
type Session struct {
	data     map[string]any
	original map[string]any

	regen   RegenerationMode
	clock   clock.Clock
	metrics *Metrics
}

// NewSession wraps data in a Session using marker regeneration and the system
// clock. data is copied; later changes to it are not observed.
func NewSession(data map[string]any) *Session {
	return newSession(data, RegenerateMarker, clock.System(), nil)
}

func newSession(data map[string]any, regen RegenerationMode, c clock.Clock, m *Metrics) *Session {
	if data == nil {
		data = map[string]any{}
	}
	return &Session{
		data:     copyMap(data),
		original: copyMap(data),
		regen:    regen,
		clock:    c,
		metrics:  m,
	}
}

// Get returns the value stored under name, or def when absent.
func (s *Session) Get(name string, def any) any {
	v, ok := s.data[name]
	if !ok {
		return def
	}
	return v
}

// Has reports whether name is present, even with a nil value.
func (s *Session) Has(name string) bool {
	_, ok := s.data[name]
	return ok
}

// Set stores value under name.
func (s *Session) Set(name string, value any) {
	s.data[name] = value
}

// Unset removes name. Removing an absent key is a no-op.
func (s *Session) Unset(name string) {
	delete(s.data, name)
}

// Clear removes every key. An empty session is persisted as a clearing cookie.
func (s *Session) Clear() {
	clear(s.data)
}

// ToMap returns a deep copy of the session data.
func (s *Session) ToMap() map[string]any {
	return copyMap(s.data)
}

// Keys returns the session keys in sorted order.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (s *Session) Len() int {
	return len(s.data)
}

// IsEmpty reports whether the session holds no keys.
func (s *Session) IsEmpty() bool {
	return len(s.data) == 0
}

// HasChanged reports whether the data differs from what the session was
// created with.
func (s *Session) HasChanged() bool {
	return !reflect.DeepEqual(s.data, s.original)
}

// Regenerate marks the session as regenerated. Since the token is re-signed on
// every response there is no identifier to rotate; in RegenerateMarker mode the
// current Unix time is stored under RegeneratedKey and s is returned. In
// RegenerateUnsupported mode it returns ErrNotImplemented.
func (s *Session) Regenerate() (*Session, error) {
	if s.regen == RegenerateUnsupported {
		return nil, newNotImplementedError("Regenerate")
	}
	s.data[RegeneratedKey] = s.clock.Now().Unix()
	s.metrics.Inc(MetricRegenerated)
	return s, nil
}

// IsRegenerated reports whether RegeneratedKey is present.
func (s *Session) IsRegenerated() bool {
	return s.Has(RegeneratedKey)
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
