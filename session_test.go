package storageless

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/MrEthical07/storageless/clock"
)

func TestSessionAccessors(t *testing.T) {
	s := NewSession(map[string]any{"key": "value"})

	if s.Get("key", nil) != "value" {
		t.Fatal("expected stored value")
	}
	if s.Get("missing", "def") != "def" {
		t.Fatal("expected default for missing key")
	}
	if !s.Has("key") || s.Has("missing") {
		t.Fatal("Has mismatch")
	}

	s.Set("nil", nil)
	if !s.Has("nil") || s.Get("nil", "def") != nil {
		t.Fatal("a nil value is still present")
	}

	s.Unset("key")
	s.Unset("never-set")
	if s.Has("key") {
		t.Fatal("Unset did not remove key")
	}
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"nil"}) {
		t.Fatalf("unexpected keys %v", got)
	}

	s.Clear()
	if !s.IsEmpty() || s.Len() != 0 {
		t.Fatal("Clear must empty the session")
	}
}

func TestNewSessionCopiesInput(t *testing.T) {
	in := map[string]any{"a": 1}
	s := NewSession(in)
	in["b"] = 2

	if s.Has("b") {
		t.Fatal("session must not observe changes to the input map")
	}
	if NewSession(nil).Len() != 0 {
		t.Fatal("nil input must produce an empty session")
	}
}

func TestToMapIsDeepCopy(t *testing.T) {
	s := NewSession(map[string]any{
		"nested": map[string]any{"x": 1},
		"list":   []any{"a"},
	})

	m := s.ToMap()
	m["nested"].(map[string]any)["x"] = 99
	m["list"].([]any)[0] = "z"
	m["new"] = true

	if s.Get("nested", nil).(map[string]any)["x"] != 1 {
		t.Fatal("nested map leaked through ToMap")
	}
	if s.Get("list", nil).([]any)[0] != "a" {
		t.Fatal("nested slice leaked through ToMap")
	}
	if s.Has("new") {
		t.Fatal("top-level key leaked through ToMap")
	}
}

func TestHasChanged(t *testing.T) {
	s := NewSession(map[string]any{"a": "1"})
	if s.HasChanged() {
		t.Fatal("new session must not be changed")
	}

	s.Set("a", "2")
	if !s.HasChanged() {
		t.Fatal("expected change after Set")
	}

	s.Set("a", "1")
	if s.HasChanged() {
		t.Fatal("restoring the original value is not a change")
	}

	s.Unset("a")
	if !s.HasChanged() {
		t.Fatal("expected change after Unset")
	}
}

func TestHasChangedDetectsNestedMutation(t *testing.T) {
	s := NewSession(map[string]any{"n": map[string]any{"x": 1}})
	s.Get("n", nil).(map[string]any)["x"] = 2

	if !s.HasChanged() {
		t.Fatal("nested mutation must count as a change")
	}
}

func TestRegenerateMarker(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	s := newSession(nil, RegenerateMarker, clock.Frozen(testNow), m)

	if s.IsRegenerated() {
		t.Fatal("fresh session must not be regenerated")
	}

	got, err := s.Regenerate()
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if got != s {
		t.Fatal("Regenerate must return the same session")
	}
	if !s.IsRegenerated() {
		t.Fatal("expected IsRegenerated after Regenerate")
	}
	if s.Get(RegeneratedKey, nil) != testNow.Unix() {
		t.Fatalf("unexpected marker %#v", s.Get(RegeneratedKey, nil))
	}
	if m.Value(MetricRegenerated) != 1 {
		t.Fatal("expected regenerated metric")
	}
}

func TestRegenerateUnsupported(t *testing.T) {
	s := newSession(nil, RegenerateUnsupported, clock.Frozen(testNow), nil)

	got, err := s.Regenerate()
	if got != nil || !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v %v", got, err)
	}
	if err.Error() != `method "Regenerate" was not implemented: not implemented` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if s.IsRegenerated() {
		t.Fatal("failed regeneration must not stamp the marker")
	}
}

func TestRegeneratedSessionSurvivesRoundTrip(t *testing.T) {
	p := buildAt(t, hsConfig(), clock.Frozen(testNow))
	s := p.emptySession()
	if _, err := s.Regenerate(); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	got := p.InitializeSessionFromRequest(requestWith(t, persistLine(t, p, s)))
	if !got.IsRegenerated() {
		t.Fatal("marker must survive persistence")
	}
	if got.Get(RegeneratedKey, nil) != json.Number("1554926400") {
		t.Fatalf("unexpected marker %#v", got.Get(RegeneratedKey, nil))
	}
}
