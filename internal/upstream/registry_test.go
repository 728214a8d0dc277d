package upstream

import (
	"testing"
	"time"
)

func testEndpoints() []Endpoint {
	return []Endpoint{
		{BaseURL: "https://relay-a.example", Kind: KindSelfHosted},
		{BaseURL: "https://relay-b.example", Kind: KindPathProxy},
		{BaseURL: "https://api.openai.com", Kind: KindDirect},
	}
}

func TestRegistry_RotationWraps(t *testing.T) {
	r := NewRegistry(testEndpoints(), 0)

	if got := r.Current().BaseURL; got != "https://relay-a.example" {
		t.Fatalf("Current() = %s, want relay-a", got)
	}

	want := []string{"https://relay-b.example", "https://api.openai.com", "https://relay-a.example"}
	for i, w := range want {
		if got := r.Rotate().BaseURL; got != w {
			t.Errorf("Rotate() #%d = %s, want %s", i+1, got, w)
		}
	}
}

func TestRegistry_DropsInvalidAndDuplicate(t *testing.T) {
	r := NewRegistry([]Endpoint{
		{BaseURL: "https://relay-a.example", Kind: KindSelfHosted},
		{BaseURL: "", Kind: KindSelfHosted},
		{BaseURL: "https://relay-a.example", Kind: KindDirect},
	}, 0)

	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestRegistry_MarkDeadSkipsEndpoint(t *testing.T) {
	r := NewRegistry(testEndpoints(), time.Minute)

	dead := r.Current()
	r.MarkDead(dead)

	if got := r.Current().BaseURL; got == dead.BaseURL {
		t.Errorf("Current() still returns dead endpoint %s", got)
	}
	if got := r.DeadCount(); got != 1 {
		t.Errorf("DeadCount() = %d, want 1", got)
	}
}

func TestRegistry_CooldownRevives(t *testing.T) {
	r := NewRegistry(testEndpoints(), 10*time.Millisecond)

	dead := r.Current()
	r.MarkDead(dead)
	time.Sleep(20 * time.Millisecond)

	if got := r.DeadCount(); got != 0 {
		t.Errorf("DeadCount() = %d after cooldown, want 0", got)
	}
}

func TestRegistry_AllDeadStillReturnsEndpoint(t *testing.T) {
	r := NewRegistry(testEndpoints(), time.Minute)

	for i := 0; i < 3; i++ {
		r.MarkDead(r.Current())
		r.Rotate()
	}

	// Everything is dead; the registry must still hand out something.
	if r.Current().BaseURL == "" {
		t.Error("Current() returned zero endpoint with full rotation dead")
	}
}

func TestRegistry_ZeroCooldownDisablesMarking(t *testing.T) {
	r := NewRegistry(testEndpoints(), 0)

	cur := r.Current()
	r.MarkDead(cur)

	if got := r.Current().BaseURL; got != cur.BaseURL {
		t.Errorf("Current() = %s after no-op MarkDead, want %s", got, cur.BaseURL)
	}
}
