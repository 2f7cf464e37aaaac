package state

import "testing"

func TestFloatingIsOn(t *testing.T) {
	tests := map[FloatingState]bool{
		FloatingUnknown: false,
		FloatingAutoOff: false,
		FloatingUserOff: false,
		FloatingOff:     false,
		FloatingAutoOn:  true,
		FloatingUserOn:  true,
		FloatingOn:      true,
	}
	for state, want := range tests {
		if got := state.IsOn(); got != want {
			t.Fatalf("%q.IsOn() = %v, want %v", state, got, want)
		}
	}
}

func TestParseFloating(t *testing.T) {
	if got := ParseFloating(" USER_ON "); got != FloatingUserOn {
		t.Fatalf("ParseFloating(USER_ON) = %q", got)
	}
	if got := ParseFloating("sideways"); got != FloatingUnknown {
		t.Fatalf("ParseFloating(sideways) = %q, want unknown", got)
	}
}

func TestNewWindowTitleFallbackAndTagCopy(t *testing.T) {
	tags := []string{"scratchpad"}
	w := NewWindow(7, "  ", FloatingUserOn, tags)
	if w.Title != NoTitle {
		t.Fatalf("expected fallback title, got %q", w.Title)
	}
	tags[0] = "mutated"
	if !w.HasTag("scratchpad") {
		t.Fatalf("expected window to keep its own tag copy, got %v", w.Tags)
	}
}

func TestCloneWindowNil(t *testing.T) {
	if CloneWindow(nil) != nil {
		t.Fatalf("expected nil clone")
	}
	w := NewWindow(1, "a", FloatingOff, []string{"x"})
	c := CloneWindow(&w)
	c.Tags[0] = "y"
	if w.Tags[0] != "x" {
		t.Fatalf("clone shares tag storage")
	}
}
