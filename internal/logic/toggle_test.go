package logic

import "testing"

func TestToggleBaselineDoesNotFlip(t *testing.T) {
	tg := NewToggle()
	out, changed := tg.Process(true)
	if out || changed {
		t.Errorf("switch held at boot: got out=%v changed=%v", out, changed)
	}
	out, changed = tg.Process(true)
	if out || changed {
		t.Errorf("held switch must not flip: got out=%v changed=%v", out, changed)
	}
}

func TestToggleFlipsOnRisingEdge(t *testing.T) {
	tg := NewToggle()
	steps := []struct {
		in      bool
		out     bool
		changed bool
	}{
		{false, false, false}, // baseline
		{true, true, true},    // press
		{true, true, false},   // held
		{false, true, false},  // release
		{false, true, false},
		{true, false, true}, // press again
		{false, false, false},
	}
	for i, st := range steps {
		out, changed := tg.Process(st.in)
		if out != st.out || changed != st.changed {
			t.Errorf("step %d (in=%v): got out=%v changed=%v, want out=%v changed=%v",
				i, st.in, out, changed, st.out, st.changed)
		}
	}
	if tg.Output() {
		t.Error("expected final output off")
	}
}
