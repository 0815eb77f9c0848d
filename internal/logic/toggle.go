package logic

// Toggle turns a momentary switch into an on/off output. The input is
// sampled once per tick; each rising edge flips the output.
type Toggle struct {
	previous  bool
	baselined bool
	output    bool
}

// NewToggle creates a Toggle with the output off.
func NewToggle() *Toggle {
	return &Toggle{}
}

// Process takes this tick's switch level and returns the output and whether
// it changed. The first sample only establishes the baseline, so a switch
// held down at boot does not flip the output.
func (t *Toggle) Process(current bool) (output bool, changed bool) {
	if !t.baselined {
		t.previous = current
		t.baselined = true
		return t.output, false
	}

	if current && !t.previous {
		t.output = !t.output
		changed = true
	}
	t.previous = current
	return t.output, changed
}

// Output returns the current output state.
func (t *Toggle) Output() bool {
	return t.output
}
