package param

// Ramper smooths a single parameter with linear ramps.
//
// It is not safe for concurrent use. The render thread owns it.
type Ramper struct {
	defaultValue float64
	rampDuration int

	uiValue        float64
	goal           float64
	inverseSlope   float64
	stepsRemaining int

	changeCounter uint64
	updateCounter uint64
}

// NewRamper returns a Ramper resting at value. Reset returns to this value.
func NewRamper(value float64) *Ramper {
	r := &Ramper{defaultValue: value}
	r.Reset()
	return r
}

// Default returns the value restored by Reset.
func (r *Ramper) Default() float64 { return r.defaultValue }

// RampDuration returns the dezipper duration, in steps, applied to UI changes.
func (r *Ramper) RampDuration() int { return r.rampDuration }

// SetRampDuration sets the dezipper duration used when a UI value change is
// picked up by GetAndStep. Negative durations are treated as zero.
func (r *Ramper) SetRampDuration(steps int) {
	if steps < 0 {
		steps = 0
	}
	r.rampDuration = steps
}

// Reset jumps to the default value and drops any pending change.
func (r *Ramper) Reset() {
	r.SetImmediate(r.defaultValue)
}

// SetImmediate sets the current value, the goal and the UI value without any
// transition.
func (r *Ramper) SetImmediate(value float64) {
	r.uiValue = value
	r.goal = value
	r.inverseSlope = 0
	r.stepsRemaining = 0
	r.updateCounter = r.changeCounter
}

// SetUIValue records a new target. The next GetAndStep starts a ramp toward
// it over RampDuration steps.
func (r *Ramper) SetUIValue(value float64) {
	r.uiValue = value
	r.changeCounter++
}

// UIValue returns the last value set through SetUIValue, SetImmediate or
// StartRamp.
func (r *Ramper) UIValue() float64 { return r.uiValue }

// Goal returns the value the ramper settles at.
func (r *Ramper) Goal() float64 { return r.goal }

// IsRamping reports whether a ramp is in progress.
func (r *Ramper) IsRamping() bool { return r.stepsRemaining > 0 }

// StartRamp begins a linear transition from the current value to target over
// duration steps. A non-positive duration behaves like SetImmediate.
func (r *Ramper) StartRamp(target float64, duration int) {
	if duration <= 0 {
		r.SetImmediate(target)
		return
	}

	current := r.Value()
	r.inverseSlope = (current - target) / float64(duration)
	r.stepsRemaining = duration
	r.goal = target
	r.uiValue = target
	r.updateCounter = r.changeCounter
}

// Value returns the current value without advancing.
func (r *Ramper) Value() float64 {
	return r.inverseSlope*float64(r.stepsRemaining) + r.goal
}

// GetAndStep returns the current value and advances the ramp by one step.
// A pending UI change is turned into a ramp first.
func (r *Ramper) GetAndStep() float64 {
	r.dezipperCheck()

	if r.stepsRemaining == 0 {
		return r.goal
	}

	value := r.Value()
	r.stepsRemaining--

	return value
}

func (r *Ramper) dezipperCheck() {
	if r.changeCounter == r.updateCounter {
		return
	}

	r.StartRamp(r.uiValue, r.rampDuration)
}
