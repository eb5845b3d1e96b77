// Package param provides block-rate parameter ramping for real-time
// instrument kernels.
//
// A Ramper tracks three values: the user-facing (UI) value, the goal of the
// active ramp and the value delivered to the DSP code. GetAndStep is meant to
// be called once per processed block, so ramp durations count steps, not
// samples, when used that way.
package param
