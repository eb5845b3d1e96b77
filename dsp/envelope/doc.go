// Package envelope provides a gate-driven ADSR envelope generator.
//
// The generator is stepped once per sample with the current gate value.
// A rising gate edge starts the attack stage from the current level, a
// falling edge starts the release stage. Every stage is a one-pole
// exponential segment, so the output never jumps.
package envelope
