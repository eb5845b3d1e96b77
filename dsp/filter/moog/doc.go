// Package moog provides nonlinear Moog ladder low-pass filters for per-voice
// use in synthesizers.
//
// Supported variants:
//   - VariantClassic / VariantImprovedClassic:
//     four-stage nonlinear ladder with tanh saturation, reusing each stage's
//     saturated output from the previous sample.
//   - VariantHuovilainen:
//     Huovilainen-style tuning/resonance compensation with half-sample
//     feedback estimate for robust high-resonance behavior.
//
// Construction validates options and returns errors. The modulation setters
// (SetCutoffHz, SetResonance) clamp instead, so they can be called every
// sample from a render loop without error handling.
package moog
