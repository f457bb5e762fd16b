// Package audio contains the core types shared by the adaptive audio
// engine: channel identifiers, PCM buffers, the playback output
// abstraction, and the Bubble Tea messages the surrounding UI consumes.
//
// The engine itself is composed of the subpackages:
//
//   - mixer: per-channel gain and mute state
//   - output: audio device playback (oto) and a mock for tests
//   - sfx: one-shot sound effects with synthesized-tone fallback
//   - music: mood-driven background music with non-repeating rotation
//   - narration: text-to-speech with remote-first, local-fallback synthesis
//   - capture: single-shot speech-to-text capture
//   - engine: wires the services together behind one facade
//
// Services are constructed explicitly with their dependencies injected;
// there is no package-level global state.
package audio
