// Package orchestrator wires the model → schema → bound form → renderer
// pipeline behind a single entry point. Callers that need finer control can
// use the orm, forms and render packages directly.
package orchestrator
