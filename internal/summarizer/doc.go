// Package summarizer runs the summarization pipeline for named profiles and
// owns the loaded model handles. It is structured into small files by
// concern:
//
//   - service.go: Service type, constructor, lifecycle (Preload, Ready, Close).
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: handle state and result types.
//   - errors.go: error types and helpers (IsInvalidInput, IsTooBusy, ...).
//   - admission.go: per-device queueing so one generation runs per device.
//   - handles.go: lazy or preloaded profile → model registry.
//   - summarize.go: Summarize, the measured pipeline.
//   - compare.go: Compare, baseline versus optimized.
//   - status.go: Status reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//
// Control flow of one call: validate input → resolve weights (cached) →
// admit on device → measure { acquire handle, build prompt, generate } →
// post-process.
package summarizer
