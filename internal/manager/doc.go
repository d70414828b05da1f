// Package manager owns the inference engine's lifecycle. It is structured
// into small files by concern:
//
//   - manager.go: Manager type and constructor.
//   - config.go: Config and package defaults.
//   - adapter_iface.go: Engine/Adapter contracts implemented by runtimes.
//   - ensure.go: lazy load with coalescing (EnsureReady) and pinning (Acquire).
//   - unload.go: idle and shutdown unload.
//   - status_report.go: lock-free HealthSnapshot.
//   - reaper.go: periodic idle-unload driver.
//   - device.go: accelerator detection.
//   - errors.go: error types and helpers (IsEngineLoad, IsDependencyUnavailable).
//
// Build tags and runtimes:
//
//   - In-process llama: uses go-llama.cpp. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go. A no-CGO stub is compiled
//     otherwise: adapter_llama_stub.go.
//
//   - Ollama: HTTP adapter talking to a local Ollama daemon. Always built.
//
// At most one engine is loaded at a time. Load and unload transitions are
// serialized; generations pin the engine so it is never unloaded underneath
// a running request.
package manager
