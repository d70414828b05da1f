//go:build !llama

package manager

// No-CGO stub for the llama adapter, compiled when the 'llama' build tag is
// not set. The real adapter lives in adapter_llama.go.

import "context"

// LlamaBuilt indicates this binary was compiled with real llama support.
const LlamaBuilt = false

// LlamaAdapter refuses to load without the 'llama' build tag.
type LlamaAdapter struct {
	modelPath string
}

func NewLlamaAdapter(modelPath string, ctxSize, threads, gpuLayers int) *LlamaAdapter {
	return &LlamaAdapter{modelPath: modelPath}
}

func (a *LlamaAdapter) Load(ctx context.Context, modelID string) (Engine, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
