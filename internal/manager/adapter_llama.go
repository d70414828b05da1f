//go:build llama

package manager

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LlamaBuilt indicates this binary was compiled with real llama support.
const LlamaBuilt = true

// LlamaAdapter loads GGUF models in-process through go-llama.cpp.
type LlamaAdapter struct {
	modelPath string
	ctxSize   int
	threads   int
	gpuLayers int
}

// NewLlamaAdapter returns an adapter that loads modelPath. modelID passed to
// Load is only used for reporting.
func NewLlamaAdapter(modelPath string, ctxSize, threads, gpuLayers int) *LlamaAdapter {
	return &LlamaAdapter{modelPath: modelPath, ctxSize: ctxSize, threads: threads, gpuLayers: gpuLayers}
}

func (a *LlamaAdapter) Load(ctx context.Context, modelID string) (Engine, error) {
	if strings.TrimSpace(a.modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{llama.SetContext(a.ctxSize)}
	if a.gpuLayers > 0 {
		mo = append(mo, llama.SetGPULayers(a.gpuLayers))
	}
	m, err := llama.New(a.modelPath, mo...)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		m.Free()
		return nil, err
	}
	return &llamaEngine{model: m, threads: a.threads}, nil
}

// ReleaseMemory drops Go-side garbage before a fresh load.
func (a *LlamaAdapter) ReleaseMemory() { runtime.GC() }

// llamaEngine owns the loaded model. The token callback is per model, so
// generations are serialized.
type llamaEngine struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (e *llamaEngine) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return errors.New("llama model not initialized")
	}

	var cbErr error
	e.model.SetTokenCallback(func(tok string) bool {
		if ctx.Err() != nil {
			return false
		}
		if err := onToken(tok); err != nil {
			cbErr = err
			return false
		}
		return true
	})
	defer e.model.SetTokenCallback(nil)

	_, err := e.model.Predict(prompt, predictOptions(params, e.threads)...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if cbErr != nil {
		return cbErr
	}
	return err
}

func (e *llamaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

func (e *llamaEngine) ReleaseMemory() { runtime.GC() }

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Params into go-llama.cpp options.
func predictOptions(p Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
