package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultOllamaURL is the default Ollama API endpoint.
const DefaultOllamaURL = "http://127.0.0.1:11434"

const mib = 1 << 20

// OllamaAdapter loads models into a local Ollama daemon and streams raw
// completions from it.
type OllamaAdapter struct {
	baseURL    string
	httpClient *http.Client
	keepAlive  any
}

// OllamaOption configures an OllamaAdapter.
type OllamaOption func(*OllamaAdapter)

// WithOllamaURL sets the Ollama API base URL.
func WithOllamaURL(url string) OllamaOption {
	return func(a *OllamaAdapter) {
		if url != "" {
			a.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithOllamaHTTPClient sets the HTTP client. It must not impose a total
// timeout shorter than the longest generation.
func WithOllamaHTTPClient(c *http.Client) OllamaOption {
	return func(a *OllamaAdapter) { a.httpClient = c }
}

// NewOllamaAdapter creates an adapter with the given options.
func NewOllamaAdapter(opts ...OllamaOption) *OllamaAdapter {
	a := &OllamaAdapter{
		baseURL:    DefaultOllamaURL,
		httpClient: &http.Client{},
		// Keep the model resident until we evict it ourselves.
		keepAlive: -1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type ollamaOptions struct {
	Temperature   float32  `json:"temperature,omitempty"`
	TopP          float32  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	NumPredict    int      `json:"num_predict,omitempty"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          int      `json:"seed,omitempty"`
}

type ollamaGenerateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Raw       bool           `json:"raw,omitempty"`
	Stream    bool           `json:"stream"`
	KeepAlive any            `json:"keep_alive,omitempty"`
	Options   *ollamaOptions `json:"options,omitempty"`
}

type ollamaGenerateChunk struct {
	Model      string `json:"model"`
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ollamaProcessList struct {
	Models []struct {
		Name     string `json:"name"`
		Model    string `json:"model"`
		Size     int64  `json:"size"`
		SizeVRAM int64  `json:"size_vram"`
	} `json:"models"`
}

// Load asks Ollama to bring modelID into memory. An empty prompt loads the
// model without generating.
func (a *OllamaAdapter) Load(ctx context.Context, modelID string) (Engine, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("model id is empty")
	}
	resp, err := a.post(ctx, "/api/generate", ollamaGenerateRequest{Model: modelID, Stream: false, KeepAlive: a.keepAlive})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, fmt.Errorf("reading load response: %w", err)
	}
	e := &ollamaEngine{adapter: a, model: modelID}
	e.refreshStats(ctx)
	return e, nil
}

func (a *OllamaAdapter) post(ctx context.Context, path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrDependencyUnavailable("ollama unreachable: " + err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

type ollamaEngine struct {
	adapter *OllamaAdapter
	model   string
	stats   atomic.Pointer[MemoryStats]
}

// Generate streams a raw completion. The prompt is already formatted with the
// model's chat template, so Ollama's own templating is bypassed.
func (e *ollamaEngine) Generate(ctx context.Context, prompt string, p Params, onToken func(string) error) error {
	req := ollamaGenerateRequest{
		Model:     e.model,
		Prompt:    prompt,
		Raw:       true,
		Stream:    true,
		KeepAlive: e.adapter.keepAlive,
		Options: &ollamaOptions{
			Temperature:   p.Temperature,
			TopP:          p.TopP,
			TopK:          p.TopK,
			NumPredict:    p.MaxTokens,
			RepeatPenalty: p.RepeatPenalty,
			Stop:          p.Stop,
			Seed:          p.Seed,
		},
	}
	resp, err := e.adapter.post(ctx, "/api/generate", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	defer e.refreshStats(context.WithoutCancel(ctx))

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var chunk ollamaGenerateChunk
			if uerr := json.Unmarshal(line, &chunk); uerr != nil {
				return fmt.Errorf("parsing stream response: %w", uerr)
			}
			if chunk.Error != "" {
				return errors.New(chunk.Error)
			}
			if chunk.Response != "" {
				if cbErr := onToken(chunk.Response); cbErr != nil {
					return cbErr
				}
			}
			if chunk.Done {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading stream: %w", err)
		}
	}
}

// Close evicts the model from Ollama's memory.
func (e *ollamaEngine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := e.adapter.post(ctx, "/api/generate", ollamaGenerateRequest{Model: e.model, KeepAlive: 0})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// MemoryStats returns the last observed VRAM usage. It never performs I/O.
func (e *ollamaEngine) MemoryStats() (MemoryStats, bool) {
	st := e.stats.Load()
	if st == nil {
		return MemoryStats{}, false
	}
	return *st, true
}

func (e *ollamaEngine) refreshStats(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.adapter.baseURL+"/api/ps", nil)
	if err != nil {
		return
	}
	resp, err := e.adapter.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}
	var ps ollamaProcessList
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return
	}
	for _, m := range ps.Models {
		if m.Name == e.model || m.Model == e.model {
			e.stats.Store(&MemoryStats{
				AllocatedMB: float64(m.SizeVRAM) / mib,
				ReservedMB:  float64(m.Size) / mib,
			})
			return
		}
	}
}
