package types

// ChatRequest is the payload accepted by POST /chat.
type ChatRequest struct {
	// User message to append to the session's conversation.
	// example: What is a good warm-up before squats?
	Message *string `json:"message" example:"What is a good warm-up before squats?"`
}

// StreamFrame is one serialized generation event inside a `data:` line of the
// /chat event stream. Exactly one of Chunk, FullResponse or Message is set,
// depending on Status.
type StreamFrame struct {
	// One of streaming, success, aborted, error.
	// example: streaming
	Status string `json:"status" example:"streaming"`
	// Fragment of generated text (status=streaming).
	// example: Hel
	Chunk string `json:"chunk,omitempty" example:"Hel"`
	// Concatenation of all streamed chunks (status=success).
	// example: Hello!
	FullResponse string `json:"full_response,omitempty" example:"Hello!"`
	// Human readable reason (status=aborted or status=error).
	// example: Generation aborted by client
	Message string `json:"message,omitempty" example:"Generation aborted by client"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Always "error".
	// example: error
	Status string `json:"status" example:"error"`
	// Error message.
	// example: Missing message in request body
	Message string `json:"message" example:"Missing message in request body"`
}

// GPUMemory reports accelerator memory held by the loaded engine.
type GPUMemory struct {
	// Memory currently allocated by the engine, in MiB.
	// example: 2048.5
	AllocatedMB float64 `json:"allocated_mb" example:"2048.5"`
	// Memory reserved by the engine's allocator, in MiB.
	// example: 2304
	ReservedMB float64 `json:"reserved_mb" example:"2304"`
}

// HealthData describes the inference engine state for GET /health.
type HealthData struct {
	// Whether an engine instance is currently loaded.
	// example: true
	IsLoaded bool `json:"is_loaded" example:"true"`
	// Device the engine runs on (cuda or cpu).
	// example: cuda
	Device string `json:"device" example:"cuda"`
	// Model identifier served by the engine.
	// example: gemma-2-2b-it
	ModelName string `json:"model_name" example:"gemma-2-2b-it"`
	// Whether an accelerator was detected on this host.
	// example: true
	GPUAvailable bool `json:"gpu_available" example:"true"`
	// Accelerator memory statistics, when the engine reports them.
	GPUMemory *GPUMemory `json:"gpu_memory,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// success or error.
	// example: success
	Status string `json:"status" example:"success"`
	// Engine state, present when Status is success.
	Data *HealthData `json:"data,omitempty"`
	// Failure reason, present when Status is error.
	Message string `json:"message,omitempty"`
}
