package chat

import "encoding/json"

// Kind tags a generation event. The values are the wire "status" field.
type Kind string

const (
	KindStreaming Kind = "streaming"
	KindSuccess   Kind = "success"
	KindAborted   Kind = "aborted"
	KindError     Kind = "error"
)

// Messages carried by terminal events.
const (
	MsgAborted           = "Generation aborted by client"
	MsgEmptyConversation = "Cannot generate response from empty conversation."
	MsgModelLoad         = "Model failed to load"
)

// Event is one item of a generation stream: zero or more streaming events
// followed by exactly one terminal event.
type Event struct {
	Kind         Kind   `json:"status"`
	Chunk        string `json:"chunk,omitempty"`
	FullResponse string `json:"full_response,omitempty"`
	Message      string `json:"message,omitempty"`
}

func Streaming(chunk string) Event { return Event{Kind: KindStreaming, Chunk: chunk} }
func Success(full string) Event    { return Event{Kind: KindSuccess, FullResponse: full} }
func Aborted() Event               { return Event{Kind: KindAborted, Message: MsgAborted} }
func Failed(msg string) Event      { return Event{Kind: KindError, Message: msg} }

// Terminal reports whether e ends a stream.
func (e Event) Terminal() bool {
	switch e.Kind {
	case KindSuccess, KindAborted, KindError:
		return true
	}
	return false
}

// MarshalJSON writes exactly the fields of e's kind: chunk for streaming,
// full_response for success (even when empty), message otherwise.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindStreaming:
		return json.Marshal(struct {
			Status Kind   `json:"status"`
			Chunk  string `json:"chunk"`
		}{e.Kind, e.Chunk})
	case KindSuccess:
		return json.Marshal(struct {
			Status       Kind   `json:"status"`
			FullResponse string `json:"full_response"`
		}{e.Kind, e.FullResponse})
	case KindAborted, KindError:
		return json.Marshal(struct {
			Status  Kind   `json:"status"`
			Message string `json:"message"`
		}{e.Kind, e.Message})
	}
	type plain Event
	return json.Marshal(plain(e))
}
