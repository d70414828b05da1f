package chat

import "errors"

// EmptyConversationError is returned for a conversation with no turns.
type EmptyConversationError struct{}

func (EmptyConversationError) Error() string { return MsgEmptyConversation }

// IsEmptyConversation reports whether err is an EmptyConversationError.
func IsEmptyConversation(err error) bool {
	var e EmptyConversationError
	return errors.As(err, &e)
}

// GenerationError wraps a failure raised by the engine mid-stream.
type GenerationError struct{ Cause error }

func (e GenerationError) Error() string { return "Error during generation: " + e.Cause.Error() }

func (e GenerationError) Unwrap() error { return e.Cause }

// IsGeneration reports whether err is a GenerationError.
func IsGeneration(err error) bool {
	var e GenerationError
	return errors.As(err, &e)
}
