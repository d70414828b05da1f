package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatd/internal/chat"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

// remote talks to a chatd server. Give http a cookie jar to keep the session
// between calls.
type remote struct {
	base string
	http *http.Client
	out  io.Writer
}

func (c *remote) url(path string) string { return strings.TrimRight(c.base, "/") + path }

// ask posts msg to /chat and prints the streamed reply.
func (c *remote) ask(ctx context.Context, msg string) error {
	body, err := json.Marshal(types.ChatRequest{Message: &msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/chat"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", stream.ContentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	var last chat.Event
	for ev, err := range stream.ParseFrames(resp.Body) {
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
		last = ev
		if ev.Kind == chat.KindStreaming {
			fmt.Fprint(c.out, ev.Chunk)
		}
	}
	fmt.Fprintln(c.out)
	switch last.Kind {
	case chat.KindSuccess:
		return nil
	case chat.KindAborted, chat.KindError:
		return fmt.Errorf("%s: %s", last.Kind, last.Message)
	default:
		return errors.New("stream ended without a final event")
	}
}

// health prints GET /health as indented JSON.
func (c *remote) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/health"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var hr types.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return fmt.Errorf("decoding health: %w", err)
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(hr); err != nil {
		return err
	}
	if hr.Status != "success" {
		return fmt.Errorf("health: %s", hr.Message)
	}
	return nil
}

func responseError(resp *http.Response) error {
	var er types.ErrorResponse
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(b, &er) == nil && er.Message != "" {
		return fmt.Errorf("%s (status %d)", er.Message, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
