// Package stream serializes generation events as server-sent event frames.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/rs/zerolog"

	"chatd/internal/chat"
)

// ContentType is the media type of a frame stream.
const ContentType = "text/event-stream"

var dataPrefix = []byte("data: ")

// Canceler is the cancellation side of a request's signal.
type Canceler interface {
	Cancel()
}

// Transcoder writes event sequences to a client.
type Transcoder struct {
	log zerolog.Logger
}

// New returns a Transcoder. A nil logger disables logging.
func New(log *zerolog.Logger) *Transcoder {
	t := &Transcoder{log: zerolog.Nop()}
	if log != nil {
		t.log = *log
	}
	return t
}

// Pipe writes one frame per event and flushes after each. It stops after the
// first terminal event. If a write fails the peer is considered gone: c is
// canceled, nothing more is written, and the remaining events are not
// consumed. Pipe returns the last event taken from events, or the zero Event
// if there was none.
func (t *Transcoder) Pipe(events iter.Seq[chat.Event], w io.Writer, flush func(), c Canceler) chat.Event {
	var last chat.Event
	for ev := range events {
		last = ev
		if err := WriteFrame(w, ev); err != nil {
			t.log.Debug().Err(err).Str("status", string(ev.Kind)).Msg("client write failed")
			if c != nil {
				c.Cancel()
			}
			return last
		}
		if flush != nil {
			flush()
		}
		if ev.Terminal() {
			break
		}
	}
	return last
}

// WriteFrame writes ev as a single "data: <json>\n\n" frame.
func WriteFrame(w io.Writer, ev chat.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(b)+len(dataPrefix)+2)
	buf = append(buf, dataPrefix...)
	buf = append(buf, b...)
	buf = append(buf, '\n', '\n')
	_, err = w.Write(buf)
	return err
}

// ErrMalformedFrame is yielded by ParseFrames for a data line that is not a
// JSON event.
var ErrMalformedFrame = errors.New("malformed frame")

// ParseFrames reads a frame stream and yields the decoded events. Lines that
// are not data lines (comments, event names, blanks) are skipped. Iteration
// stops after the first error.
func ParseFrames(r io.Reader) iter.Seq2[chat.Event, error] {
	return func(yield func(chat.Event, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := sc.Bytes()
			if !bytes.HasPrefix(line, dataPrefix) {
				continue
			}
			var ev chat.Event
			if err := json.Unmarshal(line[len(dataPrefix):], &ev); err != nil {
				yield(chat.Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(chat.Event{}, err)
		}
	}
}
