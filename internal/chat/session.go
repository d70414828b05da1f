package chat

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"chatd/internal/manager"
)

// DefaultHandoffBuffer is the capacity of the channel between the
// generation worker and the consumer.
const DefaultHandoffBuffer = 64

// Engines hands out pinned engines. *manager.Manager implements it.
type Engines interface {
	Acquire(ctx context.Context) (manager.Engine, func(), error)
	ReleaseTransient(manager.Engine)
}

// CancelSignal is a shared, settable cancellation flag. *registry.Signal
// implements it.
type CancelSignal interface {
	IsSet() bool
	Done() <-chan struct{}
}

// Config configures a Session.
type Config struct {
	SystemPrompt  string
	Params        manager.Params
	HandoffBuffer int
	Logger        *zerolog.Logger
}

// Session runs generations against engines from a manager. A single Session
// serves any number of concurrent Start calls.
type Session struct {
	engines Engines
	system  string
	params  manager.Params
	buffer  int
	log     zerolog.Logger
}

func NewSession(engines Engines, cfg Config) *Session {
	s := &Session{
		engines: engines,
		system:  cfg.SystemPrompt,
		params:  cfg.Params,
		buffer:  cfg.HandoffBuffer,
		log:     zerolog.Nop(),
	}
	if s.buffer <= 0 {
		s.buffer = DefaultHandoffBuffer
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "session").Logger()
	}
	return s
}

// Start returns the event stream for one generation over conv. Ranging over
// the result drives the generation; it yields zero or more Streaming events
// and then exactly one terminal event. sig is checked before every fragment
// and while waiting for the next one. Breaking out of the range early is
// treated like cancellation. ctx bounds engine acquisition and generation.
func (s *Session) Start(ctx context.Context, conv Conversation, sig CancelSignal) iter.Seq[Event] {
	if sig == nil {
		sig = neverSignal{}
	}
	return func(yield func(Event) bool) {
		r := &run{s: s, ctx: ctx, sig: sig, yield: yield}
		r.exec(conv)
	}
}

type run struct {
	s     *Session
	ctx   context.Context
	sig   CancelSignal
	yield func(Event) bool
}

func (r *run) finish(ev Event) {
	outcome := string(ev.Kind)
	sessionsTotal.WithLabelValues(outcome).Inc()
	r.s.log.Debug().Str("outcome", outcome).Msg("generation finished")
	r.yield(ev)
}

func (r *run) cancelled() bool { return r.sig.IsSet() || r.ctx.Err() != nil }

func (r *run) exec(conv Conversation) {
	if len(conv) == 0 {
		r.finish(Failed(EmptyConversationError{}.Error()))
		return
	}
	if r.cancelled() {
		r.finish(Aborted())
		return
	}
	prompt := FormatPrompt(r.s.system, conv)

	eng, release, err := r.s.engines.Acquire(r.ctx)
	if err != nil {
		r.s.engines.ReleaseTransient(nil)
		if r.cancelled() {
			r.finish(Aborted())
			return
		}
		r.s.log.Error().Err(err).Msg("engine unavailable")
		r.finish(Failed(MsgModelLoad))
		return
	}
	cleanup := sync.OnceFunc(func() {
		r.s.engines.ReleaseTransient(eng)
		release()
	})

	genCtx, cancelGen := context.WithCancel(r.ctx)
	frags := make(chan string, r.s.buffer)
	workerDone := make(chan error, 1)
	go r.generate(genCtx, eng, prompt, frags, workerDone)

	// abort stops the worker and reclaims it in the background.
	abort := func() {
		cancelGen()
		go func() {
			for range frags {
			}
			<-workerDone
			cleanup()
		}()
	}

	var full strings.Builder
	for {
		select {
		case <-r.sig.Done():
			abort()
			r.finish(Aborted())
			return
		case <-r.ctx.Done():
			abort()
			r.finish(Aborted())
			return
		case frag, ok := <-frags:
			if !ok {
				genErr := <-workerDone
				cancelGen()
				cleanup()
				switch {
				case r.cancelled():
					r.finish(Aborted())
				case genErr != nil:
					r.s.log.Warn().Err(genErr).Msg("generation failed")
					r.finish(Failed(GenerationError{Cause: genErr}.Error()))
				default:
					r.finish(Success(full.String()))
				}
				return
			}
			if frag == "" {
				continue
			}
			if r.cancelled() {
				abort()
				r.finish(Aborted())
				return
			}
			full.WriteString(frag)
			fragmentsTotal.Inc()
			if !r.yield(Streaming(frag)) {
				abort()
				sessionsTotal.WithLabelValues(string(KindAborted)).Inc()
				return
			}
		}
	}
}

// generate runs the engine and closes frags when it returns. Panics are
// reported as errors on done.
func (r *run) generate(ctx context.Context, eng manager.Engine, prompt string, frags chan<- string, done chan<- error) {
	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("engine panic: %v", p)
		}
		close(frags)
		done <- err
	}()
	err = eng.Generate(ctx, prompt, r.s.params, func(tok string) error {
		select {
		case frags <- tok:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

type neverSignal struct{}

func (neverSignal) IsSet() bool { return false }

func (neverSignal) Done() <-chan struct{} { return nil }
