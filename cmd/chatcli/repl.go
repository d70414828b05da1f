package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"chatd/internal/chat"
	"chatd/internal/registry"
)

type generator interface {
	Start(ctx context.Context, conv chat.Conversation, sig chat.CancelSignal) iter.Seq[chat.Event]
}

// repl keeps one conversation in memory and streams each reply to out.
type repl struct {
	gen        generator
	maxHistory int
	out        io.Writer
	conv       chat.Conversation
}

// run reads one message per line until EOF, "exit" or "quit". A value on
// interrupts aborts the reply being generated.
func (r *repl) run(ctx context.Context, in io.Reader, interrupts <-chan os.Signal) error {
	if r.maxHistory <= 0 {
		r.maxHistory = chat.DefaultMaxHistory
	}
	fmt.Fprintln(r.out, "Type a message, /reset to clear history, exit to quit.")
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			r.conv = nil
			fmt.Fprintln(r.out, "history cleared")
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.turn(ctx, line, interrupts)
	}
}

func (r *repl) turn(ctx context.Context, msg string, interrupts <-chan os.Signal) chat.Event {
	r.conv = r.conv.Append(chat.RoleUser, msg).Trim(r.maxHistory)

	sig := registry.NewSignal()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupts:
			sig.Cancel()
		case <-done:
		}
	}()

	var last chat.Event
	for ev := range r.gen.Start(ctx, r.conv, sig) {
		last = ev
		switch ev.Kind {
		case chat.KindStreaming:
			fmt.Fprint(r.out, ev.Chunk)
		case chat.KindSuccess:
			fmt.Fprintln(r.out)
			r.conv = r.conv.Append(chat.RoleModel, ev.FullResponse).Trim(r.maxHistory)
		default:
			fmt.Fprintf(r.out, "\n[%s] %s\n", ev.Kind, ev.Message)
		}
	}
	return last
}
