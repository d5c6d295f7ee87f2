package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels long-running work on SIGINT or SIGTERM and tells
// the user what happened to it.
type InterruptHandler struct {
	writer      io.Writer
	mu          sync.Mutex
	interrupted bool
}

// NewInterruptHandler writes its messages to w, or stderr when w is nil.
func NewInterruptHandler(w io.Writer) *InterruptHandler {
	if w == nil {
		w = os.Stderr
	}
	return &InterruptHandler{writer: w}
}

// HandleInterrupts returns a context canceled by the first interrupt.
// With partial set, the message explains that committed work is kept.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, partial bool) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			h.interrupt(partial)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}

func (h *InterruptHandler) interrupt(partial bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted {
		return
	}
	h.interrupted = true

	msg := "\n\n" + FormatWarning("Interrupted!")
	if partial {
		msg += "\n" + FormatInfo("Rows committed before the interrupt are saved; re-running the import replaces them.")
	}
	msg += "\n" + FormatInfo("Bag and board! "+ComicIcon) + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		slog.Warn("Failed to write interrupt message", "error", err)
	}
}

// WasInterrupted reports whether an interrupt canceled the context.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
