package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because its context ended.
var ErrInputCancelled = errors.New("input canceled")

type readResult struct {
	err  error
	line string
}

// LineReader reads answers line by line without blocking past context
// cancellation. A single goroutine owns the underlying reader, so a line
// typed after a canceled read is delivered to the next ReadLine.
type LineReader struct {
	src   *bufio.Reader
	lines chan readResult
	err   error
	start sync.Once
}

// NewLineReader wraps r. The pump goroutine starts on the first read.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		src:   bufio.NewReader(r),
		lines: make(chan readResult),
	}
}

// ReadLine returns the next line with surrounding whitespace trimmed.
// A final line without a newline is returned before io.EOF.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}
	r.start.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-r.lines:
		if res.err == nil {
			return res.line, nil
		}
		r.err = res.err
		if res.line != "" {
			return res.line, nil
		}
		return "", res.err
	}
}

func (r *LineReader) pump() {
	for {
		line, err := r.src.ReadString('\n')
		r.lines <- readResult{line: strings.TrimSpace(line), err: err}
		if err != nil {
			return
		}
	}
}
