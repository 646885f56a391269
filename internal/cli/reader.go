package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCanceled is returned when a prompt is abandoned through its context.
var ErrInputCanceled = errors.New("input canceled")

type lineResult struct {
	err  error
	line string
}

// LineReader reads prompt answers one line at a time and gives up when the
// caller's context ends. The underlying read cannot be interrupted, so a line
// that arrives after a canceled read is returned by the next ReadLine.
// It is meant for a single prompting goroutine.
type LineReader struct {
	src     *bufio.Reader
	pending chan lineResult
	mu      sync.Mutex
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{src: bufio.NewReader(r)}
}

// ReadLine returns the next line with surrounding whitespace removed. A last
// line without a newline is still returned; io.EOF means nothing was left.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCanceled
	}

	r.mu.Lock()
	ch := r.pending
	if ch == nil {
		ch = make(chan lineResult, 1)
		r.pending = ch
		go r.read(ch)
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ErrInputCanceled
	case res := <-ch:
		r.mu.Lock()
		r.pending = nil
		r.mu.Unlock()
		return res.line, res.err
	}
}

func (r *LineReader) read(ch chan<- lineResult) {
	line, err := r.src.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	ch <- lineResult{line: strings.TrimSpace(line), err: err}
}
