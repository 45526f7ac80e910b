package pause

import (
	"bufio"
	"browser-pause-agent/internal/config"
	"browser-pause-agent/pkg/apperr"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InputRequest is what a handler needs to ask the human for a value.
type InputRequest struct {
	ID      uuid.UUID
	Rule    string
	Message string
	URL     string
	Prompt  string
}

// InputHandler blocks until the human supplies a value or ctx is done.
type InputHandler interface {
	GetInput(ctx context.Context, req InputRequest) (string, error)
}

// InputFunc adapts a function to InputHandler.
type InputFunc func(ctx context.Context, req InputRequest) (string, error)

func (f InputFunc) GetInput(ctx context.Context, req InputRequest) (string, error) {
	return f(ctx, req)
}

// NewInputHandler resolves a configured input method.
func NewInputHandler(method string, lines *LineReader, out io.Writer) (InputHandler, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case config.InputConsole:
		return NewConsoleInput(lines, out), nil
	case config.InputWeb:
		return NewWebInput(), nil
	default:
		return nil, apperr.Wrap("NewInputHandler", apperr.CodeUnknownInputMethod,
			fmt.Errorf("%w: %q", ErrUnknownInputMethod, method), map[string]any{
				apperr.MetaStage: apperr.StagePause,
			})
	}
}

type ConsoleInput struct {
	lines *LineReader
	out   io.Writer
}

func NewConsoleInput(lines *LineReader, out io.Writer) *ConsoleInput {
	return &ConsoleInput{
		lines: lines,
		out:   out,
	}
}

func (c *ConsoleInput) GetInput(ctx context.Context, req InputRequest) (string, error) {
	fmt.Fprint(c.out, req.Prompt)

	return c.lines.ReadLine(ctx)
}

// LineReader pumps lines from r through a channel so that several consumers
// (the command console and pause prompts) share one stream. Reading starts on
// the first ReadLine.
type LineReader struct {
	r     io.Reader
	lines chan string
	done  chan struct{}
	err   error

	startOnce sync.Once
	closeOnce sync.Once
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		r:     r,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
}

func (l *LineReader) pump() {
	defer close(l.lines)

	scanner := bufio.NewScanner(l.r)

	for scanner.Scan() {
		select {
		case l.lines <- strings.TrimRight(scanner.Text(), "\r"):
		case <-l.done:
			return
		}
	}

	l.err = scanner.Err()
}

// ReadLine returns the next line without its terminator.
func (l *LineReader) ReadLine(ctx context.Context) (string, error) {
	l.startOnce.Do(func() {
		go l.pump()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", l.err
			}

			return "", ErrInputClosed
		}

		return line, nil
	}
}

// Close stops the pump once its current read returns.
func (l *LineReader) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}
