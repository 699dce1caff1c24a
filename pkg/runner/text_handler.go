package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/realign/pkg/domain"
)

// Prompt is written before every read.
const Prompt = "> "

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TextHandler reads user lines and prints conversation messages.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	maxInput int

	inputChan chan inputResult
	startOnce sync.Once
	done      chan struct{}
	stopOnce  sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithMaxInputSize overrides the sanitizer byte limit.
func WithMaxInputSize(n int) TextHandlerOption {
	return func(h *TextHandler) {
		h.maxInput = n
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour ctx while the
// underlying reader blocks.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			if !h.send(inputResult{text: text}) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.send(inputResult{err: err})
			}
			return
		}
	}
}

func (h *TextHandler) send(res inputResult) bool {
	select {
	case h.inputChan <- res:
		return true
	case <-h.done:
		return false
	}
}

// Input returns the next sanitized, trimmed line. Lines the sanitizer
// rejects are reported and skipped. io.EOF marks the end of input.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, Prompt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, open := <-h.inputChan:
			line, ok, err := h.receive(res, open)
			if !ok {
				continue
			}
			return line, err
		}
	}
}

// lines exposes pumped input to callers that wait on other events as well.
func (h *TextHandler) lines() <-chan inputResult {
	h.initPump()
	return h.inputChan
}

// receive turns one pumped result into a clean line. ok is false when the
// sanitizer rejected the line and another read is needed.
func (h *TextHandler) receive(res inputResult, open bool) (line string, ok bool, err error) {
	if !open {
		return "", true, io.EOF
	}
	if res.err != nil {
		return "", true, res.err
	}

	clean, err := SanitizeInputLimit(strings.TrimSpace(res.text), h.maxInput)
	if err != nil {
		h.Notice(fmt.Sprintf("Error: %v. Please try again.", err))
		return "", false, nil
	}
	return clean, true, nil
}

// Output prints bot messages. User messages are skipped since the terminal
// already echoes them. Quick replies are listed with their number.
func (h *TextHandler) Output(msgs []domain.Message) {
	for _, msg := range msgs {
		if msg.Sender == domain.SenderUser {
			continue
		}

		text := msg.Text
		if h.Renderer != nil {
			if rendered, err := h.Renderer(text); err == nil {
				text = rendered
			}
		}
		text = strings.TrimSpace(text)
		if msg.IsError {
			text = "! " + text
		}
		fmt.Fprintln(h.Writer, text)

		for i, opt := range msg.Options {
			fmt.Fprintf(h.Writer, "  [%d] %s\n", i+1, opt)
		}
	}
}

// Notice prints a meta message that is not part of the conversation log.
func (h *TextHandler) Notice(msg string) {
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
}

// Close stops the background reader.
func (h *TextHandler) Close() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}
