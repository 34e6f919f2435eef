// Package platform provides terminal and headless implementations of the
// capabilities the attach control drives: action sheet, permission prompts,
// image library, camera and locator.
package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/soyeahso/attachkit/internal/domain"
)

const maxPromptAttempts = 3

// lineReader is satisfied by *readline.Instance and by the plain reader
// used when no terminal is attached.
type lineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
	Close() error
}

type plainReader struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

func (r *plainReader) SetPrompt(p string) { r.prompt = p }

func (r *plainReader) Readline() (string, error) {
	fmt.Fprint(r.out, r.prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *plainReader) Close() error { return nil }

// Terminal presents sheets, permission prompts and lists on a text terminal.
type Terminal struct {
	mu  sync.Mutex
	rl  lineReader
	out io.Writer
}

// NewTerminal opens an interactive terminal on stdin/stdout, falling back to
// plain line input when readline can't take over the terminal.
func NewTerminal() *Terminal {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "cancel",
	})
	if err != nil {
		return NewTerminalIO(os.Stdin, os.Stdout)
	}
	return &Terminal{rl: rl, out: rl.Stdout()}
}

// NewTerminalIO creates a terminal over arbitrary streams.
func NewTerminalIO(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		rl:  &plainReader{in: bufio.NewReader(in), out: out},
		out: out,
	}
}

// Close releases the terminal.
func (t *Terminal) Close() error {
	return t.rl.Close()
}

// Show prints the sheet as a numbered menu and returns the selected choice.
// An empty answer, EOF or interrupt selects the cancel entry.
func (t *Terminal) Show(ctx context.Context, sheet domain.Sheet) (domain.Choice, error) {
	title := sheet.Title
	if title == "" {
		title = "Attach"
	}
	idx, err := t.Choose(ctx, title, sheet.Labels())
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return domain.ChoiceCancel, nil
		}
		return domain.ChoiceCancel, err
	}
	return domain.ChoiceFromIndex(sheet.Options, idx), nil
}

// Choose prints items as a numbered list and returns the zero-based index of
// the selected one. It returns domain.ErrCancelled when the user enters
// nothing, "q", or closes the input.
func (t *Terminal) Choose(ctx context.Context, title string, items []string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, title)
	for i, item := range items {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, item)
	}
	t.rl.SetPrompt(fmt.Sprintf("choose 1-%d: ", len(items)))

	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		line, err := t.readLine(ctx)
		if err != nil {
			return -1, err
		}
		if line == "" || line == "q" {
			return -1, domain.ErrCancelled
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(items) {
			return n - 1, nil
		}
		fmt.Fprintf(t.out, "invalid choice %q\n", line)
	}
	return -1, domain.ErrCancelled
}

// Confirm asks a yes/no question. Anything but y/yes is a no.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rl.SetPrompt(question + " [y/N] ")
	line, err := t.readLine(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := t.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", domain.ErrCancelled
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
