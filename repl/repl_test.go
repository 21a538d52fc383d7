package repl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mstarongithub/consolation/util/wrappers"
)

func newTestRepl(input string) (Repl, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewRepl(wrappers.NewReaderWrapper(strings.NewReader(input)), wrappers.NewWriterWrapper(out)), out
}

func TestRunAnswersEveryLine(t *testing.T) {
	r, out := newTestRepl("a\nb\n\nc\n")
	err := r.Run(func(in string, _ *Repl) (string, error) {
		return strings.ToUpper(in), nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.String() != "A\nB\nC\n" {
		t.Errorf("Expected one answer per non-empty answer, got %q", out.String())
	}
}

func TestRunStopsOnHandlerError(t *testing.T) {
	r, out := newTestRepl("first\nquit\nnever\n")
	stop := errors.New("stop")
	var seen []string
	err := r.Run(func(in string, _ *Repl) (string, error) {
		seen = append(seen, in)
		if in == "quit" {
			return "bye", stop
		}
		return "ok", nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Expected the handler error, got %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("Expected the repl to stop after quit, handled %v", seen)
	}
	if out.String() != "ok\nbye\n" {
		t.Errorf("Expected the last answer to be written before closing, got %q", out.String())
	}
	if _, err := r.Output.Write([]byte("x")); !errors.Is(err, wrappers.ErrClosed) {
		t.Errorf("Expected the output to be closed, got %v", err)
	}
	// Closing twice is fine
	r.Close()
}

func TestPrompt(t *testing.T) {
	r, out := newTestRepl("x\n")
	r.Prompt = "> "
	err := r.Run(func(in string, _ *Repl) (string, error) {
		return in, nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.String() != "> x\n> " {
		t.Errorf("Unexpected output %q", out.String())
	}
}
