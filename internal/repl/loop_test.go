package repl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

func newTestLoop(in io.Reader, out, errOut io.Writer) *Loop {
	return NewLoop(LoopConfig{
		Reader:  NewLineReader(in, out, DefaultPrompt),
		Printer: NewPrinter(out),
		Stderr:  errOut,
	})
}

func TestLoop_MultiLine(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newTestLoop(strings.NewReader("hello\nworld\n"), &out, &errOut)

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "user> hello\nuser> world\nuser> "
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if errOut.Len() != 0 {
		t.Errorf("unexpected stderr: %q", errOut.String())
	}
	if l.Lines() != 2 {
		t.Errorf("lines = %d, want 2", l.Lines())
	}
	if l.State() != StateTerminated {
		t.Errorf("state = %s, want terminated", l.State())
	}
}

func TestLoop_EmptyInput(t *testing.T) {
	var out, errOut bytes.Buffer
	l := newTestLoop(strings.NewReader(""), &out, &errOut)

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != DefaultPrompt {
		t.Errorf("output = %q, want exactly one prompt", out.String())
	}
	if l.Lines() != 0 {
		t.Errorf("lines = %d, want 0", l.Lines())
	}
}

func TestLoop_EchoIdentity(t *testing.T) {
	inputs := []string{
		"",
		"   leading and trailing   ",
		"(+ 1 2)",
		"unicode: héllo wörld ✓",
		"tab\there",
	}
	for _, in := range inputs {
		var out bytes.Buffer
		l := newTestLoop(strings.NewReader(in+"\n"), &out, io.Discard)
		if err := l.Run(context.Background()); err != nil {
			t.Fatalf("Run(%q): %v", in, err)
		}
		want := DefaultPrompt + in + "\n" + DefaultPrompt
		if out.String() != want {
			t.Errorf("input %q: output = %q, want %q", in, out.String(), want)
		}
	}
}

func TestLoop_NoCrossIterationLeakage(t *testing.T) {
	var out bytes.Buffer
	l := newTestLoop(strings.NewReader("a-very-long-first-line\nb\n\nc\n"), &out, io.Discard)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "user> a-very-long-first-line\nuser> b\nuser> \nuser> c\nuser> "
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestLoop_CRLFAndUnterminatedLine(t *testing.T) {
	var out bytes.Buffer
	l := newTestLoop(strings.NewReader("dos\r\nlast"), &out, io.Discard)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "user> dos\nuser> last\nuser> "
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestLoop_InputFailureStopsGracefully(t *testing.T) {
	for i := 0; i < 3; i++ {
		var out, errOut bytes.Buffer
		l := newTestLoop(iotest.ErrReader(errors.New("device gone")), &out, &errOut)

		if err := l.Run(context.Background()); err != nil {
			t.Fatalf("Run: expected nil error, got %v", err)
		}
		if out.String() != DefaultPrompt {
			t.Errorf("output = %q, want one prompt", out.String())
		}
		if got, want := errOut.String(), "error: read input: device gone\n"; got != want {
			t.Errorf("stderr = %q, want %q", got, want)
		}
	}
}

func TestLoop_InputFailureAfterData(t *testing.T) {
	var out, errOut bytes.Buffer
	in := io.MultiReader(strings.NewReader("ok\n"), iotest.ErrReader(errors.New("boom")))
	l := newTestLoop(in, &out, &errOut)

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "user> ok\nuser> "; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if !strings.HasPrefix(errOut.String(), "error: ") {
		t.Errorf("stderr = %q, want error line", errOut.String())
	}
}

type failingWriter struct {
	prompts int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if string(p) == DefaultPrompt {
		w.prompts++
		return len(p), nil
	}
	return 0, errors.New("disk full")
}

func TestLoop_PrintFailureReturned(t *testing.T) {
	w := &failingWriter{}
	l := newTestLoop(strings.NewReader("x\ny\n"), w, io.Discard)

	err := l.Run(context.Background())
	if err == nil {
		t.Fatal("expected print error")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v, want disk full", err)
	}
	if w.prompts != 1 {
		t.Errorf("prompts = %d, want 1", w.prompts)
	}
}

// promptCheckReader fails the test if the prompt is not already visible in
// the sink when the loop starts reading.
type promptCheckReader struct {
	t    *testing.T
	sink *bytes.Buffer
	r    io.Reader
	seen int
}

func (p *promptCheckReader) Read(b []byte) (int, error) {
	p.seen++
	if !strings.HasSuffix(p.sink.String(), DefaultPrompt) {
		p.t.Errorf("read %d: prompt not flushed before blocking, sink = %q", p.seen, p.sink.String())
	}
	return p.r.Read(b)
}

func TestLoop_PromptFlushedBeforeRead(t *testing.T) {
	var sink bytes.Buffer
	out := bufio.NewWriter(&sink)
	in := &promptCheckReader{t: t, sink: &sink, r: iotest.OneByteReader(strings.NewReader("hi\n"))}

	l := NewLoop(LoopConfig{
		Reader:  NewLineReader(in, out, DefaultPrompt),
		Printer: NewPrinter(out),
	})
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "user> hi\nuser> "; sink.String() != want {
		t.Errorf("output = %q, want %q", sink.String(), want)
	}
}

type notifyWriter struct {
	buf    bytes.Buffer
	writes chan string
}

func (w *notifyWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.writes <- string(p)
	return n, err
}

func TestLoop_PromptVisibleWhileBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	out := &notifyWriter{writes: make(chan string, 16)}
	l := newTestLoop(pr, out, io.Discard)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	expect := func(want string) {
		t.Helper()
		select {
		case got := <-out.writes:
			if got != want {
				t.Fatalf("write = %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	expect(DefaultPrompt)
	if _, err := pw.Write([]byte("first\n")); err != nil {
		t.Fatal(err)
	}
	expect("first\n")
	expect(DefaultPrompt)
	pw.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on end of input")
	}
}

func TestLoop_CancelledContext(t *testing.T) {
	var out bytes.Buffer
	l := newTestLoop(strings.NewReader("never\n"), &out, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}

func TestLoop_CustomEvaluator(t *testing.T) {
	var out bytes.Buffer
	l := NewLoop(LoopConfig{
		Reader:  NewLineReader(strings.NewReader("abc\n"), &out, "> "),
		Eval:    strings.ToUpper,
		Printer: NewPrinter(&out),
	})
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "> ABC\n> "; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

type brokenStdout struct{}

func (brokenStdout) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestLoop_PromptWriteFailureReturned(t *testing.T) {
	var errOut bytes.Buffer
	l := newTestLoop(strings.NewReader("hello\n"), brokenStdout{}, &errOut)

	err := l.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when the prompt cannot be written")
	}
	if !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("error = %v, want broken pipe", err)
	}
	var inErr *InputError
	if errors.As(err, &inErr) {
		t.Errorf("prompt failure reported as input failure: %v", err)
	}
	if strings.Contains(errOut.String(), "error: read input") {
		t.Errorf("stderr = %q, want no input-failure line", errOut.String())
	}
}

type failingFlushWriter struct {
	bytes.Buffer
}

func (w *failingFlushWriter) Flush() error {
	return errors.New("flush failed")
}

func TestLoop_PromptFlushFailureReturned(t *testing.T) {
	var errOut bytes.Buffer
	l := newTestLoop(strings.NewReader("hello\n"), &failingFlushWriter{}, &errOut)

	if err := l.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Fatalf("Run error = %v, want flush failure", err)
	}
	if errOut.Len() != 0 {
		t.Errorf("stderr = %q, want empty", errOut.String())
	}
}
