package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

const sortedFile = "## produced by a test\n" +
	"#chrom\tpos\tref\talt\tpvalue\n" +
	"1\t100\tA\tG\t0.5\n" +
	"1\t100\tA\tT\t0.4\n" +
	"1\t250\tC\tT\t0.01\n" +
	"2\t50\tG\tA\t1e-9\n" +
	"2\t75\tG\tA\t0.2\n"

// gatedSource blocks reads until release is closed.
type gatedSource struct {
	BytesSource
	release chan struct{}
}

func (g *gatedSource) ReadAt(p []byte, off int64) (int, error) {
	<-g.release
	return g.BytesSource.ReadAt(p, off)
}

func await(t *testing.T, ch <-chan Validity) Validity {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("result channel closed without a value")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for validation")
	}
	return Validity{}
}

func newTestController() *Controller {
	return NewController(ControllerConfig{MaxFileSize: 1 << 20})
}

func TestController_AcceptsSortedFile(t *testing.T) {
	c := newTestController()

	v := c.SelectFile("study.tsv", BytesSource(sortedFile))
	if v.State != StateAwaitingParserOptions {
		t.Fatalf("state after select = %s", v.State)
	}

	ch, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("UseDefaultOptions: %v", err)
	}
	v = await(t, ch)

	if v.State != StateAccepted || !v.Valid() {
		t.Fatalf("state = %s (%s)", v.State, v.Message)
	}
	if v.Message != "" || v.Reason != ReasonNone {
		t.Errorf("accepted validity carries a message: %+v", v)
	}
	var opts ParserOptions
	if err := json.Unmarshal(v.Options, &opts); err != nil {
		t.Fatalf("options JSON: %v", err)
	}
	if opts != StandardOptions() {
		t.Errorf("serialized options = %+v", opts)
	}
	if v.Summary == nil || v.Summary.DataRows != 5 || len(v.Summary.Chromosomes) != 2 {
		t.Errorf("summary = %+v", v.Summary)
	}
	if got := c.State(); got.State != StateAccepted {
		t.Errorf("State() = %s", got.State)
	}
}

func TestController_UnsortedRowFlipsToRejected(t *testing.T) {
	unsorted := strings.Replace(sortedFile, "1\t250\tC\tT", "1\t10\tC\tT", 1)

	c := newTestController()
	c.SelectFile("study.tsv", BytesSource(unsorted))
	ch, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("UseDefaultOptions: %v", err)
	}
	v := await(t, ch)

	if v.State != StateRejected || v.Reason != ReasonUnsorted {
		t.Fatalf("validity = %+v", v)
	}
	if v.Message == "" || v.Code != "VAL002" {
		t.Errorf("rejection message = %q code = %q", v.Message, v.Code)
	}
	if v.Options != nil {
		t.Error("rejected validity must not carry options")
	}
}

func TestController_SizeCheckedBeforeRead(t *testing.T) {
	src := &countingSource{ByteSource: NewPrefixSource([]byte(sortedFile), 5<<20)}
	c := NewController(ControllerConfig{MaxFileSize: 1 << 20})

	v := c.SelectFile("huge.tsv.gz", src)
	if v.State != StateRejected || v.Reason != ReasonSizeExceeded {
		t.Fatalf("validity = %+v", v)
	}
	if src.reads != 0 {
		t.Errorf("source was read %d times", src.reads)
	}
	if _, err := c.UseDefaultOptions(); !errors.Is(err, ErrNoFileSelected) {
		t.Errorf("confirm after size rejection: err = %v", err)
	}
	if _, err := c.Preview(context.Background()); !errors.Is(err, ErrNoFileSelected) {
		t.Errorf("preview after size rejection: err = %v", err)
	}
	if src.reads != 0 {
		t.Errorf("source was read %d times", src.reads)
	}
}

func TestController_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		opts     *ParserOptions
		reason   Reason
		wantCode string
	}{
		{
			name:     "default header mismatch",
			file:     "plink.tsv",
			content:  "CHR\tBP\tA1\tA2\tP\n1\t1\tA\tG\t0.1\n1\t2\tA\tG\t0.1\n",
			reason:   ReasonHeaderMismatch,
			wantCode: "HDR001",
		},
		{
			name:     "default options without header",
			file:     "bare.tsv",
			content:  "1\t1\tA\tG\t0.1\n1\t2\tA\tG\t0.1\n",
			reason:   ReasonHeaderMismatch,
			wantCode: "HDR001",
		},
		{
			name:     "header narrower than chosen columns",
			file:     "narrow.tsv",
			content:  "chr\tpos\tp\n1\t1\t0.1\n1\t2\t0.1\n",
			opts:     &ParserOptions{ChromCol: 1, PosCol: 2, PValueCol: 7},
			reason:   ReasonHeaderMismatch,
			wantCode: "HDR001",
		},
		{
			name:     "parse error",
			file:     "bad.tsv",
			content:  "#chrom\tpos\tref\talt\tpvalue\n1\t1\tA\tG\t0.1\n1\t2\tA\tG\t7\n",
			reason:   ReasonParseError,
			wantCode: "VAL001",
		},
		{
			name:     "only header lines",
			file:     "empty.tsv",
			content:  "#chrom\tpos\tref\talt\tpvalue\n##end\n",
			reason:   ReasonNoData,
			wantCode: "FILE003",
		},
		{
			name:     "corrupt gzip",
			file:     "broken.tsv.gz",
			content:  "#chrom\tpos\tref\talt\tpvalue\n1\t1\tA\tG\t0.1\n",
			reason:   ReasonReadError,
			wantCode: "FILE002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController()
			c.SelectFile(tt.file, BytesSource(tt.content))

			var (
				ch  <-chan Validity
				err error
			)
			if tt.opts != nil {
				ch, err = c.ConfirmOptions(*tt.opts)
			} else {
				ch, err = c.UseDefaultOptions()
			}
			if err != nil {
				t.Fatalf("confirm: %v", err)
			}
			v := await(t, ch)
			if v.State != StateRejected || v.Reason != tt.reason {
				t.Fatalf("validity = %+v, want reason %s", v, tt.reason)
			}
			if v.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", v.Code, tt.wantCode)
			}
			if v.Message == "" {
				t.Error("rejection without message")
			}
		})
	}
}

func TestController_ExplicitOptions(t *testing.T) {
	content := "CHR,BP,SNP,A1,A2,P\n" +
		"10,5,rs1,A,G,0.1\n" +
		"10,9,rs2,A,G,0.2\n" +
		"3,1,rs3,C,T,0.3\n"

	c := newTestController()
	c.SelectFile("plink.csv", BytesSource(content))

	p, err := c.Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.DataStart != 1 || len(p.HeaderFields) != 6 {
		t.Errorf("preview = %+v", p)
	}

	opts := ParserOptions{ChromCol: 1, PosCol: 2, RefCol: 5, AltCol: 4, PValueCol: 6, Delimiter: ","}
	ch, err := c.ConfirmOptions(opts)
	if err != nil {
		t.Fatalf("ConfirmOptions: %v", err)
	}
	v := await(t, ch)
	if v.State != StateAccepted {
		t.Fatalf("validity = %+v", v)
	}
	if got, ok := c.Options(); !ok || got != opts {
		t.Errorf("Options() = %+v, %v", got, ok)
	}
}

func TestController_InvalidOptionsLeaveStateUnchanged(t *testing.T) {
	c := newTestController()
	c.SelectFile("study.tsv", BytesSource(sortedFile))

	_, err := c.ConfirmOptions(ParserOptions{ChromCol: 1, PosCol: 1, PValueCol: 2})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
	if v := c.State(); v.State != StateAwaitingParserOptions {
		t.Errorf("state = %s", v.State)
	}
	if _, err := c.UseDefaultOptions(); err != nil {
		t.Errorf("valid options after invalid ones: %v", err)
	}
}

func TestController_OptionsImmutableUntilReselect(t *testing.T) {
	c := newTestController()
	c.SelectFile("study.tsv", BytesSource(sortedFile))

	ch, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("UseDefaultOptions: %v", err)
	}
	await(t, ch)

	if _, err := c.ConfirmOptions(StandardOptions()); !errors.Is(err, ErrOptionsConfirmed) {
		t.Fatalf("second confirm: err = %v, want ErrOptionsConfirmed", err)
	}

	// Selecting the same file again starts over.
	v := c.SelectFile("study.tsv", BytesSource(sortedFile))
	if v.State != StateAwaitingParserOptions || v.Options != nil || v.Summary != nil {
		t.Fatalf("reselect validity = %+v", v)
	}
	if _, ok := c.Options(); ok {
		t.Error("options survived reselection")
	}
	ch, err = c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("confirm after reselect: %v", err)
	}
	if v := await(t, ch); v.State != StateAccepted {
		t.Errorf("state = %s", v.State)
	}
}

func TestController_NewerSelectionWins(t *testing.T) {
	c := newTestController()

	slow := &gatedSource{
		BytesSource: BytesSource(strings.Replace(sortedFile, "1\t250", "1\t1", 1)),
		release:     make(chan struct{}),
	}
	c.SelectFile("a.tsv", slow)
	chA, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("confirm A: %v", err)
	}

	c.SelectFile("b.tsv", BytesSource(sortedFile))
	chB, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("confirm B: %v", err)
	}
	vB := await(t, chB)
	if vB.State != StateAccepted || vB.FileName != "b.tsv" {
		t.Fatalf("B validity = %+v", vB)
	}

	// A finishes after B; its (rejecting) outcome must be discarded.
	close(slow.release)
	select {
	case v, ok := <-chA:
		if ok {
			t.Fatalf("stale result delivered: %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale run never finished")
	}

	if v := c.State(); v.State != StateAccepted || v.FileName != "b.tsv" {
		t.Errorf("final state = %+v", v)
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestController_CancelledReadLogsAtDebug(t *testing.T) {
	var logs syncBuffer
	c := NewController(ControllerConfig{
		MaxFileSize: 1 << 20,
		Logger:      slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	slow := &gatedSource{BytesSource: BytesSource(sortedFile), release: make(chan struct{})}
	c.SelectFile("a.tsv", slow)
	chA, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("confirm A: %v", err)
	}
	c.SelectFile("b.tsv", BytesSource(sortedFile))
	close(slow.release)

	select {
	case _, ok := <-chA:
		if ok {
			t.Fatal("stale result delivered")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale run never finished")
	}

	if out := logs.String(); strings.Contains(out, "level=WARN") {
		t.Errorf("cancelled run logged a warning:\n%s", out)
	}
}

func TestController_ResetDiscardsPendingRun(t *testing.T) {
	c := newTestController()
	slow := &gatedSource{BytesSource: BytesSource(sortedFile), release: make(chan struct{})}

	c.SelectFile("a.tsv", slow)
	ch, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if v := c.Reset(); v.State != StateIdle {
		t.Fatalf("Reset state = %s", v.State)
	}
	close(slow.release)

	if _, ok := <-ch; ok {
		t.Error("result delivered after reset")
	}
	if v := c.State(); v.State != StateIdle {
		t.Errorf("state = %s, want idle", v.State)
	}
}

func TestController_Subscribe(t *testing.T) {
	c := newTestController()
	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	if v := <-updates; v.State != StateIdle {
		t.Fatalf("initial update = %s", v.State)
	}

	c.SelectFile("study.tsv", BytesSource(sortedFile))
	ch, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("UseDefaultOptions: %v", err)
	}
	await(t, ch)

	var states []State
	timeout := time.After(2 * time.Second)
	for len(states) < 3 {
		select {
		case v := <-updates:
			states = append(states, v.State)
		case <-timeout:
			t.Fatalf("got states %v", states)
		}
	}
	want := []State{StateAwaitingParserOptions, StateValidating, StateAccepted}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}

	c.Close()
	if _, ok := <-updates; ok {
		t.Error("subscription still open after Close")
	}
}

func TestController_BusyLimiterRejects(t *testing.T) {
	limiter := NewValidationLimiter(1, 20*time.Millisecond)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer limiter.Release()

	c := NewController(ControllerConfig{Limiter: limiter})
	c.SelectFile("study.tsv", BytesSource(sortedFile))
	ch, err := c.UseDefaultOptions()
	if err != nil {
		t.Fatalf("UseDefaultOptions: %v", err)
	}
	v := await(t, ch)
	if v.State != StateRejected || v.Code != "UPL001" {
		t.Errorf("validity = %+v", v)
	}
}
