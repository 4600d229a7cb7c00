package core

// controller.go drives one upload form through the preview pipeline.
//
// State flow:
//
//	Idle -> AwaitingParserOptions -> Validating -> Accepted | Rejected
//
// Every SelectFile, Reset or Close bumps the generation and cancels the work
// of the previous one. A validation goroutine only writes its result back when
// its generation is still current, so a slow check for an earlier file can
// never overwrite the outcome for the file selected after it.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultMaxFileSize is the upload ceiling when none is configured (1250 MiB).
const DefaultMaxFileSize int64 = 1250 << 20

// ControllerConfig configures a Controller. Zero values use defaults.
type ControllerConfig struct {
	MaxFileSize       int64
	Reader            ReaderOptions
	ExpectedHeader    []string // header required by UseDefaultOptions
	ValidationTimeout time.Duration
	Limiter           *ValidationLimiter
	Logger            *slog.Logger
	BaseContext       context.Context // parent of every validation run
}

// Controller owns the current file selection of one upload form.
type Controller struct {
	cfg    ControllerConfig
	logger *slog.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	reader   *Reader
	options  *ParserOptions
	validity Validity
	subs     map[int]chan Validity
	nextSub  int
	closed   bool
	claimed  bool
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if len(cfg.ExpectedHeader) == 0 {
		cfg.ExpectedHeader = DefaultExpectedHeader
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:      cfg,
		logger:   logger,
		validity: Validity{State: StateIdle, UpdatedAt: time.Now()},
		subs:     make(map[int]chan Validity),
	}
}

// SelectFile starts a new file selection. Any confirmed options, pending
// validation and previous result are discarded, even when the same file is
// selected again. A file over the size ceiling is rejected here without a
// single byte being read.
func (c *Controller) SelectFile(name string, src ByteSource) Validity {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	v := Validity{
		Generation: c.gen,
		FileName:   name,
		FileSize:   src.Size(),
		UpdatedAt:  time.Now(),
	}

	if src.Size() > c.cfg.MaxFileSize {
		err := &SizeExceededError{Size: src.Size(), Max: c.cfg.MaxFileSize}
		c.reject(&v, err)
		c.logger.Info("file rejected", "file", name, "reason", v.Reason, "size", src.Size())
	} else {
		c.reader = NewReader(name, src, c.cfg.Reader)
		v.State = StateAwaitingParserOptions
		c.logger.Debug("file selected", "file", name, "size", src.Size(), "decoder", c.reader.Decoder().Name())
	}

	c.publishLocked(v)
	return v
}

// Reader returns the preview reader of the current file, or nil.
func (c *Controller) Reader() *Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// Preview returns what the column-selection step needs: the preview lines,
// where data starts, the header labels and a suggested mapping.
func (c *Controller) Preview(ctx context.Context) (Preview, error) {
	reader := c.Reader()
	if reader == nil {
		return Preview{}, ErrNoFileSelected
	}
	return BuildPreview(ctx, reader)
}

// BuildPreview reads reader and sniffs its lines with a guessed delimiter.
func BuildPreview(ctx context.Context, reader *Reader) (Preview, error) {
	lines, err := reader.Lines(ctx)
	if err != nil {
		return Preview{}, err
	}

	delim := SuggestDelimiter(lines)
	sniffer := Sniffer{Delimiter: delim}
	p := Preview{
		FileName:  reader.Name(),
		Lines:     lines,
		DataStart: -1,
		Delimiter: delim,
	}
	if start, ok := sniffer.LocateDataStart(lines); ok {
		p.DataStart = start
	}
	p.HeaderFields = sniffer.HeaderFields(lines)
	if opts, ok := GuessOptions(p.HeaderFields); ok {
		opts.Delimiter = delim
		p.Suggested = &opts
	}
	return p, nil
}

// ConfirmOptions locks in opts for the current file and starts validation.
// The returned channel receives the final Validity, or is closed without a
// value when the run is superseded by a newer selection.
func (c *Controller) ConfirmOptions(opts ParserOptions) (<-chan Validity, error) {
	return c.confirm(opts, false)
}

// UseDefaultOptions validates the file with StandardOptions. The file's
// header must then match the expected header exactly.
func (c *Controller) UseDefaultOptions() (<-chan Validity, error) {
	return c.confirm(StandardOptions(), true)
}

func (c *Controller) confirm(opts ParserOptions, defaults bool) (<-chan Validity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reader == nil {
		return nil, ErrNoFileSelected
	}
	if c.options != nil {
		return nil, ErrOptionsConfirmed
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Delimiter == "" {
		opts.Delimiter = DefaultDelimiter
	}
	c.options = &opts

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.cfg.ValidationTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.cfg.BaseContext, c.cfg.ValidationTimeout)
	} else {
		ctx, cancel = context.WithCancel(c.cfg.BaseContext)
	}
	c.cancel = cancel

	v := c.validity
	v.State = StateValidating
	v.UpdatedAt = time.Now()
	c.publishLocked(v)

	result := make(chan Validity, 1)
	go c.run(ctx, cancel, c.gen, c.reader, opts, defaults, result)
	return result, nil
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, reader *Reader, opts ParserOptions, defaults bool, result chan<- Validity) {
	defer close(result)
	defer cancel()

	logger := c.logger.With("file", reader.Name(), "generation", gen)
	start := time.Now()

	var (
		summary *PreviewSummary
		err     error
	)
	if c.cfg.Limiter != nil {
		err = c.cfg.Limiter.Acquire(ctx)
		if err == nil {
			defer c.cfg.Limiter.Release()
		}
	}
	if err == nil {
		summary, err = c.validate(ctx, logger, reader, opts, defaults)
	}

	v, current := c.finish(gen, opts, summary, err)
	if !current {
		logger.Debug("discarding stale validation result")
		return
	}
	logger.Info("validation finished",
		"state", v.State,
		"reason", v.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	result <- v
}

// validate runs read, sniff, header check, parse and sort check in order.
func (c *Controller) validate(ctx context.Context, logger *slog.Logger, reader *Reader, opts ParserOptions, defaults bool) (*PreviewSummary, error) {
	lines, err := reader.Lines(ctx)
	if err != nil {
		var readErr *ReadError
		if errors.As(err, &readErr) {
			logger.Warn("cannot read preview", "error", err)
		} else {
			logger.Debug("preview read stopped", "error", err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sniffer := NewSniffer(opts)
	start, ok := sniffer.LocateDataStart(lines)
	if !ok {
		return nil, ErrNoDataRows
	}
	if err := c.checkHeader(sniffer, lines, start, opts, defaults); err != nil {
		return nil, err
	}

	records, err := NewParser(opts).ParseFrom(lines, start)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoDataRows
	}

	summary := Summarize(lines, start, records)
	if err := CheckSorted(records); err != nil {
		return &summary, err
	}
	return &summary, ctx.Err()
}

// checkHeader compares the line before the data against what the options
// need. Default options require the configured header exactly. Explicit
// options only require a multi-column header to be wide enough for every
// mapped column; files without such a header are left to the parser.
func (c *Controller) checkHeader(sniffer Sniffer, lines []string, start int, opts ParserOptions, defaults bool) error {
	var got []string
	if start > 0 {
		got = sniffer.Fields(lines[start-1])
	}

	if defaults {
		expected := c.cfg.ExpectedHeader
		if len(got) == 0 {
			return &HeaderMismatchError{
				Expected: expected,
				Detail:   "no header line found, expected " + strings.Join(expected, " "),
			}
		}
		if !fieldsEqualFold(got, expected) {
			return &HeaderMismatchError{Expected: expected, Got: got}
		}
		return nil
	}

	if len(got) > 1 && len(got) < opts.MaxColumn() {
		return &HeaderMismatchError{
			Got:    got,
			Detail: fmt.Sprintf("column %d was chosen but the header has only %d columns", opts.MaxColumn(), len(got)),
		}
	}
	return nil
}

func fieldsEqualFold(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return false
		}
	}
	return true
}

// finish records the outcome of generation gen. It reports false, and
// changes nothing, when a newer selection has started since.
func (c *Controller) finish(gen uint64, opts ParserOptions, summary *PreviewSummary, err error) (Validity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		return Validity{}, false
	}

	v := c.validity
	v.Summary = summary
	v.UpdatedAt = time.Now()

	if err == nil {
		raw, serr := opts.Serialize()
		if serr != nil {
			err = fmt.Errorf("serialize parser options: %w", serr)
		} else {
			v.State = StateAccepted
			v.Reason = ReasonNone
			v.Message = ""
			v.Code = ""
			v.Options = raw
		}
	}
	if err != nil {
		c.reject(&v, err)
	}

	c.publishLocked(v)
	return v, true
}

func (c *Controller) reject(v *Validity, err error) {
	v.State = StateRejected
	v.Reason = reasonFor(err)
	v.Message = rejectionMessage(err)
	v.Code = MapError(err).Code
	v.Options = nil
}

// Reset returns the controller to Idle and drops the current file.
func (c *Controller) Reset() Validity {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	v := Validity{Generation: c.gen, State: StateIdle, UpdatedAt: time.Now()}
	c.publishLocked(v)
	return v
}

// Close cancels pending work and closes every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Controller) resetLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.reader = nil
	c.options = nil
	c.claimed = false
}

// State returns the current validity.
func (c *Controller) State() Validity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validity
}

// Options returns the confirmed options of the current file.
func (c *Controller) Options() (ParserOptions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.options == nil {
		return ParserOptions{}, false
	}
	return *c.options, true
}

// Subscribe returns a channel that receives every validity change, starting
// with the current one. Slow subscribers lose intermediate states but always
// see the latest. Call the returned function to unsubscribe.
func (c *Controller) Subscribe() (<-chan Validity, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Validity, 8)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.validity

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

func (c *Controller) publishLocked(v Validity) {
	c.validity = v
	for _, ch := range c.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Full: drop the oldest pending state to make room.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// claim reserves the accepted file of the current generation for one
// submitter. It fails with ErrNotAccepted when the file is not accepted or
// another submitter already holds it.
func (c *Controller) claim() (Validity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.claimed || !c.validity.Valid() || c.validity.Generation != c.gen {
		return Validity{}, ErrNotAccepted
	}
	c.claimed = true
	return c.validity, nil
}

// release gives up a claim on gen without changing the state.
func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.claimed = false
	}
}

// resetIf resets the controller only when gen is still the current
// generation. It reports whether the reset happened.
func (c *Controller) resetIf(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		return false
	}
	c.resetLocked()
	c.publishLocked(Validity{Generation: c.gen, State: StateIdle, UpdatedAt: time.Now()})
	return true
}
