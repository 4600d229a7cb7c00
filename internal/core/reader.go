package core

// reader.go implements the preview reader: a bounded prefix of a ByteSource,
// decoded and split into lines.

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"sync"

	"golang.org/x/text/encoding/charmap"
)

// DefaultPreviewBytes is the preview budget when none is configured.
const DefaultPreviewBytes = 5000

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	PreviewBytes         int      // bytes read from the start of the source
	CompressedExtensions []string // extensions routed through GzipDecoder
}

// Reader yields the preview lines of one file. The lines are read once and
// cached; a Reader belongs to a single file selection.
type Reader struct {
	name    string
	src     ByteSource
	budget  int
	decoder Decoder

	mu    sync.Mutex
	done  bool
	lines []string
	err   error
}

// NewReader creates a Reader for src. The decode strategy is chosen from
// name's extension.
func NewReader(name string, src ByteSource, opts ReaderOptions) *Reader {
	budget := opts.PreviewBytes
	if budget <= 0 {
		budget = DefaultPreviewBytes
	}
	exts := opts.CompressedExtensions
	if exts == nil {
		exts = DefaultCompressedExtensions
	}
	return &Reader{
		name:    name,
		src:     src,
		budget:  budget,
		decoder: DecoderFor(name, exts),
	}
}

// Name returns the file name the reader was created for.
func (r *Reader) Name() string { return r.name }

// Decoder returns the decode strategy in use.
func (r *Reader) Decoder() Decoder { return r.decoder }

// Lines returns the preview lines. The final line of the decoded window is
// always dropped because the byte budget may have cut it short. Failures are
// returned as *ReadError; a failed read is cached like a successful one.
func (r *Reader) Lines(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.done {
		r.lines, r.err = r.read()
		r.done = true
	}
	if r.err != nil {
		return nil, r.err
	}
	return append([]string(nil), r.lines...), nil
}

// FetchLines delivers the preview lines to fn from a new goroutine, for
// callers that prefer a callback over a blocking call.
func (r *Reader) FetchLines(ctx context.Context, fn func(lines []string, err error)) {
	go func() {
		fn(r.Lines(ctx))
	}()
}

func (r *Reader) read() ([]string, error) {
	raw, err := readPrefix(r.src, r.budget)
	if err != nil {
		return nil, &ReadError{Name: r.name, Err: err}
	}

	decoded, err := r.decoder.Decode(raw, r.budget*maxInflateRatio)
	if err != nil {
		return nil, &ReadError{Name: r.name, Err: err}
	}

	text, err := decodeLatin1(decoded)
	if err != nil {
		return nil, &ReadError{Name: r.name, Err: err}
	}
	return splitPreview(text), nil
}

// decodeLatin1 strips a UTF-8 BOM and maps each remaining byte to one rune.
func decodeLatin1(b []byte) (string, error) {
	rd := charmap.ISO8859_1.NewDecoder().Reader(NewBOMSkippingReader(bytes.NewReader(b)))
	out, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// splitPreview splits text on runs of CR/LF and drops the last element.
// A leading empty element (text starting with a line break) is dropped too.
func splitPreview(text string) []string {
	parts := lineBreaks.Split(text, -1)
	parts = parts[:len(parts)-1]
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	return parts
}
