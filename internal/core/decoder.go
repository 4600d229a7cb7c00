package core

// decoder.go holds the byte-level decode strategies a Reader applies to the
// raw preview prefix before it is turned into text.

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// DefaultCompressedExtensions lists the file extensions routed through gzip.
// bgz (BGZF) is a series of gzip members, so the same decoder reads both.
var DefaultCompressedExtensions = []string{"gz", "bgz"}

// maxInflateRatio caps how much output a compressed prefix may produce,
// relative to the preview budget.
const maxInflateRatio = 200

// Decoder turns the raw bytes read from a ByteSource into uncompressed bytes.
type Decoder interface {
	Decode(raw []byte, limit int) ([]byte, error)
	Name() string
}

// PlainDecoder passes bytes through unchanged.
type PlainDecoder struct{}

func (PlainDecoder) Name() string { return "plain" }

func (PlainDecoder) Decode(raw []byte, _ int) ([]byte, error) { return raw, nil }

// GzipDecoder inflates a gzip or BGZF prefix. The prefix is usually cut in
// the middle of a deflate block, so output produced before the stream runs
// out is kept and only a prefix that yields nothing at all is an error.
type GzipDecoder struct{}

func (GzipDecoder) Name() string { return "gzip" }

func (GzipDecoder) Decode(raw []byte, limit int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	zr.Multistream(true)

	var out bytes.Buffer
	_, err = io.Copy(&out, io.LimitReader(zr, int64(limit)))
	if err == nil {
		return out.Bytes(), nil
	}
	if out.Len() > 0 {
		return out.Bytes(), nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errors.New("compressed preview produced no output")
	}
	return nil, err
}

// DecoderFor picks the decode strategy from the file name's extension.
// exts is matched case-insensitively, with or without a leading dot.
func DecoderFor(name string, exts []string) Decoder {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "" {
		return PlainDecoder{}
	}
	for _, e := range exts {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return GzipDecoder{}
		}
	}
	return PlainDecoder{}
}
