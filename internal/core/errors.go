package core

import (
	"errors"
	"fmt"
	"strings"
)

// Session and pipeline sentinel errors.
var (
	ErrNoDataRows        = errors.New("no data rows found in file preview")
	ErrInvalidOptions    = errors.New("invalid parser options")
	ErrSessionNotFound   = errors.New("upload session not found")
	ErrNoFileSelected    = errors.New("no file selected")
	ErrOptionsConfirmed  = errors.New("parser options already confirmed for this file")
	ErrNotAccepted       = errors.New("file has not passed validation")
	ErrSubmissionMissing = errors.New("submission not found")
)

// ReadError reports that the preview window could not be read or inflated.
// A file that produces a ReadError cannot be validated and is rejected.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read preview of %q: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// SizeExceededError reports a file larger than the upload ceiling.
type SizeExceededError struct {
	Size int64
	Max  int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds limit of %d bytes", e.Size, e.Max)
}

// HeaderMismatchError reports header columns that do not match what the
// parser options or the default layout expect.
type HeaderMismatchError struct {
	Expected []string
	Got      []string
	Detail   string
}

func (e *HeaderMismatchError) Error() string {
	if e.Detail != "" {
		return "header mismatch: " + e.Detail
	}
	return fmt.Sprintf("header mismatch: expected %q, got %q",
		strings.Join(e.Expected, " "), strings.Join(e.Got, " "))
}

// ParseError reports a data line that could not be turned into a Record.
type ParseError struct {
	Line   int
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&b, " (%q)", e.Value)
	}
	return b.String()
}

// SortOrderError describes the first ordering violation found.
type SortOrderError struct {
	Line     int
	Chrom    string
	Pos      int
	PrevPos  int
	Reappear bool
}

func (e *SortOrderError) Error() string {
	if e.Reappear {
		return fmt.Sprintf("line %d: chromosome %s appears again after other chromosomes; rows for each chromosome must be contiguous",
			e.Line, e.Chrom)
	}
	return fmt.Sprintf("line %d: position %d on chromosome %s comes after position %d; positions must be sorted",
		e.Line, e.Pos, e.Chrom, e.PrevPos)
}

// reasonFor maps a pipeline error onto the rejection reason shown to users.
func reasonFor(err error) Reason {
	var (
		readErr   *ReadError
		sizeErr   *SizeExceededError
		headerErr *HeaderMismatchError
		parseErr  *ParseError
		sortErr   *SortOrderError
	)
	switch {
	case err == nil:
		return ReasonNone
	case errors.As(err, &sizeErr):
		return ReasonSizeExceeded
	case errors.As(err, &readErr):
		return ReasonReadError
	case errors.As(err, &headerErr):
		return ReasonHeaderMismatch
	case errors.As(err, &sortErr):
		return ReasonUnsorted
	case errors.As(err, &parseErr):
		return ReasonParseError
	case errors.Is(err, ErrNoDataRows):
		return ReasonNoData
	default:
		return ReasonReadError
	}
}
