package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "size exceeded", err: &SizeExceededError{Size: 10, Max: 5}, wantCode: "FILE001"},
		{name: "read error", err: &ReadError{Name: "a.gz", Err: errors.New("gzip: invalid header")}, wantCode: "FILE002"},
		{name: "wrapped read error", err: fmt.Errorf("preview: %w", &ReadError{Name: "a", Err: errors.New("x")}), wantCode: "FILE002"},
		{name: "no data rows", err: ErrNoDataRows, wantCode: "FILE003"},
		{name: "no file selected", err: ErrNoFileSelected, wantCode: "FILE004"},
		{name: "header mismatch", err: &HeaderMismatchError{Detail: "x"}, wantCode: "HDR001"},
		{name: "parse error", err: &ParseError{Line: 3, Field: "pvalue", Reason: "invalid number"}, wantCode: "VAL001"},
		{name: "sort order", err: &SortOrderError{Line: 4, Chrom: "1", Pos: 1, PrevPos: 2}, wantCode: "VAL002"},
		{name: "invalid options", err: StandardOptions().withPValueCol(0).Validate(), wantCode: "VAL003"},
		{name: "session not found", err: fmt.Errorf("session abc: %w", ErrSessionNotFound), wantCode: "SES001"},
		{name: "options confirmed", err: ErrOptionsConfirmed, wantCode: "SES002"},
		{name: "not accepted", err: ErrNotAccepted, wantCode: "SES003"},
		{name: "busy", err: ErrTooManyValidations, wantCode: "UPL001"},
		{name: "cancelled", err: context.Canceled, wantCode: "UPL002"},
		{name: "deadline", err: fmt.Errorf("validate: %w", context.DeadlineExceeded), wantCode: "UPL003"},
		{name: "untyped rate limit", err: errors.New("Rate Limit exceeded"), wantCode: "RATE001"},
		{name: "untyped file too large", err: errors.New("http: request body FILE TOO LARGE"), wantCode: "FILE001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned an empty message")
			}
		})
	}
}

func (o ParserOptions) withPValueCol(col int) ParserOptions {
	o.PValueCol = col
	return o
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoDataRows)
	want := "No data rows were found at the start of the file (Code: FILE003). Check that data follows the header line and that the delimiter is correct"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "typed error is user facing", err: &SortOrderError{}, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	techErr := &ParseError{Line: 2, Field: "position", Value: "x", Reason: "invalid number"}
	userErr := NewUserError(techErr)
	if userErr.Error() != "A data row could not be read with the chosen columns" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, techErr) {
		t.Error("Unwrap() should return the original error")
	}
}

func TestRejectionMessage(t *testing.T) {
	err := &SortOrderError{Line: 7, Chrom: "2", Pos: 10, PrevPos: 50}
	got := rejectionMessage(err)
	if !strings.HasPrefix(got, "The file is not sorted") {
		t.Errorf("rejectionMessage() = %q, want sort message first", got)
	}
	if !strings.Contains(got, "line 7") {
		t.Errorf("rejectionMessage() = %q, want line detail", got)
	}

	readErr := &ReadError{Name: "big.gz", Err: errors.New("compressed preview produced no output")}
	if got := rejectionMessage(readErr); strings.Contains(got, "big.gz") {
		t.Errorf("rejectionMessage() = %q, should not repeat the file name", got)
	}
}
