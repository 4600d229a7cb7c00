package core

// error_messages.go turns pipeline and session errors into messages an
// uploader can act on. Each message carries a code that support staff can
// look up below.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the file exceeds the upload size limit
//	FILE002 - Unreadable file: the preview could not be read or decompressed
//	FILE003 - No data rows: the preview holds only header or comment lines
//	FILE004 - No file: an action needed a selected file
//
// # Header Errors (HDR001-HDR099)
//
//	HDR001 - Header mismatch: header columns do not match the expected layout
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Parse error: a data row has a missing or malformed field
//	VAL002 - Not sorted: rows are not grouped by chromosome and position
//	VAL003 - Invalid parser options: the column mapping is incomplete
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: the upload session expired or was closed
//	SES002 - Options locked: options were already confirmed for this file
//	SES003 - Not validated: submission attempted before the file passed
//	SES004 - Submission not found
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many files are being validated
//	UPL002 - Cancelled: the request was cancelled
//	UPL003 - Timed out: validation did not finish in time
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// ERR000 is the fallback when nothing matches; check the logs for the
// original error.
//
// Typed errors are matched first with errors.As / errors.Is. Plain errors
// fall back to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type typedMessage struct {
	match func(error) bool
	msg   UserMessage
}

func isType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

var typedMessages = []typedMessage{
	{isType[*SizeExceededError], UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Compress the file with gzip or bgzip and try again",
		Code:    "FILE001",
	}},
	{isType[*ReadError], UserMessage{
		Message: "The file could not be read, so its contents cannot be checked",
		Action:  "Make sure the file is plain text or a valid .gz/.bgz archive",
		Code:    "FILE002",
	}},
	{isErr(ErrNoDataRows), UserMessage{
		Message: "No data rows were found at the start of the file",
		Action:  "Check that data follows the header line and that the delimiter is correct",
		Code:    "FILE003",
	}},
	{isErr(ErrNoFileSelected), UserMessage{
		Message: "No file was selected",
		Action:  "Please select a summary statistics file to upload",
		Code:    "FILE004",
	}},
	{isType[*HeaderMismatchError], UserMessage{
		Message: "The header columns do not match the expected layout",
		Action:  "Use the header #chrom, pos, ref, alt, pvalue or choose the columns yourself",
		Code:    "HDR001",
	}},
	{isType[*SortOrderError], UserMessage{
		Message: "The file is not sorted by chromosome and position",
		Action:  "Sort the file, for example with sort -k1,1 -k2,2n, and upload it again",
		Code:    "VAL002",
	}},
	{isType[*ParseError], UserMessage{
		Message: "A data row could not be read with the chosen columns",
		Action:  "Check the column choices and that p-values and positions are numbers",
		Code:    "VAL001",
	}},
	{isErr(ErrInvalidOptions), UserMessage{
		Message: "The column choices are incomplete",
		Action:  "Choose distinct columns for chromosome, position and p-value",
		Code:    "VAL003",
	}},
	{isErr(ErrSessionNotFound), UserMessage{
		Message: "Upload session not found",
		Action:  "The session may have expired. Please reload the page and select the file again",
		Code:    "SES001",
	}},
	{isErr(ErrOptionsConfirmed), UserMessage{
		Message: "Columns were already confirmed for this file",
		Action:  "Select the file again to choose different columns",
		Code:    "SES002",
	}},
	{isErr(ErrNotAccepted), UserMessage{
		Message: "The file has not passed validation yet",
		Action:  "Wait for the check to finish or fix the reported problem",
		Code:    "SES003",
	}},
	{isErr(ErrSubmissionMissing), UserMessage{
		Message: "Submission not found",
		Action:  "Verify the submission ID",
		Code:    "SES004",
	}},
	{isErr(ErrTooManyValidations), UserMessage{
		Message: "System is busy checking other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}},
	{isErr(context.Canceled), UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}},
	{isErr(context.DeadlineExceeded), UserMessage{
		Message: "Checking the file took too long",
		Action:  "Please try again",
		Code:    "UPL003",
	}},
}

// errorPattern maps a lower-case substring of an error message to a user
// message, for errors that arrive without a type (wrapped strings, errors
// from other layers).
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"file too large", typedMessages[0].msg},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}},
	{"deadline exceeded", UserMessage{
		Message: "Checking the file took too long",
		Action:  "Please try again",
		Code:    "UPL003",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, tm := range typedMessages {
		if tm.match(err) {
			return tm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// rejectionMessage is the blocking text shown on the file input: the mapped
// message followed by the detail of what went wrong.
func rejectionMessage(err error) string {
	msg := MapError(err)
	detail := err.Error()
	var readErr *ReadError
	if errors.As(err, &readErr) {
		detail = readErr.Err.Error()
	}
	return fmt.Sprintf("%s: %s", msg.Message, detail)
}

// UserError pairs a technical error with its user message. Error returns the
// user message; Unwrap returns the original.
type UserError struct {
	UserMessage
	Err error
}

// NewUserError wraps err with its mapped message. It returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{UserMessage: MapError(err), Err: err}
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }
