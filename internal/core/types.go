package core

import (
	"encoding/json"
	"time"
)

// State is the stage an upload form is in.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingParserOptions State = "awaiting_parser_options"
	StateValidating            State = "validating"
	StateAccepted              State = "accepted"
	StateRejected              State = "rejected"
)

// Terminal reports whether no further pipeline work is pending for the state.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateRejected
}

// Reason classifies why a file was rejected.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonSizeExceeded   Reason = "size-exceeded"
	ReasonHeaderMismatch Reason = "header-mismatch"
	ReasonUnsorted       Reason = "unsorted"
	ReasonParseError     Reason = "parse-error"
	ReasonReadError      Reason = "read-error"
	ReasonNoData         Reason = "no-data"
)

// Record is one parsed data row.
// Only Chrom and Pos take part in sort-order validation.
type Record struct {
	Line         int     `json:"line"` // 1-based line number within the preview
	Chrom        string  `json:"chrom"`
	Pos          int     `json:"pos"`
	Ref          string  `json:"ref,omitempty"`
	Alt          string  `json:"alt,omitempty"`
	PValue       float64 `json:"pvalue"`
	NegLogPValue float64 `json:"neg_log_pvalue"`

	Beta       *float64 `json:"beta,omitempty"`
	StdErrBeta *float64 `json:"stderr_beta,omitempty"`
	AlleleFreq *float64 `json:"allele_freq,omitempty"`
}

// PreviewSummary describes what the validated preview window contained.
type PreviewSummary struct {
	Lines       int      `json:"lines"`
	HeaderLines int      `json:"headerLines"`
	DataRows    int      `json:"dataRows"`
	Chromosomes []string `json:"chromosomes"`
}

// Validity is the state the upload form reflects. Message is empty and
// Options is set only when State is StateAccepted.
type Validity struct {
	Generation uint64          `json:"generation"`
	State      State           `json:"state"`
	FileName   string          `json:"fileName,omitempty"`
	FileSize   int64           `json:"fileSize,omitempty"`
	Reason     Reason          `json:"reason,omitempty"`
	Message    string          `json:"message,omitempty"`
	Code       string          `json:"code,omitempty"`
	Options    json.RawMessage `json:"parserOptions,omitempty"`
	Summary    *PreviewSummary `json:"summary,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Valid reports whether the form may be submitted.
func (v Validity) Valid() bool {
	return v.State == StateAccepted
}

// Preview is what the option-selection UI needs to build a column mapping.
type Preview struct {
	FileName     string         `json:"fileName"`
	Lines        []string       `json:"lines"`
	DataStart    int            `json:"dataStart"` // -1 when no data line was found
	HeaderFields []string       `json:"headerFields,omitempty"`
	Suggested    *ParserOptions `json:"suggestedOptions,omitempty"`
	Delimiter    string         `json:"delimiter"`
}

// Submission is an accepted upload recorded for backend ingestion.
type Submission struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"sessionId"`
	FileName      string          `json:"fileName"`
	FileSize      int64           `json:"fileSize"`
	ParserOptions json.RawMessage `json:"parserOptions"`
	DataRows      int             `json:"dataRows"`
	Chromosomes   []string        `json:"chromosomes"`
	ClientIP      string          `json:"clientIp,omitempty"`
	UserAgent     string          `json:"userAgent,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
