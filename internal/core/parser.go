package core

// parser.go turns delimited data lines into Records.

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ParseLine parses one data line with opts. lineNo is only used to label
// errors and the returned Record; pass 0 when it is not known.
func ParseLine(line string, lineNo int, opts ParserOptions) (Record, error) {
	fields := strings.Split(strings.TrimSpace(line), opts.Delim())

	get := func(name string, col int) (string, error) {
		if col <= 0 {
			return "", &ParseError{Line: lineNo, Field: name, Reason: "no column mapped"}
		}
		if col > len(fields) {
			return "", &ParseError{Line: lineNo, Field: name,
				Reason: "line has " + strconv.Itoa(len(fields)) + " fields, column " + strconv.Itoa(col) + " is missing"}
		}
		return strings.TrimSpace(fields[col-1]), nil
	}

	rec := Record{Line: lineNo}

	chrom, err := get("chromosome", opts.ChromCol)
	if err != nil {
		return Record{}, err
	}
	if IsMissing(chrom) {
		return Record{}, &ParseError{Line: lineNo, Field: "chromosome", Value: chrom, Reason: "required field is empty"}
	}
	rec.Chrom = chrom

	posText, err := get("position", opts.PosCol)
	if err != nil {
		return Record{}, err
	}
	pos, err := strconv.Atoi(posText)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Field: "position", Value: posText, Reason: "invalid number: position must be an integer"}
	}
	if pos < 0 {
		return Record{}, &ParseError{Line: lineNo, Field: "position", Value: posText, Reason: "position must not be negative"}
	}
	rec.Pos = pos

	if opts.RefCol > 0 {
		if rec.Ref, err = get("ref", opts.RefCol); err != nil {
			return Record{}, err
		}
	}
	if opts.AltCol > 0 {
		if rec.Alt, err = get("alt", opts.AltCol); err != nil {
			return Record{}, err
		}
	}

	pText, err := get("pvalue", opts.PValueCol)
	if err != nil {
		return Record{}, err
	}
	p, err := parseFloat(pText)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Field: "pvalue", Value: pText, Reason: "invalid number"}
	}
	if opts.IsNegLogPValue {
		if p < 0 {
			return Record{}, &ParseError{Line: lineNo, Field: "pvalue", Value: pText, Reason: "-log10 p-value must not be negative"}
		}
		rec.NegLogPValue = p
		rec.PValue = math.Pow(10, -p)
	} else {
		if p < 0 || p > 1 {
			return Record{}, &ParseError{Line: lineNo, Field: "pvalue", Value: pText, Reason: "p-value must be between 0 and 1"}
		}
		rec.PValue = p
		if p == 0 {
			rec.NegLogPValue = math.Inf(1)
		} else {
			rec.NegLogPValue = -math.Log10(p)
		}
	}

	if rec.Beta, err = optionalFloat(fields, "beta", opts.BetaCol, lineNo, nil); err != nil {
		return Record{}, err
	}
	if rec.StdErrBeta, err = optionalFloat(fields, "stderr_beta", opts.StdErrBetaCol, lineNo, func(v float64) string {
		if v < 0 {
			return "standard error must not be negative"
		}
		return ""
	}); err != nil {
		return Record{}, err
	}
	if rec.AlleleFreq, err = optionalFloat(fields, "allele_freq", opts.AlleleFreqCol, lineNo, func(v float64) string {
		if v < 0 || v > 1 {
			return "allele frequency must be between 0 and 1"
		}
		return ""
	}); err != nil {
		return Record{}, err
	}

	return rec, nil
}

// optionalFloat reads an optional numeric column. An unmapped column, a
// short line or a missing-value token all yield nil.
func optionalFloat(fields []string, name string, col, lineNo int, check func(float64) string) (*float64, error) {
	if col <= 0 || col > len(fields) {
		return nil, nil
	}
	text := strings.TrimSpace(fields[col-1])
	if IsMissing(text) {
		return nil, nil
	}
	v, err := parseFloat(text)
	if err != nil {
		return nil, &ParseError{Line: lineNo, Field: name, Value: text, Reason: "invalid number"}
	}
	if check != nil {
		if reason := check(v); reason != "" {
			return nil, &ParseError{Line: lineNo, Field: name, Value: text, Reason: reason}
		}
	}
	return &v, nil
}

// parseFloat parses a number. Values too small to represent become 0, which
// keeps extreme p-values such as 1e-400 usable. NaN and overflow are rejected;
// the missing-value tokens are the only way to leave a numeric field blank.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && v == 0 {
			return 0, nil
		}
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// Parser parses the data lines of a preview.
type Parser struct {
	Options ParserOptions
	Sniffer Sniffer
}

// NewParser returns a Parser whose sniffer splits on the same delimiter as
// the options.
func NewParser(opts ParserOptions) *Parser {
	return &Parser{Options: opts, Sniffer: NewSniffer(opts)}
}

// ParseFrom parses lines[start:], skipping comment lines that appear between
// data rows. Line numbers in records and errors are 1-based indexes into
// lines. The first parse failure stops the scan. start is clamped to the
// bounds of lines.
func (p *Parser) ParseFrom(lines []string, start int) ([]Record, error) {
	start = max(0, min(start, len(lines)))
	records := make([]Record, 0, len(lines)-start)
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" || p.Sniffer.Classify(line) == KindComment {
			continue
		}
		rec, err := ParseLine(line, i+1, p.Options)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
