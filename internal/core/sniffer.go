package core

// sniffer.go separates header and comment lines from data lines in a preview.
//
// A line is a comment when it starts with the comment marker. It is a header
// when none of its fields parse as a number and none is a missing-value token;
// a descriptive label row passes, while a data row whose numeric cells are all
// "NA" or "." does not.

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// MissingValues are the literal tokens that stand for an absent value.
var MissingValues = []string{"", ".", "NA", "N/A", "n/a", "nan", "-nan", "NaN", "-NaN", "null", "NULL"}

var missingSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(MissingValues))
	for _, v := range MissingValues {
		m[v] = struct{}{}
	}
	return m
}()

// IsMissing reports whether s is a missing-value token.
func IsMissing(s string) bool {
	_, ok := missingSet[s]
	return ok
}

// LineKind is the classification of a preview line.
type LineKind int

const (
	KindData LineKind = iota
	KindComment
	KindHeader
)

func (k LineKind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindHeader:
		return "header"
	default:
		return "data"
	}
}

// Sniffer classifies preview lines. The zero value uses a tab delimiter and
// "#" as the comment marker.
type Sniffer struct {
	Delimiter string
	Comment   string
}

// NewSniffer returns a Sniffer splitting on the delimiter from opts.
func NewSniffer(opts ParserOptions) Sniffer {
	return Sniffer{Delimiter: opts.Delim(), Comment: "#"}
}

func (s Sniffer) delim() string {
	if s.Delimiter == "" {
		return DefaultDelimiter
	}
	return s.Delimiter
}

func (s Sniffer) comment() string {
	if s.Comment == "" {
		return "#"
	}
	return s.Comment
}

// Fields splits a line the way the sniffer sees it.
func (s Sniffer) Fields(line string) []string {
	return strings.Split(strings.TrimSpace(line), s.delim())
}

// Classify returns the kind of a single line.
func (s Sniffer) Classify(line string) LineKind {
	fields := s.Fields(line)
	if strings.HasPrefix(fields[0], s.comment()) {
		return KindComment
	}
	for _, f := range fields {
		if isNumeric(f) || IsMissing(f) {
			return KindData
		}
	}
	return KindHeader
}

// IsHeaderOrComment reports whether line comes before the data.
func (s Sniffer) IsHeaderOrComment(line string) bool {
	return s.Classify(line) != KindData
}

// LocateDataStart returns the index of the first data line. When every line
// is a header or comment, ok is false.
func (s Sniffer) LocateDataStart(lines []string) (idx int, ok bool) {
	for i, line := range lines {
		if !s.IsHeaderOrComment(line) {
			return i, true
		}
	}
	return -1, false
}

// HeaderLine returns the last header or comment line before the data start.
// ok is false when the preview has no data line or the data starts at the
// very first line.
func (s Sniffer) HeaderLine(lines []string) (string, bool) {
	idx, ok := s.LocateDataStart(lines)
	if !ok || idx == 0 {
		return "", false
	}
	return lines[idx-1], true
}

// HeaderFields returns the column labels from HeaderLine with a leading
// comment marker removed from the first label.
func (s Sniffer) HeaderFields(lines []string) []string {
	line, ok := s.HeaderLine(lines)
	if !ok {
		return nil
	}
	fields := s.Fields(line)
	fields[0] = strings.TrimPrefix(fields[0], s.comment())
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// isNumeric reports whether s parses as a number. Out-of-range values still
// count; spellings of NaN do not, they are missing-value tokens.
func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return false
	}
	return !math.IsNaN(f)
}

// Column label aliases used to suggest a mapping from a header row.
var (
	chromAliases  = []string{"chrom", "chr", "chromosome", "chr_name", "chrom_name"}
	posAliases    = []string{"pos", "position", "bp", "begin", "beg", "base_pair_location", "pos_b37", "pos_b38"}
	refAliases    = []string{"ref", "reference", "allele0", "other_allele", "non_effect_allele", "nea"}
	altAliases    = []string{"alt", "alternate", "allele1", "effect_allele", "ea"}
	pvalAliases   = []string{"pvalue", "p", "pval", "p_value", "p.value", "p-value", "pvalue_nominal"}
	logpAliases   = []string{"neg_log_pvalue", "log_pvalue", "neglog10_pval", "neglog10p", "mlog10p", "mlogp", "log10p"}
	betaAliases   = []string{"beta", "effect", "effect_size", "b"}
	stderrAliases = []string{"se", "stderr", "stderr_beta", "sebeta", "standard_error"}
	freqAliases   = []string{"af", "eaf", "alt_allele_freq", "allele_freq", "freq", "a1freq", "af_alt"}
)

// GuessOptions suggests a column mapping from header labels. ok is true when
// chromosome, position and p-value columns were all recognized.
func GuessOptions(labels []string) (ParserOptions, bool) {
	opts := ParserOptions{Delimiter: DefaultDelimiter}
	taken := make(map[int]bool)

	find := func(aliases []string) int {
		for i, l := range labels {
			norm := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(l, "#")))
			if taken[i] {
				continue
			}
			for _, a := range aliases {
				if norm == a {
					taken[i] = true
					return i + 1
				}
			}
		}
		return 0
	}

	opts.ChromCol = find(chromAliases)
	opts.PosCol = find(posAliases)
	opts.RefCol = find(refAliases)
	opts.AltCol = find(altAliases)
	if col := find(pvalAliases); col > 0 {
		opts.PValueCol = col
	} else if col := find(logpAliases); col > 0 {
		opts.PValueCol = col
		opts.IsNegLogPValue = true
	}
	opts.BetaCol = find(betaAliases)
	opts.StdErrBetaCol = find(stderrAliases)
	opts.AlleleFreqCol = find(freqAliases)
	opts.IsAltEffect = opts.BetaCol > 0 && opts.AltCol > 0

	return opts, opts.ChromCol > 0 && opts.PosCol > 0 && opts.PValueCol > 0
}

// SuggestDelimiter guesses the field delimiter of the preview lines, falling
// back to a tab when nothing consistent is found.
func SuggestDelimiter(lines []string) string {
	if len(lines) == 0 {
		return DefaultDelimiter
	}
	d := detector.New()
	found := d.DetectDelimiter(strings.NewReader(strings.Join(lines, "\n")), '"')
	for _, c := range found {
		if c == "\t" {
			return c
		}
	}
	if len(found) > 0 && found[0] != "" {
		return found[0]
	}
	return DefaultDelimiter
}
