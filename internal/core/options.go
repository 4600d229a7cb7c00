package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultDelimiter separates fields when ParserOptions does not name one.
const DefaultDelimiter = "\t"

// DefaultExpectedHeader is the header a file must carry when the uploader
// skips the column-mapping step.
var DefaultExpectedHeader = []string{"#chrom", "pos", "ref", "alt", "pvalue"}

// ParserOptions maps delimited columns onto record fields. Column numbers are
// 1-based; zero means the column is absent. The JSON form is what the upload
// form stores in its parser_options field and what ingestion consumes.
type ParserOptions struct {
	ChromCol       int    `json:"chrom_col"`
	PosCol         int    `json:"pos_col"`
	RefCol         int    `json:"ref_col,omitempty"`
	AltCol         int    `json:"alt_col,omitempty"`
	PValueCol      int    `json:"pvalue_col"`
	IsNegLogPValue bool   `json:"is_neg_log_pvalue"`
	BetaCol        int    `json:"beta_col,omitempty"`
	StdErrBetaCol  int    `json:"stderr_beta_col,omitempty"`
	AlleleFreqCol  int    `json:"allele_freq_col,omitempty"`
	IsAltEffect    bool   `json:"is_alt_effect,omitempty"`
	Delimiter      string `json:"delimiter,omitempty"`
}

// StandardOptions returns the mapping for DefaultExpectedHeader.
func StandardOptions() ParserOptions {
	return ParserOptions{
		ChromCol:  1,
		PosCol:    2,
		RefCol:    3,
		AltCol:    4,
		PValueCol: 5,
		Delimiter: DefaultDelimiter,
	}
}

// Delim returns the configured delimiter or the default tab.
func (o ParserOptions) Delim() string {
	if o.Delimiter == "" {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// columns lists every mapped column with its field name, required ones first.
func (o ParserOptions) columns() []struct {
	name string
	col  int
} {
	return []struct {
		name string
		col  int
	}{
		{"chrom_col", o.ChromCol},
		{"pos_col", o.PosCol},
		{"pvalue_col", o.PValueCol},
		{"ref_col", o.RefCol},
		{"alt_col", o.AltCol},
		{"beta_col", o.BetaCol},
		{"stderr_beta_col", o.StdErrBetaCol},
		{"allele_freq_col", o.AlleleFreqCol},
	}
}

// MaxColumn returns the highest column number the options reference.
func (o ParserOptions) MaxColumn() int {
	highest := 0
	for _, c := range o.columns() {
		if c.col > highest {
			highest = c.col
		}
	}
	return highest
}

// Validate checks that required columns are set, no column number is
// negative, and no column is mapped to two fields. All problems are reported
// together, wrapped in ErrInvalidOptions.
func (o ParserOptions) Validate() error {
	var errs []string

	if o.ChromCol <= 0 {
		errs = append(errs, "chrom_col is required")
	}
	if o.PosCol <= 0 {
		errs = append(errs, "pos_col is required")
	}
	if o.PValueCol <= 0 {
		errs = append(errs, "pvalue_col is required")
	}

	used := make(map[int]string)
	for _, c := range o.columns() {
		if c.col < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative", c.name))
			continue
		}
		if c.col == 0 {
			continue
		}
		if prev, ok := used[c.col]; ok {
			errs = append(errs, fmt.Sprintf("%s and %s both use column %d", prev, c.name, c.col))
			continue
		}
		used[c.col] = c.name
	}

	if strings.ContainsAny(o.Delimiter, "\r\n") {
		errs = append(errs, "delimiter must not contain line breaks")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(errs, "; "))
	}
	return nil
}

// Serialize returns the JSON written into the upload form's companion field.
func (o ParserOptions) Serialize() (json.RawMessage, error) {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	return json.Marshal(o)
}

// UnmarshalJSON accepts the current field names and the older chr_col,
// pval_col and is_log_pval spellings.
func (o *ParserOptions) UnmarshalJSON(data []byte) error {
	type plain ParserOptions
	var aux struct {
		plain
		ChrCol    *int  `json:"chr_col"`
		PvalCol   *int  `json:"pval_col"`
		IsLogPval *bool `json:"is_log_pval"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*o = ParserOptions(aux.plain)
	if o.ChromCol == 0 && aux.ChrCol != nil {
		o.ChromCol = *aux.ChrCol
	}
	if o.PValueCol == 0 && aux.PvalCol != nil {
		o.PValueCol = *aux.PvalCol
	}
	if !o.IsNegLogPValue && aux.IsLogPval != nil {
		o.IsNegLogPValue = *aux.IsLogPval
	}
	return nil
}
