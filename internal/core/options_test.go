package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParserOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    ParserOptions
		wantErr string
	}{
		{name: "standard", opts: StandardOptions()},
		{name: "minimal", opts: ParserOptions{ChromCol: 1, PosCol: 2, PValueCol: 3}},
		{name: "missing pvalue", opts: ParserOptions{ChromCol: 1, PosCol: 2}, wantErr: "pvalue_col is required"},
		{name: "duplicate column", opts: ParserOptions{ChromCol: 1, PosCol: 1, PValueCol: 3}, wantErr: "both use column 1"},
		{name: "negative column", opts: ParserOptions{ChromCol: 1, PosCol: 2, PValueCol: 3, BetaCol: -1}, wantErr: "beta_col must not be negative"},
		{name: "newline delimiter", opts: ParserOptions{ChromCol: 1, PosCol: 2, PValueCol: 3, Delimiter: "\n"}, wantErr: "line breaks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("err = %v, want ErrInvalidOptions", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParserOptions_Serialize(t *testing.T) {
	raw, err := ParserOptions{ChromCol: 1, PosCol: 2, PValueCol: 3}.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["chrom_col"] != float64(1) || m["pvalue_col"] != float64(3) || m["delimiter"] != "\t" {
		t.Errorf("serialized = %s", raw)
	}
	if _, ok := m["is_neg_log_pvalue"]; !ok {
		t.Errorf("is_neg_log_pvalue should always be present: %s", raw)
	}
	if _, ok := m["beta_col"]; ok {
		t.Errorf("unset optional column serialized: %s", raw)
	}
}

func TestParserOptions_LegacyFieldNames(t *testing.T) {
	var opts ParserOptions
	if err := json.Unmarshal([]byte(`{"chr_col": 2, "pos_col": 3, "pval_col": 9, "is_log_pval": true}`), &opts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if opts.ChromCol != 2 || opts.PosCol != 3 || opts.PValueCol != 9 || !opts.IsNegLogPValue {
		t.Errorf("opts = %+v", opts)
	}

	if err := json.Unmarshal([]byte(`{"chrom_col": 1, "chr_col": 7, "pos_col": 2, "pvalue_col": 3}`), &opts); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if opts.ChromCol != 1 {
		t.Errorf("current name should win, ChromCol = %d", opts.ChromCol)
	}
}

func TestParserOptions_MaxColumn(t *testing.T) {
	opts := ParserOptions{ChromCol: 1, PosCol: 3, PValueCol: 11, BetaCol: 9}
	if got := opts.MaxColumn(); got != 11 {
		t.Errorf("MaxColumn = %d, want 11", got)
	}
}
