package core

import (
	"testing"
)

func TestSniffer_Classify(t *testing.T) {
	s := Sniffer{}
	tests := []struct {
		name string
		line string
		want LineKind
	}{
		{"comment marker", "## generated by plink", KindComment},
		{"commented header", "#chrom\tpos\tref\talt\tpvalue", KindComment},
		{"plain header", "CHR\tBP\tA1\tA2\tP", KindHeader},
		{"all numeric", "1\t100\t0.5", KindData},
		{"data row with alleles", "1\t100\tA\tG\t0.5", KindData},
		{"missing tokens among numbers", "1\t100\tNA\t.", KindData},
		{"missing token among text", "chr\tpos\tNA", KindData},
		{"empty field among text", "chr\t\tpos", KindData},
		{"single label", "pvalue", KindHeader},
		{"scientific notation", "X\t5e6\tA", KindData},
		{"nan spelling is missing not numeric", "chr\tNaN", KindData},
		{"surrounding whitespace ignored", "  1\t100\t0.2  ", KindData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Classify(tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.line, got, tt.want)
			}
		})
	}
}

func TestSniffer_NumericRowNeverHeader(t *testing.T) {
	s := Sniffer{}
	for _, line := range []string{"1\t2\t3", "NA\t1\t.", "-1.5e-8\t0", "1\tnull\tNULL\t-nan"} {
		if s.IsHeaderOrComment(line) {
			t.Errorf("IsHeaderOrComment(%q) = true", line)
		}
	}
}

func TestSniffer_LocateDataStart(t *testing.T) {
	s := Sniffer{}
	tests := []struct {
		name   string
		lines  []string
		want   int
		wantOK bool
	}{
		{
			name:   "comments then header then data",
			lines:  []string{"## meta", "#chrom\tpos", "1\t100", "1\t200"},
			want:   2,
			wantOK: true,
		},
		{
			name:   "data on the first line",
			lines:  []string{"1\t100", "1\t200"},
			want:   0,
			wantOK: true,
		},
		{
			name:   "only headers",
			lines:  []string{"#chrom\tpos", "CHR\tBP"},
			want:   -1,
			wantOK: false,
		},
		{
			name:   "empty preview",
			lines:  nil,
			want:   -1,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.LocateDataStart(tt.lines)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("LocateDataStart = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
			again, _ := s.LocateDataStart(tt.lines)
			if again != got {
				t.Errorf("second call returned %d, first %d", again, got)
			}
		})
	}
}

func TestSniffer_HeaderLine(t *testing.T) {
	s := Sniffer{}
	lines := []string{"## meta", "#chrom\tpos\tpvalue", "1\t100\t0.1"}

	line, ok := s.HeaderLine(lines)
	if !ok || line != "#chrom\tpos\tpvalue" {
		t.Errorf("HeaderLine = (%q, %v)", line, ok)
	}

	fields := s.HeaderFields(lines)
	if len(fields) != 3 || fields[0] != "chrom" || fields[2] != "pvalue" {
		t.Errorf("HeaderFields = %q", fields)
	}

	if _, ok := s.HeaderLine([]string{"1\t2"}); ok {
		t.Error("HeaderLine should fail when data starts at line 0")
	}
	if _, ok := s.HeaderLine([]string{"#a", "#b"}); ok {
		t.Error("HeaderLine should fail when no data line exists")
	}
}

func TestSniffer_CustomDelimiter(t *testing.T) {
	s := Sniffer{Delimiter: ","}
	if got := s.Classify("chrom,pos,pvalue"); got != KindHeader {
		t.Errorf("Classify = %s, want header", got)
	}
	if got := s.Classify("1,100,0.5"); got != KindData {
		t.Errorf("Classify = %s, want data", got)
	}
	// With the wrong delimiter the whole line is one non-numeric field.
	if got := (Sniffer{}).Classify("1,100,0.5"); got != KindHeader {
		t.Errorf("tab sniffer Classify = %s, want header", got)
	}
}

func TestGuessOptions(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   ParserOptions
		wantOK bool
	}{
		{
			name:   "standard header",
			labels: []string{"chrom", "pos", "ref", "alt", "pvalue"},
			want:   StandardOptions(),
			wantOK: true,
		},
		{
			name:   "plink style with effect columns",
			labels: []string{"CHR", "BP", "SNP", "A1", "A2", "BETA", "SE", "P"},
			want: ParserOptions{
				ChromCol: 1, PosCol: 2, PValueCol: 8, BetaCol: 6, StdErrBetaCol: 7,
				Delimiter: DefaultDelimiter,
			},
			wantOK: true,
		},
		{
			name:   "neg log p-value column",
			labels: []string{"#chr", "position", "neg_log_pvalue"},
			want: ParserOptions{
				ChromCol: 1, PosCol: 2, PValueCol: 3, IsNegLogPValue: true,
				Delimiter: DefaultDelimiter,
			},
			wantOK: true,
		},
		{
			name:   "no p-value",
			labels: []string{"chrom", "pos", "beta"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GuessOptions(tt.labels)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (got %+v)", ok, tt.wantOK, got)
			}
			if tt.wantOK && got != tt.want {
				t.Errorf("GuessOptions = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSuggestDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"tab", []string{"chrom\tpos\tp", "1\t10\t0.1", "1\t20\t0.2"}, "\t"},
		{"comma", []string{"chrom,pos,p", "1,10,0.1", "1,20,0.2"}, ","},
		{"empty", nil, "\t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestDelimiter(tt.lines); got != tt.want {
				t.Errorf("SuggestDelimiter = %q, want %q", got, tt.want)
			}
		})
	}
}
