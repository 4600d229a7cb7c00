package core

import (
	"errors"
	"testing"
)

func recs(pairs ...any) []Record {
	out := make([]Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Record{Line: i/2 + 1, Chrom: pairs[i].(string), Pos: pairs[i+1].(int)})
	}
	return out
}

func TestIsSorted(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    bool
	}{
		{"ties and a new chromosome", recs("chr1", 100, "chr1", 100, "chr1", 200, "chr2", 50), true},
		{"chromosome reappears", recs("chr1", 100, "chr2", 50, "chr1", 10), false},
		{"position decreases", recs("chr1", 200, "chr1", 100), false},
		{"label order not required", recs("2", 5, "10", 1, "1", 9), true},
		{"position resets on new chromosome", recs("1", 900, "2", 1), true},
		{"empty", nil, true},
		{"single record", recs("X", 0), true},
		{"reappears after several", recs("1", 1, "2", 1, "3", 1, "2", 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSorted(tt.records); got != tt.want {
				t.Errorf("IsSorted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckSorted_FirstViolation(t *testing.T) {
	err := CheckSorted(recs("chr1", 100, "chr2", 50, "chr1", 10, "chr1", 5))
	var se *SortOrderError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SortOrderError", err)
	}
	if !se.Reappear || se.Chrom != "chr1" || se.Line != 3 {
		t.Errorf("violation = %+v", se)
	}

	err = CheckSorted(recs("chr1", 100, "chr1", 300, "chr1", 200))
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SortOrderError", err)
	}
	if se.Reappear || se.Pos != 200 || se.PrevPos != 300 || se.Line != 3 {
		t.Errorf("violation = %+v", se)
	}
}

func TestSummarize(t *testing.T) {
	lines := []string{"#h", "a", "b", "c"}
	s := Summarize(lines, 1, recs("10", 1, "2", 1, "X", 1, "2", 4))
	want := []string{"2", "10", "X"}
	if len(s.Chromosomes) != len(want) {
		t.Fatalf("Chromosomes = %q, want %q", s.Chromosomes, want)
	}
	for i := range want {
		if s.Chromosomes[i] != want[i] {
			t.Errorf("Chromosomes = %q, want %q", s.Chromosomes, want)
			break
		}
	}
	if s.Lines != 4 || s.HeaderLines != 1 || s.DataRows != 4 {
		t.Errorf("summary = %+v", s)
	}
}
