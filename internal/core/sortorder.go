package core

import (
	"sort"

	"github.com/maruel/natural"
)

// CheckSorted verifies that records are grouped by chromosome and that
// positions never decrease inside a chromosome block. Chromosome labels may
// appear in any order; only contiguity matters. Equal positions are allowed.
// The first violation is returned as a *SortOrderError.
//
// Only the records passed in are checked, so for an upload this is a sample
// of the file's leading rows, not a guarantee for the whole file.
func CheckSorted(records []Record) error {
	seen := make(map[string]struct{})
	var (
		lastChrom string
		lastPos   int
		started   bool
	)

	for _, r := range records {
		if !started || r.Chrom != lastChrom {
			if _, dup := seen[r.Chrom]; dup {
				return &SortOrderError{Line: r.Line, Chrom: r.Chrom, Pos: r.Pos, Reappear: true}
			}
			seen[r.Chrom] = struct{}{}
		} else if r.Pos < lastPos {
			return &SortOrderError{Line: r.Line, Chrom: r.Chrom, Pos: r.Pos, PrevPos: lastPos}
		}
		lastChrom, lastPos, started = r.Chrom, r.Pos, true
	}
	return nil
}

// IsSorted reports whether CheckSorted finds no violation.
func IsSorted(records []Record) bool {
	return CheckSorted(records) == nil
}

// Summarize describes a parsed preview. Chromosomes are listed in natural
// order ("2" before "10").
func Summarize(lines []string, dataStart int, records []Record) PreviewSummary {
	seen := make(map[string]struct{})
	chroms := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Chrom]; ok {
			continue
		}
		seen[r.Chrom] = struct{}{}
		chroms = append(chroms, r.Chrom)
	}
	sort.Slice(chroms, func(i, j int) bool { return natural.Less(chroms[i], chroms[j]) })

	headerLines := dataStart
	if headerLines < 0 {
		headerLines = len(lines)
	}
	return PreviewSummary{
		Lines:       len(lines),
		HeaderLines: headerLines,
		DataRows:    len(records),
		Chromosomes: chroms,
	}
}
