// Package coverage models per-job coverage fragments and their merge into
// a single combined report. Fragments are write-once per job; merging is a
// union of measured lines, performed only by the aggregator once every
// source job has succeeded.
package coverage

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Fragment is the coverage output of one job: measured line numbers per
// file.
type Fragment struct {
	Files map[string][]int `json:"files"`
}

// ParseFragment decodes a raw fragment blob.
func ParseFragment(data []byte) (*Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("coverage fragment: %w", err)
	}
	if f.Files == nil {
		return nil, fmt.Errorf("coverage fragment: missing files map")
	}
	return &f, nil
}

// Report is the combined coverage produced by merging fragments.
type Report struct {
	Files      map[string][]int `json:"files"`
	TotalFiles int              `json:"total_files"`
	TotalLines int              `json:"total_lines"`
}

// Merge unions the given fragments into one report. Line numbers are
// deduplicated per file and sorted.
func Merge(fragments []*Fragment) *Report {
	merged := make(map[string]map[int]struct{})
	for _, f := range fragments {
		for file, lines := range f.Files {
			set, ok := merged[file]
			if !ok {
				set = make(map[int]struct{})
				merged[file] = set
			}
			for _, ln := range lines {
				set[ln] = struct{}{}
			}
		}
	}

	report := &Report{Files: make(map[string][]int, len(merged))}
	for file, set := range merged {
		lines := make([]int, 0, len(set))
		for ln := range set {
			lines = append(lines, ln)
		}
		sort.Ints(lines)
		report.Files[file] = lines
		report.TotalLines += len(lines)
	}
	report.TotalFiles = len(report.Files)
	return report
}

// Encode renders the report as its canonical JSON artifact form.
func (r *Report) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
