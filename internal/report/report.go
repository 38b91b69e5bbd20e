// Package report holds the comparison result tree. Matches carry only copied
// scalars and strings, so reports outlive the disassemblies they were
// computed from.
package report

import "encoding/json"

// MethodMatch pairs one sample function with its best-scoring reference
// function. Similarity is at or above the engine threshold; matches below it
// are never emitted.
type MethodMatch struct {
	OldName       string  `json:"old_name"`
	ResolvedName  string  `json:"resolved_name"`
	MalwareOffset uint64  `json:"malware_offset"`
	CleanOffset   uint64  `json:"clean_offset"`
	Similarity    float64 `json:"similarity"`
}

// BinaryMatch is the rollup of one sample against one reference binary.
// Similarity is the mean of per-sample-function best scores, normalized by
// the sample size; a function whose best score is below the threshold counts
// as zero.
type BinaryMatch struct {
	Source     string        `json:"source"`
	Dest       string        `json:"dest"`
	Similarity float64       `json:"similarity"`
	Methods    []MethodMatch `json:"matches"`
}

// CompareReport is one sample compared against a list of references, ordered
// by descending aggregate similarity.
type CompareReport struct {
	SampleName string        `json:"sample_name"`
	Matches    []BinaryMatch `json:"matches"`
}

// ToJSON encodes the report. Similarities keep full float64 precision.
func (r *CompareReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON decodes a report produced by ToJSON.
func FromJSON(data []byte) (*CompareReport, error) {
	var r CompareReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
