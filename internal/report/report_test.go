package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *CompareReport {
	return &CompareReport{
		SampleName: "sample.exe",
		Matches: []BinaryMatch{
			{
				Source:     "sample.exe",
				Dest:       "libgo1.so",
				Similarity: 0.912345,
				Methods: []MethodMatch{
					{OldName: "sub_401000", ResolvedName: "main.init", MalwareOffset: 0x401000, CleanOffset: 0x1000, Similarity: 0.998877},
					{OldName: "sub_401200", ResolvedName: "main.run", MalwareOffset: 0x401200, CleanOffset: 0x1200, Similarity: 0.87},
					{OldName: "sub_401400", ResolvedName: "fmt.Errorf", MalwareOffset: 0x401400, CleanOffset: 0x1400, Similarity: 0.75},
				},
			},
			{
				Source:     "sample.exe",
				Dest:       "libgo2.so",
				Similarity: 0.5,
				Methods: []MethodMatch{
					{OldName: "sub_401000", ResolvedName: "runtime.rt0_go", MalwareOffset: 0x401000, CleanOffset: 0x2000, Similarity: 0.6},
					{OldName: "sub_401200", ResolvedName: "runtime.main", MalwareOffset: 0x401200, CleanOffset: 0x2200, Similarity: 0.55},
					{OldName: "sub_401400", ResolvedName: "runtime.schedule", MalwareOffset: 0x401400, CleanOffset: 0x2400, Similarity: 0.35},
				},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	r := sampleReport()
	data, err := r.ToJSON()
	require.NoError(t, err)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestFieldNames(t *testing.T) {
	data, err := sampleReport().ToJSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "sample_name")
	assert.Contains(t, raw, "matches")

	bm := raw["matches"].([]any)[0].(map[string]any)
	for _, key := range []string{"source", "dest", "similarity", "matches"} {
		assert.Contains(t, bm, key)
	}
	mm := bm["matches"].([]any)[0].(map[string]any)
	for _, key := range []string{"old_name", "resolved_name", "malware_offset", "clean_offset", "similarity"} {
		assert.Contains(t, mm, key)
	}
}

func TestSimilarityPrecision(t *testing.T) {
	r := &CompareReport{
		SampleName: "s",
		Matches: []BinaryMatch{
			{Source: "s", Dest: "d", Similarity: 0.123456789},
		},
	}
	data, err := r.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "0.123456789")
}

func TestFromJSON_Malformed(t *testing.T) {
	_, err := FromJSON([]byte("{nope"))
	assert.Error(t, err)
}
