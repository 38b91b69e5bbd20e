package grapher

import (
	"os"

	"gopkg.in/yaml.v3"

	"gographer/internal/similarity"
)

// LoadTuning reads similarity tuning constants from a YAML file. Absent keys
// keep their defaults, so a file may override a single constant:
//
//	alpha: 0.5
//	fingerprint_slack: 2
//	exact_budget: 16384
func LoadTuning(path string) (similarity.Params, error) {
	p := similarity.DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, &InvalidArgumentError{Field: "tuning", Reason: err.Error()}
	}
	if p.Alpha < 0 || p.Alpha > 1 {
		return p, &InvalidArgumentError{Field: "tuning", Reason: "alpha outside [0,1]"}
	}
	if p.FingerprintSlack < 0 {
		return p, &InvalidArgumentError{Field: "tuning", Reason: "negative fingerprint_slack"}
	}
	if p.ExactBudget < 1 {
		return p, &InvalidArgumentError{Field: "tuning", Reason: "exact_budget below 1"}
	}
	return p, nil
}
