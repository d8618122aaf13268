package version

import "time"

// Candidate is the restricted view of an entity offered as a parent.
type Candidate struct {
	Code          string     `json:"code" yaml:"code"`
	Name          string     `json:"name" yaml:"name"`
	UnitType      string     `json:"unitType" yaml:"unitType"`
	ParentCode    string     `json:"parentCode,omitempty" yaml:"parentCode,omitempty"`
	Level         int        `json:"level" yaml:"level"`
	EffectiveDate time.Time  `json:"effectiveDate" yaml:"effectiveDate"`
	EndDate       *time.Time `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	IsFuture      bool       `json:"isFuture" yaml:"isFuture"`
}

func CandidatesByCode(candidates []Candidate) map[string]Candidate {
	out := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		if c.Code == "" {
			continue
		}
		out[c.Code] = c
	}
	return out
}
