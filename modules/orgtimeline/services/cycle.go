package services

import (
	"strings"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

type CycleResult struct {
	HasCycle bool     `json:"hasCycle" yaml:"hasCycle"`
	Path     []string `json:"cyclePath,omitempty" yaml:"cyclePath,omitempty"`
}

func (r CycleResult) PathString() string {
	return strings.Join(r.Path, " -> ")
}

// DetectCycle reports whether making parent the parent of self would close a
// loop through candidates. Unknown ancestors end the walk without a cycle, so
// the answer is only as complete as the candidate set.
func DetectCycle(self, parent string, candidates map[string]version.Candidate) CycleResult {
	if parent == "" {
		return CycleResult{}
	}
	if parent == self {
		return CycleResult{HasCycle: true, Path: []string{self, self}}
	}

	path := []string{self, parent}
	visited := map[string]struct{}{parent: {}}
	current := parent
	for steps := 0; steps <= len(candidates); steps++ {
		c, ok := candidates[current]
		if !ok || c.ParentCode == "" {
			return CycleResult{}
		}
		next := c.ParentCode
		path = append(path, next)
		if next == self {
			return CycleResult{HasCycle: true, Path: path}
		}
		if _, seen := visited[next]; seen {
			return CycleResult{HasCycle: true, Path: path}
		}
		visited[next] = struct{}{}
		current = next
	}
	return CycleResult{HasCycle: true, Path: path}
}
