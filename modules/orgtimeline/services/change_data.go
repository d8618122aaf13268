package services

import (
	"strings"

	"github.com/wI2L/jsondiff"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

type changeFields struct {
	Name        string `json:"name"`
	UnitType    string `json:"unitType"`
	ParentCode  string `json:"parentCode"`
	Description string `json:"description"`
}

// BuildChangeData returns the draft fields that differ from anchor, keyed by
// their wire name. Nil means nothing changed.
func BuildChangeData(anchor version.Version, draft VersionDraft) (map[string]any, error) {
	before := changeFields{
		Name:        anchor.Name,
		UnitType:    anchor.UnitType,
		ParentCode:  anchor.ParentCode,
		Description: anchor.Description,
	}
	after := changeFields{
		Name:        strings.TrimSpace(draft.Name),
		UnitType:    strings.TrimSpace(draft.UnitType),
		ParentCode:  strings.TrimSpace(draft.ParentCode),
		Description: draft.Description,
	}

	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(patch))
	for _, op := range patch {
		switch string(op.Type) {
		case "replace", "add":
			out[pointerField(string(op.Path))] = op.Value
		case "remove":
			out[pointerField(string(op.Path))] = nil
		}
	}
	return out, nil
}

func pointerField(path string) string {
	path = strings.TrimPrefix(path, "/")
	path = strings.ReplaceAll(path, "~1", "/")
	return strings.ReplaceAll(path, "~0", "~")
}
