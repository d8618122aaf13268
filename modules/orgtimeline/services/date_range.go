package services

import (
	"time"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

// EditableRange is the inclusive window a version's effective date may move
// within. A nil bound is open.
type EditableRange struct {
	MinDate *time.Time `json:"minDate,omitempty" yaml:"minDate,omitempty"`
	MaxDate *time.Time `json:"maxDate,omitempty" yaml:"maxDate,omitempty"`
}

func (r EditableRange) Contains(d time.Time) bool {
	d = version.NormalizeDate(d)
	if r.MinDate != nil && d.Before(*r.MinDate) {
		return false
	}
	if r.MaxDate != nil && d.After(*r.MaxDate) {
		return false
	}
	return true
}

func (r EditableRange) String() string {
	lo, hi := "-inf", "+inf"
	if r.MinDate != nil {
		lo = version.FormatDate(*r.MinDate)
	}
	if r.MaxDate != nil {
		hi = version.FormatDate(*r.MaxDate)
	}
	return "[" + lo + ", " + hi + "]"
}

// ComputeEditableRange bounds target by its live neighbors: one day after the
// previous effective date and one day before the next one. Deactivated
// versions are ignored. A target that is not part of all is unbounded.
func ComputeEditableRange(target version.Version, all []version.Version) EditableRange {
	live := make([]version.Version, 0, len(all))
	for _, v := range all {
		if v.Deactivated && v.RecordID != target.RecordID {
			continue
		}
		live = append(live, v)
	}
	sorted := version.SortAscending(live)

	idx := -1
	for i, v := range sorted {
		if target.RecordID != "" && v.RecordID == target.RecordID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return EditableRange{}
	}

	var out EditableRange
	if idx > 0 {
		lo := version.DayAfter(sorted[idx-1].EffectiveDate)
		out.MinDate = &lo
	}
	if idx < len(sorted)-1 {
		hi := version.DayBefore(sorted[idx+1].EffectiveDate)
		out.MaxDate = &hi
	}
	return out
}

// insertionRange bounds a brand-new version anchored at the version in
// effect on the requested date: strictly after the anchor and strictly
// before the anchor's live successor.
func insertionRange(anchor version.Version, all []version.Version) EditableRange {
	var out EditableRange
	lo := version.DayAfter(anchor.EffectiveDate)
	out.MinDate = &lo
	if r := ComputeEditableRange(anchor, all); r.MaxDate != nil {
		hi := *r.MaxDate
		out.MaxDate = &hi
	}
	return out
}

// effectiveAt returns the live version in effect on d, if any.
func effectiveAt(versions []version.Version, d time.Time) (version.Version, bool) {
	d = version.NormalizeDate(d)
	var (
		best  version.Version
		found bool
	)
	for _, v := range versions {
		if v.Deactivated || v.EffectiveDate.After(d) {
			continue
		}
		if !found || v.EffectiveDate.After(best.EffectiveDate) {
			best = v
			found = true
		}
	}
	return best, found
}

func hasLiveVersionOn(versions []version.Version, d time.Time, skipRecordID string) bool {
	d = version.NormalizeDate(d)
	for _, v := range versions {
		if v.Deactivated || v.RecordID == skipRecordID {
			continue
		}
		if version.NormalizeDate(v.EffectiveDate).Equal(d) {
			return true
		}
	}
	return false
}
