package version

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusPlanned  Status = "PLANNED"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusActive, StatusInactive, StatusPlanned:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

type LifecycleStatus string

const (
	LifecycleCurrent    LifecycleStatus = "CURRENT"
	LifecycleHistorical LifecycleStatus = "HISTORICAL"
	LifecyclePlanned    LifecycleStatus = "PLANNED"
)

// Version is one effective-dated snapshot of an org entity.
type Version struct {
	RecordID      string     `json:"recordId" yaml:"recordId"`
	Code          string     `json:"code" yaml:"code"`
	Name          string     `json:"name" yaml:"name"`
	UnitType      string     `json:"unitType" yaml:"unitType"`
	Status        Status     `json:"status" yaml:"status"`
	ParentCode    string     `json:"parentCode,omitempty" yaml:"parentCode,omitempty"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Level         int        `json:"level" yaml:"level"`
	Path          string     `json:"path,omitempty" yaml:"path,omitempty"`
	EffectiveDate time.Time  `json:"effectiveDate" yaml:"effectiveDate"`
	EndDate       *time.Time `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Deactivated   bool       `json:"isDeactivated,omitempty" yaml:"isDeactivated,omitempty"`

	IsCurrent       bool            `json:"isCurrent" yaml:"isCurrent"`
	LifecycleStatus LifecycleStatus `json:"lifecycleStatus" yaml:"lifecycleStatus"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a copy that shares no pointers with v.
func (v Version) Clone() Version {
	out := v
	if v.EndDate != nil {
		end := *v.EndDate
		out.EndDate = &end
	}
	return out
}

func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing date value")
	}
	if t, err := time.ParseInLocation(DateLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return NormalizeDate(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", raw)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return NormalizeDate(t).Format(DateLayout)
}

// NormalizeDate truncates t to its UTC calendar day.
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	y, m, d := u.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func DayBefore(t time.Time) time.Time {
	return NormalizeDate(t).AddDate(0, 0, -1)
}

func DayAfter(t time.Time) time.Time {
	return NormalizeDate(t).AddDate(0, 0, 1)
}

func FirstOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SortAscending orders a copy of versions by effective date, oldest first.
func SortAscending(versions []Version) []Version {
	out := make([]Version, len(versions))
	copy(out, versions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out
}

// SortDescending orders a copy of versions by effective date, most recent first.
func SortDescending(versions []Version) []Version {
	out := make([]Version, len(versions))
	copy(out, versions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.After(out[j].EffectiveDate)
	})
	return out
}

func DeriveLifecycle(v Version, today time.Time) LifecycleStatus {
	if v.IsCurrent {
		return LifecycleCurrent
	}
	if NormalizeDate(v.EffectiveDate).After(NormalizeDate(today)) {
		return LifecyclePlanned
	}
	return LifecycleHistorical
}

// Normalize returns the timeline sorted most recent first with exactly one
// current version (or none when every live version is in the future) and
// lifecycle statuses derived for "today". A server-provided current flag is
// kept when exactly one live version carries it.
func Normalize(versions []Version, today time.Time) []Version {
	out := SortDescending(versions)
	today = NormalizeDate(today)

	flagged := -1
	flaggedCount := 0
	for i := range out {
		out[i].EffectiveDate = NormalizeDate(out[i].EffectiveDate)
		if out[i].IsCurrent && !out[i].Deactivated {
			flagged = i
			flaggedCount++
		}
	}

	current := flagged
	if flaggedCount != 1 {
		current = -1
		for i := range out {
			if out[i].Deactivated || out[i].EffectiveDate.After(today) {
				continue
			}
			current = i
			break
		}
	}

	for i := range out {
		out[i].IsCurrent = i == current
		out[i].LifecycleStatus = DeriveLifecycle(out[i], today)
	}
	return out
}

func FindByRecordID(versions []Version, recordID string) (Version, bool) {
	if recordID == "" {
		return Version{}, false
	}
	for _, v := range versions {
		if v.RecordID == recordID {
			return v, true
		}
	}
	return Version{}, false
}

// SelectDefault picks the focus version: the requested record when present,
// else the current version, else the most recent one.
func SelectDefault(versions []Version, recordID string) (Version, bool) {
	if len(versions) == 0 {
		return Version{}, false
	}
	if v, ok := FindByRecordID(versions, recordID); ok {
		return v, true
	}
	for _, v := range versions {
		if v.IsCurrent {
			return v, true
		}
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v.EffectiveDate.After(latest.EffectiveDate) {
			latest = v
		}
	}
	return latest, true
}
