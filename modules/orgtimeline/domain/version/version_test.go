package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestParseDate_AcceptsDateAndRFC3339(t *testing.T) {
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), day(t, "2025-01-01"))
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), day(t, "2025-01-01T15:04:05Z"))

	_, err := ParseDate("01/01/2025")
	require.Error(t, err)
	_, err = ParseDate(" ")
	require.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("active")
	require.NoError(t, err)
	require.Equal(t, StatusActive, s)

	_, err = ParseStatus("DELETED")
	require.Error(t, err)
}

func TestDeriveLifecycle(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, LifecycleCurrent, DeriveLifecycle(Version{IsCurrent: true, EffectiveDate: day(t, "2025-01-01")}, today))
	require.Equal(t, LifecyclePlanned, DeriveLifecycle(Version{EffectiveDate: day(t, "2025-07-01")}, today))
	require.Equal(t, LifecycleHistorical, DeriveLifecycle(Version{EffectiveDate: day(t, "2024-07-01")}, today))
}

func TestNormalize_KeepsSingleServerCurrentFlag(t *testing.T) {
	today := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	out := Normalize([]Version{
		{RecordID: "r1", EffectiveDate: day(t, "2024-01-01")},
		{RecordID: "r3", EffectiveDate: day(t, "2026-01-01")},
		{RecordID: "r2", EffectiveDate: day(t, "2025-06-01"), IsCurrent: true},
	}, today)

	require.Equal(t, []string{"r3", "r2", "r1"}, recordIDs(out))
	require.True(t, out[1].IsCurrent)
	require.False(t, out[0].IsCurrent)
	require.Equal(t, LifecycleCurrent, out[1].LifecycleStatus)
	require.Equal(t, LifecycleHistorical, out[0].LifecycleStatus)
}

func TestNormalize_DerivesCurrentWhenFlagMissingOrAmbiguous(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	out := Normalize([]Version{
		{RecordID: "r1", EffectiveDate: day(t, "2024-01-01"), IsCurrent: true},
		{RecordID: "r2", EffectiveDate: day(t, "2025-01-01"), IsCurrent: true},
		{RecordID: "r3", EffectiveDate: day(t, "2025-06-01"), Deactivated: true},
		{RecordID: "r4", EffectiveDate: day(t, "2026-01-01")},
	}, today)

	current := 0
	for _, v := range out {
		if v.IsCurrent {
			current++
			require.Equal(t, "r2", v.RecordID)
		}
	}
	require.Equal(t, 1, current)

	planned, ok := FindByRecordID(out, "r4")
	require.True(t, ok)
	require.Equal(t, LifecyclePlanned, planned.LifecycleStatus)
}

func TestNormalize_OnlyFutureVersionsHaveNoCurrent(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	out := Normalize([]Version{
		{RecordID: "r1", EffectiveDate: day(t, "2026-01-01")},
	}, today)
	require.False(t, out[0].IsCurrent)
	require.Equal(t, LifecyclePlanned, out[0].LifecycleStatus)
}

func TestSelectDefault(t *testing.T) {
	versions := []Version{
		{RecordID: "planned", EffectiveDate: day(t, "2026-01-01")},
		{RecordID: "current", EffectiveDate: day(t, "2025-06-01"), IsCurrent: true},
		{RecordID: "historical", EffectiveDate: day(t, "2024-01-01")},
	}

	v, ok := SelectDefault(versions, "")
	require.True(t, ok)
	require.Equal(t, "current", v.RecordID)
	require.Equal(t, day(t, "2025-06-01"), v.EffectiveDate)

	v, ok = SelectDefault(versions, "historical")
	require.True(t, ok)
	require.Equal(t, "historical", v.RecordID)

	v, ok = SelectDefault(versions, "missing")
	require.True(t, ok)
	require.Equal(t, "current", v.RecordID)

	noCurrent := []Version{
		{RecordID: "a", EffectiveDate: day(t, "2024-01-01")},
		{RecordID: "b", EffectiveDate: day(t, "2025-01-01")},
	}
	v, ok = SelectDefault(noCurrent, "")
	require.True(t, ok)
	require.Equal(t, "b", v.RecordID)

	_, ok = SelectDefault(nil, "")
	require.False(t, ok)
}

func TestClone_DetachesEndDate(t *testing.T) {
	end := day(t, "2025-12-31")
	v := Version{EndDate: &end}
	c := v.Clone()
	*c.EndDate = day(t, "2026-01-31")
	require.Equal(t, day(t, "2025-12-31"), *v.EndDate)
}

func TestCandidatesByCode_SkipsEmptyCodes(t *testing.T) {
	m := CandidatesByCode([]Candidate{{Code: "A"}, {Code: ""}, {Code: "B", ParentCode: "A"}})
	require.Len(t, m, 2)
	require.Equal(t, "A", m["B"].ParentCode)
}

func recordIDs(versions []Version) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.RecordID)
	}
	return out
}
