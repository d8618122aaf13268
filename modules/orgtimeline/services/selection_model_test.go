package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/events"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

var selectionNow = time.Date(2025, 9, 17, 10, 30, 0, 0, time.UTC)

func loadedState(t *testing.T) SelectionState {
	t.Helper()
	end := mustDate(t, "2025-12-31")
	tl := &Timeline{
		EntityCode:       "X",
		ConcurrencyToken: `"v1"`,
		Versions: version.Normalize([]version.Version{
			{RecordID: "r1", Code: "X", Name: "Ops", UnitType: "DEPARTMENT", ParentCode: "1000000", EffectiveDate: mustDate(t, "2024-01-01")},
			{RecordID: "r2", Code: "X", Name: "Operations", UnitType: "DEPARTMENT", ParentCode: "1000000", Description: "core", EffectiveDate: mustDate(t, "2025-06-01"), EndDate: &end, IsCurrent: true},
			{RecordID: "r3", Code: "X", Name: "Operations", UnitType: "DIVISION", EffectiveDate: mustDate(t, "2026-01-01")},
		}, selectionNow),
	}
	return Reduce(SelectionState{}, LoadTimeline{Timeline: tl}, selectionNow)
}

func TestReduce_LoadSelectsCurrent(t *testing.T) {
	s := loadedState(t)
	require.NotNil(t, s.Selected)
	require.Equal(t, "r2", s.Selected.RecordID)
	require.Equal(t, EditModeNone, s.EditMode)
	require.Equal(t, `"v1"`, s.ConcurrencyToken)
	require.Nil(t, s.Notice)
}

func TestReduce_LoadWithFallbackShowsWarning(t *testing.T) {
	s := Reduce(SelectionState{}, LoadTimeline{Timeline: &Timeline{
		EntityCode:      "X",
		Versions:        []version.Version{{RecordID: "s", IsCurrent: true}},
		FallbackMessage: snapshotFallbackMessage,
	}}, selectionNow)
	require.NotNil(t, s.Notice)
	require.Equal(t, NoticeWarning, s.Notice.Kind)
}

func TestReduce_StartInsertSeedsFirstOfMonth(t *testing.T) {
	s := Reduce(loadedState(t), StartInsert{}, selectionNow)
	require.Equal(t, EditModeInsert, s.EditMode)
	require.NotNil(t, s.Draft)
	require.Equal(t, mustDate(t, "2025-09-01"), s.Draft.EffectiveDate)
	require.Equal(t, "Operations", s.Draft.Name)
	require.Equal(t, "1000000", s.Draft.ParentCode)

	r := s.DraftRange()
	require.Equal(t, mustDate(t, "2025-06-02"), *r.MinDate)
	require.Equal(t, mustDate(t, "2025-12-31"), *r.MaxDate)
}

func TestReduce_CancelRestoresSnapshotFieldByField(t *testing.T) {
	s := loadedState(t)
	before := s.Selected.Clone()

	s = Reduce(s, StartEditHistory{}, selectionNow)
	require.Equal(t, EditModeEditHistory, s.EditMode)
	require.Equal(t, DraftFromVersion(before), *s.Draft)

	r := s.DraftRange()
	require.Equal(t, mustDate(t, "2024-01-02"), *r.MinDate)
	require.Equal(t, mustDate(t, "2025-12-31"), *r.MaxDate)

	s.Selected.Name = "scribbled"
	*s.Selected.EndDate = mustDate(t, "2030-01-01")
	s = Reduce(s, UpdateDraft{Draft: VersionDraft{Name: "Renamed", UnitType: "TEAM"}}, selectionNow)
	require.Equal(t, "Renamed", s.Draft.Name)

	s = Reduce(s, Cancel{}, selectionNow)
	require.Equal(t, EditModeNone, s.EditMode)
	require.Nil(t, s.Draft)

	after := *s.Selected
	require.Equal(t, before.RecordID, after.RecordID)
	require.Equal(t, before.Code, after.Code)
	require.Equal(t, before.Name, after.Name)
	require.Equal(t, before.UnitType, after.UnitType)
	require.Equal(t, before.Status, after.Status)
	require.Equal(t, before.ParentCode, after.ParentCode)
	require.Equal(t, before.Description, after.Description)
	require.Equal(t, before.Level, after.Level)
	require.Equal(t, before.Path, after.Path)
	require.Equal(t, before.EffectiveDate, after.EffectiveDate)
	require.Equal(t, *before.EndDate, *after.EndDate)
	require.Equal(t, before.IsCurrent, after.IsCurrent)
	require.Equal(t, before.LifecycleStatus, after.LifecycleStatus)
	require.Equal(t, before, after)
}

func TestReduce_SelectExitsEditMode(t *testing.T) {
	s := Reduce(loadedState(t), StartEditHistory{}, selectionNow)
	s = Reduce(s, Select{RecordID: "r1"}, selectionNow)
	require.Equal(t, EditModeNone, s.EditMode)
	require.Nil(t, s.Draft)
	require.Equal(t, "r1", s.Selected.RecordID)
}

func TestReduce_SubmittingBlocksEditTransitions(t *testing.T) {
	s := Reduce(loadedState(t), StartEditHistory{}, selectionNow)
	s = Reduce(s, SubmitStart{}, selectionNow)
	require.True(t, s.IsSubmitting)

	blocked := Reduce(s, Cancel{}, selectionNow)
	require.Equal(t, EditModeEditHistory, blocked.EditMode)
	blocked = Reduce(s, StartInsert{}, selectionNow)
	require.Equal(t, EditModeEditHistory, blocked.EditMode)
	blocked = Reduce(s, Select{RecordID: "r1"}, selectionNow)
	require.Equal(t, "r2", blocked.Selected.RecordID)
}

func TestReduce_SubmitSuccessPrefersMutatedRecord(t *testing.T) {
	s := Reduce(loadedState(t), StartInsert{}, selectionNow)
	s = Reduce(s, SubmitStart{}, selectionNow)

	versions := append([]version.Version(nil), s.Versions...)
	versions = append(versions, version.Version{RecordID: "r4", Code: "X", EffectiveDate: mustDate(t, "2025-09-01")})
	s = Reduce(s, SubmitSuccess{Result: &MutationResult{
		Operation:        events.OperationInsert,
		EntityCode:       "X",
		RecordID:         "r4",
		Timeline:         &Timeline{EntityCode: "X", Versions: version.Normalize(versions, selectionNow)},
		ConcurrencyToken: `"v2"`,
	}}, selectionNow)

	require.False(t, s.IsSubmitting)
	require.Equal(t, EditModeNone, s.EditMode)
	require.Equal(t, "r4", s.Selected.RecordID)
	require.Len(t, s.Versions, 4)
	require.Equal(t, `"v2"`, s.ConcurrencyToken)
	require.Equal(t, NoticeSuccess, s.Notice.Kind)
	require.True(t, s.Notice.Visible(selectionNow.Add(2*time.Second)))
	require.False(t, s.Notice.Visible(selectionNow.Add(3*time.Second)))
}

func TestReduce_SubmitSuccessWithStaleTimelineKeepsVersions(t *testing.T) {
	s := Reduce(loadedState(t), SubmitStart{}, selectionNow)
	s = Reduce(s, SubmitSuccess{Result: &MutationResult{
		Operation:        events.OperationDeactivate,
		EntityCode:       "X",
		RecordID:         "r3",
		ConcurrencyToken: `"v9"`,
		StaleReason:      "the org service could not be reached, please retry",
	}}, selectionNow)

	require.Len(t, s.Versions, 3)
	require.Equal(t, `"v9"`, s.ConcurrencyToken)
	require.Equal(t, NoticeWarning, s.Notice.Kind)
}

func TestReduce_SubmitFailureKeepsDraftAndOffersSuggestedDate(t *testing.T) {
	s := Reduce(loadedState(t), StartInsert{}, selectionNow)
	s = Reduce(s, SubmitStart{}, selectionNow)

	suggested := mustDate(t, "2025-10-01")
	s = Reduce(s, SubmitFailure{Err: NewParentUnavailableError(400, "parent not active", &suggested)}, selectionNow)
	require.False(t, s.IsSubmitting)
	require.Equal(t, EditModeInsert, s.EditMode)
	require.Equal(t, NoticeError, s.Notice.Kind)
	require.Equal(t, CodeParentUnavailable, s.Notice.Code)
	require.Equal(t, suggested, *s.Notice.SuggestedDate)
	require.True(t, s.Notice.Visible(selectionNow.Add(4*time.Second)))
	require.False(t, s.Notice.Visible(selectionNow.Add(5*time.Second)))

	s = Reduce(s, ApplySuggestedDate{}, selectionNow)
	require.Equal(t, suggested, s.Draft.EffectiveDate)
	require.Nil(t, s.Notice)
}

func TestReduce_StartWithoutSelectionIsNoop(t *testing.T) {
	s := Reduce(SelectionState{}, StartInsert{}, selectionNow)
	require.Equal(t, EditModeNone, s.EditMode)
	require.Nil(t, s.Draft)
}
