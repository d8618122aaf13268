package services

import (
	"errors"
	"time"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/events"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

type EditMode string

const (
	EditModeNone        EditMode = "none"
	EditModeInsert      EditMode = "insert"
	EditModeEditHistory EditMode = "editHistory"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

const (
	successNoticeTTL = 3 * time.Second
	errorNoticeTTL   = 5 * time.Second
)

// Notice is a transient banner. It stays visible until DismissAfter has
// elapsed since ShownAt.
type Notice struct {
	Kind          NoticeKind    `json:"kind" yaml:"kind"`
	Message       string        `json:"message" yaml:"message"`
	Code          string        `json:"code,omitempty" yaml:"code,omitempty"`
	SuggestedDate *time.Time    `json:"suggestedDate,omitempty" yaml:"suggestedDate,omitempty"`
	ShownAt       time.Time     `json:"shownAt" yaml:"shownAt"`
	DismissAfter  time.Duration `json:"dismissAfter" yaml:"dismissAfter"`
}

func (n *Notice) Visible(now time.Time) bool {
	return n != nil && now.Before(n.ShownAt.Add(n.DismissAfter))
}

type SelectionState struct {
	EntityCode       string            `json:"entityCode" yaml:"entityCode"`
	Versions         []version.Version `json:"versions" yaml:"versions"`
	Selected         *version.Version  `json:"selected,omitempty" yaml:"selected,omitempty"`
	EditMode         EditMode          `json:"editMode" yaml:"editMode"`
	Draft            *VersionDraft     `json:"draft,omitempty" yaml:"draft,omitempty"`
	ConcurrencyToken string            `json:"concurrencyToken,omitempty" yaml:"concurrencyToken,omitempty"`
	IsSubmitting     bool              `json:"isSubmitting" yaml:"isSubmitting"`
	Notice           *Notice           `json:"notice,omitempty" yaml:"notice,omitempty"`

	snapshot *version.Version
}

// Editing reports whether a draft is open.
func (s SelectionState) Editing() bool {
	return s.EditMode == EditModeInsert || s.EditMode == EditModeEditHistory
}

// DraftRange is the window the draft's effective date must fall in.
func (s SelectionState) DraftRange() EditableRange {
	switch s.EditMode {
	case EditModeEditHistory:
		if s.snapshot != nil {
			return ComputeEditableRange(*s.snapshot, s.Versions)
		}
	case EditModeInsert:
		if s.Draft != nil {
			if _, r, err := insertionAnchor(s.Versions, s.Draft.EffectiveDate); err == nil {
				return r
			}
		}
	}
	return EditableRange{}
}

type Action interface {
	isSelectionAction()
}

type (
	// LoadTimeline replaces the state with a freshly loaded timeline.
	LoadTimeline struct {
		Timeline *Timeline
		RecordID string
	}
	Select struct {
		RecordID string
	}
	StartInsert      struct{}
	StartEditHistory struct{}
	Cancel           struct{}
	UpdateDraft      struct {
		Draft VersionDraft
	}
	ApplySuggestedDate struct{}
	SubmitStart        struct{}
	SubmitSuccess      struct {
		Result *MutationResult
	}
	SubmitFailure struct {
		Err error
	}
	DismissNotice struct{}
)

func (LoadTimeline) isSelectionAction()       {}
func (Select) isSelectionAction()             {}
func (StartInsert) isSelectionAction()        {}
func (StartEditHistory) isSelectionAction()   {}
func (Cancel) isSelectionAction()             {}
func (UpdateDraft) isSelectionAction()        {}
func (ApplySuggestedDate) isSelectionAction() {}
func (SubmitStart) isSelectionAction()        {}
func (SubmitSuccess) isSelectionAction()      {}
func (SubmitFailure) isSelectionAction()      {}
func (DismissNotice) isSelectionAction()      {}

// Reduce applies action to state and returns the next state. It performs no
// I/O; now stamps notices and seeds insert drafts.
func Reduce(state SelectionState, action Action, now time.Time) SelectionState {
	next := state
	if next.EditMode == "" {
		next.EditMode = EditModeNone
	}

	switch a := action.(type) {
	case LoadTimeline:
		if a.Timeline == nil {
			return next
		}
		next = SelectionState{
			EntityCode:       a.Timeline.EntityCode,
			Versions:         a.Timeline.Versions,
			EditMode:         EditModeNone,
			ConcurrencyToken: a.Timeline.ConcurrencyToken,
		}
		next.Selected = selectVersion(next.Versions, a.RecordID)
		if a.Timeline.FallbackMessage != "" {
			next.Notice = newNotice(NoticeWarning, a.Timeline.FallbackMessage, now)
		}

	case Select:
		if next.IsSubmitting {
			return next
		}
		if v, ok := version.FindByRecordID(next.Versions, a.RecordID); ok {
			next.Selected = &v
		}
		next = exitEditMode(next)

	case StartInsert:
		if next.IsSubmitting || next.Selected == nil {
			return next
		}
		next = exitEditMode(next)
		draft := DraftFromVersion(*next.Selected)
		draft.EffectiveDate = version.FirstOfMonth(now)
		snap := next.Selected.Clone()
		next.snapshot = &snap
		next.Draft = &draft
		next.EditMode = EditModeInsert

	case StartEditHistory:
		if next.IsSubmitting || next.Selected == nil {
			return next
		}
		next = exitEditMode(next)
		draft := DraftFromVersion(*next.Selected)
		snap := next.Selected.Clone()
		next.snapshot = &snap
		next.Draft = &draft
		next.EditMode = EditModeEditHistory

	case Cancel:
		if next.IsSubmitting {
			return next
		}
		next = exitEditMode(next)

	case UpdateDraft:
		if !next.Editing() || next.IsSubmitting {
			return next
		}
		draft := a.Draft
		next.Draft = &draft

	case ApplySuggestedDate:
		if next.Draft == nil || next.Notice == nil || next.Notice.SuggestedDate == nil {
			return next
		}
		draft := *next.Draft
		draft.EffectiveDate = *next.Notice.SuggestedDate
		next.Draft = &draft
		next.Notice = nil

	case SubmitStart:
		next.IsSubmitting = true
		next.Notice = nil

	case SubmitSuccess:
		next.IsSubmitting = false
		res := a.Result
		if res == nil {
			return next
		}
		preferred := res.RecordID
		if preferred == "" && next.Selected != nil {
			preferred = next.Selected.RecordID
		}
		next = exitEditMode(next)
		if res.Timeline != nil {
			next.Versions = res.Timeline.Versions
			next.Selected = selectVersion(next.Versions, preferred)
		}
		if res.ConcurrencyToken != "" {
			next.ConcurrencyToken = res.ConcurrencyToken
		}
		switch {
		case res.StaleReason != "":
			next.Notice = newNotice(NoticeWarning, "saved, but the timeline could not be refreshed: "+res.StaleReason, now)
		case res.Timeline != nil && res.Timeline.FallbackMessage != "":
			next.Notice = newNotice(NoticeWarning, "saved; "+res.Timeline.FallbackMessage, now)
		default:
			next.Notice = newNotice(NoticeSuccess, successMessage(res), now)
		}

	case SubmitFailure:
		next.IsSubmitting = false
		n := newNotice(NoticeError, UserMessage(a.Err), now)
		var svcErr *ServiceError
		if errors.As(a.Err, &svcErr) {
			n.Code = svcErr.Code
		}
		if d, ok := SuggestedDate(a.Err); ok {
			n.SuggestedDate = &d
		}
		next.Notice = n

	case DismissNotice:
		next.Notice = nil
	}
	return next
}

func exitEditMode(s SelectionState) SelectionState {
	if s.snapshot != nil && s.Selected != nil && s.Selected.RecordID == s.snapshot.RecordID {
		restored := s.snapshot.Clone()
		s.Selected = &restored
	}
	s.snapshot = nil
	s.Draft = nil
	s.EditMode = EditModeNone
	return s
}

func selectVersion(versions []version.Version, recordID string) *version.Version {
	v, ok := version.SelectDefault(versions, recordID)
	if !ok {
		return nil
	}
	return &v
}

func newNotice(kind NoticeKind, message string, now time.Time) *Notice {
	ttl := errorNoticeTTL
	if kind == NoticeSuccess {
		ttl = successNoticeTTL
	}
	return &Notice{Kind: kind, Message: message, ShownAt: now, DismissAfter: ttl}
}

func successMessage(res *MutationResult) string {
	switch res.Operation {
	case events.OperationCreate:
		return "entity " + res.EntityCode + " created"
	case events.OperationInsert:
		return "version inserted"
	case events.OperationEdit:
		return "version updated"
	case events.OperationDeactivate:
		return "version deactivated"
	default:
		return "saved"
	}
}
