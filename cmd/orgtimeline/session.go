package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

// session drives the selection model for one entity the way an editor
// screen would.
type session struct {
	a     *app
	state services.SelectionState
}

func (a *app) openSession(ctx context.Context, code string) (*session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, withCode(exitUsage, fmt.Errorf("entity code is required"))
	}
	tl, err := a.module.Loader.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	s := &session{a: a}
	s.dispatch(services.LoadTimeline{Timeline: tl})
	if tl.Degraded() {
		a.logger.WithField("entity_code", code).Warn(tl.FallbackMessage)
	}
	return s, nil
}

func (s *session) dispatch(action services.Action) {
	s.state = services.Reduce(s.state, action, s.a.module.Clock.Now())
}

func (s *session) timeline() *services.Timeline {
	return &services.Timeline{
		EntityCode:       s.state.EntityCode,
		Versions:         s.state.Versions,
		ConcurrencyToken: s.state.ConcurrencyToken,
	}
}

func (s *session) selectRecord(recordID string) error {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return nil
	}
	if _, ok := version.FindByRecordID(s.state.Versions, recordID); !ok {
		return withCode(exitValidation, fmt.Errorf("version %q not found in timeline %s", recordID, s.state.EntityCode))
	}
	s.dispatch(services.Select{RecordID: recordID})
	return nil
}

type mutateFunc func(ctx context.Context, current *services.Timeline, draft services.VersionDraft) (*services.MutationResult, error)

// submit runs fn once, and once more with the suggested date when the
// server rejects the parent and retrySuggested is set.
func (s *session) submit(ctx context.Context, fn mutateFunc, retrySuggested bool) error {
	for attempt := 0; ; attempt++ {
		var draft services.VersionDraft
		if s.state.Draft != nil {
			draft = *s.state.Draft
		}
		s.dispatch(services.SubmitStart{})
		res, err := fn(ctx, s.timeline(), draft)
		if err == nil {
			s.dispatch(services.SubmitSuccess{Result: res})
			return nil
		}
		s.dispatch(services.SubmitFailure{Err: err})
		if !retrySuggested || attempt > 0 || s.state.Notice == nil || s.state.Notice.SuggestedDate == nil || s.state.Draft == nil {
			return err
		}
		s.a.logger.WithField("suggested_date", version.FormatDate(*s.state.Notice.SuggestedDate)).
			Warn("parent unavailable, retrying with suggested date")
		s.dispatch(services.ApplySuggestedDate{})
	}
}

type mutationView struct {
	EntityCode       string                  `json:"entityCode" yaml:"entityCode"`
	Selected         *version.Version        `json:"selected,omitempty" yaml:"selected,omitempty"`
	ConcurrencyToken string                  `json:"concurrencyToken,omitempty" yaml:"concurrencyToken,omitempty"`
	Notice           *services.Notice        `json:"notice,omitempty" yaml:"notice,omitempty"`
	Versions         []version.Version       `json:"versions" yaml:"versions"`
	Draft            *services.VersionDraft  `json:"draft,omitempty" yaml:"draft,omitempty"`
	DraftRange       *services.EditableRange `json:"draftRange,omitempty" yaml:"draftRange,omitempty"`
}

func (s *session) view() mutationView {
	v := mutationView{
		EntityCode:       s.state.EntityCode,
		Selected:         s.state.Selected,
		ConcurrencyToken: s.state.ConcurrencyToken,
		Notice:           s.state.Notice,
		Versions:         s.state.Versions,
		Draft:            s.state.Draft,
	}
	if s.state.Editing() {
		r := s.state.DraftRange()
		v.DraftRange = &r
	}
	return v
}

type draftFlags struct {
	name          string
	unitType      string
	parent        string
	description   string
	effectiveDate string
	reason        string
	operation     string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Unit name")
	cmd.Flags().StringVar(&f.unitType, "unit-type", "", "Unit type")
	cmd.Flags().StringVar(&f.parent, "parent", "", "Parent unit code (empty clears the parent)")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.effectiveDate, "effective-date", "", "Effective date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.reason, "reason", "", "Change reason (required)")
	cmd.Flags().StringVar(&f.operation, "operation-reason", "", "Operation reason, defaults to --reason")
	_ = cmd.MarkFlagRequired("reason")
}

// apply overlays the flags the user set onto draft.
func (f *draftFlags) apply(cmd *cobra.Command, draft services.VersionDraft) (services.VersionDraft, error) {
	changed := cmd.Flags().Changed
	if changed("name") {
		draft.Name = f.name
	}
	if changed("unit-type") {
		draft.UnitType = f.unitType
	}
	if changed("parent") {
		draft.ParentCode = f.parent
	}
	if changed("description") {
		draft.Description = f.description
	}
	if changed("effective-date") {
		d, err := parseRequiredDateFlag("effective-date", f.effectiveDate)
		if err != nil {
			return draft, err
		}
		draft.EffectiveDate = d
	}
	draft.ChangeReason = f.reason
	draft.OperationReason = f.operation
	return draft, nil
}

func (a *app) today() time.Time {
	return version.NormalizeDate(a.module.Clock.Now())
}
