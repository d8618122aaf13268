package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

type createView struct {
	Code     string        `json:"code" yaml:"code"`
	Timeline *timelineView `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	Warning  string        `json:"warning,omitempty" yaml:"warning,omitempty"`
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		in            services.CreateEntityInput
		effectiveDate string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new entity with its first version",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("effective-date", effectiveDate)
			if err != nil {
				return err
			}
			if d.IsZero() {
				d = a.today()
			}
			in.EffectiveDate = d

			code, err := a.module.Orchestrator.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			view := createView{Code: code}
			tl, err := a.module.Loader.Load(cmd.Context(), code)
			if err != nil {
				view.Warning = "created, but the timeline could not be loaded: " + services.UserMessage(err)
			} else {
				tv := newTimelineView(tl, "")
				view.Timeline = &tv
			}
			return a.write(view)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Unit name (required)")
	cmd.Flags().StringVar(&in.UnitType, "unit-type", "", "Unit type (required)")
	cmd.Flags().StringVar(&in.ParentCode, "parent", "", "Parent unit code")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&effectiveDate, "effective-date", "", "Effective date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&in.OperationReason, "reason", "", "Operation reason (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("unit-type")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newInsertCmd(a *app) *cobra.Command {
	var (
		flags          draftFlags
		fromRecord     string
		retrySuggested bool
	)

	cmd := &cobra.Command{
		Use:   "insert <code>",
		Short: "Insert a new version at an effective date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			s, err := a.openSession(cmd.Context(), code)
			if err != nil {
				return err
			}
			if err := s.selectRecord(fromRecord); err != nil {
				return err
			}
			s.dispatch(services.StartInsert{})
			if s.state.Draft == nil {
				return withCode(exitValidation, fmt.Errorf("timeline %s has no version to insert from; use create", code))
			}
			draft, err := flags.apply(cmd, *s.state.Draft)
			if err != nil {
				return err
			}
			s.dispatch(services.UpdateDraft{Draft: draft})

			err = s.submit(cmd.Context(), func(ctx context.Context, current *services.Timeline, draft services.VersionDraft) (*services.MutationResult, error) {
				return a.module.Orchestrator.InsertVersion(ctx, code, current, draft)
			}, retrySuggested)
			if err != nil {
				return err
			}
			return a.write(s.view())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&fromRecord, "from-record", "", "Version to seed the new one from, defaults to the current version")
	cmd.Flags().BoolVar(&retrySuggested, "apply-suggested-date", false, "Retry once with the server's suggested date when the parent is unavailable")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		flags          draftFlags
		retrySuggested bool
	)

	cmd := &cobra.Command{
		Use:   "edit <code> <record-id>",
		Short: "Amend a historical version in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, recordID := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			s, err := a.openSession(cmd.Context(), code)
			if err != nil {
				return err
			}
			if err := s.selectRecord(recordID); err != nil {
				return err
			}
			s.dispatch(services.StartEditHistory{})
			if s.state.Draft == nil {
				return withCode(exitValidation, fmt.Errorf("timeline %s has no version %q", code, recordID))
			}
			draft, err := flags.apply(cmd, *s.state.Draft)
			if err != nil {
				return err
			}
			s.dispatch(services.UpdateDraft{Draft: draft})

			err = s.submit(cmd.Context(), func(ctx context.Context, current *services.Timeline, draft services.VersionDraft) (*services.MutationResult, error) {
				return a.module.Orchestrator.EditVersion(ctx, code, current, recordID, draft)
			}, retrySuggested)
			if err != nil {
				return err
			}
			return a.write(s.view())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&retrySuggested, "apply-suggested-date", false, "Retry once with the server's suggested date when the parent is unavailable")
	return cmd
}

func newDeactivateCmd(a *app) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "deactivate <code> <record-id>",
		Short: "Deactivate a version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, recordID := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			s, err := a.openSession(cmd.Context(), code)
			if err != nil {
				return err
			}
			if err := s.selectRecord(recordID); err != nil {
				return err
			}
			err = s.submit(cmd.Context(), func(ctx context.Context, current *services.Timeline, _ services.VersionDraft) (*services.MutationResult, error) {
				return a.module.Orchestrator.DeactivateVersion(ctx, code, current, recordID, reason)
			}, false)
			if err != nil {
				return err
			}
			return a.write(s.view())
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Change reason (required)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
