package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

type versionView struct {
	version.Version `yaml:",inline"`
	EditableRange   services.EditableRange `json:"editableRange" yaml:"editableRange"`
}

type timelineView struct {
	EntityCode       string           `json:"entityCode" yaml:"entityCode"`
	ConcurrencyToken string           `json:"concurrencyToken,omitempty" yaml:"concurrencyToken,omitempty"`
	FallbackMessage  string           `json:"fallbackMessage,omitempty" yaml:"fallbackMessage,omitempty"`
	Focus            *version.Version `json:"focus,omitempty" yaml:"focus,omitempty"`
	Versions         []versionView    `json:"versions" yaml:"versions"`
}

func newTimelineView(tl *services.Timeline, recordID string) timelineView {
	view := timelineView{
		EntityCode:       tl.EntityCode,
		ConcurrencyToken: tl.ConcurrencyToken,
		FallbackMessage:  tl.FallbackMessage,
		Versions:         make([]versionView, 0, len(tl.Versions)),
	}
	if focus, ok := tl.Focus(recordID); ok {
		view.Focus = &focus
	}
	for _, v := range tl.Versions {
		view.Versions = append(view.Versions, versionView{
			Version:       v,
			EditableRange: services.ComputeEditableRange(v, tl.Versions),
		})
	}
	return view
}

func newTimelineCmd(a *app) *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "timeline <code>",
		Short: "Load an entity's version timeline with editable date ranges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			if code == "" {
				return withCode(exitUsage, fmt.Errorf("entity code is required"))
			}
			tl, err := a.module.Loader.Load(cmd.Context(), code)
			if err != nil {
				return err
			}
			return a.write(newTimelineView(tl, strings.TrimSpace(recordID)))
		},
	}
	cmd.Flags().StringVar(&recordID, "record-id", "", "Record to focus instead of the current version")
	return cmd
}
