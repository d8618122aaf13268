package main

import (
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

type candidatesView struct {
	AsOfDate   string              `json:"asOfDate" yaml:"asOfDate"`
	Candidates []version.Candidate `json:"candidates" yaml:"candidates"`
	Fallback   bool                `json:"fallback" yaml:"fallback"`
	Truncated  bool                `json:"truncated" yaml:"truncated"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCandidatesCmd(a *app) *cobra.Command {
	var (
		asOf    string
		exclude string
		query   string
	)

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List valid parent candidates as of a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("as-of", asOf)
			if err != nil {
				return err
			}
			if d.IsZero() {
				d = version.NormalizeDate(a.module.Clock.Now())
			}

			res := a.module.Candidates.GetCandidates(cmd.Context(), d, exclude)
			view := candidatesView{
				AsOfDate:   version.FormatDate(d),
				Candidates: services.SearchCandidates(query, res.Candidates),
				Fallback:   res.Fallback,
				Truncated:  res.Truncated,
			}
			if res.Err != nil {
				view.Error = userError(res.Err)
			}
			return a.write(view)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "As-of date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Entity code to exclude together with its descendants")
	cmd.Flags().StringVar(&query, "query", "", "Fuzzy filter on code or name")
	return cmd
}
