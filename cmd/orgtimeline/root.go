package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline"
	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/events"
	"github.com/jacksonlee411/orgtimeline/pkg/composables"
	"github.com/jacksonlee411/orgtimeline/pkg/configuration"
	"github.com/jacksonlee411/orgtimeline/pkg/eventbus"
)

type configLoader func() (*configuration.Configuration, error)

type app struct {
	loadConfig configLoader
	clock      clockwork.Clock
	out        io.Writer
	format     string

	conf   *configuration.Configuration
	module *orgtimeline.Module
	logger *logrus.Entry
}

func (a *app) setup(cmd *cobra.Command, rawFormat string) error {
	format, err := parseOutputFormat(rawFormat)
	if err != nil {
		return err
	}
	a.format = format
	a.out = cmd.OutOrStdout()

	conf, err := a.loadConfig()
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("configuration: %w", err))
	}
	a.conf = conf

	bus := eventbus.NewEventPublisher(conf.Logger())
	m, err := orgtimeline.NewModule(conf, orgtimeline.Options{Clock: a.clock, Publisher: bus})
	if err != nil {
		return withCode(exitUsage, err)
	}
	a.module = m

	a.logger = logrus.NewEntry(conf.Logger()).WithField("command", cmd.Name())
	bus.Subscribe(func(e events.TimelineMutatedV1) {
		a.logger.WithFields(logrus.Fields{
			"event_id":       e.EventID.String(),
			"request_id":     e.RequestID,
			"operation":      string(e.Operation),
			"entity_code":    e.EntityCode,
			"record_id":      e.RecordID,
			"effective_date": e.EffectiveDate.Format("2006-01-02"),
			"reloaded":       e.Reloaded,
		}).Info(events.TopicTimelineMutatedV1)
	})

	ctx := composables.WithLogger(cmd.Context(), a.logger)
	ctx = composables.WithRequestID(ctx, composables.UseRequestID(ctx))
	cmd.SetContext(ctx)
	return nil
}

// teardown releases what setup acquired. It runs whether or not the
// command succeeded and is safe to call more than once.
func (a *app) teardown() {
	if a.module != nil {
		if err := a.module.Close(); err != nil && a.logger != nil {
			a.logger.WithError(err).Warn("orgtimeline.module.close_failed")
		}
		a.module = nil
	}
	if a.conf != nil {
		a.conf.Unload()
		a.conf = nil
	}
}

func newApp(loadConfig configLoader, clock clockwork.Clock) *app {
	return &app{loadConfig: loadConfig, clock: clock}
}

// execute runs cmd and tears the app down afterwards, including when
// setup or the command itself fails.
func (a *app) execute(ctx context.Context, cmd *cobra.Command) error {
	defer a.teardown()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:           "orgtimeline",
		Short:         "Inspect and edit effective-dated org unit timelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, output)
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", outputJSON, "Output format: json or yaml")

	cmd.AddCommand(newTimelineCmd(a))
	cmd.AddCommand(newCandidatesCmd(a))
	cmd.AddCommand(newCreateCmd(a))
	cmd.AddCommand(newInsertCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newDeactivateCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	return cmd
}

func Execute() {
	load := func() (*configuration.Configuration, error) {
		return configuration.Load([]string{".env", ".env.local"})
	}
	a := newApp(load, clockwork.NewRealClock())
	if err := a.execute(context.Background(), newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, userError(err))
		os.Exit(exitCode(err))
	}
}
