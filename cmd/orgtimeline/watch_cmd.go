package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/orgtimeline/pkg/metrics"
	"github.com/jacksonlee411/orgtimeline/pkg/middleware"
	"github.com/jacksonlee411/orgtimeline/pkg/server"
)

type watchEvent struct {
	At               time.Time `json:"at" yaml:"at"`
	EntityCode       string    `json:"entityCode" yaml:"entityCode"`
	ConcurrencyToken string    `json:"concurrencyToken,omitempty" yaml:"concurrencyToken,omitempty"`
	Versions         int       `json:"versions" yaml:"versions"`
	Changed          bool      `json:"changed" yaml:"changed"`
	Degraded         bool      `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Error            string    `json:"error,omitempty" yaml:"error,omitempty"`
}

type watcher struct {
	a         *app
	code      string
	lastToken string
}

func (w *watcher) poll(ctx context.Context) watchEvent {
	ev := watchEvent{At: w.a.module.Clock.Now().UTC(), EntityCode: w.code}
	tl, err := w.a.module.Loader.Load(ctx, w.code)
	if err != nil {
		ev.Error = userError(err)
		w.a.logger.WithError(err).WithField("entity_code", w.code).Warn("orgtimeline.watch.poll_failed")
		return ev
	}
	ev.ConcurrencyToken = tl.ConcurrencyToken
	ev.Versions = len(tl.Versions)
	ev.Degraded = tl.Degraded()
	ev.Changed = tl.ConcurrencyToken != w.lastToken
	if ev.Changed && w.lastToken != "" {
		w.a.logger.WithFields(logrus.Fields{
			"entity_code": w.code,
			"from":        w.lastToken,
			"to":          tl.ConcurrencyToken,
		}).Info("orgtimeline.watch.changed")
	}
	w.lastToken = tl.ConcurrencyToken
	return ev
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
		count       int
	)

	cmd := &cobra.Command{
		Use:   "watch <code>",
		Short: "Poll an entity's timeline and report concurrency token changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			if code == "" {
				return withCode(exitUsage, fmt.Errorf("entity code is required"))
			}
			if interval <= 0 {
				return withCode(exitUsage, fmt.Errorf("--interval must be positive"))
			}
			if count < 0 {
				return withCode(exitUsage, fmt.Errorf("--count must be non-negative"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr == "" && a.conf.Prometheus.Enabled {
				metricsAddr = a.conf.Prometheus.Addr
			}
			if metricsAddr != "" {
				ln, err := net.Listen("tcp", metricsAddr)
				if err != nil {
					return withCode(exitUsage, fmt.Errorf("metrics listener: %w", err))
				}
				srv := server.NewHTTPServer(
					[]server.Controller{metrics.NewPrometheusController(a.conf.Prometheus.Path)},
					middleware.WithLogger(a.conf.Logger(), a.conf.RequestIDHeader),
				)
				served := make(chan struct{})
				go func() {
					defer close(served)
					if err := srv.Serve(ctx, ln); err != nil {
						a.logger.WithError(err).Error("metrics server stopped")
					}
				}()
				a.logger.WithField("addr", ln.Addr().String()).Info("serving metrics")
				defer func() {
					stop()
					<-served
				}()
			}

			w := &watcher{a: a, code: code}
			ticker := a.module.Clock.NewTicker(interval)
			defer ticker.Stop()

			for polls := 0; ; {
				if err := a.write(w.poll(ctx)); err != nil {
					return err
				}
				polls++
				if count > 0 && polls >= count {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.Chan():
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Poll interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while watching (defaults to PROMETHEUS_METRICS_ADDR when metrics are enabled)")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many polls (0 runs until interrupted)")
	return cmd
}
