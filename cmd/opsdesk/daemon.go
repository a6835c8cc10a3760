package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opsdeskhq/opsdesk/internal/credential"
	"github.com/opsdeskhq/opsdesk/internal/intake"
	"github.com/opsdeskhq/opsdesk/internal/sched"
)

// newDaemonCmd runs the scheduled background jobs: the SLA breach
// sweep and, when configured, the intake mailbox poll.
func newDaemonCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the breach sweep and intake polling jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()

			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler := sched.New(a.logger)

			scheduler.Register(sched.Job{
				Name: "breach-sweep",
				Spec: a.cfg.Sweep.Cron,
				Run: func(ctx context.Context) error {
					alerted, err := a.sweeper.Run(ctx)
					if err != nil {
						return err
					}
					if alerted > 0 {
						a.logger.Info("breach sweep raised alerts", "count", alerted)
					}
					return nil
				},
			})

			if a.cfg.Intake.Enabled {
				adapter, err := buildIntakeAdapter(a)
				if err != nil {
					return err
				}
				scheduler.Register(sched.Job{
					Name: "intake-poll",
					Spec: a.cfg.Intake.PollCron,
					Run: func(ctx context.Context) error {
						created, appended, err := adapter.PollOnce(ctx)
						if err != nil {
							return err
						}
						if created > 0 || appended > 0 {
							a.logger.Info("intake poll processed mail",
								"created", created, "appended", appended)
						}
						return nil
					},
				})
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return scheduler.Start(ctx)
			})

			a.logger.Info("daemon started")
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("daemon stopped")
			return nil
		},
	}
}

// buildIntakeAdapter wires the IMAP client with its keyring-held
// password into an intake adapter.
func buildIntakeAdapter(a *app) (*intake.Adapter, error) {
	cfg := a.cfg.Intake

	password, err := credential.Get(cfg.Username)
	if err != nil {
		return nil, fmt.Errorf("loading intake mailbox credential: %w", err)
	}

	client := intake.NewIMAPClient(
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Mailbox, cfg.TLS,
	)

	return intake.NewAdapter(
		client, a.store, a.bus,
		cfg.ReporterID, a.cfg.DefaultSLAID,
		a.logger,
	), nil
}

// newSweepCmd runs a single breach sweep and exits.
func newSweepCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one SLA breach sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			alerted, err := a.sweeper.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("breach alerts raised: %d\n", alerted)
			return nil
		},
	}
}
