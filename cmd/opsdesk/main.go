// Command opsdesk is the service-desk lifecycle engine: a daemon that
// polls the intake mailbox and sweeps SLA breaches, plus administrative
// subcommands for tasks, tickets, users, departments, projects, and
// SLA templates.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdeskhq/opsdesk/internal/admin"
	"github.com/opsdeskhq/opsdesk/internal/audit"
	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/lifecycle"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/notify"
	"github.com/opsdeskhq/opsdesk/internal/sla"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// app wires the engine and its collaborators for one CLI invocation.
type app struct {
	cfg        *model.AppConfig
	store      *store.SQLiteStore
	bus        *event.Bus
	engine     *lifecycle.Engine
	dispatcher *notify.Dispatcher
	recorder   *audit.Recorder
	admin      *admin.Service
	sweeper    *sla.Sweeper
	logger     *slog.Logger
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(logger)

	dispatcher := notify.NewDispatcher(st, logger)
	dispatcher.Subscribe(bus)

	return &app{
		cfg:        cfg,
		store:      st,
		bus:        bus,
		engine:     lifecycle.NewEngine(st, bus, cfg.DefaultSLAID, logger),
		dispatcher: dispatcher,
		recorder:   audit.NewRecorder(st),
		admin:      admin.NewService(st),
		sweeper:    sla.NewSweeper(st, bus, logger),
		logger:     logger,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

// principal resolves the acting user supplied with --as into the
// trusted (id, role, department) tuple every core operation takes.
func (a *app) principal(cmd *cobra.Command, userID int64) (model.Principal, error) {
	u, err := a.store.GetUserByID(cmd.Context(), userID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("resolving acting user %d: %w", userID, err)
	}
	return model.Principal{
		UserID:       u.ID,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
	}, nil
}

func main() {
	var (
		cfgPath string
		actAs   int64
		a       *app
	)

	root := &cobra.Command{
		Use:           "opsdesk",
		Short:         "Service-desk task lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cfgPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", model.DefaultConfigPath(),
		"path to the configuration file")
	root.PersistentFlags().Int64Var(&actAs, "as", 0,
		"user id of the acting principal")

	root.AddCommand(
		newDaemonCmd(func() *app { return a }),
		newSweepCmd(func() *app { return a }),
		newTaskCmd(func() *app { return a }, &actAs),
		newTicketCmd(func() *app { return a }, &actAs),
		newAdminCmd(func() *app { return a }, &actAs),
		newNotificationsCmd(func() *app { return a }),
		newAuthCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
