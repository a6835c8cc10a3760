package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdeskhq/opsdesk/internal/lifecycle"
)

func newTicketCmd(getApp func() *app, actAs *int64) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Route and reject intake tickets",
	}

	cmd.AddCommand(
		newTicketProcessCmd(getApp, actAs),
		newTicketDismissCmd(getApp, actAs),
	)

	return cmd
}

func newTicketProcessCmd(getApp func() *app, actAs *int64) *cobra.Command {
	var (
		deptID      int64
		slaID       int64
		assigneeID  int64
		description string
		dueAt       string
	)

	cmd := &cobra.Command{
		Use:   "process <task-id>",
		Short: "Route a ticket: department, SLA, optional assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing task id: %w", err)
			}

			in := lifecycle.ProcessTicketInput{DepartmentID: deptID}
			if slaID != 0 {
				in.SLAID = &slaID
			}
			if assigneeID != 0 {
				in.AssigneeID = &assigneeID
			}
			if description != "" {
				in.Description = &description
			}
			if dueAt != "" {
				t, err := time.Parse(time.RFC3339, dueAt)
				if err != nil {
					return fmt.Errorf("parsing --due: %w", err)
				}
				in.DueAt = &t
			}

			task, err := a.engine.ProcessTicket(cmd.Context(), taskID, in, actor)
			if err != nil {
				return err
			}
			fmt.Printf("ticket %d processed: %s, due %s\n",
				task.ID, task.Status, formatTime(task.DueAt))
			return nil
		},
	}

	cmd.Flags().Int64Var(&deptID, "department", 0, "department id (required)")
	cmd.Flags().Int64Var(&slaID, "sla", 0, "SLA template id (default SLA when omitted)")
	cmd.Flags().Int64Var(&assigneeID, "assignee", 0, "assignee user id")
	cmd.Flags().StringVar(&description, "description", "", "description override")
	cmd.Flags().StringVar(&dueAt, "due", "", "manual due date override (RFC 3339)")

	return cmd
}

func newTicketDismissCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <task-id>",
		Short: "Reject a ticket at intake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing task id: %w", err)
			}

			if _, err := a.engine.DismissTicket(cmd.Context(), taskID, actor); err != nil {
				return err
			}
			fmt.Printf("ticket %d dismissed\n", taskID)
			return nil
		},
	}
}
