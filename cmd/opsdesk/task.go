package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdeskhq/opsdesk/internal/lifecycle"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

func newTaskCmd(getApp func() *app, actAs *int64) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and operate on tasks",
	}

	cmd.AddCommand(
		newTaskCreateCmd(getApp, actAs),
		newTaskAdvanceCmd(getApp, actAs),
		newTaskPauseCmd(getApp, actAs),
		newTaskAssignCmd(getApp, actAs),
		newTaskCommentCmd(getApp, actAs),
		newTaskShowCmd(getApp),
		newTaskListCmd(getApp),
		newTaskHistoryCmd(getApp),
	)

	return cmd
}

func newTaskCreateCmd(getApp func() *app, actAs *int64) *cobra.Command {
	var (
		description string
		slaID       int64
		dueAt       string
		projectID   int64
		deptID      int64
		assigneeID  int64
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}

			in := lifecycle.CreateTaskInput{
				Title:       args[0],
				Description: description,
				SLAID:       slaID,
			}
			if dueAt != "" {
				t, err := time.Parse(time.RFC3339, dueAt)
				if err != nil {
					return fmt.Errorf("parsing --due: %w", err)
				}
				in.DueAt = &t
			}
			if projectID != 0 {
				in.ProjectID = &projectID
			}
			if deptID != 0 {
				in.DepartmentID = &deptID
			}
			if assigneeID != 0 {
				in.AssigneeID = &assigneeID
			}

			task, err := a.engine.CreateTask(cmd.Context(), in, actor)
			if err != nil {
				return err
			}
			fmt.Printf("created task %d (due %s)\n", task.ID, formatTime(task.DueAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().Int64Var(&slaID, "sla", 0, "SLA template id (default SLA when omitted)")
	cmd.Flags().StringVar(&dueAt, "due", "", "manual due date override (RFC 3339)")
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().Int64Var(&deptID, "department", 0, "department id")
	cmd.Flags().Int64Var(&assigneeID, "assignee", 0, "initial assignee user id")

	return cmd
}

func newTaskAdvanceCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <task-id> <status>",
		Short: "Request a status transition",
		Args:  cobra.ExactArgs(2),
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

			task, err := a.engine.Advance(cmd.Context(), taskID, model.Status(args[1]), actor)
			if err != nil {
				return err
			}
			fmt.Printf("task %d is now %s\n", task.ID, task.Status)
			return nil
		},
	}
}

func newTaskPauseCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <task-id> <reason>",
		Short: "Pause a task pending more information",
		Args:  cobra.ExactArgs(2),
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

			task, err := a.engine.PauseTask(cmd.Context(), taskID, args[1], actor)
			if err != nil {
				return err
			}
			fmt.Printf("task %d is now %s (%s)\n", task.ID, task.Status, task.PauseReason)
			return nil
		},
	}
}

func newTaskAssignCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> <user-id>",
		Short: "Assign or reassign a task",
		Args:  cobra.ExactArgs(2),
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
			userID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing user id: %w", err)
			}

			if _, err := a.engine.Assign(cmd.Context(), taskID, userID, actor); err != nil {
				return err
			}
			fmt.Printf("task %d assigned to user %d\n", taskID, userID)
			return nil
		},
	}
}

func newTaskCommentCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <task-id> <body>",
		Short: "Add a comment to a task",
		Args:  cobra.ExactArgs(2),
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

			if _, err := a.engine.AddComment(cmd.Context(), taskID, args[1], actor); err != nil {
				return err
			}
			fmt.Println("comment added")
			return nil
		},
	}
}

func newTaskShowCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing task id: %w", err)
			}

			task, err := a.store.GetTaskByID(cmd.Context(), taskID)
			if err != nil {
				return err
			}

			fmt.Printf("#%d %s\n", task.ID, task.Title)
			fmt.Printf("  status:    %s\n", task.Status)
			fmt.Printf("  due:       %s\n", formatTime(task.DueAt))
			if task.AssigneeID != nil {
				fmt.Printf("  assignee:  %d\n", *task.AssigneeID)
			}
			if task.IsTicket {
				fmt.Printf("  ticket:    from %s <%s>\n", task.SenderName, task.SenderEmail)
			}
			if task.PauseReason != "" {
				fmt.Printf("  paused:    %s\n", task.PauseReason)
			}
			if task.Description != "" {
				fmt.Printf("\n%s\n", task.Description)
			}

			messages, err := a.store.GetMessages(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			for _, m := range messages {
				author := m.SenderEmail
				if m.AuthorID != nil {
					author = fmt.Sprintf("user %d", *m.AuthorID)
				}
				fmt.Printf("\n[%s] %s:\n%s\n",
					m.CreatedAt.Format(time.RFC3339), author, m.Body)
			}
			return nil
		},
	}
}

func newTaskListCmd(getApp func() *app) *cobra.Command {
	var (
		status     string
		assigneeID int64
		ticketOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()

			filter := store.TaskFilter{SortBy: "updated_at", SortDesc: true}
			if status != "" {
				st := model.Status(status)
				filter.Status = &st
			}
			if assigneeID != 0 {
				filter.AssigneeID = &assigneeID
			}
			if ticketOnly {
				filter.IsTicket = &ticketOnly
			}

			tasks, err := a.store.GetTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Printf("%6d  %-13s  due %-20s  %s\n",
					t.ID, t.Status, formatTime(t.DueAt), t.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().Int64Var(&assigneeID, "assignee", 0, "filter by assignee user id")
	cmd.Flags().BoolVar(&ticketOnly, "tickets", false, "only intake tickets")

	return cmd
}

func newTaskHistoryCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show a task's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing task id: %w", err)
			}

			entries, err := a.recorder.Trail(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				detail := ""
				if e.OldValue != "" || e.NewValue != "" {
					detail = fmt.Sprintf("  %s -> %s", e.OldValue, e.NewValue)
				}
				fmt.Printf("%s  user %-5d %-16s%s\n",
					e.CreatedAt.Format(time.RFC3339), e.ActorID, e.Action, detail)
			}
			return nil
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
