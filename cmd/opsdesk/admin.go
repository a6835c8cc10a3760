package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

func newAdminCmd(getApp func() *app, actAs *int64) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users, departments, projects, and SLA templates",
	}

	cmd.AddCommand(
		newUserAddCmd(getApp, actAs),
		newDeptAddCmd(getApp, actAs),
		newDeptHeadCmd(getApp, actAs),
		newSLAAddCmd(getApp, actAs),
		newProjectAddCmd(getApp, actAs),
		newWatchCmd(getApp, actAs),
		newProjectInviteCmd(getApp, actAs),
	)

	return cmd
}

func newUserAddCmd(getApp func() *app, actAs *int64) *cobra.Command {
	var (
		role   string
		deptID int64
	)

	cmd := &cobra.Command{
		Use:   "user-add <name> <email>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}

			u := model.User{Name: args[0], Email: args[1], Role: model.Role(role)}
			if deptID != 0 {
				u.DepartmentID = &deptID
			}
			if err := a.admin.CreateUser(cmd.Context(), &u, actor); err != nil {
				return err
			}
			fmt.Printf("created user %d\n", u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(model.RoleAgent),
		"role: SUPER_ADMIN, ADMIN, CLIENT_SERVICE, or AGENT")
	cmd.Flags().Int64Var(&deptID, "department", 0, "department id")

	return cmd
}

func newDeptAddCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "dept-add <name>",
		Short: "Register a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}

			d := model.Department{Name: args[0]}
			if err := a.admin.CreateDepartment(cmd.Context(), &d, actor); err != nil {
				return err
			}
			fmt.Printf("created department %d\n", d.ID)
			return nil
		},
	}
}

func newDeptHeadCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "dept-head <dept-id> <user-id>",
		Short: "Set a department's head (the escalation target)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}
			deptID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing department id: %w", err)
			}
			headID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing user id: %w", err)
			}

			dept, err := a.store.GetDepartmentByID(cmd.Context(), deptID)
			if err != nil {
				return err
			}
			dept.HeadID = &headID
			if err := a.admin.UpdateDepartment(cmd.Context(), *dept, actor); err != nil {
				return err
			}
			fmt.Printf("department %d head is now user %d\n", deptID, headID)
			return nil
		},
	}
}

func newSLAAddCmd(getApp func() *app, actAs *int64) *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "sla-add <name> <duration-hrs>",
		Short: "Register an SLA template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}
			hrs, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parsing duration: %w", err)
			}

			sla := model.SLATemplate{
				Name:        args[0],
				Tier:        model.SLATier(tier),
				DurationHrs: hrs,
			}
			if err := a.admin.CreateSLA(cmd.Context(), &sla, actor); err != nil {
				return err
			}
			fmt.Printf("created SLA template %d\n", sla.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "tier", string(model.SLATierStandard),
		"tier: LOW, STANDARD, or URGENT")

	return cmd
}

func newProjectAddCmd(getApp func() *app, actAs *int64) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "project-add <name>",
		Short: "Register a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}

			p := model.Project{Name: args[0], Description: description}
			if err := a.admin.CreateProject(cmd.Context(), &p, actor); err != nil {
				return err
			}
			fmt.Printf("created project %d\n", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "project description")

	return cmd
}

func newWatchCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <task-id> <user-id>",
		Short: "Invite a user to watch a task",
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

			if err := a.admin.InviteWatcher(cmd.Context(), taskID, userID, actor); err != nil {
				return err
			}
			fmt.Printf("user %d now watches task %d\n", userID, taskID)
			return nil
		},
	}
}

func newProjectInviteCmd(getApp func() *app, actAs *int64) *cobra.Command {
	return &cobra.Command{
		Use:   "project-invite <project-id> <user-id>",
		Short: "Watch a user onto every task of a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			actor, err := a.principal(cmd, *actAs)
			if err != nil {
				return err
			}
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing project id: %w", err)
			}
			userID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing user id: %w", err)
			}

			n, err := a.admin.InviteToProject(cmd.Context(), projectID, userID, actor)
			if err != nil {
				return err
			}
			fmt.Printf("user %d now watches %d tasks in project %d\n", userID, n, projectID)
			return nil
		},
	}
}
