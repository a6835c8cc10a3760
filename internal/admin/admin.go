// Package admin covers department, user, project, and SLA template
// administration plus watcher invitations. Mutations are restricted to
// admin roles; failures name the missing privilege rather than a
// generic forbidden.
package admin

import (
	"context"
	"fmt"

	"github.com/opsdeskhq/opsdesk/internal/lifecycle"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// Service exposes administrative operations.
type Service struct {
	store store.Store
}

// NewService creates an admin Service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// requireAdmin enforces the admin-only guard on administrative
// mutations. Client-service has lifecycle authority but not admin
// authority.
func requireAdmin(actor model.Principal, op string) error {
	if actor.Role == model.RoleSuperAdmin || actor.Role == model.RoleAdmin {
		return nil
	}
	return fmt.Errorf("%w: %s requires an admin role (have %s)",
		lifecycle.ErrUnauthorized, op, actor.Role)
}

// CreateUser registers a user. Admin only.
func (s *Service) CreateUser(ctx context.Context, u *model.User, actor model.Principal) error {
	if err := requireAdmin(actor, "creating users"); err != nil {
		return err
	}
	if _, ok := model.ParseRole(string(u.Role)); !ok {
		return fmt.Errorf("%w: unknown role %q", lifecycle.ErrValidation, u.Role)
	}
	return s.store.CreateUser(ctx, u)
}

// UpdateUser updates a user. Admin only.
func (s *Service) UpdateUser(ctx context.Context, u model.User, actor model.Principal) error {
	if err := requireAdmin(actor, "updating users"); err != nil {
		return err
	}
	if _, ok := model.ParseRole(string(u.Role)); !ok {
		return fmt.Errorf("%w: unknown role %q", lifecycle.ErrValidation, u.Role)
	}
	return s.store.UpdateUser(ctx, u)
}

// CreateDepartment registers a department. Admin only.
func (s *Service) CreateDepartment(ctx context.Context, d *model.Department, actor model.Principal) error {
	if err := requireAdmin(actor, "creating departments"); err != nil {
		return err
	}
	return s.store.CreateDepartment(ctx, d)
}

// UpdateDepartment updates a department, including its head (the
// auto-watch and escalation target). Admin only.
func (s *Service) UpdateDepartment(ctx context.Context, d model.Department, actor model.Principal) error {
	if err := requireAdmin(actor, "updating departments"); err != nil {
		return err
	}
	if d.HeadID != nil {
		if _, err := s.store.GetUserByID(ctx, *d.HeadID); err != nil {
			return err
		}
	}
	return s.store.UpdateDepartment(ctx, d)
}

// CreateProject registers a project. Admin only.
func (s *Service) CreateProject(ctx context.Context, p *model.Project, actor model.Principal) error {
	if err := requireAdmin(actor, "creating projects"); err != nil {
		return err
	}
	return s.store.CreateProject(ctx, p)
}

// UpdateProject updates a project. Admin only.
func (s *Service) UpdateProject(ctx context.Context, p model.Project, actor model.Principal) error {
	if err := requireAdmin(actor, "updating projects"); err != nil {
		return err
	}
	return s.store.UpdateProject(ctx, p)
}

// CreateSLA registers an SLA template. Admin only.
func (s *Service) CreateSLA(ctx context.Context, sla *model.SLATemplate, actor model.Principal) error {
	if err := requireAdmin(actor, "creating SLA templates"); err != nil {
		return err
	}
	return s.store.CreateSLA(ctx, sla)
}

// UpdateSLA performs an administrative duration edit on an SLA
// template. Existing tasks keep their computed due dates. Admin only.
func (s *Service) UpdateSLA(ctx context.Context, sla model.SLATemplate, actor model.Principal) error {
	if err := requireAdmin(actor, "updating SLA templates"); err != nil {
		return err
	}
	return s.store.UpdateSLA(ctx, sla)
}

// InviteWatcher subscribes a user to a task. Any authenticated actor
// may invite; the upsert keeps the (user, task) pair unique.
func (s *Service) InviteWatcher(ctx context.Context, taskID, userID int64, actor model.Principal) error {
	if _, err := s.store.GetTaskByID(ctx, taskID); err != nil {
		return err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.store.UpsertWatcher(ctx, userID, taskID)
}

// RemoveWatcher unsubscribes a user from a task.
func (s *Service) RemoveWatcher(ctx context.Context, taskID, userID int64, actor model.Principal) error {
	return s.store.RemoveWatcher(ctx, userID, taskID)
}

// InviteToProject watches a user onto every task of a project. Admin
// only. The per-task upsert makes the cascade idempotent: re-inviting
// never duplicates watcher rows.
func (s *Service) InviteToProject(ctx context.Context, projectID, userID int64, actor model.Principal) (int, error) {
	if err := requireAdmin(actor, "project-wide invitations"); err != nil {
		return 0, err
	}
	if _, err := s.store.GetProjectByID(ctx, projectID); err != nil {
		return 0, err
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		return 0, err
	}

	tasks, err := s.store.GetTasks(ctx, store.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return 0, err
	}

	for _, t := range tasks {
		if err := s.store.UpsertWatcher(ctx, userID, t.ID); err != nil {
			return 0, fmt.Errorf("inviting user %d to project %d: %w", userID, projectID, err)
		}
	}

	return len(tasks), nil
}
