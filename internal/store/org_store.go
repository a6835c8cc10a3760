package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsdeskhq/opsdesk/internal/model"
)

// CreateUser inserts a new user and writes the generated id back.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("user name must not be empty")
	}
	if u.Role == "" {
		u.Role = model.RoleAgent
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, role, department_id)
		VALUES (?, ?, ?, ?)`,
		u.Name, u.Email, string(u.Role), u.DepartmentID,
	)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	return nil
}

// UpdateUser updates an existing user by ID.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u model.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, role = ?, department_id = ?
		WHERE id = ?`,
		u.Name, u.Email, string(u.Role), u.DepartmentID, u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("updating user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

// GetUserByID retrieves a single user.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT id, name, email, role, department_id FROM users WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, notFound(err))
	}
	return &u, nil
}

// GetUsers retrieves all users ordered by name.
func (s *SQLiteStore) GetUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT id, name, email, role, department_id FROM users ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}

// CreateDepartment inserts a new department and writes the id back.
func (s *SQLiteStore) CreateDepartment(ctx context.Context, d *model.Department) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("department name must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO departments (name, head_id) VALUES (?, ?)",
		d.Name, d.HeadID,
	)
	if err != nil {
		return fmt.Errorf("creating department: %w", err)
	}

	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading department id: %w", err)
	}
	return nil
}

// UpdateDepartment updates an existing department by ID.
func (s *SQLiteStore) UpdateDepartment(ctx context.Context, d model.Department) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE departments SET name = ?, head_id = ? WHERE id = ?",
		d.Name, d.HeadID, d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating department %d: %w", d.ID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("updating department %d: %w", d.ID, ErrNotFound)
	}
	return nil
}

// GetDepartmentByID retrieves a single department.
func (s *SQLiteStore) GetDepartmentByID(ctx context.Context, id int64) (*model.Department, error) {
	var d model.Department
	err := s.db.GetContext(ctx, &d,
		"SELECT id, name, head_id FROM departments WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting department %d: %w", id, notFound(err))
	}
	return &d, nil
}

// GetDepartments retrieves all departments ordered by name.
func (s *SQLiteStore) GetDepartments(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	err := s.db.SelectContext(ctx, &departments,
		"SELECT id, name, head_id FROM departments ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying departments: %w", err)
	}
	return departments, nil
}

// CreateProject inserts a new project and writes the id back.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (name, description) VALUES (?, ?)",
		p.Name, p.Description,
	)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading project id: %w", err)
	}
	return nil
}

// UpdateProject updates an existing project by ID.
func (s *SQLiteStore) UpdateProject(ctx context.Context, p model.Project) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, description = ? WHERE id = ?",
		p.Name, p.Description, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project %d: %w", p.ID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("updating project %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// GetProjectByID retrieves a single project.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	err := s.db.GetContext(ctx, &p,
		"SELECT id, name, description FROM projects WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting project %d: %w", id, notFound(err))
	}
	return &p, nil
}

// GetProjects retrieves all projects ordered by name.
func (s *SQLiteStore) GetProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects,
		"SELECT id, name, description FROM projects ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}

// CreateSLA inserts a new SLA template and writes the id back.
func (s *SQLiteStore) CreateSLA(ctx context.Context, sla *model.SLATemplate) error {
	if strings.TrimSpace(sla.Name) == "" {
		return fmt.Errorf("sla name must not be empty")
	}
	if sla.DurationHrs <= 0 {
		return fmt.Errorf("sla duration must be positive")
	}
	if sla.Tier == "" {
		sla.Tier = model.SLATierStandard
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO slas (name, tier, duration_hrs) VALUES (?, ?, ?)",
		sla.Name, string(sla.Tier), sla.DurationHrs,
	)
	if err != nil {
		return fmt.Errorf("creating sla: %w", err)
	}

	sla.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading sla id: %w", err)
	}
	return nil
}

// UpdateSLA updates an SLA template. Administrative duration edits only;
// tasks already referencing the template keep their computed due dates.
func (s *SQLiteStore) UpdateSLA(ctx context.Context, sla model.SLATemplate) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE slas SET name = ?, tier = ?, duration_hrs = ? WHERE id = ?",
		sla.Name, string(sla.Tier), sla.DurationHrs, sla.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sla %d: %w", sla.ID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("updating sla %d: %w", sla.ID, ErrNotFound)
	}
	return nil
}

// GetSLAByID retrieves a single SLA template.
func (s *SQLiteStore) GetSLAByID(ctx context.Context, id int64) (*model.SLATemplate, error) {
	var sla model.SLATemplate
	err := s.db.GetContext(ctx, &sla,
		"SELECT id, name, tier, duration_hrs FROM slas WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting sla %d: %w", id, notFound(err))
	}
	return &sla, nil
}

// GetSLAs retrieves all SLA templates ordered by tier then name.
func (s *SQLiteStore) GetSLAs(ctx context.Context) ([]model.SLATemplate, error) {
	var slas []model.SLATemplate
	err := s.db.SelectContext(ctx, &slas,
		"SELECT id, name, tier, duration_hrs FROM slas ORDER BY tier, name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying slas: %w", err)
	}
	return slas, nil
}
