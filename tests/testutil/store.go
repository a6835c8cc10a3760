// Package testutil provides shared helpers for store-backed tests.
package testutil

import (
	"context"
	"testing"

	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedUser creates a user and returns it.
func SeedUser(t *testing.T, s store.Store, name string, role model.Role, deptID *int64) model.User {
	t.Helper()

	u := model.User{
		Name:         name,
		Email:        name + "@example.com",
		Role:         role,
		DepartmentID: deptID,
	}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("seeding user %s: %v", name, err)
	}
	return u
}

// SeedDepartment creates a department and returns it.
func SeedDepartment(t *testing.T, s store.Store, name string, headID *int64) model.Department {
	t.Helper()

	d := model.Department{Name: name, HeadID: headID}
	if err := s.CreateDepartment(context.Background(), &d); err != nil {
		t.Fatalf("seeding department %s: %v", name, err)
	}
	return d
}

// SeedSLA creates an SLA template and returns it.
func SeedSLA(t *testing.T, s store.Store, name string, tier model.SLATier, hrs int) model.SLATemplate {
	t.Helper()

	sla := model.SLATemplate{Name: name, Tier: tier, DurationHrs: hrs}
	if err := s.CreateSLA(context.Background(), &sla); err != nil {
		t.Fatalf("seeding sla %s: %v", name, err)
	}
	return sla
}
