package core

import (
	"context"
	"testing"

	"skillcore/internal/infra/persistence/memory"
	"skillcore/pkg/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewStore())
}

// taxonomyFixture is a service pre-populated with one category, one
// subcategory, and one skill, mirroring the minimal reporting setup.
type taxonomyFixture struct {
	svc      *Service
	category Category
	sub      SubCategory
	skill    Skill
}

func newTaxonomyFixture(t *testing.T) taxonomyFixture {
	t.Helper()
	ctx := context.Background()
	svc := newTestService(t)

	category, err := svc.AddCategory(ctx, Category{Name: "Engineering"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	sub, err := svc.AddSubCategory(ctx, SubCategory{Name: "Backend", CategoryID: category.ID})
	if err != nil {
		t.Fatalf("add subcategory: %v", err)
	}
	skill, err := svc.AddSkill(ctx, Skill{Name: "API Design", SubCategoryID: sub.ID})
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	return taxonomyFixture{svc: svc, category: category, sub: sub, skill: skill}
}

func (f taxonomyFixture) addEmployee(t *testing.T, name string, roleIDs ...string) Employee {
	t.Helper()
	employee, err := f.svc.AddEmployee(context.Background(), Employee{Name: name, RoleIDs: roleIDs})
	if err != nil {
		t.Fatalf("add employee %s: %v", name, err)
	}
	return employee
}

func (f taxonomyFixture) addRole(t *testing.T, role Role) Role {
	t.Helper()
	created, err := f.svc.AddRole(context.Background(), role)
	if err != nil {
		t.Fatalf("add role %s: %v", role.Name, err)
	}
	return created
}

func (f taxonomyFixture) assess(t *testing.T, employeeID, skillID string, level Level) {
	t.Helper()
	if _, err := f.svc.SetAssessmentLevel(context.Background(), employeeID, skillID, level); err != nil {
		t.Fatalf("set level: %v", err)
	}
}

// withView runs fn against a read snapshot of the service's store.
func withView(t *testing.T, svc *Service, fn func(domain.TransactionView)) {
	t.Helper()
	err := svc.store.View(context.Background(), func(view domain.TransactionView) error {
		fn(view)
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
