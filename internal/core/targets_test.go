package core

import (
	"context"
	"testing"

	"skillcore/pkg/domain"
)

func TestRoleTargetOwnDeclarationWins(t *testing.T) {
	f := newTaxonomyFixture(t)
	parent := f.addRole(t, Role{
		Name:           "Engineer",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelExpert}},
	})
	child := f.addRole(t, Role{
		Name:           "Junior Engineer",
		InheritsFromID: &parent.ID,
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelBasic}},
	})

	withView(t, f.svc, func(view domain.TransactionView) {
		level, ok := f.svc.targets.RoleTarget(view, child.ID, f.skill.ID)
		if !ok {
			t.Fatalf("expected a requirement")
		}
		if level != LevelBasic {
			t.Fatalf("own declaration must win over ancestor: got %d", level)
		}
	})
}

func TestRoleTargetWalksInheritanceChain(t *testing.T) {
	f := newTaxonomyFixture(t)
	grand := f.addRole(t, Role{
		Name:           "Principal",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelAdvanced}},
	})
	parent := f.addRole(t, Role{Name: "Senior", InheritsFromID: &grand.ID})
	child := f.addRole(t, Role{Name: "Mid", InheritsFromID: &parent.ID})

	withView(t, f.svc, func(view domain.TransactionView) {
		level, ok := f.svc.targets.RoleTarget(view, child.ID, f.skill.ID)
		if !ok || level != LevelAdvanced {
			t.Fatalf("expected inherited target 75, got (%d, %v)", level, ok)
		}
	})
}

func TestRoleTargetByNameFallback(t *testing.T) {
	f := newTaxonomyFixture(t)
	f.addRole(t, Role{
		Name:           "Architect",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelIntermediate}},
	})

	withView(t, f.svc, func(view domain.TransactionView) {
		level, ok := f.svc.targets.RoleTarget(view, "Architect", f.skill.ID)
		if !ok || level != LevelIntermediate {
			t.Fatalf("expected name-based resolution, got (%d, %v)", level, ok)
		}
	})
}

func TestRoleTargetInheritanceCycleTerminates(t *testing.T) {
	f := newTaxonomyFixture(t)
	a := f.addRole(t, Role{Name: "A"})
	b := f.addRole(t, Role{Name: "B", InheritsFromID: &a.ID})
	// Close the cycle: A now inherits from B.
	if _, err := f.svc.UpdateRole(context.Background(), a.ID, func(r *Role) error {
		r.InheritsFromID = &b.ID
		return nil
	}); err != nil {
		t.Fatalf("update role: %v", err)
	}

	withView(t, f.svc, func(view domain.TransactionView) {
		if _, ok := f.svc.targets.RoleTarget(view, a.ID, f.skill.ID); ok {
			t.Fatalf("cycle must resolve to no requirement")
		}
	})
}

func TestEmployeeTargetMaxAcrossRoles(t *testing.T) {
	f := newTaxonomyFixture(t)
	low := f.addRole(t, Role{
		Name:           "Support",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelBasic}},
	})
	high := f.addRole(t, Role{
		Name:           "Lead",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelExpert}},
	})
	employee := f.addEmployee(t, "Mara", low.ID, high.ID)

	withView(t, f.svc, func(view domain.TransactionView) {
		level, ok := f.svc.targets.EmployeeTarget(view, employee.ID, f.skill.ID)
		if !ok || level != LevelExpert {
			t.Fatalf("expected max across roles 100, got (%d, %v)", level, ok)
		}
	})
}

func TestEmployeeTargetNoneWithoutRequirements(t *testing.T) {
	f := newTaxonomyFixture(t)
	role := f.addRole(t, Role{Name: "Intern"})
	employee := f.addEmployee(t, "Ben", role.ID)

	withView(t, f.svc, func(view domain.TransactionView) {
		if _, ok := f.svc.targets.EmployeeTarget(view, employee.ID, f.skill.ID); ok {
			t.Fatalf("expected no requirement")
		}
	})
}
