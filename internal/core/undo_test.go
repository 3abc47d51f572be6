package core

import (
	"context"
	"errors"
	"testing"

	"skillcore/pkg/domain"
)

func TestUndoCreateRemovesEntity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	category, err := svc.AddCategory(ctx, Category{Name: "Engineering"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	entry := svc.RecentHistory(1)[0]

	if err := svc.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	withView(t, svc, func(view domain.TransactionView) {
		if _, ok := view.FindCategory(category.ID); ok {
			t.Fatalf("undone create must remove the entity")
		}
	})
	undone, ok := svc.History(entry.ID)
	if !ok || !undone.Undone {
		t.Fatalf("entry should be marked undone: %+v", undone)
	}
}

func TestUndoUpdateRestoresPreviousState(t *testing.T) {
	ctx := context.Background()
	f := newTaxonomyFixture(t)

	if _, err := f.svc.UpdateSkill(ctx, f.skill.ID, func(sk *Skill) error {
		sk.Name = "API Design & Review"
		return nil
	}); err != nil {
		t.Fatalf("update skill: %v", err)
	}
	entry := f.svc.RecentHistory(1)[0]

	if err := f.svc.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	withView(t, f.svc, func(view domain.TransactionView) {
		sk, ok := view.FindSkill(f.skill.ID)
		if !ok {
			t.Fatalf("skill disappeared")
		}
		if sk.Name != "API Design" {
			t.Fatalf("previous name not restored: %q", sk.Name)
		}
	})
}

func TestUndoDeleteRestoresFullCascade(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	category, err := svc.AddCategory(ctx, Category{Name: "Engineering"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	var skills []Skill
	for _, subName := range []string{"Backend", "Frontend"} {
		sub, err := svc.AddSubCategory(ctx, SubCategory{Name: subName, CategoryID: category.ID})
		if err != nil {
			t.Fatalf("add subcategory %s: %v", subName, err)
		}
		for _, skillName := range []string{subName + " Architecture", subName + " Testing"} {
			sk, err := svc.AddSkill(ctx, Skill{Name: skillName, SubCategoryID: sub.ID})
			if err != nil {
				t.Fatalf("add skill %s: %v", skillName, err)
			}
			skills = append(skills, sk)
		}
	}
	employee, err := svc.AddEmployee(ctx, Employee{Name: "Anna"})
	if err != nil {
		t.Fatalf("add employee: %v", err)
	}
	for _, sk := range skills {
		if _, err := svc.SetAssessmentLevel(ctx, employee.ID, sk.ID, LevelIntermediate); err != nil {
			t.Fatalf("assess %s: %v", sk.Name, err)
		}
	}

	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	withView(t, svc, func(view domain.TransactionView) {
		if len(view.ListSubCategories()) != 0 || len(view.ListSkills()) != 0 || len(view.ListAssessments()) != 0 {
			t.Fatalf("cascade delete left dependents behind")
		}
	})

	entry := svc.RecentHistory(1)[0]
	if entry.Action != ActionDelete {
		t.Fatalf("expected delete entry, got %+v", entry)
	}
	if err := svc.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}

	// One category, two subcategories, four skills, four assessments.
	withView(t, svc, func(view domain.TransactionView) {
		if _, ok := view.FindCategory(category.ID); !ok {
			t.Fatalf("category not restored")
		}
		if n := len(view.ListSubCategories()); n != 2 {
			t.Fatalf("expected 2 subcategories, got %d", n)
		}
		if n := len(view.ListSkills()); n != 4 {
			t.Fatalf("expected 4 skills, got %d", n)
		}
		if n := len(view.ListAssessments()); n != 4 {
			t.Fatalf("expected 4 assessments, got %d", n)
		}
		for _, sk := range skills {
			if _, ok := view.FindAssessment(employee.ID, sk.ID); !ok {
				t.Fatalf("assessment for %s not restored", sk.Name)
			}
		}
	})
}

func TestUndoRestoreInvalidatesHierarchyMemo(t *testing.T) {
	ctx := context.Background()
	f := newTaxonomyFixture(t)

	ids, err := f.svc.DescendantSkillIDs(ctx, f.category.ID, NodeCategory)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 skill, got %v", ids)
	}

	if err := f.svc.DeleteSkill(ctx, f.skill.ID); err != nil {
		t.Fatalf("delete skill: %v", err)
	}
	ids, err = f.svc.DescendantSkillIDs(ctx, f.category.ID, NodeCategory)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("deleted skill still resolved: %v", ids)
	}

	entry := f.svc.RecentHistory(1)[0]
	if err := f.svc.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	ids, err = f.svc.DescendantSkillIDs(ctx, f.category.ID, NodeCategory)
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(ids) != 1 || ids[0] != f.skill.ID {
		t.Fatalf("restored skill must resolve again, got %v", ids)
	}
}

func TestUndoIsOncePerEntry(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.AddCategory(ctx, Category{Name: "Engineering"}); err != nil {
		t.Fatalf("add category: %v", err)
	}
	entry := svc.RecentHistory(1)[0]

	if err := svc.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	err := svc.Undo(ctx, entry.ID)
	var undoErr domain.UndoError
	if !errors.As(err, &undoErr) {
		t.Fatalf("expected UndoError on repeat, got %v", err)
	}
}

func TestUndoUnknownEntry(t *testing.T) {
	svc := newTestService(t)
	err := svc.Undo(context.Background(), "no-such-entry")
	var undoErr domain.UndoError
	if !errors.As(err, &undoErr) {
		t.Fatalf("expected UndoError, got %v", err)
	}
}

func TestUndoDoesNotAppendLedgerEntries(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.AddCategory(ctx, Category{Name: "Engineering"}); err != nil {
		t.Fatalf("add category: %v", err)
	}
	entry := svc.RecentHistory(1)[0]
	if err := svc.Undo(ctx, entry.ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if n := len(svc.RecentHistory(0)); n != 1 {
		t.Fatalf("undo must mark in place, not append; got %d entries", n)
	}
}

func TestUndoRoleMutationsKeepSkillBackEdges(t *testing.T) {
	ctx := context.Background()
	f := newTaxonomyFixture(t)

	role := f.addRole(t, Role{
		Name:           "Engineer",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelAdvanced}},
	})
	createEntry := f.svc.RecentHistory(1)[0]

	if err := f.svc.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	withView(t, f.svc, func(view domain.TransactionView) {
		sk, _ := view.FindSkill(f.skill.ID)
		if len(sk.RequiredByRoleIDs) != 0 {
			t.Fatalf("delete must clear the back-edge: %+v", sk.RequiredByRoleIDs)
		}
	})

	deleteEntry := f.svc.RecentHistory(1)[0]
	if err := f.svc.Undo(ctx, deleteEntry.ID); err != nil {
		t.Fatalf("undo delete: %v", err)
	}
	withView(t, f.svc, func(view domain.TransactionView) {
		if _, ok := view.FindRole(role.ID); !ok {
			t.Fatalf("role not restored")
		}
		sk, _ := view.FindSkill(f.skill.ID)
		if len(sk.RequiredByRoleIDs) != 1 || sk.RequiredByRoleIDs[0] != role.ID {
			t.Fatalf("undone delete must restore the back-edge: %+v", sk.RequiredByRoleIDs)
		}
	})

	// Undoing the original create removes the role and the back-edge again.
	if err := f.svc.Undo(ctx, createEntry.ID); err != nil {
		t.Fatalf("undo create: %v", err)
	}
	withView(t, f.svc, func(view domain.TransactionView) {
		sk, _ := view.FindSkill(f.skill.ID)
		if len(sk.RequiredByRoleIDs) != 0 {
			t.Fatalf("undone create must clear the back-edge: %+v", sk.RequiredByRoleIDs)
		}
	})
}
