package core

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"skillcore/pkg/domain"
)

func TestDescendantResolutionOverNestedTree(t *testing.T) {
	ctx := context.Background()
	f := newTaxonomyFixture(t)

	nested, err := f.svc.AddSubCategory(ctx, SubCategory{
		Name:                "Persistence",
		CategoryID:          f.category.ID,
		ParentSubCategoryID: &f.sub.ID,
	})
	if err != nil {
		t.Fatalf("add nested subcategory: %v", err)
	}
	deep, err := f.svc.AddSkill(ctx, Skill{Name: "SQL", SubCategoryID: nested.ID})
	if err != nil {
		t.Fatalf("add deep skill: %v", err)
	}

	withView(t, f.svc, func(view domain.TransactionView) {
		subs := f.svc.hierarchy.DescendantSubCategoryIDs(view, f.category.ID, NodeCategory)
		want := []string{f.sub.ID, nested.ID}
		sort.Strings(want)
		if !reflect.DeepEqual(subs, want) {
			t.Fatalf("category closure mismatch: got %v want %v", subs, want)
		}

		skills := f.svc.hierarchy.DescendantSkillIDs(view, f.category.ID, NodeCategory)
		wantSkills := []string{f.skill.ID, deep.ID}
		sort.Strings(wantSkills)
		if !reflect.DeepEqual(skills, wantSkills) {
			t.Fatalf("skill closure mismatch: got %v want %v", skills, wantSkills)
		}

		// Starting at the nested node sees only its own skill.
		skills = f.svc.hierarchy.DescendantSkillIDs(view, nested.ID, NodeSubCategory)
		if !reflect.DeepEqual(skills, []string{deep.ID}) {
			t.Fatalf("subcategory closure mismatch: got %v", skills)
		}
	})
}

func TestHierarchyMemoInvalidatedByStructuralChange(t *testing.T) {
	ctx := context.Background()
	f := newTaxonomyFixture(t)

	withView(t, f.svc, func(view domain.TransactionView) {
		skills := f.svc.hierarchy.DescendantSkillIDs(view, f.category.ID, NodeCategory)
		if len(skills) != 1 {
			t.Fatalf("expected one skill, got %v", skills)
		}
	})

	added, err := f.svc.AddSkill(ctx, Skill{Name: "SQL", SubCategoryID: f.sub.ID})
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}

	// The taxonomy mutation bumped the structural version; the stale memo
	// entry must not be served.
	withView(t, f.svc, func(view domain.TransactionView) {
		skills := f.svc.hierarchy.DescendantSkillIDs(view, f.category.ID, NodeCategory)
		if len(skills) != 2 {
			t.Fatalf("expected closure to include %s, got %v", added.ID, skills)
		}
	})
}

func TestHierarchyCyclicParentPointersTerminate(t *testing.T) {
	ctx := context.Background()
	f := newTaxonomyFixture(t)

	// Put bypasses create validation, which is exactly how malformed state
	// would arrive from a corrupted snapshot.
	second, err := f.svc.AddSubCategory(ctx, SubCategory{
		Name:                "Inner",
		CategoryID:          f.category.ID,
		ParentSubCategoryID: &f.sub.ID,
	})
	if err != nil {
		t.Fatalf("add subcategory: %v", err)
	}
	err = f.svc.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		cyclic := f.sub
		cyclic.ParentSubCategoryID = &second.ID
		return tx.PutSubCategory(cyclic)
	})
	if err != nil {
		t.Fatalf("inject cycle: %v", err)
	}

	withView(t, f.svc, func(view domain.TransactionView) {
		// Both nodes now claim the other as parent; the walk must terminate
		// and still return a bounded result.
		ids := f.svc.hierarchy.DescendantSubCategoryIDs(view, f.sub.ID, NodeSubCategory)
		if len(ids) > 2 {
			t.Fatalf("cycle walk escaped: %v", ids)
		}
	})
}
