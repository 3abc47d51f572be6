package core

import (
	"sort"

	"skillcore/pkg/domain"
)

// Cascade computation is a pure function over a read snapshot: the facade
// first computes the full dependent closure, embeds it in the ledger entry,
// and only then applies the deletes. Keeping the computation free of
// mutation lets it be tested independently of the ledger machinery.

// cascadeForCategory collects the category's subcategory subtree (parents
// before children), the skills attached to any of those subcategories, and
// every assessment referencing those skills.
func cascadeForCategory(view domain.TransactionView, categoryID string) domain.CascadeSnapshot {
	subs := subtreeSubCategories(view, categoryID, NodeCategory)
	return snapshotForSubtree(view, subs)
}

// cascadeForSubCategory collects the node's descendant subtree (the node
// itself is the primary entity and not part of the cascade), plus skills of
// the node and the subtree, plus their assessments.
func cascadeForSubCategory(view domain.TransactionView, subCategoryID string) domain.CascadeSnapshot {
	subs := subtreeSubCategories(view, subCategoryID, NodeSubCategory)
	snapshot := snapshotForSubtree(view, subs)

	// Skills attached directly to the deleted node cascade as well.
	own := skillsOf(view, subCategoryID)
	snapshot.Skills = append(snapshot.Skills, own...)
	sortSkills(snapshot.Skills)
	snapshot.Assessments = assessmentsForSkills(view, snapshot.Skills)
	return snapshot
}

// cascadeForSkill collects every assessment referencing the skill.
func cascadeForSkill(view domain.TransactionView, skillID string) domain.CascadeSnapshot {
	var snapshot domain.CascadeSnapshot
	for _, a := range view.ListAssessments() {
		if a.SkillID == skillID {
			snapshot.Assessments = append(snapshot.Assessments, a)
		}
	}
	return snapshot
}

// cascadeForEmployee collects the employee's assessments, qualification
// plans, and the measures belonging to those plans.
func cascadeForEmployee(view domain.TransactionView, employeeID string) domain.CascadeSnapshot {
	var snapshot domain.CascadeSnapshot
	for _, a := range view.ListAssessments() {
		if a.EmployeeID == employeeID {
			snapshot.Assessments = append(snapshot.Assessments, a)
		}
	}
	planIDs := make(map[string]struct{})
	for _, p := range view.ListQualificationPlans() {
		if p.EmployeeID == employeeID {
			snapshot.Plans = append(snapshot.Plans, p)
			planIDs[p.ID] = struct{}{}
		}
	}
	for _, m := range view.ListQualificationMeasures() {
		if _, ok := planIDs[m.PlanID]; ok {
			snapshot.Measures = append(snapshot.Measures, m)
		}
	}
	return snapshot
}

// cascadeForQualificationPlan collects the plan's measures.
func cascadeForQualificationPlan(view domain.TransactionView, planID string) domain.CascadeSnapshot {
	var snapshot domain.CascadeSnapshot
	for _, m := range view.ListQualificationMeasures() {
		if m.PlanID == planID {
			snapshot.Measures = append(snapshot.Measures, m)
		}
	}
	return snapshot
}

// subtreeSubCategories returns the descendant subcategories of a node in
// breadth-first order, guaranteeing parents precede children so a restore
// can reinsert them in dependency order. The visited set guards against
// malformed cyclic parent pointers.
func subtreeSubCategories(view domain.TransactionView, nodeID string, kind NodeKind) []domain.SubCategory {
	children := make(map[string][]domain.SubCategory)
	roots := make(map[string][]domain.SubCategory)
	for _, sc := range view.ListSubCategories() {
		if sc.ParentSubCategoryID != nil {
			parent := *sc.ParentSubCategoryID
			children[parent] = append(children[parent], sc)
			continue
		}
		roots[sc.CategoryID] = append(roots[sc.CategoryID], sc)
	}
	for _, bucket := range children {
		sortSubCategories(bucket)
	}
	for _, bucket := range roots {
		sortSubCategories(bucket)
	}

	var queue []domain.SubCategory
	switch kind {
	case NodeCategory:
		queue = append(queue, roots[nodeID]...)
	case NodeSubCategory:
		queue = append(queue, children[nodeID]...)
	}

	visited := map[string]struct{}{nodeID: {}}
	var out []domain.SubCategory
	for len(queue) > 0 {
		sc := queue[0]
		queue = queue[1:]
		if _, seen := visited[sc.ID]; seen {
			continue
		}
		visited[sc.ID] = struct{}{}
		out = append(out, sc)
		queue = append(queue, children[sc.ID]...)
	}
	return out
}

func snapshotForSubtree(view domain.TransactionView, subs []domain.SubCategory) domain.CascadeSnapshot {
	snapshot := domain.CascadeSnapshot{SubCategories: subs}
	for _, sc := range subs {
		snapshot.Skills = append(snapshot.Skills, skillsOf(view, sc.ID)...)
	}
	sortSkills(snapshot.Skills)
	snapshot.Assessments = assessmentsForSkills(view, snapshot.Skills)
	return snapshot
}

func skillsOf(view domain.TransactionView, subCategoryID string) []domain.Skill {
	var out []domain.Skill
	for _, sk := range view.ListSkills() {
		if sk.SubCategoryID == subCategoryID {
			out = append(out, sk)
		}
	}
	return out
}

func assessmentsForSkills(view domain.TransactionView, skills []domain.Skill) []domain.Assessment {
	ids := make(map[string]struct{}, len(skills))
	for _, sk := range skills {
		ids[sk.ID] = struct{}{}
	}
	var out []domain.Assessment
	for _, a := range view.ListAssessments() {
		if _, ok := ids[a.SkillID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func sortSubCategories(subs []domain.SubCategory) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
}

func sortSkills(skills []domain.Skill) {
	sort.Slice(skills, func(i, j int) bool { return skills[i].ID < skills[j].ID })
}
