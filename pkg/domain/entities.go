// Package domain defines the persistent entities, proficiency levels, change
// ledger types, and persistence contracts used by skillcore.
package domain

import (
	"encoding/json"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in ChangeEntry records and persistence buckets.
const (
	// EntityCategory identifies a top-level taxonomy category.
	EntityCategory EntityType = "category"
	// EntitySubCategory identifies a subcategory node in the taxonomy tree.
	EntitySubCategory EntityType = "subcategory"
	// EntitySkill identifies a skill attached to a subcategory.
	EntitySkill EntityType = "skill"
	// EntityEmployee identifies an employee record.
	EntityEmployee EntityType = "employee"
	// EntityDepartment identifies a department record.
	EntityDepartment EntityType = "department"
	// EntityRole identifies a role record, possibly inheriting from another role.
	EntityRole EntityType = "role"
	// EntityAssessment identifies a per-(employee,skill) assessment record.
	EntityAssessment EntityType = "assessment"
	// EntityQualificationPlan identifies a qualification plan record.
	EntityQualificationPlan EntityType = "qualification_plan"
	// EntityQualificationMeasure identifies a measure belonging to a plan.
	EntityQualificationMeasure EntityType = "qualification_measure"
	// EntitySavedView identifies a stored presentation view configuration.
	EntitySavedView EntityType = "saved_view"
)

// Level is a proficiency value on the five-step assessment scale. The value
// -1 is a sentinel meaning "not applicable": the skill is excluded from
// aggregation for the employee that carries it.
type Level int

// Assessment levels. LevelNotApplicable excludes a pair from aggregation.
const (
	LevelNotApplicable Level = -1
	LevelNone          Level = 0
	LevelBasic         Level = 25
	LevelIntermediate  Level = 50
	LevelAdvanced      Level = 75
	LevelExpert        Level = 100
)

// Valid reports whether the level is one of the defined scale steps.
func (l Level) Valid() bool {
	switch l {
	case LevelNotApplicable, LevelNone, LevelBasic, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

// Base carries the identity and bookkeeping fields shared by all entities.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category is a root node of the skill taxonomy. Categories have no parent.
type Category struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SubCategory belongs to exactly one category. CategoryID is denormalized on
// every node, including deeply nested ones; ParentSubCategoryID forms a tree
// rooted at subcategories with no parent.
type SubCategory struct {
	Base
	CategoryID          string  `json:"category_id"`
	ParentSubCategoryID *string `json:"parent_subcategory_id,omitempty"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
}

// Skill belongs to exactly one subcategory; skills may attach to interior
// nodes of the tree, not only to leaves.
type Skill struct {
	Base
	SubCategoryID     string   `json:"subcategory_id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	DepartmentID      *string  `json:"department_id,omitempty"`
	RequiredByRoleIDs []string `json:"required_by_role_ids,omitempty"`
}

// Employee is an assessed person, optionally assigned to a department and any
// number of roles.
type Employee struct {
	Base
	Name         string   `json:"name"`
	DepartmentID *string  `json:"department_id,omitempty"`
	RoleIDs      []string `json:"role_ids,omitempty"`
}

// Department groups employees and optionally scopes skills.
type Department struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RoleRequirement declares the target level a role demands for a skill.
type RoleRequirement struct {
	SkillID string `json:"skill_id"`
	Level   Level  `json:"level"`
}

// Role describes a job role. InheritsFromID forms a directed inheritance
// graph that must be acyclic; cycles are detected at resolution time, not at
// write time.
type Role struct {
	Base
	Name           string            `json:"name"`
	InheritsFromID *string           `json:"inherits_from_id,omitempty"`
	RequiredSkills []RoleRequirement `json:"required_skills,omitempty"`
}

// Assessment records an employee's level for a skill, keyed uniquely by the
// (EmployeeID, SkillID) pair. Absence of a row is semantically distinct from
// an explicit level. TargetLevel is an optional individual target that
// competes with role-derived targets during fulfillment aggregation.
type Assessment struct {
	Base
	EmployeeID  string `json:"employee_id"`
	SkillID     string `json:"skill_id"`
	Level       Level  `json:"level"`
	TargetLevel *Level `json:"target_level,omitempty"`
}

// QualificationPlan collects development measures for an employee.
type QualificationPlan struct {
	Base
	EmployeeID  string `json:"employee_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// QualificationMeasure is a single step inside a qualification plan,
// optionally linked to a skill.
type QualificationMeasure struct {
	Base
	PlanID    string     `json:"plan_id"`
	SkillID   *string    `json:"skill_id,omitempty"`
	Title     string     `json:"title"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Completed bool       `json:"completed"`
}

// SavedView stores an opaque presentation-layer view configuration. The core
// only persists it; the payload is never interpreted.
type SavedView struct {
	Base
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config,omitempty"`
}

// CloneCategory returns a deep copy of the category.
func CloneCategory(c Category) Category { return c }

// CloneSubCategory returns a deep copy of the subcategory.
func CloneSubCategory(s SubCategory) SubCategory {
	cp := s
	if s.ParentSubCategoryID != nil {
		v := *s.ParentSubCategoryID
		cp.ParentSubCategoryID = &v
	}
	return cp
}

// CloneSkill returns a deep copy of the skill.
func CloneSkill(s Skill) Skill {
	cp := s
	if s.DepartmentID != nil {
		v := *s.DepartmentID
		cp.DepartmentID = &v
	}
	cp.RequiredByRoleIDs = append([]string(nil), s.RequiredByRoleIDs...)
	return cp
}

// CloneEmployee returns a deep copy of the employee.
func CloneEmployee(e Employee) Employee {
	cp := e
	if e.DepartmentID != nil {
		v := *e.DepartmentID
		cp.DepartmentID = &v
	}
	cp.RoleIDs = append([]string(nil), e.RoleIDs...)
	return cp
}

// CloneDepartment returns a deep copy of the department.
func CloneDepartment(d Department) Department { return d }

// CloneRole returns a deep copy of the role.
func CloneRole(r Role) Role {
	cp := r
	if r.InheritsFromID != nil {
		v := *r.InheritsFromID
		cp.InheritsFromID = &v
	}
	cp.RequiredSkills = append([]RoleRequirement(nil), r.RequiredSkills...)
	return cp
}

// CloneAssessment returns a deep copy of the assessment.
func CloneAssessment(a Assessment) Assessment {
	cp := a
	if a.TargetLevel != nil {
		v := *a.TargetLevel
		cp.TargetLevel = &v
	}
	return cp
}

// CloneQualificationPlan returns a deep copy of the plan.
func CloneQualificationPlan(p QualificationPlan) QualificationPlan { return p }

// CloneQualificationMeasure returns a deep copy of the measure.
func CloneQualificationMeasure(m QualificationMeasure) QualificationMeasure {
	cp := m
	if m.SkillID != nil {
		v := *m.SkillID
		cp.SkillID = &v
	}
	if m.DueDate != nil {
		v := *m.DueDate
		cp.DueDate = &v
	}
	return cp
}

// CloneSavedView returns a deep copy of the saved view.
func CloneSavedView(v SavedView) SavedView {
	cp := v
	cp.Config = append(json.RawMessage(nil), v.Config...)
	return cp
}
