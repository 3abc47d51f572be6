// Package core implements the skill-assessment engine: hierarchy resolution,
// role target inheritance, roll-up aggregation, cascade-aware deletes, and
// the change ledger with undo. The Service type is the only mutation path
// offered to external collaborators.
package core

import "skillcore/pkg/domain"

type (
	EntityType           = domain.EntityType
	Level                = domain.Level
	Category             = domain.Category
	SubCategory          = domain.SubCategory
	Skill                = domain.Skill
	Employee             = domain.Employee
	Department           = domain.Department
	Role                 = domain.Role
	RoleRequirement      = domain.RoleRequirement
	Assessment           = domain.Assessment
	QualificationPlan    = domain.QualificationPlan
	QualificationMeasure = domain.QualificationMeasure
	SavedView            = domain.SavedView
	ChangeEntry          = domain.ChangeEntry
	CascadeSnapshot      = domain.CascadeSnapshot
	Action               = domain.Action
	Transaction          = domain.Transaction
	TransactionView      = domain.TransactionView
	PersistentStore      = domain.PersistentStore
)

const (
	EntityCategory             = domain.EntityCategory
	EntitySubCategory          = domain.EntitySubCategory
	EntitySkill                = domain.EntitySkill
	EntityEmployee             = domain.EntityEmployee
	EntityDepartment           = domain.EntityDepartment
	EntityRole                 = domain.EntityRole
	EntityAssessment           = domain.EntityAssessment
	EntityQualificationPlan    = domain.EntityQualificationPlan
	EntityQualificationMeasure = domain.EntityQualificationMeasure
	EntitySavedView            = domain.EntitySavedView
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	LevelNotApplicable = domain.LevelNotApplicable
	LevelNone          = domain.LevelNone
	LevelBasic         = domain.LevelBasic
	LevelIntermediate  = domain.LevelIntermediate
	LevelAdvanced      = domain.LevelAdvanced
	LevelExpert        = domain.LevelExpert
)
