package domain

import "context"

// Transaction exposes the domain operations a persistence implementation must
// support within one atomic scope. Create assigns an id when absent and
// rejects duplicates; Update applies a mutator to the current value; Delete
// removes a single record without cascading; Put blindly upserts a record
// verbatim, preserving id and timestamps, and exists for ledger undo replay.
type Transaction interface {
	Snapshot() TransactionView

	CreateCategory(Category) (Category, error)
	UpdateCategory(id string, mutator func(*Category) error) (Category, error)
	DeleteCategory(id string) error
	PutCategory(Category) error

	CreateSubCategory(SubCategory) (SubCategory, error)
	UpdateSubCategory(id string, mutator func(*SubCategory) error) (SubCategory, error)
	DeleteSubCategory(id string) error
	PutSubCategory(SubCategory) error

	CreateSkill(Skill) (Skill, error)
	UpdateSkill(id string, mutator func(*Skill) error) (Skill, error)
	DeleteSkill(id string) error
	PutSkill(Skill) error

	CreateEmployee(Employee) (Employee, error)
	UpdateEmployee(id string, mutator func(*Employee) error) (Employee, error)
	DeleteEmployee(id string) error
	PutEmployee(Employee) error

	CreateDepartment(Department) (Department, error)
	UpdateDepartment(id string, mutator func(*Department) error) (Department, error)
	DeleteDepartment(id string) error
	PutDepartment(Department) error

	CreateRole(Role) (Role, error)
	UpdateRole(id string, mutator func(*Role) error) (Role, error)
	DeleteRole(id string) error
	PutRole(Role) error

	CreateAssessment(Assessment) (Assessment, error)
	UpdateAssessment(id string, mutator func(*Assessment) error) (Assessment, error)
	DeleteAssessment(id string) error
	PutAssessment(Assessment) error

	CreateQualificationPlan(QualificationPlan) (QualificationPlan, error)
	UpdateQualificationPlan(id string, mutator func(*QualificationPlan) error) (QualificationPlan, error)
	DeleteQualificationPlan(id string) error
	PutQualificationPlan(QualificationPlan) error

	CreateQualificationMeasure(QualificationMeasure) (QualificationMeasure, error)
	UpdateQualificationMeasure(id string, mutator func(*QualificationMeasure) error) (QualificationMeasure, error)
	DeleteQualificationMeasure(id string) error
	PutQualificationMeasure(QualificationMeasure) error

	CreateSavedView(SavedView) (SavedView, error)
	UpdateSavedView(id string, mutator func(*SavedView) error) (SavedView, error)
	DeleteSavedView(id string) error
	PutSavedView(SavedView) error

	// AppendChange appends a ledger entry within the transaction, assigning
	// an id and timestamp when absent.
	AppendChange(ChangeEntry) (ChangeEntry, error)
	// MarkChangeUndone flips an entry's undone flag. It fails when the entry
	// is missing or already undone.
	MarkChangeUndone(id string) error
}

// TransactionView provides read-only access to a consistent state snapshot.
// Resolvers and the aggregation engine operate exclusively against views.
type TransactionView interface {
	ListCategories() []Category
	FindCategory(id string) (Category, bool)
	ListSubCategories() []SubCategory
	FindSubCategory(id string) (SubCategory, bool)
	ListSkills() []Skill
	FindSkill(id string) (Skill, bool)
	ListEmployees() []Employee
	FindEmployee(id string) (Employee, bool)
	ListDepartments() []Department
	FindDepartment(id string) (Department, bool)
	ListRoles() []Role
	FindRole(id string) (Role, bool)
	ListAssessments() []Assessment
	FindAssessment(employeeID, skillID string) (Assessment, bool)
	ListQualificationPlans() []QualificationPlan
	FindQualificationPlan(id string) (QualificationPlan, bool)
	ListQualificationMeasures() []QualificationMeasure
	ListSavedViews() []SavedView
	FindSavedView(id string) (SavedView, bool)

	// ListChanges returns ledger entries oldest first.
	ListChanges() []ChangeEntry
	FindChange(id string) (ChangeEntry, bool)

	// StructuralVersion is a counter incremented by every committed mutation
	// of a category, subcategory, or skill. Hierarchy memoization keys on it.
	StructuralVersion() uint64
}

// PersistentStore is the abstraction over durable backends consumed by the
// mutation facade. It mirrors the subset of store capabilities used directly
// by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	StructuralVersion() uint64

	// RecentChanges returns ledger entries newest first; n <= 0 returns all.
	RecentChanges(n int) []ChangeEntry
	ChangeByID(id string) (ChangeEntry, bool)
}
