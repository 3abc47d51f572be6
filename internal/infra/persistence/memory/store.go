// Package memory provides the canonical in-memory transactional store. It is
// used directly for tests and ephemeral environments and embedded by the
// durable sqlite and postgres stores, which snapshot its state after every
// committed transaction.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

const pairSep = "\x00"

func pairKey(employeeID, skillID string) string {
	return employeeID + pairSep + skillID
}

type memoryState struct {
	categories    map[string]domain.Category
	subcategories map[string]domain.SubCategory
	skills        map[string]domain.Skill
	employees     map[string]domain.Employee
	departments   map[string]domain.Department
	roles         map[string]domain.Role
	assessments   map[string]domain.Assessment
	// assessmentPairs indexes assessment ids by (employee, skill) pair to
	// enforce pair uniqueness and serve point lookups.
	assessmentPairs map[string]string
	plans           map[string]domain.QualificationPlan
	measures        map[string]domain.QualificationMeasure
	views           map[string]domain.SavedView
	changes         []domain.ChangeEntry
	// structuralVersion increments whenever a category, subcategory, or
	// skill mutation commits. Hierarchy memoization keys on it.
	structuralVersion uint64
}

func newMemoryState() memoryState {
	return memoryState{
		categories:      make(map[string]domain.Category),
		subcategories:   make(map[string]domain.SubCategory),
		skills:          make(map[string]domain.Skill),
		employees:       make(map[string]domain.Employee),
		departments:     make(map[string]domain.Department),
		roles:           make(map[string]domain.Role),
		assessments:     make(map[string]domain.Assessment),
		assessmentPairs: make(map[string]string),
		plans:           make(map[string]domain.QualificationPlan),
		measures:        make(map[string]domain.QualificationMeasure),
		views:           make(map[string]domain.SavedView),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.categories {
		cloned.categories[k] = domain.CloneCategory(v)
	}
	for k, v := range s.subcategories {
		cloned.subcategories[k] = domain.CloneSubCategory(v)
	}
	for k, v := range s.skills {
		cloned.skills[k] = domain.CloneSkill(v)
	}
	for k, v := range s.employees {
		cloned.employees[k] = domain.CloneEmployee(v)
	}
	for k, v := range s.departments {
		cloned.departments[k] = domain.CloneDepartment(v)
	}
	for k, v := range s.roles {
		cloned.roles[k] = domain.CloneRole(v)
	}
	for k, v := range s.assessments {
		cloned.assessments[k] = domain.CloneAssessment(v)
	}
	for k, v := range s.assessmentPairs {
		cloned.assessmentPairs[k] = v
	}
	for k, v := range s.plans {
		cloned.plans[k] = domain.CloneQualificationPlan(v)
	}
	for k, v := range s.measures {
		cloned.measures[k] = domain.CloneQualificationMeasure(v)
	}
	for k, v := range s.views {
		cloned.views[k] = domain.CloneSavedView(v)
	}
	cloned.changes = make([]domain.ChangeEntry, 0, len(s.changes))
	for _, e := range s.changes {
		cloned.changes = append(cloned.changes, domain.CloneChangeEntry(e))
	}
	cloned.structuralVersion = s.structuralVersion
	return cloned
}

// Store provides an in-memory transactional store for the skill domain.
// A single writer is assumed; the mutex serializes transactions against
// concurrent readers.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the store clock; used by tests for deterministic timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func newID() string {
	return uuid.NewString()
}

// transaction is a mutation set applied to a cloned copy of the store state.
type transaction struct {
	state    memoryState
	recorded []domain.Change
	now      time.Time
	// structural marks taxonomy mutations so the version bumps on commit.
	structural bool
}

func (tx *transaction) record(change domain.Change) {
	tx.recorded = append(tx.recorded, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return &transactionView{state: &tx.state}
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy is swapped in only when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.structural {
		tx.state.structuralVersion++
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the committed state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(&transactionView{state: &snapshot})
}

// StructuralVersion returns the committed taxonomy version counter.
func (s *Store) StructuralVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.structuralVersion
}

// RecentChanges returns ledger entries newest first; n <= 0 returns all.
func (s *Store) RecentChanges(n int) []domain.ChangeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.state.changes)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]domain.ChangeEntry, 0, n)
	for i := total - 1; i >= total-n; i-- {
		out = append(out, domain.CloneChangeEntry(s.state.changes[i]))
	}
	return out
}

// ChangeByID retrieves a ledger entry by id from committed state.
func (s *Store) ChangeByID(id string) (domain.ChangeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.state.changes {
		if e.ID == id {
			return domain.CloneChangeEntry(e), true
		}
	}
	return domain.ChangeEntry{}, false
}

// Category ---------------------------------------------------------------

func (tx *transaction) CreateCategory(c domain.Category) (domain.Category, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if _, exists := tx.state.categories[c.ID]; exists {
		return domain.Category{}, fmt.Errorf("category %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.categories[c.ID] = domain.CloneCategory(c)
	tx.record(domain.Change{Entity: domain.EntityCategory, Action: domain.ActionCreate, After: domain.CloneCategory(c)})
	tx.structural = true
	return domain.CloneCategory(c), nil
}

func (tx *transaction) UpdateCategory(id string, mutator func(*domain.Category) error) (domain.Category, error) {
	current, ok := tx.state.categories[id]
	if !ok {
		return domain.Category{}, domain.NotFoundError{Entity: domain.EntityCategory, ID: id}
	}
	before := domain.CloneCategory(current)
	if err := mutator(&current); err != nil {
		return domain.Category{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.categories[id] = domain.CloneCategory(current)
	tx.record(domain.Change{Entity: domain.EntityCategory, Action: domain.ActionUpdate, Before: before, After: domain.CloneCategory(current)})
	tx.structural = true
	return domain.CloneCategory(current), nil
}

func (tx *transaction) DeleteCategory(id string) error {
	current, ok := tx.state.categories[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityCategory, ID: id}
	}
	delete(tx.state.categories, id)
	tx.record(domain.Change{Entity: domain.EntityCategory, Action: domain.ActionDelete, Before: domain.CloneCategory(current)})
	tx.structural = true
	return nil
}

func (tx *transaction) PutCategory(c domain.Category) error {
	if c.ID == "" {
		return fmt.Errorf("put category: missing id")
	}
	tx.state.categories[c.ID] = domain.CloneCategory(c)
	tx.record(domain.Change{Entity: domain.EntityCategory, Action: domain.ActionUpdate, After: domain.CloneCategory(c)})
	tx.structural = true
	return nil
}

// SubCategory ------------------------------------------------------------

func (tx *transaction) CreateSubCategory(sc domain.SubCategory) (domain.SubCategory, error) {
	if sc.ID == "" {
		sc.ID = newID()
	}
	if _, exists := tx.state.subcategories[sc.ID]; exists {
		return domain.SubCategory{}, fmt.Errorf("subcategory %q already exists", sc.ID)
	}
	sc.CreatedAt = tx.now
	sc.UpdatedAt = tx.now
	tx.state.subcategories[sc.ID] = domain.CloneSubCategory(sc)
	tx.record(domain.Change{Entity: domain.EntitySubCategory, Action: domain.ActionCreate, After: domain.CloneSubCategory(sc)})
	tx.structural = true
	return domain.CloneSubCategory(sc), nil
}

func (tx *transaction) UpdateSubCategory(id string, mutator func(*domain.SubCategory) error) (domain.SubCategory, error) {
	current, ok := tx.state.subcategories[id]
	if !ok {
		return domain.SubCategory{}, domain.NotFoundError{Entity: domain.EntitySubCategory, ID: id}
	}
	before := domain.CloneSubCategory(current)
	if err := mutator(&current); err != nil {
		return domain.SubCategory{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.subcategories[id] = domain.CloneSubCategory(current)
	tx.record(domain.Change{Entity: domain.EntitySubCategory, Action: domain.ActionUpdate, Before: before, After: domain.CloneSubCategory(current)})
	tx.structural = true
	return domain.CloneSubCategory(current), nil
}

func (tx *transaction) DeleteSubCategory(id string) error {
	current, ok := tx.state.subcategories[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySubCategory, ID: id}
	}
	delete(tx.state.subcategories, id)
	tx.record(domain.Change{Entity: domain.EntitySubCategory, Action: domain.ActionDelete, Before: domain.CloneSubCategory(current)})
	tx.structural = true
	return nil
}

func (tx *transaction) PutSubCategory(sc domain.SubCategory) error {
	if sc.ID == "" {
		return fmt.Errorf("put subcategory: missing id")
	}
	tx.state.subcategories[sc.ID] = domain.CloneSubCategory(sc)
	tx.record(domain.Change{Entity: domain.EntitySubCategory, Action: domain.ActionUpdate, After: domain.CloneSubCategory(sc)})
	tx.structural = true
	return nil
}

// Skill ------------------------------------------------------------------

func (tx *transaction) CreateSkill(sk domain.Skill) (domain.Skill, error) {
	if sk.ID == "" {
		sk.ID = newID()
	}
	if _, exists := tx.state.skills[sk.ID]; exists {
		return domain.Skill{}, fmt.Errorf("skill %q already exists", sk.ID)
	}
	sk.CreatedAt = tx.now
	sk.UpdatedAt = tx.now
	tx.state.skills[sk.ID] = domain.CloneSkill(sk)
	tx.record(domain.Change{Entity: domain.EntitySkill, Action: domain.ActionCreate, After: domain.CloneSkill(sk)})
	tx.structural = true
	return domain.CloneSkill(sk), nil
}

func (tx *transaction) UpdateSkill(id string, mutator func(*domain.Skill) error) (domain.Skill, error) {
	current, ok := tx.state.skills[id]
	if !ok {
		return domain.Skill{}, domain.NotFoundError{Entity: domain.EntitySkill, ID: id}
	}
	before := domain.CloneSkill(current)
	if err := mutator(&current); err != nil {
		return domain.Skill{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.skills[id] = domain.CloneSkill(current)
	tx.record(domain.Change{Entity: domain.EntitySkill, Action: domain.ActionUpdate, Before: before, After: domain.CloneSkill(current)})
	tx.structural = true
	return domain.CloneSkill(current), nil
}

func (tx *transaction) DeleteSkill(id string) error {
	current, ok := tx.state.skills[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySkill, ID: id}
	}
	delete(tx.state.skills, id)
	tx.record(domain.Change{Entity: domain.EntitySkill, Action: domain.ActionDelete, Before: domain.CloneSkill(current)})
	tx.structural = true
	return nil
}

func (tx *transaction) PutSkill(sk domain.Skill) error {
	if sk.ID == "" {
		return fmt.Errorf("put skill: missing id")
	}
	tx.state.skills[sk.ID] = domain.CloneSkill(sk)
	tx.record(domain.Change{Entity: domain.EntitySkill, Action: domain.ActionUpdate, After: domain.CloneSkill(sk)})
	tx.structural = true
	return nil
}

// Employee ---------------------------------------------------------------

func (tx *transaction) CreateEmployee(e domain.Employee) (domain.Employee, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if _, exists := tx.state.employees[e.ID]; exists {
		return domain.Employee{}, fmt.Errorf("employee %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.employees[e.ID] = domain.CloneEmployee(e)
	tx.record(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionCreate, After: domain.CloneEmployee(e)})
	return domain.CloneEmployee(e), nil
}

func (tx *transaction) UpdateEmployee(id string, mutator func(*domain.Employee) error) (domain.Employee, error) {
	current, ok := tx.state.employees[id]
	if !ok {
		return domain.Employee{}, domain.NotFoundError{Entity: domain.EntityEmployee, ID: id}
	}
	before := domain.CloneEmployee(current)
	if err := mutator(&current); err != nil {
		return domain.Employee{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.employees[id] = domain.CloneEmployee(current)
	tx.record(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionUpdate, Before: before, After: domain.CloneEmployee(current)})
	return domain.CloneEmployee(current), nil
}

func (tx *transaction) DeleteEmployee(id string) error {
	current, ok := tx.state.employees[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityEmployee, ID: id}
	}
	delete(tx.state.employees, id)
	tx.record(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionDelete, Before: domain.CloneEmployee(current)})
	return nil
}

func (tx *transaction) PutEmployee(e domain.Employee) error {
	if e.ID == "" {
		return fmt.Errorf("put employee: missing id")
	}
	tx.state.employees[e.ID] = domain.CloneEmployee(e)
	tx.record(domain.Change{Entity: domain.EntityEmployee, Action: domain.ActionUpdate, After: domain.CloneEmployee(e)})
	return nil
}

// Department -------------------------------------------------------------

func (tx *transaction) CreateDepartment(d domain.Department) (domain.Department, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	if _, exists := tx.state.departments[d.ID]; exists {
		return domain.Department{}, fmt.Errorf("department %q already exists", d.ID)
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.departments[d.ID] = domain.CloneDepartment(d)
	tx.record(domain.Change{Entity: domain.EntityDepartment, Action: domain.ActionCreate, After: domain.CloneDepartment(d)})
	return domain.CloneDepartment(d), nil
}

func (tx *transaction) UpdateDepartment(id string, mutator func(*domain.Department) error) (domain.Department, error) {
	current, ok := tx.state.departments[id]
	if !ok {
		return domain.Department{}, domain.NotFoundError{Entity: domain.EntityDepartment, ID: id}
	}
	before := domain.CloneDepartment(current)
	if err := mutator(&current); err != nil {
		return domain.Department{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.departments[id] = domain.CloneDepartment(current)
	tx.record(domain.Change{Entity: domain.EntityDepartment, Action: domain.ActionUpdate, Before: before, After: domain.CloneDepartment(current)})
	return domain.CloneDepartment(current), nil
}

func (tx *transaction) DeleteDepartment(id string) error {
	current, ok := tx.state.departments[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDepartment, ID: id}
	}
	delete(tx.state.departments, id)
	tx.record(domain.Change{Entity: domain.EntityDepartment, Action: domain.ActionDelete, Before: domain.CloneDepartment(current)})
	return nil
}

func (tx *transaction) PutDepartment(d domain.Department) error {
	if d.ID == "" {
		return fmt.Errorf("put department: missing id")
	}
	tx.state.departments[d.ID] = domain.CloneDepartment(d)
	tx.record(domain.Change{Entity: domain.EntityDepartment, Action: domain.ActionUpdate, After: domain.CloneDepartment(d)})
	return nil
}

// Role -------------------------------------------------------------------

func (tx *transaction) CreateRole(r domain.Role) (domain.Role, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if _, exists := tx.state.roles[r.ID]; exists {
		return domain.Role{}, fmt.Errorf("role %q already exists", r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.roles[r.ID] = domain.CloneRole(r)
	tx.record(domain.Change{Entity: domain.EntityRole, Action: domain.ActionCreate, After: domain.CloneRole(r)})
	return domain.CloneRole(r), nil
}

func (tx *transaction) UpdateRole(id string, mutator func(*domain.Role) error) (domain.Role, error) {
	current, ok := tx.state.roles[id]
	if !ok {
		return domain.Role{}, domain.NotFoundError{Entity: domain.EntityRole, ID: id}
	}
	before := domain.CloneRole(current)
	if err := mutator(&current); err != nil {
		return domain.Role{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.roles[id] = domain.CloneRole(current)
	tx.record(domain.Change{Entity: domain.EntityRole, Action: domain.ActionUpdate, Before: before, After: domain.CloneRole(current)})
	return domain.CloneRole(current), nil
}

func (tx *transaction) DeleteRole(id string) error {
	current, ok := tx.state.roles[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityRole, ID: id}
	}
	delete(tx.state.roles, id)
	tx.record(domain.Change{Entity: domain.EntityRole, Action: domain.ActionDelete, Before: domain.CloneRole(current)})
	return nil
}

func (tx *transaction) PutRole(r domain.Role) error {
	if r.ID == "" {
		return fmt.Errorf("put role: missing id")
	}
	tx.state.roles[r.ID] = domain.CloneRole(r)
	tx.record(domain.Change{Entity: domain.EntityRole, Action: domain.ActionUpdate, After: domain.CloneRole(r)})
	return nil
}

// Assessment -------------------------------------------------------------

func (tx *transaction) CreateAssessment(a domain.Assessment) (domain.Assessment, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if _, exists := tx.state.assessments[a.ID]; exists {
		return domain.Assessment{}, fmt.Errorf("assessment %q already exists", a.ID)
	}
	key := pairKey(a.EmployeeID, a.SkillID)
	if existing, exists := tx.state.assessmentPairs[key]; exists {
		return domain.Assessment{}, fmt.Errorf("assessment for pair already exists as %q", existing)
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.assessments[a.ID] = domain.CloneAssessment(a)
	tx.state.assessmentPairs[key] = a.ID
	tx.record(domain.Change{Entity: domain.EntityAssessment, Action: domain.ActionCreate, After: domain.CloneAssessment(a)})
	return domain.CloneAssessment(a), nil
}

func (tx *transaction) UpdateAssessment(id string, mutator func(*domain.Assessment) error) (domain.Assessment, error) {
	current, ok := tx.state.assessments[id]
	if !ok {
		return domain.Assessment{}, domain.NotFoundError{Entity: domain.EntityAssessment, ID: id}
	}
	before := domain.CloneAssessment(current)
	if err := mutator(&current); err != nil {
		return domain.Assessment{}, err
	}
	// The pair key is immutable; a mutator must not reassign the row.
	current.ID = id
	current.EmployeeID = before.EmployeeID
	current.SkillID = before.SkillID
	current.UpdatedAt = tx.now
	tx.state.assessments[id] = domain.CloneAssessment(current)
	tx.record(domain.Change{Entity: domain.EntityAssessment, Action: domain.ActionUpdate, Before: before, After: domain.CloneAssessment(current)})
	return domain.CloneAssessment(current), nil
}

func (tx *transaction) DeleteAssessment(id string) error {
	current, ok := tx.state.assessments[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAssessment, ID: id}
	}
	delete(tx.state.assessments, id)
	delete(tx.state.assessmentPairs, pairKey(current.EmployeeID, current.SkillID))
	tx.record(domain.Change{Entity: domain.EntityAssessment, Action: domain.ActionDelete, Before: domain.CloneAssessment(current)})
	return nil
}

func (tx *transaction) PutAssessment(a domain.Assessment) error {
	if a.ID == "" {
		return fmt.Errorf("put assessment: missing id")
	}
	if prior, ok := tx.state.assessments[a.ID]; ok {
		delete(tx.state.assessmentPairs, pairKey(prior.EmployeeID, prior.SkillID))
	}
	tx.state.assessments[a.ID] = domain.CloneAssessment(a)
	tx.state.assessmentPairs[pairKey(a.EmployeeID, a.SkillID)] = a.ID
	tx.record(domain.Change{Entity: domain.EntityAssessment, Action: domain.ActionUpdate, After: domain.CloneAssessment(a)})
	return nil
}

// QualificationPlan ------------------------------------------------------

func (tx *transaction) CreateQualificationPlan(p domain.QualificationPlan) (domain.QualificationPlan, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := tx.state.plans[p.ID]; exists {
		return domain.QualificationPlan{}, fmt.Errorf("qualification plan %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plans[p.ID] = domain.CloneQualificationPlan(p)
	tx.record(domain.Change{Entity: domain.EntityQualificationPlan, Action: domain.ActionCreate, After: domain.CloneQualificationPlan(p)})
	return domain.CloneQualificationPlan(p), nil
}

func (tx *transaction) UpdateQualificationPlan(id string, mutator func(*domain.QualificationPlan) error) (domain.QualificationPlan, error) {
	current, ok := tx.state.plans[id]
	if !ok {
		return domain.QualificationPlan{}, domain.NotFoundError{Entity: domain.EntityQualificationPlan, ID: id}
	}
	before := domain.CloneQualificationPlan(current)
	if err := mutator(&current); err != nil {
		return domain.QualificationPlan{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.plans[id] = domain.CloneQualificationPlan(current)
	tx.record(domain.Change{Entity: domain.EntityQualificationPlan, Action: domain.ActionUpdate, Before: before, After: domain.CloneQualificationPlan(current)})
	return domain.CloneQualificationPlan(current), nil
}

func (tx *transaction) DeleteQualificationPlan(id string) error {
	current, ok := tx.state.plans[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityQualificationPlan, ID: id}
	}
	delete(tx.state.plans, id)
	tx.record(domain.Change{Entity: domain.EntityQualificationPlan, Action: domain.ActionDelete, Before: domain.CloneQualificationPlan(current)})
	return nil
}

func (tx *transaction) PutQualificationPlan(p domain.QualificationPlan) error {
	if p.ID == "" {
		return fmt.Errorf("put qualification plan: missing id")
	}
	tx.state.plans[p.ID] = domain.CloneQualificationPlan(p)
	tx.record(domain.Change{Entity: domain.EntityQualificationPlan, Action: domain.ActionUpdate, After: domain.CloneQualificationPlan(p)})
	return nil
}

// QualificationMeasure ---------------------------------------------------

func (tx *transaction) CreateQualificationMeasure(m domain.QualificationMeasure) (domain.QualificationMeasure, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	if _, exists := tx.state.measures[m.ID]; exists {
		return domain.QualificationMeasure{}, fmt.Errorf("qualification measure %q already exists", m.ID)
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.measures[m.ID] = domain.CloneQualificationMeasure(m)
	tx.record(domain.Change{Entity: domain.EntityQualificationMeasure, Action: domain.ActionCreate, After: domain.CloneQualificationMeasure(m)})
	return domain.CloneQualificationMeasure(m), nil
}

func (tx *transaction) UpdateQualificationMeasure(id string, mutator func(*domain.QualificationMeasure) error) (domain.QualificationMeasure, error) {
	current, ok := tx.state.measures[id]
	if !ok {
		return domain.QualificationMeasure{}, domain.NotFoundError{Entity: domain.EntityQualificationMeasure, ID: id}
	}
	before := domain.CloneQualificationMeasure(current)
	if err := mutator(&current); err != nil {
		return domain.QualificationMeasure{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.measures[id] = domain.CloneQualificationMeasure(current)
	tx.record(domain.Change{Entity: domain.EntityQualificationMeasure, Action: domain.ActionUpdate, Before: before, After: domain.CloneQualificationMeasure(current)})
	return domain.CloneQualificationMeasure(current), nil
}

func (tx *transaction) DeleteQualificationMeasure(id string) error {
	current, ok := tx.state.measures[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityQualificationMeasure, ID: id}
	}
	delete(tx.state.measures, id)
	tx.record(domain.Change{Entity: domain.EntityQualificationMeasure, Action: domain.ActionDelete, Before: domain.CloneQualificationMeasure(current)})
	return nil
}

func (tx *transaction) PutQualificationMeasure(m domain.QualificationMeasure) error {
	if m.ID == "" {
		return fmt.Errorf("put qualification measure: missing id")
	}
	tx.state.measures[m.ID] = domain.CloneQualificationMeasure(m)
	tx.record(domain.Change{Entity: domain.EntityQualificationMeasure, Action: domain.ActionUpdate, After: domain.CloneQualificationMeasure(m)})
	return nil
}

// SavedView --------------------------------------------------------------

func (tx *transaction) CreateSavedView(v domain.SavedView) (domain.SavedView, error) {
	if v.ID == "" {
		v.ID = newID()
	}
	if _, exists := tx.state.views[v.ID]; exists {
		return domain.SavedView{}, fmt.Errorf("saved view %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.views[v.ID] = domain.CloneSavedView(v)
	tx.record(domain.Change{Entity: domain.EntitySavedView, Action: domain.ActionCreate, After: domain.CloneSavedView(v)})
	return domain.CloneSavedView(v), nil
}

func (tx *transaction) UpdateSavedView(id string, mutator func(*domain.SavedView) error) (domain.SavedView, error) {
	current, ok := tx.state.views[id]
	if !ok {
		return domain.SavedView{}, domain.NotFoundError{Entity: domain.EntitySavedView, ID: id}
	}
	before := domain.CloneSavedView(current)
	if err := mutator(&current); err != nil {
		return domain.SavedView{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.views[id] = domain.CloneSavedView(current)
	tx.record(domain.Change{Entity: domain.EntitySavedView, Action: domain.ActionUpdate, Before: before, After: domain.CloneSavedView(current)})
	return domain.CloneSavedView(current), nil
}

func (tx *transaction) DeleteSavedView(id string) error {
	current, ok := tx.state.views[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySavedView, ID: id}
	}
	delete(tx.state.views, id)
	tx.record(domain.Change{Entity: domain.EntitySavedView, Action: domain.ActionDelete, Before: domain.CloneSavedView(current)})
	return nil
}

func (tx *transaction) PutSavedView(v domain.SavedView) error {
	if v.ID == "" {
		return fmt.Errorf("put saved view: missing id")
	}
	tx.state.views[v.ID] = domain.CloneSavedView(v)
	tx.record(domain.Change{Entity: domain.EntitySavedView, Action: domain.ActionUpdate, After: domain.CloneSavedView(v)})
	return nil
}

// Change ledger ----------------------------------------------------------

func (tx *transaction) AppendChange(e domain.ChangeEntry) (domain.ChangeEntry, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = tx.now
	}
	for _, existing := range tx.state.changes {
		if existing.ID == e.ID {
			return domain.ChangeEntry{}, fmt.Errorf("change entry %q already exists", e.ID)
		}
	}
	tx.state.changes = append(tx.state.changes, domain.CloneChangeEntry(e))
	return domain.CloneChangeEntry(e), nil
}

func (tx *transaction) MarkChangeUndone(id string) error {
	for i := range tx.state.changes {
		if tx.state.changes[i].ID != id {
			continue
		}
		if tx.state.changes[i].Undone {
			return domain.UndoError{EntryID: id, Reason: "entry already undone"}
		}
		tx.state.changes[i].Undone = true
		return nil
	}
	return domain.NotFoundError{Entity: "change_entry", ID: id}
}

// Views ------------------------------------------------------------------

type transactionView struct {
	state *memoryState
}

func (v *transactionView) ListCategories() []domain.Category {
	out := make([]domain.Category, 0, len(v.state.categories))
	for _, c := range v.state.categories {
		out = append(out, domain.CloneCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindCategory(id string) (domain.Category, bool) {
	c, ok := v.state.categories[id]
	if !ok {
		return domain.Category{}, false
	}
	return domain.CloneCategory(c), true
}

func (v *transactionView) ListSubCategories() []domain.SubCategory {
	out := make([]domain.SubCategory, 0, len(v.state.subcategories))
	for _, sc := range v.state.subcategories {
		out = append(out, domain.CloneSubCategory(sc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindSubCategory(id string) (domain.SubCategory, bool) {
	sc, ok := v.state.subcategories[id]
	if !ok {
		return domain.SubCategory{}, false
	}
	return domain.CloneSubCategory(sc), true
}

func (v *transactionView) ListSkills() []domain.Skill {
	out := make([]domain.Skill, 0, len(v.state.skills))
	for _, sk := range v.state.skills {
		out = append(out, domain.CloneSkill(sk))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindSkill(id string) (domain.Skill, bool) {
	sk, ok := v.state.skills[id]
	if !ok {
		return domain.Skill{}, false
	}
	return domain.CloneSkill(sk), true
}

func (v *transactionView) ListEmployees() []domain.Employee {
	out := make([]domain.Employee, 0, len(v.state.employees))
	for _, e := range v.state.employees {
		out = append(out, domain.CloneEmployee(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindEmployee(id string) (domain.Employee, bool) {
	e, ok := v.state.employees[id]
	if !ok {
		return domain.Employee{}, false
	}
	return domain.CloneEmployee(e), true
}

func (v *transactionView) ListDepartments() []domain.Department {
	out := make([]domain.Department, 0, len(v.state.departments))
	for _, d := range v.state.departments {
		out = append(out, domain.CloneDepartment(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindDepartment(id string) (domain.Department, bool) {
	d, ok := v.state.departments[id]
	if !ok {
		return domain.Department{}, false
	}
	return domain.CloneDepartment(d), true
}

func (v *transactionView) ListRoles() []domain.Role {
	out := make([]domain.Role, 0, len(v.state.roles))
	for _, r := range v.state.roles {
		out = append(out, domain.CloneRole(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindRole(id string) (domain.Role, bool) {
	r, ok := v.state.roles[id]
	if !ok {
		return domain.Role{}, false
	}
	return domain.CloneRole(r), true
}

func (v *transactionView) ListAssessments() []domain.Assessment {
	out := make([]domain.Assessment, 0, len(v.state.assessments))
	for _, a := range v.state.assessments {
		out = append(out, domain.CloneAssessment(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindAssessment(employeeID, skillID string) (domain.Assessment, bool) {
	id, ok := v.state.assessmentPairs[pairKey(employeeID, skillID)]
	if !ok {
		return domain.Assessment{}, false
	}
	a, ok := v.state.assessments[id]
	if !ok {
		return domain.Assessment{}, false
	}
	return domain.CloneAssessment(a), true
}

func (v *transactionView) ListQualificationPlans() []domain.QualificationPlan {
	out := make([]domain.QualificationPlan, 0, len(v.state.plans))
	for _, p := range v.state.plans {
		out = append(out, domain.CloneQualificationPlan(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindQualificationPlan(id string) (domain.QualificationPlan, bool) {
	p, ok := v.state.plans[id]
	if !ok {
		return domain.QualificationPlan{}, false
	}
	return domain.CloneQualificationPlan(p), true
}

func (v *transactionView) ListQualificationMeasures() []domain.QualificationMeasure {
	out := make([]domain.QualificationMeasure, 0, len(v.state.measures))
	for _, m := range v.state.measures {
		out = append(out, domain.CloneQualificationMeasure(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) ListSavedViews() []domain.SavedView {
	out := make([]domain.SavedView, 0, len(v.state.views))
	for _, sv := range v.state.views {
		out = append(out, domain.CloneSavedView(sv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v *transactionView) FindSavedView(id string) (domain.SavedView, bool) {
	sv, ok := v.state.views[id]
	if !ok {
		return domain.SavedView{}, false
	}
	return domain.CloneSavedView(sv), true
}

func (v *transactionView) ListChanges() []domain.ChangeEntry {
	out := make([]domain.ChangeEntry, 0, len(v.state.changes))
	for _, entry := range v.state.changes {
		out = append(out, domain.CloneChangeEntry(entry))
	}
	return out
}

func (v *transactionView) FindChange(id string) (domain.ChangeEntry, bool) {
	for _, entry := range v.state.changes {
		if entry.ID == id {
			return domain.CloneChangeEntry(entry), true
		}
	}
	return domain.ChangeEntry{}, false
}

func (v *transactionView) StructuralVersion() uint64 {
	return v.state.structuralVersion
}
