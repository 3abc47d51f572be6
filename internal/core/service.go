package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillcore/pkg/domain"
)

// Service is the mutation facade: the only path by which external
// collaborators create, update, or delete entities. Each write validates
// first, then runs one store transaction that applies the mutation and
// appends exactly one change-ledger entry, so ledger and state can never
// drift apart.
type Service struct {
	store     domain.PersistentStore
	hierarchy *HierarchyResolver
	targets   *TargetResolver
	agg       *Aggregator
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	nowFn     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger installs a logger for operational and diagnostic output.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder observing every operation.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs a tracer producing one span per operation.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithNowFunc overrides the service clock; used by tests.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  NoopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hierarchy = NewHierarchyResolver(s.logger)
	s.targets = NewTargetResolver(s.logger)
	s.agg = NewAggregator(s.targets)
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// instrument wraps an operation with tracing and metrics. The returned
// function must be called exactly once with the operation's outcome.
func (s *Service) instrument(ctx context.Context, operation string) func(error) {
	started := s.nowFn()
	_, span := s.tracer.Start(ctx, operation)
	return func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, s.nowFn().Sub(started))
		if err != nil {
			s.logger.Errorf("%s: %v", operation, err)
		}
	}
}

// appendLedger writes the single ledger entry for a mutation inside tx.
func (s *Service) appendLedger(tx domain.Transaction, entity domain.EntityType, entityID, label string, action domain.Action, previous, next any, cascade *domain.CascadeSnapshot) error {
	entry := domain.ChangeEntry{
		Entity:    entity,
		EntityID:  entityID,
		Label:     label,
		Action:    action,
		Timestamp: s.nowFn(),
	}
	if previous != nil {
		payload, err := domain.NewChangePayloadFromValue(previous)
		if err != nil {
			return fmt.Errorf("encode previous: %w", err)
		}
		entry.Previous = payload
	}
	if next != nil {
		payload, err := domain.NewChangePayloadFromValue(next)
		if err != nil {
			return fmt.Errorf("encode new: %w", err)
		}
		entry.New = payload
	}
	if cascade != nil && !cascade.IsEmpty() {
		payload, err := domain.NewChangePayloadFromValue(*cascade)
		if err != nil {
			return fmt.Errorf("encode cascade: %w", err)
		}
		entry.Cascade = payload
	}
	_, err := tx.AppendChange(entry)
	return err
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}

// Category ---------------------------------------------------------------

// AddCategory creates a taxonomy root category.
func (s *Service) AddCategory(ctx context.Context, category Category) (Category, error) {
	done := s.instrument(ctx, "category.create")
	var created Category
	err := func() error {
		if err := requireName(category.Name); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateCategory(category)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntityCategory, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateCategory applies mutator to the category and records the update.
func (s *Service) UpdateCategory(ctx context.Context, id string, mutator func(*Category) error) (Category, error) {
	done := s.instrument(ctx, "category.update")
	var updated Category
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindCategory(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityCategory, ID: id}
		}
		var err error
		updated, err = tx.UpdateCategory(id, func(c *Category) error {
			if err := mutator(c); err != nil {
				return err
			}
			return requireName(c.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntityCategory, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteCategory removes a category together with its subcategory subtree,
// the skills attached to it, and every assessment referencing those skills.
// The full dependent closure is captured in the ledger entry before any
// delete is applied.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	done := s.instrument(ctx, "category.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		category, ok := view.FindCategory(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityCategory, ID: id}
		}
		cascade := cascadeForCategory(view, id)
		if err := applyCascadeDelete(tx, cascade); err != nil {
			return err
		}
		if err := tx.DeleteCategory(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityCategory, id, category.Name, ActionDelete, category, nil, &cascade)
	})
	done(err)
	return err
}

// SubCategory ------------------------------------------------------------

// AddSubCategory creates a subcategory under a category or another
// subcategory. The referenced parents must exist.
func (s *Service) AddSubCategory(ctx context.Context, sub SubCategory) (SubCategory, error) {
	done := s.instrument(ctx, "subcategory.create")
	var created SubCategory
	err := func() error {
		if err := requireName(sub.Name); err != nil {
			return err
		}
		if sub.CategoryID == "" {
			return domain.ValidationError{Field: "category_id", Reason: "parent category must be selected"}
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			view := tx.Snapshot()
			if _, ok := view.FindCategory(sub.CategoryID); !ok {
				return domain.NotFoundError{Entity: EntityCategory, ID: sub.CategoryID}
			}
			if sub.ParentSubCategoryID != nil {
				if _, ok := view.FindSubCategory(*sub.ParentSubCategoryID); !ok {
					return domain.NotFoundError{Entity: EntitySubCategory, ID: *sub.ParentSubCategoryID}
				}
			}
			var err error
			created, err = tx.CreateSubCategory(sub)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntitySubCategory, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateSubCategory applies mutator to the subcategory and records the update.
func (s *Service) UpdateSubCategory(ctx context.Context, id string, mutator func(*SubCategory) error) (SubCategory, error) {
	done := s.instrument(ctx, "subcategory.update")
	var updated SubCategory
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindSubCategory(id)
		if !ok {
			return domain.NotFoundError{Entity: EntitySubCategory, ID: id}
		}
		var err error
		updated, err = tx.UpdateSubCategory(id, func(sc *SubCategory) error {
			if err := mutator(sc); err != nil {
				return err
			}
			return requireName(sc.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntitySubCategory, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteSubCategory removes a subcategory with its descendant subtree,
// attached skills, and their assessments, cascade captured up front.
func (s *Service) DeleteSubCategory(ctx context.Context, id string) error {
	done := s.instrument(ctx, "subcategory.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		sub, ok := view.FindSubCategory(id)
		if !ok {
			return domain.NotFoundError{Entity: EntitySubCategory, ID: id}
		}
		cascade := cascadeForSubCategory(view, id)
		if err := applyCascadeDelete(tx, cascade); err != nil {
			return err
		}
		if err := tx.DeleteSubCategory(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntitySubCategory, id, sub.Name, ActionDelete, sub, nil, &cascade)
	})
	done(err)
	return err
}

// Skill ------------------------------------------------------------------

// AddSkill creates a skill under an existing subcategory.
func (s *Service) AddSkill(ctx context.Context, skill Skill) (Skill, error) {
	done := s.instrument(ctx, "skill.create")
	var created Skill
	err := func() error {
		if err := requireName(skill.Name); err != nil {
			return err
		}
		if skill.SubCategoryID == "" {
			return domain.ValidationError{Field: "subcategory_id", Reason: "parent subcategory must be selected"}
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.Snapshot().FindSubCategory(skill.SubCategoryID); !ok {
				return domain.NotFoundError{Entity: EntitySubCategory, ID: skill.SubCategoryID}
			}
			var err error
			created, err = tx.CreateSkill(skill)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntitySkill, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateSkill applies mutator to the skill and records the update.
func (s *Service) UpdateSkill(ctx context.Context, id string, mutator func(*Skill) error) (Skill, error) {
	done := s.instrument(ctx, "skill.update")
	var updated Skill
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindSkill(id)
		if !ok {
			return domain.NotFoundError{Entity: EntitySkill, ID: id}
		}
		var err error
		updated, err = tx.UpdateSkill(id, func(sk *Skill) error {
			if err := mutator(sk); err != nil {
				return err
			}
			return requireName(sk.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntitySkill, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteSkill removes a skill and every assessment referencing it.
func (s *Service) DeleteSkill(ctx context.Context, id string) error {
	done := s.instrument(ctx, "skill.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		skill, ok := view.FindSkill(id)
		if !ok {
			return domain.NotFoundError{Entity: EntitySkill, ID: id}
		}
		cascade := cascadeForSkill(view, id)
		if err := applyCascadeDelete(tx, cascade); err != nil {
			return err
		}
		if err := tx.DeleteSkill(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntitySkill, id, skill.Name, ActionDelete, skill, nil, &cascade)
	})
	done(err)
	return err
}

// Employee ---------------------------------------------------------------

// AddEmployee creates an employee record.
func (s *Service) AddEmployee(ctx context.Context, employee Employee) (Employee, error) {
	done := s.instrument(ctx, "employee.create")
	var created Employee
	err := func() error {
		if err := requireName(employee.Name); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateEmployee(employee)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntityEmployee, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateEmployee applies mutator to the employee and records the update.
func (s *Service) UpdateEmployee(ctx context.Context, id string, mutator func(*Employee) error) (Employee, error) {
	done := s.instrument(ctx, "employee.update")
	var updated Employee
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindEmployee(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityEmployee, ID: id}
		}
		var err error
		updated, err = tx.UpdateEmployee(id, func(e *Employee) error {
			if err := mutator(e); err != nil {
				return err
			}
			return requireName(e.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntityEmployee, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteEmployee removes an employee with their assessments, qualification
// plans, and plan measures, cascade captured up front.
func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	done := s.instrument(ctx, "employee.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		employee, ok := view.FindEmployee(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityEmployee, ID: id}
		}
		cascade := cascadeForEmployee(view, id)
		if err := applyCascadeDelete(tx, cascade); err != nil {
			return err
		}
		if err := tx.DeleteEmployee(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityEmployee, id, employee.Name, ActionDelete, employee, nil, &cascade)
	})
	done(err)
	return err
}

// Department -------------------------------------------------------------

// AddDepartment creates a department record.
func (s *Service) AddDepartment(ctx context.Context, department Department) (Department, error) {
	done := s.instrument(ctx, "department.create")
	var created Department
	err := func() error {
		if err := requireName(department.Name); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateDepartment(department)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntityDepartment, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateDepartment applies mutator to the department and records the update.
func (s *Service) UpdateDepartment(ctx context.Context, id string, mutator func(*Department) error) (Department, error) {
	done := s.instrument(ctx, "department.update")
	var updated Department
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindDepartment(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityDepartment, ID: id}
		}
		var err error
		updated, err = tx.UpdateDepartment(id, func(d *Department) error {
			if err := mutator(d); err != nil {
				return err
			}
			return requireName(d.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntityDepartment, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteDepartment removes a department. References from employees and
// skills are left dangling and tolerated at read time.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	done := s.instrument(ctx, "department.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		department, ok := tx.Snapshot().FindDepartment(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityDepartment, ID: id}
		}
		if err := tx.DeleteDepartment(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityDepartment, id, department.Name, ActionDelete, department, nil, nil)
	})
	done(err)
	return err
}

// Role -------------------------------------------------------------------

// AddRole creates a role record. Inheritance cycles are not rejected here;
// they are detected and tolerated at resolution time.
func (s *Service) AddRole(ctx context.Context, role Role) (Role, error) {
	done := s.instrument(ctx, "role.create")
	var created Role
	err := func() error {
		if err := requireName(role.Name); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateRole(role)
			if err != nil {
				return err
			}
			if err := syncRequiredBy(tx, created.ID, nil, created.RequiredSkills); err != nil {
				return err
			}
			return s.appendLedger(tx, EntityRole, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateRole applies mutator to the role and records the update.
func (s *Service) UpdateRole(ctx context.Context, id string, mutator func(*Role) error) (Role, error) {
	done := s.instrument(ctx, "role.update")
	var updated Role
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindRole(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityRole, ID: id}
		}
		var err error
		updated, err = tx.UpdateRole(id, func(r *Role) error {
			if err := mutator(r); err != nil {
				return err
			}
			return requireName(r.Name)
		})
		if err != nil {
			return err
		}
		if err := syncRequiredBy(tx, id, before.RequiredSkills, updated.RequiredSkills); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityRole, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteRole removes a role. Employee role references are left dangling and
// resolve to "no requirement" afterwards.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	done := s.instrument(ctx, "role.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		role, ok := tx.Snapshot().FindRole(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityRole, ID: id}
		}
		if err := tx.DeleteRole(id); err != nil {
			return err
		}
		if err := syncRequiredBy(tx, id, role.RequiredSkills, nil); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityRole, id, role.Name, ActionDelete, role, nil, nil)
	})
	done(err)
	return err
}

// syncRequiredBy keeps the denormalized Skill.RequiredByRoleIDs back-edges in
// line with a role's requirement list. Requirements pointing at missing
// skills are skipped; the role edge stays authoritative either way.
func syncRequiredBy(tx Transaction, roleID string, before, after []RoleRequirement) error {
	inAfter := make(map[string]struct{}, len(after))
	for _, req := range after {
		inAfter[req.SkillID] = struct{}{}
	}
	for _, req := range before {
		if _, kept := inAfter[req.SkillID]; kept {
			continue
		}
		skill, ok := tx.Snapshot().FindSkill(req.SkillID)
		if !ok {
			continue
		}
		trimmed := skill.RequiredByRoleIDs[:0]
		for _, rid := range skill.RequiredByRoleIDs {
			if rid != roleID {
				trimmed = append(trimmed, rid)
			}
		}
		skill.RequiredByRoleIDs = trimmed
		if err := tx.PutSkill(skill); err != nil {
			return err
		}
	}
	for _, req := range after {
		skill, ok := tx.Snapshot().FindSkill(req.SkillID)
		if !ok {
			continue
		}
		present := false
		for _, rid := range skill.RequiredByRoleIDs {
			if rid == roleID {
				present = true
				break
			}
		}
		if present {
			continue
		}
		skill.RequiredByRoleIDs = append(skill.RequiredByRoleIDs, roleID)
		if err := tx.PutSkill(skill); err != nil {
			return err
		}
	}
	return nil
}

// QualificationPlan ------------------------------------------------------

// AddQualificationPlan creates a plan for an existing employee.
func (s *Service) AddQualificationPlan(ctx context.Context, plan QualificationPlan) (QualificationPlan, error) {
	done := s.instrument(ctx, "plan.create")
	var created QualificationPlan
	err := func() error {
		if err := requireName(plan.Name); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.Snapshot().FindEmployee(plan.EmployeeID); !ok {
				return domain.NotFoundError{Entity: EntityEmployee, ID: plan.EmployeeID}
			}
			var err error
			created, err = tx.CreateQualificationPlan(plan)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntityQualificationPlan, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateQualificationPlan applies mutator to the plan and records the update.
func (s *Service) UpdateQualificationPlan(ctx context.Context, id string, mutator func(*QualificationPlan) error) (QualificationPlan, error) {
	done := s.instrument(ctx, "plan.update")
	var updated QualificationPlan
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindQualificationPlan(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityQualificationPlan, ID: id}
		}
		var err error
		updated, err = tx.UpdateQualificationPlan(id, func(p *QualificationPlan) error {
			if err := mutator(p); err != nil {
				return err
			}
			return requireName(p.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntityQualificationPlan, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteQualificationPlan removes a plan and its measures, cascade captured
// up front.
func (s *Service) DeleteQualificationPlan(ctx context.Context, id string) error {
	done := s.instrument(ctx, "plan.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view := tx.Snapshot()
		plan, ok := view.FindQualificationPlan(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityQualificationPlan, ID: id}
		}
		cascade := cascadeForQualificationPlan(view, id)
		if err := applyCascadeDelete(tx, cascade); err != nil {
			return err
		}
		if err := tx.DeleteQualificationPlan(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityQualificationPlan, id, plan.Name, ActionDelete, plan, nil, &cascade)
	})
	done(err)
	return err
}

// AddQualificationMeasure creates a measure inside an existing plan.
func (s *Service) AddQualificationMeasure(ctx context.Context, measure QualificationMeasure) (QualificationMeasure, error) {
	done := s.instrument(ctx, "measure.create")
	var created QualificationMeasure
	err := func() error {
		if strings.TrimSpace(measure.Title) == "" {
			return domain.ValidationError{Field: "title", Reason: "must not be empty"}
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := tx.Snapshot().FindQualificationPlan(measure.PlanID); !ok {
				return domain.NotFoundError{Entity: EntityQualificationPlan, ID: measure.PlanID}
			}
			var err error
			created, err = tx.CreateQualificationMeasure(measure)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntityQualificationMeasure, created.ID, created.Title, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateQualificationMeasure applies mutator to the measure and records the update.
func (s *Service) UpdateQualificationMeasure(ctx context.Context, id string, mutator func(*QualificationMeasure) error) (QualificationMeasure, error) {
	done := s.instrument(ctx, "measure.update")
	var updated QualificationMeasure
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var before QualificationMeasure
		var ok bool
		for _, m := range tx.Snapshot().ListQualificationMeasures() {
			if m.ID == id {
				before, ok = m, true
				break
			}
		}
		if !ok {
			return domain.NotFoundError{Entity: EntityQualificationMeasure, ID: id}
		}
		var err error
		updated, err = tx.UpdateQualificationMeasure(id, func(m *QualificationMeasure) error {
			if err := mutator(m); err != nil {
				return err
			}
			if strings.TrimSpace(m.Title) == "" {
				return domain.ValidationError{Field: "title", Reason: "must not be empty"}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntityQualificationMeasure, id, updated.Title, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteQualificationMeasure removes a single measure.
func (s *Service) DeleteQualificationMeasure(ctx context.Context, id string) error {
	done := s.instrument(ctx, "measure.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var before QualificationMeasure
		var ok bool
		for _, m := range tx.Snapshot().ListQualificationMeasures() {
			if m.ID == id {
				before, ok = m, true
				break
			}
		}
		if !ok {
			return domain.NotFoundError{Entity: EntityQualificationMeasure, ID: id}
		}
		if err := tx.DeleteQualificationMeasure(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntityQualificationMeasure, id, before.Title, ActionDelete, before, nil, nil)
	})
	done(err)
	return err
}

// SavedView --------------------------------------------------------------

// AddSavedView stores a presentation view configuration.
func (s *Service) AddSavedView(ctx context.Context, view SavedView) (SavedView, error) {
	done := s.instrument(ctx, "saved_view.create")
	var created SavedView
	err := func() error {
		if err := requireName(view.Name); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateSavedView(view)
			if err != nil {
				return err
			}
			return s.appendLedger(tx, EntitySavedView, created.ID, created.Name, ActionCreate, nil, created, nil)
		})
	}()
	done(err)
	return created, err
}

// UpdateSavedView applies mutator to the saved view and records the update.
func (s *Service) UpdateSavedView(ctx context.Context, id string, mutator func(*SavedView) error) (SavedView, error) {
	done := s.instrument(ctx, "saved_view.update")
	var updated SavedView
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindSavedView(id)
		if !ok {
			return domain.NotFoundError{Entity: EntitySavedView, ID: id}
		}
		var err error
		updated, err = tx.UpdateSavedView(id, func(v *SavedView) error {
			if err := mutator(v); err != nil {
				return err
			}
			return requireName(v.Name)
		})
		if err != nil {
			return err
		}
		return s.appendLedger(tx, EntitySavedView, id, updated.Name, ActionUpdate, before, updated, nil)
	})
	done(err)
	return updated, err
}

// DeleteSavedView removes a saved view.
func (s *Service) DeleteSavedView(ctx context.Context, id string) error {
	done := s.instrument(ctx, "saved_view.delete")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		view, ok := tx.Snapshot().FindSavedView(id)
		if !ok {
			return domain.NotFoundError{Entity: EntitySavedView, ID: id}
		}
		if err := tx.DeleteSavedView(id); err != nil {
			return err
		}
		return s.appendLedger(tx, EntitySavedView, id, view.Name, ActionDelete, view, nil, nil)
	})
	done(err)
	return err
}

// Assessment -------------------------------------------------------------

// SetAssessmentLevel records an employee's level for a skill, creating the
// assessment row on first write for the pair.
func (s *Service) SetAssessmentLevel(ctx context.Context, employeeID, skillID string, level Level) (Assessment, error) {
	done := s.instrument(ctx, "assessment.set_level")
	var result Assessment
	err := func() error {
		if !level.Valid() {
			return domain.ValidationError{Field: "level", Reason: fmt.Sprintf("%d is not on the assessment scale", level)}
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return s.upsertAssessment(tx, employeeID, skillID, &result, func(a *Assessment) {
				a.Level = level
			})
		})
	}()
	done(err)
	return result, err
}

// SetTargetLevel records or clears an individual target for a pair, creating
// the assessment row on first write.
func (s *Service) SetTargetLevel(ctx context.Context, employeeID, skillID string, target *Level) (Assessment, error) {
	done := s.instrument(ctx, "assessment.set_target")
	var result Assessment
	err := func() error {
		if target != nil && (!target.Valid() || *target == LevelNotApplicable) {
			return domain.ValidationError{Field: "target_level", Reason: fmt.Sprintf("%d is not a valid target", *target)}
		}
		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return s.upsertAssessment(tx, employeeID, skillID, &result, func(a *Assessment) {
				if target == nil {
					a.TargetLevel = nil
					return
				}
				v := *target
				a.TargetLevel = &v
			})
		})
	}()
	done(err)
	return result, err
}

func (s *Service) upsertAssessment(tx Transaction, employeeID, skillID string, result *Assessment, apply func(*Assessment)) error {
	view := tx.Snapshot()
	employee, ok := view.FindEmployee(employeeID)
	if !ok {
		return domain.NotFoundError{Entity: EntityEmployee, ID: employeeID}
	}
	skill, ok := view.FindSkill(skillID)
	if !ok {
		return domain.NotFoundError{Entity: EntitySkill, ID: skillID}
	}
	label := employee.Name + " / " + skill.Name

	if existing, ok := view.FindAssessment(employeeID, skillID); ok {
		updated, err := tx.UpdateAssessment(existing.ID, func(a *Assessment) error {
			apply(a)
			return nil
		})
		if err != nil {
			return err
		}
		*result = updated
		return s.appendLedger(tx, EntityAssessment, existing.ID, label, ActionUpdate, existing, updated, nil)
	}

	fresh := Assessment{EmployeeID: employeeID, SkillID: skillID, Level: LevelNone}
	apply(&fresh)
	created, err := tx.CreateAssessment(fresh)
	if err != nil {
		return err
	}
	*result = created
	return s.appendLedger(tx, EntityAssessment, created.ID, label, ActionCreate, nil, created, nil)
}

// applyCascadeDelete removes every dependent in the snapshot, children
// before parents so each delete targets an existing record.
func applyCascadeDelete(tx Transaction, cascade CascadeSnapshot) error {
	for _, a := range cascade.Assessments {
		if err := tx.DeleteAssessment(a.ID); err != nil {
			return err
		}
	}
	for _, m := range cascade.Measures {
		if err := tx.DeleteQualificationMeasure(m.ID); err != nil {
			return err
		}
	}
	for _, p := range cascade.Plans {
		if err := tx.DeleteQualificationPlan(p.ID); err != nil {
			return err
		}
	}
	for _, sk := range cascade.Skills {
		if err := tx.DeleteSkill(sk.ID); err != nil {
			return err
		}
	}
	// Reverse order removes children before their parents.
	for i := len(cascade.SubCategories) - 1; i >= 0; i-- {
		if err := tx.DeleteSubCategory(cascade.SubCategories[i].ID); err != nil {
			return err
		}
	}
	return nil
}
