package core

import (
	"context"
	"sort"

	"skillcore/pkg/domain"
)

// NodeAggregate is one aggregated cell of a report: the value for a taxonomy
// node over a set of employees. Defined is false when no assessment pair
// qualified, which renders as an empty cell rather than zero.
type NodeAggregate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Value   int    `json:"value"`
	Defined bool   `json:"defined"`
}

// SkillGap describes how far an employee's current level falls short of a
// role-derived target for one skill.
type SkillGap struct {
	SkillID   string `json:"skill_id"`
	SkillName string `json:"skill_name"`
	Target    Level  `json:"target"`
	Current   Level  `json:"current"`
	Gap       int    `json:"gap"`
}

// GetAssessment returns the stored assessment for an employee and skill pair.
func (s *Service) GetAssessment(ctx context.Context, employeeID, skillID string) (Assessment, bool, error) {
	var (
		result Assessment
		found  bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		result, found = view.FindAssessment(employeeID, skillID)
		return nil
	})
	return result, found, err
}

// ResolveRoleTarget resolves the target level a role requires for a skill.
// roleRef may be a role id or an exact role name. The boolean is false when
// neither the role nor any ancestor declares a requirement.
func (s *Service) ResolveRoleTarget(ctx context.Context, roleRef, skillID string) (Level, bool, error) {
	var (
		level Level
		found bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		level, found = s.targets.RoleTarget(view, roleRef, skillID)
		return nil
	})
	return level, found, err
}

// DescendantSkillIDs returns the ids of every skill reachable from the node,
// in stable order. Results are memoized per structural version.
func (s *Service) DescendantSkillIDs(ctx context.Context, nodeID string, kind NodeKind) ([]string, error) {
	var ids []string
	err := s.store.View(ctx, func(view TransactionView) error {
		ids = s.hierarchy.DescendantSkillIDs(view, nodeID, kind)
		return nil
	})
	return ids, err
}

// AggregateNode computes the aggregate for a taxonomy node over the given
// employees. An empty employeeIDs slice means every employee. The boolean is
// false when no assessment pair qualified.
func (s *Service) AggregateNode(ctx context.Context, nodeID string, kind NodeKind, mode AggregateMode, employeeIDs []string) (int, bool, error) {
	if !mode.Valid() {
		return 0, false, domain.ValidationError{Field: "mode", Reason: "unknown aggregation mode " + string(mode)}
	}
	var (
		value   int
		defined bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		skillIDs := s.hierarchy.DescendantSkillIDs(view, nodeID, kind)
		employees, err := selectEmployees(view, employeeIDs)
		if err != nil {
			return err
		}
		value, defined = s.agg.Aggregate(view, skillIDs, employees, mode)
		return nil
	})
	return value, defined, err
}

// AggregateSkill computes the aggregate for a single skill over the given
// employees.
func (s *Service) AggregateSkill(ctx context.Context, skillID string, mode AggregateMode, employeeIDs []string) (int, bool, error) {
	if !mode.Valid() {
		return 0, false, domain.ValidationError{Field: "mode", Reason: "unknown aggregation mode " + string(mode)}
	}
	var (
		value   int
		defined bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindSkill(skillID); !ok {
			return domain.NotFoundError{Entity: EntitySkill, ID: skillID}
		}
		employees, err := selectEmployees(view, employeeIDs)
		if err != nil {
			return err
		}
		value, defined = s.agg.Aggregate(view, []string{skillID}, employees, mode)
		return nil
	})
	return value, defined, err
}

// EmployeeNodeAverage computes one employee's average over a taxonomy node.
func (s *Service) EmployeeNodeAverage(ctx context.Context, employeeID, nodeID string, kind NodeKind) (int, bool, error) {
	var (
		value   int
		defined bool
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindEmployee(employeeID); !ok {
			return domain.NotFoundError{Entity: EntityEmployee, ID: employeeID}
		}
		skillIDs := s.hierarchy.DescendantSkillIDs(view, nodeID, kind)
		value, defined = s.agg.EmployeeAverage(view, skillIDs, employeeID)
		return nil
	})
	return value, defined, err
}

// CategoryReport aggregates every top-level category over the given
// employees, sorted by category name.
func (s *Service) CategoryReport(ctx context.Context, mode AggregateMode, employeeIDs []string) ([]NodeAggregate, error) {
	if !mode.Valid() {
		return nil, domain.ValidationError{Field: "mode", Reason: "unknown aggregation mode " + string(mode)}
	}
	var report []NodeAggregate
	err := s.store.View(ctx, func(view TransactionView) error {
		employees, err := selectEmployees(view, employeeIDs)
		if err != nil {
			return err
		}
		for _, category := range view.ListCategories() {
			skillIDs := s.hierarchy.DescendantSkillIDs(view, category.ID, NodeCategory)
			value, defined := s.agg.Aggregate(view, skillIDs, employees, mode)
			report = append(report, NodeAggregate{ID: category.ID, Name: category.Name, Value: value, Defined: defined})
		}
		sort.Slice(report, func(i, j int) bool { return report[i].Name < report[j].Name })
		return nil
	})
	return report, err
}

// SkillGaps lists the skills for which the employee's current level falls
// short of the effective target, the greater of the role-derived target and
// the pair's individual target. When targetRoleID is non-empty the
// requirements of that single role are evaluated instead of the employee's
// assigned roles, which answers "what would I be missing in that role".
// Results are sorted by gap size, largest first, then skill name.
func (s *Service) SkillGaps(ctx context.Context, employeeID, targetRoleID string) ([]SkillGap, error) {
	var gaps []SkillGap
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindEmployee(employeeID); !ok {
			return domain.NotFoundError{Entity: EntityEmployee, ID: employeeID}
		}
		if targetRoleID != "" {
			if _, ok := view.FindRole(targetRoleID); !ok {
				return domain.NotFoundError{Entity: EntityRole, ID: targetRoleID}
			}
		}
		for _, skill := range view.ListSkills() {
			var (
				target Level
				ok     bool
			)
			if targetRoleID != "" {
				target, ok = s.targets.RoleTarget(view, targetRoleID, skill.ID)
			} else {
				target, ok = s.targets.EmployeeTarget(view, employeeID, skill.ID)
			}
			if !ok || target < LevelNone {
				target = LevelNone
			}
			assessment, found := view.FindAssessment(employeeID, skill.ID)
			if targetRoleID == "" && found && assessment.TargetLevel != nil && *assessment.TargetLevel > target {
				// The effective target is the greater of the individual
				// assessment target and the role-derived one, same as in
				// fulfillment scoring.
				target = *assessment.TargetLevel
			}
			if target <= LevelNone {
				continue
			}
			current := LevelNone
			if found && assessment.Level > LevelNone {
				current = assessment.Level
			}
			if current >= target {
				continue
			}
			gaps = append(gaps, SkillGap{
				SkillID:   skill.ID,
				SkillName: skill.Name,
				Target:    target,
				Current:   current,
				Gap:       int(target) - int(current),
			})
		}
		sort.Slice(gaps, func(i, j int) bool {
			if gaps[i].Gap != gaps[j].Gap {
				return gaps[i].Gap > gaps[j].Gap
			}
			return gaps[i].SkillName < gaps[j].SkillName
		})
		return nil
	})
	return gaps, err
}

// PotentialMentors lists the employees assessed at the top of the scale for
// the skill, sorted by name.
func (s *Service) PotentialMentors(ctx context.Context, skillID string) ([]Employee, error) {
	var mentors []Employee
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindSkill(skillID); !ok {
			return domain.NotFoundError{Entity: EntitySkill, ID: skillID}
		}
		for _, employee := range view.ListEmployees() {
			assessment, found := view.FindAssessment(employee.ID, skillID)
			if !found || assessment.Level != LevelExpert {
				continue
			}
			mentors = append(mentors, employee)
		}
		sort.Slice(mentors, func(i, j int) bool { return mentors[i].Name < mentors[j].Name })
		return nil
	})
	return mentors, err
}

// RecentHistory returns ledger entries newest first; n <= 0 returns all.
func (s *Service) RecentHistory(n int) []ChangeEntry {
	return s.store.RecentChanges(n)
}

// History returns a single ledger entry by id.
func (s *Service) History(entryID string) (ChangeEntry, bool) {
	return s.store.ChangeByID(entryID)
}

func selectEmployees(view TransactionView, employeeIDs []string) ([]Employee, error) {
	if len(employeeIDs) == 0 {
		return view.ListEmployees(), nil
	}
	employees := make([]Employee, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		employee, ok := view.FindEmployee(id)
		if !ok {
			return nil, domain.NotFoundError{Entity: EntityEmployee, ID: id}
		}
		employees = append(employees, employee)
	}
	return employees, nil
}
