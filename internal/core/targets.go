package core

import "skillcore/pkg/domain"

// TargetResolver resolves role-derived target levels by walking the role
// inheritance chain. A role's own declaration always wins over ancestors for
// the same skill; ancestors are consulted only when the role itself is
// silent. Cycles in the inheritance graph terminate the walk and resolve to
// "no requirement" with a logged diagnostic, so one malformed role cannot
// stall an otherwise healthy aggregation.
type TargetResolver struct {
	logger Logger
}

// NewTargetResolver constructs a resolver logging diagnostics to logger.
func NewTargetResolver(logger Logger) *TargetResolver {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &TargetResolver{logger: logger}
}

// RoleTarget resolves the target level a single role requires for a skill.
// roleRef may be a role id or, as a fallback, an exact role name. The second
// return value is false when no requirement is found.
func (r *TargetResolver) RoleTarget(view domain.TransactionView, roleRef, skillID string) (domain.Level, bool) {
	role, ok := view.FindRole(roleRef)
	if !ok {
		role, ok = findRoleByName(view, roleRef)
	}
	if !ok {
		return 0, false
	}

	visited := make(map[string]struct{})
	for {
		if _, seen := visited[role.ID]; seen {
			r.logger.Warnf("targets: %v", domain.CycleError{Kind: domain.CycleRoleInheritance, StartID: role.ID})
			return 0, false
		}
		visited[role.ID] = struct{}{}

		for _, req := range role.RequiredSkills {
			if req.SkillID == skillID {
				return req.Level, true
			}
		}
		if role.InheritsFromID == nil {
			return 0, false
		}
		parent, ok := view.FindRole(*role.InheritsFromID)
		if !ok {
			return 0, false
		}
		role = parent
	}
}

// EmployeeTarget resolves the effective role-derived target for an employee:
// each held role is resolved independently, then the maximum wins. The second
// return value is false when no role requires the skill at all.
func (r *TargetResolver) EmployeeTarget(view domain.TransactionView, employeeID, skillID string) (domain.Level, bool) {
	employee, ok := view.FindEmployee(employeeID)
	if !ok {
		return 0, false
	}
	var best domain.Level
	var found bool
	for _, roleID := range employee.RoleIDs {
		level, ok := r.RoleTarget(view, roleID, skillID)
		if !ok {
			continue
		}
		if !found || level > best {
			best = level
		}
		found = true
	}
	return best, found
}

func findRoleByName(view domain.TransactionView, name string) (domain.Role, bool) {
	for _, role := range view.ListRoles() {
		if role.Name == name {
			return role, true
		}
	}
	return domain.Role{}, false
}
