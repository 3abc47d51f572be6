package memory

import "skillcore/pkg/domain"

// Snapshot is the serialisable representation of the full store state,
// including the change ledger and the taxonomy version counter. Durable
// backends persist and hydrate it as JSON.
type Snapshot struct {
	Categories    map[string]domain.Category             `json:"categories"`
	SubCategories map[string]domain.SubCategory          `json:"subcategories"`
	Skills        map[string]domain.Skill                `json:"skills"`
	Employees     map[string]domain.Employee             `json:"employees"`
	Departments   map[string]domain.Department           `json:"departments"`
	Roles         map[string]domain.Role                 `json:"roles"`
	Assessments   map[string]domain.Assessment           `json:"assessments"`
	Plans         map[string]domain.QualificationPlan    `json:"plans"`
	Measures      map[string]domain.QualificationMeasure `json:"measures"`
	SavedViews    map[string]domain.SavedView            `json:"saved_views"`
	Changes       []domain.ChangeEntry                   `json:"changes"`
	Version       uint64                                 `json:"structural_version"`
}

// ExportState returns a deep-copied snapshot of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the committed state with the snapshot contents. The
// assessment pair index is rebuilt rather than trusted from the payload.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := newMemoryState()
	for k, v := range snapshot.Categories {
		state.categories[k] = domain.CloneCategory(v)
	}
	for k, v := range snapshot.SubCategories {
		state.subcategories[k] = domain.CloneSubCategory(v)
	}
	for k, v := range snapshot.Skills {
		state.skills[k] = domain.CloneSkill(v)
	}
	for k, v := range snapshot.Employees {
		state.employees[k] = domain.CloneEmployee(v)
	}
	for k, v := range snapshot.Departments {
		state.departments[k] = domain.CloneDepartment(v)
	}
	for k, v := range snapshot.Roles {
		state.roles[k] = domain.CloneRole(v)
	}
	for k, v := range snapshot.Assessments {
		state.assessments[k] = domain.CloneAssessment(v)
		state.assessmentPairs[pairKey(v.EmployeeID, v.SkillID)] = k
	}
	for k, v := range snapshot.Plans {
		state.plans[k] = domain.CloneQualificationPlan(v)
	}
	for k, v := range snapshot.Measures {
		state.measures[k] = domain.CloneQualificationMeasure(v)
	}
	for k, v := range snapshot.SavedViews {
		state.views[k] = domain.CloneSavedView(v)
	}
	state.changes = make([]domain.ChangeEntry, 0, len(snapshot.Changes))
	for _, e := range snapshot.Changes {
		state.changes = append(state.changes, domain.CloneChangeEntry(e))
	}
	state.structuralVersion = snapshot.Version
	s.state = state
}

func snapshotFromState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Categories:    cloned.categories,
		SubCategories: cloned.subcategories,
		Skills:        cloned.skills,
		Employees:     cloned.employees,
		Departments:   cloned.departments,
		Roles:         cloned.roles,
		Assessments:   cloned.assessments,
		Plans:         cloned.plans,
		Measures:      cloned.measures,
		SavedViews:    cloned.views,
		Changes:       cloned.changes,
		Version:       cloned.structuralVersion,
	}
}
