package core

import (
	"context"
	"testing"

	"skillcore/pkg/domain"
)

func aggregateOver(t *testing.T, svc *Service, skillIDs []string, employees []Employee, mode AggregateMode) (int, bool) {
	t.Helper()
	var (
		value   int
		defined bool
	)
	withView(t, svc, func(view domain.TransactionView) {
		value, defined = svc.agg.Aggregate(view, skillIDs, employees, mode)
	})
	return value, defined
}

func TestAverageDistinguishesNoDataFromZero(t *testing.T) {
	f := newTaxonomyFixture(t)
	employee := f.addEmployee(t, "Jonas")

	// No assessment and no role target: every pair excluded, no data.
	if _, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeAverage); defined {
		t.Fatalf("expected no data without assessments or targets")
	}

	// An explicit zero is data.
	f.assess(t, employee.ID, f.skill.ID, LevelNone)
	value, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeAverage)
	if !defined || value != 0 {
		t.Fatalf("expected defined zero, got (%d, %v)", value, defined)
	}
}

func TestAverageEmptySkillSetIsDefinedZero(t *testing.T) {
	f := newTaxonomyFixture(t)
	employee := f.addEmployee(t, "Jonas")

	value, defined := aggregateOver(t, f.svc, nil, []Employee{employee}, ModeAverage)
	if !defined || value != 0 {
		t.Fatalf("empty skill set must be the defined degenerate zero, got (%d, %v)", value, defined)
	}
}

func TestAverageExcludesNotApplicable(t *testing.T) {
	f := newTaxonomyFixture(t)
	second, err := f.svc.AddSkill(context.Background(), Skill{Name: "SQL", SubCategoryID: f.sub.ID})
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	employee := f.addEmployee(t, "Jonas")
	f.assess(t, employee.ID, f.skill.ID, LevelExpert)
	f.assess(t, employee.ID, second.ID, LevelNotApplicable)

	value, defined := aggregateOver(t, f.svc, []string{f.skill.ID, second.ID}, []Employee{employee}, ModeAverage)
	if !defined || value != 100 {
		t.Fatalf("N/A pair must not drag the average down, got (%d, %v)", value, defined)
	}
}

func TestAverageImpliedZeroFromRoleTarget(t *testing.T) {
	f := newTaxonomyFixture(t)
	role := f.addRole(t, Role{
		Name:           "Engineer",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelAdvanced}},
	})
	assessed := f.addEmployee(t, "Jonas", role.ID)
	unassessed := f.addEmployee(t, "Lena", role.ID)
	f.assess(t, assessed.ID, f.skill.ID, LevelExpert)

	// Lena has no row but a positive role target, so she counts as zero:
	// (100 + 0) / 2 = 50.
	value, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{assessed, unassessed}, ModeAverage)
	if !defined || value != 50 {
		t.Fatalf("expected implied-zero average 50, got (%d, %v)", value, defined)
	}
}

func TestMaximumPicksBestEmployeeAverage(t *testing.T) {
	f := newTaxonomyFixture(t)
	second, err := f.svc.AddSkill(context.Background(), Skill{Name: "SQL", SubCategoryID: f.sub.ID})
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	strong := f.addEmployee(t, "Anna")
	weak := f.addEmployee(t, "Jonas")
	f.assess(t, strong.ID, f.skill.ID, LevelExpert)
	f.assess(t, strong.ID, second.ID, LevelIntermediate)
	f.assess(t, weak.ID, f.skill.ID, LevelBasic)

	skillIDs := []string{f.skill.ID, second.ID}
	value, defined := aggregateOver(t, f.svc, skillIDs, []Employee{strong, weak}, ModeMaximum)
	if !defined || value != 75 {
		t.Fatalf("expected best per-employee average 75, got (%d, %v)", value, defined)
	}
}

func TestMaximumNoDataWhenAllExcluded(t *testing.T) {
	f := newTaxonomyFixture(t)
	employee := f.addEmployee(t, "Jonas")
	f.assess(t, employee.ID, f.skill.ID, LevelNotApplicable)

	if _, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeMaximum); defined {
		t.Fatalf("expected no data when every pair is N/A")
	}
}

func TestFulfillmentRoleTargetWithoutAssessment(t *testing.T) {
	f := newTaxonomyFixture(t)
	role := f.addRole(t, Role{
		Name:           "Senior Engineer",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelAdvanced}},
	})
	anna := f.addEmployee(t, "Anna", role.ID)

	// Role target 75, no assessment row: effective level zero, 0/75 = 0%.
	value, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{anna}, ModeFulfillment)
	if !defined || value != 0 {
		t.Fatalf("expected defined zero fulfillment, got (%d, %v)", value, defined)
	}

	// Meeting the target exactly is 100%.
	f.assess(t, anna.ID, f.skill.ID, LevelAdvanced)
	value, defined = aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{anna}, ModeFulfillment)
	if !defined || value != 100 {
		t.Fatalf("expected full fulfillment, got (%d, %v)", value, defined)
	}
}

func TestFulfillmentRatioAndCap(t *testing.T) {
	f := newTaxonomyFixture(t)
	role := f.addRole(t, Role{
		Name:           "Engineer",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelIntermediate}},
	})
	employee := f.addEmployee(t, "Jonas", role.ID)

	f.assess(t, employee.ID, f.skill.ID, LevelBasic)
	value, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeFulfillment)
	if !defined || value != 50 {
		t.Fatalf("target 50 level 25 must be 50%%, got (%d, %v)", value, defined)
	}

	f.assess(t, employee.ID, f.skill.ID, LevelExpert)
	value, defined = aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeFulfillment)
	if !defined || value != 100 {
		t.Fatalf("fulfillment must cap at 100%%, got (%d, %v)", value, defined)
	}
}

func TestFulfillmentNoTargetsIsNoData(t *testing.T) {
	f := newTaxonomyFixture(t)
	employee := f.addEmployee(t, "Jonas")
	f.assess(t, employee.ID, f.skill.ID, LevelExpert)

	if _, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeFulfillment); defined {
		t.Fatalf("no target anywhere means the pair is not measured")
	}
}

func TestFulfillmentIndividualTargetBeatsRoleTarget(t *testing.T) {
	f := newTaxonomyFixture(t)
	role := f.addRole(t, Role{
		Name:           "Engineer",
		RequiredSkills: []RoleRequirement{{SkillID: f.skill.ID, Level: LevelBasic}},
	})
	employee := f.addEmployee(t, "Jonas", role.ID)
	f.assess(t, employee.ID, f.skill.ID, LevelBasic)
	target := LevelIntermediate
	if _, err := f.svc.SetTargetLevel(context.Background(), employee.ID, f.skill.ID, &target); err != nil {
		t.Fatalf("set target: %v", err)
	}

	// Effective target is max(individual 50, role 25) = 50; level 25 → 50%.
	value, defined := aggregateOver(t, f.svc, []string{f.skill.ID}, []Employee{employee}, ModeFulfillment)
	if !defined || value != 50 {
		t.Fatalf("individual target must win the max, got (%d, %v)", value, defined)
	}
}

func TestEmployeeAverageMatchesPopulationPath(t *testing.T) {
	f := newTaxonomyFixture(t)
	second, err := f.svc.AddSkill(context.Background(), Skill{Name: "SQL", SubCategoryID: f.sub.ID})
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	employee := f.addEmployee(t, "Anna")
	f.assess(t, employee.ID, f.skill.ID, LevelExpert)
	f.assess(t, employee.ID, second.ID, LevelIntermediate)

	skillIDs := []string{f.skill.ID, second.ID}
	population, popDefined := aggregateOver(t, f.svc, skillIDs, []Employee{employee}, ModeAverage)
	var single int
	var singleDefined bool
	withView(t, f.svc, func(view domain.TransactionView) {
		single, singleDefined = f.svc.agg.EmployeeAverage(view, skillIDs, employee.ID)
	})
	if popDefined != singleDefined || population != single {
		t.Fatalf("per-employee and population paths diverged: (%d, %v) vs (%d, %v)", single, singleDefined, population, popDefined)
	}
	if single != 75 {
		t.Fatalf("expected average 75, got %d", single)
	}
}
