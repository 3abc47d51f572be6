package core

import (
	"math"

	"skillcore/pkg/domain"
)

// AggregateMode selects the roll-up metric computed over a skill set.
type AggregateMode string

// Roll-up metrics supported by the aggregation engine.
const (
	// ModeAverage is the mean effective level over all qualifying pairs.
	ModeAverage AggregateMode = "average"
	// ModeMaximum is the best per-employee average across the population.
	ModeMaximum AggregateMode = "maximum"
	// ModeFulfillment is the mean capped level/target ratio over pairs
	// that carry a target.
	ModeFulfillment AggregateMode = "fulfillment"
)

// Valid reports whether the mode is one of the defined metrics.
func (m AggregateMode) Valid() bool {
	switch m {
	case ModeAverage, ModeMaximum, ModeFulfillment:
		return true
	}
	return false
}

// effectiveState classifies an (employee, skill) pair after resolving the
// "no assessment" / "N/A" / role-target-implied-zero ambiguity. Keeping the
// three states explicit avoids conflating an absent row with an explicit
// not-applicable sentinel.
type effectiveState int

const (
	// effectiveExcluded removes the pair from averaging entirely.
	effectiveExcluded effectiveState = iota
	// effectiveValue carries a concrete level, possibly the implied zero.
	effectiveValue
)

// Aggregator computes roll-up scores over skill sets and employee
// populations. The per-pair effective-level derivation is shared by every
// mode and by both the global and the per-employee call paths; the two must
// never diverge.
type Aggregator struct {
	targets *TargetResolver
}

// NewAggregator constructs an aggregator resolving targets through targets.
func NewAggregator(targets *TargetResolver) *Aggregator {
	return &Aggregator{targets: targets}
}

// effectiveLevel derives the level used in averaging for one pair:
//
//  1. no assessment row and a positive role target: implied zero (untrained
//     but expected to be assessed eventually);
//  2. no assessment row otherwise: excluded;
//  3. explicit N/A sentinel: excluded regardless of role targets;
//  4. otherwise the assessed level.
func (a *Aggregator) effectiveLevel(view domain.TransactionView, employeeID, skillID string) (domain.Level, effectiveState) {
	assessment, ok := view.FindAssessment(employeeID, skillID)
	if !ok {
		if target, found := a.targets.EmployeeTarget(view, employeeID, skillID); found && target > 0 {
			return domain.LevelNone, effectiveValue
		}
		return 0, effectiveExcluded
	}
	if assessment.Level == domain.LevelNotApplicable {
		return 0, effectiveExcluded
	}
	return assessment.Level, effectiveValue
}

// Aggregate computes the requested metric over skillIDs for the given
// employee population. The boolean result is false when no pair qualifies
// ("no data", distinct from a zero score). An empty skill set in average
// mode is the defined degenerate case and yields (0, true).
func (a *Aggregator) Aggregate(view domain.TransactionView, skillIDs []string, employees []domain.Employee, mode AggregateMode) (int, bool) {
	switch mode {
	case ModeAverage:
		return a.average(view, skillIDs, employees)
	case ModeMaximum:
		return a.maximum(view, skillIDs, employees)
	case ModeFulfillment:
		return a.fulfillment(view, skillIDs, employees)
	}
	return 0, false
}

func (a *Aggregator) average(view domain.TransactionView, skillIDs []string, employees []domain.Employee) (int, bool) {
	if len(skillIDs) == 0 {
		return 0, true
	}
	var sum, count int
	for _, employee := range employees {
		for _, skillID := range skillIDs {
			level, state := a.effectiveLevel(view, employee.ID, skillID)
			if state == effectiveExcluded {
				continue
			}
			sum += int(level)
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return roundRatio(sum, count), true
}

func (a *Aggregator) maximum(view domain.TransactionView, skillIDs []string, employees []domain.Employee) (int, bool) {
	var best int
	var found bool
	for _, employee := range employees {
		var sum, count int
		for _, skillID := range skillIDs {
			level, state := a.effectiveLevel(view, employee.ID, skillID)
			if state == effectiveExcluded {
				continue
			}
			sum += int(level)
			count++
		}
		if count == 0 {
			continue
		}
		avg := roundRatio(sum, count)
		if !found || avg > best {
			best = avg
		}
		found = true
	}
	if !found {
		return 0, false
	}
	return best, true
}

func (a *Aggregator) fulfillment(view domain.TransactionView, skillIDs []string, employees []domain.Employee) (int, bool) {
	var sum, count int
	for _, employee := range employees {
		for _, skillID := range skillIDs {
			pct, ok := a.pairFulfillment(view, employee.ID, skillID)
			if !ok {
				continue
			}
			sum += pct
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return roundRatio(sum, count), true
}

// pairFulfillment computes the capped level/target percentage for one pair.
// The effective target is the greater of the individual assessment target and
// the resolved role target; pairs without any target are not measured. An
// explicit N/A level counts as zero when a role target exists, otherwise the
// pair is excluded even if an individual target is set.
func (a *Aggregator) pairFulfillment(view domain.TransactionView, employeeID, skillID string) (int, bool) {
	roleTarget, hasRoleTarget := a.targets.EmployeeTarget(view, employeeID, skillID)
	if !hasRoleTarget || roleTarget < 0 {
		roleTarget = 0
	}

	assessment, hasAssessment := view.FindAssessment(employeeID, skillID)
	var individual domain.Level
	if hasAssessment && assessment.TargetLevel != nil {
		individual = *assessment.TargetLevel
	}

	target := roleTarget
	if individual > target {
		target = individual
	}
	if target <= 0 {
		return 0, false
	}

	var level domain.Level
	switch {
	case !hasAssessment:
		// target > 0 here implies a positive role target; the implied
		// level is zero.
		level = domain.LevelNone
	case assessment.Level == domain.LevelNotApplicable:
		if roleTarget > 0 {
			level = domain.LevelNone
		} else {
			return 0, false
		}
	default:
		level = assessment.Level
	}

	pct := roundRatio(int(level)*100, int(target))
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// EmployeeAverage computes the average metric for a single employee using
// the same effective-level derivation as the population-wide path.
func (a *Aggregator) EmployeeAverage(view domain.TransactionView, skillIDs []string, employeeID string) (int, bool) {
	employee, ok := view.FindEmployee(employeeID)
	if !ok {
		return 0, false
	}
	return a.average(view, skillIDs, []domain.Employee{employee})
}

func roundRatio(numerator, denominator int) int {
	return int(math.Round(float64(numerator) / float64(denominator)))
}
