package core

import (
	"context"
	"fmt"

	"skillcore/pkg/domain"
)

// Undo reverts the ledger entry with the given id. A create is undone by
// deleting the record, an update by restoring the previous payload, and a
// delete by reinserting the primary record together with its captured
// cascade. Restoration and the undone mark happen in one transaction, so a
// partially restored cascade can never be observed. Each entry can be
// undone at most once.
func (s *Service) Undo(ctx context.Context, entryID string) error {
	done := s.instrument(ctx, "change.undo")
	err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		entry, ok := tx.Snapshot().FindChange(entryID)
		if !ok {
			return domain.UndoError{EntryID: entryID, Reason: "entry not found"}
		}
		if entry.Undone {
			return domain.UndoError{EntryID: entryID, Reason: "entry already undone"}
		}
		switch entry.Action {
		case ActionCreate:
			if err := undoCreate(tx, entry); err != nil {
				return err
			}
		case ActionUpdate:
			if err := undoUpdate(tx, entry); err != nil {
				return err
			}
		case ActionDelete:
			if err := undoDelete(tx, entry); err != nil {
				return err
			}
		default:
			return domain.UndoError{EntryID: entryID, Reason: fmt.Sprintf("unknown action %q", entry.Action)}
		}
		return tx.MarkChangeUndone(entryID)
	})
	done(err)
	return err
}

func undoCreate(tx domain.Transaction, entry domain.ChangeEntry) error {
	switch entry.Entity {
	case EntityCategory:
		return tx.DeleteCategory(entry.EntityID)
	case EntitySubCategory:
		return tx.DeleteSubCategory(entry.EntityID)
	case EntitySkill:
		return tx.DeleteSkill(entry.EntityID)
	case EntityEmployee:
		return tx.DeleteEmployee(entry.EntityID)
	case EntityDepartment:
		return tx.DeleteDepartment(entry.EntityID)
	case EntityRole:
		if role, ok := tx.Snapshot().FindRole(entry.EntityID); ok {
			if err := syncRequiredBy(tx, role.ID, role.RequiredSkills, nil); err != nil {
				return err
			}
		}
		return tx.DeleteRole(entry.EntityID)
	case EntityAssessment:
		return tx.DeleteAssessment(entry.EntityID)
	case EntityQualificationPlan:
		return tx.DeleteQualificationPlan(entry.EntityID)
	case EntityQualificationMeasure:
		return tx.DeleteQualificationMeasure(entry.EntityID)
	case EntitySavedView:
		return tx.DeleteSavedView(entry.EntityID)
	default:
		return domain.UndoError{EntryID: entry.ID, Reason: fmt.Sprintf("unknown entity %q", entry.Entity)}
	}
}

func undoUpdate(tx domain.Transaction, entry domain.ChangeEntry) error {
	if !entry.Previous.Defined() {
		return domain.UndoError{EntryID: entry.ID, Reason: "update entry has no previous payload"}
	}
	return putFromPayload(tx, entry.Entity, entry.ID, entry.Previous)
}

func undoDelete(tx domain.Transaction, entry domain.ChangeEntry) error {
	if !entry.Previous.Defined() {
		return domain.UndoError{EntryID: entry.ID, Reason: "delete entry has no previous payload"}
	}
	if err := putFromPayload(tx, entry.Entity, entry.ID, entry.Previous); err != nil {
		return err
	}
	if !entry.Cascade.Defined() {
		return nil
	}
	cascade, err := domain.DecodeChangePayload[domain.CascadeSnapshot](entry.Cascade)
	if err != nil {
		return domain.UndoError{EntryID: entry.ID, Reason: fmt.Sprintf("decode cascade: %v", err)}
	}
	// Parents before children so every foreign reference resolves once the
	// transaction commits.
	for _, sc := range cascade.SubCategories {
		if err := tx.PutSubCategory(sc); err != nil {
			return err
		}
	}
	for _, sk := range cascade.Skills {
		if err := tx.PutSkill(sk); err != nil {
			return err
		}
	}
	for _, p := range cascade.Plans {
		if err := tx.PutQualificationPlan(p); err != nil {
			return err
		}
	}
	for _, m := range cascade.Measures {
		if err := tx.PutQualificationMeasure(m); err != nil {
			return err
		}
	}
	for _, a := range cascade.Assessments {
		if err := tx.PutAssessment(a); err != nil {
			return err
		}
	}
	return nil
}

func putFromPayload(tx domain.Transaction, entity domain.EntityType, entryID string, payload domain.ChangePayload) error {
	decodeErr := func(err error) error {
		return domain.UndoError{EntryID: entryID, Reason: fmt.Sprintf("decode %s payload: %v", entity, err)}
	}
	switch entity {
	case EntityCategory:
		v, err := domain.DecodeChangePayload[domain.Category](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutCategory(v)
	case EntitySubCategory:
		v, err := domain.DecodeChangePayload[domain.SubCategory](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutSubCategory(v)
	case EntitySkill:
		v, err := domain.DecodeChangePayload[domain.Skill](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutSkill(v)
	case EntityEmployee:
		v, err := domain.DecodeChangePayload[domain.Employee](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutEmployee(v)
	case EntityDepartment:
		v, err := domain.DecodeChangePayload[domain.Department](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutDepartment(v)
	case EntityRole:
		v, err := domain.DecodeChangePayload[domain.Role](payload)
		if err != nil {
			return decodeErr(err)
		}
		var before []domain.RoleRequirement
		if current, ok := tx.Snapshot().FindRole(v.ID); ok {
			before = current.RequiredSkills
		}
		if err := tx.PutRole(v); err != nil {
			return err
		}
		return syncRequiredBy(tx, v.ID, before, v.RequiredSkills)
	case EntityAssessment:
		v, err := domain.DecodeChangePayload[domain.Assessment](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutAssessment(v)
	case EntityQualificationPlan:
		v, err := domain.DecodeChangePayload[domain.QualificationPlan](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutQualificationPlan(v)
	case EntityQualificationMeasure:
		v, err := domain.DecodeChangePayload[domain.QualificationMeasure](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutQualificationMeasure(v)
	case EntitySavedView:
		v, err := domain.DecodeChangePayload[domain.SavedView](payload)
		if err != nil {
			return decodeErr(err)
		}
		return tx.PutSavedView(v)
	default:
		return domain.UndoError{EntryID: entryID, Reason: fmt.Sprintf("unknown entity %q", entity)}
	}
}
