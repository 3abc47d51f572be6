package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"skillcore/pkg/domain"
)

func runTx(t *testing.T, store *Store, fn func(domain.Transaction) error) {
	t.Helper()
	if err := store.RunInTransaction(context.Background(), fn); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := NewStore()
	wantErr := errors.New("boom")
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateCategory(domain.Category{Name: "Engineering"}); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		if n := len(view.ListCategories()); n != 0 {
			t.Fatalf("failed transaction leaked %d categories", n)
		}
		return nil
	})
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := NewStore()
	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.CreateCategory(domain.Category{Base: domain.Base{ID: "c1"}, Name: "Engineering"})
		return err
	})
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateCategory(domain.Category{Base: domain.Base{ID: "c1"}, Name: "Duplicate"})
		return err
	})
	if err == nil {
		t.Fatalf("duplicate id must be rejected")
	}
}

func TestAssessmentPairUniqueness(t *testing.T) {
	store := NewStore()
	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.CreateAssessment(domain.Assessment{EmployeeID: "e1", SkillID: "s1", Level: domain.LevelBasic})
		return err
	})
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateAssessment(domain.Assessment{EmployeeID: "e1", SkillID: "s1", Level: domain.LevelExpert})
		return err
	})
	if err == nil {
		t.Fatalf("second assessment for the same pair must be rejected")
	}

	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		a, ok := view.FindAssessment("e1", "s1")
		if !ok || a.Level != domain.LevelBasic {
			t.Fatalf("pair lookup failed: %+v ok=%v", a, ok)
		}
		if _, ok := view.FindAssessment("e1", "other"); ok {
			t.Fatalf("unexpected hit for unknown pair")
		}
		return nil
	})
}

func TestPairIndexFollowsDelete(t *testing.T) {
	store := NewStore()
	var created domain.Assessment
	runTx(t, store, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateAssessment(domain.Assessment{EmployeeID: "e1", SkillID: "s1", Level: domain.LevelBasic})
		return err
	})
	runTx(t, store, func(tx domain.Transaction) error {
		return tx.DeleteAssessment(created.ID)
	})
	// The pair is free again after the delete.
	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.CreateAssessment(domain.Assessment{EmployeeID: "e1", SkillID: "s1", Level: domain.LevelExpert})
		return err
	})
}

func TestStructuralVersionTracksTaxonomyWrites(t *testing.T) {
	store := NewStore()
	base := store.StructuralVersion()

	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.CreateCategory(domain.Category{Name: "Engineering"})
		return err
	})
	if got := store.StructuralVersion(); got != base+1 {
		t.Fatalf("taxonomy write must bump the version: %d -> %d", base, got)
	}

	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.CreateEmployee(domain.Employee{Name: "Anna"})
		return err
	})
	if got := store.StructuralVersion(); got != base+1 {
		t.Fatalf("employee write must not bump the version, got %d", got)
	}

	runTx(t, store, func(tx domain.Transaction) error {
		return tx.PutSkill(domain.Skill{Base: domain.Base{ID: "s1"}, Name: "Go", SubCategoryID: "sc1"})
	})
	if got := store.StructuralVersion(); got != base+2 {
		t.Fatalf("skill restore must bump the version, got %d", got)
	}
}

func TestRecentChangesNewestFirst(t *testing.T) {
	store := NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetNowFunc(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("entry-%d", i)
		runTx(t, store, func(tx domain.Transaction) error {
			_, err := tx.AppendChange(domain.ChangeEntry{
				ID:     id,
				Entity: domain.EntityCategory,
				Action: domain.ActionCreate,
			})
			return err
		})
	}

	recent := store.RecentChanges(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].ID != "entry-2" || recent[1].ID != "entry-1" {
		t.Fatalf("entries must come newest first: %s, %s", recent[0].ID, recent[1].ID)
	}
	if all := store.RecentChanges(0); len(all) != 3 {
		t.Fatalf("n<=0 must return everything, got %d", len(all))
	}

	entry, ok := store.ChangeByID("entry-1")
	if !ok || entry.Timestamp.IsZero() {
		t.Fatalf("lookup failed: %+v ok=%v", entry, ok)
	}
	if _, ok := store.ChangeByID("missing"); ok {
		t.Fatalf("unexpected hit for unknown entry")
	}
}

func TestMarkChangeUndoneIsTerminal(t *testing.T) {
	store := NewStore()
	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.AppendChange(domain.ChangeEntry{ID: "entry-1", Entity: domain.EntityCategory, Action: domain.ActionCreate})
		return err
	})
	runTx(t, store, func(tx domain.Transaction) error {
		return tx.MarkChangeUndone("entry-1")
	})

	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.MarkChangeUndone("entry-1")
	})
	var undoErr domain.UndoError
	if !errors.As(err, &undoErr) {
		t.Fatalf("expected UndoError on second mark, got %v", err)
	}

	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.MarkChangeUndone("missing")
	})
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	runTx(t, store, func(tx domain.Transaction) error {
		if _, err := tx.CreateCategory(domain.Category{Base: domain.Base{ID: "c1"}, Name: "Engineering"}); err != nil {
			return err
		}
		if _, err := tx.CreateAssessment(domain.Assessment{Base: domain.Base{ID: "a1"}, EmployeeID: "e1", SkillID: "s1", Level: domain.LevelAdvanced}); err != nil {
			return err
		}
		_, err := tx.AppendChange(domain.ChangeEntry{ID: "entry-1", Entity: domain.EntityCategory, Action: domain.ActionCreate})
		return err
	})

	snapshot := store.ExportState()
	restored := NewStore()
	restored.ImportState(snapshot)

	if restored.StructuralVersion() != store.StructuralVersion() {
		t.Fatalf("structural version lost in round trip")
	}
	_ = restored.View(context.Background(), func(view domain.TransactionView) error {
		if _, ok := view.FindCategory("c1"); !ok {
			t.Fatalf("category lost in round trip")
		}
		// ImportState rebuilds the pair index from the rows.
		if _, ok := view.FindAssessment("e1", "s1"); !ok {
			t.Fatalf("pair index not rebuilt")
		}
		if len(view.ListChanges()) != 1 {
			t.Fatalf("ledger lost in round trip")
		}
		return nil
	})
}

func TestViewIsolation(t *testing.T) {
	store := NewStore()
	runTx(t, store, func(tx domain.Transaction) error {
		_, err := tx.CreateCategory(domain.Category{Base: domain.Base{ID: "c1"}, Name: "Engineering"})
		return err
	})
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		got := view.ListCategories()
		got[0].Name = "mutated"
		return nil
	})
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		c, _ := view.FindCategory("c1")
		if c.Name != "Engineering" {
			t.Fatalf("view mutation leaked into committed state")
		}
		return nil
	})
}
