package archive

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"skillcore/internal/blob"
	"skillcore/internal/core"
	"skillcore/internal/infra/persistence/memory"
)

func seededService(t *testing.T) (*core.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	svc := core.NewService(store)

	category, err := svc.AddCategory(ctx, core.Category{Name: "Engineering"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	sub, err := svc.AddSubCategory(ctx, core.SubCategory{Name: "Backend", CategoryID: category.ID})
	if err != nil {
		t.Fatalf("add subcategory: %v", err)
	}
	skill, err := svc.AddSkill(ctx, core.Skill{Name: "Go", SubCategoryID: sub.ID})
	if err != nil {
		t.Fatalf("add skill: %v", err)
	}
	employee, err := svc.AddEmployee(ctx, core.Employee{Name: "Anna"})
	if err != nil {
		t.Fatalf("add employee: %v", err)
	}
	if _, err := svc.SetAssessmentLevel(ctx, employee.ID, skill.ID, core.LevelAdvanced); err != nil {
		t.Fatalf("assess: %v", err)
	}
	return svc, store
}

func TestExportSnapshotWritesStateDocument(t *testing.T) {
	ctx := context.Background()
	_, store := seededService(t)
	blobs := blob.NewMemory()

	exporter := NewExporter(store, blobs)
	exporter.SetNowFunc(func() time.Time {
		return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	})

	info, err := exporter.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export snapshot: %v", err)
	}
	if info.Key != "snapshots/20260301T093000Z.json" {
		t.Fatalf("unexpected key %s", info.Key)
	}
	if info.ContentType != "application/json" || info.Metadata["kind"] != "state_snapshot" {
		t.Fatalf("unexpected blob info: %+v", info)
	}

	_, rc, err := blobs.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if len(doc.Categories) != 1 || len(doc.Skills) != 1 || len(doc.Assessments) != 1 || len(doc.Employees) != 1 {
		t.Fatalf("snapshot incomplete: %+v", doc)
	}
	if !doc.ExportedAt.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected export time %v", doc.ExportedAt)
	}
}

func TestExportHistoryCSV(t *testing.T) {
	ctx := context.Background()
	svc, store := seededService(t)

	// A cascading delete gives the csv a non-zero cascade_size row.
	categories := svc.RecentHistory(0)
	categoryID := categories[len(categories)-1].EntityID
	if err := svc.DeleteCategory(ctx, categoryID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	blobs := blob.NewMemory()
	exporter := NewExporter(store, blobs)
	exporter.SetNowFunc(func() time.Time {
		return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	})

	info, err := exporter.ExportHistory(ctx, FormatCSV)
	if err != nil {
		t.Fatalf("export history: %v", err)
	}
	if info.Key != "history/20260301T093000Z.csv" || info.ContentType != "text/csv" {
		t.Fatalf("unexpected blob info: %+v", info)
	}
	if info.Metadata["entries"] != "6" {
		t.Fatalf("expected 6 ledger entries, metadata: %+v", info.Metadata)
	}

	_, rc, err := blobs.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected header plus 6 rows, got %d", len(rows))
	}
	want := []string{"id", "timestamp", "entity", "entity_id", "label", "action", "undone", "cascade_size"}
	for i, col := range want {
		if rows[0][i] != col {
			t.Fatalf("header column %d = %q, want %q", i, rows[0][i], col)
		}
	}
	// Newest first: the delete entry leads and carries the cascade count
	// (1 subcategory + 1 skill + 1 assessment).
	if rows[1][5] != "delete" || rows[1][7] != "3" {
		t.Fatalf("unexpected delete row: %v", rows[1])
	}
}

func TestExportHistoryJSON(t *testing.T) {
	ctx := context.Background()
	_, store := seededService(t)
	blobs := blob.NewMemory()
	exporter := NewExporter(store, blobs)

	info, err := exporter.ExportHistory(ctx, FormatJSON)
	if err != nil {
		t.Fatalf("export history: %v", err)
	}
	if !strings.HasSuffix(info.Key, ".json") {
		t.Fatalf("unexpected key %s", info.Key)
	}

	if _, err := exporter.ExportHistory(ctx, Format("xml")); err == nil {
		t.Fatalf("unsupported format must be rejected")
	}
}
