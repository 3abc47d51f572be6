// Package archive exports state snapshots and change-history artifacts to a
// blob store, for backup and offline analysis.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"skillcore/internal/blob"
	"skillcore/pkg/domain"
)

// Format selects the history artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// StateDocument is the JSON shape of an exported state snapshot.
type StateDocument struct {
	ExportedAt    time.Time                     `json:"exported_at"`
	Categories    []domain.Category             `json:"categories"`
	SubCategories []domain.SubCategory          `json:"subcategories"`
	Skills        []domain.Skill                `json:"skills"`
	Employees     []domain.Employee             `json:"employees"`
	Departments   []domain.Department           `json:"departments"`
	Roles         []domain.Role                 `json:"roles"`
	Assessments   []domain.Assessment           `json:"assessments"`
	Plans         []domain.QualificationPlan    `json:"plans"`
	Measures      []domain.QualificationMeasure `json:"measures"`
	SavedViews    []domain.SavedView            `json:"saved_views"`
}

// Exporter writes archive artifacts built from a persistent store.
type Exporter struct {
	store domain.PersistentStore
	blobs blob.Store
	nowFn func() time.Time
}

// NewExporter constructs an exporter targeting the given blob store.
func NewExporter(store domain.PersistentStore, blobs blob.Store) *Exporter {
	return &Exporter{
		store: store,
		blobs: blobs,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the exporter clock; used by tests for stable keys.
func (e *Exporter) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		e.nowFn = fn
	}
}

// ExportSnapshot writes the full entity state as a JSON document under
// snapshots/<timestamp>.json and returns the stored blob info.
func (e *Exporter) ExportSnapshot(ctx context.Context) (blob.Info, error) {
	now := e.nowFn()
	doc := StateDocument{ExportedAt: now}
	err := e.store.View(ctx, func(view domain.TransactionView) error {
		doc.Categories = view.ListCategories()
		doc.SubCategories = view.ListSubCategories()
		doc.Skills = view.ListSkills()
		doc.Employees = view.ListEmployees()
		doc.Departments = view.ListDepartments()
		doc.Roles = view.ListRoles()
		doc.Assessments = view.ListAssessments()
		doc.Plans = view.ListQualificationPlans()
		doc.Measures = view.ListQualificationMeasures()
		doc.SavedViews = view.ListSavedViews()
		return nil
	})
	if err != nil {
		return blob.Info{}, err
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	key := "snapshots/" + now.Format("20060102T150405Z") + ".json"
	return e.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"kind": "state_snapshot"},
	})
}

// ExportHistory writes the change ledger, newest first, under
// history/<timestamp>.<format> and returns the stored blob info.
func (e *Exporter) ExportHistory(ctx context.Context, format Format) (blob.Info, error) {
	entries := e.store.RecentChanges(0)
	now := e.nowFn()

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case FormatJSON:
		payload, err = json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return blob.Info{}, fmt.Errorf("marshal history: %w", err)
		}
		contentType = "application/json"
	case FormatCSV:
		payload, err = historyCSV(entries)
		if err != nil {
			return blob.Info{}, err
		}
		contentType = "text/csv"
	default:
		return blob.Info{}, fmt.Errorf("unsupported history format %s", format)
	}

	key := "history/" + now.Format("20060102T150405Z") + "." + string(format)
	return e.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"kind":    "change_history",
			"entries": strconv.Itoa(len(entries)),
		},
	})
}

func historyCSV(entries []domain.ChangeEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"id", "timestamp", "entity", "entity_id", "label", "action", "undone", "cascade_size"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		cascadeSize := 0
		if entry.Cascade.Defined() {
			snapshot, err := domain.DecodeChangePayload[domain.CascadeSnapshot](entry.Cascade)
			if err == nil {
				cascadeSize = snapshot.Size()
			}
		}
		row := []string{
			entry.ID,
			entry.Timestamp.UTC().Format(time.RFC3339),
			string(entry.Entity),
			entry.EntityID,
			entry.Label,
			string(entry.Action),
			strconv.FormatBool(entry.Undone),
			strconv.Itoa(cascadeSize),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
