// Package sqlite provides a durable store that persists the in-memory state
// to an embedded SQLite file as JSON snapshots, one bucket per collection,
// refreshed after every committed transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"skillcore/internal/infra/persistence/memory"
	"skillcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction; when the
// snapshot write fails, the in-memory state is re-synchronized from the last
// durable snapshot so readers never observe a write that did not stick.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "skillcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{
	"categories", "subcategories", "skills", "employees", "departments",
	"roles", "assessments", "plans", "measures", "saved_views",
	"changelog", "meta",
}

type metaPayload struct {
	StructuralVersion uint64 `json:"structural_version"`
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	var found bool
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		found = true
		if err := decodeBucket(&snapshot, bucket, payload); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if !found {
		// No durable snapshot yet: hydrate to the empty state so a failed
		// persist cannot leave an optimistic commit visible.
		s.ImportState(memory.Snapshot{})
		return nil
	}
	s.ImportState(snapshot)
	return nil
}

func decodeBucket(snapshot *memory.Snapshot, bucket string, payload []byte) error {
	var target any
	switch bucket {
	case "categories":
		target = &snapshot.Categories
	case "subcategories":
		target = &snapshot.SubCategories
	case "skills":
		target = &snapshot.Skills
	case "employees":
		target = &snapshot.Employees
	case "departments":
		target = &snapshot.Departments
	case "roles":
		target = &snapshot.Roles
	case "assessments":
		target = &snapshot.Assessments
	case "plans":
		target = &snapshot.Plans
	case "measures":
		target = &snapshot.Measures
	case "saved_views":
		target = &snapshot.SavedViews
	case "changelog":
		target = &snapshot.Changes
	case "meta":
		var meta metaPayload
		if err := json.Unmarshal(payload, &meta); err != nil {
			return fmt.Errorf("decode meta: %w", err)
		}
		snapshot.Version = meta.StructuralVersion
		return nil
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func encodeBucket(snapshot memory.Snapshot, bucket string) ([]byte, error) {
	switch bucket {
	case "categories":
		return json.Marshal(snapshot.Categories)
	case "subcategories":
		return json.Marshal(snapshot.SubCategories)
	case "skills":
		return json.Marshal(snapshot.Skills)
	case "employees":
		return json.Marshal(snapshot.Employees)
	case "departments":
		return json.Marshal(snapshot.Departments)
	case "roles":
		return json.Marshal(snapshot.Roles)
	case "assessments":
		return json.Marshal(snapshot.Assessments)
	case "plans":
		return json.Marshal(snapshot.Plans)
	case "measures":
		return json.Marshal(snapshot.Measures)
	case "saved_views":
		return json.Marshal(snapshot.SavedViews)
	case "changelog":
		return json.Marshal(snapshot.Changes)
	case "meta":
		return json.Marshal(metaPayload{StructuralVersion: snapshot.Version})
	}
	return nil, fmt.Errorf("unknown bucket %s", bucket)
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		data, err := encodeBucket(snapshot, bucket)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies fn within a memory transaction, then snapshots
// state to SQLite. A failed snapshot discards the optimistic in-memory
// commit by rehydrating from the last durable snapshot.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	if pErr := s.persist(); pErr != nil {
		if lErr := s.load(); lErr != nil {
			return domain.PersistenceError{Op: "resync", Err: errors.Join(pErr, lErr)}
		}
		return domain.PersistenceError{Op: "snapshot", Err: pErr}
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
