// Package registry is the durable identity store: person records in
// SQLite, looked up by the classifier label at recognition time and
// managed by the enrollment workflow.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/facegate/facegate/pkg/logging"
)

// ErrDuplicateIdentity is returned when name and external id collide with
// an existing record.
var ErrDuplicateIdentity = errors.New("identity already registered")

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("person not found")

// Person is one identity record.
type Person struct {
	ID         int
	Name       string
	ExternalID string
	Role       string
	LastAccess time.Time
}

// SamplePurger removes a person's on-disk samples. Satisfied by
// sample.Store; Remove uses it to cascade deletes.
type SamplePurger interface {
	Purge(personID int) error
}

// Registry stores identity records in SQLite. Id assignment and inserts
// are serialized by an internal mutex so two concurrent enrollments can
// never claim the same id.
type Registry struct {
	mu     sync.Mutex
	db     *sql.DB
	purger SamplePurger
}

// Open opens (and if needed creates) the registry database.
func Open(path string, purger SamplePurger) (*Registry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL DEFAULT '',
		last_access DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_persons_name ON persons(name);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create registry schema: %w", err)
	}

	return &Registry{db: db, purger: purger}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// NextAvailableID returns the smallest positive integer not currently
// assigned, filling gaps left by deletions. It is computed on every call,
// never stored, so concurrent deletions are reflected.
func (r *Registry) NextAvailableID() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextAvailableIDLocked()
}

func (r *Registry) nextAvailableIDLocked() (int, error) {
	rows, err := r.db.Query("SELECT id FROM persons ORDER BY id")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	next := 1
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if id == next {
			next++
		} else if id > next {
			break
		}
	}
	return next, rows.Err()
}

// Add inserts a new record under the given id. The id is normally the one
// reserved via NextAvailableID by the enrollment workflow; Add is only
// called after training succeeded (two-phase commit).
func (r *Registry) Add(id int, name, externalID, role string) (*Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM persons WHERE name = ? AND external_id = ?",
		name, externalID,
	).Scan(&count)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrDuplicateIdentity, name, externalID)
	}

	_, err = r.db.Exec(
		"INSERT INTO persons (id, name, external_id, role, last_access) VALUES (?, ?, ?, ?, NULL)",
		id, name, externalID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert person: %w", err)
	}

	logging.Component("registry").Infof("registered person %d (%s)", id, name)
	return &Person{ID: id, Name: name, ExternalID: externalID, Role: role}, nil
}

// Update applies the non-empty fields to an existing record.
func (r *Registry) Update(id int, name, externalID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if name != "" {
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if externalID != "" {
		sets = append(sets, "external_id = ?")
		args = append(args, externalID)
	}
	if role != "" {
		sets = append(sets, "role = ?")
		args = append(args, role)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.Exec("UPDATE persons SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch records an access for the person.
func (r *Registry) Touch(id int, at time.Time) error {
	res, err := r.db.Exec("UPDATE persons SET last_access = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a record and cascades to the person's on-disk samples.
// The classifier label stays in the label map; retraining after the purge
// drops the samples from the model while historical exports keep resolving.
func (r *Registry) Remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec("DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if r.purger != nil {
		if err := r.purger.Purge(id); err != nil {
			return fmt.Errorf("person %d removed but sample purge failed: %w", id, err)
		}
	}

	logging.Component("registry").Infof("removed person %d", id)
	return nil
}

// Get returns the record with the given id.
func (r *Registry) Get(id int) (*Person, error) {
	row := r.db.QueryRow(
		"SELECT id, name, external_id, role, last_access FROM persons WHERE id = ?", id,
	)
	return scanPerson(row)
}

// Find returns records whose name, external id or role contains the query,
// case-insensitive.
func (r *Registry) Find(query string) ([]Person, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := r.db.Query(`
		SELECT id, name, external_id, role, last_access FROM persons
		WHERE lower(name) LIKE ? OR lower(external_id) LIKE ? OR lower(role) LIKE ?
		ORDER BY id`,
		pattern, pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPersons(rows)
}

// List returns all records ordered by id.
func (r *Registry) List() ([]Person, error) {
	rows, err := r.db.Query(
		"SELECT id, name, external_id, role, last_access FROM persons ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPersons(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPerson(row rowScanner) (*Person, error) {
	var p Person
	var last sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.ExternalID, &p.Role, &last)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if last.Valid {
		p.LastAccess = last.Time
	}
	return &p, nil
}

func collectPersons(rows *sql.Rows) ([]Person, error) {
	var persons []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, rows.Err()
}
