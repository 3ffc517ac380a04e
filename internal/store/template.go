package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/gesture"
	"github.com/ayusman/tandava/internal/hand"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// TemplateRecord is a stored template with its bookkeeping columns.
type TemplateRecord struct {
	gesture.Template
	Builtin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateRepository provides CRUD operations for gesture templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Save inserts t or replaces the stored template with the same ID,
// landmarks included.
func (r *TemplateRepository) Save(t *gesture.Template) error {
	return r.save(t, false)
}

func (r *TemplateRepository) save(t *gesture.Template, builtin bool) error {
	if t == nil || t.ID == "" {
		return errors.New("template id is required")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(
		`INSERT INTO templates (id, gesture, tolerance, samples, builtin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   gesture = excluded.gesture,
		   tolerance = excluded.tolerance,
		   samples = excluded.samples,
		   updated_at = excluded.updated_at`,
		t.ID, t.Gesture.String(), t.Tolerance, t.Samples, builtin, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM template_landmarks WHERE template_id = ?`, t.ID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO template_landmarks (template_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range t.Landmarks {
		if _, err := stmt.Exec(t.ID, i, p.X, p.Y, p.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Seed stores every template whose ID is not already present and reports
// how many were written. Existing rows, trained or edited, are left alone.
func (r *TemplateRepository) Seed(templates []*gesture.Template) (int, error) {
	added := 0
	for _, t := range templates {
		_, err := r.Get(t.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		if err := r.save(t, true); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Get retrieves a template by its ID.
func (r *TemplateRepository) Get(id string) (*TemplateRecord, error) {
	rec := &TemplateRecord{}
	var name string

	err := r.db.QueryRow(
		`SELECT id, gesture, tolerance, samples, builtin, created_at, updated_at
		 FROM templates WHERE id = ?`,
		id,
	).Scan(&rec.ID, &name, &rec.Tolerance, &rec.Samples, &rec.Builtin, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if rec.Gesture, err = hand.ParseGesture(name); err != nil {
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	if rec.Landmarks, err = r.landmarks(id); err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves every template, ordered by gesture then ID.
func (r *TemplateRepository) List() ([]*TemplateRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, tolerance, samples, builtin, created_at, updated_at
		 FROM templates ORDER BY gesture, id`,
	)
	if err != nil {
		return nil, err
	}

	var records []*TemplateRecord
	for rows.Next() {
		rec := &TemplateRecord{}
		var name string
		if err := rows.Scan(&rec.ID, &name, &rec.Tolerance, &rec.Samples, &rec.Builtin, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if rec.Gesture, err = hand.ParseGesture(name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("template %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// the store holds a single connection, so landmarks are read after the
	// template cursor is closed
	for _, rec := range records {
		if rec.Landmarks, err = r.landmarks(rec.ID); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// Matcher builds a StaticMatcher loaded with every stored template.
func (r *TemplateRepository) Matcher() (*gesture.StaticMatcher, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}

	m := gesture.NewStaticMatcher()
	for _, rec := range records {
		t := rec.Template
		m.AddTemplate(&t)
	}
	return m, nil
}

// Delete removes a template by its ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTrained removes the trained templates of g, leaving its built-in
// pose in place.
func (r *TemplateRepository) DeleteTrained(g hand.Gesture) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE gesture = ? AND builtin = 0`, g.String())
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TemplateRepository) landmarks(id string) ([]detector.Point3D, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM template_landmarks WHERE template_id = ? ORDER BY landmark_index`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []detector.Point3D
	for rows.Next() {
		var p detector.Point3D
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
