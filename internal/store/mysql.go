// internal/store/mysql.go
//
// FormPlant – Storage subsystem: MySQL implementation.
//
// Context
//   One sqlx pool serves both stores.  Form meta sections round-trip through
//   encoding/json; the submission blob is marshalled once at insert and
//   stored verbatim, so the on-disk contract survives schema-free.
//
//------------------------------------------------------------------------------

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/formplant/internal/form"
)

// MySQL implements FormStore and SubmissionStore on one pool.
type MySQL struct {
	db *sqlx.DB
}

// NewMySQL wraps an open pool.
func NewMySQL(db *sqlx.DB) *MySQL { return &MySQL{db: db} }

type formRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type metaRow struct {
	MetaKey   string `db:"meta_key"`
	MetaValue string `db:"meta_value"`
}

// GetForm loads the row and its meta sections.  Trashed forms are still
// loadable; callers decide whether a status is acceptable.
func (s *MySQL) GetForm(ctx context.Context, id int64) (*form.Form, error) {
	const q = `
        SELECT id, title, status, created_at, updated_at
        FROM   form
        WHERE  id = ?
        LIMIT  1`
	var row formRow
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get form %d: %w", id, err)
	}

	const mq = `
        SELECT meta_key, meta_value
        FROM   form_meta
        WHERE  form_id = ?`
	var meta []metaRow
	if err := s.db.SelectContext(ctx, &meta, mq, id); err != nil {
		return nil, fmt.Errorf("store: get form %d meta: %w", id, err)
	}

	fm := &form.Form{
		ID:        row.ID,
		Title:     row.Title,
		Status:    form.Status(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	for _, m := range meta {
		if err := decodeSection(fm, m.MetaKey, m.MetaValue); err != nil {
			return nil, fmt.Errorf("store: form %d section %s: %w", id, m.MetaKey, err)
		}
	}
	fm.Normalize()
	return fm, nil
}

func decodeSection(fm *form.Form, key, value string) error {
	switch key {
	case SectionFields:
		return json.Unmarshal([]byte(value), &fm.Fields)
	case SectionHTMLTemplate:
		return json.Unmarshal([]byte(value), &fm.HTMLTemplate)
	case SectionSettings:
		return json.Unmarshal([]byte(value), &fm.Settings)
	case SectionEmailAdmin:
		return json.Unmarshal([]byte(value), &fm.EmailAdmin)
	case SectionEmailUser:
		return json.Unmarshal([]byte(value), &fm.EmailUser)
	case SectionSpam:
		return json.Unmarshal([]byte(value), &fm.Spam)
	default:
		// Unknown sections are tolerated so older rows keep loading.
		return nil
	}
}

// ListForms returns the rows only, without meta sections, for listings.
func (s *MySQL) ListForms(ctx context.Context, filter FormFilter) ([]form.Form, error) {
	q := `
        SELECT id, title, status, created_at, updated_at
        FROM   form
        WHERE  status <> 'trash'`
	args := []any{}
	if filter.Status != "" {
		q = strings.Replace(q, "status <> 'trash'", "status = ?", 1)
		args = append(args, string(filter.Status))
	}
	q += ` ORDER BY id`

	var rows []formRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	out := make([]form.Form, len(rows))
	for i, r := range rows {
		out[i] = form.Form{
			ID: r.ID, Title: r.Title, Status: form.Status(r.Status),
			CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		}
	}
	return out, nil
}

// UpsertForm inserts or updates by title, then rewrites every meta section.
// Used by YAML seeding and the admin API.
func (s *MySQL) UpsertForm(ctx context.Context, fm *form.Form) error {
	if err := fm.Validate(); err != nil {
		return err
	}

	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM form WHERE title = ? LIMIT 1`, fm.Title)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, ierr := s.db.ExecContext(ctx,
			`INSERT INTO form (title, status, created_at, updated_at) VALUES (?, ?, NOW(), NOW())`,
			fm.Title, string(fm.Status))
		if ierr != nil {
			return fmt.Errorf("store: insert form: %w", ierr)
		}
		id, ierr = res.LastInsertId()
		if ierr != nil {
			return fmt.Errorf("store: insert form id: %w", ierr)
		}
	case err != nil:
		return fmt.Errorf("store: upsert form lookup: %w", err)
	default:
		if _, uerr := s.db.ExecContext(ctx,
			`UPDATE form SET status = ?, updated_at = NOW() WHERE id = ?`,
			string(fm.Status), id); uerr != nil {
			return fmt.Errorf("store: update form: %w", uerr)
		}
	}
	fm.ID = id

	sections := map[string]any{
		SectionFields:       fm.Fields,
		SectionHTMLTemplate: fm.HTMLTemplate,
		SectionSettings:     fm.Settings,
		SectionEmailAdmin:   fm.EmailAdmin,
		SectionEmailUser:    fm.EmailUser,
		SectionSpam:         fm.Spam,
	}
	for key, value := range sections {
		if err := s.SaveFormMeta(ctx, id, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SaveFormMeta JSON-encodes value and upserts one meta section.
func (s *MySQL) SaveFormMeta(ctx context.Context, formID int64, section string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", section, err)
	}
	const q = `
        INSERT INTO form_meta (form_id, meta_key, meta_value)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)`
	if _, err := s.db.ExecContext(ctx, q, formID, section, string(blob)); err != nil {
		return fmt.Errorf("store: save meta %s: %w", section, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Submissions
// -----------------------------------------------------------------------------

type submissionRow struct {
	ID             int64     `db:"id"`
	FormID         int64     `db:"form_id"`
	SubmissionData string    `db:"submission_data"`
	SentTime       time.Time `db:"sent_time"`
}

// Insert appends one row and returns its id.  FormData nil is normalised to
// an empty object so metadata-only rows decode cleanly.
func (s *MySQL) Insert(ctx context.Context, formID int64, p Payload, at time.Time) (int64, error) {
	if p.FormData == nil {
		p.FormData = form.Values{}
	}
	blob, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("store: encode submission: %w", err)
	}
	const q = `
        INSERT INTO form_submission (form_id, submission_data, sent_time)
        VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, formID, string(blob), at)
	if err != nil {
		return 0, fmt.Errorf("store: insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert submission id: %w", err)
	}
	return id, nil
}

func (s *MySQL) Get(ctx context.Context, id int64) (*Submission, error) {
	const q = `
        SELECT id, form_id, submission_data, sent_time
        FROM   form_submission
        WHERE  id = ?
        LIMIT  1`
	var row submissionRow
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get submission %d: %w", id, err)
	}
	return row.toSubmission()
}

func (r submissionRow) toSubmission() (*Submission, error) {
	sub := &Submission{ID: r.ID, FormID: r.FormID, SentTime: r.SentTime}
	if err := json.Unmarshal([]byte(r.SubmissionData), &sub.Payload); err != nil {
		return nil, fmt.Errorf("store: decode submission %d: %w", r.ID, err)
	}
	return sub, nil
}

// List applies the filter and returns rows newest first.
func (s *MySQL) List(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	q := `
        SELECT id, form_id, submission_data, sent_time
        FROM   form_submission
        WHERE  1 = 1`
	var args []any
	if filter.FormID != 0 {
		q += ` AND form_id = ?`
		args = append(args, filter.FormID)
	}
	if !filter.From.IsZero() {
		q += ` AND sent_time >= ?`
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		q += ` AND sent_time <= ?`
		args = append(args, filter.To)
	}
	if filter.Search != "" {
		q += ` AND submission_data LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	q += ` ORDER BY sent_time DESC, id DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	var rows []submissionRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("store: list submissions: %w", err)
	}
	out := make([]Submission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.toSubmission()
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, nil
}

func (s *MySQL) Count(ctx context.Context, formID int64) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM form_submission WHERE form_id = ?`, formID); err != nil {
		return 0, fmt.Errorf("store: count submissions: %w", err)
	}
	return n, nil
}

// Delete removes one row.  Deleting a missing id reports ErrNotFound so the
// API can answer 404 instead of silently succeeding.
func (s *MySQL) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM form_submission WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete submission %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete submission %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
