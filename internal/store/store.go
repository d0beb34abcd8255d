// internal/store/store.go
//
// FormPlant – Storage subsystem: contracts and shared types.
//
// Context
//   Forms persist as a row in `form` plus JSON meta sections in `form_meta`;
//   submissions are an append-only `form_submission` table holding one JSON
//   blob per row.  The pipeline and handlers depend on these interfaces, not
//   on MySQL, so tests substitute in-memory fakes.
//
//------------------------------------------------------------------------------

package store

import (
	"context"
	"errors"
	"time"

	"github.com/yanizio/formplant/internal/form"
)

// ErrNotFound is returned when a form or submission does not exist.  The
// HTTP layer maps it to a 404.
var ErrNotFound = errors.New("store: not found")

// Meta section keys under which a form's JSON blobs are stored.
const (
	SectionFields       = "fields"
	SectionHTMLTemplate = "html_template"
	SectionSettings     = "settings"
	SectionEmailAdmin   = "email_admin"
	SectionEmailUser    = "email_user"
	SectionSpam         = "spam_protection"
)

// FormStore is the form-definition repository.
type FormStore interface {
	GetForm(ctx context.Context, id int64) (*form.Form, error)
	ListForms(ctx context.Context, filter FormFilter) ([]form.Form, error)
	UpsertForm(ctx context.Context, fm *form.Form) error
	SaveFormMeta(ctx context.Context, formID int64, section string, value any) error
}

// FormFilter narrows ListForms.  The zero value lists every non-trashed
// form.
type FormFilter struct {
	Status form.Status
}

// Payload is the bit-exact JSON blob persisted per submission row.  Existing
// data depends on these key names; do not rename them.
type Payload struct {
	FormData  form.Values `json:"form_data"`
	IPAddress string      `json:"ip_address"`
	UserAgent string      `json:"user_agent"`
	Referrer  string      `json:"referrer"`
	UserID    int64       `json:"user_id"`
}

// Submission is one stored row.
type Submission struct {
	ID       int64     `json:"id"`
	FormID   int64     `json:"form_id"`
	Payload  Payload   `json:"payload"`
	SentTime time.Time `json:"sent_time"`
}

// SubmissionFilter narrows List.  Zero time bounds are open; Search matches
// a substring of the stored blob.
type SubmissionFilter struct {
	FormID int64
	From   time.Time
	To     time.Time
	Search string
	Limit  int
	Offset int
}

// SubmissionStore is the append-only submission log.  There is deliberately
// no update operation; rows are created once and only ever deleted.
type SubmissionStore interface {
	Insert(ctx context.Context, formID int64, p Payload, at time.Time) (int64, error)
	Get(ctx context.Context, id int64) (*Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
	Count(ctx context.Context, formID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}
