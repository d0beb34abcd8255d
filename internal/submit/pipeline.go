// internal/submit/pipeline.go
//
// FormPlant – Submission subsystem: pipeline and two-phase coordinator.
//
// Context
//   Every submission runs the same sequence: load the form, pass the spam
//   and CAPTCHA gates, validate, sanitize, persist according to the form's
//   save mode, notify, and build the result descriptor the client acts on.
//   With confirmation enabled the flow splits into ValidateAndPreview, which
//   returns the rendered confirmation screen, and Finalize, which re-runs
//   the whole pipeline against the client-resent payload — the preview
//   carries no authority, and no server-side session links the two calls.
//
// Workflow
//   Failures fold into exactly two result shapes: validation-shaped ones
//   carry a per-field error map; infrastructure-shaped ones carry a single
//   message.  No error escapes to the transport layer.
//
//------------------------------------------------------------------------------

package submit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/formplant/internal/captcha"
	"github.com/yanizio/formplant/internal/form"
	"github.com/yanizio/formplant/internal/mail"
	"github.com/yanizio/formplant/internal/metrics"
	"github.com/yanizio/formplant/internal/spam"
	"github.com/yanizio/formplant/internal/store"
)

// Meta is the per-request client context recorded with a submission.
type Meta struct {
	IP           string
	UserAgent    string
	Referrer     string
	UserID       int64
	CaptchaToken string
}

// Result is the single response shape every pipeline entry point produces.
// Callers branch on Success only.
type Result struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message,omitempty"`
	Errors           map[string]string `json:"errors,omitempty"`
	SubmissionID     int64             `json:"submission_id,omitempty"`
	ActionType       string            `json:"action_type,omitempty"`
	RedirectURL      string            `json:"redirect_url,omitempty"`
	SuccessPageHTML  string            `json:"success_page_html,omitempty"`
	ConfirmationHTML string            `json:"confirmation_html,omitempty"`
	NotFound         bool              `json:"-"`
}

// SubmissionObserver runs after a submission completes.  Observers are best
// effort; a panic-free observer cannot alter the result.
type SubmissionObserver interface {
	SubmissionSaved(ctx context.Context, fm *form.Form, submissionID int64, data form.Values, meta Meta)
}

const (
	msgFormNotFound   = "Form not found."
	msgStorageFailure = "Your submission could not be saved.  Please try again."
	msgCaptchaFailed  = "Verification failed.  Please try again."
	defaultSuccess    = "Thank you.  Your submission has been received."
)

// Pipeline wires the collaborators together.  All fields are required
// except Captcha, Observers, and Uploads-related extras.
type Pipeline struct {
	Forms       store.FormStore
	Submissions store.SubmissionStore
	Validator   *form.Validator
	Guard       *spam.Guard
	Captcha     captcha.Verifier
	Mailer      mail.Transport
	Site        mail.SiteInfo
	Observers   []SubmissionObserver

	// UploadRoot scopes which stored paths may become email attachments.
	UploadRoot string

	// now is swapped in tests.
	now func() time.Time
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func failure(message string) Result { return Result{Success: false, Message: message} }

func validationFailure(errs map[string]string) Result {
	metrics.ValidationFailuresTotal.Inc()
	return Result{Success: false, Errors: errs}
}

// loadForm fetches a servable form.  Trashed forms answer as missing.
func (p *Pipeline) loadForm(ctx context.Context, formID int64) (*form.Form, *Result) {
	fm, err := p.Forms.GetForm(ctx, formID)
	if errors.Is(err, store.ErrNotFound) {
		r := failure(msgFormNotFound)
		r.NotFound = true
		return nil, &r
	}
	if err != nil {
		zap.S().Errorw("form load failed", "form_id", formID, "error", err)
		metrics.SubmissionErrorsTotal.Inc()
		r := failure(msgStorageFailure)
		return nil, &r
	}
	if fm.Status == form.StatusTrash {
		r := failure(msgFormNotFound)
		r.NotFound = true
		return nil, &r
	}
	return fm, nil
}

// ValidateAndPreview is phase one of the confirmation flow: run the full
// validator (including file pre-checks) and, on success, return the
// rendered confirmation screen.  Nothing is persisted and no notification
// is sent.
func (p *Pipeline) ValidateAndPreview(ctx context.Context, formID int64, values form.Values, uploads map[string]form.FileUpload, filenames map[string]string) Result {
	fm, fail := p.loadForm(ctx, formID)
	if fail != nil {
		return *fail
	}

	res := p.Validator.Validate(fm, values, uploads)
	if !res.Valid {
		return validationFailure(res.Errors)
	}
	return Result{
		Success:          true,
		ConfirmationHTML: form.RenderConfirmation(fm, values, filenames),
	}
}

// Submit is the single-phase entry point, and equally the finalize step of
// the two-phase flow: validation always re-runs here regardless of any
// earlier preview.
func (p *Pipeline) Submit(ctx context.Context, formID int64, values form.Values, uploads map[string]form.FileUpload, meta Meta) Result {
	fm, fail := p.loadForm(ctx, formID)
	if fail != nil {
		return *fail
	}

	if msg, rejected := p.Guard.Check(fm, values, meta.IP); rejected {
		metrics.SpamRejectsTotal.Inc()
		return failure(msg)
	}

	if fm.Settings.CaptchaEnabled {
		if p.Captcha == nil || !captcha.Gate(ctx, p.Captcha, fm.Settings.CaptchaVersion, meta.CaptchaToken, meta.IP) {
			metrics.CaptchaRejectsTotal.Inc()
			return failure(msgCaptchaFailed)
		}
	}

	res := p.Validator.Validate(fm, values, uploads)
	if !res.Valid {
		return validationFailure(res.Errors)
	}

	sanitized := form.SanitizeValues(fm, values)
	submittedAt := p.clock()

	var submissionID int64
	switch fm.Settings.SaveMode() {
	case form.SaveNone:
		// No row at all; the submission still succeeds.
	case form.SaveMetadataOnly:
		id, err := p.persist(ctx, fm.ID, form.Values{}, meta, submittedAt)
		if err != nil {
			return failure(msgStorageFailure)
		}
		submissionID = id
	default:
		id, err := p.persist(ctx, fm.ID, sanitized, meta, submittedAt)
		if err != nil {
			return failure(msgStorageFailure)
		}
		submissionID = id
	}

	p.notify(ctx, fm, sanitized, submissionID, submittedAt, meta)

	for _, obs := range p.Observers {
		obs.SubmissionSaved(ctx, fm, submissionID, sanitized, meta)
	}

	metrics.SubmissionsTotal.Inc()
	return p.successResult(fm, submissionID)
}

// persist writes one row; a failed write aborts the submission before any
// notification goes out, so either the row exists or the client sees a
// clean failure.
func (p *Pipeline) persist(ctx context.Context, formID int64, data form.Values, meta Meta, at time.Time) (int64, error) {
	id, err := p.Submissions.Insert(ctx, formID, store.Payload{
		FormData:  data,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
		UserID:    meta.UserID,
	}, at)
	if err != nil {
		zap.S().Errorw("submission insert failed", "form_id", formID, "error", err)
		metrics.SubmissionErrorsTotal.Inc()
		return 0, err
	}
	return id, nil
}

// notify dispatches the admin alert and the user auto-reply independently.
// Either may fail without affecting the other or the submission outcome.
func (p *Pipeline) notify(ctx context.Context, fm *form.Form, data form.Values, submissionID int64, at time.Time, meta Meta) {
	bctx := mail.BuildContext{
		Form:         fm,
		Data:         data,
		SubmissionID: submissionID,
		SubmittedAt:  at,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
		Site:         p.Site,
		UploadRoot:   p.UploadRoot,
	}
	if msg, ok := mail.BuildAdmin(fm.EmailAdmin, bctx); ok {
		if err := p.Mailer.Send(ctx, msg); err != nil {
			metrics.MailFailuresTotal.Inc()
			zap.S().Errorw("admin notification failed", "form_id", fm.ID, "error", err)
		}
	}
	if msg, ok := mail.BuildUser(fm.EmailUser, bctx); ok {
		if err := p.Mailer.Send(ctx, msg); err != nil {
			metrics.MailFailuresTotal.Inc()
			zap.S().Errorw("user auto-reply failed", "form_id", fm.ID, "error", err)
		}
	}
}

// successResult builds the client instruction for the form's post-submit
// action.
func (p *Pipeline) successResult(fm *form.Form, submissionID int64) Result {
	r := Result{Success: true, SubmissionID: submissionID}
	switch fm.Settings.ActionType {
	case form.ActionRedirect:
		r.ActionType = string(form.ActionRedirect)
		r.RedirectURL = fm.Settings.RedirectURL
	case form.ActionCustomPage:
		r.ActionType = string(form.ActionCustomPage)
		r.SuccessPageHTML = fm.Settings.SuccessPageHTML
	default:
		r.ActionType = string(form.ActionMessage)
		r.Message = fm.Settings.SuccessMessage
		if r.Message == "" {
			r.Message = defaultSuccess
		}
	}
	return r
}
