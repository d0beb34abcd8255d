// internal/submit/pipeline_test.go
//
// FormPlant – Submission subsystem: pipeline tests with in-memory fakes.
//
//------------------------------------------------------------------------------

package submit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yanizio/formplant/internal/captcha"
	"github.com/yanizio/formplant/internal/form"
	"github.com/yanizio/formplant/internal/mail"
	"github.com/yanizio/formplant/internal/spam"
	"github.com/yanizio/formplant/internal/store"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeForms struct {
	forms map[int64]*form.Form
}

func (f *fakeForms) GetForm(_ context.Context, id int64) (*form.Form, error) {
	fm, ok := f.forms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return fm, nil
}
func (f *fakeForms) ListForms(context.Context, store.FormFilter) ([]form.Form, error) {
	return nil, nil
}
func (f *fakeForms) UpsertForm(context.Context, *form.Form) error               { return nil }
func (f *fakeForms) SaveFormMeta(context.Context, int64, string, any) error     { return nil }

type fakeSubs struct {
	rows    []store.Payload
	nextID  int64
	failIns error
}

func (s *fakeSubs) Insert(_ context.Context, _ int64, p store.Payload, _ time.Time) (int64, error) {
	if s.failIns != nil {
		return 0, s.failIns
	}
	s.rows = append(s.rows, p)
	s.nextID++
	return s.nextID, nil
}
func (s *fakeSubs) Get(context.Context, int64) (*store.Submission, error)           { return nil, store.ErrNotFound }
func (s *fakeSubs) List(context.Context, store.SubmissionFilter) ([]store.Submission, error) {
	return nil, nil
}
func (s *fakeSubs) Count(context.Context, int64) (int64, error) { return int64(len(s.rows)), nil }
func (s *fakeSubs) Delete(context.Context, int64) error         { return nil }

type fakeMailer struct {
	sent []*mail.Message
	fail error
}

func (m *fakeMailer) Send(_ context.Context, msg *mail.Message) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeVerifier struct {
	result captcha.Result
	err    error
}

func (v fakeVerifier) Verify(context.Context, string, string) (captcha.Result, error) {
	return v.result, v.err
}

func newPipeline(fm *form.Form) (*Pipeline, *fakeSubs, *fakeMailer) {
	fm.Normalize()
	subs := &fakeSubs{}
	mailer := &fakeMailer{}
	p := &Pipeline{
		Forms:       &fakeForms{forms: map[int64]*form.Form{fm.ID: fm}},
		Submissions: subs,
		Validator:   form.NewValidator(),
		Guard:       spam.NewGuard(),
		Mailer:      mailer,
		Site:        mail.SiteInfo{Name: "Example", URL: "https://example.com"},
	}
	return p, subs, mailer
}

func contactForm() *form.Form {
	return &form.Form{
		ID:     1,
		Title:  "Contact",
		Status: form.StatusPublished,
		Fields: []form.FieldDef{
			{Type: form.TypeText, Name: "name", Label: "Name", Required: true},
		},
	}
}

// -----------------------------------------------------------------------------
// Single phase
// -----------------------------------------------------------------------------

func TestSubmitHappyPath(t *testing.T) {
	p, subs, _ := newPipeline(contactForm())

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil,
		Meta{IP: "203.0.113.9", UserAgent: "UA"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(subs.rows) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(subs.rows))
	}
	row := subs.rows[0]
	if row.FormData.String("name") != "Jane" || row.IPAddress != "203.0.113.9" {
		t.Fatalf("payload wrong: %+v", row)
	}
	if res.Message == "" || res.ActionType != "message" {
		t.Fatalf("default action must be a message: %+v", res)
	}
}

func TestSubmitValidationFailurePersistsNothing(t *testing.T) {
	p, subs, mailer := newPipeline(contactForm())

	res := p.Submit(context.Background(), 1, form.Values{"name": ""}, nil, Meta{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if _, ok := res.Errors["name"]; !ok {
		t.Fatalf("expected a field error, got %+v", res)
	}
	if len(subs.rows) != 0 || len(mailer.sent) != 0 {
		t.Fatal("failed validation must not persist or notify")
	}
}

func TestSubmitUnknownFormIsNotFound(t *testing.T) {
	p, _, _ := newPipeline(contactForm())
	res := p.Submit(context.Background(), 99, form.Values{}, nil, Meta{})
	if res.Success || !res.NotFound {
		t.Fatalf("expected not-found failure, got %+v", res)
	}
}

func TestTrashedFormAnswersAsMissing(t *testing.T) {
	fm := contactForm()
	fm.Status = form.StatusTrash
	p, _, _ := newPipeline(fm)
	res := p.Submit(context.Background(), 1, form.Values{"name": "x"}, nil, Meta{})
	if !res.NotFound {
		t.Fatalf("trashed form must answer as missing, got %+v", res)
	}
}

func TestStorageFailureAbortsBeforeMail(t *testing.T) {
	fm := contactForm()
	fm.EmailAdmin = form.EmailSpec{Enabled: true, To: "admin@example.com"}
	p, subs, mailer := newPipeline(fm)
	subs.failIns = errors.New("disk full")

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{})
	if res.Success {
		t.Fatal("storage failure must fail the submission")
	}
	if len(res.Errors) != 0 {
		t.Fatal("infrastructure failures carry a single message, not field errors")
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no email may go out when persistence failed")
	}
}

func TestMailFailureDoesNotFailSubmission(t *testing.T) {
	fm := contactForm()
	fm.EmailAdmin = form.EmailSpec{Enabled: true, To: "admin@example.com"}
	p, subs, mailer := newPipeline(fm)
	mailer.fail = errors.New("relay down")

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{})
	if !res.Success {
		t.Fatalf("mail is best-effort, got %+v", res)
	}
	if len(subs.rows) != 1 {
		t.Fatal("row must still be persisted")
	}
}

func TestNotificationsAreIndependent(t *testing.T) {
	fm := contactForm()
	fm.Fields = append(fm.Fields, form.FieldDef{Type: form.TypeEmail, Name: "email", Label: "Email"})
	fm.EmailAdmin = form.EmailSpec{Enabled: true, To: "admin@example.com", Subject: "admin"}
	fm.EmailUser = form.EmailSpec{Enabled: true, ToField: "email", Subject: "user"}
	p, _, mailer := newPipeline(fm)

	res := p.Submit(context.Background(), 1,
		form.Values{"name": "Jane", "email": "jane@example.com"}, nil, Meta{})
	if !res.Success || len(mailer.sent) != 2 {
		t.Fatalf("expected both notifications, got %d (%+v)", len(mailer.sent), res)
	}
}

// -----------------------------------------------------------------------------
// Save modes
// -----------------------------------------------------------------------------

func saveSetting(s string) *form.SaveSetting {
	v := form.SaveSetting(s)
	return &v
}

func TestSaveModeMetadataOnly(t *testing.T) {
	fm := contactForm()
	fm.Settings.SaveSubmission = saveSetting("metadata_only")
	p, subs, _ := newPipeline(fm)

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil,
		Meta{IP: "1.2.3.4", UserAgent: "UA"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	row := subs.rows[0]
	if len(row.FormData) != 0 {
		t.Fatalf("metadata-only rows store an empty data map, got %+v", row.FormData)
	}
	if row.IPAddress != "1.2.3.4" || row.UserAgent != "UA" {
		t.Fatal("client metadata must still be captured")
	}
}

func TestSaveModeNone(t *testing.T) {
	fm := contactForm()
	fm.Settings.SaveSubmission = saveSetting("none")
	p, subs, _ := newPipeline(fm)

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{})
	if !res.Success {
		t.Fatalf("save mode none still succeeds, got %+v", res)
	}
	if len(subs.rows) != 0 {
		t.Fatal("no row may be created")
	}
	if res.SubmissionID != 0 {
		t.Fatal("no submission id exists when nothing was saved")
	}
}

func TestLegacyBooleanSaveMode(t *testing.T) {
	fm := contactForm()
	fm.Settings.SaveSubmission = saveSetting("0")
	p, subs, _ := newPipeline(fm)

	if res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{}); !res.Success {
		t.Fatalf("legacy '0' must behave as none, got %+v", res)
	}
	if len(subs.rows) != 0 {
		t.Fatal("legacy '0' must not persist")
	}
}

// -----------------------------------------------------------------------------
// Two phase
// -----------------------------------------------------------------------------

func TestPreviewRendersConfirmation(t *testing.T) {
	fm := &form.Form{
		ID: 2, Title: "Newsletter", Status: form.StatusPublished,
		Fields:   []form.FieldDef{{Type: form.TypeEmail, Name: "email", Label: "Email", Required: true}},
		Settings: form.Settings{UseConfirmation: true},
	}
	p, subs, mailer := newPipeline(fm)

	res := p.ValidateAndPreview(context.Background(), 2, form.Values{"email": "not-an-email"}, nil, nil)
	if res.Success {
		t.Fatal("malformed email must fail the preview")
	}

	res = p.ValidateAndPreview(context.Background(), 2, form.Values{"email": "a@b.com"}, nil, nil)
	if !res.Success || !strings.Contains(res.ConfirmationHTML, "a@b.com") {
		t.Fatalf("preview must echo the value, got %+v", res)
	}
	if len(subs.rows) != 0 || len(mailer.sent) != 0 {
		t.Fatal("preview must have no side effects")
	}
}

func TestFinalizeRevalidates(t *testing.T) {
	fm := &form.Form{
		ID: 2, Title: "Newsletter", Status: form.StatusPublished,
		Fields:   []form.FieldDef{{Type: form.TypeEmail, Name: "email", Label: "Email", Required: true}},
		Settings: form.Settings{UseConfirmation: true},
	}
	p, subs, _ := newPipeline(fm)

	good := form.Values{"email": "a@b.com"}
	if res := p.ValidateAndPreview(context.Background(), 2, good, nil, nil); !res.Success {
		t.Fatalf("preview should pass: %+v", res)
	}

	// The client empties the field between preview and finalize; the
	// earlier preview carries no authority.
	res := p.Submit(context.Background(), 2, form.Values{"email": ""}, nil, Meta{})
	if res.Success {
		t.Fatal("finalize must re-validate the resent payload")
	}
	if len(subs.rows) != 0 {
		t.Fatal("nothing may persist on finalize failure")
	}

	if res := p.Submit(context.Background(), 2, good, nil, Meta{}); !res.Success {
		t.Fatalf("clean finalize should pass: %+v", res)
	}
	if len(subs.rows) != 1 {
		t.Fatal("finalize persists exactly one row")
	}
}

// -----------------------------------------------------------------------------
// Gates
// -----------------------------------------------------------------------------

func TestCaptchaGate(t *testing.T) {
	fm := contactForm()
	fm.Settings.CaptchaEnabled = true
	fm.Settings.CaptchaVersion = "v3"
	p, subs, _ := newPipeline(fm)
	values := form.Values{"name": "Jane"}

	p.Captcha = fakeVerifier{result: captcha.Result{Success: true, Score: 0.9}}
	if res := p.Submit(context.Background(), 1, values, nil, Meta{CaptchaToken: "tok"}); !res.Success {
		t.Fatalf("passing captcha should allow, got %+v", res)
	}

	p.Captcha = fakeVerifier{result: captcha.Result{Success: true, Score: 0.1}}
	if res := p.Submit(context.Background(), 1, values, nil, Meta{CaptchaToken: "tok"}); res.Success {
		t.Fatal("low score must reject")
	}

	p.Captcha = fakeVerifier{err: errors.New("unreachable")}
	if res := p.Submit(context.Background(), 1, values, nil, Meta{CaptchaToken: "tok"}); res.Success {
		t.Fatal("unreachable verifier must reject, never skip")
	}

	if len(subs.rows) != 1 {
		t.Fatalf("only the passing submission may persist, got %d rows", len(subs.rows))
	}
}

func TestHoneypotGate(t *testing.T) {
	fm := contactForm()
	fm.Spam = form.SpamSettings{Honeypot: true}
	p, subs, _ := newPipeline(fm)

	res := p.Submit(context.Background(), 1,
		form.Values{"name": "Jane", spam.HoneypotField: "bot"}, nil, Meta{})
	if res.Success || len(subs.rows) != 0 {
		t.Fatalf("honeypot hit must reject before anything persists: %+v", res)
	}
}

// -----------------------------------------------------------------------------
// Result descriptors and observers
// -----------------------------------------------------------------------------

func TestActionTypes(t *testing.T) {
	fm := contactForm()
	fm.Settings.ActionType = form.ActionRedirect
	fm.Settings.RedirectURL = "https://example.com/thanks"
	p, _, _ := newPipeline(fm)

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{})
	if res.ActionType != "redirect" || res.RedirectURL != "https://example.com/thanks" {
		t.Fatalf("redirect descriptor wrong: %+v", res)
	}

	fm.Settings.ActionType = form.ActionCustomPage
	fm.Settings.SuccessPageHTML = "<h1>Done</h1>"
	res = p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{})
	if res.ActionType != "custom_page" || res.SuccessPageHTML != "<h1>Done</h1>" {
		t.Fatalf("custom-page descriptor wrong: %+v", res)
	}
}

type recordingObserver struct {
	calls int
	lastID int64
}

func (o *recordingObserver) SubmissionSaved(_ context.Context, _ *form.Form, id int64, _ form.Values, _ Meta) {
	o.calls++
	o.lastID = id
}

func TestObserversRunAfterSuccess(t *testing.T) {
	p, _, _ := newPipeline(contactForm())
	obs := &recordingObserver{}
	p.Observers = []SubmissionObserver{obs}

	p.Submit(context.Background(), 1, form.Values{"name": ""}, nil, Meta{})
	if obs.calls != 0 {
		t.Fatal("observers must not run on failure")
	}

	res := p.Submit(context.Background(), 1, form.Values{"name": "Jane"}, nil, Meta{})
	if obs.calls != 1 || obs.lastID != res.SubmissionID {
		t.Fatalf("observer must see the stored id: %+v", obs)
	}
}
