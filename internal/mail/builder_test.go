// internal/mail/builder_test.go
//
// FormPlant – Mail subsystem: builder tests.
//
//------------------------------------------------------------------------------

package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/yanizio/formplant/internal/form"
)

func testContext() BuildContext {
	return BuildContext{
		Form: &form.Form{
			ID:    1,
			Title: "Contact",
			Fields: []form.FieldDef{
				{Type: form.TypeText, Name: "name", Label: "Name"},
				{Type: form.TypeEmail, Name: "email", Label: "Email"},
				{Type: form.TypeCheckbox, Name: "tags", Label: "Tags", Delimiter: " / "},
				{Type: form.TypeHidden, Name: "token"},
				{Type: form.TypeHTML, Name: "blurb", Content: "<p>x</p>"},
			},
		},
		Data: form.Values{
			"name":  "Jane",
			"email": "jane@example.com",
			"tags":  []any{"a", "b"},
			"token": "secret",
		},
		SubmissionID: 42,
		SubmittedAt:  time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		IPAddress:    "203.0.113.9",
		Site:         SiteInfo{Name: "Example", URL: "https://example.com"},
	}
}

func TestTagPrecedence(t *testing.T) {
	ctx := testContext()
	spec := form.EmailSpec{
		Enabled: true,
		To:      "admin@example.com",
		Subject: "[{form_title}] from {field:name}",
		Body:    "{all_fields}\n--\nLegacy: {name}\nID {submission_id} at {submission_date} from {ip_address} via {site_name}",
	}

	msg, ok := BuildAdmin(spec, ctx)
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.Subject != "[Contact] from Jane" {
		t.Fatalf("subject: %q", msg.Subject)
	}
	for _, want := range []string{
		"Name: Jane", "Email: jane@example.com", "Tags: a / b",
		"Legacy: Jane", "ID 42", "2026-08-28 10:00:00", "203.0.113.9", "Example",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
	// Hidden and html fields never appear in the all-fields dump.
	if strings.Contains(msg.Body, "secret") || strings.Contains(msg.Body, "blurb") {
		t.Fatalf("display-only fields leaked:\n%s", msg.Body)
	}
}

func TestUnknownFieldTagVanishes(t *testing.T) {
	ctx := testContext()
	spec := form.EmailSpec{Enabled: true, To: "a@b.com", Body: "x{field:ghost}y"}
	msg, _ := BuildAdmin(spec, ctx)
	if msg.Body != "xy" {
		t.Fatalf("unknown field tag must vanish, got %q", msg.Body)
	}
}

func TestAddressFiltering(t *testing.T) {
	ctx := testContext()
	spec := form.EmailSpec{
		Enabled: true,
		To:      "good@example.com, not-an-address, also@example.com",
		CC:      "broken",
	}
	msg, ok := BuildAdmin(spec, ctx)
	if !ok {
		t.Fatal("expected a message")
	}
	if len(msg.To) != 2 || msg.To[0] != "good@example.com" || msg.To[1] != "also@example.com" {
		t.Fatalf("invalid recipients must be dropped silently: %v", msg.To)
	}
	if len(msg.CC) != 0 {
		t.Fatalf("cc filtering failed: %v", msg.CC)
	}
}

func TestAdminSkips(t *testing.T) {
	ctx := testContext()
	if _, ok := BuildAdmin(form.EmailSpec{Enabled: false, To: "a@b.com"}, ctx); ok {
		t.Fatal("disabled spec must skip")
	}
	if _, ok := BuildAdmin(form.EmailSpec{Enabled: true, To: "garbage"}, ctx); ok {
		t.Fatal("no valid recipient must skip")
	}
}

func TestUserRecipientResolution(t *testing.T) {
	ctx := testContext()
	spec := form.EmailSpec{Enabled: true, ToField: "email", Subject: "Thanks {field:name}"}

	msg, ok := BuildUser(spec, ctx)
	if !ok {
		t.Fatal("expected an auto-reply")
	}
	if len(msg.To) != 1 || msg.To[0] != "jane@example.com" {
		t.Fatalf("recipient must come from the submitted field: %v", msg.To)
	}

	// A missing or malformed recipient value skips the send.
	ctx.Data["email"] = ""
	if _, ok := BuildUser(spec, ctx); ok {
		t.Fatal("empty recipient field must skip")
	}
	ctx.Data["email"] = "not-an-address"
	if _, ok := BuildUser(spec, ctx); ok {
		t.Fatal("malformed recipient must skip")
	}
}

func TestAdminAttachmentsFromUploads(t *testing.T) {
	ctx := testContext()
	ctx.UploadRoot = "/srv/uploads"
	ctx.Form.Fields = append(ctx.Form.Fields, form.FieldDef{Type: form.TypeFile, Name: "doc", Label: "Doc"})
	ctx.Data["doc"] = map[string]any{"filename": "cv.pdf", "file": "/srv/uploads/1/cv-abc.pdf"}

	msg, _ := BuildAdmin(form.EmailSpec{Enabled: true, To: "a@b.com"}, ctx)
	if len(msg.Attachments) != 1 || msg.Attachments[0] != "/srv/uploads/1/cv-abc.pdf" {
		t.Fatalf("stored upload path must attach: %v", msg.Attachments)
	}
}

func TestAdminAttachmentsRejectOutsideRoot(t *testing.T) {
	ctx := testContext()
	ctx.UploadRoot = "/srv/uploads"
	ctx.Form.Fields = append(ctx.Form.Fields, form.FieldDef{Type: form.TypeFile, Name: "doc", Label: "Doc"})

	// File descriptors round-trip through the client on JSON submits, so
	// the path is attacker-controlled.
	forged := []string{
		"/etc/passwd",
		"/srv/uploads/../../etc/passwd",
		"/srv/uploads-evil/x.pdf",
	}
	for _, p := range forged {
		ctx.Data["doc"] = map[string]any{"filename": "a.pdf", "file": p}
		msg, _ := BuildAdmin(form.EmailSpec{Enabled: true, To: "a@b.com"}, ctx)
		if len(msg.Attachments) != 0 {
			t.Fatalf("path %q outside the upload root must not attach: %v", p, msg.Attachments)
		}
	}

	// No configured root means no attachments at all.
	ctx.UploadRoot = ""
	ctx.Data["doc"] = map[string]any{"filename": "cv.pdf", "file": "/srv/uploads/1/cv-abc.pdf"}
	msg, _ := BuildAdmin(form.EmailSpec{Enabled: true, To: "a@b.com"}, ctx)
	if len(msg.Attachments) != 0 {
		t.Fatalf("empty root must disable attachments: %v", msg.Attachments)
	}
}
