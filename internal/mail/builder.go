// internal/mail/builder.go
//
// FormPlant – Mail subsystem: notification builder.
//
// Context
//   Two independent notifications can follow a submission: the admin alert
//   and the user auto-reply.  Both are built from the same spec shape; the
//   user variant resolves its recipient from a submitted field and silently
//   skips when that value is missing or not an address.  Subject and body
//   share one tag vocabulary applied in a fixed precedence: {all_fields},
//   then {field:name}, then bare {name} legacy tags, then system tags.
//
//------------------------------------------------------------------------------

package mail

import (
	"fmt"
	netmail "net/mail"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yanizio/formplant/internal/form"
)

// SiteInfo carries the deployment identity used by system tags and default
// sender addresses.
type SiteInfo struct {
	Name string
	URL  string
}

// Message is a fully resolved outbound email.
type Message struct {
	To          []string
	CC          []string
	BCC         []string
	FromName    string
	FromEmail   string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []string // server paths of stored uploads
}

// BuildContext is everything tag substitution can reference.
type BuildContext struct {
	Form         *form.Form
	Data         form.Values
	SubmissionID int64
	SubmittedAt  time.Time
	IPAddress    string
	UserAgent    string
	Site         SiteInfo

	// UploadRoot is the storage directory attachments must live under.
	// File descriptors are client-echoable JSON, so a path outside the
	// root is treated as forged and never read.  Empty means no
	// attachments at all.
	UploadRoot string
}

var fieldTagRe = regexp.MustCompile(`\{field:([A-Za-z0-9_]+)\}`)

// BuildAdmin resolves the admin notification, or reports skipped when the
// spec is disabled or no valid recipient remains after filtering.  Stored
// upload paths become attachments.
func BuildAdmin(spec form.EmailSpec, ctx BuildContext) (*Message, bool) {
	if !spec.Enabled {
		return nil, false
	}
	to := splitAddresses(spec.To)
	if len(to) == 0 {
		return nil, false
	}
	msg := build(spec, to, ctx)
	msg.Attachments = uploadPaths(ctx.Form, ctx.Data, ctx.UploadRoot)
	return msg, true
}

// BuildUser resolves the auto-reply.  The recipient comes from the
// submitted field named by ToField; a missing or malformed value skips the
// send rather than erroring.
func BuildUser(spec form.EmailSpec, ctx BuildContext) (*Message, bool) {
	if !spec.Enabled || spec.ToField == "" {
		return nil, false
	}
	addr := strings.TrimSpace(ctx.Data.String(spec.ToField))
	if addr == "" || !validAddress(addr) {
		return nil, false
	}
	return build(spec, []string{addr}, ctx), true
}

func build(spec form.EmailSpec, to []string, ctx BuildContext) *Message {
	fromEmail := spec.FromEmail
	if fromEmail == "" {
		fromEmail = "no-reply@" + hostOf(ctx.Site.URL)
	}
	fromName := spec.FromName
	if fromName == "" {
		fromName = ctx.Site.Name
	}
	return &Message{
		To:        to,
		CC:        splitAddresses(spec.CC),
		BCC:       splitAddresses(spec.BCC),
		FromName:  fromName,
		FromEmail: fromEmail,
		ReplyTo:   spec.ReplyTo,
		Subject:   substitute(spec.Subject, ctx),
		Body:      substitute(spec.Body, ctx),
	}
}

// substitute applies the tag vocabulary in precedence order.
func substitute(s string, ctx BuildContext) string {
	if strings.Contains(s, "{all_fields}") {
		s = strings.ReplaceAll(s, "{all_fields}", allFields(ctx.Form, ctx.Data))
	}
	s = fieldTagRe.ReplaceAllStringFunc(s, func(tag string) string {
		name := fieldTagRe.FindStringSubmatch(tag)[1]
		if f := ctx.Form.Field(name); f != nil {
			return fieldText(f, ctx.Data)
		}
		return ""
	})
	// Legacy bare tags: every submitted key may appear as {key}.
	for key := range ctx.Data {
		if f := ctx.Form.Field(key); f != nil {
			s = strings.ReplaceAll(s, "{"+key+"}", fieldText(f, ctx.Data))
		}
	}
	replacements := [][2]string{
		{"{form_title}", ctx.Form.Title},
		{"{submission_id}", fmt.Sprintf("%d", ctx.SubmissionID)},
		{"{submission_date}", ctx.SubmittedAt.Format("2006-01-02 15:04:05")},
		{"{ip_address}", ctx.IPAddress},
		{"{user_agent}", ctx.UserAgent},
		{"{site_name}", ctx.Site.Name},
		{"{site_url}", ctx.Site.URL},
	}
	for _, r := range replacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// allFields renders "Label: value" per line, skipping display-only fields.
func allFields(fm *form.Form, data form.Values) string {
	var b strings.Builder
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Type.IsDisplayOnly() {
			continue
		}
		label := f.Label
		if label == "" {
			label = f.Name
		}
		b.WriteString(label + ": " + fieldText(f, data) + "\n")
	}
	return b.String()
}

// fieldText flattens one value for plain-text email: arrays join on the
// field delimiter, file descriptors reduce to their filename.
func fieldText(f *form.FieldDef, data form.Values) string {
	switch f.Type {
	case form.TypeCheckbox:
		delim := f.Delimiter
		if delim == "" {
			delim = form.DefaultDelimiter
		}
		return strings.Join(data.List(f.Name), delim)
	case form.TypeFile:
		if fv, ok := data.File(f.Name); ok {
			return fv.Filename
		}
		return ""
	default:
		return data.String(f.Name)
	}
}

// uploadPaths collects the stored server paths of every file field so the
// admin notification can attach them.  Only paths inside root qualify;
// anything else came from the client, not from upload storage.
func uploadPaths(fm *form.Form, data form.Values, root string) []string {
	var paths []string
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Type != form.TypeFile {
			continue
		}
		if fv, ok := data.File(f.Name); ok && underRoot(root, fv.Path) {
			paths = append(paths, fv.Path)
		}
	}
	return paths
}

// underRoot reports whether p resolves to a location inside root.
func underRoot(root, p string) bool {
	if root == "" || p == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// splitAddresses comma-splits, trims, and keeps only syntactically valid
// addresses.  Invalid entries are dropped silently.
func splitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" && validAddress(p) {
			out = append(out, p)
		}
	}
	return out
}

func validAddress(s string) bool {
	addr, err := netmail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func hostOf(siteURL string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(siteURL, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "localhost"
	}
	return s
}
