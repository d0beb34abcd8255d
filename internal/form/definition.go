// internal/form/definition.go
//
// FormPlant – Forms subsystem: definition model.
//
// Context
//   A form is an ordered list of typed field definitions plus a flat bag of
//   behaviour settings (confirmation flow, post-submit action, save mode,
//   embedding, CAPTCHA) and two independent email notification specs.  Forms
//   are persisted by the store layer as a row plus JSON meta sections; this
//   file defines the in-memory shape shared by the renderer, the validator,
//   the submission pipeline, and the mail builder.
//
// Workflow
//   •  Structs mirror the stored JSON: Form → FieldDef / Settings / EmailSpec.
//   •  Normalize fills per-type defaults so downstream code never checks for
//      missing attributes.
//   •  Validate enforces structural rules (unique names, name charset, known
//      types, compilable patterns) before a form is accepted into the store.
//
// Style
//   Comments follow the house guide: full sentences, two spaces after
//   periods, Oxford commas, and clear roles.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Field types
// -----------------------------------------------------------------------------

// FieldType enumerates the closed set of supported field kinds.  Rendering
// dispatches through a single table keyed by FieldType (see registry.go), so a
// missing variant surfaces at startup rather than as silent empty output.
type FieldType string

const (
	TypeText       FieldType = "text"
	TypeTextarea   FieldType = "textarea"
	TypeEmail      FieldType = "email"
	TypeTel        FieldType = "tel"
	TypeURL        FieldType = "url"
	TypeNumber     FieldType = "number"
	TypeDate       FieldType = "date"
	TypeDateSelect FieldType = "date_select"
	TypeTime       FieldType = "time"
	TypeSelect     FieldType = "select"
	TypeRadio      FieldType = "radio"
	TypeCheckbox   FieldType = "checkbox"
	TypeFile       FieldType = "file"
	TypeHidden     FieldType = "hidden"
	TypeHTML       FieldType = "html"
)

// Types returns every supported field type in declaration order.
func Types() []FieldType {
	return []FieldType{
		TypeText, TypeTextarea, TypeEmail, TypeTel, TypeURL, TypeNumber,
		TypeDate, TypeDateSelect, TypeTime, TypeSelect, TypeRadio,
		TypeCheckbox, TypeFile, TypeHidden, TypeHTML,
	}
}

// ValidType reports whether t names a supported field type.
func ValidType(t FieldType) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// IsChoice reports whether the type's value space is defined by an options
// list and therefore needs value→label translation on display.
func (t FieldType) IsChoice() bool {
	return t == TypeSelect || t == TypeRadio || t == TypeCheckbox
}

// IsDisplayOnly reports whether the type never carries user input.  Display
// only fields are excluded from required-ness checks, the all-fields
// confirmation table, and email field dumps.
func (t FieldType) IsDisplayOnly() bool {
	return t == TypeHidden || t == TypeHTML
}

// -----------------------------------------------------------------------------
// Field definition
// -----------------------------------------------------------------------------

// Option is one selectable entry of a choice field.  Values are compared as
// strings everywhere.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Rules holds the optional custom validation block of a field.
type Rules struct {
	MinLength      int    `json:"min_length,omitempty" yaml:"min_length"`
	MaxLength      int    `json:"max_length,omitempty" yaml:"max_length"`
	Pattern        string `json:"pattern,omitempty" yaml:"pattern"`
	PatternMessage string `json:"pattern_message,omitempty" yaml:"pattern_message"`
}

// FieldDef describes a single input unit of a form.  Validation metadata
// lives inline so the server enforces exactly the rules the client hints at.
type FieldDef struct {
	Type        FieldType `json:"type" yaml:"type"`
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label" yaml:"label"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder"`
	Required    bool      `json:"required,omitempty" yaml:"required"`

	// Default is the initial scalar value.  The literal string "{name}"
	// (the field's own name in braces) means "fill from a same-named URL
	// query parameter" when the form allows URL prefill.
	Default string `json:"default,omitempty" yaml:"default"`

	// RequiredMessage overrides the generic required-field error.
	RequiredMessage string `json:"validation_message,omitempty" yaml:"validation_message"`

	Validation *Rules `json:"validation,omitempty" yaml:"validation"`

	// Choice fields.
	Options   []Option `json:"options,omitempty" yaml:"options"`
	Layout    string   `json:"layout,omitempty" yaml:"layout"`       // vertical | horizontal
	Delimiter string   `json:"delimiter,omitempty" yaml:"delimiter"` // checkbox label join, default ", "

	// Numbers.
	Min  *float64 `json:"min,omitempty" yaml:"min"`
	Max  *float64 `json:"max,omitempty" yaml:"max"`
	Step string   `json:"step,omitempty" yaml:"step"`

	// Dates: offsets from the current year.  Zero means "use defaults"
	// (100 years back, 10 forward).
	YearStart int `json:"year_start,omitempty" yaml:"year_start"`
	YearEnd   int `json:"year_end,omitempty" yaml:"year_end"`

	// Files.
	MaxSizeMB    float64  `json:"max_size,omitempty" yaml:"max_size"` // megabytes, 0 = default
	AllowedTypes []string `json:"allowed_types,omitempty" yaml:"allowed_types"`

	// Text sizing.
	Rows      int `json:"rows,omitempty" yaml:"rows"`
	Size      int `json:"size,omitempty" yaml:"size"`
	MaxLength int `json:"maxlength,omitempty" yaml:"maxlength"`

	// HTML-type content (display only, sanitized on render).
	Content string `json:"content,omitempty" yaml:"content"`

	// Presentation hooks.
	Class       string `json:"class,omitempty" yaml:"class"`
	CustomID    string `json:"custom_id,omitempty" yaml:"custom_id"`
	CustomClass string `json:"custom_class,omitempty" yaml:"custom_class"`
}

// OptionLabel returns the label whose value string-equals v, or ("", false).
func (f *FieldDef) OptionLabel(v string) (string, bool) {
	for _, opt := range f.Options {
		if opt.Value == v {
			return opt.Label, true
		}
	}
	return "", false
}

// URLParamDefault reports whether the field's default requests URL prefill,
// i.e. it is the literal "{name}" for this field.
func (f *FieldDef) URLParamDefault() bool {
	return f.Default == "{"+f.Name+"}"
}

// -----------------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------------

const (
	// DefaultMaxSizeMB is the canonical file-size cap applied both to the
	// rendered data-max-size hint and to server-side validation.
	DefaultMaxSizeMB = 5.0

	// DefaultYearsBack and DefaultYearsForward bound date inputs when the
	// field does not set its own offsets.
	DefaultYearsBack    = 100
	DefaultYearsForward = 10

	// DefaultDelimiter joins checkbox labels on display.
	DefaultDelimiter = ", "
)

// DefaultAllowedTypes is the file-extension allow-list applied when a file
// field does not configure its own.
func DefaultAllowedTypes() []string {
	return []string{"jpg", "jpeg", "png", "gif", "pdf"}
}

// Defaults returns a FieldDef pre-populated with the per-type attribute
// defaults for t.  Callers overlay the stored definition on top.
func Defaults(t FieldType) FieldDef {
	f := FieldDef{Type: t}
	switch t {
	case TypeTextarea:
		f.Rows = 5
	case TypeSelect, TypeRadio:
		f.Layout = "vertical"
	case TypeCheckbox:
		f.Layout = "vertical"
		f.Delimiter = DefaultDelimiter
	case TypeFile:
		f.MaxSizeMB = DefaultMaxSizeMB
		f.AllowedTypes = DefaultAllowedTypes()
	case TypeDate, TypeDateSelect:
		f.YearStart = DefaultYearsBack
		f.YearEnd = DefaultYearsForward
	}
	return f
}

// Normalize overlays per-type defaults onto f in place.  Only unset
// attributes are filled; explicit values always win.
func (f *FieldDef) Normalize() {
	d := Defaults(f.Type)
	if f.Layout == "" {
		f.Layout = d.Layout
	}
	if f.Delimiter == "" {
		f.Delimiter = d.Delimiter
	}
	if f.Rows == 0 {
		f.Rows = d.Rows
	}
	if f.MaxSizeMB == 0 {
		f.MaxSizeMB = d.MaxSizeMB
	}
	if len(f.AllowedTypes) == 0 {
		f.AllowedTypes = d.AllowedTypes
	}
	if f.YearStart == 0 {
		f.YearStart = d.YearStart
	}
	if f.YearEnd == 0 {
		f.YearEnd = d.YearEnd
	}
}

// -----------------------------------------------------------------------------
// Settings
// -----------------------------------------------------------------------------

// ActionType enumerates post-submit behaviours.
type ActionType string

const (
	ActionMessage    ActionType = "message"
	ActionRedirect   ActionType = "redirect"
	ActionCustomPage ActionType = "custom_page"
)

// SaveMode controls how much of a submission is persisted.
type SaveMode string

const (
	SaveNone         SaveMode = "none"
	SaveMetadataOnly SaveMode = "metadata_only"
	SaveFull         SaveMode = "full"
)

// SaveSetting is the raw stored value of the save-mode option.  Historic
// versions stored booleans and numeric strings, so JSON decoding accepts
// bool, number, and string and canonicalises through Mode.
type SaveSetting string

// UnmarshalJSON accepts the legacy value shapes.
func (s *SaveSetting) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case bool:
		if t {
			*s = "true"
		} else {
			*s = "false"
		}
	case float64:
		if t == 0 {
			*s = "0"
		} else {
			*s = "1"
		}
	case string:
		*s = SaveSetting(t)
	default:
		return fmt.Errorf("save_submission: unsupported value %T", v)
	}
	return nil
}

// Mode canonicalises the stored value, honouring the legacy boolean-ish
// aliases.  Unknown values fall back to full persistence.
func (s SaveSetting) Mode() SaveMode {
	switch strings.TrimSpace(string(s)) {
	case "none":
		return SaveNone
	case "metadata_only":
		return SaveMetadataOnly
	case "full":
		return SaveFull
	case "true", "1":
		return SaveFull
	case "false", "0", "":
		// An absent setting means "full" for historical parity; only an
		// explicit boolean-ish false maps to none.  The zero SaveSetting is
		// therefore handled by the caller before reaching here.
		return SaveNone
	default:
		return SaveFull
	}
}

// Settings is the flat bag of per-form behaviour options.
type Settings struct {
	// Input screen.
	SubmitText  string `json:"input_submit_text,omitempty"`
	SubmitClass string `json:"input_submit_class,omitempty"`
	SubmitID    string `json:"input_submit_id,omitempty"`

	UseHTMLTemplate bool `json:"use_html_template,omitempty"`
	AllowURLParams  bool `json:"allow_url_params,omitempty"`

	// Confirmation flow.
	UseConfirmation         bool   `json:"use_confirmation,omitempty"`
	UseConfirmationTemplate bool   `json:"use_confirmation_template,omitempty"`
	ConfirmationTemplate    string `json:"confirmation_template,omitempty"`
	ConfirmationTitle       string `json:"confirmation_title,omitempty"`
	ConfirmationMessage     string `json:"confirmation_message,omitempty"`
	BackText                string `json:"back_button_text,omitempty"`
	BackClass               string `json:"back_button_class,omitempty"`
	BackID                  string `json:"back_button_id,omitempty"`
	ConfirmSubmitText       string `json:"confirm_submit_button_text,omitempty"`
	ConfirmSubmitClass      string `json:"confirm_submit_button_class,omitempty"`
	ConfirmSubmitID         string `json:"confirm_submit_button_id,omitempty"`

	// Post-submit action.
	ActionType      ActionType `json:"action_type,omitempty"`
	SuccessMessage  string     `json:"success_message,omitempty"`
	RedirectURL     string     `json:"redirect_url,omitempty"`
	SuccessPageHTML string     `json:"success_page_html,omitempty"`

	// Persistence.
	SaveSubmission *SaveSetting `json:"save_submission,omitempty"`

	// CAPTCHA.
	CaptchaEnabled bool   `json:"recaptcha_enabled,omitempty"`
	CaptchaVersion string `json:"recaptcha_version,omitempty"`

	// Embedding.
	EmbedEnabled     bool     `json:"embed_iframe_enabled,omitempty"`
	EmbedAllowedURLs []string `json:"embed_iframe_allowed_urls,omitempty"`

	CustomCSSMode string `json:"custom_css_mode,omitempty"`
}

// SaveMode resolves the effective persistence mode: full when unset.
func (s *Settings) SaveMode() SaveMode {
	if s.SaveSubmission == nil {
		return SaveFull
	}
	return s.SaveSubmission.Mode()
}

// SpamSettings configures the pre-validation spam gate.
type SpamSettings struct {
	Honeypot         bool `json:"honeypot,omitempty"`
	RateLimit        bool `json:"rate_limit,omitempty"`
	RateLimitMinutes int  `json:"rate_limit_minutes,omitempty"`
	RateLimitCount   int  `json:"rate_limit_count,omitempty"`
}

// EmailSpec configures one outbound notification.  The admin variant
// addresses To directly; the user variant resolves the recipient from the
// submitted field named ToField.
type EmailSpec struct {
	Enabled   bool   `json:"enabled,omitempty"`
	To        string `json:"to,omitempty"`       // comma-separated
	ToField   string `json:"to_field,omitempty"` // user variant only
	FromName  string `json:"from_name,omitempty"`
	FromEmail string `json:"from_email,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body,omitempty"`
	CC        string `json:"cc,omitempty"`
	BCC       string `json:"bcc,omitempty"`
	ReplyTo   string `json:"reply_to,omitempty"`
}

// -----------------------------------------------------------------------------
// Form
// -----------------------------------------------------------------------------

// Status is the form lifecycle state.  Trash is a soft delete.
type Status string

const (
	StatusPublished Status = "published"
	StatusPrivate   Status = "private"
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusTrash     Status = "trash"
)

// Form is one site-owner-defined form.
type Form struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`

	Fields       []FieldDef   `json:"fields"`
	HTMLTemplate string       `json:"html_template,omitempty"`
	Settings     Settings     `json:"settings"`
	EmailAdmin   EmailSpec    `json:"email_admin"`
	EmailUser    EmailSpec    `json:"email_user"`
	Spam         SpamSettings `json:"spam_protection"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Field returns the definition named name, or nil.  Fields are referenced by
// name only, never by index.
func (fm *Form) Field(name string) *FieldDef {
	for i := range fm.Fields {
		if fm.Fields[i].Name == name {
			return &fm.Fields[i]
		}
	}
	return nil
}

// Normalize fills per-type field defaults across the whole form.
func (fm *Form) Normalize() {
	for i := range fm.Fields {
		fm.Fields[i].Normalize()
	}
}

// nameRe constrains field names: they double as template identifiers, error
// map keys, and stored data keys, so the charset is deliberately narrow.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidName reports whether s is usable as a field name.
func ValidName(s string) bool { return nameRe.MatchString(s) }

// Validate enforces structural invariants.  It returns the first violation
// found so form-builder errors point at one concrete field.
func (fm *Form) Validate() error {
	seen := make(map[string]struct{}, len(fm.Fields))
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("form %d: field %d missing name", fm.ID, i)
		}
		if !ValidName(f.Name) {
			return fmt.Errorf("form %d: field %q: name must match %s", fm.ID, f.Name, nameRe.String())
		}
		if !ValidType(f.Type) {
			return fmt.Errorf("form %d: field %q: unsupported type %q", fm.ID, f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %d: duplicate field name %q", fm.ID, f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Validation != nil && f.Validation.Pattern != "" {
			if _, err := regexp.Compile(f.Validation.Pattern); err != nil {
				return fmt.Errorf("form %d: field %q: invalid pattern: %v", fm.ID, f.Name, err)
			}
		}
		if f.Validation != nil && f.Validation.MaxLength > 0 && f.Validation.MinLength > f.Validation.MaxLength {
			return fmt.Errorf("form %d: field %q: min_length greater than max_length", fm.ID, f.Name)
		}
	}
	return nil
}
