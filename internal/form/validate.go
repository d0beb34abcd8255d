// internal/form/validate.go
//
// FormPlant – Forms subsystem: the authoritative rule engine.
//
// Context
//   Client-side checks are advisory; this validator is the single source of
//   truth.  It is deterministic and pure given (form, values, uploads): no
//   hidden state affects the outcome, so the pipeline can re-run it at
//   finalize time and trust the result.
//
// Workflow
//   Per field, in definition order, first failing rule wins:
//     1.  Display-only fields (hidden, html) are skipped entirely.
//     2.  Required check, type-aware emptiness (a literal "0" is a value).
//         Failure short-circuits the rest of this field.
//     3.  Empty optional fields skip remaining checks, except file fields,
//         which are always checked against the upload metadata.
//     4.  Registered FieldValidator overrides may replace the standard
//         rules for a field.
//     5.  Type-format check (email, url, tel, number bounds, file
//         constraints).
//     6.  Custom rules: min/max length in runes, pattern with optional
//         custom message.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
)

// ValidationResult is the transient outcome of one validation pass: one
// message per failing field.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ValidationError wraps a failed result as an error so pipeline callers can
// distinguish user-correctable failures from infrastructure ones with
// errors.As.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Errors))
}

// FieldValidator is a per-field override hook.  Overrides run in
// registration order; the first one that reports handled replaces the
// standard rules for that field.  A handled result with an empty message
// means "no error".
type FieldValidator interface {
	Validate(formID int64, field *FieldDef, values Values) (message string, handled bool)
}

// PhoneValidator is the pluggable phone-format strategy.  The default is a
// Japanese fixed/mobile rule; deployments elsewhere register their own.
type PhoneValidator interface {
	ValidPhone(raw string) bool
}

// jpPhone accepts 10 or 11 digit numbers starting with 0, after stripping
// every non-digit character.
type jpPhone struct{}

var jpPhoneRe = regexp.MustCompile(`^0\d{9,10}$`)

func (jpPhone) ValidPhone(raw string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	return jpPhoneRe.MatchString(digits)
}

// DefaultPhoneValidator returns the built-in strategy.
func DefaultPhoneValidator() PhoneValidator { return jpPhone{} }

// Validator runs the rule engine.  The zero value is not usable; construct
// with NewValidator.
type Validator struct {
	hooks   []FieldValidator
	phone   PhoneValidator
	formats *playground.Validate
}

// NewValidator builds a Validator with the default phone strategy and no
// override hooks.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		phone:   jpPhone{},
		formats: playground.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidatorOption configures a Validator at construction time.
type ValidatorOption func(*Validator)

// WithFieldValidator appends an override hook.
func WithFieldValidator(h FieldValidator) ValidatorOption {
	return func(v *Validator) { v.hooks = append(v.hooks, h) }
}

// WithPhoneValidator replaces the phone-format strategy.
func WithPhoneValidator(p PhoneValidator) ValidatorOption {
	return func(v *Validator) { v.phone = p }
}

// Validate runs every rule for every field and aggregates the per-field
// messages.  uploads carries transport metadata for in-flight file uploads,
// keyed by field name; pass nil when no multipart data is present.
func (v *Validator) Validate(fm *Form, values Values, uploads map[string]FileUpload) ValidationResult {
	errs := make(map[string]string)
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Type.IsDisplayOnly() {
			continue
		}
		if msg := v.validateField(fm, f, values, uploads); msg != "" {
			errs[f.Name] = msg
		}
	}
	if len(errs) == 0 {
		return ValidationResult{Valid: true}
	}
	return ValidationResult{Valid: false, Errors: errs}
}

// validateField applies the per-field rule sequence and returns the first
// failure message, or empty.
func (v *Validator) validateField(fm *Form, f *FieldDef, values Values, uploads map[string]FileUpload) string {
	empty := values.Empty(f, uploads)

	if f.Required && empty {
		if f.RequiredMessage != "" {
			return f.RequiredMessage
		}
		return fmt.Sprintf("%s is required.", fieldTitle(f))
	}

	// An empty optional field passes, except files: upload metadata is
	// checked regardless of what the scalar payload says.
	if empty && !f.Required && f.Type != TypeFile {
		return ""
	}

	for _, h := range v.hooks {
		if msg, handled := h.Validate(fm.ID, f, values); handled {
			return msg
		}
	}

	if msg := v.formatCheck(f, values, uploads); msg != "" {
		return msg
	}
	return v.customRules(f, values)
}

func fieldTitle(f *FieldDef) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// formatCheck enforces the per-type format rule.
func (v *Validator) formatCheck(f *FieldDef, values Values, uploads map[string]FileUpload) string {
	val := values.String(f.Name)
	switch f.Type {
	case TypeEmail:
		if err := v.formats.Var(val, "email"); err != nil {
			return "Please enter a valid email address."
		}
	case TypeURL:
		if err := v.formats.Var(val, "http_url"); err != nil {
			return "Please enter a valid URL."
		}
	case TypeTel:
		if !v.phone.ValidPhone(val) {
			return "Please enter a valid phone number."
		}
	case TypeNumber:
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return "Please enter a number."
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("Please enter a number no less than %s.", strconv.FormatFloat(*f.Min, 'f', -1, 64))
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Sprintf("Please enter a number no greater than %s.", strconv.FormatFloat(*f.Max, 'f', -1, 64))
		}
	case TypeFile:
		return v.fileCheck(f, uploads)
	}
	return ""
}

// fileCheck validates the transport status, byte size, and extension of an
// in-flight upload.  Absence of upload metadata is not an error here; the
// required check already decided presence.
func (v *Validator) fileCheck(f *FieldDef, uploads map[string]FileUpload) string {
	up, ok := uploads[f.Name]
	if !ok {
		return ""
	}
	if up.Status != 0 {
		return "The file upload failed.  Please try again."
	}
	maxMB := f.MaxSizeMB
	if maxMB <= 0 {
		maxMB = DefaultMaxSizeMB
	}
	if up.Size > int64(maxMB*1024*1024) {
		return fmt.Sprintf("The file must be no larger than %s MB.", strconv.FormatFloat(maxMB, 'f', -1, 64))
	}
	allowed := f.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes()
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(up.Name), "."))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return ""
		}
	}
	return fmt.Sprintf("Allowed file types: %s.", strings.Join(allowed, ", "))
}

// customRules enforces the field's optional validation block.  Lengths count
// Unicode code points, not bytes.
func (v *Validator) customRules(f *FieldDef, values Values) string {
	if f.Validation == nil {
		return ""
	}
	val := values.String(f.Name)
	n := utf8.RuneCountInString(val)
	if f.Validation.MinLength > 0 && n < f.Validation.MinLength {
		return fmt.Sprintf("Please enter at least %d characters.", f.Validation.MinLength)
	}
	if f.Validation.MaxLength > 0 && n > f.Validation.MaxLength {
		return fmt.Sprintf("Please enter no more than %d characters.", f.Validation.MaxLength)
	}
	if f.Validation.Pattern != "" {
		re, err := regexp.Compile(f.Validation.Pattern)
		if err != nil {
			// Structural validation catches this at save time; a stored bad
			// pattern must not reject user input.
			return ""
		}
		if !re.MatchString(val) {
			if f.Validation.PatternMessage != "" {
				return f.Validation.PatternMessage
			}
			return fmt.Sprintf("%s has an invalid format.", fieldTitle(f))
		}
	}
	return ""
}
