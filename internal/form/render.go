// internal/form/render.go
//
// FormPlant – Forms subsystem: input-screen renderer.
//
// Context
//   RenderField turns one field definition plus its current value into the
//   HTML fragment for the input screen.  The form is always passed
//   explicitly; there is no ambient "current form" state, so several forms
//   can render on one page without interference.
//
// Workflow
//   •  The caller's value wins when present.  Otherwise the initial value is
//      resolved in precedence order: same-named URL query parameter (only
//      when the form allows URL prefill and the field's default opts in),
//      then registered InitialValueSource hooks, then the field default.
//   •  Dispatch goes through the registry table; a stored form referencing a
//      type this build no longer knows renders that field as empty output
//      rather than failing the page.
//
// Style
//   Markup is written into a strings.Builder with every dynamic attribute
//   passed through html.EscapeString.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// InitialValueSource supplies an initial value for a field when the client
// did not send one.  Sources run in registration order; the first one to
// report ok wins.
type InitialValueSource interface {
	InitialValue(formID int64, field *FieldDef) (string, bool)
}

// RenderField renders the input-screen fragment for f.  value may be a
// string, a []string (checkbox), or nil.  query carries the request's URL
// parameters for prefill; sources are the registered initial-value hooks.
func RenderField(fm *Form, f *FieldDef, value any, query url.Values, sources []InitialValueSource) string {
	h, ok := lookup(f.Type)
	if !ok {
		return ""
	}

	scalar, list := splitValue(value)
	if scalar == "" && len(list) == 0 && !f.Type.IsDisplayOnly() {
		scalar, list = initialValue(fm, f, query, sources)
	}

	r := &inputRenderer{form: fm}
	h.renderInput(r, f, scalar, list)
	return r.b.String()
}

// splitValue normalises the caller-supplied current value.
func splitValue(value any) (string, []string) {
	switch t := value.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []string:
		return "", t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return "", out
	default:
		return fmt.Sprintf("%v", t), nil
	}
}

// initialValue resolves the field's starting value by precedence.  When the
// URL-parameter branch applies, an absent parameter resolves to empty rather
// than falling through to the hooks.
func initialValue(fm *Form, f *FieldDef, query url.Values, sources []InitialValueSource) (string, []string) {
	if fm.Settings.AllowURLParams && f.URLParamDefault() {
		raw := query.Get(f.Name)
		if raw == "" {
			return "", nil
		}
		return sanitizeParam(f, raw)
	}
	for _, src := range sources {
		if v, ok := src.InitialValue(fm.ID, f); ok {
			return v, nil
		}
	}
	if f.Type == TypeCheckbox && f.Default != "" {
		return "", splitTrim(f.Default, ",")
	}
	return f.Default, nil
}

// sanitizeParam type-sanitizes a URL-sourced prefill value.  Values that do
// not fit the field's type are dropped, never passed through raw.
func sanitizeParam(f *FieldDef, raw string) (string, []string) {
	switch f.Type {
	case TypeEmail:
		return sanitizeEmail(f, raw), nil
	case TypeURL:
		return sanitizeURL(f, raw), nil
	case TypeNumber:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return "", nil
		}
		return raw, nil
	case TypeCheckbox:
		return "", splitTrim(raw, ",")
	case TypeDate:
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return "", nil
		}
		return raw, nil
	default:
		return sanitizeText(f, raw), nil
	}
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Renderer
// -----------------------------------------------------------------------------

type inputRenderer struct {
	b    strings.Builder
	form *Form
}

// fieldID returns the element id: the custom id when set, otherwise a
// derived stable id.
func fieldID(f *FieldDef) string {
	if f.CustomID != "" {
		return f.CustomID
	}
	return "fplant-field-" + f.Name
}

// fieldClass assembles the class attribute for f.
func fieldClass(f *FieldDef) string {
	c := "fplant-field fplant-field-" + string(f.Type)
	if f.Class != "" {
		c += " " + f.Class
	}
	if f.CustomClass != "" {
		c += " " + f.CustomClass
	}
	return c
}

func (r *inputRenderer) attr(name, value string) {
	if value == "" {
		return
	}
	r.b.WriteString(` ` + name + `="` + html.EscapeString(value) + `"`)
}

// displayValue applies the last-resort default: the field default shows only
// when nothing else resolved a value.
func displayValue(f *FieldDef, value string) string {
	if value == "" && f.Default != "" && !f.URLParamDefault() {
		return f.Default
	}
	return value
}

// text covers text, email, tel, and url inputs, which differ only in the
// type attribute.
func (r *inputRenderer) text(f *FieldDef, value string, _ []string) {
	inputType := string(f.Type)
	r.b.WriteString(`<input type="` + inputType + `"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	r.attr("placeholder", f.Placeholder)
	if f.Size > 0 {
		r.attr("size", strconv.Itoa(f.Size))
	}
	if f.MaxLength > 0 {
		r.attr("maxlength", strconv.Itoa(f.MaxLength))
	}
	r.attr("value", displayValue(f, value))
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(">\n")
}

func (r *inputRenderer) textarea(f *FieldDef, value string, _ []string) {
	r.b.WriteString(`<textarea`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	r.attr("placeholder", f.Placeholder)
	r.attr("rows", strconv.Itoa(f.Rows))
	if f.MaxLength > 0 {
		r.attr("maxlength", strconv.Itoa(f.MaxLength))
	}
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(`>` + html.EscapeString(displayValue(f, value)) + "</textarea>\n")
}

func (r *inputRenderer) number(f *FieldDef, value string, _ []string) {
	r.b.WriteString(`<input type="number"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	r.attr("placeholder", f.Placeholder)
	if f.Min != nil {
		r.attr("min", strconv.FormatFloat(*f.Min, 'f', -1, 64))
	}
	if f.Max != nil {
		r.attr("max", strconv.FormatFloat(*f.Max, 'f', -1, 64))
	}
	r.attr("step", f.Step)
	r.attr("value", displayValue(f, value))
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(">\n")
}

// date renders a native date input with min/max bounds computed from the
// field's year offsets relative to the current year.
func (r *inputRenderer) date(f *FieldDef, value string, _ []string) {
	year := time.Now().Year()
	r.b.WriteString(`<input type="date"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	r.attr("min", fmt.Sprintf("%04d-01-01", year-f.YearStart))
	r.attr("max", fmt.Sprintf("%04d-12-31", year+f.YearEnd))
	r.attr("value", displayValue(f, value))
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(">\n")
}

// dateSelect renders year/month/day dropdowns plus a hidden input carrying
// the joined YYYY-MM-DD value.  Recombining on change is a client concern.
func (r *inputRenderer) dateSelect(f *FieldDef, value string, _ []string) {
	value = displayValue(f, value)
	var y, m, d string
	if parts := strings.SplitN(value, "-", 3); len(parts) == 3 {
		y, m, d = parts[0], parts[1], parts[2]
	}
	year := time.Now().Year()

	r.b.WriteString(`<div class="fplant-date-select" data-field="` + html.EscapeString(f.Name) + `">` + "\n")

	r.b.WriteString(`<select class="fplant-date-year" data-part="year"><option value=""></option>`)
	for yy := year - f.YearStart; yy <= year+f.YearEnd; yy++ {
		s := strconv.Itoa(yy)
		r.option(s, s, s == y)
	}
	r.b.WriteString("</select>\n")

	r.b.WriteString(`<select class="fplant-date-month" data-part="month"><option value=""></option>`)
	for mm := 1; mm <= 12; mm++ {
		s := fmt.Sprintf("%02d", mm)
		r.option(s, s, s == m)
	}
	r.b.WriteString("</select>\n")

	r.b.WriteString(`<select class="fplant-date-day" data-part="day"><option value=""></option>`)
	for dd := 1; dd <= 31; dd++ {
		s := fmt.Sprintf("%02d", dd)
		r.option(s, s, s == d)
	}
	r.b.WriteString("</select>\n")

	r.b.WriteString(`<input type="hidden"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("value", value)
	r.b.WriteString(">\n</div>\n")
}

func (r *inputRenderer) time(f *FieldDef, value string, _ []string) {
	r.b.WriteString(`<input type="time"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	r.attr("value", displayValue(f, value))
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(">\n")
}

func (r *inputRenderer) option(value, label string, selected bool) {
	r.b.WriteString(`<option value="` + html.EscapeString(value) + `"`)
	if selected {
		r.b.WriteString(` selected`)
	}
	r.b.WriteString(`>` + html.EscapeString(label) + `</option>`)
}

// selectBox prepends one blank please-choose option and selects by string
// equality against the current value.
func (r *inputRenderer) selectBox(f *FieldDef, value string, _ []string) {
	value = displayValue(f, value)
	r.b.WriteString(`<select`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(`><option value=""></option>`)
	for _, opt := range f.Options {
		r.option(opt.Value, opt.Label, opt.Value == value)
	}
	r.b.WriteString("</select>\n")
}

func (r *inputRenderer) radio(f *FieldDef, value string, _ []string) {
	value = displayValue(f, value)
	r.b.WriteString(`<div class="fplant-radio-group fplant-layout-` + html.EscapeString(f.Layout) + `">` + "\n")
	for i, opt := range f.Options {
		id := fieldID(f) + "-" + strconv.Itoa(i)
		r.b.WriteString(`<label for="` + html.EscapeString(id) + `"><input type="radio"`)
		r.attr("id", id)
		r.attr("name", f.Name)
		r.attr("value", opt.Value)
		if opt.Value == value {
			r.b.WriteString(` checked`)
		}
		if f.Required {
			r.b.WriteString(` required`)
		}
		r.b.WriteString(`> ` + html.EscapeString(opt.Label) + "</label>\n")
	}
	r.b.WriteString("</div>\n")
}

// checkbox posts as an array, so the input name carries the [] suffix.  Any
// option whose value appears in the current selection set renders checked.
func (r *inputRenderer) checkbox(f *FieldDef, scalar string, list []string) {
	if len(list) == 0 && scalar != "" {
		list = []string{scalar}
	}
	selected := make(map[string]struct{}, len(list))
	for _, v := range list {
		selected[v] = struct{}{}
	}
	r.b.WriteString(`<div class="fplant-checkbox-group fplant-layout-` + html.EscapeString(f.Layout) + `">` + "\n")
	for i, opt := range f.Options {
		id := fieldID(f) + "-" + strconv.Itoa(i)
		r.b.WriteString(`<label for="` + html.EscapeString(id) + `"><input type="checkbox"`)
		r.attr("id", id)
		r.attr("name", f.Name+"[]")
		r.attr("value", opt.Value)
		if _, ok := selected[opt.Value]; ok {
			r.b.WriteString(` checked`)
		}
		r.b.WriteString(`> ` + html.EscapeString(opt.Label) + "</label>\n")
	}
	r.b.WriteString("</div>\n")
}

// file emits the size cap as a data attribute for the client-side pre-check.
// The attribute is advisory; the validator re-checks server side with the
// same canonical default.
func (r *inputRenderer) file(f *FieldDef, _ string, _ []string) {
	r.b.WriteString(`<input type="file"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("class", fieldClass(f))
	r.attr("data-max-size", strconv.FormatInt(int64(f.MaxSizeMB*1024*1024), 10))
	if len(f.AllowedTypes) > 0 {
		exts := make([]string, len(f.AllowedTypes))
		for i, e := range f.AllowedTypes {
			exts[i] = "." + e
		}
		r.attr("accept", strings.Join(exts, ","))
	}
	if f.Required {
		r.b.WriteString(` required`)
	}
	r.b.WriteString(">\n")
}

// hidden carries a value only.  Label, required, and validation semantics
// never apply.
func (r *inputRenderer) hidden(f *FieldDef, value string, _ []string) {
	if value == "" {
		value = f.Default
	}
	r.b.WriteString(`<input type="hidden"`)
	r.attr("id", fieldID(f))
	r.attr("name", f.Name)
	r.attr("value", value)
	r.b.WriteString(">\n")
}

// htmlBlock renders the field's content through the sanitizer.  It accepts
// no user input and never appears in submitted data.
func (r *inputRenderer) htmlBlock(f *FieldDef, _ string, _ []string) {
	r.b.WriteString(`<div class="fplant-html-block">` + sanitizeHTMLContent(f, f.Content) + "</div>\n")
}

// -----------------------------------------------------------------------------
// Whole-form assembly
// -----------------------------------------------------------------------------

// RenderForm assembles the default input screen: one labelled row per field
// plus the submit button.  values carries prior input for redisplay after a
// validation failure; errors are rendered next to their field.
func RenderForm(fm *Form, values Values, errors map[string]string, query url.Values, sources []InitialValueSource) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<form class="fplant-form" data-form-id="%d">`+"\n", fm.ID))
	for i := range fm.Fields {
		f := &fm.Fields[i]
		b.WriteString(`<div class="fplant-row fplant-row-` + html.EscapeString(f.Name) + `">` + "\n")
		if !f.Type.IsDisplayOnly() && f.Label != "" {
			b.WriteString(`<label for="` + html.EscapeString(fieldID(f)) + `">` + html.EscapeString(f.Label))
			if f.Required {
				b.WriteString(`<span class="fplant-required">*</span>`)
			}
			b.WriteString("</label>\n")
		}
		var current any
		if values != nil && values.Has(f.Name) {
			current = values[f.Name]
		}
		b.WriteString(RenderField(fm, f, current, query, sources))
		if msg, ok := errors[f.Name]; ok {
			b.WriteString(`<span class="fplant-error">` + html.EscapeString(msg) + "</span>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString(renderSubmitButton(&fm.Settings))
	b.WriteString("</form>\n")
	return b.String()
}

func renderSubmitButton(s *Settings) string {
	text := s.SubmitText
	if text == "" {
		text = "Submit"
	}
	return buttonHTML("fplant-submit", s.SubmitClass, s.SubmitID, text)
}

// buttonHTML is shared by the submit, back, and confirm-submit buttons.
func buttonHTML(baseClass, extraClass, id, text string) string {
	var b strings.Builder
	b.WriteString(`<button type="button" class="` + baseClass)
	if extraClass != "" {
		b.WriteString(" " + html.EscapeString(extraClass))
	}
	b.WriteString(`"`)
	if id != "" {
		b.WriteString(` id="` + html.EscapeString(id) + `"`)
	}
	b.WriteString(`>` + html.EscapeString(text) + "</button>\n")
	return b.String()
}
