// internal/form/confirm.go
//
// FormPlant – Forms subsystem: confirmation renderer.
//
// Context
//   The confirmation screen shows submitted values back to the user in
//   human-readable form before the finalize call.  This is the inverse of
//   input collection: raw option values translate back to labels, file
//   descriptors reduce to filenames, and empty values render as a dash.
//
//------------------------------------------------------------------------------

package form

import (
	"html"
	"strings"
)

// emptyMark is the placeholder shown for a field the user left blank.
const emptyMark = "-"

// confirmRenderer carries the per-request inputs the field handlers need.
// filenames maps field name to the freshly-uploaded file name, which is
// preferred over any descriptor already present in values.
type confirmRenderer struct {
	filenames map[string]string
}

// RenderConfirmField renders the read-only review fragment for one field.
// Output is fully escaped; hidden and html fields produce zero output.
func RenderConfirmField(f *FieldDef, values Values, filenames map[string]string) string {
	h, ok := lookup(f.Type)
	if !ok {
		return ""
	}
	r := &confirmRenderer{filenames: filenames}
	return h.renderConfirm(r, f, values)
}

// RenderAllFields produces the default review table: one row per field in
// definition order, label beside rendered value, hidden and html skipped.
func RenderAllFields(fm *Form, values Values, filenames map[string]string) string {
	var b strings.Builder
	b.WriteString(`<table class="fplant-confirm-table"><tbody>` + "\n")
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Type.IsDisplayOnly() {
			continue
		}
		b.WriteString(`<tr><th scope="row">` + html.EscapeString(f.Label) + `</th><td>`)
		b.WriteString(RenderConfirmField(f, values, filenames))
		b.WriteString("</td></tr>\n")
	}
	b.WriteString("</tbody></table>\n")
	return b.String()
}

// scalar covers text, email, tel, url, number, date, date_select, and time:
// the value itself, or the empty mark.
func (r *confirmRenderer) scalar(f *FieldDef, values Values) string {
	v := values.String(f.Name)
	if v == "" {
		return emptyMark
	}
	return html.EscapeString(v)
}

// textarea escapes first, then turns newlines into line breaks so multi-line
// answers keep their shape.
func (r *confirmRenderer) textarea(f *FieldDef, values Values) string {
	v := values.String(f.Name)
	if v == "" {
		return emptyMark
	}
	escaped := html.EscapeString(v)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>\n")
}

// choice translates a select or radio value to its option label by string
// equality; unmatched values pass through raw.
func (r *confirmRenderer) choice(f *FieldDef, values Values) string {
	v := values.String(f.Name)
	if v == "" {
		return emptyMark
	}
	if label, ok := f.OptionLabel(v); ok {
		return html.EscapeString(label)
	}
	return html.EscapeString(v)
}

// checkbox normalises the value to a sequence, maps each entry through the
// option lookup, and joins with the field's delimiter.
func (r *confirmRenderer) checkbox(f *FieldDef, values Values) string {
	list := values.List(f.Name)
	if len(list) == 0 {
		return emptyMark
	}
	delim := f.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	out := make([]string, len(list))
	for i, v := range list {
		if label, ok := f.OptionLabel(v); ok {
			out[i] = html.EscapeString(label)
		} else {
			out[i] = html.EscapeString(v)
		}
	}
	return strings.Join(out, html.EscapeString(delim))
}

// file prefers the freshly-uploaded name over whatever descriptor the data
// already carries, since the upload has not been persisted yet at preview
// time.
func (r *confirmRenderer) file(f *FieldDef, values Values) string {
	if name, ok := r.filenames[f.Name]; ok && name != "" {
		return html.EscapeString(name)
	}
	if fv, ok := values.File(f.Name); ok && fv.Filename != "" {
		return html.EscapeString(fv.Filename)
	}
	if v := values.String(f.Name); v != "" {
		return html.EscapeString(v)
	}
	return emptyMark
}

// none is the handler for hidden and html fields, which never appear on the
// confirmation screen.
func (r *confirmRenderer) none(*FieldDef, Values) string { return "" }
