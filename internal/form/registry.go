// internal/form/registry.go
//
// FormPlant – Forms subsystem: field-kind dispatch table.
//
// Context
//   Every operation that branches on field type (input rendering,
//   confirmation rendering, sanitizing) goes through one registry keyed by
//   FieldType.  The table is assembled at init and checked for completeness
//   against Types(), so adding a new field type without wiring its handlers
//   fails at startup instead of producing silently empty markup.
//
//------------------------------------------------------------------------------

package form

import "fmt"

// handlers bundles the per-type behaviour of one field kind.
type handlers struct {
	renderInput   func(*inputRenderer, *FieldDef, string, []string)
	renderConfirm func(*confirmRenderer, *FieldDef, Values) string
	sanitize      func(*FieldDef, string) string
}

var registry map[FieldType]handlers

func init() {
	registry = map[FieldType]handlers{
		TypeText:       {(*inputRenderer).text, (*confirmRenderer).scalar, sanitizeText},
		TypeTextarea:   {(*inputRenderer).textarea, (*confirmRenderer).textarea, sanitizeTextarea},
		TypeEmail:      {(*inputRenderer).text, (*confirmRenderer).scalar, sanitizeEmail},
		TypeTel:        {(*inputRenderer).text, (*confirmRenderer).scalar, sanitizeText},
		TypeURL:        {(*inputRenderer).text, (*confirmRenderer).scalar, sanitizeURL},
		TypeNumber:     {(*inputRenderer).number, (*confirmRenderer).scalar, sanitizeText},
		TypeDate:       {(*inputRenderer).date, (*confirmRenderer).scalar, sanitizeText},
		TypeDateSelect: {(*inputRenderer).dateSelect, (*confirmRenderer).scalar, sanitizeText},
		TypeTime:       {(*inputRenderer).time, (*confirmRenderer).scalar, sanitizeText},
		TypeSelect:     {(*inputRenderer).selectBox, (*confirmRenderer).choice, sanitizeText},
		TypeRadio:      {(*inputRenderer).radio, (*confirmRenderer).choice, sanitizeText},
		TypeCheckbox:   {(*inputRenderer).checkbox, (*confirmRenderer).checkbox, sanitizeText},
		TypeFile:       {(*inputRenderer).file, (*confirmRenderer).file, sanitizeText},
		TypeHidden:     {(*inputRenderer).hidden, (*confirmRenderer).none, sanitizeText},
		TypeHTML:       {(*inputRenderer).htmlBlock, (*confirmRenderer).none, sanitizeHTMLContent},
	}
	for _, t := range Types() {
		h, ok := registry[t]
		if !ok || h.renderInput == nil || h.renderConfirm == nil || h.sanitize == nil {
			panic(fmt.Sprintf("form: field type %q has no complete handler set", t))
		}
	}
}

// lookup returns the handler set for t.  Unknown types at request time (a
// stored form predating a type removal) get a zero handlers value; callers
// treat that as "render nothing".
func lookup(t FieldType) (handlers, bool) {
	h, ok := registry[t]
	return h, ok
}
