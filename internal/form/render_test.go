// internal/form/render_test.go
//
// FormPlant – Forms subsystem: input-renderer tests.
//
//------------------------------------------------------------------------------

package form

import (
	"net/url"
	"strings"
	"testing"
)

type fixedSource struct {
	field string
	value string
}

func (s fixedSource) InitialValue(_ int64, f *FieldDef) (string, bool) {
	if f.Name == s.field {
		return s.value, true
	}
	return "", false
}

func TestInitialValuePrecedence(t *testing.T) {
	fm := &Form{ID: 1, Settings: Settings{AllowURLParams: true}, Fields: []FieldDef{
		{Type: TypeText, Name: "ref", Label: "Ref", Default: "{ref}"},
	}}
	f := &fm.Fields[0]
	query := url.Values{"ref": {"from-url"}}
	hook := fixedSource{field: "ref", value: "from-hook"}

	// URL parameter wins when the form allows it and the default opts in.
	out := RenderField(fm, f, nil, query, []InitialValueSource{hook})
	if !strings.Contains(out, `value="from-url"`) {
		t.Fatalf("URL parameter should win: %q", out)
	}

	// An absent parameter resolves to empty, it does not fall through.
	out = RenderField(fm, f, nil, url.Values{}, []InitialValueSource{hook})
	if !strings.Contains(out, `value=""`) && strings.Contains(out, "value=") {
		t.Fatalf("absent URL parameter must resolve empty: %q", out)
	}

	// With prefill disabled, the hook is next in line.
	fm.Settings.AllowURLParams = false
	out = RenderField(fm, f, nil, query, []InitialValueSource{hook})
	if !strings.Contains(out, `value="from-hook"`) {
		t.Fatalf("hook should win when URL prefill is off: %q", out)
	}

	// With no hook either, a plain default is the last resort.
	f.Default = "fallback"
	out = RenderField(fm, f, nil, query, nil)
	if !strings.Contains(out, `value="fallback"`) {
		t.Fatalf("default should apply last: %q", out)
	}

	// A caller-supplied value beats everything.
	out = RenderField(fm, f, "typed", query, []InitialValueSource{hook})
	if !strings.Contains(out, `value="typed"`) {
		t.Fatalf("explicit value must win: %q", out)
	}
}

func TestURLPrefillIsTypeSanitized(t *testing.T) {
	fm := &Form{ID: 1, Settings: Settings{AllowURLParams: true}, Fields: []FieldDef{
		{Type: TypeNumber, Name: "qty", Label: "Qty", Default: "{qty}"},
		{Type: TypeDate, Name: "when", Label: "When", Default: "{when}"},
	}}

	out := RenderField(fm, &fm.Fields[0], nil, url.Values{"qty": {"abc"}}, nil)
	if strings.Contains(out, "abc") {
		t.Fatalf("non-numeric prefill must be rejected: %q", out)
	}
	out = RenderField(fm, &fm.Fields[1], nil, url.Values{"when": {"not-a-date"}}, nil)
	if strings.Contains(out, "not-a-date") {
		t.Fatalf("malformed date prefill must be rejected: %q", out)
	}
	out = RenderField(fm, &fm.Fields[1], nil, url.Values{"when": {"2026-08-01"}}, nil)
	if !strings.Contains(out, `value="2026-08-01"`) {
		t.Fatalf("valid date prefill expected: %q", out)
	}
}

func TestSelectRendersBlankOptionAndSelection(t *testing.T) {
	fm := &Form{ID: 1}
	f := &FieldDef{Type: TypeSelect, Name: "fruit", Label: "Fruit",
		Options: []Option{{Value: "a", Label: "Apple"}, {Value: "b", Label: "Banana"}}}

	out := RenderField(fm, f, "b", nil, nil)
	if !strings.Contains(out, `<option value=""></option>`) {
		t.Fatalf("blank please-choose option missing: %q", out)
	}
	if !strings.Contains(out, `value="b" selected`) {
		t.Fatalf("current value must be selected: %q", out)
	}
}

func TestCheckboxArrayNameAndPrechecks(t *testing.T) {
	fm := &Form{ID: 1}
	f := &FieldDef{Type: TypeCheckbox, Name: "tags", Label: "Tags", Layout: "vertical",
		Options: []Option{{Value: "x", Label: "X"}, {Value: "y", Label: "Y"}}}

	out := RenderField(fm, f, []string{"y"}, nil, nil)
	if !strings.Contains(out, `name="tags[]"`) {
		t.Fatalf("checkbox inputs must post as an array: %q", out)
	}
	if !strings.Contains(out, `value="y" checked`) || strings.Contains(out, `value="x" checked`) {
		t.Fatalf("only selected options pre-check: %q", out)
	}
}

func TestFileEmitsAdvisorySizeLimit(t *testing.T) {
	fm := &Form{ID: 1}
	f := &FieldDef{Type: TypeFile, Name: "doc", Label: "Doc"}
	f.Normalize()

	out := RenderField(fm, f, nil, nil, nil)
	if !strings.Contains(out, `data-max-size="5242880"`) {
		t.Fatalf("canonical 5 MB hint expected: %q", out)
	}
	if !strings.Contains(out, `accept=".jpg,.jpeg,.png,.gif,.pdf"`) {
		t.Fatalf("default accept list expected: %q", out)
	}
}

func TestUnknownTypeRendersNothing(t *testing.T) {
	fm := &Form{ID: 1}
	f := &FieldDef{Type: FieldType("holo"), Name: "x"}
	if out := RenderField(fm, f, nil, nil, nil); out != "" {
		t.Fatalf("unknown type must fail soft: %q", out)
	}
}

func TestHTMLFieldContentIsSanitized(t *testing.T) {
	fm := &Form{ID: 1}
	f := &FieldDef{Type: TypeHTML, Name: "blurb",
		Content: `<p>ok</p><script>alert(1)</script>`}

	out := RenderField(fm, f, nil, nil, nil)
	if !strings.Contains(out, "<p>ok</p>") {
		t.Fatalf("benign markup must survive: %q", out)
	}
	if strings.Contains(out, "script") {
		t.Fatalf("scripts must be stripped: %q", out)
	}
}

func TestAttributeValuesAreEscaped(t *testing.T) {
	fm := &Form{ID: 1}
	f := &FieldDef{Type: TypeText, Name: "name", Placeholder: `"><script>`}
	out := RenderField(fm, f, nil, nil, nil)
	if strings.Contains(out, "<script>") {
		t.Fatalf("attribute injection must be escaped: %q", out)
	}
}

func TestRenderFormShowsErrors(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeText, Name: "name", Label: "Name", Required: true},
	}}
	out := RenderForm(fm, Values{"name": ""}, map[string]string{"name": "Name is required."}, nil, nil)
	if !strings.Contains(out, "Name is required.") {
		t.Fatalf("field error must render beside its field: %q", out)
	}
	if !strings.Contains(out, "fplant-required") {
		t.Fatalf("required marker missing: %q", out)
	}
}
