// internal/form/confirm_test.go
//
// FormPlant – Forms subsystem: confirmation-renderer tests.
//
//------------------------------------------------------------------------------

package form

import (
	"strings"
	"testing"
)

func TestSelectRoundTrip(t *testing.T) {
	f := &FieldDef{Type: TypeSelect, Name: "fruit", Label: "Fruit",
		Options: []Option{{Value: "a", Label: "Apple"}, {Value: "b", Label: "Banana"}}}

	if got := RenderConfirmField(f, Values{"fruit": "b"}, nil); got != "Banana" {
		t.Fatalf("matched value must render its label, got %q", got)
	}
	if got := RenderConfirmField(f, Values{"fruit": "z"}, nil); got != "z" {
		t.Fatalf("unmatched value must render raw, got %q", got)
	}
	if got := RenderConfirmField(f, Values{}, nil); got != "-" {
		t.Fatalf("empty value must render the dash, got %q", got)
	}
}

func TestCheckboxDelimiter(t *testing.T) {
	f := &FieldDef{Type: TypeCheckbox, Name: "nums", Label: "Nums", Delimiter: " | ",
		Options: []Option{{Value: "1", Label: "One"}, {Value: "2", Label: "Two"}}}

	if got := RenderConfirmField(f, Values{"nums": []string{"1", "2"}}, nil); got != "One | Two" {
		t.Fatalf("delimiter not honored, got %q", got)
	}

	// A lone scalar is wrapped into a one-element set.
	if got := RenderConfirmField(f, Values{"nums": "2"}, nil); got != "Two" {
		t.Fatalf("scalar checkbox value must normalize, got %q", got)
	}

	// Values with no matching option fall back to the raw strings.
	if got := RenderConfirmField(f, Values{"nums": []string{"x", "y"}}, nil); got != "x | y" {
		t.Fatalf("unmatched checkbox values must render raw, got %q", got)
	}
}

func TestFilePrefersFreshFilename(t *testing.T) {
	f := &FieldDef{Type: TypeFile, Name: "doc", Label: "Doc"}
	values := Values{"doc": map[string]any{"url": "https://x/old.pdf", "filename": "old.pdf"}}

	got := RenderConfirmField(f, values, map[string]string{"doc": "fresh.pdf"})
	if got != "fresh.pdf" {
		t.Fatalf("freshly-uploaded name must win, got %q", got)
	}
	if got := RenderConfirmField(f, values, nil); got != "old.pdf" {
		t.Fatalf("stored descriptor filename expected, got %q", got)
	}
	if got := RenderConfirmField(f, Values{}, nil); got != "-" {
		t.Fatalf("missing file must render the dash, got %q", got)
	}
}

func TestTextareaEscapesAndBreaksLines(t *testing.T) {
	f := &FieldDef{Type: TypeTextarea, Name: "msg", Label: "Message"}
	got := RenderConfirmField(f, Values{"msg": "a<b\nsecond"}, nil)
	if !strings.Contains(got, "a&lt;b") {
		t.Fatalf("markup must be escaped, got %q", got)
	}
	if !strings.Contains(got, "<br>") {
		t.Fatalf("newlines must become breaks, got %q", got)
	}
}

func TestAllFieldsSkipsDisplayOnly(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeText, Name: "name", Label: "Name"},
		{Type: TypeHidden, Name: "token"},
		{Type: TypeHTML, Name: "blurb", Content: "<p>x</p>"},
	}}
	out := RenderAllFields(fm, Values{"name": "Jane", "token": "secret"}, nil)
	if !strings.Contains(out, "Jane") {
		t.Fatalf("value row missing: %q", out)
	}
	if strings.Contains(out, "secret") || strings.Contains(out, "blurb") {
		t.Fatalf("hidden/html fields must not appear in the table: %q", out)
	}
}
