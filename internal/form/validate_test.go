// internal/form/validate_test.go
//
// FormPlant – Forms subsystem: validator tests.
//
//------------------------------------------------------------------------------

package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func textField(name string, required bool) FieldDef {
	return FieldDef{Type: TypeText, Name: name, Label: name, Required: required}
}

func TestRequiredIsTypeAware(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeNumber, Name: "qty", Label: "Qty", Required: true},
		{Type: TypeCheckbox, Name: "tags", Label: "Tags", Required: true,
			Options: []Option{{Value: "0", Label: "Zero"}}},
	}}
	fm.Normalize()
	v := NewValidator()

	// A literal zero is a present value for scalar fields.
	res := v.Validate(fm, Values{"qty": "0", "tags": []string{"0"}}, nil)
	if !res.Valid {
		t.Fatalf("expected valid, got errors %v", res.Errors)
	}

	// An empty selection set fails a required checkbox.
	res = v.Validate(fm, Values{"qty": "1", "tags": []string{}}, nil)
	if res.Valid {
		t.Fatal("expected empty checkbox to fail required check")
	}
	if _, ok := res.Errors["tags"]; !ok {
		t.Fatalf("expected error keyed by field name, got %v", res.Errors)
	}
}

func TestRequiredShortCircuits(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{{
		Type: TypeText, Name: "code", Label: "Code", Required: true,
		RequiredMessage: "Code is mandatory.",
		Validation:      &Rules{MinLength: 5},
	}}}
	v := NewValidator()

	res := v.Validate(fm, Values{"code": ""}, nil)
	if got := res.Errors["code"]; got != "Code is mandatory." {
		t.Fatalf("expected the required message only, got %q", got)
	}
}

func TestOptionalEmptySkipsFormatChecks(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeEmail, Name: "email", Label: "Email"},
	}}
	v := NewValidator()
	if res := v.Validate(fm, Values{"email": ""}, nil); !res.Valid {
		t.Fatalf("empty optional email should pass, got %v", res.Errors)
	}
	if res := v.Validate(fm, Values{"email": "not-an-email"}, nil); res.Valid {
		t.Fatal("malformed email should fail once a value is present")
	}
}

func TestDisplayOnlyFieldsAreSkipped(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeHTML, Name: "blurb", Content: "<p>hello</p>", Required: true},
		{Type: TypeHidden, Name: "token", Required: true},
	}}
	v := NewValidator()
	if res := v.Validate(fm, Values{}, nil); !res.Valid {
		t.Fatalf("display-only fields must never validate, got %v", res.Errors)
	}
}

type overrideHook struct {
	field   string
	message string
}

func (h overrideHook) Validate(_ int64, f *FieldDef, _ Values) (string, bool) {
	if f.Name != h.field {
		return "", false
	}
	return h.message, true
}

func TestFieldValidatorOverride(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeEmail, Name: "email", Label: "Email"},
	}}

	// An override returning a message replaces the standard rules.
	v := NewValidator(WithFieldValidator(overrideHook{field: "email", message: "nope"}))
	res := v.Validate(fm, Values{"email": "valid@example.com"}, nil)
	if res.Errors["email"] != "nope" {
		t.Fatalf("expected override error, got %v", res.Errors)
	}

	// An override returning an empty message means "no error", even for a
	// value the standard rules would reject.
	v = NewValidator(WithFieldValidator(overrideHook{field: "email", message: ""}))
	res = v.Validate(fm, Values{"email": "not-an-email"}, nil)
	if !res.Valid {
		t.Fatalf("empty override must suppress standard checks, got %v", res.Errors)
	}
}

func TestPhoneRule(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeTel, Name: "tel", Label: "Tel"},
	}}
	v := NewValidator()

	cases := []struct {
		in string
		ok bool
	}{
		{"0312345678", true},
		{"03-1234-5678", true},  // separators stripped before matching
		{"090-1234-5678", true}, // 11-digit mobile
		{"1234567890", false},   // must start with 0
		{"0312345", false},      // too short
	}
	for _, c := range cases {
		res := v.Validate(fm, Values{"tel": c.in}, nil)
		if res.Valid != c.ok {
			t.Errorf("tel %q: valid=%v, want %v", c.in, res.Valid, c.ok)
		}
	}
}

type anyPhone struct{}

func (anyPhone) ValidPhone(string) bool { return true }

func TestPhoneStrategyIsPluggable(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{{Type: TypeTel, Name: "tel"}}}
	v := NewValidator(WithPhoneValidator(anyPhone{}))
	if res := v.Validate(fm, Values{"tel": "+44 20 7946 0958"}, nil); !res.Valid {
		t.Fatalf("custom phone strategy should accept, got %v", res.Errors)
	}
}

func TestNumberBounds(t *testing.T) {
	min, max := 1.0, 10.0
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeNumber, Name: "n", Label: "N", Min: &min, Max: &max},
	}}
	v := NewValidator()

	if res := v.Validate(fm, Values{"n": "5"}, nil); !res.Valid {
		t.Fatalf("in-range number should pass, got %v", res.Errors)
	}
	if res := v.Validate(fm, Values{"n": "0"}, nil); res.Valid {
		t.Fatal("below-min number should fail")
	}
	if res := v.Validate(fm, Values{"n": "11"}, nil); res.Valid {
		t.Fatal("above-max number should fail")
	}
	if res := v.Validate(fm, Values{"n": "abc"}, nil); res.Valid {
		t.Fatal("non-numeric value should fail")
	}
}

func TestFileConstraints(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeFile, Name: "doc", Label: "Doc", Required: true,
			MaxSizeMB: 1, AllowedTypes: []string{"pdf"}},
	}}
	v := NewValidator()

	ok := map[string]FileUpload{"doc": {Name: "report.pdf", Size: 512 * 1024}}
	if res := v.Validate(fm, Values{}, ok); !res.Valid {
		t.Fatalf("conforming upload should pass, got %v", res.Errors)
	}

	big := map[string]FileUpload{"doc": {Name: "report.pdf", Size: 2 * 1024 * 1024}}
	if res := v.Validate(fm, Values{}, big); res.Valid {
		t.Fatal("oversize upload should fail")
	}

	wrongExt := map[string]FileUpload{"doc": {Name: "report.docx", Size: 1024}}
	if res := v.Validate(fm, Values{}, wrongExt); res.Valid {
		t.Fatal("disallowed extension should fail")
	}

	broken := map[string]FileUpload{"doc": {Name: "report.pdf", Size: 1024, Status: 4}}
	if res := v.Validate(fm, Values{}, broken); res.Valid {
		t.Fatal("failed transport status should fail")
	}

	if res := v.Validate(fm, Values{}, nil); res.Valid {
		t.Fatal("required file with no upload should fail")
	}
}

func TestLengthRulesCountRunes(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeText, Name: "name", Label: "Name",
			Validation: &Rules{MinLength: 3, MaxLength: 5}},
	}}
	v := NewValidator()

	// Three multi-byte runes satisfy min_length 3.
	if res := v.Validate(fm, Values{"name": "あいう"}, nil); !res.Valid {
		t.Fatalf("rune length should be used, got %v", res.Errors)
	}
	if res := v.Validate(fm, Values{"name": "ab"}, nil); res.Valid {
		t.Fatal("two runes should fail min_length 3")
	}
	if res := v.Validate(fm, Values{"name": "abcdef"}, nil); res.Valid {
		t.Fatal("six runes should fail max_length 5")
	}
}

func TestPatternRule(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		{Type: TypeText, Name: "zip", Label: "Zip",
			Validation: &Rules{Pattern: `^\d{3}-\d{4}$`, PatternMessage: "Use 123-4567 format."}},
	}}
	v := NewValidator()

	if res := v.Validate(fm, Values{"zip": "123-4567"}, nil); !res.Valid {
		t.Fatalf("matching value should pass, got %v", res.Errors)
	}
	res := v.Validate(fm, Values{"zip": "1234567"}, nil)
	if res.Errors["zip"] != "Use 123-4567 format." {
		t.Fatalf("expected the custom pattern message, got %v", res.Errors)
	}
}

func TestValidationIsPure(t *testing.T) {
	fm := &Form{ID: 1, Fields: []FieldDef{
		textField("name", true),
		{Type: TypeEmail, Name: "email", Label: "Email", Required: true},
	}}
	v := NewValidator()
	values := Values{"name": "", "email": "bad"}

	first := v.Validate(fm, values, nil)
	second := v.Validate(fm, values, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("identical inputs must yield identical results (-first +second):\n%s", diff)
	}
}
