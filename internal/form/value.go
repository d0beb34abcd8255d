// internal/form/value.go
//
// FormPlant – Forms subsystem: submitted-value model.
//
// Context
//   A submission arrives as loosely typed JSON: scalars for most fields, a
//   string array for checkboxes, and a descriptor object for completed file
//   uploads.  Values wraps the decoded map and gives the renderer,
//   validator, and mail builder one typed way to read each shape without
//   re-asserting interface types at every call site.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"strconv"
)

// FileValue is the descriptor of a stored upload, produced by the upload
// handler and echoed back by the client on submit.
type FileValue struct {
	URL      string `json:"url"`
	Path     string `json:"file"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

// FileUpload is server-side metadata about an in-flight upload, keyed by
// field name.  Status mirrors the classic upload-array contract: 0 means the
// transfer completed.
type FileUpload struct {
	Name   string
	Size   int64
	Status int
}

// Values is the decoded submission payload, keyed by field name.
type Values map[string]any

// Has reports whether any value, including an empty one, was submitted for
// name.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// String coerces the value for name into a string.  Numbers render without a
// trailing ".0" when integral, matching what a text input would have posted.
func (v Values) String(name string) string {
	raw, ok := v[name]
	if !ok || raw == nil {
		return ""
	}
	switch t := raw.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// List coerces the value for name into a string slice.  A lone scalar
// becomes a one-element slice; anything unreadable is skipped.
func (v Values) List(name string) []string {
	raw, ok := v[name]
	if !ok || raw == nil {
		return nil
	}
	switch t := raw.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

// File reads the value for name as an upload descriptor.  It accepts both
// the typed FileValue (server-built payloads) and the generic map shape a
// JSON decode produces.
func (v Values) File(name string) (FileValue, bool) {
	raw, ok := v[name]
	if !ok || raw == nil {
		return FileValue{}, false
	}
	switch t := raw.(type) {
	case FileValue:
		return t, true
	case *FileValue:
		if t == nil {
			return FileValue{}, false
		}
		return *t, true
	case map[string]any:
		str := func(k string) string {
			if s, ok := t[k].(string); ok {
				return s
			}
			return ""
		}
		fv := FileValue{URL: str("url"), Path: str("file"), Type: str("type"), Filename: str("filename")}
		if fv.URL == "" && fv.Path == "" && fv.Filename == "" {
			return FileValue{}, false
		}
		return fv, true
	default:
		return FileValue{}, false
	}
}

// Empty reports whether the value for f counts as "nothing submitted" for
// required-ness purposes.  The rules are type-aware:
//
//   •  checkbox: the selection set must be non-empty;
//   •  file: presence is judged from uploads, not from v;
//   •  everything else: the string form must be non-empty, so a literal "0"
//      is a present value.
func (v Values) Empty(f *FieldDef, uploads map[string]FileUpload) bool {
	switch f.Type {
	case TypeCheckbox:
		return len(v.List(f.Name)) == 0
	case TypeFile:
		if _, ok := uploads[f.Name]; ok {
			return false
		}
		_, ok := v.File(f.Name)
		return !ok
	default:
		return v.String(f.Name) == ""
	}
}
