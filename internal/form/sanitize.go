// internal/form/sanitize.go
//
// FormPlant – Forms subsystem: per-type value sanitizing.
//
// Context
//   Sanitizing runs after validation and before persistence.  It is
//   independent from validation: it always runs on whatever arrived, and any
//   submitted key with no matching field definition is dropped outright.
//   Scalar sanitizers strip control characters and markup; html-type field
//   content passes through a bluemonday UGC policy.
//
//------------------------------------------------------------------------------

package form

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	ugcPolicy   = bluemonday.UGCPolicy()
)

// sanitizeText removes markup and non-printing characters, keeping the value
// a plain single-line-ish string.
func sanitizeText(_ *FieldDef, v string) string {
	v = stripPolicy.Sanitize(v)
	v = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, v)
	return strings.TrimSpace(v)
}

// sanitizeTextarea keeps newlines but strips markup and other control
// characters.
func sanitizeTextarea(f *FieldDef, v string) string {
	return sanitizeText(f, v)
}

// sanitizeEmail returns the address when it parses, empty otherwise.  A
// malformed address never survives into stored data.
func sanitizeEmail(_ *FieldDef, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	addr, err := mail.ParseAddress(v)
	if err != nil {
		return ""
	}
	return addr.Address
}

// sanitizeURL keeps only well-formed absolute http(s) URLs.
func sanitizeURL(_ *FieldDef, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

// sanitizeHTMLContent filters html-type field content through the UGC
// policy, which allows common formatting tags but no scripts or event
// handlers.
func sanitizeHTMLContent(_ *FieldDef, v string) string {
	return ugcPolicy.Sanitize(v)
}

// SanitizeValues applies per-type sanitizing across a whole submission.
// Keys with no matching field definition are dropped.  Hidden fields carry
// real submitted data and are kept (text-sanitized); html blocks are pure
// display and never contribute.
func SanitizeValues(fm *Form, values Values) Values {
	out := make(Values, len(values))
	for i := range fm.Fields {
		f := &fm.Fields[i]
		if f.Type == TypeHTML || !values.Has(f.Name) {
			continue
		}
		h, ok := lookup(f.Type)
		if !ok {
			continue
		}
		switch f.Type {
		case TypeCheckbox:
			list := values.List(f.Name)
			clean := make([]string, 0, len(list))
			for _, v := range list {
				if s := h.sanitize(f, v); s != "" {
					clean = append(clean, s)
				}
			}
			out[f.Name] = clean
		case TypeFile:
			if fv, ok := values.File(f.Name); ok {
				out[f.Name] = fv
			}
		default:
			out[f.Name] = h.sanitize(f, values.String(f.Name))
		}
	}
	return out
}
