// internal/embed/embed.go
//
// FormPlant – Embedding gateway.
//
// Context
//   A form may be embedded on third-party pages by iframe or script.  Each
//   form carries its own origin allow-list; requests from anywhere else are
//   refused outright.  Access-Control-Allow-Origin echoes the caller's
//   origin only when allow-listed, and the embed page ships a
//   frame-ancestors policy restricting who may frame it.
//
//------------------------------------------------------------------------------

package embed

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/yanizio/formplant/internal/form"
)

// Enabled reports whether the form accepts embedding at all.
func Enabled(fm *form.Form) bool {
	return fm.Settings.EmbedEnabled
}

// originOf reduces a configured URL or an Origin header value to its
// scheme://host[:port] origin.  Malformed entries reduce to empty and never
// match.
func originOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// AllowedOrigin reports whether origin is on the form's allow-list.  An
// empty allow-list allows nothing; embedding is opt-in per origin.
func AllowedOrigin(fm *form.Form, origin string) bool {
	if !Enabled(fm) {
		return false
	}
	want := originOf(origin)
	if want == "" {
		return false
	}
	for _, entry := range fm.Settings.EmbedAllowedURLs {
		if originOf(entry) == want {
			return true
		}
	}
	return false
}

// ApplyCORS writes the CORS response headers for an allow-listed origin and
// reports whether the request may proceed.  Disallowed origins get no
// headers at all, never a wildcard.
func ApplyCORS(w http.ResponseWriter, fm *form.Form, origin string) bool {
	if !AllowedOrigin(fm, origin) {
		return false
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", originOf(origin))
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Vary", "Origin")
	return true
}

// CSPHeader builds the frame-ancestors policy from the allow-list.  With no
// valid entries the page may not be framed anywhere.
func CSPHeader(fm *form.Form) string {
	var ancestors []string
	for _, entry := range fm.Settings.EmbedAllowedURLs {
		if o := originOf(entry); o != "" {
			ancestors = append(ancestors, o)
		}
	}
	if len(ancestors) == 0 {
		return "frame-ancestors 'none'"
	}
	return "frame-ancestors " + strings.Join(ancestors, " ")
}

// Page renders the standalone embed document around the form's input
// screen.
func Page(fm *form.Form, query url.Values, sources []form.InitialValueSource) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(`<meta charset="utf-8">` + "\n")
	b.WriteString("<title>" + html.EscapeString(fm.Title) + "</title>\n")
	b.WriteString("</head>\n<body class=\"fplant-embed\">\n")
	b.WriteString(fmt.Sprintf(`<div class="fplant-embed-root" data-form-id="%d">`+"\n", fm.ID))
	b.WriteString(form.RenderInput(fm, nil, nil, query, sources))
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}
