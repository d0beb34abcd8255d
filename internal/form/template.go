// internal/form/template.go
//
// FormPlant – Forms subsystem: bracket-placeholder engine.
//
// Context
//   Site owners may supply raw HTML for the input screen and for the
//   confirmation screen.  Both use a small closed vocabulary of
//   [form_plant_*] tags; this is deliberately not a template language.  When
//   no custom template is supplied (or the toggle is off) a fixed skeleton
//   is assembled server side instead, and both paths delegate per-field
//   output to the same renderers, so the two layouts can never disagree on
//   what a field's value looks like.
//
// Workflow
//   •  Confirmation vocabulary: [form_plant_confirmation_title],
//      [form_plant_confirmation_message], [form_plant_all_fields],
//      [form_plant_value name="X"], [form_plant_back (text="...")], and
//      [form_plant_confirm_submit (text="...")].
//   •  Input vocabulary: [form_plant_field name="X"],
//      [form_plant_submit (text="...")], [form_plant_errors], and
//      [form_plant_success_message].
//   •  A value/field tag naming a field the form does not define is deleted,
//      never left as literal text and never an error.
//   •  The inline text= attribute overrides the form-level button text;
//      button class and id come only from settings.
//
//------------------------------------------------------------------------------

package form

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

const (
	defaultConfirmTitle      = "Confirmation"
	defaultConfirmMessage    = "Please review your entries before submitting."
	defaultBackText          = "Back"
	defaultConfirmSubmitText = "Submit"
)

var (
	valueTagRe         = regexp.MustCompile(`\[form_plant_value\s+name="([^"]*)"\s*\]`)
	fieldTagRe         = regexp.MustCompile(`\[form_plant_field\s+name="([^"]*)"\s*\]`)
	backTagRe          = regexp.MustCompile(`\[form_plant_back(?:\s+text="([^"]*)")?\s*\]`)
	confirmSubmitTagRe = regexp.MustCompile(`\[form_plant_confirm_submit(?:\s+text="([^"]*)")?\s*\]`)
	submitTagRe        = regexp.MustCompile(`\[form_plant_submit(?:\s+text="([^"]*)")?\s*\]`)
)

// -----------------------------------------------------------------------------
// Confirmation screen
// -----------------------------------------------------------------------------

// RenderConfirmation produces the full confirmation screen for a previewed
// submission: the owner's custom template when enabled, otherwise the
// default assembled skeleton.
func RenderConfirmation(fm *Form, values Values, filenames map[string]string) string {
	s := &fm.Settings
	if s.UseConfirmationTemplate && s.ConfirmationTemplate != "" {
		return substituteConfirmTags(fm, s.ConfirmationTemplate, values, filenames)
	}
	return defaultConfirmation(fm, values, filenames)
}

// defaultConfirmation assembles the fixed skeleton: header, review table,
// footer buttons.  No placeholder scanning is involved.
func defaultConfirmation(fm *Form, values Values, filenames map[string]string) string {
	var b strings.Builder
	b.WriteString(`<div class="fplant-confirmation">` + "\n")
	b.WriteString(`<h2 class="fplant-confirm-title">` + html.EscapeString(confirmTitle(&fm.Settings)) + "</h2>\n")
	b.WriteString(`<p class="fplant-confirm-message">` + html.EscapeString(confirmMessage(&fm.Settings)) + "</p>\n")
	b.WriteString(RenderAllFields(fm, values, filenames))
	b.WriteString(`<div class="fplant-confirm-actions">` + "\n")
	b.WriteString(backButton(&fm.Settings, ""))
	b.WriteString(confirmSubmitButton(&fm.Settings, ""))
	b.WriteString("</div>\n</div>\n")
	return b.String()
}

// substituteConfirmTags resolves the confirmation vocabulary inside an
// owner-authored template.
func substituteConfirmTags(fm *Form, tpl string, values Values, filenames map[string]string) string {
	out := tpl
	out = strings.ReplaceAll(out, "[form_plant_confirmation_title]", html.EscapeString(confirmTitle(&fm.Settings)))
	out = strings.ReplaceAll(out, "[form_plant_confirmation_message]", html.EscapeString(confirmMessage(&fm.Settings)))
	if strings.Contains(out, "[form_plant_all_fields]") {
		out = strings.ReplaceAll(out, "[form_plant_all_fields]", RenderAllFields(fm, values, filenames))
	}
	out = valueTagRe.ReplaceAllStringFunc(out, func(tag string) string {
		name := valueTagRe.FindStringSubmatch(tag)[1]
		f := fm.Field(name)
		if f == nil {
			return ""
		}
		return RenderConfirmField(f, values, filenames)
	})
	out = backTagRe.ReplaceAllStringFunc(out, func(tag string) string {
		return backButton(&fm.Settings, backTagRe.FindStringSubmatch(tag)[1])
	})
	out = confirmSubmitTagRe.ReplaceAllStringFunc(out, func(tag string) string {
		return confirmSubmitButton(&fm.Settings, confirmSubmitTagRe.FindStringSubmatch(tag)[1])
	})
	return out
}

func confirmTitle(s *Settings) string {
	if s.ConfirmationTitle != "" {
		return s.ConfirmationTitle
	}
	return defaultConfirmTitle
}

func confirmMessage(s *Settings) string {
	if s.ConfirmationMessage != "" {
		return s.ConfirmationMessage
	}
	return defaultConfirmMessage
}

// backButton renders the back action.  inlineText, when non-empty, wins over
// the settings text; class and id always come from settings.
func backButton(s *Settings, inlineText string) string {
	text := inlineText
	if text == "" {
		text = s.BackText
	}
	if text == "" {
		text = defaultBackText
	}
	return buttonHTML("fplant-back", s.BackClass, s.BackID, text)
}

func confirmSubmitButton(s *Settings, inlineText string) string {
	text := inlineText
	if text == "" {
		text = s.ConfirmSubmitText
	}
	if text == "" {
		text = defaultConfirmSubmitText
	}
	return buttonHTML("fplant-confirm-submit", s.ConfirmSubmitClass, s.ConfirmSubmitID, text)
}

// -----------------------------------------------------------------------------
// Input screen
// -----------------------------------------------------------------------------

// RenderInput produces the full input screen: the owner's HTML template when
// enabled, otherwise the default assembled form.  values and errors carry
// prior input and validation messages for redisplay.
func RenderInput(fm *Form, values Values, errors map[string]string, query url.Values, sources []InitialValueSource) string {
	if fm.Settings.UseHTMLTemplate && fm.HTMLTemplate != "" {
		return substituteInputTags(fm, fm.HTMLTemplate, values, errors, query, sources)
	}
	return RenderForm(fm, values, errors, query, sources)
}

// substituteInputTags resolves the input vocabulary, delegating every field
// tag to the same per-field renderer the default layout uses.
func substituteInputTags(fm *Form, tpl string, values Values, errors map[string]string, query url.Values, sources []InitialValueSource) string {
	out := fieldTagRe.ReplaceAllStringFunc(tpl, func(tag string) string {
		name := fieldTagRe.FindStringSubmatch(tag)[1]
		f := fm.Field(name)
		if f == nil {
			return ""
		}
		var current any
		if values != nil && values.Has(name) {
			current = values[name]
		}
		return RenderField(fm, f, current, query, sources)
	})
	out = submitTagRe.ReplaceAllStringFunc(out, func(tag string) string {
		text := submitTagRe.FindStringSubmatch(tag)[1]
		if text == "" {
			text = fm.Settings.SubmitText
		}
		if text == "" {
			text = "Submit"
		}
		return buttonHTML("fplant-submit", fm.Settings.SubmitClass, fm.Settings.SubmitID, text)
	})
	out = strings.ReplaceAll(out, "[form_plant_errors]", errorList(fm, errors))
	out = strings.ReplaceAll(out, "[form_plant_success_message]", html.EscapeString(fm.Settings.SuccessMessage))
	return out
}

// errorList renders validation messages as one list, ordered by field
// definition order so the output is stable.
func errorList(fm *Form, errors map[string]string) string {
	if len(errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<ul class="fplant-errors">` + "\n")
	for i := range fm.Fields {
		if msg, ok := errors[fm.Fields[i].Name]; ok {
			b.WriteString("<li>" + html.EscapeString(msg) + "</li>\n")
		}
	}
	b.WriteString("</ul>\n")
	return b.String()
}
