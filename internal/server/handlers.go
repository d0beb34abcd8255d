// internal/server/handlers.go
//
// Request handlers for the API and embed routes.  Decoding, status-code
// mapping, and the admin submission endpoints live here; all form logic
// stays in the domain packages.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/formplant/internal/embed"
	"github.com/yanizio/formplant/internal/form"
	"github.com/yanizio/formplant/internal/requestinfo"
	"github.com/yanizio/formplant/internal/store"
	"github.com/yanizio/formplant/internal/submit"
	"github.com/yanizio/formplant/internal/upload"
)

// captchaField is the conventional input name the CAPTCHA widget posts its
// token under.  It is stripped from the value map before validation.
const captchaField = "g-recaptcha-response"

// maxMultipartMemory caps the in-memory part buffer; larger file parts
// spill to disk.
const maxMultipartMemory = 32 << 20

/*──────────────────────────── response helpers ─────────────────────────────*/

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("response encode failed", "error", err)
	}
}

// writeResult maps a pipeline result onto an HTTP status.  Handlers branch
// on Success and NotFound only.
func writeResult(w http.ResponseWriter, res submit.Result) {
	status := http.StatusOK
	switch {
	case res.NotFound:
		status = http.StatusNotFound
	case !res.Success:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, submit.Result{Success: false, Message: message})
}

// pathID parses the named chi URL parameter as a positive integer.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

/*──────────────────────────── request decoding ─────────────────────────────*/

// submission is everything decoded from one validate or submit request.
type submission struct {
	values    form.Values
	uploads   map[string]form.FileUpload
	filenames map[string]string
	token     string
	// fieldErrs carries upload rejections keyed by field name; a non-empty
	// map short-circuits the pipeline with a validation-style response.
	fieldErrs map[string]string
}

// parseSubmission decodes a submission request body.  Multipart and
// urlencoded forms map `name[]` keys to lists; a JSON body is the value map
// itself.  File parts are persisted immediately so the descriptor can ride
// the value map through the confirmation round-trip.
func (s *Server) parseSubmission(r *http.Request, formID int64) (*submission, error) {
	sub := &submission{
		values:    form.Values{},
		uploads:   map[string]form.FileUpload{},
		filenames: map[string]string{},
		fieldErrs: map[string]string{},
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, err
		}
		decodeFormValues(sub.values, r.MultipartForm.Value)
		if err := s.storeFileParts(r, formID, sub); err != nil {
			return nil, err
		}

	case strings.HasPrefix(ct, "application/json"):
		if err := json.NewDecoder(r.Body).Decode(&sub.values); err != nil {
			return nil, err
		}
		// Descriptors echoed back from an earlier upload stand in for the
		// original file part.
		for name, raw := range sub.values {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			fn, ok := m["filename"].(string)
			if !ok || fn == "" {
				continue
			}
			sub.uploads[name] = form.FileUpload{Name: fn}
			sub.filenames[name] = fn
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		decodeFormValues(sub.values, r.PostForm)
	}

	sub.token = sub.values.String(captchaField)
	delete(sub.values, captchaField)
	return sub, nil
}

// decodeFormValues copies posted keys into the value map.  A `name[]` key
// becomes a list under `name`; anything else keeps its first value.
func decodeFormValues(dst form.Values, src map[string][]string) {
	for key, vals := range src {
		if len(vals) == 0 {
			continue
		}
		if name, ok := strings.CutSuffix(key, "[]"); ok {
			list := make([]any, 0, len(vals))
			for _, v := range vals {
				list = append(list, v)
			}
			dst[name] = list
			continue
		}
		dst[key] = vals[0]
	}
}

// storeFileParts persists each uploaded part and records its metadata.  A
// rejected file becomes a field error rather than a transport failure.
func (s *Server) storeFileParts(r *http.Request, formID int64, sub *submission) error {
	for name, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		sub.uploads[name] = form.FileUpload{Name: fh.Filename, Size: fh.Size}
		sub.filenames[name] = fh.Filename

		if s.Uploads == nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		fv, err := s.Uploads.Store(formID, fh.Filename, f)
		_ = f.Close()
		if errors.Is(err, upload.ErrRejected) {
			sub.fieldErrs[name] = "This file type is not allowed."
			continue
		}
		if err != nil {
			return err
		}
		sub.values[name] = map[string]any{
			"url":      fv.URL,
			"file":     fv.Path,
			"type":     fv.Type,
			"filename": fv.Filename,
		}
	}
	return nil
}

// clientMeta assembles the per-request context recorded with a submission.
func clientMeta(r *http.Request, token string) submit.Meta {
	m := submit.Meta{
		UserAgent:    r.UserAgent(),
		Referrer:     r.Referer(),
		CaptchaToken: token,
	}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		m.IP = ri.ClientIP()
	}
	if m.IP == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			m.IP = host
		}
	}
	return m
}

/*──────────────────────────── form config ──────────────────────────────────*/

// formConfig is the public subset of a form definition.  Notification specs
// and spam tuning never leave the server.
type formConfig struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Fields   []form.FieldDef `json:"fields"`
	Settings configSettings  `json:"settings"`
	HTML     string          `json:"html"`
}

type configSettings struct {
	SubmitText      string `json:"input_submit_text,omitempty"`
	UseConfirmation bool   `json:"use_confirmation"`
	ActionType      string `json:"action_type,omitempty"`
	CaptchaEnabled  bool   `json:"recaptcha_enabled"`
	CaptchaVersion  string `json:"recaptcha_version,omitempty"`
}

func (s *Server) handleFormConfig(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.servableForm(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, formConfig{
		ID:     fm.ID,
		Title:  fm.Title,
		Fields: fm.Fields,
		Settings: configSettings{
			SubmitText:      fm.Settings.SubmitText,
			UseConfirmation: fm.Settings.UseConfirmation,
			ActionType:      string(fm.Settings.ActionType),
			CaptchaEnabled:  fm.Settings.CaptchaEnabled,
			CaptchaVersion:  fm.Settings.CaptchaVersion,
		},
		HTML: form.RenderInput(fm, nil, nil, r.URL.Query(), nil),
	})
}

// servableForm loads the form from the path parameter, answering 404 for
// unknown, trashed, or malformed IDs.
func (s *Server) servableForm(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	id, ok := pathID(r, "formID")
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found.")
		return nil, false
	}
	fm, err := s.Forms.GetForm(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && fm.Status == form.StatusTrash) {
		writeError(w, http.StatusNotFound, "Form not found.")
		return nil, false
	}
	if err != nil {
		zap.S().Errorw("form load failed", "form_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error.")
		return nil, false
	}
	return fm, true
}

/*──────────────────────────── validate / submit ────────────────────────────*/

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "formID")
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found.")
		return
	}
	sub, err := s.parseSubmission(r, id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if len(sub.fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, submit.Result{Success: false, Errors: sub.fieldErrs})
		return
	}
	writeResult(w, s.Pipeline.ValidateAndPreview(r.Context(), id, sub.values, sub.uploads, sub.filenames))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "formID")
	if !ok {
		writeError(w, http.StatusNotFound, "Form not found.")
		return
	}
	sub, err := s.parseSubmission(r, id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if len(sub.fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, submit.Result{Success: false, Errors: sub.fieldErrs})
		return
	}
	writeResult(w, s.Pipeline.Submit(r.Context(), id, sub.values, sub.uploads, clientMeta(r, sub.token)))
}

/*──────────────────────────── admin: submissions ───────────────────────────*/

type submissionList struct {
	Submissions []store.Submission `json:"submissions"`
	Total       int64              `json:"total"`
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.servableForm(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := store.SubmissionFilter{
		FormID: fm.ID,
		Search: q.Get("search"),
		Limit:  50,
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = min(n, 500)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		filter.Offset = n
	}
	if t, ok := parseDay(q.Get("from")); ok {
		filter.From = t
	}
	if t, ok := parseDay(q.Get("to")); ok {
		// The bound is inclusive of the named day.
		filter.To = t.Add(24 * time.Hour)
	}

	subs, err := s.Submissions.List(r.Context(), filter)
	if err != nil {
		zap.S().Errorw("submission list failed", "form_id", fm.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	total, err := s.Submissions.Count(r.Context(), fm.ID)
	if err != nil {
		zap.S().Errorw("submission count failed", "form_id", fm.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	writeJSON(w, http.StatusOK, submissionList{Submissions: subs, Total: total})
}

// parseDay accepts either a bare date or a full RFC 3339 timestamp.
func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Submission not found.")
		return
	}
	sub, err := s.Submissions.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Submission not found.")
		return
	}
	if err != nil {
		zap.S().Errorw("submission get failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Submission not found.")
		return
	}
	err := s.Submissions.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Submission not found.")
		return
	}
	if err != nil {
		zap.S().Errorw("submission delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.servableForm(w, r)
	if !ok {
		return
	}
	subs, err := s.Submissions.List(r.Context(), store.SubmissionFilter{FormID: fm.ID})
	if err != nil {
		zap.S().Errorw("submission export failed", "form_id", fm.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-submissions.csv"`, form.Slug(fm.Title)))
	if err := store.ExportCSV(w, fm, subs); err != nil {
		zap.S().Errorw("csv write failed", "form_id", fm.ID, "error", err)
	}
}

/*──────────────────────────── embed ────────────────────────────────────────*/

// embedForm loads the form and enforces the embed gate.
func (s *Server) embedForm(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	fm, ok := s.servableForm(w, r)
	if !ok {
		return nil, false
	}
	if !embed.Enabled(fm) {
		writeError(w, http.StatusNotFound, "Form not found.")
		return nil, false
	}
	return fm, true
}

func (s *Server) handleEmbedPage(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.embedForm(w, r)
	if !ok {
		return
	}
	h := w.Header()
	// The security middleware forbids framing by default; the embed page
	// substitutes the form's own allow-list.
	h.Set("Content-Security-Policy", embed.CSPHeader(fm))
	h.Del("X-Frame-Options")
	h.Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(embed.Page(fm, r.URL.Query(), nil)))
}

func (s *Server) handleEmbedPreflight(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.embedForm(w, r)
	if !ok {
		return
	}
	if !embed.ApplyCORS(w, fm, r.Header.Get("Origin")) {
		writeError(w, http.StatusForbidden, "Origin not allowed.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEmbedValidate(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.embedForm(w, r)
	if !ok {
		return
	}
	if !embed.ApplyCORS(w, fm, r.Header.Get("Origin")) {
		writeError(w, http.StatusForbidden, "Origin not allowed.")
		return
	}
	s.handleValidate(w, r)
}

func (s *Server) handleEmbedSubmit(w http.ResponseWriter, r *http.Request) {
	fm, ok := s.embedForm(w, r)
	if !ok {
		return
	}
	if !embed.ApplyCORS(w, fm, r.Header.Get("Origin")) {
		writeError(w, http.StatusForbidden, "Origin not allowed.")
		return
	}
	s.handleSubmit(w, r)
}
