// internal/server/routes.go
//
// HTTP surface.
//
// Context
// -------
// Every endpoint speaks JSON except the CSV export and the embed page.  The
// submission endpoints accept multipart/form-data (with file parts),
// application/x-www-form-urlencoded, or a bare JSON object of field values;
// all three decode into the same form.Values map before the pipeline runs.
//
// Responses from the pipeline carry `{success:true,...}` or
// `{success:false,message,errors?}`.  Handlers branch only on Success plus
// the not-found flag; they never inspect individual error strings.
//
// Notes
// -----
// • The embed endpoints replace the default Content-Security-Policy and
//   X-Frame-Options set by the security middleware with the form's own
//   frame-ancestors allow-list.
// • Oxford commas, two spaces after periods.

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/formplant/internal/store"
	"github.com/yanizio/formplant/internal/submit"
	"github.com/yanizio/formplant/internal/upload"
)

// Server bundles the collaborators the handlers need.  Construct once in
// cmd/web and mount Router on the listener.
type Server struct {
	Pipeline    *submit.Pipeline
	Forms       store.FormStore
	Submissions store.SubmissionStore
	Uploads     *upload.Storage
}

// Router builds the chi mux for the whole application.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/forms/{formID}", s.handleFormConfig)
		r.Post("/forms/{formID}/validate", s.handleValidate)
		r.Post("/forms/{formID}/submit", s.handleSubmit)
		r.Get("/forms/{formID}/submissions", s.handleListSubmissions)
		r.Get("/forms/{formID}/export.csv", s.handleExportCSV)
		r.Get("/submissions/{id}", s.handleGetSubmission)
		r.Delete("/submissions/{id}", s.handleDeleteSubmission)
	})

	// Stored uploads are addressed by the FileValue URLs the pipeline hands
	// out; serve them from the storage root.
	if s.Uploads != nil {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/",
			http.FileServer(http.Dir(s.Uploads.Root))))
	}

	r.Route("/embed", func(r chi.Router) {
		r.Get("/{formID}", s.handleEmbedPage)
		r.Options("/{formID}/validate", s.handleEmbedPreflight)
		r.Options("/{formID}/submit", s.handleEmbedPreflight)
		r.Post("/{formID}/validate", s.handleEmbedValidate)
		r.Post("/{formID}/submit", s.handleEmbedSubmit)
	})

	return r
}
