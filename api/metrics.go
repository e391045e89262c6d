package api

import (
	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/go-chi/chi/v5"
)

// EnablePrometheusMetrics enables go-chi prometheus metrics under specified ID.
// If ID empty, the default "gochi_http" is used. The existing router is
// remounted under the metrics middleware, so call this before Start.
func (a *API) EnablePrometheusMetrics(prometheusID string) {
	if prometheusID == "" {
		prometheusID = "gochi_http"
	}
	r := chi.NewRouter()
	r.Use(chiprometheus.NewMiddleware(prometheusID))
	r.Mount("/", a.Router)
	a.Router = r
}
