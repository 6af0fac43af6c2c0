package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aomilabs/agentcore/pkg/scriptpipeline/sourcefetcher"
)

// Router provides a nice api around mux.Router, trimmed to the ops-only
// surface this spec carries: health checks. /metrics is served on its own
// port by pkg/metrics.SetupInstrumentation, and the user-visible chat/API
// HTTP shape is an explicit non-goal.
type Router struct {
	r *mux.Router
}

// newRouter is a Mux HTTP router constructor.
func newRouter() *Router {
	r := mux.NewRouter()
	r.PathPrefix("/").Methods(http.MethodOptions)
	return &Router{r: r}
}

// get creates a subroute on the specified URI that only accepts GET.
func (r *Router) get(uri string, f http.HandlerFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodGet)
}

// Handler returns the configured router http handler.
func (r *Router) Handler() http.Handler {
	return r.r
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status           string `json:"status"`
	FetchesInFlight  int64  `json:"fetches_in_flight"`
}

// configuredRouter builds the ops-only router. sources is consulted to
// report the source fetcher's current in-flight fetch count alongside
// liveness; it never blocks on pending fetches.
func configuredRouter(sources *sourcefetcher.Service) *Router {
	router := newRouter()
	router.get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(rw).Encode(healthResponse{
			Status:          "ok",
			FetchesInFlight: sources.InFlight(),
		})
	})
	return router
}
