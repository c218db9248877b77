package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/contact-form-service/internal/observability"
	"github.com/kjstillabower/contact-form-service/internal/view"
)

// NewRouter wires the form routes behind rate limiting and a request timeout,
// plus the unthrottled /health, /metrics and /static/ endpoints.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", view.StaticHandler())).Methods("GET")

	formRouter := router.PathPrefix("/").Subrouter()
	formRouter.Use(RateLimitMiddleware(limiter))
	formRouter.Use(TimeoutMiddleware(requestTimeout))
	h.Routes(formRouter)
	return router
}
