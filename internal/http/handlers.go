package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/contact-form-service/internal/contact"
	"github.com/kjstillabower/contact-form-service/internal/lifecycle"
	"github.com/kjstillabower/contact-form-service/internal/observability"
	"github.com/kjstillabower/contact-form-service/internal/overload"
	"github.com/kjstillabower/contact-form-service/internal/session"
	"github.com/kjstillabower/contact-form-service/internal/view"
)

// SessionCookieName carries the session id between requests.
const SessionCookieName = "contact_session"

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	// StorePing, when set, is called to check session store reachability. Used when backend is memcached.
	StorePing func() error
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions         *session.Manager
	renderer         *view.Renderer
	healthConfig     *HealthConfig
	cookie           CookieConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	sessions *session.Manager,
	renderer *view.Renderer,
	healthConfig *HealthConfig,
	cookie CookieConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions:     sessions,
		renderer:     renderer,
		healthConfig: healthConfig,
		cookie:       cookie,
		logger:       logger,
	}
}

// Routes registers the contact form routes on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/", h.GetForm).Methods("GET")
	r.HandleFunc("/fields/{field}", h.PostField).Methods("POST")
	r.HandleFunc("/submit", h.PostSubmit).Methods("POST")
}

// GetForm handles GET /. Renders the session's form, creating a session when none exists.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(w, r)
	form, err := h.sessions.Load(r.Context(), id)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	h.writePage(w, r, http.StatusOK, form)
}

// PostField handles POST /fields/{field}: one field-change event. The new value is read
// from the form key named after the field, falling back to "value".
// With HX-Request: true only the field's error slot is returned.
func (h *Handler) PostField(w http.ResponseWriter, r *http.Request) {
	field, err := contact.ParseField(mux.Vars(r)["field"])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_FIELD", "unknown field: "+mux.Vars(r)["field"])
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORM", "request body is not a valid form")
		return
	}
	value, ok := r.PostForm[string(field)]
	if !ok {
		value = r.PostForm["value"]
	}
	var v string
	if len(value) > 0 {
		v = value[0]
	}

	id := h.sessionID(w, r)
	form, err := h.sessions.Change(r.Context(), id, field, v)
	switch {
	case errors.Is(err, contact.ErrAlreadySubmitted):
		h.writePage(w, r, http.StatusConflict, form)
		return
	case err != nil:
		writeSessionError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.writeFragment(w, r, form, field)
		return
	}
	h.writePage(w, r, http.StatusOK, form)
}

// PostSubmit handles POST /submit. Any field values in the body are applied as
// changes before validating. 422 when a field fails, 200 with the summary otherwise.
func (h *Handler) PostSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORM", "request body is not a valid form")
		return
	}
	values := make(map[contact.Field]string)
	for key, vs := range r.PostForm {
		field, err := contact.ParseField(key)
		if err != nil || len(vs) == 0 {
			continue
		}
		values[field] = vs[0]
	}

	id := h.sessionID(w, r)
	form, ok, err := h.sessions.Submit(r.Context(), id, values)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	h.writePage(w, r, status, form)
}

// sessionID returns the request's session id, issuing a new cookie when absent or malformed.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && session.ValidID(c.Value) {
		return c.Value
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// writePage renders into a buffer first so template failures become a clean 500.
func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, status int, form *contact.Form) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, form); err != nil {
		loggerFromRequest(r, h.logger).Error("render page", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "unable to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) writeFragment(w http.ResponseWriter, r *http.Request, form *contact.Form, field contact.Field) {
	var buf bytes.Buffer
	if err := h.renderer.FieldError(&buf, form, field); err != nil {
		loggerFromRequest(r, h.logger).Error("render fragment", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "unable to render fragment")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	var storeErr error
	if h.healthConfig != nil && h.healthConfig.StorePing != nil {
		storeErr = h.healthConfig.StorePing()
		if storeErr == nil {
			checks["sessionStore"] = "healthy"
		} else {
			checks["sessionStore"] = "unhealthy"
		}
	}
	result := h.computeHealthStatus(storeErr)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":        result.status,
		"service":       observability.ServiceName,
		"version":       "dev",
		"checks":        checks,
		"uptimeSeconds": int64(lifecycle.Uptime(time.Now()).Seconds()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > session store unreachable > overloaded > healthy.
// storeErr is the result of this request's single store ping.
func (h *Handler) computeHealthStatus(storeErr error) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if storeErr != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "session_store_unreachable"}
	}
	if overload.Overloaded(h.healthConfig.OverloadWindow, h.healthConfig.RateLimitRPS, h.healthConfig.OverloadThresholdPct) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationID(r),
		},
	})
}

// writeSessionError writes 503 for session store failures and logs the cause.
func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "Unable to load or save the form")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Error("session store", zap.Error(err))
	}
}

func correlationID(r *http.Request) string {
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		return v
	}
	return ""
}

func loggerFromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
