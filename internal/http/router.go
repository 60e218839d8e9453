package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/corvid-labs/userd/internal/config"
	"github.com/corvid-labs/userd/internal/domain"
	"github.com/corvid-labs/userd/internal/service/user"
	"github.com/corvid-labs/userd/internal/token"
)

const healthCheckTimeout = 2 * time.Second

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	users          user.Service
	cfg            config.Config
	allowedOrigins map[string]struct{}
	dbHealth       func(context.Context) error
	handler        http.Handler
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, userSvc user.Service, cfg config.Config, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		logger:         logger,
		users:          userSvc,
		cfg:            cfg,
		allowedOrigins: make(map[string]struct{}, len(cfg.AllowedCORSOrigins)),
		dbHealth:       dbHealth,
	}
	for _, origin := range cfg.AllowedCORSOrigins {
		r.allowedOrigins[origin] = struct{}{}
	}
	r.register()
	r.handler = r.withCORS(r.mux)
	return r
}

// ServeHTTP delegates to the middleware-wrapped mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.logRequests(r.handleHealthz))
	r.mux.HandleFunc("/users/create", r.logRequests(r.handleCreateUser))
	r.mux.HandleFunc("/users/login", r.logRequests(r.handleLogin))
	r.mux.HandleFunc("/users/", r.logRequests(r.handleUsers))
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userOut is the only user representation that leaves the API. It never
// carries the password hash.
type userOut struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func toUserOut(u *domain.User) userOut {
	return userOut{ID: u.ID, Email: u.Email}
}

func (r *Router) handleCreateUser(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	payload, ok := decodeCredentials(w, req)
	if !ok {
		return
	}
	created, err := r.users.Create(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserOut(created))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	payload, ok := decodeCredentials(w, req)
	if !ok {
		return
	}
	authed, err := r.users.Authenticate(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	access, err := token.Generate(authed.ID, r.cfg.SecretKey, r.cfg.Algorithm, r.cfg.AccessTokenExpiry)
	if err != nil {
		r.logger.Error("token generation failed", "error", err, "user_id", authed.ID)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Authorization", "Bearer "+access)
	writeJSON(w, http.StatusOK, toUserOut(authed))
}

// handleUsers dispatches /users/ (list) and /users/{id} (get/update/delete).
func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/users/")
	if trimmed == "" {
		r.handleListUsers(w, req)
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	switch req.Method {
	case http.MethodGet:
		r.handleGetUser(w, req, trimmed)
	case http.MethodPut:
		r.handleUpdateUser(w, req, trimmed)
	case http.MethodDelete:
		r.handleDeleteUser(w, req, trimmed)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	users, err := r.users.List(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]userOut, 0, len(users))
	for i := range users {
		out = append(out, toUserOut(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request, id string) {
	found, err := r.users.Get(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserOut(found))
}

func (r *Router) handleUpdateUser(w http.ResponseWriter, req *http.Request, id string) {
	var payload struct {
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := r.users.Update(req.Context(), id, user.UpdateInput{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserOut(updated))
}

func (r *Router) handleDeleteUser(w http.ResponseWriter, req *http.Request, id string) {
	if err := r.users.Delete(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{"status": "down", "error": err.Error()}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func decodeCredentials(w http.ResponseWriter, req *http.Request) (credentialsPayload, bool) {
	var payload credentialsPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return credentialsPayload{}, false
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return credentialsPayload{}, false
	}
	return payload, true
}

// writeServiceError maps business outcomes to status codes; anything else
// is an unexpected storage failure.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrEmailTaken), errors.Is(err, user.ErrInvalidCredentials):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	default:
		r.logger.Error("request failed", "error", err, "path", req.URL.Path)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func (r *Router) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeDetail(w, http.StatusNotFound, "not found")
}
