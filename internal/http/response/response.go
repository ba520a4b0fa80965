package response

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, envelope{Success: true, Data: data})
}

// Tokens writes a body that carries credentials. Such responses must never
// be stored by a browser or an intermediary cache.
func Tokens(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	JSON(w, r, status, data)
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, r, status, envelope{Error: &apiError{Code: code, Message: message, Details: details}})
}

func write(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	env.Meta = buildMeta(r)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get(chimiddleware.RequestIDHeader)
	}
	if id == "" {
		id = "req-unknown"
	}
	m := meta{RequestID: id, Timestamp: time.Now().UTC()}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		m.TraceID = sc.TraceID().String()
	}
	return m
}
