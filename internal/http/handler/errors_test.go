package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

func TestWriteServiceErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{fmt.Errorf("refresh: %w", service.ErrTokenExpiredOrInvalid), http.StatusUnauthorized, "TOKEN_EXPIRED_OR_INVALID"},
		{service.ErrInvalidOrExpiredToken, http.StatusBadRequest, "RESET_TOKEN_INVALID"},
		{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{service.ErrEmailAlreadyExists, http.StatusConflict, "EMAIL_ALREADY_EXISTS"},
		{service.ErrInvalidPassword, http.StatusBadRequest, "INVALID_PASSWORD"},
		{service.ErrNotificationFailed, http.StatusInternalServerError, "NOTIFICATION_FAILED"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		writeServiceError(rr, req, logger, tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: status=%d want %d", tc.err, rr.Code, tc.status)
		}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("%v: code=%q want %q", tc.err, env.Error.Code, tc.code)
		}
	}
}

func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)

	writeServiceError(rr, req, logger, errors.New("dial tcp 10.0.0.5:5432: secret host"))
	if strings.Contains(rr.Body.String(), "10.0.0.5") {
		t.Fatalf("internal detail leaked: %s", rr.Body.String())
	}
	if !strings.Contains(logs.String(), "10.0.0.5") {
		t.Fatal("expected internal detail in the log")
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"email":"a@x.com","admin":true}`,
		"empty body":    ``,
		"not json":      `email=a@x.com`,
	}
	for name, body := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst loginRequest
		if decodeJSON(rr, req, &dst) {
			t.Fatalf("%s: expected decode to fail", name)
		}
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d want 400", name, rr.Code)
		}
	}
}
