package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sandeepkv93/elearning-auth-service/internal/http/response"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "malformed request body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		case errors.As(err, &maxErr):
			msg = "request body too large"
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", msg, nil)
		return false
	}
	return true
}
