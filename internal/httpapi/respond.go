package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rbeccah/airtable/internal/griderr"
	"github.com/rbeccah/airtable/internal/logging"
)

// envelope is the uniform response wrapper. Success responses carry data,
// failures carry an error message; never both.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Storage details stay in the logs, not the response body.
		logging.FromContext(ctx).Error("request failed", "error", err)
		msg = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &apiError{Message: msg}})
}

func statusFor(err error) int {
	var badReq *badRequestError
	switch {
	case griderr.NotFound(err):
		return http.StatusNotFound
	case errors.Is(err, griderr.ErrInvalidCursor),
		errors.Is(err, griderr.ErrInvalidFilterCondition),
		errors.Is(err, griderr.ErrMissingRequiredField),
		errors.As(err, &badReq):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &badRequestError{msg: "invalid request body: " + err.Error()}
	}
	return nil
}

// badRequestError marks body decode failures so statusFor maps them to 400.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }
