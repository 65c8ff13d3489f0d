package server

import (
	"encoding/json"
	"net/http"

	"github.com/soundpatch/patchc/pkg/errors"
)

// errorResponse is the JSON body of every error status.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a structured error to an HTTP status and writes the
// error body. The cause chain stays server-side; clients get the code and
// the user message.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{
		Error: errorBody{
			Code:    string(code),
			Message: errors.UserMessage(err),
		},
	})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidDocument,
		errors.ErrCodeInvalidPatch,
		errors.ErrCodeInvalidSettings,
		errors.ErrCodeInvalidPlan,
		errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeUnknownKind:
		return http.StatusNotFound
	case errors.ErrCodeNotFound, errors.ErrCodePatchNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
