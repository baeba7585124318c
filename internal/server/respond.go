package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/editor"
	"prompt-image-editor/internal/export"
	"prompt-image-editor/internal/imgio"
	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/prompt"
)

type errorResponse struct {
	Error   string        `json:"error"`
	Notices []core.Notice `json:"notices,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoSourceImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAlreadyApplied),
		errors.Is(err, core.ErrNotApplied),
		errors.Is(err, core.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnsupportedOperation),
		errors.Is(err, ops.ErrInvalidParameter),
		errors.Is(err, core.ErrEmptyPrompt),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, imgio.ErrUnsupportedFormat),
		errors.Is(err, editor.ErrInvalidImage),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, prompt.ErrBackendUnavailable),
		errors.Is(err, prompt.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, notices []core.Notice) {
	writeJSON(w, status, errorResponse{Error: msg, Notices: notices})
}

// fail writes err with its mapped status. Domain errors carry the
// user-facing message.
func fail(w http.ResponseWriter, err error, notices []core.Notice) {
	status := statusFor(err)
	msg := core.Message(err)
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg, notices)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errors.Join(errBadRequest, err)
	}
	return nil
}
