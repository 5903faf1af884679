package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/parityguard/internal/common"
)

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response, classifying err per the
// error taxonomy: ErrInvalidInput -> 400, ErrNotFound -> 404, anything else
// -> 500.
func WriteError(w http.ResponseWriter, err error) error {
	return WriteJSON(w, statusForErr(err), map[string]string{"message": err.Error()})
}

func statusForErr(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes r's body into dst, reporting malformed JSON as
// ErrInvalidInput so callers get a uniform 400 rather than a raw decode
// error.
func DecodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", common.ErrInvalidInput, err)
	}
	return nil
}
