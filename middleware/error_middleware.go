package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"conhub/utils/errors"
	"conhub/utils/logger"
)

// ErrorMiddleware recovers panics and answers with a 500 JSON error
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Panic recovered")
					WriteError(w, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON {"error": ...} response
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) {
		apiErr = errors.Wrap(err, "UNKNOWN_ERROR", "Unexpected error", errors.ErrInternal.Status)
	}

	body := *apiErr
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error().Str("code", apiErr.Code).Str("details", apiErr.Details).Msg(apiErr.Message)
		// Internal details stay in the log.
		body.Details = ""
	}

	WriteJSON(w, apiErr.Status, body)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to encode response")
	}
}
