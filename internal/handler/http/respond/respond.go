// Package respond provides helpers for writing JSON HTTP responses, with
// sanitization so internal error details never reach the client.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// JSON writes a JSON response with the given status code and body.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code), slog.Any("error", err))
		}
	}
}

// Error writes a JSON error response, exposing err's message verbatim.
// Only safe for errors already known not to carry internal details.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

var safeErrorSubstrings = []string{
	"required", "invalid", "not found", "already exists",
	"must be", "cannot be", "too long", "too short", "locked",
}

// SafeError sanitizes err before returning it to the client. Validation-style
// errors are passed through; anything else (and every 5xx) is logged and
// replaced with a generic message.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	lowerMsg := strings.ToLower(msg)
	isSafe := code < 500
	if isSafe {
		isSafe = false
		for _, safe := range safeErrorSubstrings {
			if strings.Contains(lowerMsg, safe) {
				isSafe = true
				break
			}
		}
	}

	if isSafe {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Default().Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.Any("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": "internal server error"})
}

// AppError carries a user-facing message separate from the internal error
// that caused it, so handlers can log the latter and return only the former.
type AppError struct {
	UserMsg string
	Err     error
	Code    int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMsg
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}

// SafeErrorV2 returns an AppError's UserMsg if err wraps one, logging the
// underlying error; otherwise it falls back to SafeError.
func SafeErrorV2(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			slog.Default().Error("application error",
				slog.String("status", http.StatusText(appErr.Code)),
				slog.Int("code", appErr.Code),
				slog.String("user_message", appErr.UserMsg),
				slog.Any("error", SanitizeError(appErr.Err)))
		}
		JSON(w, appErr.Code, map[string]string{"error": appErr.UserMsg})
		return
	}

	SafeError(w, code, err)
}
