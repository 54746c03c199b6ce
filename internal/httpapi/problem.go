package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
)

const mediaTypeProblem = "application/problem+json"

// problem is an RFC 7807 problem details body.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", mediaTypeProblem)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// statusFor maps engine errors onto HTTP statuses. The detail strings never
// say which credential check failed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return http.StatusTooManyRequests, "Too many login attempts"
	case authcore.IsUnauthorized(err):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, authcore.ErrAccountExists):
		return http.StatusConflict, "Account already exists"
	case errors.Is(err, authcore.ErrAccountCreationInvalid):
		return http.StatusUnprocessableEntity, "Invalid account fields"
	case errors.Is(err, authcore.ErrPasswordPolicy):
		return http.StatusUnprocessableEntity, "Password does not meet policy"
	case errors.Is(err, authcore.ErrAccountCreationDisabled):
		return http.StatusForbidden, "Registration is disabled"
	case errors.Is(err, authcore.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
