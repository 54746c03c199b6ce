package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

const maxBodyBytes = 1 << 20

type AuthHandler struct {
	engine *authcore.Engine
	logger *slog.Logger
}

func NewAuthHandler(engine *authcore.Engine, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		engine: engine,
		logger: logger,
	}
}

type registerRequest struct {
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	UserPassword string `json:"user_password"`
}

type loginRequest struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// identifier accepts both field names older clients send.
func (req loginRequest) identifier() string {
	if req.Username != "" {
		return req.Username
	}
	return req.UserID
}

// Register creates an account. With auto-login enabled the response also
// carries an access token in meta and sets the refresh cookie.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.engine.CreateAccount(r.Context(), authcore.CreateAccountRequest{
		ExternalID: req.UserID,
		Name:       req.UserName,
		Email:      req.UserEmail,
		Password:   req.UserPassword,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc := singleDoc(resource{
		Type: "user",
		ID:   res.UserID,
		Attributes: map[string]any{
			"user_id":    strings.TrimSpace(req.UserID),
			"user_email": strings.ToLower(strings.TrimSpace(req.UserEmail)),
			"user_name":  req.UserName,
		},
	}, r.URL.Path)
	if res.RefreshToken != "" {
		http.SetCookie(w, h.engine.RefreshCookie(res.RefreshToken))
		doc.Meta = map[string]any{"access_token": res.AccessToken}
	}
	writeDocument(w, http.StatusCreated, doc)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.identifier() == "" || req.Password == "" {
		writeProblem(w, r, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	pair, err := h.engine.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, h.engine.RefreshCookie(pair.RefreshToken))
	writeDocument(w, http.StatusOK, tokenDoc(pair.AccessToken, r.URL.Path))
}

// Refresh rotates the cookie's refresh token. Any client-side failure
// clears the cookie so the browser stops replaying it.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.engine.RefreshCookieName())
	if err != nil || cookie.Value == "" {
		writeProblem(w, r, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	pair, err := h.engine.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if authcore.IsUnauthorized(err) {
			http.SetCookie(w, h.engine.ClearRefreshCookie())
		}
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, h.engine.RefreshCookie(pair.RefreshToken))
	writeDocument(w, http.StatusOK, tokenDoc(pair.AccessToken, r.URL.Path))
}

// Logout revokes the cookie's session and always clears the cookie. Only a
// store failure turns into an error response.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var err error
	if cookie, cerr := r.Cookie(h.engine.RefreshCookieName()); cerr == nil && cookie.Value != "" {
		err = h.engine.Logout(r.Context(), cookie.Value)
	}

	http.SetCookie(w, h.engine.ClearRefreshCookie())
	if err != nil {
		h.logger.Error("authcore: logout failed", "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "Logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeProblem(w, r, http.StatusUnauthorized, "Missing token")
		return
	}

	user, err := h.engine.Me(r.Context(), token)
	if err != nil {
		if authcore.IsUnauthorized(err) {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		}
		h.fail(w, r, err)
		return
	}

	writeDocument(w, http.StatusOK, singleDoc(resource{
		Type: "user",
		ID:   user.UserID,
		Attributes: map[string]any{
			"user_id":    user.ExternalID,
			"user_email": user.Email,
			"user_name":  user.Name,
		},
	}, r.URL.Path))
}

func tokenDoc(accessToken, selfURL string) document {
	return singleDoc(resource{
		Type:       "token",
		ID:         "access",
		Attributes: map[string]any{"access_token": accessToken},
	}, selfURL)
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeProblem(w, r, http.StatusUnprocessableEntity, "Malformed JSON body")
		return false
	}
	return true
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("authcore: request failed", "path", r.URL.Path, "error", err)
	}
	writeProblem(w, r, status, detail)
}
