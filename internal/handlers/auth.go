package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/xelth-com/eckclaims/internal/middleware"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/users"
	"github.com/xelth-com/eckclaims/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordRequest represents a password change
type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *Router) setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.Config.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// callerIsAdmin reports whether the request carries a valid admin session
func (r *Router) callerIsAdmin(req *http.Request) bool {
	token := middleware.TokenFromRequest(req)
	if token == "" {
		return false
	}
	claims, err := utils.ValidateToken(token, r.Config.JWTSecret)
	return err == nil && claims.Role == models.RoleAdmin
}

// signup handles account creation
func (r *Router) signup(w http.ResponseWriter, req *http.Request) {
	var in users.SignupInput
	if !decodeJSON(w, req, &in) {
		return
	}

	user, err := r.Users.Signup(req.Context(), in, r.callerIsAdmin(req))
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		respondError(w, http.StatusBadRequest, "Username already exists")
		return
	case errors.Is(err, users.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("signup failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created",
		"user":    user,
	})
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if !decodeJSON(w, req, &loginReq) {
		return
	}

	user, err := r.Users.Authenticate(req.Context(), loginReq.Username, loginReq.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials or user not found.")
		return
	}
	if err != nil {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("login failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := utils.GenerateToken(user.Username, user.Role, r.Config.JWTSecret, r.Config.Session.TTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	r.setSessionCookie(w, token, r.Config.Session.TTL)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Login successful",
		"username": user.Username,
		"role":     user.Role,
		"token":    token,
	})
}

// logout clears the session cookie
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	r.setSessionCookie(w, "", -time.Second)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// me returns the current actor
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	actor, _ := middleware.ActorFrom(req.Context())
	respondJSON(w, http.StatusOK, actor)
}

// changePassword updates the current actor's password
func (r *Router) changePassword(w http.ResponseWriter, req *http.Request) {
	var body PasswordRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	actor, _ := middleware.ActorFrom(req.Context())

	err := r.Users.ChangePassword(req.Context(), actor.Username, body.CurrentPassword, body.NewPassword)
	switch {
	case errors.Is(err, users.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "Current password and new password are required.")
	case errors.Is(err, users.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid current password.")
	case errors.Is(err, users.ErrNotFound):
		respondError(w, http.StatusNotFound, "User not found.")
	case err != nil:
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("password update failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully!"})
	}
}
