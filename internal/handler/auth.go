package handler

import (
	"net/http"
	"time"

	"github.com/osse101/FieldSync_Go/internal/auth"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,username,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse carries the bearer token and the caller's role
type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin exchanges credentials for a bearer token
// @Summary Log in
// @Description Returns a bearer token and the user's role
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ValidationErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func HandleLogin(svc auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Login"); err != nil {
			return
		}

		res, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			respondServiceError(w, r, "Login failed", err)
			return
		}

		respondJSON(w, http.StatusOK, LoginResponse{
			Message:   MsgLoggedIn,
			Token:     res.Token,
			Role:      string(res.Role),
			ExpiresAt: res.ExpiresAt,
		})
	}
}
