package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"loan-tracker/internal/api/handler/dto"
	mw "loan-tracker/internal/api/middleware"
	"loan-tracker/internal/domain/user"
	"loan-tracker/internal/pkg/apperrors"
)

type AuthHandler struct {
	service user.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(s user.AuthService, l *slog.Logger) *AuthHandler {
	if s == nil {
		panic("auth service cannot be nil")
	}
	return &AuthHandler{
		service: s,
		logger:  l.With("component", "AuthHandler"),
	}
}

// Login exchanges credentials for a bearer token.
//
// @Summary Log in
// @Description Verifies the credentials and opens a session. Repeated failures lock the account for a while.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse "Session opened"
// @Failure 400 {object} dto.ErrorResponse "Missing username or password"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 423 {object} dto.ErrorResponse "Account locked"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}

// Logout revokes the session behind the bearer token.
//
// @Summary Log out
// @Tags Authentication
// @Success 204 "Session revoked"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Router /auth/logout [post]
// @Security BearerAuth
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := mw.TokenFromContext(r.Context())
	if !ok {
		token, ok = mw.BearerToken(r)
	}
	if !ok {
		respondError(w, fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthorized))
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify returns the user behind the bearer token.
//
// @Summary Verify session
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Router /auth/verify [get]
// @Security BearerAuth
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if u, ok := mw.UserFromContext(r.Context()); ok {
		respondJSON(w, http.StatusOK, dto.NewUserResponse(u))
		return
	}

	token, ok := mw.BearerToken(r)
	if !ok {
		respondError(w, fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthorized))
		return
	}
	u, err := h.service.Verify(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// ListUsers lists the accounts that can log in.
//
// @Summary List users
// @Tags Authentication
// @Produce json
// @Success 200 {array} dto.UserResponse
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users [get]
// @Security BearerAuth
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	resp := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, dto.NewUserResponse(u))
	}
	respondJSON(w, http.StatusOK, resp)
}
