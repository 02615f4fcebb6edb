package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
	"github.com/iliyamo/ai-travel-planner/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: logger.OrNop(log)}
}

// ----- DTOs -----

type profileReq struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	DateOfBirth *Date   `json:"dateOfBirth"`
	Gender      *string `json:"gender"`
}

func (r profileReq) fields() service.ProfileFields {
	return service.ProfileFields{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Country:     r.Country,
		City:        r.City,
		DateOfBirth: r.DateOfBirth.Ptr(),
		Gender:      r.Gender,
	}
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	profileReq
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// sessionResp is the payload of register, login and refresh.
type sessionResp struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Token        string               `json:"token,omitempty"`
	RefreshToken string               `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time           `json:"expiresAt,omitempty"`
	User         *service.UserProfile `json:"user,omitempty"`
}

func newSessionResp(msg string, s *service.Session) sessionResp {
	exp := s.ExpiresAt
	user := s.User
	return sessionResp{
		Success:      true,
		Message:      msg,
		Token:        s.Token,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    &exp,
		User:         &user,
	}
}

// ----- handlers -----

// Register creates an account and returns a session (201).
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Register(ctx, service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		ProfileFields: req.fields(),
	})
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(http.StatusCreated, newSessionResp("Registration successful", sess))
}

// Login returns a session for valid credentials.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResp("Login successful", sess))
}

// RefreshToken rotates a refresh token into a new session.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(http.StatusOK, newSessionResp("Token refreshed successfully", sess))
}

// Logout revokes a refresh token. It succeeds for unknown tokens too.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, req.RefreshToken); err != nil {
		h.Log.Error("logout failed", zap.Error(err))
		return fail(c, http.StatusBadRequest, "Logout failed")
	}
	return ok(c, "Logout successful")
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Auth.GetUserByID(ctx, uid)
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateMe overwrites the caller's profile fields.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Auth.UpdateProfile(ctx, uid, req.fields())
	if err != nil {
		return h.authError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteMe removes the caller's account and every session of it.
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.DeleteUser(ctx, uid); err != nil {
		return h.authError(c, err)
	}
	return ok(c, "Account deleted")
}

// ChangePassword verifies the current password and stores the new one.
// Every failure is a 400.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.Auth.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		return ok(c, "Password changed successfully")
	case errors.Is(err, service.ErrValidation):
		return fail(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrIncorrectPassword), errors.Is(err, service.ErrUserNotFound):
		return fail(c, http.StatusBadRequest, "Failed to change password")
	default:
		h.Log.Error("change password failed", zap.Uint64("user_id", uid), zap.Error(err))
		return fail(c, http.StatusBadRequest, "Failed to change password")
	}
}

// authError maps auth core failures onto the HTTP surface.
func (h *AuthHandler) authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fail(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrDuplicateEmail):
		return fail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrAccountDeactivated):
		return fail(c, http.StatusUnauthorized, "Account is deactivated")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return fail(c, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, service.ErrUserNotFound):
		return fail(c, http.StatusNotFound, "User not found")
	}
	h.Log.Error("auth request failed", zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, msgInternal)
}
