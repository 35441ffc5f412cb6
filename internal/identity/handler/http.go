// Package handler serves the account routes under /api/users.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/identity/service"
	"github.com/kefline/student-hub/internal/platform/response"
	"github.com/kefline/student-hub/internal/server/interceptors"
	sessiondomain "github.com/kefline/student-hub/internal/session/domain"
	sessionservice "github.com/kefline/student-hub/internal/session/service"
	userdomain "github.com/kefline/student-hub/internal/user/domain"
	userhandler "github.com/kefline/student-hub/internal/user/handler"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role" binding:"omitempty,role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// authResponse is returned by register, login and refresh-token.
type authResponse struct {
	User                  userhandler.UserResponse `json:"user"`
	AccessToken           string                   `json:"accessToken"`
	RefreshToken          string                   `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time                `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time                `json:"refreshTokenExpiresAt"`
}

// Handler serves the identity routes.
type Handler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewHandler returns an identity handler. logger may be nil.
func NewHandler(auth *service.AuthService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: auth, logger: logger}
}

// Register handles POST /api/users/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      userdomain.Role(req.Role),
	}, clientContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, toAuthResponse(res))
}

// Login handles POST /api/users/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, clientContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toAuthResponse(res))
}

// RefreshToken handles POST /api/users/refresh-token.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, clientContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, toAuthResponse(res))
}

// Logout handles POST /api/users/logout. An optional refreshToken limits it to one session.
func (h *Handler) Logout(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	// The body is optional. Chunked requests report ContentLength -1, so bind whenever a body exists.
	var req logoutRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	if err := h.auth.Logout(c.Request.Context(), userID, req.RefreshToken); err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, "logged out")
}

// LogoutAll handles POST /api/users/logout-all.
func (h *Handler) LogoutAll(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.auth.LogoutAll(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, "logged out from all devices")
}

// ForgotPassword handles POST /api/users/forgot-password. The reply does not reveal whether
// the account exists; resetToken is present only in dev reset mode.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bind(c, &req) {
		return
	}
	token, err := h.auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	data := gin.H{"message": "if the account exists, a password reset link has been sent"}
	if token != "" {
		data["resetToken"] = token
	}
	response.OK(c, data)
}

// ResetPassword handles POST /api/users/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, "password has been reset")
}

// ChangePassword handles POST /api/users/change-password.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, "password changed")
}

// fail maps service errors to responses. Unknown errors are store failures.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrInvalidResetToken):
		response.BadRequest(c, err.Error())
	case errors.Is(err, sessionservice.ErrTokenInvalid), errors.Is(err, sessionservice.ErrTokenRevokedOrUnknown):
		response.Unauthorized(c, sessionservice.ErrTokenRevokedOrUnknown.Error())
	case errors.Is(err, sessionservice.ErrUserNotFound):
		response.Unauthorized(c, err.Error())
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c)
	}
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, validationMessage(err))
		return false
	}
	return true
}

func callerID(c *gin.Context) (string, bool) {
	userID, ok := interceptors.GetUserID(c.Request.Context())
	if !ok || userID == "" {
		response.Unauthorized(c, "")
		return "", false
	}
	return userID, true
}

// clientContext captures session provenance from the request.
func clientContext(c *gin.Context) sessiondomain.ClientContext {
	return sessiondomain.ClientContext{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Platform:  strings.Trim(c.GetHeader("Sec-CH-UA-Platform"), `"`),
	}
}

func toAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{
		User:                  userhandler.ToResponse(res.User),
		AccessToken:           res.Tokens.AccessToken,
		RefreshToken:          res.Tokens.RefreshToken,
		AccessTokenExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshTokenExpiresAt: res.Tokens.RefreshExpiresAt,
	}
}
