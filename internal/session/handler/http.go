// Package handler serves session listing and administrative revocation.
package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/platform/response"
	"github.com/kefline/student-hub/internal/server/interceptors"
	"github.com/kefline/student-hub/internal/session/domain"
	"github.com/kefline/student-hub/internal/session/service"
)

// SessionLister lists a user's active sessions.
type SessionLister interface {
	ListActive(ctx context.Context, userID string) ([]*domain.Session, error)
}

// UserSessionRevoker revokes every session of a user on behalf of an administrator.
type UserSessionRevoker interface {
	RevokeUserSessions(ctx context.Context, actorID, targetUserID string) (int64, error)
}

// SessionResponse is the public view of a session. The token and its hash are never exposed.
type SessionResponse struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Handler serves the session routes.
type Handler struct {
	sessions SessionLister
	revoker  UserSessionRevoker
	logger   *zap.Logger
}

// NewHandler returns a session handler. logger may be nil.
func NewHandler(sessions SessionLister, revoker UserSessionRevoker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, revoker: revoker, logger: logger}
}

// ListMine returns the caller's active sessions.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := interceptors.GetUserID(c.Request.Context())
	if !ok || userID == "" {
		response.Unauthorized(c, "")
		return
	}
	sessions, err := h.sessions.ListActive(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.String("user_id", userID), zap.Error(err))
		response.Internal(c)
		return
	}
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionResponse{
			ID:        s.ID,
			IP:        s.Client.IP,
			Browser:   s.Client.UserAgent,
			Platform:  s.Client.Platform,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	response.OK(c, gin.H{"sessions": out})
}

// RevokeForUser revokes every session of the user named by :id.
func (h *Handler) RevokeForUser(c *gin.Context) {
	actorID, _ := interceptors.GetUserID(c.Request.Context())
	target := strings.TrimSpace(c.Param("id"))
	if target == "" {
		response.BadRequest(c, "user id is required")
		return
	}
	n, err := h.revoker.RevokeUserSessions(c.Request.Context(), actorID, target)
	if errors.Is(err, service.ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("admin revoke failed", zap.String("target_user_id", target), zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"revoked": n})
}
