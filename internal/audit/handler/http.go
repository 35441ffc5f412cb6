// Package handler serves a user's own audit trail.
package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/audit/domain"
	"github.com/kefline/student-hub/internal/platform/response"
	"github.com/kefline/student-hub/internal/server/interceptors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// LogReader lists a user's audit events, newest first.
type LogReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.AuditLog, error)
}

// LogResponse is the public view of an audit event.
type LogResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Handler serves the audit routes.
type Handler struct {
	logs   LogReader
	logger *zap.Logger
}

// NewHandler returns an audit handler. logger may be nil.
func NewHandler(logs LogReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, logger: logger}
}

// ListMine returns a page of the caller's audit events. Query parameters: limit (default 50, max 200), offset.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := interceptors.GetUserID(c.Request.Context())
	if !ok || userID == "" {
		response.Unauthorized(c, "")
		return
	}
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		response.BadRequest(c, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxPageSize)
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		response.BadRequest(c, "offset must be a non-negative integer")
		return
	}
	logs, err := h.logs.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("list audit logs failed", zap.String("user_id", userID), zap.Error(err))
		response.Internal(c)
		return
	}
	out := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, LogResponse{
			ID:        l.ID,
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			Metadata:  l.Metadata,
			CreatedAt: l.CreatedAt,
		})
	}
	response.OK(c, gin.H{"logs": out, "limit": limit, "offset": offset})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
