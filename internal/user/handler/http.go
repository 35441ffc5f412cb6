// Package handler serves the user routes: the caller's profile and the admin user directory.
package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/platform/response"
	"github.com/kefline/student-hub/internal/server/interceptors"
	"github.com/kefline/student-hub/internal/user/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserReader is the user lookup the handler needs.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// UserResponse is the public view of a user. The credential hash is never included.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	IsVerified  bool       `json:"isVerified"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ToResponse converts a domain user to its public view.
func ToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// Handler serves /api/users/me and the admin user routes.
type Handler struct {
	users  UserReader
	logger *zap.Logger
}

// NewHandler returns a user handler. logger may be nil.
func NewHandler(users UserReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, logger: logger}
}

// Me returns the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := interceptors.GetUserID(c.Request.Context())
	if !ok || userID == "" {
		response.Unauthorized(c, "")
		return
	}
	h.respondUser(c, userID)
}

// Get returns the user named by the :id path parameter.
func (h *Handler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.BadRequest(c, "user id is required")
		return
	}
	h.respondUser(c, id)
}

func (h *Handler) respondUser(c *gin.Context, id string) {
	u, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get user failed", zap.String("user_id", id), zap.Error(err))
		response.Internal(c)
		return
	}
	if u == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, ToResponse(u))
}

// List returns a page of users. Query parameters: limit (default 20, max 100), offset.
func (h *Handler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		response.BadRequest(c, "limit must be a positive integer")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		response.BadRequest(c, "offset must be a non-negative integer")
		return
	}
	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToResponse(u))
	}
	response.OK(c, gin.H{"users": out, "limit": limit, "offset": offset})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
