package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kefline/student-hub/internal/server/interceptors"
	"github.com/kefline/student-hub/internal/user/domain"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	err   error
	calls []int
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.byID[id], nil
}

func (m *memUsers) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, limit, offset)
	var all []*domain.User
	for _, u := range m.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func newUsers() *memUsers {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &memUsers{byID: map[string]*domain.User{
		"u1": {ID: "u1", Email: "a@x.com", PasswordHash: "hash", Role: domain.RoleStudent, IsActive: true, CreatedAt: now},
		"u2": {ID: "u2", Email: "b@x.com", PasswordHash: "hash", Role: domain.RoleAdmin, IsActive: true, CreatedAt: now},
	}}
}

func newRouter(h *Handler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Request = c.Request.WithContext(interceptors.WithIdentity(c.Request.Context(), userID, "a@x.com", "student"))
		}
	})
	r.GET("/api/users/me", h.Me)
	r.GET("/api/users", h.List)
	r.GET("/api/users/:id", h.Get)
	return r
}

func serve(r *gin.Engine, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHandler_Me(t *testing.T) {
	rec, body := serve(newRouter(NewHandler(newUsers(), nil), "u1"), "/api/users/me")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]interface{})
	if data["email"] != "a@x.com" {
		t.Errorf("email = %v", data["email"])
	}
	if _, leaked := data["passwordHash"]; leaked {
		t.Error("response must not include the password hash")
	}
}

func TestHandler_MeUnauthenticated(t *testing.T) {
	rec, _ := serve(newRouter(NewHandler(newUsers(), nil), ""), "/api/users/me")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandler_Get(t *testing.T) {
	testCases := []struct {
		name   string
		users  *memUsers
		target string
		want   int
	}{
		{"found", newUsers(), "/api/users/u2", http.StatusOK},
		{"missing", newUsers(), "/api/users/nope", http.StatusNotFound},
		{"store error", &memUsers{err: errors.New("db down")}, "/api/users/u1", http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := serve(newRouter(NewHandler(tc.users, nil), "admin"), tc.target)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestHandler_List(t *testing.T) {
	users := newUsers()
	r := newRouter(NewHandler(users, nil), "admin")

	rec, body := serve(r, "/api/users?limit=1&offset=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := body["data"].(map[string]interface{})["users"].([]interface{})
	if len(list) != 1 || list[0].(map[string]interface{})["id"] != "u2" {
		t.Errorf("users = %v", list)
	}

	rec, _ = serve(r, "/api/users?limit=1000")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := users.calls[len(users.calls)-2]; got != maxPageSize {
		t.Errorf("limit = %d, want capped at %d", got, maxPageSize)
	}

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1"} {
		if rec, _ := serve(r, "/api/users?"+q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}
