package devreset

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	store.Put(context.Background(), "a@x.com", "tok-1", time.Now().UTC().Add(time.Hour))
	r := gin.New()
	r.GET("/dev/password-reset-token", Handler(store))

	testCases := []struct {
		name  string
		query string
		want  int
	}{
		{"found", "?email=a@x.com", http.StatusOK},
		{"missing", "?email=b@x.com", http.StatusNotFound},
		{"no email", "", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dev/password-reset-token"+tc.query, nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want != http.StatusOK {
				return
			}
			var body struct {
				Data struct {
					Token string `json:"token"`
					Note  string `json:"note"`
				} `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.Token != "tok-1" || body.Data.Note != devNote {
				t.Errorf("data = %+v", body.Data)
			}
		})
	}
}
