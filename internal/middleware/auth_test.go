package middleware

import (
	"context"
	"enliven_backend/internal/model"
	"enliven_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "middleware-test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		util.Success(c, gin.H{"id": util.GetUserFromContext(c).UserID})
	})
	return r
}

func TestAuthMiddlewareTokenSources(t *testing.T) {
	token, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 42}, Email: "a@b.c"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	r := newAuthRouter()

	cases := map[string]func(*http.Request){
		"bearer": func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) },
		"cookie": func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "token", Value: token}) },
		"query":  func(req *http.Request) { req.URL.RawQuery = "token=" + token },
	}
	for name, apply := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		apply(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", name, w.Code)
		}
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	other, _ := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 1}}, "another-secret", time.Hour)
	expired, _ := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 1}}, testSecret, -time.Minute)
	r := newAuthRouter()

	for name, header := range map[string]string{"missing": "", "wrong secret": "Bearer " + other, "expired": "Bearer " + expired, "garbage": "Bearer abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, w.Code)
		}
	}
}

type recordingRepo struct {
	seen chan uint
}

func (r *recordingRepo) TouchLastSeen(_ context.Context, userID uint, _ time.Time) error {
	r.seen <- userID
	return nil
}

func TestActivityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &recordingRepo{seen: make(chan uint, 1)}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", &util.Claims{UserID: 7})
		c.Next()
	}, ActivityMiddleware(repo))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	select {
	case id := <-repo.seen:
		if id != 7 {
			t.Fatalf("touched user %d, want 7", id)
		}
	case <-time.After(time.Second):
		t.Fatal("last seen was not updated")
	}
}
