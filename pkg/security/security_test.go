package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	now := time.Now()
	if !l.Allow("1.1.1.1", now) || !l.Allow("1.1.1.1", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("1.1.1.1", now) {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("2.2.2.2", now) {
		t.Fatal("other IPs have their own budget")
	}
}

func TestLimiterCleanup(t *testing.T) {
	l := NewLimiter(10, time.Second)
	now := time.Now()
	l.Allow("1.1.1.1", now)
	l.Cleanup(now.Add(30 * time.Second))
	if l.Len() != 1 {
		t.Fatal("recent visitor should be kept")
	}
	l.Cleanup(now.Add(2 * time.Minute))
	if l.Len() != 0 {
		t.Fatal("stale visitor should be removed")
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
