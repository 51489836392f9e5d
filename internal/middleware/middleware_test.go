package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tcg_inventory_v1/pkg/net"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCredentials(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"自定义头", map[string]string{HeaderAuthorizationToken: " tok-1 "}, "tok-1"},
		{"Bearer", map[string]string{"Authorization": "Bearer tok-2"}, "tok-2"},
		{"自定义头优先", map[string]string{HeaderAuthorizationToken: "a", "Authorization": "Bearer b"}, "a"},
		{"无令牌", map[string]string{"Authorization": "Basic xyz"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			var got string
			r.GET("/", Credentials(), func(c *gin.Context) {
				got = net.TokenFromContext(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("status = %d, want 204", w.Code)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCooldownLimiter_Check(t *testing.T) {
	limiter := NewCooldownLimiter()
	key := SessionKey("s1", ActionUpload)

	if !limiter.Check(key, time.Hour).Allowed {
		t.Fatal("首次调用应允许")
	}
	result := limiter.Check(key, time.Hour)
	if result.Allowed || result.RetryAfter <= 0 {
		t.Errorf("冷却期内应拒绝: %+v", result)
	}
	if !limiter.Check(SessionKey("s2", ActionUpload), time.Hour).Allowed {
		t.Errorf("不同会话互不影响")
	}

	limiter.ResetSession("s1")
	if !limiter.Check(key, time.Hour).Allowed {
		t.Errorf("重置后应允许")
	}
}

func TestSessionCooldown(t *testing.T) {
	limiter := NewCooldownLimiter()
	r := gin.New()
	r.POST("/forms/:id/upload", SessionCooldown(limiter, ActionUpload, time.Hour), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	perform := func(id string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/forms/"+id+"/upload", nil))
		return w.Code
	}

	if code := perform("a"); code != http.StatusOK {
		t.Errorf("首次 status = %d, want 200", code)
	}
	if code := perform("a"); code != http.StatusTooManyRequests {
		t.Errorf("重复 status = %d, want 429", code)
	}
	if code := perform("b"); code != http.StatusOK {
		t.Errorf("其他会话 status = %d, want 200", code)
	}
}
