package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securedRouter(opt SecurityOptions, withRID bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if withRID {
		r.Use(RequestID())
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := securedRouter(SecurityOptions{}, false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %v", h)
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must be off by default")
	}
	if h.Get("Permissions-Policy") != "" || h.Get("Cache-Control") != "" {
		t.Fatalf("optional headers set without opt-in")
	}
}

func TestSecurityHeaders_Optional(t *testing.T) {
	r := securedRouter(SecurityOptions{NoStore: true, EnablePolicy: true}, false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	h := w.Header()
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" {
		t.Fatalf("no-store headers missing: %v", h)
	}
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %v", h)
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}
	r := securedRouter(opt, false)

	// Plain HTTP -> no HSTS.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS emitted for plain HTTP")
	}

	// Forwarded HTTPS -> HSTS with configured max-age.
	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w2, req)
	got := w2.Header().Get("Strict-Transport-Security")
	if !strings.Contains(got, "max-age=86400") {
		t.Fatalf("HSTS header = %q", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	r := securedRouter(SecurityOptions{}, true)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Request-ID") {
		t.Fatalf("Expose-Headers = %q", got)
	}
}

func TestStrconvItoa(t *testing.T) {
	cases := map[int]string{0: "0", 7: "7", 15552000: "15552000", -42: "-42"}
	for in, want := range cases {
		if got := strconvItoa(in); got != want {
			t.Errorf("strconvItoa(%d) = %q, want %q", in, got, want)
		}
	}
}
