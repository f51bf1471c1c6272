package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NishanthRaveendran/customs-ai/internal/auth"
)

const testSecret = "unit-secret"

func authedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, p.ID)
	})
	return r
}

func mintToken(t *testing.T, id, email, secret string) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Principal{ID: id, Email: email}, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func TestAuth_BearerToken(t *testing.T) {
	r := authedRouter(t)
	tok := mintToken(t, "u1", "u1@example.com", testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	if w.Body.String() != "u1" {
		t.Fatalf("body = %q, want u1", w.Body.String())
	}
}

func TestAuth_SessionCookie(t *testing.T) {
	r := authedRouter(t)
	tok := mintToken(t, "u2", "", testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tok})
	r.ServeHTTP(w, req)

	if w.Body.String() != "u2" {
		t.Fatalf("body = %q, want u2", w.Body.String())
	}
}

func TestAuth_HeaderWinsOverCookie(t *testing.T) {
	r := authedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "header-user", "", testSecret))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: mintToken(t, "cookie-user", "", testSecret)})
	r.ServeHTTP(w, req)

	if w.Body.String() != "header-user" {
		t.Fatalf("body = %q, want header-user", w.Body.String())
	}
}

func TestAuth_AnonymousWithoutToken(t *testing.T) {
	r := authedRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Body.String() != "anonymous" {
		t.Fatalf("body = %q, want anonymous", w.Body.String())
	}
}

func TestAuth_InvalidTokenIsAnonymous(t *testing.T) {
	r := authedRouter(t)

	// Wrong secret.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "u3", "", "other-secret"))
	r.ServeHTTP(w, req)
	if w.Body.String() != "anonymous" {
		t.Fatalf("wrong-secret token should be anonymous, got %q", w.Body.String())
	}

	// Garbage token.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req2.Header.Set("Authorization", "Bearer not.a.jwt")
	r.ServeHTTP(w2, req2)
	if w2.Body.String() != "anonymous" {
		t.Fatalf("garbage token should be anonymous, got %q", w2.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer abc":     "abc",
		"Basic dXNlcg==": "",
		"Bearer":         "",
		"Bearer  abc ":   "abc",
	}
	for in, want := range cases {
		if got := bearerToken(in); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrincipalFrom_WrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(principalKey, "not-a-principal")
	if p := PrincipalFrom(c); p != nil {
		t.Fatalf("expected nil principal, got %+v", p)
	}
}
