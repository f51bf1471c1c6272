package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFail_WritesEnvelopeAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-77")
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Failed to fetch chat")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if resp.RequestID != "rid-77" || resp.Code != ErrCodeNotFound || resp.Message != "Failed to fetch chat" {
		t.Fatalf("envelope = %+v", resp)
	}
}

func TestFail_ServerErrorLogsWithoutPanicking(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Fail(c, http.StatusInternalServerError, ErrCodeInternal, "boom")
	if !c.IsAborted() {
		t.Fatalf("context not aborted")
	}
}

func TestOkAndNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusOK, gin.H{"a": 1}) })
	r.GET("/none", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("ok: %d %q", w.Code, w.Body.String())
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/none", nil))
	if w2.Code != http.StatusNoContent || w2.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w2.Code, w2.Body.String())
	}
}
