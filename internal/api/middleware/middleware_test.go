package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func newDedupRouter(window time.Duration) *gin.Engine {
	cfg := &config.Config{DedupWindow: window}
	r := gin.New()
	r.Use(middleware.Deduplication(cfg))
	r.POST("/api/v1/conversions", okHandler)
	r.POST("/api/v1/conversions/:id/save", okHandler)
	r.POST("/api/v1/conversions/:id/steps", okHandler)
	r.POST("/api/v1/conversions/:id/ingredients/:index/select", okHandler)
	return r
}

func doPost(r *gin.Engine, path, body, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestDeduplicationBlocksRepeatedSubmit(t *testing.T) {
	r := newDedupRouter(time.Minute)
	body := `{"source":"https://youtu.be/dedup-submit"}`

	if code := doPost(r, "/api/v1/conversions", body, "10.0.0.1:1111"); code != http.StatusOK {
		t.Fatalf("first submit should pass, got %d", code)
	}
	if code := doPost(r, "/api/v1/conversions", body, "10.0.0.1:1111"); code != http.StatusTooManyRequests {
		t.Fatalf("repeated submit inside the window should be blocked, got %d", code)
	}
}

func TestDeduplicationIsPerClient(t *testing.T) {
	r := newDedupRouter(time.Minute)
	body := `{"source":"https://youtu.be/dedup-per-client"}`

	if code := doPost(r, "/api/v1/conversions", body, "10.0.0.2:1111"); code != http.StatusOK {
		t.Fatalf("first client should pass, got %d", code)
	}
	if code := doPost(r, "/api/v1/conversions", body, "10.0.0.3:1111"); code != http.StatusOK {
		t.Fatalf("a different client submitting the same source should pass, got %d", code)
	}
}

func TestDeduplicationSkipsRowEdits(t *testing.T) {
	r := newDedupRouter(time.Minute)
	body := `{"id":"ing-flour","name":"Flour"}`

	for i := 0; i < 3; i++ {
		if code := doPost(r, "/api/v1/conversions/c1/ingredients/0/select", body, "10.0.0.4:1111"); code != http.StatusOK {
			t.Fatalf("row edit %d should never be deduplicated, got %d", i, code)
		}
		if code := doPost(r, "/api/v1/conversions/c1/steps", `{"instruction":"stir"}`, "10.0.0.4:1111"); code != http.StatusOK {
			t.Fatalf("step edit %d should never be deduplicated, got %d", i, code)
		}
	}
}

func TestDeduplicationCoversSaveRoute(t *testing.T) {
	r := newDedupRouter(time.Minute)

	if code := doPost(r, "/api/v1/conversions/c2/save", "", "10.0.0.5:1111"); code != http.StatusOK {
		t.Fatalf("first save should pass, got %d", code)
	}
	if code := doPost(r, "/api/v1/conversions/c2/save", "", "10.0.0.5:1111"); code != http.StatusTooManyRequests {
		t.Fatalf("double-clicked save should be blocked, got %d", code)
	}
}

func newBodySizeRouter(limit int64) *gin.Engine {
	r := gin.New()
	r.Use(middleware.BodySizeLimit(limit))
	r.POST("/api/v1/conversions", okHandler)
	r.POST("/api/v1/conversions/:id/manual", okHandler)
	return r
}

func TestBodySizeLimitRejectsOversizedBody(t *testing.T) {
	r := newBodySizeRouter(64)

	big := strings.Repeat("x", 128)
	if code := doPost(r, "/api/v1/conversions", big, "10.0.1.1:1111"); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body should be rejected, got %d", code)
	}
	if code := doPost(r, "/api/v1/conversions", "small", "10.0.1.1:1111"); code != http.StatusOK {
		t.Fatalf("small body should pass, got %d", code)
	}
}

func TestBodySizeLimitAllowsLargerTranscripts(t *testing.T) {
	r := newBodySizeRouter(64)

	transcript := strings.Repeat("t", 128)
	if code := doPost(r, "/api/v1/conversions/c3/manual", transcript, "10.0.1.2:1111"); code != http.StatusOK {
		t.Fatalf("transcript route should allow bodies above the base limit, got %d", code)
	}

	huge := strings.Repeat("t", 64*9)
	if code := doPost(r, "/api/v1/conversions/c3/manual", huge, "10.0.1.2:1111"); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("transcript route still has a ceiling, got %d", code)
	}
}

func newRateLimitRouter(requests int, window time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RateLimit(requests, window))
	r.POST("/api/v1/conversions", okHandler)
	r.GET("/api/v1/conversions/:id", okHandler)
	r.GET("/health", okHandler)
	return r
}

func TestRateLimitBlocksExcessMutations(t *testing.T) {
	r := newRateLimitRouter(1, time.Minute)

	if code := doPost(r, "/api/v1/conversions", `{"source":"a"}`, "10.0.2.1:1111"); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := doPost(r, "/api/v1/conversions", `{"source":"b"}`, "10.0.2.1:1111"); code != http.StatusTooManyRequests {
		t.Fatalf("request beyond the budget should be blocked, got %d", code)
	}
}

func TestRateLimitExemptsPollingAndHealth(t *testing.T) {
	r := newRateLimitRouter(1, time.Minute)

	// 耗盡令牌
	doPost(r, "/api/v1/conversions", `{"source":"a"}`, "10.0.2.2:1111")
	doPost(r, "/api/v1/conversions", `{"source":"b"}`, "10.0.2.2:1111")

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversions/c4", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status polling %d should never be rate limited, got %d", i, w.Code)
		}

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("health probe %d should never be rate limited, got %d", i, w.Code)
		}
	}
}
