package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valora/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func TestNewRouter_EveryV1RouteNeedsKey(t *testing.T) {
	// Services stay nil: a request that gets past the key check would panic.
	router := NewRouter(&Services{}, "router-key")

	var v1 int
	for _, route := range router.Routes() {
		if !strings.HasPrefix(route.Path, "/api/v1/") {
			continue
		}
		v1++
		t.Run(route.Method+" "+route.Path, func(t *testing.T) {
			for _, key := range []string{"", "not-the-key"} {
				req := httptest.NewRequest(route.Method, route.Path, http.NoBody)
				if key != "" {
					req.Header.Set("X-API-Key", key)
				}
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				assert.Equal(t, http.StatusUnauthorized, rec.Code, "key %q", key)
				assert.Contains(t, rec.Body.String(), "INVALID_API_KEY")
			}
		})
	}
	require.Equal(t, 8, v1, "pipeline and read routes registered under /api/v1")
}

func TestNewRouter_OpenRoutes(t *testing.T) {
	router := NewRouter(&Services{}, "router-key")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
}
