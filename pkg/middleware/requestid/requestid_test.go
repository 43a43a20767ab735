package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Value(c)) })

	t.Run("propagates inbound id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(Header, "abc")
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc", w.Body.String())
		assert.Equal(t, "abc", w.Header().Get(Header))
	})

	t.Run("mints id when missing or oversized", func(t *testing.T) {
		for _, inbound := range []string{"", strings.Repeat("x", maxLength+1)} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if inbound != "" {
				req.Header.Set(Header, inbound)
			}
			r.ServeHTTP(w, req)
			assert.Len(t, w.Body.String(), 36)
			assert.Equal(t, w.Body.String(), w.Header().Get(Header))
		}
	})
}
