package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// storedPage is a finished response kept for replay.
type storedPage struct {
	status int
	header http.Header
	body   []byte
}

// teeWriter copies everything written to the response into a buffer so a
// successful page can be stored after the handler returns.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache replays stored GET responses keyed by request URI. Attach it only
// to routes whose responses are side-effect free: a cached poll would
// silently skip cursor advancement.
func Cache(pages *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		key := c.Request.RequestURI

		if hit, ok := pages.Get(key); ok {
			page := hit.(storedPage)
			for k, v := range page.header {
				c.Writer.Header()[k] = v
			}
			c.Writer.WriteHeader(page.status)
			c.Writer.Write(page.body)
			c.Abort()
			return
		}

		tee := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tee
		c.Next()

		// Only successful pages are worth replaying.
		if status := tee.Status(); status >= 200 && status < 300 {
			pages.Set(key, storedPage{
				status: status,
				header: tee.Header().Clone(),
				body:   tee.buf.Bytes(),
			}, ttl)
		}
	}
}
