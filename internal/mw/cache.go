package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// snapshot is a stored 200 response.
type snapshot struct {
	contentType string
	body        []byte
}

// recorder copies everything written to the client.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from memory for ttl. A successful
// request with any other method flushes the cache. Clients can bypass it
// with "Cache-Control: no-cache".
func Cache(entries *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if s := c.Writer.Status(); s >= 200 && s < 300 {
				entries.Flush()
			}
			return
		}

		key := c.Request.URL.RequestURI()
		if c.GetHeader("Cache-Control") != "no-cache" {
			if v, ok := entries.Get(key); ok {
				hit := v.(snapshot)
				c.Header("X-Cache", "HIT")
				c.Data(http.StatusOK, hit.contentType, hit.body)
				c.Abort()
				return
			}
		}

		c.Header("X-Cache", "MISS")
		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		if rec.Status() == http.StatusOK {
			entries.Set(key, snapshot{
				contentType: rec.Header().Get("Content-Type"),
				body:        bytes.Clone(rec.buf.Bytes()),
			}, ttl)
		}
	}
}
