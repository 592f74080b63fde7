package middlewares

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"checkin/utils"
)

// DegradedHeader marks a response built from a fallback after a storage
// failure. Such responses are never cached.
const DegradedHeader = "X-Degraded"

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CacheKeyFrom maps a GET to "cache:<namespace>:<hash>". The namespace is the
// first path segment so that a write can purge it with utils.CacheInvalidator.
// Anything outside the events and people trees is not cached.
func CacheKeyFrom(c *gin.Context) (key, namespace string) {
	path := c.FullPath()
	if c.Request.Method != "GET" || path == "" {
		return "", ""
	}
	switch {
	case path == "/events" || strings.HasPrefix(path, "/events/"):
		namespace = utils.CacheEvents
	case path == "/people" || strings.HasPrefix(path, "/people/"):
		namespace = utils.CachePeople
	default:
		return "", ""
	}
	return "cache:" + namespace + ":" + sha1Hex("GET|"+c.Request.URL.Path+"|"+c.Request.URL.RawQuery), namespace
}

// ResponseCache serves 2xx GET responses out of Redis. When Redis is
// unreachable requests pass through uncached.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, _ := CacheKeyFrom(c)
		if key == "" || rdb == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				return
			}
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = bw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		status := bw.Status()
		if status < 200 || status >= 300 || bw.Header().Get(DegradedHeader) != "" {
			return
		}
		item := cachedBody{Status: status, Header: bw.Header().Clone(), Body: bw.buf.Bytes()}
		delete(item.Header, "X-Cache")

		var o bytes.Buffer
		if err := gob.NewEncoder(&o).Encode(item); err == nil {
			_ = rdb.Set(ctx, key, o.Bytes(), ttl).Err()
		}
	}
}

type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
