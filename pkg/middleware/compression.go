package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Compression levels
const (
	DefaultCompression = gzip.DefaultCompression
	BestSpeed          = gzip.BestSpeed
	BestCompression    = gzip.BestCompression
)

// gzipWriter compresses the body unless the status forbids one.
type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
	bypass bool
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	if g.bypass {
		return g.ResponseWriter.Write(data)
	}
	return g.writer.Write(data)
}

func (g *gzipWriter) WriteHeader(code int) {
	if code == http.StatusNoContent || code == http.StatusNotModified {
		g.bypass = true
		g.Header().Del("Content-Encoding")
	}
	g.Header().Del("Content-Length")
	g.ResponseWriter.WriteHeader(code)
}

// Compression gzips responses at the given level for clients that accept it.
// Unknown levels fall back to DefaultCompression.
func Compression(level int) gin.HandlerFunc {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = DefaultCompression
	}
	pool := &sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, level)
			return gz
		},
	}

	return func(c *gin.Context) {
		if !shouldCompress(c.Request) {
			c.Next()
			return
		}

		gz := pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Writer.Header().Add("Vary", "Accept-Encoding")

		w := &gzipWriter{ResponseWriter: c.Writer, writer: gz}
		c.Writer = w
		defer func() {
			if w.bypass {
				gz.Reset(io.Discard)
			} else {
				_ = gz.Close()
			}
			pool.Put(gz)
		}()

		c.Next()
	}
}

func shouldCompress(req *http.Request) bool {
	if req.Method == http.MethodHead || !strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	if strings.Contains(strings.ToLower(req.Header.Get("Connection")), "upgrade") {
		return false
	}

	path := req.URL.Path
	switch {
	case strings.HasPrefix(path, "/socket.io"):
		// Engine.IO manages its own framing.
		return false
	case path == "/metrics":
		// promhttp negotiates gzip itself.
		return false
	case strings.HasSuffix(path, "/report"):
		// Spreadsheets are already zip archives.
		return false
	}
	return true
}
