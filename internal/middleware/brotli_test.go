package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func TestBrotli(t *testing.T) {
	gin.SetMode(gin.TestMode)

	large := strings.Repeat(`{"question":"Which article?","options":["14","19","21"]}`, 100)
	small := `{"status":"ok"}`

	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, small) })
	r.GET("/chunks", func(c *gin.Context) {
		// Crosses the threshold on the second write and keeps writing.
		c.Status(http.StatusOK)
		c.Writer.WriteString(large[:600])
		c.Writer.WriteString(large[600:1200])
		c.Writer.WriteString(large[1200:])
	})

	tests := []struct {
		name       string
		path       string
		accept     string
		compressed bool
		want       string
	}{
		{"large compressed", "/large", "gzip, br", true, large},
		{"small plain", "/small", "br", false, small},
		{"no accept", "/large", "gzip", false, large},
		{"refused with q=0", "/large", "br;q=0", false, large},
		{"chunked writes", "/chunks", "br", true, large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept-Encoding", tt.accept)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			enc := w.Header().Get("Content-Encoding")
			if tt.compressed != (enc == "br") {
				t.Fatalf("Content-Encoding = %q, compressed want %v", enc, tt.compressed)
			}

			body := w.Body.Bytes()
			if tt.compressed {
				decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				body = decoded
			}
			if string(body) != tt.want {
				t.Fatalf("body mismatch: got %d bytes, want %d", len(body), len(tt.want))
			}
		})
	}
}

func TestBrotliSkipsWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/ws", func(c *gin.Context) { c.String(http.StatusOK, strings.Repeat("x", 4096)) })

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "" {
		t.Fatal("upgrade requests must not be compressed")
	}
}
