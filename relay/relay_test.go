package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(rl *Relay) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl.Register(r)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSaveVideo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("fake video bytes"))
	}))
	defer upstream.Close()

	dir := t.TempDir()
	r := newRouter(New(dir, ""))

	t.Run("valid request saves the file", func(t *testing.T) {
		w := postJSON(r, "/api/save-video", gin.H{"videoId": "dQw4w9WgXcQ", "url": upstream.URL + "/clip.mp4"})
		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["ok"])

		data, err := os.ReadFile(filepath.Join(dir, "dQw4w9WgXcQ.mp4"))
		assert.NoError(t, err)
		assert.Equal(t, "fake video bytes", string(data))
	})

	t.Run("bad videoId is rejected", func(t *testing.T) {
		for _, id := range []string{"", "short", "has spaces!!", "waytoolongvideoid"} {
			w := postJSON(r, "/api/save-video", gin.H{"videoId": id, "url": upstream.URL})
			assert.Equal(t, http.StatusBadRequest, w.Code, "id %q", id)
		}
	})

	t.Run("missing url is rejected", func(t *testing.T) {
		w := postJSON(r, "/api/save-video", gin.H{"videoId": "dQw4w9WgXcQ"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upstream failure maps to 502", func(t *testing.T) {
		w := postJSON(r, "/api/save-video", gin.H{"videoId": "dQw4w9WgXcQ", "url": upstream.URL + "/missing.mp4"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestSegmentVideo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"maskUrl":"http://cdn/mask.mp4"}`))
	}))
	defer upstream.Close()

	t.Run("pass-through returns the upstream answer", func(t *testing.T) {
		r := newRouter(New(t.TempDir(), upstream.URL))
		w := postJSON(r, "/api/segment-video", gin.H{"videoUrl": "http://example/clip.mp4"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"maskUrl":"http://cdn/mask.mp4"}`, w.Body.String())
	})

	t.Run("unconfigured service is 503", func(t *testing.T) {
		r := newRouter(New(t.TempDir(), ""))
		w := postJSON(r, "/api/segment-video", gin.H{})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestProxyVideo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("mp4 payload"))
	}))
	defer upstream.Close()

	r := newRouter(New(t.TempDir(), ""))

	t.Run("streams bytes with permissive CORS", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/proxy-video?url="+upstream.URL, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
		assert.Equal(t, "mp4 payload", w.Body.String())
	})

	t.Run("missing url is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/proxy-video", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
