package detector

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func landmarksJSON(n int) []byte {
	payload := struct {
		Landmarks   []map[string]float64 `json:"landmarks"`
		TimestampMs float64              `json:"timestampMs"`
	}{TimestampMs: 1234}
	for i := 0; i < n; i++ {
		payload.Landmarks = append(payload.Landmarks, map[string]float64{
			"x": 0.5, "y": 0.5, "z": 0, "visibility": 0.9,
		})
	}
	b, _ := json.Marshal(payload)
	return b
}

func TestDetectBytes(t *testing.T) {
	t.Run("full pose is parsed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/detect", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(landmarksJSON(33))
		}))
		defer srv.Close()

		c := New(srv.URL, 0)
		pose, err := c.DetectBytes([]byte("jpegbytes"))
		assert.NoError(t, err)
		assert.Len(t, pose.Landmarks, 33)
		assert.Equal(t, 1234.0, pose.TimestampMs)
		assert.Equal(t, 0.9, pose.Landmarks[0].Visibility)
	})

	t.Run("wrong landmark count is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(landmarksJSON(12))
		}))
		defer srv.Close()

		_, err := New(srv.URL, 0).DetectBytes([]byte("jpegbytes"))
		assert.Error(t, err)
	})

	t.Run("service error is propagated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := New(srv.URL, 0).DetectBytes([]byte("jpegbytes"))
		assert.Error(t, err)
	})

	t.Run("unreachable service is an error", func(t *testing.T) {
		_, err := New("http://127.0.0.1:1", 0).DetectBytes([]byte("jpegbytes"))
		assert.Error(t, err)
	})
}
