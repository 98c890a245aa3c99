// Package relay holds the collaborator endpoints: saving reference
// videos to disk, forwarding segmentation requests, and proxying
// remote video bytes past CORS. No comparison logic lives here.
package relay

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/aryankeluskar/jigglewiggle/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// videoIDPattern matches the 11-character ids the upload UI hands out.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type Relay struct {
	SaveDir    string
	SegmentURL string
	client     *resty.Client
}

func New(saveDir, segmentURL string) *Relay {
	return &Relay{
		SaveDir:    saveDir,
		SegmentURL: segmentURL,
		client:     resty.New(),
	}
}

func (rl *Relay) Register(r *gin.Engine) {
	r.POST("/api/save-video", rl.SaveVideo)
	r.POST("/api/segment-video", rl.SegmentVideo)
	r.GET("/api/proxy-video", rl.ProxyVideo)
}

type saveVideoRequest struct {
	VideoID string `json:"videoId"`
	URL     string `json:"url"`
}

// SaveVideo fetches url and persists the bytes under SaveDir keyed by
// videoId. 400 on a bad id or missing url, 502 when the upstream fetch
// fails, 500 when the write fails.
func (rl *Relay) SaveVideo(c *gin.Context) {
	var req saveVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !videoIDPattern.MatchString(req.VideoID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid videoId"})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}

	resp, err := rl.client.R().Get(req.URL)
	if err != nil || resp.IsError() {
		logger.Log().Error("upstream video fetch failed", zap.String("videoId", req.VideoID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch video"})
		return
	}

	if err := os.MkdirAll(rl.SaveDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save video: " + err.Error()})
		return
	}
	path := filepath.Join(rl.SaveDir, req.VideoID+".mp4")
	if err := os.WriteFile(path, resp.Body(), 0o644); err != nil {
		logger.Log().Error("video write failed", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save video: " + err.Error()})
		return
	}
	logger.Log().Info("saved reference video", zap.String("videoId", req.VideoID), zap.Int("bytes", len(resp.Body())))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SegmentVideo forwards the request body to the external segmentation
// service unchanged and returns whatever it answers. Pure pass-through.
func (rl *Relay) SegmentVideo(c *gin.Context) {
	if rl.SegmentURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "segmentation service not configured"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	resp, err := rl.client.R().
		SetHeader("Content-Type", c.ContentType()).
		SetBody(body).
		Post(rl.SegmentURL)
	if err != nil {
		logger.Log().Error("segmentation service unreachable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "segmentation service unreachable"})
		return
	}
	ct := resp.Header().Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	c.Data(resp.StatusCode(), ct, resp.Body())
}

// ProxyVideo fetches a remote video and streams it back with
// permissive CORS headers so the browser player can consume it.
func (rl *Relay) ProxyVideo(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url"})
		return
	}
	resp, err := rl.client.R().SetDoNotParseResponse(true).Get(url)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch video"})
		return
	}
	raw := resp.RawBody()
	defer raw.Close()
	if resp.StatusCode() >= 400 {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("upstream returned %d", resp.StatusCode())})
		return
	}

	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Range")
	ct := resp.Header().Get("Content-Type")
	if ct == "" {
		ct = "video/mp4"
	}
	c.Header("Content-Type", ct)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, raw); err != nil {
		logger.Log().Warn("proxy stream interrupted", zap.Error(err))
	}
}
