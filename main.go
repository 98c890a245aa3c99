package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/aryankeluskar/jigglewiggle/detector"
	"github.com/aryankeluskar/jigglewiggle/engine"
	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"github.com/aryankeluskar/jigglewiggle/logger"
	"github.com/aryankeluskar/jigglewiggle/monitor"
	"github.com/aryankeluskar/jigglewiggle/outline"
	"github.com/aryankeluskar/jigglewiggle/relay"
	"github.com/aryankeluskar/jigglewiggle/render"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type configStruct struct {
	HTTPPort      int    `yaml:"HTTPPort"`
	MetricsPort   int    `yaml:"MetricsPort"`
	DetectorURL   string `yaml:"DetectorURL"`
	SegmentURL    string `yaml:"SegmentURL"`
	VideoDir      string `yaml:"VideoDir"`
	CameraDevice  int    `yaml:"CameraDevice"`
	MaskWidth     int    `yaml:"MaskWidth"`
	MaskHeight    int    `yaml:"MaskHeight"`
	RenderFPS     int    `yaml:"RenderFPS"`
	IdleTimeoutMs int    `yaml:"IdleTimeoutMs"`
}

type instance struct {
	id          string
	comparator  *engine.Comparator
	lastActive  time.Time
	conn        *websocket.Conn
	closeOnce   sync.Once
	cancelTimer chan struct{}
	cancelOnce  sync.Once
}

var (
	sessionMu sync.RWMutex
	sessions  = map[string]*instance{}
	upgrader  = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	idleTimeout = 30 * time.Second

	detectorClient *detector.Client

	renderMu   sync.Mutex
	compositor *render.Compositor
)

func createSession(reference []iface.Pose) (string, int, error) {
	comparator := &engine.Comparator{}
	comparator.New()
	loaded, err := comparator.LoadReference(reference)
	if err != nil {
		return "", 0, err
	}

	sessionID := uuid.New().String()
	inst := &instance{
		id:          sessionID,
		comparator:  comparator,
		lastActive:  time.Now(),
		cancelTimer: make(chan struct{}),
	}
	sessionMu.Lock()
	sessions[sessionID] = inst
	sessionMu.Unlock()
	logger.Log().Info("session created", zap.String("sessionID", sessionID), zap.Int("referencePoses", loaded))
	return sessionID, loaded, nil
}

func releaseSession(sessionID string) bool {
	sessionMu.Lock()
	inst, ok := sessions[sessionID]
	if ok {
		delete(sessions, sessionID)
	}
	sessionMu.Unlock()
	if !ok {
		return false
	}

	inst.closeOnce.Do(func() {
		if inst.conn != nil {
			_ = inst.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session released"))
			_ = inst.conn.Close()
		}
	})
	inst.cancelOnce.Do(func() {
		close(inst.cancelTimer)
	})
	inst.comparator.Destroy()
	logger.Log().Info("session released", zap.String("sessionID", sessionID))
	return true
}

func startIdleMonitor(inst *instance) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-inst.cancelTimer:
				return
			case <-ticker.C:
				if time.Since(inst.lastActive) > idleTimeout {
					_ = releaseSession(inst.id)
					logger.Log().Info("idle session reaped", zap.String("sessionID", inst.id))
					return
				}
			}
		}
	}()
}

// compareFrame runs one comparison tick for a session. A single bad
// frame from the detector is skippable: the previous score survives.
func compareFrame(inst *instance, msg []byte, binary bool) (engine.Result, error) {
	var pose iface.Pose
	if binary {
		p, err := detectorClient.DetectBytes(msg)
		if err != nil {
			return engine.Result{}, err
		}
		pose = p
	} else {
		if err := json.Unmarshal(msg, &pose); err != nil {
			return engine.Result{}, fmt.Errorf("invalid pose payload: %w", err)
		}
	}
	ret := inst.comparator.Update(pose)
	if !ret.Success {
		return engine.Result{}, fmt.Errorf("%v", ret.Data)
	}
	result := ret.Data.(engine.Result)
	monitor.ComparisonsTotal.Inc()
	monitor.SmoothedScore.Set(result.Smoothed)
	return result, nil
}

func main() {
	err := logger.InitProduction()
	if err != nil {
		return
	}
	defer logger.Sync()
	fmt.Println(strings.Repeat("#", 64))
	CPUNum := runtime.NumCPU()
	runtime.GOMAXPROCS(CPUNum)
	fmt.Printf("CPU Cores: %d\n", CPUNum)
	configData, err := os.ReadFile("config.yaml")
	if err != nil {
		fmt.Println("Failed to read config file:", err)
		return
	}
	config := configStruct{}
	err = yaml.Unmarshal(configData, &config)
	if err != nil {
		fmt.Println("Failed to parse config file:", err)
		return
	}
	if config.HTTPPort <= 0 {
		config.HTTPPort = 8080
	}
	if config.MetricsPort <= 0 {
		config.MetricsPort = 50053
	}
	if config.VideoDir == "" {
		config.VideoDir = "./videos"
	}
	if config.IdleTimeoutMs > 0 {
		idleTimeout = time.Duration(config.IdleTimeoutMs) * time.Millisecond
	}
	fmt.Println(" HTTP    Port:", config.HTTPPort)
	fmt.Println(" Metrics Port:", config.MetricsPort)
	fmt.Println(" Detector URL:", config.DetectorURL)
	fmt.Println(strings.Repeat("#", 64))

	detectorClient = detector.New(config.DetectorURL, detector.DefaultTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.StartMon(config.MetricsPort, ctx)

	r := gin.Default()
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.POST("/api/sessions", func(c *gin.Context) {
		var req struct {
			Reference []iface.Pose `json:"reference"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sessionID, loaded, err := createSession(req.Reference)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionID":      sessionID,
			"referencePoses": loaded,
			"wsURL":          fmt.Sprintf("ws://%s/ws/%s", c.Request.Host, sessionID),
			"timeoutMs":      idleTimeout.Milliseconds(),
		})
	})

	r.POST("/api/sessions/:sessionID/release", func(c *gin.Context) {
		sessionID := c.Param("sessionID")
		if !releaseSession(sessionID) {
			c.JSON(404, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(200, gin.H{"data": "Session released"})
	})

	r.GET("/ws/:sessionID", func(c *gin.Context) {
		sessionID := c.Param("sessionID")
		sessionMu.RLock()
		inst, exists := sessions[sessionID]
		sessionMu.RUnlock()
		if !exists {
			c.JSON(404, gin.H{"error": "Session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		inst.conn = conn
		conn.SetReadLimit(20 * 1024 * 1024)

		startIdleMonitor(inst)
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				releaseSession(sessionID)
				logger.Log().Info("connection closed", zap.String("sessionID", sessionID), zap.Error(err))
				return
			}
			inst.lastActive = time.Now()
			switch mt {
			case websocket.TextMessage, websocket.BinaryMessage:
				result, err := compareFrame(inst, msg, mt == websocket.BinaryMessage)
				if err != nil {
					_ = conn.WriteJSON(gin.H{"error": err.Error()})
					continue
				}
				_ = conn.WriteJSON(result)
			default:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("unsupported message type"))
			}
		}
	})

	r.POST("/api/render/start", func(c *gin.Context) {
		var req struct {
			MaskURL string `json:"maskUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		renderMu.Lock()
		defer renderMu.Unlock()
		if compositor != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "render loop already running"})
			return
		}
		interval := render.DefaultInterval
		if config.RenderFPS > 0 {
			interval = time.Second / time.Duration(config.RenderFPS)
		}
		comp := &render.Compositor{
			Camera:    render.NewCameraSource(config.CameraDevice),
			Extractor: outline.NewExtractor(config.MaskWidth, config.MaskHeight),
			Interval:  interval,
			OnFrame: func(*iface.Frame) {
				monitor.FramesComposited.Inc()
			},
		}
		if req.MaskURL != "" {
			comp.Reference = render.NewVideoSource(req.MaskURL)
		}
		if err := comp.Start(); err != nil {
			// Camera unavailable is a user-facing failure; the loop
			// never started and the process keeps serving.
			logger.Log().Error("render start failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		compositor = comp
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.POST("/api/render/stop", func(c *gin.Context) {
		renderMu.Lock()
		defer renderMu.Unlock()
		if compositor == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "render loop not running"})
			return
		}
		compositor.Stop()
		compositor = nil
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/api/render/frame", func(c *gin.Context) {
		renderMu.Lock()
		comp := compositor
		renderMu.Unlock()
		if comp == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "render loop not running"})
			return
		}
		var frame iface.Frame
		if !comp.Latest(&frame) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no frame composed yet"})
			return
		}
		jpeg, err := render.FrameToJPEG(&frame)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/jpeg", jpeg)
	})

	relay.New(config.VideoDir, config.SegmentURL).Register(r)

	_ = r.Run(fmt.Sprintf(":%d", config.HTTPPort))
}
