// Package render drives the per-frame composite: the mirrored live
// camera frame with the reference silhouette outline drawn on top.
package render

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"github.com/aryankeluskar/jigglewiggle/logger"
	"github.com/aryankeluskar/jigglewiggle/outline"
	"go.uber.org/zap"
)

const DefaultInterval = 33 * time.Millisecond // ~30 fps

// Compositor runs the render loop. Each tick it clears the output
// buffer, draws the camera frame horizontally mirrored, and if a
// reference mask frame is ready, extracts and overlays the mirrored
// outline. The loop is purely presentational; scoring runs on its own
// lower-frequency path. Ticks never overlap: a tick arriving while the
// previous one still runs is skipped and that frame is dropped.
type Compositor struct {
	Camera    iface.FrameSource
	Reference iface.FrameSource // nil when no reference stream is active
	Extractor *outline.Extractor
	Interval  time.Duration

	// OnFrame, when set, observes every composited frame. The Frame is
	// only valid for the duration of the call.
	OnFrame func(*iface.Frame)

	output   iface.Frame
	camFrame iface.Frame
	refFrame iface.Frame

	latestMu sync.Mutex
	latest   iface.Frame
	hasFrame bool

	busy atomic.Bool
	stop chan struct{}
	done chan struct{}
}

// Start opens the camera (and the reference stream when present) and
// begins ticking. A camera failure is returned to the caller and the
// loop is never started.
func (c *Compositor) Start() error {
	if c.stop != nil {
		return fmt.Errorf("compositor already running")
	}
	if c.Camera == nil {
		return fmt.Errorf("no camera source")
	}
	if err := c.Camera.Start(); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}
	if c.Reference != nil {
		if err := c.Reference.Start(); err != nil {
			_ = c.Camera.Stop()
			return fmt.Errorf("start reference stream: %w", err)
		}
	}
	if c.Extractor == nil {
		c.Extractor = outline.NewExtractor(outline.DefaultWidth, outline.DefaultHeight)
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run()
	logger.Log().Info("render loop started", zap.Duration("interval", c.Interval))
	return nil
}

func (c *Compositor) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick composes one frame. Safe to call concurrently with itself: the
// busy flag turns overlapping calls into dropped frames.
func (c *Compositor) Tick() {
	if !c.busy.CompareAndSwap(false, true) {
		return
	}
	defer c.busy.Store(false)

	if !c.Camera.Snapshot(&c.camFrame) {
		return
	}
	c.output.Resize(c.camFrame.Width, c.camFrame.Height)
	clearFrame(&c.output)
	drawMirrored(&c.camFrame, &c.output)

	if c.Reference != nil && c.Reference.Snapshot(&c.refFrame) {
		// The segmentation pipeline decides the mask dimensions, not
		// us. Follow the stream when it disagrees with the configured
		// size; this reallocates only when the dimensions change.
		if c.Extractor.Width != c.refFrame.Width || c.Extractor.Height != c.refFrame.Height {
			hl := c.Extractor.Highlight
			c.Extractor = outline.NewExtractor(c.refFrame.Width, c.refFrame.Height)
			c.Extractor.Highlight = hl
		}
		ol, err := c.Extractor.Extract(c.refFrame.Pix, 4)
		if err != nil {
			logger.Log().Warn("outline extraction failed", zap.Error(err))
		} else {
			overlayMirrored(ol, &c.output)
		}
	}

	c.latestMu.Lock()
	c.latest.Resize(c.output.Width, c.output.Height)
	copy(c.latest.Pix, c.output.Pix)
	c.hasFrame = true
	c.latestMu.Unlock()

	if c.OnFrame != nil {
		c.OnFrame(&c.output)
	}
}

// Latest copies the most recent composite into dst, false before the
// first composed frame.
func (c *Compositor) Latest(dst *iface.Frame) bool {
	c.latestMu.Lock()
	defer c.latestMu.Unlock()
	if !c.hasFrame {
		return false
	}
	dst.Resize(c.latest.Width, c.latest.Height)
	copy(dst.Pix, c.latest.Pix)
	return true
}

// Stop deregisters the tick loop first, then releases the reference
// stream and finally the camera device. It returns only when all three
// are done, so the caller can be sure no buffer is touched afterwards.
func (c *Compositor) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
	c.done = nil
	if c.Reference != nil {
		_ = c.Reference.Stop()
	}
	_ = c.Camera.Stop()
	logger.Log().Info("render loop stopped")
}

func clearFrame(f *iface.Frame) {
	for i := range f.Pix {
		f.Pix[i] = 0
	}
}

// drawMirrored copies src into dst reversed along x, so the subject
// sees themselves as in a mirror. Dimensions must already match.
func drawMirrored(src, dst *iface.Frame) {
	w, h := src.Width, src.Height
	for y := 0; y < h; y++ {
		row := y * w * 4
		for x := 0; x < w; x++ {
			si := row + x*4
			di := row + (w-1-x)*4
			dst.Pix[di] = src.Pix[si]
			dst.Pix[di+1] = src.Pix[si+1]
			dst.Pix[di+2] = src.Pix[si+2]
			dst.Pix[di+3] = src.Pix[si+3]
		}
	}
}

// overlayMirrored composites the outline on top of dst, mirrored like
// the camera frame. Outline pixels are either fully transparent
// (no-op) or fully opaque (overwrite), so blending is a plain write.
// Nearest-neighbor sampling bridges any dimension mismatch between the
// mask buffer and the camera frame.
func overlayMirrored(ol, dst *iface.Frame) {
	w, h := dst.Width, dst.Height
	ow, oh := ol.Width, ol.Height
	if w == 0 || h == 0 || ow == 0 || oh == 0 {
		return
	}
	for y := 0; y < h; y++ {
		oy := y * oh / h
		orow := oy * ow * 4
		drow := y * w * 4
		for x := 0; x < w; x++ {
			ox := x * ow / w
			oi := orow + ox*4
			if ol.Pix[oi+3] == 0 {
				continue
			}
			di := drow + (w-1-x)*4
			dst.Pix[di] = ol.Pix[oi]
			dst.Pix[di+1] = ol.Pix[oi+1]
			dst.Pix[di+2] = ol.Pix[oi+2]
			dst.Pix[di+3] = ol.Pix[oi+3]
		}
	}
}
