package render

import (
	"fmt"
	"sync"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"github.com/aryankeluskar/jigglewiggle/logger"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Source owns a gocv capture device and a decode goroutine that keeps
// the latest decoded frame as an RGBA snapshot. Snapshot never blocks
// on decoding. Stop halts the decode loop first and releases the
// device only after the loop has exited, so no buffer is touched after
// release.
type Source struct {
	mu     sync.Mutex
	latest iface.Frame
	ready  bool

	open func() (*gocv.VideoCapture, error)
	loop bool
	stop chan struct{}
	done chan struct{}
}

// NewCameraSource opens a local capture device on Start.
func NewCameraSource(deviceID int) *Source {
	return &Source{
		open: func() (*gocv.VideoCapture, error) {
			return gocv.OpenVideoCapture(deviceID)
		},
	}
}

// NewVideoSource plays a video file or URL, rewinding at end of
// stream. Reference mask streams use this.
func NewVideoSource(url string) *Source {
	return &Source{
		open: func() (*gocv.VideoCapture, error) {
			return gocv.OpenVideoCapture(url)
		},
		loop: true,
	}
}

// Start opens the device and begins decoding. An open failure (camera
// missing, permission denied, bad URL) is returned to the caller and
// no goroutine is started.
func (s *Source) Start() error {
	if s.stop != nil {
		return fmt.Errorf("source already started")
	}
	cap, err := s.open()
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.decode(cap)
	return nil
}

func (s *Source) decode(cap *gocv.VideoCapture) {
	defer close(s.done)
	defer cap.Close()
	frame := gocv.NewMat()
	defer frame.Close()
	rgba := gocv.NewMat()
	defer rgba.Close()
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		if ok := cap.Read(&frame); !ok || frame.Empty() {
			if s.loop {
				cap.Set(gocv.VideoCapturePosFrames, 0)
				continue
			}
			logger.Log().Warn("capture stream ended")
			return
		}
		gocv.CvtColor(frame, &rgba, gocv.ColorBGRToRGBA)
		s.mu.Lock()
		s.latest.Resize(rgba.Cols(), rgba.Rows())
		copy(s.latest.Pix, rgba.ToBytes())
		s.ready = true
		s.mu.Unlock()
	}
}

// Snapshot copies the latest decoded frame into dst. Returns false
// before the first frame has been decoded.
func (s *Source) Snapshot(dst *iface.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return false
	}
	dst.Resize(s.latest.Width, s.latest.Height)
	copy(dst.Pix, s.latest.Pix)
	return true
}

// Stop halts decoding and releases the device before returning. The
// decode goroutine closes the capture on its way out, so by the time
// done is closed the device is free.
func (s *Source) Stop() error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()
	logger.Log().Info("capture source stopped", zap.Bool("loop", s.loop))
	return nil
}
