// Package detector talks to the external pose-detection service. The
// engine never extracts landmarks itself; it ships a frame and gets 33
// landmarks back.
package detector

import (
	"fmt"
	"time"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"github.com/aryankeluskar/jigglewiggle/logger"
	"github.com/go-resty/resty/v2"
	"gocv.io/x/gocv"
)

const DefaultTimeout = 5 * time.Second

type landmarkPayload struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

type detectResponse struct {
	Landmarks   []landmarkPayload `json:"landmarks"`
	TimestampMs float64           `json:"timestampMs"`
}

// Client implements iface.PoseDetector over HTTP.
type Client struct {
	BaseURL string
	client  *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		client:  resty.New().SetTimeout(timeout),
	}
}

// Detect encodes the frame as JPEG and ships it to the service.
func (c *Client) Detect(frame gocv.Mat) (iface.Pose, error) {
	if frame.Empty() {
		return iface.Pose{}, fmt.Errorf("detector: empty frame")
	}
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return iface.Pose{}, fmt.Errorf("detector: encode frame: %w", err)
	}
	defer buf.Close()
	return c.DetectBytes(buf.GetBytes())
}

// DetectBytes sends already-encoded image bytes. Used directly on the
// websocket path where clients upload encoded frames.
func (c *Client) DetectBytes(img []byte) (iface.Pose, error) {
	var out detectResponse
	resp, err := c.client.R().
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(img).
		SetResult(&out).
		Post(c.BaseURL + "/detect")
	if err != nil {
		return iface.Pose{}, fmt.Errorf("detector: request: %w", err)
	}
	if resp.IsError() {
		logger.Log().Error(fmt.Sprintf("detector service returned %s: %s", resp.Status(), resp.String()))
		return iface.Pose{}, fmt.Errorf("detector: service returned %s", resp.Status())
	}
	if len(out.Landmarks) != 33 {
		return iface.Pose{}, fmt.Errorf("detector: got %d landmarks, want 33", len(out.Landmarks))
	}
	pose := iface.Pose{
		Landmarks:   make([]iface.Landmark, len(out.Landmarks)),
		TimestampMs: out.TimestampMs,
	}
	for i, lm := range out.Landmarks {
		pose.Landmarks[i] = iface.Landmark{X: lm.X, Y: lm.Y, Z: lm.Z, Visibility: lm.Visibility}
	}
	return pose, nil
}

func (c *Client) Close() error {
	return nil
}
