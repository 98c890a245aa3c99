package render

import (
	"fmt"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"gocv.io/x/gocv"
)

// FrameToJPEG encodes an RGBA frame snapshot as JPEG bytes for the
// HTTP preview endpoint.
func FrameToJPEG(f *iface.Frame) ([]byte, error) {
	if f.Width == 0 || f.Height == 0 {
		return nil, fmt.Errorf("render: empty frame")
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("render: wrap frame: %w", err)
	}
	defer mat.Close()
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	buf, err := gocv.IMEncode(".jpg", bgr)
	if err != nil {
		return nil, fmt.Errorf("render: encode jpeg: %w", err)
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
