// Package outline turns a binary-mask video frame into a single-pixel
// colored silhouette contour for the compositor to draw.
package outline

import (
	"fmt"
	"image"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"gocv.io/x/gocv"
)

// Threshold on channel-0 intensity: strictly greater is foreground.
const Threshold = 128

// Default mask frame dimensions. Callers with other mask sizes pass
// their own to NewExtractor; nothing else assumes these.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// RGBA is a plain color value for the highlight.
type RGBA struct {
	R, G, B, A uint8
}

// DefaultHighlight is the opaque green used for edge pixels.
var DefaultHighlight = RGBA{0, 255, 0, 255}

// Extractor runs a single-pass 3x3 morphological boundary filter over
// a mask frame: interior foreground pixels with any background
// 8-neighbor become edge pixels painted Highlight, everything else is
// fully transparent. This is the dominant per-frame cost of the whole
// engine, so both scratch buffers are allocated once and reused; an
// Extractor must therefore not be shared between goroutines.
type Extractor struct {
	Width     int
	Height    int
	Highlight RGBA

	mask []uint8 // 1 = foreground, reused across frames
	out  iface.Frame
}

func NewExtractor(width, height int) *Extractor {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	e := &Extractor{
		Width:     width,
		Height:    height,
		Highlight: DefaultHighlight,
		mask:      make([]uint8, width*height),
	}
	e.out.Resize(width, height)
	return e
}

// Extract reads channel 0 of an interleaved pixel buffer (channels >=
// 1, row-major, Width*Height pixels) and returns the outline buffer.
// The returned Frame is owned by the Extractor and valid until the
// next Extract call.
func (e *Extractor) Extract(src []uint8, channels int) (*iface.Frame, error) {
	if channels < 1 {
		return nil, fmt.Errorf("outline: invalid channel count %d", channels)
	}
	if len(src) < e.Width*e.Height*channels {
		return nil, fmt.Errorf("outline: buffer is %d bytes, need %d", len(src), e.Width*e.Height*channels)
	}

	w, h := e.Width, e.Height
	for i := 0; i < w*h; i++ {
		if src[i*channels] > Threshold {
			e.mask[i] = 1
		} else {
			e.mask[i] = 0
		}
	}

	out := e.out.Pix
	for i := range out {
		out[i] = 0
	}

	hl := e.Highlight
	// Interior pixels only: the 1-pixel border has no full neighborhood.
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			if e.mask[i] == 0 {
				continue
			}
			if e.mask[i-w-1] == 0 || e.mask[i-w] == 0 || e.mask[i-w+1] == 0 ||
				e.mask[i-1] == 0 || e.mask[i+1] == 0 ||
				e.mask[i+w-1] == 0 || e.mask[i+w] == 0 || e.mask[i+w+1] == 0 {
				o := i * 4
				out[o] = hl.R
				out[o+1] = hl.G
				out[o+2] = hl.B
				out[o+3] = hl.A
			}
		}
	}
	return &e.out, nil
}

// ExtractMat adapts a decoded gocv mask frame. The Mat is resized to
// the extractor dimensions when it disagrees, since reference masks
// can arrive at whatever size the segmentation pipeline produced.
func (e *Extractor) ExtractMat(mat gocv.Mat) (*iface.Frame, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("outline: empty mask frame")
	}
	if mat.Cols() != e.Width || mat.Rows() != e.Height {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mat, &resized, image.Pt(e.Width, e.Height), 0, 0, gocv.InterpolationNearestNeighbor)
		return e.Extract(resized.ToBytes(), resized.Channels())
	}
	return e.Extract(mat.ToBytes(), mat.Channels())
}
