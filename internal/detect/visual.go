package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// DefaultTolerance is the per-channel difference (0-255) below which two
// pixels are considered equal, absorbing compression and anti-aliasing
// noise between captures.
const DefaultTolerance = 10

// VisualResult is the outcome of a pixel comparison
type VisualResult struct {
	DiffPixels  int    // differing pixels after tolerance
	TotalPixels int    // pixels compared (union of both dimensions)
	DiffImage   []byte // PNG with differing pixels highlighted in red, nil when identical
}

// Changed reports whether any pixel differed after tolerance
func (r *VisualResult) Changed() bool {
	return r.DiffPixels > 0
}

var highlight = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// CompareImages performs a pixel-level comparison of two PNG screenshots.
// Dimension mismatches are not an error: the union area is compared and
// pixels present in only one image count as differing, so a page that
// grew or shrank is always a change. A highlighted diff image is
// produced whenever at least one pixel differs.
func CompareImages(previousPNG, currentPNG []byte, tolerance uint8) (*VisualResult, error) {
	prev, err := png.Decode(bytes.NewReader(previousPNG))
	if err != nil {
		return nil, fmt.Errorf("failed to decode previous screenshot: %w", err)
	}
	curr, err := png.Decode(bytes.NewReader(currentPNG))
	if err != nil {
		return nil, fmt.Errorf("failed to decode current screenshot: %w", err)
	}

	pb, cb := prev.Bounds(), curr.Bounds()
	width := max(pb.Dx(), cb.Dx())
	height := max(pb.Dy(), cb.Dy())

	// Draw on a copy of the current screenshot, extended to union size
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), curr, cb.Min, draw.Src)

	result := &VisualResult{TotalPixels: width * height}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			inPrev := x < pb.Dx() && y < pb.Dy()
			inCurr := x < cb.Dx() && y < cb.Dy()

			if !inPrev || !inCurr {
				result.DiffPixels++
				out.Set(x, y, highlight)
				continue
			}

			pr, pg, pbl, pa := prev.At(pb.Min.X+x, pb.Min.Y+y).RGBA()
			cr, cg, cbl, ca := curr.At(cb.Min.X+x, cb.Min.Y+y).RGBA()
			if channelDiff(pr, cr) > tolerance || channelDiff(pg, cg) > tolerance ||
				channelDiff(pbl, cbl) > tolerance || channelDiff(pa, ca) > tolerance {
				result.DiffPixels++
				out.Set(x, y, highlight)
			}
		}
	}

	if result.DiffPixels > 0 {
		var buf bytes.Buffer
		if err := png.Encode(&buf, out); err != nil {
			return nil, fmt.Errorf("failed to encode diff image: %w", err)
		}
		result.DiffImage = buf.Bytes()
	}
	return result, nil
}

// channelDiff compares two 16-bit color values on the 8-bit scale the
// tolerance is expressed in
func channelDiff(a, b uint32) uint8 {
	a8, b8 := a>>8, b>>8
	if a8 > b8 {
		return uint8(a8 - b8)
	}
	return uint8(b8 - a8)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
