// Package geom provides the coordinate math shared by the annotation engine.
//
// Two coordinate systems are in play: document space, the page's intrinsic
// coordinate system at its native (unscaled) size, and surface space, the pixel
// coordinates of the currently rendered, possibly scaled-down page image.
// Confirmed zones are stored in document space so they survive zoom changes and
// re-renders; drawing gestures happen in surface space.
package geom

import "math"

// Point is a position in either coordinate system.
type Point struct {
	X, Y int
}

// Rect is an axis-aligned rectangle with a top-left origin.
type Rect struct {
	X, Y, W, H int
}

// FromCorners builds the bounding rectangle of two points. The points may be
// any opposite pair of corners, so drag direction never matters.
func FromCorners(a, b Point) Rect {
	x := min(a.X, b.X)
	y := min(a.Y, b.Y)
	return Rect{
		X: x,
		Y: y,
		W: max(a.X, b.X) - x,
		H: max(a.Y, b.Y) - y,
	}
}

// IsValid reports whether the rectangle has positive area.
func (r Rect) IsValid() bool {
	return r.W > 0 && r.H > 0
}

// BBox returns the rectangle as [x0, y0, x1, y1] corner coordinates,
// the form the sanitization service consumes.
func (r Rect) BBox() [4]int {
	return [4]int{r.X, r.Y, r.X + r.W, r.Y + r.H}
}

// scaleDim rescales v from a source axis of length src to a target axis of
// length dst, rounding to the nearest integer. A degenerate source axis maps
// with identity scale rather than dividing by zero.
func scaleDim(v, dst, src int) int {
	if src == 0 || dst == 0 {
		return v
	}
	return int(math.Round(float64(v) * float64(dst) / float64(src)))
}

// ToDocumentSpace converts a surface-space rectangle into document space by
// independent linear scaling of the two axes.
func ToDocumentSpace(r Rect, surfaceW, surfaceH, docW, docH int) Rect {
	return Rect{
		X: scaleDim(r.X, docW, surfaceW),
		Y: scaleDim(r.Y, docH, surfaceH),
		W: scaleDim(r.W, docW, surfaceW),
		H: scaleDim(r.H, docH, surfaceH),
	}
}

// ToSurfaceSpace is the inverse of ToDocumentSpace. For rectangles inside the
// page bounds the round trip lands within one unit of the original after
// rounding.
func ToSurfaceSpace(r Rect, surfaceW, surfaceH, docW, docH int) Rect {
	return Rect{
		X: scaleDim(r.X, surfaceW, docW),
		Y: scaleDim(r.Y, surfaceH, docH),
		W: scaleDim(r.W, surfaceW, docW),
		H: scaleDim(r.H, surfaceH, docH),
	}
}

// ClampInto shifts r so it lies fully inside a w x h area. Rectangles larger
// than the area are pinned to its top-left corner.
func ClampInto(r Rect, w, h int) Rect {
	if r.X+r.W > w {
		r.X = w - r.W
	}
	if r.Y+r.H > h {
		r.Y = h - r.H
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	return r
}
