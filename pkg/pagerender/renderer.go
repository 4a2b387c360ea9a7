package pagerender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"
)

// ErrSuperseded is returned when a render completes after a newer render has
// already started. The stale result is discarded, never applied.
var ErrSuperseded = errors.New("render superseded by a newer request")

// Rasterizer turns one page of a document into pixels at its native size.
// It is the boundary to the external rendering library; implementations must
// not share mutable surface state across overlapping calls.
type Rasterizer interface {
	RasterizePage(ctx context.Context, doc *Document, page int) (image.Image, error)
}

// Request names a page to render and the zoom the caller wants.
type Request struct {
	Doc   *Document
	Page  int     // clamped into range, never rejected
	Scale float64 // <=0 means 1
}

// Result is a completed render: the surface, its metadata, and the effective
// scale that was applied.
type Result struct {
	Surface    *image.RGBA
	Meta       PageMetadata
	FitScale   float64
	Generation uint64
}

// Renderer produces page surfaces. Requests supersede each other: only the
// most recently started render may publish its result.
type Renderer struct {
	cfg Config
	ras Rasterizer

	gen atomic.Uint64

	mu       sync.Mutex
	current  *Result
	pageErrs map[pageKey]string
}

type pageKey struct {
	doc  string
	page int
}

// NewRenderer builds a renderer. A nil rasterizer falls back to the built-in
// blank backend, which produces a white surface at the correct native size.
func NewRenderer(cfg Config, ras Rasterizer) *Renderer {
	if ras == nil {
		ras = blankRasterizer{}
	}
	return &Renderer{
		cfg:      cfg,
		ras:      ras,
		pageErrs: make(map[pageKey]string),
	}
}

// FitScale computes the effective scale for a page of the given native width:
// the requested scale capped by the container width and by native resolution.
func (r *Renderer) FitScale(requested, nativeWidth float64) float64 {
	if requested <= 0 {
		requested = 1
	}
	fit := math.Min(requested, 1)
	if r.cfg.ContainerWidth > 0 && nativeWidth > 0 {
		fit = math.Min(fit, float64(r.cfg.ContainerWidth)/nativeWidth)
	}
	return fit
}

// Render rasterizes the requested page. Starting a render invalidates any
// render still in flight: when the older one completes it gets ErrSuperseded
// and its result is dropped. Failures are recorded as a terminal per-page
// error state and reported; they are not retried.
func (r *Renderer) Render(ctx context.Context, req Request) (*Result, error) {
	gen := r.gen.Add(1)

	if err := EnsureBackend(ctx); err != nil {
		return nil, fmt.Errorf("raster backend: %w", err)
	}

	if err := req.Doc.Load(); err != nil {
		if !r.recordError(gen, pageKey{req.Doc.Name, req.Page}, err) {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	page := req.Doc.ClampPage(req.Page)
	key := pageKey{req.Doc.Name, page}

	w, h, err := req.Doc.Dim(page)
	if err != nil {
		if !r.recordError(gen, key, err) {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	total, _ := req.Doc.PageCount()
	paper, orientation := ClassifyPage(w, h)
	meta := PageMetadata{
		PageNumber:  page,
		WidthPts:    w,
		HeightPts:   h,
		PaperClass:  paper,
		Orientation: orientation,
		TotalPages:  total,
	}

	native, err := r.ras.RasterizePage(ctx, req.Doc, page)
	if err != nil {
		err = fmt.Errorf("rasterize %s page %d: %w", req.Doc.Name, page, err)
		if !r.recordError(gen, key, err) {
			return nil, ErrSuperseded
		}
		return nil, err
	}

	fit := r.FitScale(req.Scale, w)
	surface := scaleSurface(native, fit)

	res := &Result{Surface: surface, Meta: meta, FitScale: fit, Generation: gen}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen.Load() {
		return nil, ErrSuperseded
	}
	delete(r.pageErrs, key)
	r.current = res
	return res, nil
}

// Current returns the most recently published render, if any.
func (r *Renderer) Current() (*Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != nil
}

// PageError reports the terminal error state for a page, if one was recorded.
// It clears only when the user navigates back and the page renders cleanly.
func (r *Renderer) PageError(doc *Document, page int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.pageErrs[pageKey{doc.Name, page}]
	return msg, ok
}

// recordError stores a terminal error for a page, unless the render that
// produced it has been superseded. A stale failure must not shadow the outcome
// of a newer render of the same page.
func (r *Renderer) recordError(gen uint64, key pageKey, err error) bool {
	r.mu.Lock()
	if gen != r.gen.Load() {
		r.mu.Unlock()
		return false
	}
	r.pageErrs[key] = err.Error()
	r.mu.Unlock()
	fmt.Fprintf(r.logger(), "render error on %s page %d: %v\n", key.doc, key.page, err)
	return true
}

func (r *Renderer) logger() io.Writer {
	if r.cfg.Logger == nil {
		return os.Stdout
	}
	return r.cfg.Logger
}

// scaleSurface resamples a native-resolution page image down to the fit scale.
// At scale 1 it only normalizes the image to RGBA.
func scaleSurface(src image.Image, fit float64) *image.RGBA {
	b := src.Bounds()
	if fit >= 1 {
		out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(out, out.Bounds(), src, b.Min, draw.Src)
		return out
	}
	w := int(math.Round(float64(b.Dx()) * fit))
	h := int(math.Round(float64(b.Dy()) * fit))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), src, b, xdraw.Src, nil)
	return out
}

// blankRasterizer is the built-in backend: a white page at native dimensions.
// The engine's geometry and gesture logic never look at pixel content, so this
// is sufficient everywhere a real rasterization library is not wired in.
type blankRasterizer struct{}

func (blankRasterizer) RasterizePage(ctx context.Context, doc *Document, page int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h, err := doc.Dim(page)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, int(math.Round(w)), int(math.Round(h))))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}
