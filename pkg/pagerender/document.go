package pagerender

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is an opaque handle to a loaded paginated file. Page count and
// native page dimensions are resolved once, on first load, and are stable
// thereafter. Only geometry is validated here; content is the business of the
// sanitization service.
type Document struct {
	Name string // display name, also used as the report lookup key
	Data []byte // raw file bytes, forwarded verbatim at submission time

	once    sync.Once
	count   int
	dims    []types.Dim
	loadErr error
}

// NewDocument wraps raw file bytes in a Document handle. No parsing happens
// until Load.
func NewDocument(name string, data []byte) *Document {
	return &Document{Name: name, Data: data}
}

// Size returns the byte size of the underlying file.
func (d *Document) Size() int {
	return len(d.Data)
}

// Load resolves the document's geometry. It is idempotent: the first call
// parses, every later call returns the recorded outcome. A malformed document
// yields a terminal error, never a panic.
func (d *Document) Load() error {
	d.once.Do(func() {
		count, err := api.PageCount(bytes.NewReader(d.Data), nil)
		if err != nil {
			d.loadErr = fmt.Errorf("page count for %s: %w", d.Name, err)
			return
		}
		if count < 1 {
			d.loadErr = fmt.Errorf("document %s has no pages", d.Name)
			return
		}
		dims, err := api.PageDims(bytes.NewReader(d.Data), nil)
		if err != nil {
			d.loadErr = fmt.Errorf("page dimensions for %s: %w", d.Name, err)
			return
		}
		if len(dims) != count {
			d.loadErr = fmt.Errorf("document %s: %d pages but %d dimension entries", d.Name, count, len(dims))
			return
		}
		d.count = count
		d.dims = dims
	})
	return d.loadErr
}

// PageCount returns the total number of pages, loading the document if needed.
func (d *Document) PageCount() (int, error) {
	if err := d.Load(); err != nil {
		return 0, err
	}
	return d.count, nil
}

// Dim returns the native (unscaled) width and height of a page in points.
func (d *Document) Dim(page int) (w, h float64, err error) {
	if err := d.Load(); err != nil {
		return 0, 0, err
	}
	if page < 0 || page >= d.count {
		return 0, 0, fmt.Errorf("page %d out of range [0,%d)", page, d.count)
	}
	return d.dims[page].Width, d.dims[page].Height, nil
}

// ClampPage corrects a requested page index into [0, count-1]. Out-of-range
// requests are silently corrected, not rejected. The document must be loaded.
func (d *Document) ClampPage(page int) int {
	if page < 0 {
		return 0
	}
	if d.count > 0 && page >= d.count {
		return d.count - 1
	}
	return page
}
