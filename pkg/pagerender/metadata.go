package pagerender

import "math"

// PaperClass buckets a page into one of the supported A-series sizes.
type PaperClass string

// Supported paper classes.
const (
	PaperA1 PaperClass = "A1"
	PaperA2 PaperClass = "A2"
	PaperA3 PaperClass = "A3"
	PaperA4 PaperClass = "A4"
)

// Orientation describes how a page is laid out.
type Orientation string

// Page orientations. A square page counts as vertical.
const (
	Horizontal Orientation = "Horizontal"
	Vertical   Orientation = "Vertical"
)

// PageMetadata describes one rendered page. It is derived from the page's
// native dimensions at render time and immutable once computed.
type PageMetadata struct {
	PageNumber  int     // 0-based index within the document
	WidthPts    float64 // native width in points
	HeightPts   float64 // native height in points
	PaperClass  PaperClass
	Orientation Orientation
	TotalPages  int
}

// standardSizes lists A-series dimensions as (short, long) pairs in the two
// unit systems seen in the wild: PostScript points and tenths of a millimetre.
var standardSizes = []struct {
	class       PaperClass
	short, long float64
}{
	{PaperA4, 595, 842},
	{PaperA3, 842, 1191},
	{PaperA2, 1191, 1684},
	{PaperA1, 1684, 2384},
	{PaperA4, 2100, 2970},
	{PaperA3, 2970, 4200},
	{PaperA2, 4200, 5940},
	{PaperA1, 5940, 8410},
}

// sizeMatchTol is the relative tolerance used when matching a page against the
// standard size table. Tight enough that a 300x200 mm page does not pass as A4.
const sizeMatchTol = 0.02

// ClassifyPage buckets a page by its native dimensions. An exact-size match
// against the standard table wins; otherwise the larger dimension decides:
// >2000 A1, >1500 A2, >1100 A3, else A4.
func ClassifyPage(width, height float64) (PaperClass, Orientation) {
	orientation := Vertical
	if width > height {
		orientation = Horizontal
	}

	short := math.Min(width, height)
	long := math.Max(width, height)
	for _, s := range standardSizes {
		if withinTol(short, s.short, sizeMatchTol) && withinTol(long, s.long, sizeMatchTol) {
			return s.class, orientation
		}
	}

	switch {
	case long > 2000:
		return PaperA1, orientation
	case long > 1500:
		return PaperA2, orientation
	case long > 1100:
		return PaperA3, orientation
	default:
		return PaperA4, orientation
	}
}

func withinTol(v, ref, tol float64) bool {
	if ref == 0 {
		return v == 0
	}
	return math.Abs(v-ref)/ref <= tol
}
