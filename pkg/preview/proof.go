// Package preview exports a proof sheet: one PDF page per annotated
// (document, page) pair, with every confirmed zone outlined and labeled, so an
// operator can review what a batch run will redact or overlay before
// submitting it.
package preview

import (
	"fmt"
	"io"
	"sort"

	"codeberg.org/go-pdf/fpdf"

	"github.com/pdfsan/annotate/pkg/annotate"
)

// WriteProofSheet renders every annotated page of the session to w. docNames
// maps file indices to display names; zones and actions are the annotation
// machine's tables. Redact zones are outlined in red, logo placements in blue.
func WriteProofSheet(w io.Writer, docNames []string, zones []annotate.Zone, actions map[int]annotate.Action) error {
	if len(zones) == 0 {
		return fmt.Errorf("no zones to preview")
	}

	byPage := make(map[[2]int][]annotate.Zone)
	for _, z := range zones {
		key := [2]int{z.FileIndex, z.Page}
		byPage[key] = append(byPage[key], z)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 9)

	for _, key := range annotatedOrder(zones) {
		pageZones := byPage[key]
		first := pageZones[0]

		wd, ht := pageSize(pageZones, first.Orientation == "Horizontal")
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: wd, Ht: ht})

		name := fmt.Sprintf("file %d", key[0])
		if key[0] >= 0 && key[0] < len(docNames) {
			name = docNames[key[0]]
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(20, 20, fmt.Sprintf("%s - page %d (%s %s)", name, key[1]+1, first.PaperClass, first.Orientation))

		for _, z := range pageZones {
			a := actions[z.ID]
			if a.Kind == annotate.ActionPlaceLogo {
				pdf.SetDrawColor(0, 0, 255)
				pdf.SetTextColor(0, 0, 255)
			} else {
				pdf.SetDrawColor(255, 0, 0)
				pdf.SetTextColor(255, 0, 0)
			}
			pdf.SetLineWidth(1)
			pdf.Rect(float64(z.Rect.X), float64(z.Rect.Y), float64(z.Rect.W), float64(z.Rect.H), "D")
			pdf.Text(float64(z.Rect.X)+2, float64(z.Rect.Y)+10, zoneLabel(z, a))
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("generate proof sheet: %w", err)
	}
	return nil
}

func zoneLabel(z annotate.Zone, a annotate.Action) string {
	if a.Kind == annotate.ActionPlaceLogo {
		if a.LogoKey == "" {
			return fmt.Sprintf("#%d logo (no asset)", z.ID)
		}
		return fmt.Sprintf("#%d logo", z.ID)
	}
	return fmt.Sprintf("#%d redact", z.ID)
}

// pageSize returns a page size that covers every zone on the page, so an
// outline is never drawn off-sheet even when zone units exceed the nominal
// paper dimensions.
func pageSize(zones []annotate.Zone, landscape bool) (wd, ht float64) {
	wd, ht = 595, 842
	if landscape {
		wd, ht = 842, 595
	}
	for _, z := range zones {
		if right := float64(z.Rect.X+z.Rect.W) + 20; right > wd {
			wd = right
		}
		if bottom := float64(z.Rect.Y+z.Rect.H) + 20; bottom > ht {
			ht = bottom
		}
	}
	return wd, ht
}

// annotatedOrder lists the (fileIndex, page) keys in file-then-page order.
func annotatedOrder(zones []annotate.Zone) [][2]int {
	seen := make(map[[2]int]bool)
	var keys [][2]int
	for _, z := range zones {
		key := [2]int{z.FileIndex, z.Page}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}
