package sanitize

import (
	"path"
	"sort"
	"strings"

	"github.com/pdfsan/annotate/pkg/annotate"
)

// File is one raw document forwarded to the service.
type File struct {
	Name string
	Data []byte
}

// Submission is everything one sanitization run needs. Zones carries the zone
// descriptors and the index-keyed image map built by the annotation machine;
// ManualTerms and Replacements come from the term-editing surface.
type Submission struct {
	Files        []File
	Zones        annotate.ZonePayload
	ManualTerms  []string
	Replacements map[string]string
	Secondary    bool
}

// Output is one sanitized document reference in the service response.
type Output struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ReportEntry flags the low-confidence pages of one output document. LowRects
// maps a 0-based page index to the rectangles the service could not match
// confidently on that page.
type ReportEntry struct {
	Document string               `json:"pdf"`
	LowRects map[int][][4]float64 `json:"low_rects"`
}

// Report is the service's low-confidence feedback across all documents of a
// run. An empty report means nothing needs a second pass.
type Report struct {
	Entries []ReportEntry
}

// Pages returns the flagged page indices of an entry in ascending order.
func (e ReportEntry) Pages() []int {
	pages := make([]int, 0, len(e.LowRects))
	for p := range e.LowRects {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// NormalizeDocKey reduces a document reference to its comparison key: base
// name, extension dropped, lowercased. Report entries and session documents
// are matched on this key.
func NormalizeDocKey(ref string) string {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return strings.ToLower(strings.TrimSpace(base))
}

// Result is the decoded service response for a submission.
type Result struct {
	Success    bool          `json:"success"`
	Error      string        `json:"error"`
	Outputs    []Output      `json:"outputs"`
	ZipURL     string        `json:"zip_url"`
	TemplateID string        `json:"template_id"`
	Client     string        `json:"client"`
	LowConf    []ReportEntry `json:"low_conf"`
}

// Report extracts the low-confidence report from a result.
func (r *Result) Report() Report {
	return Report{Entries: r.LowConf}
}
