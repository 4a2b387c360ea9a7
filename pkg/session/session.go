// Package session manages which documents the annotation engine is working
// on: the primary upload set, the secondary set fetched after a low-confidence
// report, and the active document/page cursor. Navigation always invalidates
// the in-progress drawing gesture; the draft belongs to the active page alone.
package session

import (
	"strings"

	"github.com/pdfsan/annotate/pkg/annotate"
	"github.com/pdfsan/annotate/pkg/pagerender"
	"github.com/pdfsan/annotate/pkg/sanitize"
)

// Session owns the active document sets and the navigation cursor.
type Session struct {
	machine *annotate.Machine

	primary   []*pagerender.Document
	secondary []*pagerender.Document

	originClient string
	report       sanitize.Report
	hasReport    bool

	activeDoc  int
	activePage int
}

// New creates a session bound to an annotation machine. The machine's gesture
// is cancelled on every navigation.
func New(machine *annotate.Machine) *Session {
	return &Session{machine: machine}
}

// SetPrimary replaces the primary upload set and resets navigation.
func (s *Session) SetPrimary(docs []*pagerender.Document) {
	s.primary = docs
	s.resetCursor()
}

// AddDocument appends to the primary upload set.
func (s *Session) AddDocument(doc *pagerender.Document) {
	s.primary = append(s.primary, doc)
}

// InSecondary reports whether the secondary set is currently active.
func (s *Session) InSecondary() bool {
	return len(s.secondary) > 0
}

// ActiveDocuments returns the set the renderer and annotation machine see:
// the secondary set while it is non-empty, the primary set otherwise. The
// switch back to primary is a state transition, not a mode toggle; emptying
// the secondary set reverts automatically.
func (s *Session) ActiveDocuments() []*pagerender.Document {
	if s.InSecondary() {
		return s.secondary
	}
	return s.primary
}

// ActiveDocument returns the document under the cursor.
func (s *Session) ActiveDocument() (*pagerender.Document, bool) {
	docs := s.ActiveDocuments()
	if s.activeDoc < 0 || s.activeDoc >= len(docs) {
		return nil, false
	}
	return docs[s.activeDoc], true
}

// Cursor returns the active document index and page index.
func (s *Session) Cursor() (doc, page int) {
	return s.activeDoc, s.activePage
}

// SetActiveDocument moves the cursor to another document, resetting the page
// to 0 and dropping any in-progress draft.
func (s *Session) SetActiveDocument(i int) {
	docs := s.ActiveDocuments()
	if i < 0 {
		i = 0
	}
	if len(docs) > 0 && i >= len(docs) {
		i = len(docs) - 1
	}
	s.activeDoc = i
	s.activePage = 0
	s.cancelDraft()
}

// SetActivePage moves the cursor to another page of the active document.
// Out-of-range requests are clamped, and the draft is dropped.
func (s *Session) SetActivePage(p int) {
	if p < 0 {
		p = 0
	}
	if doc, ok := s.ActiveDocument(); ok && doc.Load() == nil {
		p = doc.ClampPage(p)
	}
	s.activePage = p
	s.cancelDraft()
}

// SwitchToSecondary replaces the active set with the re-fetched low-confidence
// documents. An empty document list is a no-op: the engine never enters an
// empty secondary set.
func (s *Session) SwitchToSecondary(docs []*pagerender.Document, originClient string, report sanitize.Report) {
	if len(docs) == 0 {
		return
	}
	s.secondary = docs
	s.originClient = originClient
	s.report = report
	s.hasReport = true
	s.resetCursor()
}

// RemoveDocument removes a document from the active set. Removing the last
// secondary document reverts ActiveDocuments to the primary set on the next
// read and discards the consumed report.
func (s *Session) RemoveDocument(i int) {
	if s.InSecondary() {
		s.secondary = removeAt(s.secondary, i)
		if len(s.secondary) == 0 {
			s.report = sanitize.Report{}
			s.hasReport = false
			s.originClient = ""
			s.resetCursor()
			return
		}
	} else {
		s.primary = removeAt(s.primary, i)
	}
	if n := len(s.ActiveDocuments()); s.activeDoc >= n && n > 0 {
		s.activeDoc = n - 1
	}
	if s.activeDoc < 0 {
		s.activeDoc = 0
	}
	s.activePage = 0
	s.cancelDraft()
}

// Report returns the low-confidence report behind the current secondary set.
func (s *Session) Report() (sanitize.Report, bool) {
	return s.report, s.hasReport
}

// OriginClient names the client whose submission produced the secondary set.
func (s *Session) OriginClient() string {
	return s.originClient
}

// LowConfidencePagesFor maps a document to the page indices the report flagged
// for it. The document's name is matched after stripping exactly one trailing
// "_sanitized" from its stem; a name with no report entry yields an empty set,
// which is a lookup miss, not an error.
func (s *Session) LowConfidencePagesFor(doc *pagerender.Document) []int {
	if !s.hasReport || doc == nil {
		return nil
	}
	key := sanitize.NormalizeDocKey(doc.Name)
	key = strings.TrimSuffix(key, "_sanitized")
	for _, entry := range s.report.Entries {
		if sanitize.NormalizeDocKey(entry.Document) == key {
			return entry.Pages()
		}
	}
	return nil
}

func (s *Session) resetCursor() {
	s.activeDoc = 0
	s.activePage = 0
	s.cancelDraft()
}

func (s *Session) cancelDraft() {
	if s.machine != nil {
		s.machine.CancelGesture()
	}
}

func removeAt(docs []*pagerender.Document, i int) []*pagerender.Document {
	if i < 0 || i >= len(docs) {
		return docs
	}
	return append(docs[:i], docs[i+1:]...)
}
