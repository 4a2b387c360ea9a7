// Package annotate owns the rectangular zones an operator draws over rendered
// pages and the pointer-gesture state machine that creates them.
//
// A gesture runs Idle -> Drawing -> PendingConfirm -> Idle. The in-progress
// draft lives in surface pixels; a confirmed zone is converted to document
// space and tagged with the page metadata in effect at confirm time, so it
// stays valid across zoom changes and re-renders. Zone geometry and zone
// disposition (redact vs. logo placement) are kept in two separate tables so
// either can change without touching the other.
package annotate

import (
	"fmt"
	"sort"

	"github.com/pdfsan/annotate/pkg/geom"
	"github.com/pdfsan/annotate/pkg/pagerender"
)

// State identifies where the drawing state machine is.
type State int

// Machine states.
const (
	StateIdle State = iota
	StateDrawing
	StatePendingConfirm
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDrawing:
		return "Drawing"
	case StatePendingConfirm:
		return "PendingConfirm"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MinGesturePx is the minimum draft width and height, in surface pixels, for a
// pointer-up to count as a deliberate gesture. Anything smaller is discarded
// as accidental.
const MinGesturePx = 4

// ActionKind says what the sanitization service should do with a zone.
type ActionKind int

// Zone dispositions.
const (
	ActionRedact ActionKind = iota
	ActionPlaceLogo
)

// Action is the disposition attached to a zone. LogoKey is the external asset
// store reference and only meaningful for ActionPlaceLogo; a logo action
// without a resolved key is incomplete and is skipped at submission time.
type Action struct {
	Kind    ActionKind
	LogoKey string
}

// Zone is a confirmed rectangle. Geometry is in document-space points at the
// page's native scale. Zones are created only on explicit confirm and removed
// only on explicit deletion.
type Zone struct {
	ID          int
	Rect        geom.Rect // document space, always positive area
	FileIndex   int
	Page        int // 0-based
	PaperClass  pagerender.PaperClass
	Orientation pagerender.Orientation
}

// Machine drives the draw/confirm/cancel lifecycle and stores the results.
// All transitions happen synchronously inside the triggering call; there is at
// most one draft system-wide.
type Machine struct {
	state  State
	anchor geom.Point
	cursor geom.Point
	prompt geom.Point

	// Active page context, snapshotted into each zone at confirm time.
	fileIndex          int
	meta               *pagerender.PageMetadata
	surfaceW, surfaceH int

	zones   []Zone
	actions map[int]Action
	nextID  int
}

// NewMachine returns an idle machine with no page context. Drawing stays
// disabled until SetPage provides metadata for a rendered page.
func NewMachine() *Machine {
	return &Machine{
		actions: make(map[int]Action),
		nextID:  1,
	}
}

// State returns the current machine state.
func (m *Machine) State() State {
	return m.state
}

// SetPage points the machine at the currently rendered page. Any in-flight
// gesture is cancelled unconditionally: the draft is owned by the active
// (document, page) pair and does not survive navigation.
func (m *Machine) SetPage(fileIndex int, meta *pagerender.PageMetadata, surfaceW, surfaceH int) {
	m.CancelGesture()
	m.fileIndex = fileIndex
	m.meta = meta
	m.surfaceW = surfaceW
	m.surfaceH = surfaceH
}

// CancelGesture drops any draft and returns the machine to Idle. No zone is
// created.
func (m *Machine) CancelGesture() {
	m.state = StateIdle
}

// PointerDown starts a gesture at p in surface pixels. It is ignored while a
// gesture is already in flight (gestures do not nest) and while no page
// metadata is set (drawing is disabled until a page has rendered).
func (m *Machine) PointerDown(p geom.Point) {
	if m.state != StateIdle || m.meta == nil {
		return
	}
	m.state = StateDrawing
	m.anchor = p
	m.cursor = p
}

// PointerMove updates the draft while drawing. The draft is always the
// axis-aligned bounding box of the anchor and the current pointer position.
func (m *Machine) PointerMove(p geom.Point) {
	if m.state != StateDrawing {
		return
	}
	m.cursor = p
}

// PointerUp ends the gesture. Drafts below MinGesturePx in either dimension
// are silently discarded; otherwise the draft freezes and the machine waits
// for Confirm or Cancel with a prompt clamped inside the visible surface.
func (m *Machine) PointerUp(p geom.Point) {
	if m.state != StateDrawing {
		return
	}
	m.cursor = p
	draft := geom.FromCorners(m.anchor, m.cursor)
	if draft.W < MinGesturePx || draft.H < MinGesturePx {
		m.state = StateIdle
		return
	}
	m.state = StatePendingConfirm
	m.prompt = m.clampPrompt(p)
}

// Draft returns the current draft rectangle in surface pixels. It exists only
// between a pointer-down and its confirm/cancel.
func (m *Machine) Draft() (geom.Rect, bool) {
	if m.state != StateDrawing && m.state != StatePendingConfirm {
		return geom.Rect{}, false
	}
	return geom.FromCorners(m.anchor, m.cursor), true
}

// PromptPos is where the confirm/cancel prompt should appear: near the
// gesture's end point, never partially off-edge.
func (m *Machine) PromptPos() (geom.Point, bool) {
	if m.state != StatePendingConfirm {
		return geom.Point{}, false
	}
	return m.prompt, true
}

// promptSize is the footprint reserved for the confirm/cancel prompt when
// clamping it into the surface.
const (
	promptW = 96
	promptH = 40
)

func (m *Machine) clampPrompt(p geom.Point) geom.Point {
	r := geom.ClampInto(geom.Rect{X: p.X, Y: p.Y, W: promptW, H: promptH}, m.surfaceW, m.surfaceH)
	return geom.Point{X: r.X, Y: r.Y}
}

// Confirm converts the frozen draft into a zone: document-space geometry, a
// fresh id, and the active file index and page metadata snapshotted now. The
// new zone gets a default Redact action.
func (m *Machine) Confirm() (Zone, bool) {
	if m.state != StatePendingConfirm || m.meta == nil {
		return Zone{}, false
	}
	draft := geom.FromCorners(m.anchor, m.cursor)
	docRect := geom.ToDocumentSpace(draft, m.surfaceW, m.surfaceH,
		int(m.meta.WidthPts), int(m.meta.HeightPts))
	if !docRect.IsValid() {
		// A >=4px draft can only degenerate through pathological scale
		// ratios; treat it like an accidental gesture.
		m.state = StateIdle
		return Zone{}, false
	}

	z := Zone{
		ID:          m.nextID,
		Rect:        docRect,
		FileIndex:   m.fileIndex,
		Page:        m.meta.PageNumber,
		PaperClass:  m.meta.PaperClass,
		Orientation: m.meta.Orientation,
	}
	m.nextID++
	m.zones = append(m.zones, z)
	m.actions[z.ID] = Action{Kind: ActionRedact}
	m.state = StateIdle
	return z, true
}

// Cancel discards the frozen draft without creating a zone.
func (m *Machine) Cancel() {
	if m.state != StatePendingConfirm {
		return
	}
	m.state = StateIdle
}

// Zones returns all confirmed zones in creation order, regardless of which
// page is displayed. Every one of them is submitted at batch-run time.
func (m *Machine) Zones() []Zone {
	out := make([]Zone, len(m.zones))
	copy(out, m.zones)
	return out
}

// VisibleZones returns the zones to overlay right now: exact matches on the
// active file index and page, nothing else.
func (m *Machine) VisibleZones(fileIndex, page int) []Zone {
	var out []Zone
	for _, z := range m.zones {
		if z.FileIndex == fileIndex && z.Page == page {
			out = append(out, z)
		}
	}
	return out
}

// Action returns the disposition for a zone id.
func (m *Machine) Action(id int) (Action, bool) {
	a, ok := m.actions[id]
	return a, ok
}

// Actions returns a copy of the disposition table.
func (m *Machine) Actions() map[int]Action {
	out := make(map[int]Action, len(m.actions))
	for id, a := range m.actions {
		out[id] = a
	}
	return out
}

// SetAction changes a zone's disposition without touching its geometry.
func (m *Machine) SetAction(id int, a Action) error {
	if _, ok := m.actions[id]; !ok {
		return fmt.Errorf("no zone with id %d", id)
	}
	m.actions[id] = a
	return nil
}

// Remove deletes a zone and its action. Ids are never reused.
func (m *Machine) Remove(id int) bool {
	for i, z := range m.zones {
		if z.ID == id {
			m.zones = append(m.zones[:i], m.zones[i+1:]...)
			delete(m.actions, id)
			return true
		}
	}
	return false
}

// Clear drops every zone and action, for example when the active document set
// is replaced wholesale.
func (m *Machine) Clear() {
	m.zones = nil
	m.actions = make(map[int]Action)
	m.CancelGesture()
}

// AnnotatedPages lists the (fileIndex, page) pairs that carry at least one
// zone, sorted by file then page.
func (m *Machine) AnnotatedPages() [][2]int {
	seen := make(map[[2]int]bool)
	for _, z := range m.zones {
		seen[[2]int{z.FileIndex, z.Page}] = true
	}
	out := make([][2]int, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
