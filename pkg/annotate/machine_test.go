package annotate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pdfsan/annotate/pkg/geom"
	"github.com/pdfsan/annotate/pkg/pagerender"
)

func pageMeta(page int) *pagerender.PageMetadata {
	return &pagerender.PageMetadata{
		PageNumber:  page,
		WidthPts:    2100,
		HeightPts:   2970,
		PaperClass:  pagerender.PaperA4,
		Orientation: pagerender.Vertical,
		TotalPages:  5,
	}
}

// newTestMachine returns a machine pointed at a 700x990 surface, a one-third
// scale rendering of an A4 page.
func newTestMachine(fileIndex, page int) *Machine {
	m := NewMachine()
	m.SetPage(fileIndex, pageMeta(page), 700, 990)
	return m
}

func drawRect(m *Machine, a, b geom.Point) {
	m.PointerDown(a)
	m.PointerMove(geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2})
	m.PointerUp(b)
}

func TestGestureConfirmCreatesZone(t *testing.T) {
	m := newTestMachine(0, 2)
	drawRect(m, geom.Point{X: 100, Y: 100}, geom.Point{X: 200, Y: 150})

	if m.State() != StatePendingConfirm {
		t.Fatalf("state after pointer-up = %v, want PendingConfirm", m.State())
	}
	z, ok := m.Confirm()
	if !ok {
		t.Fatal("Confirm failed")
	}
	if m.State() != StateIdle {
		t.Errorf("state after confirm = %v, want Idle", m.State())
	}
	if !z.Rect.IsValid() {
		t.Errorf("confirmed zone has non-positive area: %+v", z.Rect)
	}
	if z.FileIndex != 0 || z.Page != 2 {
		t.Errorf("zone keyed to (%d,%d), want (0,2)", z.FileIndex, z.Page)
	}
	if z.PaperClass != pagerender.PaperA4 || z.Orientation != pagerender.Vertical {
		t.Errorf("zone metadata = %s/%s, want A4/Vertical", z.PaperClass, z.Orientation)
	}

	// Zone geometry is stored at native scale: a 100x50 px draft on a
	// one-third scale surface is 300x150 document points.
	back := geom.ToSurfaceSpace(z.Rect, 700, 990, 2100, 2970)
	want := geom.Rect{X: 100, Y: 100, W: 100, H: 50}
	if absInt(back.X-want.X) > 1 || absInt(back.Y-want.Y) > 1 ||
		absInt(back.W-want.W) > 1 || absInt(back.H-want.H) > 1 {
		t.Errorf("round trip drifted: drew %+v, got back %+v", want, back)
	}

	a, ok := m.Action(z.ID)
	if !ok || a.Kind != ActionRedact {
		t.Errorf("new zone action = %+v, want default Redact", a)
	}
}

func TestDragDirectionIrrelevant(t *testing.T) {
	corners := [][2]geom.Point{
		{{X: 100, Y: 100}, {X: 200, Y: 150}},
		{{X: 200, Y: 150}, {X: 100, Y: 100}},
		{{X: 100, Y: 150}, {X: 200, Y: 100}},
		{{X: 200, Y: 100}, {X: 100, Y: 150}},
	}
	var want geom.Rect
	for i, c := range corners {
		m := newTestMachine(0, 0)
		drawRect(m, c[0], c[1])
		z, ok := m.Confirm()
		if !ok {
			t.Fatalf("drag %d: confirm failed", i)
		}
		if i == 0 {
			want = z.Rect
			continue
		}
		if z.Rect != want {
			t.Errorf("drag %d: rect %+v differs from %+v", i, z.Rect, want)
		}
	}
}

func TestTinyGestureDiscarded(t *testing.T) {
	tests := []struct {
		name string
		end  geom.Point
	}{
		{"zero size", geom.Point{X: 100, Y: 100}},
		{"narrow", geom.Point{X: 103, Y: 200}},
		{"short", geom.Point{X: 200, Y: 103}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(0, 0)
			m.PointerDown(geom.Point{X: 100, Y: 100})
			m.PointerUp(tt.end)
			if m.State() != StateIdle {
				t.Errorf("state = %v, want Idle (gesture discarded)", m.State())
			}
			if n := len(m.Zones()); n != 0 {
				t.Errorf("got %d zones, want 0", n)
			}
		})
	}
}

func TestNestedPointerDownIgnored(t *testing.T) {
	m := newTestMachine(0, 0)
	m.PointerDown(geom.Point{X: 100, Y: 100})
	m.PointerDown(geom.Point{X: 400, Y: 400}) // must not restart the gesture
	m.PointerUp(geom.Point{X: 180, Y: 160})
	z, ok := m.Confirm()
	if !ok {
		t.Fatal("confirm failed")
	}
	back := geom.ToSurfaceSpace(z.Rect, 700, 990, 2100, 2970)
	if back.X > 101 || back.Y > 101 {
		t.Errorf("anchor moved by nested pointer-down: %+v", back)
	}
}

func TestDrawingDisabledWithoutMetadata(t *testing.T) {
	m := NewMachine()
	m.PointerDown(geom.Point{X: 10, Y: 10})
	if m.State() != StateIdle {
		t.Errorf("state = %v, want Idle while metadata is unset", m.State())
	}
}

func TestPageChangeMidDrawClearsDraft(t *testing.T) {
	m := newTestMachine(0, 0)
	m.PointerDown(geom.Point{X: 100, Y: 100})
	m.PointerMove(geom.Point{X: 300, Y: 300})

	m.SetPage(0, pageMeta(1), 700, 990)

	if m.State() != StateIdle {
		t.Errorf("state after page change = %v, want Idle", m.State())
	}
	if _, ok := m.Draft(); ok {
		t.Error("draft survived page change")
	}
	if n := len(m.Zones()); n != 0 {
		t.Errorf("page change added %d zones", n)
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	m := newTestMachine(0, 0)
	drawRect(m, geom.Point{X: 10, Y: 10}, geom.Point{X: 60, Y: 60})
	m.Cancel()
	if m.State() != StateIdle {
		t.Errorf("state = %v, want Idle", m.State())
	}
	if n := len(m.Zones()); n != 0 {
		t.Errorf("cancel created %d zones", n)
	}
}

func TestPromptClampedInsideSurface(t *testing.T) {
	m := newTestMachine(0, 0)
	// Finish the gesture in the bottom-right corner of the 700x990 surface.
	drawRect(m, geom.Point{X: 600, Y: 900}, geom.Point{X: 699, Y: 989})
	p, ok := m.PromptPos()
	if !ok {
		t.Fatal("no prompt position")
	}
	if p.X+promptW > 700 || p.Y+promptH > 990 || p.X < 0 || p.Y < 0 {
		t.Errorf("prompt at %+v extends past the surface", p)
	}
}

func confirmZoneAt(t *testing.T, m *Machine, fileIndex, page int) Zone {
	t.Helper()
	m.SetPage(fileIndex, pageMeta(page), 700, 990)
	drawRect(m, geom.Point{X: 50, Y: 50}, geom.Point{X: 150, Y: 120})
	z, ok := m.Confirm()
	if !ok {
		t.Fatal("confirm failed")
	}
	return z
}

func TestVisibleZonesExactMatch(t *testing.T) {
	m := NewMachine()
	z := confirmZoneAt(t, m, 0, 2)

	for _, key := range [][2]int{{0, 0}, {1, 2}, {2, 0}} {
		if got := m.VisibleZones(key[0], key[1]); len(got) != 0 {
			t.Errorf("zone visible on (%d,%d): %v", key[0], key[1], got)
		}
	}
	got := m.VisibleZones(0, 2)
	if len(got) != 1 || got[0].ID != z.ID {
		t.Errorf("VisibleZones(0,2) = %v, want just zone %d", got, z.ID)
	}
	// Invisible elsewhere but still retained for submission.
	if n := len(m.Zones()); n != 1 {
		t.Errorf("Zones() has %d entries, want 1", n)
	}
}

func TestZoneIDsNeverReused(t *testing.T) {
	m := NewMachine()
	z1 := confirmZoneAt(t, m, 0, 0)
	if !m.Remove(z1.ID) {
		t.Fatal("remove failed")
	}
	z2 := confirmZoneAt(t, m, 0, 0)
	if z2.ID == z1.ID {
		t.Errorf("id %d reused after deletion", z1.ID)
	}
}

func TestSetActionKeepsGeometry(t *testing.T) {
	m := NewMachine()
	z := confirmZoneAt(t, m, 0, 0)
	if err := m.SetAction(z.ID, Action{Kind: ActionPlaceLogo, LogoKey: "assets/logos/x.png"}); err != nil {
		t.Fatal(err)
	}
	got := m.Zones()[0]
	if got.Rect != z.Rect {
		t.Errorf("geometry changed by SetAction: %+v != %+v", got.Rect, z.Rect)
	}
	if err := m.SetAction(99, Action{}); err == nil {
		t.Error("SetAction on unknown id succeeded")
	}
}

func TestBuildZonePayloadSkipsUnresolvedLogo(t *testing.T) {
	m := NewMachine()
	confirmZoneAt(t, m, 0, 0)
	z2 := confirmZoneAt(t, m, 0, 1)
	if err := m.SetAction(z2.ID, Action{Kind: ActionPlaceLogo}); err != nil {
		t.Fatal(err)
	}

	p := m.BuildSubmission()
	if len(p.Zones) != 2 {
		t.Fatalf("zone list has %d entries, want 2 (logo zone must not be dropped)", len(p.Zones))
	}
	if len(p.ImageMap) != 0 {
		t.Errorf("image map has %d entries, want 0 for unresolved logo", len(p.ImageMap))
	}
	if len(p.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1 skip warning", len(p.Warnings))
	}
}

func TestBuildZonePayloadResolvedLogo(t *testing.T) {
	m := NewMachine()
	confirmZoneAt(t, m, 0, 0)
	z2 := confirmZoneAt(t, m, 1, 3)
	if err := m.SetAction(z2.ID, Action{Kind: ActionPlaceLogo, LogoKey: "assets/logos/acme.png"}); err != nil {
		t.Fatal(err)
	}

	p := m.BuildSubmission()
	wantMap := map[int]string{1: "assets/logos/acme.png"}
	if diff := cmp.Diff(wantMap, p.ImageMap); diff != "" {
		t.Errorf("image map mismatch (-want +got):\n%s", diff)
	}
	if p.Zones[1].FileIndex != 1 || p.Zones[1].Page != 3 {
		t.Errorf("descriptor keyed to (%d,%d), want (1,3)", p.Zones[1].FileIndex, p.Zones[1].Page)
	}
	b := p.Zones[0].BBox
	if b[2] <= b[0] || b[3] <= b[1] {
		t.Errorf("bbox not in [x0,y0,x1,y1] corner form: %v", b)
	}
}

func TestAnnotatedPagesSorted(t *testing.T) {
	m := NewMachine()
	confirmZoneAt(t, m, 1, 2)
	confirmZoneAt(t, m, 0, 3)
	confirmZoneAt(t, m, 0, 1)

	want := [][2]int{{0, 1}, {0, 3}, {1, 2}}
	if diff := cmp.Diff(want, m.AnnotatedPages()); diff != "" {
		t.Errorf("AnnotatedPages mismatch (-want +got):\n%s", diff)
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
