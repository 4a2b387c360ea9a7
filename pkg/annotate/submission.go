package annotate

import "fmt"

// ZoneDescriptor is the wire form of one zone, as the sanitization service
// expects it: corner-coordinate bbox in document points, 0-based page, and the
// index of the file it belongs to.
type ZoneDescriptor struct {
	Page        int    `json:"page"`
	BBox        [4]int `json:"bbox"`
	Paper       string `json:"paper"`
	Orientation string `json:"orientation"`
	FileIndex   int    `json:"file_idx"`
}

// ZonePayload is the zone part of a submission. ImageMap is keyed by position
// in Zones, not by zone id, and holds only logo placements whose asset key has
// been resolved. Incomplete logo zones stay in Zones and are reported in
// Warnings: they are skipped from the image map, never silently dropped from
// the zone list.
type ZonePayload struct {
	Zones    []ZoneDescriptor
	ImageMap map[int]string
	Warnings []string
}

// BuildZonePayload flattens the zone and action tables into wire form.
func BuildZonePayload(zones []Zone, actions map[int]Action) ZonePayload {
	p := ZonePayload{
		Zones:    make([]ZoneDescriptor, 0, len(zones)),
		ImageMap: make(map[int]string),
	}
	for i, z := range zones {
		p.Zones = append(p.Zones, ZoneDescriptor{
			Page:        z.Page,
			BBox:        z.Rect.BBox(),
			Paper:       string(z.PaperClass),
			Orientation: string(z.Orientation),
			FileIndex:   z.FileIndex,
		})
		a, ok := actions[z.ID]
		if !ok || a.Kind != ActionPlaceLogo {
			continue
		}
		if a.LogoKey == "" {
			p.Warnings = append(p.Warnings,
				fmt.Sprintf("zone %d: logo placement has no uploaded asset, skipping its image mapping", z.ID))
			continue
		}
		p.ImageMap[i] = a.LogoKey
	}
	return p
}

// BuildSubmission is a convenience that reads the machine's own tables.
func (m *Machine) BuildSubmission() ZonePayload {
	return BuildZonePayload(m.zones, m.actions)
}
