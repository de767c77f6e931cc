package app

import (
	"image"
	"sort"

	"github.com/irfansharif/markup/internal/interact"
	"github.com/irfansharif/markup/internal/render"
)

// PanelID identifies an open panel for the lifetime of the process.
type PanelID int

// PanelView is one open diagram with its interaction state and GPU layer.
type PanelView struct {
	ID    PanelID         // unique identifier
	Name  string          // file name within the diagrams directory
	Path  string          // resolved path on disk
	Image image.Image     // decoded diagram at native resolution
	Panel *interact.Panel // viewport, annotations and input state
	Layer *render.Layer   // nil when running without a renderer
	Err   error           // last reload failure, cleared on success
	Dirty bool            // marks the scene for re-tessellation
	stale bool            // sidecar needs writing
}

// PanelManager manages the open panels.
type PanelManager struct {
	panels    map[PanelID]*PanelView // map of panel IDs to panels
	currentID PanelID                // ID of the focused panel
	nextID    PanelID                // next panel ID to assign
}

// NewPanelManager creates an empty panel manager.
func NewPanelManager() *PanelManager {
	return &PanelManager{
		panels:    make(map[PanelID]*PanelView),
		currentID: -1,
	}
}

// Add registers a panel, assigning it the next ID. The first panel added
// takes focus.
func (pm *PanelManager) Add(pv *PanelView) *PanelView {
	pv.ID = pm.nextID
	pv.Dirty = true // new panels always need upload
	pm.panels[pv.ID] = pv
	pm.nextID++
	if pm.currentID < 0 {
		pm.currentID = pv.ID
	}
	return pv
}

// Remove removes a panel by ID. Focus moves to the next panel if the
// focused one was removed.
func (pm *PanelManager) Remove(id PanelID) bool {
	if _, ok := pm.panels[id]; !ok {
		return false
	}
	delete(pm.panels, id)
	if pm.currentID == id {
		pm.currentID = -1
		pm.Iter(true)
	}
	return true
}

// Get returns the panel with the given ID.
func (pm *PanelManager) Get(id PanelID) *PanelView { return pm.panels[id] }

// ByName returns the panel showing the named diagram.
func (pm *PanelManager) ByName(name string) *PanelView {
	for _, pv := range pm.panels {
		if pv.Name == name {
			return pv
		}
	}
	return nil
}

// Panels returns all panels sorted by ID (ascending).
func (pm *PanelManager) Panels() []*PanelView {
	panels := make([]*PanelView, 0, len(pm.panels))
	for _, pv := range pm.panels {
		panels = append(panels, pv)
	}
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].ID < panels[j].ID })
	return panels
}

func (pm *PanelManager) Len() int { return len(pm.panels) }

// Current returns the focused panel, or nil if none is open.
func (pm *PanelManager) Current() *PanelView { return pm.panels[pm.currentID] }

// SetCurrent focuses the given panel.
func (pm *PanelManager) SetCurrent(pv *PanelView) {
	if pv == nil {
		pm.currentID = -1
	} else {
		pm.currentID = pv.ID
	}
}

// Iter moves focus to the next or previous panel in ID (creation) order,
// wrapping around.
func (pm *PanelManager) Iter(next bool) *PanelView {
	if len(pm.panels) == 0 {
		pm.currentID = -1
		return nil
	}

	direction := 1
	if !next {
		direction = -1
	}

	ids := make([]PanelID, 0, len(pm.panels))
	for id := range pm.panels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pos := -1
	for i, id := range ids {
		if id == pm.currentID {
			pos = i
			break
		}
	}
	var newPos int
	switch {
	case pos >= 0:
		newPos = (pos + direction + len(ids)) % len(ids)
	case next:
		newPos = 0 // no current panel, start from first or last
	default:
		newPos = len(ids) - 1
	}

	pm.currentID = ids[newPos]
	return pm.panels[pm.currentID]
}
