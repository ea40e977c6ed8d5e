// Package workspace implements the ordered, focus-tracking collection of
// split trees.
package workspace

import (
	"fmt"

	"pterminal/internal/splittree"
)

// ID identifies a workspace.
type ID uint64

// Workspace pairs a split tree with a name and an active-pane pointer.
// ActivePane is always a leaf of SplitTree; SetActivePane silently ignores
// an id that isn't.
type Workspace struct {
	ID         ID
	Name       string
	SplitTree  *splittree.Tree
	activePane splittree.PaneID
}

// newWorkspace creates a workspace containing a single pane.
func newWorkspace(id ID, pane splittree.PaneID) *Workspace {
	return &Workspace{
		ID:         id,
		Name:       fmt.Sprintf("Workspace %d", id),
		SplitTree:  splittree.New(pane),
		activePane: pane,
	}
}

// ActivePane returns the workspace's focused pane.
func (w *Workspace) ActivePane() splittree.PaneID { return w.activePane }

// SetActivePane focuses pane if it is a leaf of the split tree; otherwise a
// no-op.
func (w *Workspace) SetActivePane(pane splittree.PaneID) {
	if w.SplitTree.Contains(pane) {
		w.activePane = pane
	}
}

// PaneIDs returns every live pane in this workspace.
func (w *Workspace) PaneIDs() []splittree.PaneID {
	return w.SplitTree.PaneIDs()
}

// Manager is the ordered set of workspaces with one active at a time, plus
// the monotonic id allocators shared across all workspaces.
type Manager struct {
	workspaces      []*Workspace
	activeIndex     int
	nextWorkspaceID ID
	nextPaneID      splittree.PaneID
}

// NewManager creates a manager with a single workspace containing pane 0.
func NewManager() *Manager {
	ws := newWorkspace(0, 0)
	return &Manager{
		workspaces:      []*Workspace{ws},
		activeIndex:     0,
		nextWorkspaceID: 1,
		nextPaneID:      1,
	}
}

// AddWorkspace appends a new workspace (with one fresh pane) and focuses it.
func (m *Manager) AddWorkspace() (ID, splittree.PaneID) {
	wsID := m.nextWorkspaceID
	paneID := m.nextPaneID
	m.nextWorkspaceID++
	m.nextPaneID++
	m.workspaces = append(m.workspaces, newWorkspace(wsID, paneID))
	m.activeIndex = len(m.workspaces) - 1
	return wsID, paneID
}

// CloseWorkspace removes the workspace with the given id. Closing the last
// remaining workspace is forbidden and silently ignored.
func (m *Manager) CloseWorkspace(id ID) {
	if len(m.workspaces) <= 1 {
		return
	}
	for i, ws := range m.workspaces {
		if ws.ID != id {
			continue
		}
		m.workspaces = append(m.workspaces[:i], m.workspaces[i+1:]...)
		if m.activeIndex >= len(m.workspaces) {
			m.activeIndex = len(m.workspaces) - 1
		}
		return
	}
}

// SelectWorkspace focuses the workspace at idx, if in range.
func (m *Manager) SelectWorkspace(idx int) {
	if idx >= 0 && idx < len(m.workspaces) {
		m.activeIndex = idx
	}
}

// ActiveWorkspace returns the currently focused workspace.
func (m *Manager) ActiveWorkspace() *Workspace {
	return m.workspaces[m.activeIndex]
}

// WorkspaceCount returns the number of live workspaces.
func (m *Manager) WorkspaceCount() int { return len(m.workspaces) }

// ActiveIndex returns the index of the focused workspace.
func (m *Manager) ActiveIndex() int { return m.activeIndex }

// Workspaces returns the ordered, read-only workspace list.
func (m *Manager) Workspaces() []*Workspace { return m.workspaces }

// NextPaneID allocates a fresh pane id (used when splitting an existing
// pane).
func (m *Manager) NextPaneID() splittree.PaneID {
	id := m.nextPaneID
	m.nextPaneID++
	return id
}

// WorkspaceByID returns the workspace with the given id, or nil.
func (m *Manager) WorkspaceByID(id ID) *Workspace {
	for _, ws := range m.workspaces {
		if ws.ID == id {
			return ws
		}
	}
	return nil
}

// WorkspaceContaining returns the workspace whose split tree contains pane,
// or nil.
func (m *Manager) WorkspaceContaining(pane splittree.PaneID) *Workspace {
	for _, ws := range m.workspaces {
		if ws.SplitTree.Contains(pane) {
			return ws
		}
	}
	return nil
}

// RemovePaneEverywhere removes pane from whichever workspace holds it. If
// that workspace is left with no panes and it isn't the last workspace, the
// workspace is culled. Returns true if a pane was removed from any
// workspace.
func (m *Manager) RemovePaneEverywhere(pane splittree.PaneID) bool {
	removed := false
	for i := 0; i < len(m.workspaces); i++ {
		ws := m.workspaces[i]
		if !ws.SplitTree.Contains(pane) {
			continue
		}
		if ws.SplitTree.Remove(pane) {
			removed = true
		} else if len(ws.SplitTree.PaneIDs()) == 1 && len(m.workspaces) > 1 {
			// The only pane in this workspace just died; cull the
			// workspace itself rather than leaving a zombie leaf.
			m.CloseWorkspace(ws.ID)
			removed = true
			i--
		}
	}
	return removed
}
