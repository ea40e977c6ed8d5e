package orchestrator

import (
	"fmt"
	"strings"

	"pterminal/internal/splittree"
	"pterminal/internal/workspace"
)

// WorkspaceInfo is a read-only snapshot of one workspace for IPC listing.
type WorkspaceInfo struct {
	ID     workspace.ID
	Name   string
	Panes  []splittree.PaneID
	Active bool
}

// PaneInfo is a read-only snapshot of one pane for IPC listing.
type PaneInfo struct {
	ID          splittree.PaneID
	WorkspaceID workspace.ID
	Title       string
	Dead        bool
	Active      bool
}

// ListWorkspaces returns every workspace, in display order.
func (o *Orchestrator) ListWorkspaces() []WorkspaceInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	active := o.workspaces.ActiveWorkspace()
	out := make([]WorkspaceInfo, 0, o.workspaces.WorkspaceCount())
	for _, ws := range o.workspaces.Workspaces() {
		out = append(out, WorkspaceInfo{
			ID:     ws.ID,
			Name:   ws.Name,
			Panes:  ws.PaneIDs(),
			Active: ws.ID == active.ID,
		})
	}
	return out
}

// NewWorkspace creates a new workspace with a fresh pane running the
// configured shell, and focuses it.
func (o *Orchestrator) NewWorkspace() (workspace.ID, splittree.PaneID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	wsID, paneID := o.workspaces.AddWorkspace()
	pane, err := o.newPane(paneID, defaultRows, defaultCols, "")
	if err != nil {
		o.workspaces.CloseWorkspace(wsID)
		return 0, 0, fmt.Errorf("new workspace: %w", err)
	}
	o.panes[paneID] = pane
	return wsID, paneID, nil
}

// CloseWorkspace closes the workspace with the given id, killing every pane
// it holds. Closing the only remaining workspace is a no-op (matches
// workspace.Manager.CloseWorkspace).
func (o *Orchestrator) CloseWorkspace(id workspace.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ws := o.workspaces.WorkspaceByID(id)
	if ws == nil || o.workspaces.WorkspaceCount() <= 1 {
		return
	}
	for _, paneID := range ws.PaneIDs() {
		o.closePaneLocked(paneID)
	}
}

// SelectWorkspaceByID focuses the workspace with the given id, if it exists.
func (o *Orchestrator) SelectWorkspaceByID(id workspace.ID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, ws := range o.workspaces.Workspaces() {
		if ws.ID == id {
			o.workspaces.SelectWorkspace(i)
			return nil
		}
	}
	return fmt.Errorf("workspace %d not found", id)
}

// SelectWorkspaceByIndex focuses the workspace at idx.
func (o *Orchestrator) SelectWorkspaceByIndex(idx int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if idx < 0 || idx >= o.workspaces.WorkspaceCount() {
		return fmt.Errorf("workspace index %d out of range", idx)
	}
	o.workspaces.SelectWorkspace(idx)
	return nil
}

// ListPanes returns every pane across every workspace.
func (o *Orchestrator) ListPanes() []PaneInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	active := o.workspaces.ActiveWorkspace()
	var out []PaneInfo
	for _, ws := range o.workspaces.Workspaces() {
		for _, id := range ws.PaneIDs() {
			pane := o.panes[id]
			info := PaneInfo{ID: id, WorkspaceID: ws.ID, Active: ws.ID == active.ID && id == ws.ActivePane()}
			if pane != nil {
				info.Title = pane.title
				info.Dead = pane.dead
			}
			out = append(out, info)
		}
	}
	return out
}

// resolvePane returns id if non-nil, else the active workspace's active
// pane.
func (o *Orchestrator) resolvePane(id *splittree.PaneID) splittree.PaneID {
	if id != nil {
		return *id
	}
	return o.workspaces.ActiveWorkspace().ActivePane()
}

// SendText writes text to the pane named by id, or the active pane if id is
// nil.
func (o *Orchestrator) SendText(id *splittree.PaneID, text string) error {
	o.mu.Lock()
	pane, ok := o.panes[o.resolvePane(id)]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("pane not found")
	}
	if pane.dead || pane.pty == nil {
		return fmt.Errorf("pane %d is not alive", pane.ID)
	}
	pane.pty.Write([]byte(text))
	return nil
}

// ReadScreen returns the plain-text content of the pane's current viewport,
// one line per row.
func (o *Orchestrator) ReadScreen(id *splittree.PaneID) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pane, ok := o.panes[o.resolvePane(id)]
	if !ok {
		return "", fmt.Errorf("pane not found")
	}
	var b strings.Builder
	for _, line := range pane.shaper.Lines() {
		b.WriteString(line.Text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// CellSnapshot is one cell in a pane.capture response: full fidelity
// (including color), unlike the plain-text pane.read_screen.
type CellSnapshot struct {
	Text string
	FG   [3]uint8
	BG   [3]uint8
	Bold bool
}

// CapturePane returns the pane's current viewport as a full-fidelity
// per-cell snapshot (color and attributes included), for screenshot/tooling
// consumers that need more than read_screen's plain text.
func (o *Orchestrator) CapturePane(id *splittree.PaneID) ([][]CellSnapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pane, ok := o.panes[o.resolvePane(id)]
	if !ok {
		return nil, fmt.Errorf("pane not found")
	}

	rows := make([][]CellSnapshot, len(pane.gridCache))
	for i, row := range pane.gridCache {
		cells := make([]CellSnapshot, 0, len(row.Cells))
		for _, c := range row.Cells {
			if c.WideSpacer {
				continue
			}
			cells = append(cells, CellSnapshot{
				Text: string(c.Codepoint),
				FG:   [3]uint8{c.FG.R, c.FG.G, c.FG.B},
				BG:   [3]uint8{c.BG.R, c.BG.G, c.BG.B},
				Bold: c.Bold,
			})
		}
		rows[i] = cells
	}
	return rows, nil
}
