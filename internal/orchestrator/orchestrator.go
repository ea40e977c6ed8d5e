// Package orchestrator ties the PTY, emulator, split tree, workspace
// manager, shaper, and background-span builder into a per-frame pipeline,
// gating render-on-output across N panes spanning M workspaces.
package orchestrator

import (
	"fmt"
	"sync"

	"pterminal/internal/bgspan"
	"pterminal/internal/notify"
	"pterminal/internal/ptyio"
	"pterminal/internal/shaper"
	"pterminal/internal/splittree"
	"pterminal/internal/vte"
	"pterminal/internal/workspace"
)

const (
	defaultRows = 24
	defaultCols = 80
)

// Pane bundles one pane's PTY, emulator, and per-pane render caches.
type Pane struct {
	ID splittree.PaneID

	pty      *ptyio.Handle
	emulator *vte.Emulator
	shaper   *shaper.PaneShaper
	bg       *bgspan.Builder

	gridCache []vte.GridLine
	title     string
	dead      bool
	exitErr   error
}

// Title returns the pane's title.
func (p *Pane) Title() string { return p.title }

// Dead reports whether this pane's child process has exited and the pane is
// pending reap.
func (p *Pane) Dead() bool { return p.dead }

// PaneFrame is one pane's prepared-for-render state for the current frame.
type PaneFrame struct {
	Pane      splittree.PaneID
	Rect      splittree.Rect
	Lines     []shaper.Line
	BG        []bgspan.Rect
	Cursor    vte.Cursor
	ShowCursor bool
	Dead      bool
}

// Orchestrator owns every workspace, pane, and the shared notification
// store, and drives the per-frame layout → extract → shape pipeline.
type Orchestrator struct {
	mu sync.Mutex

	workspaces *workspace.Manager
	panes      map[splittree.PaneID]*Pane
	theme      vte.Theme
	notify     *notify.Store

	shellCmd  string
	shellArgs []string
}

// New creates an orchestrator with one workspace containing one freshly
// spawned pane running shellCmd.
func New(theme vte.Theme, shellCmd string, shellArgs []string) (*Orchestrator, error) {
	o := &Orchestrator{
		workspaces: workspace.NewManager(),
		panes:      make(map[splittree.PaneID]*Pane),
		theme:      theme,
		notify:     notify.New(),
		shellCmd:   shellCmd,
		shellArgs:  shellArgs,
	}

	ws := o.workspaces.ActiveWorkspace()
	pane, err := o.newPane(ws.ActivePane(), defaultRows, defaultCols, "")
	if err != nil {
		return nil, fmt.Errorf("spawn initial pane: %w", err)
	}
	o.panes[pane.ID] = pane
	return o, nil
}

// Notify returns the shared notification store.
func (o *Orchestrator) Notify() *notify.Store { return o.notify }

func (o *Orchestrator) newPane(id splittree.PaneID, rows, cols int, cwd string) (*Pane, error) {
	p := &Pane{
		ID:       id,
		emulator: vte.New(rows, cols, o.theme),
		shaper:   shaper.New(),
		bg:       bgspan.New(),
	}

	handle, err := ptyio.Spawn(o.shellCmd, o.shellArgs, rows, cols, cwd, nil,
		func(chunk []byte) { p.emulator.Write(chunk) },
		nil,
		func(exitErr error) {
			o.mu.Lock()
			p.dead = true
			p.exitErr = exitErr
			o.mu.Unlock()
		},
	)
	if err != nil {
		p.emulator.Shutdown()
		return nil, err
	}
	p.pty = handle
	return p, nil
}

// SplitActivePane splits the active pane of the active workspace along axis
// and spawns a new shell in the resulting empty half. Returns the new
// pane's id.
func (o *Orchestrator) SplitActivePane(axis splittree.Axis, cwd string) (splittree.PaneID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ws := o.workspaces.ActiveWorkspace()
	target := ws.ActivePane()
	newID := o.workspaces.NextPaneID()

	pane, err := o.newPane(newID, defaultRows, defaultCols, cwd)
	if err != nil {
		return 0, fmt.Errorf("split pane: %w", err)
	}
	ws.SplitTree.Split(target, axis, newID)
	o.panes[newID] = pane
	ws.SetActivePane(newID)
	return newID, nil
}

// ClosePane kills pane's process and removes it from whichever workspace
// holds it.
func (o *Orchestrator) ClosePane(id splittree.PaneID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closePaneLocked(id)
}

func (o *Orchestrator) closePaneLocked(id splittree.PaneID) {
	pane, ok := o.panes[id]
	if !ok {
		return
	}
	if pane.pty != nil {
		pane.pty.Kill()
		pane.pty.Close()
	}
	pane.emulator.Shutdown()
	delete(o.panes, id)
	o.workspaces.RemovePaneEverywhere(id)
}

// SendInput writes bytes to pane's PTY. A no-op if the pane is dead or
// unknown.
func (o *Orchestrator) SendInput(id splittree.PaneID, data []byte) {
	o.mu.Lock()
	pane, ok := o.panes[id]
	o.mu.Unlock()
	if !ok || pane.dead || pane.pty == nil {
		return
	}
	pane.pty.Write(data)
}

// ResizePane changes one pane's emulator and PTY size.
func (o *Orchestrator) ResizePane(id splittree.PaneID, rows, cols int) {
	o.mu.Lock()
	pane, ok := o.panes[id]
	o.mu.Unlock()
	if !ok {
		return
	}
	pane.emulator.Resize(rows, cols)
	if pane.pty != nil {
		pane.pty.Resize(rows, cols)
	}
}

// Pane returns the pane with the given id, or nil.
func (o *Orchestrator) Pane(id splittree.PaneID) *Pane {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.panes[id]
}

// Workspaces returns the underlying workspace manager.
func (o *Orchestrator) Workspaces() *workspace.Manager { return o.workspaces }

// Frame runs one iteration of the render pipeline for the active
// workspace's layout: extract each visible pane's grid delta, re-shape only
// rows that actually changed, rebuild background spans as needed, and reap
// any pane whose process has exited. Returns the prepared per-pane frame
// data in layout order, ready for a GPU renderer to consume.
func (o *Orchestrator) Frame() []PaneFrame {
	o.mu.Lock()
	defer o.mu.Unlock()

	ws := o.workspaces.ActiveWorkspace()
	rects := ws.SplitTree.Layout()

	frames := make([]PaneFrame, 0, len(rects))
	var reap []splittree.PaneID

	for _, pr := range rects {
		pane, ok := o.panes[pr.Pane]
		if !ok {
			continue
		}
		if pane.dead {
			reap = append(reap, pr.Pane)
			frames = append(frames, PaneFrame{Pane: pr.Pane, Rect: pr.Rect, Dead: true})
			continue
		}

		delta := pane.emulator.ExtractGridDeltaInto(&pane.gridCache)
		pane.shaper.Reshape(pane.gridCache, delta.DirtyRows, delta.Full)
		bgRects := pane.bg.UpdateContent(pane.gridCache, delta.DirtyRows, delta.Full, o.theme.Colors.Background)

		frames = append(frames, PaneFrame{
			Pane:       pr.Pane,
			Rect:       pr.Rect,
			Lines:      pane.shaper.Lines(),
			BG:         bgRects,
			Cursor:     delta.Cursor,
			ShowCursor: pane.ID == ws.ActivePane(),
		})
	}

	// Reap dead panes at the end of the frame that first reports them: the
	// returned frames still carry their Dead entry, so the UI collaborator
	// sees the "process exited" state once before the pane disappears from
	// the topology.
	for _, id := range reap {
		o.closePaneLocked(id)
		o.notify.Push("pane exited", fmt.Sprintf("pane %d exited", id))
	}

	return frames
}

// Shutdown tears down every pane's PTY and emulator.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id := range o.panes {
		o.closePaneLocked(id)
	}
}
