package workspace

import "testing"

func TestNewManagerHasOneWorkspace(t *testing.T) {
	m := NewManager()
	if m.WorkspaceCount() != 1 {
		t.Fatalf("WorkspaceCount() = %d, want 1", m.WorkspaceCount())
	}
	if m.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex() = %d, want 0", m.ActiveIndex())
	}
	ids := m.ActiveWorkspace().PaneIDs()
	if len(ids) != 1 || ids[0] != 0 {
		t.Fatalf("PaneIDs() = %v, want [0]", ids)
	}
}

func TestAddAndSelectWorkspace(t *testing.T) {
	m := NewManager()
	wsID, paneID := m.AddWorkspace()
	if m.WorkspaceCount() != 2 {
		t.Fatalf("WorkspaceCount() = %d, want 2", m.WorkspaceCount())
	}
	if m.ActiveIndex() != 1 {
		t.Fatalf("ActiveIndex() = %d, want 1", m.ActiveIndex())
	}
	if wsID != 1 || paneID != 1 {
		t.Fatalf("got (ws=%d, pane=%d), want (1,1)", wsID, paneID)
	}

	m.SelectWorkspace(0)
	if m.ActiveIndex() != 0 {
		t.Fatalf("ActiveIndex() after select = %d, want 0", m.ActiveIndex())
	}
}

func TestCloseWorkspace(t *testing.T) {
	m := NewManager()
	m.AddWorkspace()
	m.CloseWorkspace(1)
	if m.WorkspaceCount() != 1 {
		t.Fatalf("WorkspaceCount() = %d, want 1", m.WorkspaceCount())
	}
}

func TestCannotCloseLastWorkspace(t *testing.T) {
	m := NewManager()
	m.CloseWorkspace(0)
	if m.WorkspaceCount() != 1 {
		t.Fatalf("last workspace was closed")
	}
}

func TestSetActivePaneIgnoresNonMember(t *testing.T) {
	m := NewManager()
	ws := m.ActiveWorkspace()
	ws.SetActivePane(99)
	if ws.ActivePane() != 0 {
		t.Fatalf("ActivePane() = %d, want unchanged 0", ws.ActivePane())
	}
}

func TestRemovePaneEverywhereCullsEmptyWorkspace(t *testing.T) {
	m := NewManager()
	wsID, paneID := m.AddWorkspace()
	if m.RemovePaneEverywhere(paneID) == false {
		t.Fatalf("expected pane removal to report true")
	}
	if m.WorkspaceByID(wsID) != nil {
		t.Fatalf("workspace %d should have been culled", wsID)
	}
	if m.WorkspaceCount() != 1 {
		t.Fatalf("WorkspaceCount() = %d, want 1", m.WorkspaceCount())
	}
}

func TestRemovePaneEverywherePromotesSibling(t *testing.T) {
	m := NewManager()
	ws := m.ActiveWorkspace()
	newPane := m.NextPaneID()
	ws.SplitTree.Split(0, 0, newPane)

	if !m.RemovePaneEverywhere(newPane) {
		t.Fatalf("expected removal to succeed")
	}
	ids := ws.PaneIDs()
	if len(ids) != 1 || ids[0] != 0 {
		t.Fatalf("PaneIDs() = %v, want [0]", ids)
	}
	if m.WorkspaceCount() != 1 {
		t.Fatalf("workspace should survive since it still has a pane")
	}
}
