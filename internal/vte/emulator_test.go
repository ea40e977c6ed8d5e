package vte

import (
	"testing"
	"time"
)

func waitForExtraction(e *Emulator) []GridLine {
	var cache []GridLine
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.ExtractGridDeltaInto(&cache)
		if len(cache) > 0 && len(cache[0].Cells) > 0 && cache[0].Cells[0].Codepoint != ' ' {
			return cache
		}
		time.Sleep(time.Millisecond)
	}
	return cache
}

func TestEmulatorWritesPlainText(t *testing.T) {
	e := New(4, 10, DefaultTheme())
	defer e.Shutdown()

	e.Write([]byte("hi"))
	cache := waitForExtraction(e)
	if len(cache) != 4 {
		t.Fatalf("len(cache) = %d, want 4", len(cache))
	}
	if cache[0].Cells[0].Codepoint != 'h' || cache[0].Cells[1].Codepoint != 'i' {
		t.Fatalf("row0 = %+v", cache[0].Cells[:2])
	}
}

func TestEmulatorFirstExtractionIsFull(t *testing.T) {
	e := New(3, 5, DefaultTheme())
	defer e.Shutdown()

	var cache []GridLine
	delta := e.ExtractGridDeltaInto(&cache)
	if !delta.Full {
		t.Fatalf("first extraction should report full=true")
	}
	if len(cache) != 3 {
		t.Fatalf("len(cache) = %d, want 3", len(cache))
	}
}

func TestEmulatorNoDamageAfterQuiescentExtraction(t *testing.T) {
	e := New(3, 5, DefaultTheme())
	defer e.Shutdown()

	var cache []GridLine
	e.ExtractGridDeltaInto(&cache)
	time.Sleep(10 * time.Millisecond)
	delta := e.ExtractGridDeltaInto(&cache)
	if delta.Full || len(delta.DirtyRows) != 0 {
		t.Fatalf("expected no damage on quiescent extraction, got %+v", delta)
	}
}

func TestEmulatorResizeForcesFullDelta(t *testing.T) {
	e := New(3, 5, DefaultTheme())
	defer e.Shutdown()

	var cache []GridLine
	e.ExtractGridDeltaInto(&cache)

	e.Resize(5, 8)
	delta := e.ExtractGridDeltaInto(&cache)
	if !delta.Full {
		t.Fatalf("expected full=true after resize")
	}
	if len(cache) != 5 {
		t.Fatalf("len(cache) = %d, want 5 after resize", len(cache))
	}
}

func TestEmulatorCursorPositionAdvances(t *testing.T) {
	e := New(4, 10, DefaultTheme())
	defer e.Shutdown()

	e.Write([]byte("hi"))
	var cur Cursor
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cur = e.CursorPosition()
		if cur.Col == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if cur.Col != 2 {
		t.Fatalf("cursor.Col = %d, want 2", cur.Col)
	}
}

func TestEmulatorShutdownIsIdempotent(t *testing.T) {
	e := New(2, 2, DefaultTheme())
	e.Shutdown()
	e.Shutdown()
}
