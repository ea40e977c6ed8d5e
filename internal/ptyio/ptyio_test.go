package ptyio

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestSpawnEchoAndExit(t *testing.T) {
	var mu sync.Mutex
	var got bytes.Buffer
	exited := make(chan error, 1)

	h, err := Spawn("/bin/sh", []string{"-c", "echo hello"}, 24, 80, ".", nil,
		func(chunk []byte) {
			mu.Lock()
			got.Write(chunk)
			mu.Unlock()
		},
		nil,
		func(exitErr error) { exited <- exitErr },
	)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer h.Close()

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for child exit")
	}

	if !h.Exited() {
		t.Fatalf("Exited() = false after exit callback fired")
	}

	mu.Lock()
	out := got.String()
	mu.Unlock()
	if !bytes.Contains([]byte(out), []byte("hello")) {
		t.Fatalf("output = %q, want it to contain %q", out, "hello")
	}
}

func TestWriteAfterExitIsNoop(t *testing.T) {
	exited := make(chan error, 1)
	h, err := Spawn("/bin/sh", []string{"-c", "exit 0"}, 24, 80, ".", nil, nil, nil,
		func(exitErr error) { exited <- exitErr })
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer h.Close()

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for child exit")
	}

	h.Write([]byte("ignored"))
}

func TestResizeDoesNotError(t *testing.T) {
	exited := make(chan error, 1)
	h, err := Spawn("/bin/sh", []string{"-c", "sleep 1"}, 24, 80, ".", nil, nil, nil,
		func(exitErr error) { exited <- exitErr })
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer h.Close()

	if err := h.Resize(30, 100); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	<-exited
}
