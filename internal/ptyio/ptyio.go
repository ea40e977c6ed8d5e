// Package ptyio owns the pty master, the child process, and the
// reader/writer actors that move bytes between them and the emulator.
package ptyio

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"

	"pterminal/internal/ring"
)

const (
	readBufSize    = 1 << 20 // >= 1 MiB, generous headroom over a full-screen redraw burst
	writeQueueSize = 1024
	writerPark     = 20 * time.Millisecond
)

// Handle owns one child process's pty master and its reader/writer actors.
type Handle struct {
	ptm *os.File
	cmd *exec.Cmd

	writeQ *ring.Ring[[]byte]
	wake   chan struct{}

	exited   atomic.Bool
	exitOnce sync.Once
	exitErr  error
	exitMu   sync.Mutex

	writerDone chan struct{}
	readerDone chan struct{}
}

// Spawn starts command in a pty sized rows x cols, installing TERM and
// COLORTERM so truecolor-aware child processes detect support correctly,
// then starts the reader and writer actors.
//
// onChunk is invoked (on the reader goroutine) with each nonzero read;
// onReady is invoked immediately after, decoupled so callers can push onto
// an emulator's input queue from onChunk and merely flag dirty in onReady.
// onExit fires once, when the reader observes EOF or a read error.
func Spawn(command string, args []string, rows, cols int, cwd string, extraEnv map[string]string, onChunk func([]byte), onReady func(), onExit func(error)) (*Handle, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = cwd
	cmd.Env = mergeEnv(os.Environ(), extraEnv)

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("ptyio: start command: %w", err)
	}

	h := &Handle{
		ptm:        ptm,
		cmd:        cmd,
		writeQ:     ring.New[[]byte](writeQueueSize),
		wake:       make(chan struct{}, 1),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	go h.readLoop(onChunk, onReady, onExit)
	go h.writeLoop()

	return h, nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		extra = map[string]string{}
	}
	extra["TERM"] = "xterm-256color"
	extra["COLORTERM"] = "truecolor"

	env := make([]string, 0, len(base)+len(extra))
	for _, e := range base {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if _, override := extra[key]; !override {
			env = append(env, e)
		}
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func (h *Handle) readLoop(onChunk func([]byte), onReady func(), onExit func(error)) {
	defer close(h.readerDone)
	buf := make([]byte, readBufSize)
	for {
		n, err := h.ptm.Read(buf)
		if n > 0 && onChunk != nil {
			onChunk(buf[:n])
			if onReady != nil {
				onReady()
			}
		}
		if err != nil {
			h.setExited(err)
			if onExit != nil {
				onExit(err)
			}
			return
		}
	}
}

// Write enqueues data for the writer actor. Non-blocking in the common
// case; bounded spin-then-yield when the queue is momentarily full.
func (h *Handle) Write(data []byte) {
	if len(data) == 0 || h.exited.Load() {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	h.writeQ.PushBlocking(cp)
	h.wakeWriter()
}

func (h *Handle) wakeWriter() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Handle) writeLoop() {
	defer close(h.writerDone)
	for {
		chunk, ok := h.writeQ.TryPop()
		if ok {
			if _, err := h.ptm.Write(chunk); err != nil {
				h.setExited(err)
				return
			}
			continue
		}
		if h.writeQ.Drained() {
			return
		}
		select {
		case <-h.wake:
		case <-time.After(writerPark):
		}
	}
}

// Resize forwards synchronously to the pty master.
func (h *Handle) Resize(rows, cols int) error {
	return pty.Setsize(h.ptm, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Exited reports whether the child's pty has closed (EOF) or errored.
func (h *Handle) Exited() bool { return h.exited.Load() }

// ExitError returns the error the reader observed on exit, if any.
func (h *Handle) ExitError() error {
	h.exitMu.Lock()
	defer h.exitMu.Unlock()
	return h.exitErr
}

func (h *Handle) setExited(err error) {
	h.exitOnce.Do(func() {
		h.exitMu.Lock()
		h.exitErr = err
		h.exitMu.Unlock()
		h.exited.Store(true)
		h.writeQ.CloseProducer()
		h.wakeWriter()
	})
}

// Kill sends SIGKILL to the child process, for a pane whose process is hung
// and unresponsive to normal signals.
func (h *Handle) Kill() {
	if h.cmd != nil && h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}
}

// Close stops accepting writes and waits for both actors to finish. Safe to
// call after the child has already exited.
func (h *Handle) Close() {
	h.writeQ.CloseProducer()
	h.wakeWriter()
	<-h.writerDone
	h.ptm.Close()
	<-h.readerDone
}
