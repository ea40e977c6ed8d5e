package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"pterminal/internal/orchestrator"
	"pterminal/internal/socketdir"
	"pterminal/internal/splittree"
	"pterminal/internal/workspace"
)

const writeDeadline = 2 * time.Second

// Server listens on a UNIX socket and dispatches newline-framed JSON-RPC 2.0
// requests against an *orchestrator.Orchestrator.
type Server struct {
	core *orchestrator.Orchestrator
	name string

	sessionID string
	ln        net.Listener
	path      string
	lock      *flock.Flock
}

// NewServer creates a server bound to the socket named name under
// socketdir's core convention (core.<name>.sock). The socket is not bound
// until Listen is called.
func NewServer(core *orchestrator.Orchestrator, name string) *Server {
	return &Server{core: core, name: name, sessionID: uuid.New().String()}
}

// Listen creates the socket directory and binds the listening socket.
//
// A sibling "<path>.lock" advisory file lock (held for the server's
// lifetime) guards against two cores racing to bind the same name: unlike
// probing the socket with a dial, the OS releases the lock automatically if
// the owning process crashes, so a leftover socket from a dead process never
// blocks a fresh Listen.
func (s *Server) Listen() error {
	if err := os.MkdirAll(socketdir.Dir(), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	path := socketdir.Path(socketdir.TypeCore, s.name)

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("a core is already listening on %s", path)
	}

	os.Remove(path) // leftover socket file from a crashed owner of the lock

	ln, err := net.Listen("unix", path)
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("listen on %s: %w", path, err)
	}
	s.ln = ln
	s.path = path
	s.lock = lock
	return nil
}

// Path returns the bound socket path. Valid only after a successful Listen.
func (s *Server) Path() string { return s.path }

// SessionID is a process-lifetime identifier reported via the identify
// method, distinct from the user-facing --name used in the socket filename.
func (s *Server) SessionID() string { return s.sessionID }

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the listener, removes the socket file, and releases the
// advisory lock so a subsequent Listen (by this or another process) can
// acquire it immediately.
func (s *Server) Close() {
	if s.ln != nil {
		s.ln.Close()
	}
	if s.path != "" {
		os.Remove(s.path)
	}
	if s.lock != nil {
		s.lock.Unlock()
		os.Remove(s.lock.Path())
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.dispatchLine(line)
		if err := s.writeResponse(conn, resp); err != nil {
			log.Printf("ipc: write response: %v", err)
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	data = append(data, '\n')
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	_, err = conn.Write(data)
	return err
}

func (s *Server) dispatchLine(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, CodeParseError, "Parse error")
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid Request")
	}

	result, rpcErr := s.dispatch(req.Method, req.Params)
	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}
	return successResponse(req.ID, result)
}

func (s *Server) dispatch(method string, params json.RawMessage) (interface{}, *Error) {
	switch method {
	case "ping":
		return "pong", nil
	case "capabilities":
		return capabilities(), nil
	case "identify":
		return map[string]string{"name": s.name, "session_id": s.sessionID}, nil

	case "workspace.list":
		return s.core.ListWorkspaces(), nil
	case "workspace.new":
		wsID, paneID, err := s.core.NewWorkspace()
		if err != nil {
			return nil, internalErr(err)
		}
		return map[string]uint64{"workspace_id": uint64(wsID), "pane_id": uint64(paneID)}, nil
	case "workspace.close":
		var p struct {
			ID *uint64 `json:"id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, invalidParamsErr(err)
		}
		id := s.core.Workspaces().ActiveWorkspace().ID
		if p.ID != nil {
			id = workspace.ID(*p.ID)
		}
		s.core.CloseWorkspace(id)
		return true, nil
	case "workspace.select":
		var p struct {
			ID    *uint64 `json:"id"`
			Index *int    `json:"index"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, invalidParamsErr(err)
		}
		var err error
		switch {
		case p.ID != nil:
			err = s.core.SelectWorkspaceByID(workspace.ID(*p.ID))
		case p.Index != nil:
			err = s.core.SelectWorkspaceByIndex(*p.Index)
		default:
			return nil, invalidParamsErr(fmt.Errorf("id or index is required"))
		}
		if err != nil {
			return nil, invalidParamsErr(err)
		}
		return true, nil

	case "pane.list":
		return s.core.ListPanes(), nil

	case "terminal.send":
		var p struct {
			Text   string  `json:"text"`
			PaneID *uint64 `json:"pane_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, invalidParamsErr(err)
		}
		if err := s.core.SendText(paneIDPtr(p.PaneID), p.Text); err != nil {
			return nil, invalidParamsErr(err)
		}
		return true, nil

	case "pane.read_screen":
		var p struct {
			PaneID *uint64 `json:"pane_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, invalidParamsErr(err)
		}
		text, err := s.core.ReadScreen(paneIDPtr(p.PaneID))
		if err != nil {
			return nil, invalidParamsErr(err)
		}
		return map[string]string{"text": text}, nil

	case "pane.capture":
		var p struct {
			PaneID *uint64 `json:"pane_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, invalidParamsErr(err)
		}
		cells, err := s.core.CapturePane(paneIDPtr(p.PaneID))
		if err != nil {
			return nil, invalidParamsErr(err)
		}
		return map[string]interface{}{"rows": cells}, nil

	case "notification.send":
		var p struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, invalidParamsErr(err)
		}
		if p.Title == "" {
			return nil, invalidParamsErr(fmt.Errorf("title is required"))
		}
		return s.core.Notify().Push(p.Title, p.Body), nil
	case "notification.list":
		return s.core.Notify().List(), nil
	case "notification.clear":
		s.core.Notify().Clear()
		return true, nil

	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", method)}
	}
}

func unmarshalParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, v)
}

func paneIDPtr(id *uint64) *splittree.PaneID {
	if id == nil {
		return nil
	}
	pid := splittree.PaneID(*id)
	return &pid
}

func invalidParamsErr(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: err.Error()}
}

func internalErr(err error) *Error {
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

func capabilities() map[string]interface{} {
	return map[string]interface{}{
		"protocol":        Version,
		"methods": []string{
			"ping", "capabilities", "identify",
			"workspace.list", "workspace.new", "workspace.close", "workspace.select",
			"pane.list", "terminal.send", "pane.read_screen", "pane.capture",
			"notification.send", "notification.list", "notification.clear",
		},
	}
}
