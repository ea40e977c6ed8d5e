package vte

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vito/midterm"

	"pterminal/internal/ring"
)

const (
	inputQueueDepth   = 2048
	controlQueueDepth = 512
	parkInterval      = 5 * time.Millisecond
	scrollbackCap     = 50000
)

type controlKind int

const (
	ctrlResize controlKind = iota
	ctrlScroll
	ctrlCursor
	ctrlSize
	ctrlDisplayOffset
	ctrlExtractDelta
	ctrlShutdown
)

type controlCmd struct {
	kind        controlKind
	rows, cols  int
	scrollDelta int
	reply       chan controlReply
}

type controlReply struct {
	cursor        Cursor
	rows, cols    int
	displayOffset int
	delta         extractedDelta
}

type extractedDelta struct {
	full      bool
	dirtyRows []int
	rowData   []GridLine // parallel to dirtyRows; if full, this is the complete grid
}

// Emulator owns the VTE parser state and a scrollback ring, serviced by a
// single parser goroutine reading from two SPSC queues.
type Emulator struct {
	term *midterm.Terminal

	theme Theme
	rows  int
	cols  int

	scrollHistory []GridLine
	displayOffset int

	inputQ   *ring.Ring[[]byte]
	controlQ *ring.Ring[controlCmd]
	wake     chan struct{}
	done     chan struct{}

	events chan Event

	structDirty bool
	prevHashes  []uint64
}

// New creates an emulator sized rows x cols and starts its parser goroutine.
func New(rows, cols int, theme Theme) *Emulator {
	e := &Emulator{
		term:        midterm.NewTerminal(rows, cols),
		theme:       theme,
		rows:        rows,
		cols:        cols,
		inputQ:      ring.New[[]byte](inputQueueDepth),
		controlQ:    ring.New[controlCmd](controlQueueDepth),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		events:      make(chan Event, 64),
		structDirty: true,
	}
	e.term.OnScrollback(func(line midterm.Line) {
		cells := cellsFromANSI(line.Display(), e.theme)
		e.scrollHistory = append(e.scrollHistory, GridLine{Cells: cells})
		if len(e.scrollHistory) > scrollbackCap {
			trim := len(e.scrollHistory) - scrollbackCap
			e.scrollHistory = e.scrollHistory[trim:]
		}
	})
	go e.run()
	return e
}

// Events returns the emulator's out-of-band event channel. The parser
// goroutine sends nothing on it: no title, bell, exit or redraw event is
// delivered.
func (e *Emulator) Events() <-chan Event { return e.events }

func (e *Emulator) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Write enqueues raw PTY output for the parser goroutine to process. Called
// from the PTY reader thread (internal/ptyio); blocks (spinning briefly,
// then yielding) only while the input ring is full.
func (e *Emulator) Write(data []byte) {
	if len(data) == 0 {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	e.inputQ.PushBlocking(cp)
	e.signal()
}

// Resize changes the emulator's row/column count, forcing a full redraw on
// the next extraction.
func (e *Emulator) Resize(rows, cols int) {
	e.sendControl(controlCmd{kind: ctrlResize, rows: rows, cols: cols})
}

// Scroll moves the display offset by delta lines; positive scrolls into
// history.
func (e *Emulator) Scroll(delta int) {
	e.sendControl(controlCmd{kind: ctrlScroll, scrollDelta: delta})
}

// CursorPosition reports the emulator's current cursor position.
func (e *Emulator) CursorPosition() Cursor {
	r := e.sendControl(controlCmd{kind: ctrlCursor})
	return r.cursor
}

// ViewportSize reports the current (rows, cols).
func (e *Emulator) ViewportSize() (rows, cols int) {
	r := e.sendControl(controlCmd{kind: ctrlSize})
	return r.rows, r.cols
}

// DisplayOffset reports how many lines into scrollback the viewport is
// currently scrolled; 0 means the live tail.
func (e *Emulator) DisplayOffset() int {
	r := e.sendControl(controlCmd{kind: ctrlDisplayOffset})
	return r.displayOffset
}

// ExtractGridDeltaInto updates cache in place: on a
// full delta the cache is replaced wholesale; otherwise only dirty rows are
// overwritten. The emulator's damage tracker is reset as a side effect.
func (e *Emulator) ExtractGridDeltaInto(cache *[]GridLine) GridDelta {
	r := e.sendControl(controlCmd{kind: ctrlExtractDelta})
	d := r.delta
	if d.full {
		*cache = d.rowData
	} else {
		for i, row := range d.dirtyRows {
			for len(*cache) <= row {
				*cache = append(*cache, GridLine{})
			}
			(*cache)[row] = d.rowData[i]
		}
	}
	return GridDelta{Full: d.full, DirtyRows: d.dirtyRows, Cursor: r.cursor}
}

// Shutdown asks the parser goroutine to exit after draining prior control
// commands, then joins it. Safe to call more than once.
func (e *Emulator) Shutdown() {
	select {
	case <-e.done:
		return
	default:
	}
	reply := make(chan controlReply, 1)
	e.controlQ.PushBlocking(controlCmd{kind: ctrlShutdown, reply: reply})
	e.inputQ.CloseProducer()
	e.controlQ.CloseProducer()
	e.signal()
	<-e.done
}

func (e *Emulator) sendControl(cmd controlCmd) controlReply {
	cmd.reply = make(chan controlReply, 1)
	e.controlQ.PushBlocking(cmd)
	e.signal()
	return <-cmd.reply
}

// run is the single parser goroutine: drain input, drain control, park.
func (e *Emulator) run() {
	defer close(e.done)
	for {
		processedAny := false
		for {
			chunk, ok := e.inputQ.TryPop()
			if !ok {
				break
			}
			e.term.Write(chunk)
			processedAny = true
		}

		shuttingDown := false
		for {
			cmd, ok := e.controlQ.TryPop()
			if !ok {
				break
			}
			processedAny = true
			if e.handle(cmd) {
				shuttingDown = true
			}
		}
		if shuttingDown {
			return
		}

		if processedAny {
			continue
		}
		if e.inputQ.Drained() && e.controlQ.Drained() {
			return
		}
		select {
		case <-e.wake:
		case <-time.After(parkInterval):
		}
	}
}

func (e *Emulator) handle(cmd controlCmd) (shutdown bool) {
	switch cmd.kind {
	case ctrlResize:
		e.rows, e.cols = cmd.rows, cmd.cols
		e.term.Resize(cmd.rows, cmd.cols)
		e.structDirty = true
	case ctrlScroll:
		e.applyScroll(cmd.scrollDelta)
		e.structDirty = true
	case ctrlCursor:
		cmd.reply <- controlReply{cursor: e.cursor()}
		return false
	case ctrlSize:
		cmd.reply <- controlReply{rows: e.rows, cols: e.cols}
		return false
	case ctrlDisplayOffset:
		cmd.reply <- controlReply{displayOffset: e.displayOffset}
		return false
	case ctrlExtractDelta:
		cmd.reply <- controlReply{cursor: e.cursor(), delta: e.extract()}
		return false
	case ctrlShutdown:
		if cmd.reply != nil {
			cmd.reply <- controlReply{}
		}
		return true
	}
	if cmd.reply != nil {
		cmd.reply <- controlReply{}
	}
	return false
}

func (e *Emulator) applyScroll(delta int) {
	maxOffset := len(e.scrollHistory)
	e.displayOffset += delta
	if e.displayOffset < 0 {
		e.displayOffset = 0
	}
	if e.displayOffset > maxOffset {
		e.displayOffset = maxOffset
	}
}

func (e *Emulator) cursor() Cursor {
	return Cursor{Col: e.term.Cursor.X, Row: e.term.Cursor.Y, Visible: e.displayOffset == 0}
}

// extract builds the current viewport and diffs it against the previous
// extraction's row hashes.
func (e *Emulator) extract() extractedDelta {
	rows := e.buildViewport()
	hashes := make([]uint64, len(rows))
	for i, row := range rows {
		hashes[i] = hashRow(row)
	}

	full := e.structDirty || len(hashes) != len(e.prevHashes)
	var dirty []int
	if !full {
		for i := range hashes {
			if hashes[i] != e.prevHashes[i] {
				dirty = append(dirty, i)
			}
		}
	}

	e.structDirty = false
	e.prevHashes = hashes

	if full {
		return extractedDelta{full: true, rowData: rows}
	}
	data := make([]GridLine, len(dirty))
	for i, row := range dirty {
		data[i] = rows[row]
	}
	return extractedDelta{full: false, dirtyRows: dirty, rowData: data}
}

func hashRow(line GridLine) uint64 {
	h := fnv.New64a()
	for _, c := range line.Cells {
		fmt.Fprintf(h, "%c%d%d%d%d%d%d%d%d",
			c.Codepoint, c.FG.R, c.FG.G, c.FG.B, c.BG.R, c.BG.G, c.BG.B,
			boolInt(c.Bold), boolInt(c.Italic))
	}
	return h.Sum64()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// buildViewport materializes exactly e.rows lines: scrollback combined with
// the live grid when scrolled, or the live grid anchored to the cursor
// otherwise (mirrors the client's renderLiveView/renderScrollViewHistory
// split).
func (e *Emulator) buildViewport() []GridLine {
	if e.displayOffset == 0 {
		return e.liveViewport()
	}

	histLen := len(e.scrollHistory)
	totalRows := histLen + e.rows
	startRow := totalRows - e.rows - e.displayOffset
	if startRow < 0 {
		startRow = 0
	}
	out := make([]GridLine, e.rows)
	for i := 0; i < e.rows; i++ {
		row := startRow + i
		if row < 0 || row >= totalRows {
			out[i] = e.blankRow()
			continue
		}
		if row < histLen {
			out[i] = e.scrollHistory[row]
		} else {
			out[i] = e.extractLiveRow(row - histLen)
		}
	}
	return out
}

func (e *Emulator) liveViewport() []GridLine {
	startRow := e.term.Cursor.Y - e.rows + 1
	if startRow < 0 {
		startRow = 0
	}
	out := make([]GridLine, e.rows)
	for i := 0; i < e.rows; i++ {
		out[i] = e.extractLiveRow(startRow + i)
	}
	return out
}

func (e *Emulator) blankRow() GridLine {
	cells := make([]Cell, e.cols)
	for i := range cells {
		cells[i] = e.blankCell()
	}
	return GridLine{Cells: cells}
}

func (e *Emulator) blankCell() Cell {
	return Cell{Codepoint: ' ', FG: e.theme.Colors.Foreground, BG: e.theme.Colors.Background}
}

// extractLiveRow walks one row's format regions, resolving each region's SGR
// render string against the theme (see color.go) rather than reaching into
// midterm's internal Format fields.
func (e *Emulator) extractLiveRow(row int) GridLine {
	if row < 0 || row >= len(e.term.Content) {
		return e.blankRow()
	}
	line := e.term.Content[row]
	runes := []rune(string(line))
	cells := make([]Cell, 0, e.cols)

	var pos int
	for region := range e.term.Format.Regions(row) {
		st := newAttrState()
		if params, ok := parseSGRCodes(region.F.Render()); ok {
			st.applySGR(params)
		}
		fg, bg := st.resolve(e.theme)
		end := pos + region.Size
		for i := pos; i < end; i++ {
			r := rune(' ')
			if i < len(runes) {
				r = runes[i]
			}
			cells = append(cells, Cell{
				Codepoint: r,
				FG:        fg,
				BG:        bg,
				Bold:      st.bold,
				Italic:    st.italic,
				Underline: st.underline,
			})
		}
		pos = end
	}
	for len(cells) < e.cols {
		cells = append(cells, e.blankCell())
	}
	if len(cells) > e.cols {
		cells = cells[:e.cols]
	}

	markWideSpacers(cells)
	return GridLine{Cells: cells}
}

// markWideSpacers flags the cell following any double-width rune as a
// spacer, so the text shaper and GPU renderer can skip advancing a column
// for it.
func markWideSpacers(cells []Cell) {
	for i := 0; i < len(cells)-1; i++ {
		if runewidth.RuneWidth(cells[i].Codepoint) == 2 {
			cells[i+1].WideSpacer = true
		}
	}
}
