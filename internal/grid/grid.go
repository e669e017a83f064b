// Package grid computes the visible window of the roster for a fixed-size card grid
// and pulls the next roster page when the window nears the end of what is loaded.
package grid

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
)

// NearEndRows is how close, in rows, the last rendered row must come to the final
// row before the next page is requested.
const NearEndRows = 2

// Source is the paged collection the grid windows over.
type Source interface {
	Len() int
	HasMore() bool
	// Cursor is the server offset of the next page.
	Cursor() int
	LoadPage(ctx context.Context) (int, error)
}

// Geometry is the fixed card layout, in pixels.
type Geometry struct {
	CardWidth float64
	Gap       float64
	RowHeight float64
	Overscan  int
}

func (g Geometry) Validate() error {
	if g.CardWidth <= 0 {
		return fmt.Errorf("card width must be positive, got %v", g.CardWidth)
	}
	if g.RowHeight <= 0 {
		return fmt.Errorf("row height must be positive, got %v", g.RowHeight)
	}
	if g.Gap < 0 {
		return fmt.Errorf("gap must not be negative, got %v", g.Gap)
	}
	if g.Overscan < 0 {
		return fmt.Errorf("overscan must not be negative, got %d", g.Overscan)
	}
	return nil
}

func (g Geometry) rowPitch() float64 { return g.RowHeight + g.Gap }

// Viewport is the visible area and its vertical scroll position.
type Viewport struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	ScrollOffset float64 `json:"scroll_offset"`
}

// Layout is the grid shape for one viewport width and roster length.
type Layout struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// ComputeLayout returns columns = max(1, floor(W/(cw+g))) and rows = ceil(n/columns).
func ComputeLayout(width float64, n int, g Geometry) Layout {
	cols := 1
	if pitch := g.CardWidth + g.Gap; pitch > 0 && width > 0 {
		cols = max(1, int(math.Floor(width/pitch)))
	}
	rows := 0
	if n > 0 {
		rows = (n + cols - 1) / cols
	}
	return Layout{Columns: cols, Rows: rows}
}

// IndexToCell maps a linear roster index to its grid position.
func IndexToCell(i, columns int) (row, col int) {
	return i / columns, i % columns
}

// CellToIndex is the inverse of IndexToCell.
func CellToIndex(row, col, columns int) int {
	return row*columns + col
}

// Cell is one materialized card slot.
type Cell struct {
	Index int     `json:"index"`
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Top   float64 `json:"top"`
	Left  float64 `json:"left"`
}

// Window is the set of rows to materialize for a viewport. FirstRow and LastRow are
// inclusive and both -1 when nothing is loaded.
type Window struct {
	Layout
	FirstRow     int     `json:"first_row"`
	LastRow      int     `json:"last_row"`
	VisibleRows  int     `json:"visible_rows"`
	ScrollOffset float64 `json:"scroll_offset"`
	TotalHeight  float64 `json:"total_height"`
	Cells        []Cell  `json:"cells"`
	NearEnd      bool    `json:"near_end"`
	HasMore      bool    `json:"has_more"`
	Fetching     bool    `json:"fetching"`
}

// ComputeWindow is the pure windowing function. The scroll offset is clamped to the
// scrollable range.
func ComputeWindow(vp Viewport, n int, g Geometry) Window {
	layout := ComputeLayout(vp.Width, n, g)
	w := Window{Layout: layout, FirstRow: -1, LastRow: -1, Cells: []Cell{}}

	pitch := g.rowPitch()
	if layout.Rows > 0 {
		w.TotalHeight = float64(layout.Rows)*pitch - g.Gap
	}
	maxOffset := math.Max(0, w.TotalHeight-vp.Height)
	w.ScrollOffset = math.Min(math.Max(0, vp.ScrollOffset), maxOffset)

	if layout.Rows == 0 {
		w.NearEnd = true
		return w
	}

	firstVisible := int(math.Floor(w.ScrollOffset / pitch))
	lastVisible := firstVisible
	if vp.Height > 0 {
		lastVisible = int(math.Ceil((w.ScrollOffset+vp.Height)/pitch)) - 1
	}
	lastVisible = min(max(lastVisible, firstVisible), layout.Rows-1)
	w.VisibleRows = lastVisible - firstVisible + 1

	w.FirstRow = max(0, firstVisible-g.Overscan)
	w.LastRow = min(layout.Rows-1, lastVisible+g.Overscan)
	w.NearEnd = w.LastRow >= layout.Rows-1-NearEndRows

	for row := w.FirstRow; row <= w.LastRow; row++ {
		for col := 0; col < layout.Columns; col++ {
			i := CellToIndex(row, col, layout.Columns)
			if i >= n {
				break
			}
			w.Cells = append(w.Cells, Cell{
				Index: i,
				Row:   row,
				Col:   col,
				Top:   float64(row) * pitch,
				Left:  float64(col) * (g.CardWidth + g.Gap),
			})
		}
	}
	return w
}

// Renderer windows over a Source. Scroll requests the next page at most once per
// crossing into the near-end zone, and never while a request is already running.
type Renderer struct {
	source Source
	geom   Geometry

	fetching atomic.Bool

	mu         sync.Mutex
	armed      bool
	lastN      int
	lastCursor int
}

func New(source Source, g Geometry) *Renderer {
	return &Renderer{source: source, geom: g, armed: true, lastN: -1}
}

func (r *Renderer) Geometry() Geometry { return r.geom }

// Window computes the window for vp without loading anything.
func (r *Renderer) Window(vp Viewport) Window {
	w := ComputeWindow(vp, r.source.Len(), r.geom)
	w.HasMore = r.source.HasMore()
	w.Fetching = r.fetching.Load()
	return w
}

// Scroll computes the window for vp and, on a near-end crossing, loads the next page
// before recomputing. A load error is returned with the pre-load window; the same
// crossing does not retry.
func (r *Renderer) Scroll(ctx context.Context, vp Viewport) (Window, error) {
	w := r.Window(vp)
	if !r.shouldFetch(w) {
		return w, nil
	}

	if !r.fetching.CompareAndSwap(false, true) {
		w.Fetching = true
		return w, nil
	}
	added, err := r.source.LoadPage(ctx)
	r.fetching.Store(false)
	if err != nil {
		slog.Warn("grid page load failed", "rows", w.Rows, "error", err)
		return w, err
	}

	slog.Debug("grid page loaded", "added", added)
	return r.Window(vp), nil
}

// shouldFetch tracks threshold crossings. Leaving the near-end zone, the roster
// growing or shrinking, or the cursor moving re-arms the trigger. A page made only
// of duplicates moves the cursor without changing the length.
func (r *Renderer) shouldFetch(w Window) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, cur := r.source.Len(), r.source.Cursor()
	if n != r.lastN || cur != r.lastCursor {
		r.lastN, r.lastCursor = n, cur
		r.armed = true
	}
	if !w.NearEnd {
		r.armed = true
		return false
	}
	if !r.armed || !w.HasMore {
		return false
	}
	r.armed = false
	return true
}
