// Package listview computes the windowed (virtualized) rendering of a
// status column. Only the rows intersecting the viewport, plus a small
// overscan margin, are ever materialized; cost per render is proportional
// to the visible row count, never to the column size.
package listview

import (
	"github.com/alfredjeanlab/pipeline/internal/board"
	"github.com/alfredjeanlab/pipeline/internal/model"
)

// Window is the half-open row range [Start, End) to materialize.
type Window struct {
	Start int
	End   int
}

// Len returns the number of rows in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Visible computes the window over total rows for a viewport of
// viewportHeight pixels, rows of rowHeight pixels each, scrolled to
// scrollOffset. Overscan rows are added on both sides to smooth fast
// scrolling. Degenerate geometry (non-positive heights) yields an empty
// window.
func Visible(total, rowHeight, viewportHeight, scrollOffset, overscan int) Window {
	if total <= 0 || rowHeight <= 0 || viewportHeight <= 0 {
		return Window{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}

	first := scrollOffset / rowHeight
	// Last row whose top edge is above the viewport's bottom edge.
	last := (scrollOffset + viewportHeight - 1) / rowHeight

	first -= overscan
	last += overscan
	if first < 0 {
		first = 0
	}
	if last >= total {
		last = total - 1
	}
	if first >= total {
		// Scrolled past the end: clamp to the final page.
		first = total - 1
	}
	return Window{Start: first, End: last + 1}
}

// Renderer materializes windowed rows for one status column, re-deriving
// from a board snapshot each time. It holds no copy of the column; the
// board stays the single source of truth.
type Renderer struct {
	Board          *board.Store
	Status         model.Status
	RowHeight      int
	ViewportHeight int
	Overscan       int
}

// Rows returns the records inside the window at the given scroll offset,
// in column order, along with the window itself. Only windowed ids are
// looked up; ids whose records vanished between snapshot and lookup are
// skipped.
func (r *Renderer) Rows(scrollOffset int) ([]model.Client, Window) {
	ids := r.Board.Snapshot(r.Status)
	w := Visible(len(ids), r.RowHeight, r.ViewportHeight, scrollOffset, r.Overscan)

	rows := make([]model.Client, 0, w.Len())
	for _, id := range ids[w.Start:w.End] {
		if rec, ok := r.Board.Get(id); ok {
			rows = append(rows, rec)
		}
	}
	return rows, w
}
