// Package search filters the board's client records by substring match.
//
// Queries are re-derived: every call scans the current board snapshot
// rather than maintaining an incremental index. Client books are small
// (thousands), so a linear pass is cheaper than keeping an index coherent
// under optimistic mutation and rollback.
package search

import (
	"strings"

	"github.com/alfredjeanlab/pipeline/internal/board"
	"github.com/alfredjeanlab/pipeline/internal/model"
)

// MinTermLength is the shortest term that triggers a search. Shorter terms
// return nothing; this bounds cost and keeps one- and two-character typos
// from flashing the whole book as results.
const MinTermLength = 3

// Index runs searches against a board.
type Index struct {
	board *board.Store
}

// New returns an index over b.
func New(b *board.Store) *Index {
	return &Index{board: b}
}

// Search returns the clients whose name, email, phone, or company contains
// term, case-insensitively. With acrossAll false only the active column is
// scanned; ordering follows the board's column order (funnel order across
// columns when acrossAll is true).
func (ix *Index) Search(term string, active model.Status, acrossAll bool) []model.Client {
	if len(term) < MinTermLength {
		return nil
	}
	needle := strings.ToLower(term)

	var out []model.Client
	scan := func(status model.Status) {
		for _, id := range ix.board.Snapshot(status) {
			rec, ok := ix.board.Get(id)
			if !ok {
				continue
			}
			if matches(rec, needle) {
				out = append(out, rec)
			}
		}
	}

	if acrossAll {
		for _, status := range model.AllStatuses {
			scan(status)
		}
	} else {
		scan(active)
	}
	return out
}

// matches checks the searchable fields. Fields are fixed: name, email,
// phone, company.
func matches(rec model.Client, needle string) bool {
	for _, field := range []string{rec.Name, rec.Email, rec.Phone, rec.Company} {
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
