package panel

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/replica/internal/domain"
)

// WindowName names one of the three evaluation windows.
type WindowName string

const (
	Train      WindowName = "train"
	Validation WindowName = "validation"
	Test       WindowName = "test"
)

// Window is an inclusive date range. A zero Start or End leaves that side open.
type Window struct {
	Name  WindowName
	Start time.Time
	End   time.Time
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d time.Time) bool {
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}

// Windows groups the train, validation and test ranges.
type Windows struct {
	Train      Window
	Validation Window
	Test       Window
}

// Validate requires closed train/validation ends and a test window that
// starts after both of them. Train and validation may touch or overlap.
func (ws Windows) Validate() error {
	for _, w := range []Window{ws.Train, ws.Validation, ws.Test} {
		if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
			return &domain.DataError{Stage: domain.StageWindow, Reason: fmt.Sprintf("%s window ends before it starts", w.Name)}
		}
	}
	if ws.Train.End.IsZero() || ws.Validation.End.IsZero() {
		return &domain.DataError{Stage: domain.StageWindow, Reason: "train and validation windows need an end date"}
	}
	if ws.Test.Start.IsZero() {
		return &domain.DataError{Stage: domain.StageWindow, Reason: "test window needs a start date"}
	}
	if !ws.Test.Start.After(ws.Train.End) || !ws.Test.Start.After(ws.Validation.End) {
		return &domain.DataError{Stage: domain.StageWindow, Reason: "test window overlaps train or validation"}
	}
	return nil
}

// Rows returns the ascending row indices of p whose dates fall in any of ws.
func Rows(p *Panel, ws ...Window) []int {
	var rows []int
	for r, d := range p.dates {
		for _, w := range ws {
			if w.Contains(d) {
				rows = append(rows, r)
				break
			}
		}
	}
	sort.Ints(rows)
	return rows
}
