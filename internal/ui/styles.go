package ui

import (
	"fmt"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorGood   = 114 // green
	colorWarn   = 179 // amber
	colorBad    = 167 // red
)

var noColor bool

// statusColors maps pipeline stages to display colors. Stages not listed
// render in the muted color.
var statusColors = map[model.Status]int{
	model.StatusLead:                colorAccent,
	model.StatusAgreementSigned:     colorGood,
	model.StatusActive:              colorGood,
	model.StatusOnPause:             colorWarn,
	model.StatusAwaitingReplacement: colorWarn,
	model.StatusDeclined:            colorBad,
	model.StatusCanceled:            colorBad,
}

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderStatus returns a pipeline stage colored by how far along it is.
func RenderStatus(st model.Status) string {
	if c, ok := statusColors[st]; ok {
		return render(c, string(st))
	}
	return RenderMuted(string(st))
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
