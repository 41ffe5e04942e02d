package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

func renderAccent(s string) string { return accentStyle.Render(s) }
func renderPass(s string) string   { return passStyle.Render(s) }
func renderWarn(s string) string   { return warnStyle.Render(s) }
func renderMuted(s string) string  { return mutedStyle.Render(s) }

// renderField renders a "label value" line with the labels aligned.
func renderField(label, value string) string {
	return fmt.Sprintf("%-16s %s", label, value)
}

// shortID trims long identifiers such as base64 payloads to 24 runes for
// display.
func shortID(id string) string {
	const max = 24
	runes := []rune(id)
	if len(runes) <= max {
		return id
	}
	return string(runes[:max-3]) + "..."
}
