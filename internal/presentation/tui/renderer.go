package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is the column the report is wrapped at.
const DefaultWordWrap = 80

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	return newRenderer(glamour.WithAutoStyle())
}

// NewPlainRenderer renders markdown without colors, for pipes and tests.
func NewPlainRenderer() func(string) (string, error) {
	return newRenderer(glamour.WithStandardStyle("notty"))
}

func newRenderer(style glamour.TermRendererOption) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(DefaultWordWrap))
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
