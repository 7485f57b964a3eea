package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	// DefaultWindowSize is the default viewer window dimensions
	DefaultWindowSize = fyne.NewSize(960, 720)

	frameMinSize = fyne.NewSize(640, 480)
)

// Status indicator colours, keyed by cycle outcome
var outcomeColors = map[string]color.NRGBA{
	"dispatched":     {R: 76, G: 175, B: 80, A: 255},
	"no_match":       {R: 158, G: 158, B: 158, A: 255},
	"window_missing": {R: 255, G: 152, B: 0, A: 255},
	"skipped":        {R: 255, G: 193, B: 7, A: 255},
	"failed":         {R: 244, G: 67, B: 54, A: 255},
}

// OutcomeColor returns the indicator colour for a cycle outcome
func OutcomeColor(outcome string) color.Color {
	if c, ok := outcomeColors[outcome]; ok {
		return c
	}
	return color.Transparent
}

// ViewerTheme is the stock dark theme on a black backdrop, so highlighted
// frames keep their contrast, with compact history rows
type ViewerTheme struct {
	fyne.Theme
}

// NewViewerTheme wraps the default theme
func NewViewerTheme() *ViewerTheme {
	return &ViewerTheme{Theme: theme.DefaultTheme()}
}

func (t *ViewerTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	if name == theme.ColorNameBackground {
		return color.Black
	}
	return t.Theme.Color(name, theme.VariantDark)
}

func (t *ViewerTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 12
	}
	return t.Theme.Size(name)
}
