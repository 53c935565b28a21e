package terminal

import gloss "github.com/charmbracelet/lipgloss"

var (
	headerStyle = gloss.NewStyle().Bold(true).Foreground(gloss.Color("14"))
	keyStyle    = gloss.NewStyle().Foreground(gloss.Color("14"))
	grayStyle   = gloss.NewStyle().Foreground(gloss.Color("#aaaaaa"))
	okStyle     = gloss.NewStyle().Foreground(gloss.Color("10"))
	warnStyle   = gloss.NewStyle().Foreground(gloss.Color("11"))
	failStyle   = gloss.NewStyle().Foreground(gloss.Color("9"))
)
