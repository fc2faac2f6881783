package silog

import "github.com/charmbracelet/lipgloss"

// Style controls how a Logger renders its output:
// level labels, message color, and delimiters between
// the prefix, key, and value of each attribute.
type Style struct {
	// LevelLabels holds the rendered label for each level,
	// e.g. "DBG", "INF", "WRN", "ERR", "FTL".
	LevelLabels ByLevel[lipgloss.Style]

	// Messages holds the style used to render the log message
	// at each level.
	Messages ByLevel[lipgloss.Style]

	// Key is the style used to render attribute keys.
	Key lipgloss.Style

	// Values holds per-key styles for attribute values.
	// Keys absent from this map are rendered unstyled.
	Values map[string]lipgloss.Style

	// KeyValueDelimiter separates an attribute's key from its value.
	// Rendered with no arguments, so its content comes from SetString.
	KeyValueDelimiter lipgloss.Style

	// PrefixDelimiter separates a logger's prefix from its message.
	// Rendered with no arguments, so its content comes from SetString.
	PrefixDelimiter lipgloss.Style

	// MultilinePrefix is prepended to each line of a multi-line
	// attribute value. Rendered with no arguments.
	MultilinePrefix lipgloss.Style
}

// PlainStyle returns a Style with no color,
// suitable for output that isn't a terminal.
func PlainStyle() *Style {
	return &Style{
		LevelLabels: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle().SetString("DBG"),
			Info:  lipgloss.NewStyle().SetString("INF"),
			Warn:  lipgloss.NewStyle().SetString("WRN"),
			Error: lipgloss.NewStyle().SetString("ERR"),
			Fatal: lipgloss.NewStyle().SetString("FTL"),
		},
		Key:               lipgloss.NewStyle(),
		KeyValueDelimiter: lipgloss.NewStyle().SetString("="),
		PrefixDelimiter:   lipgloss.NewStyle().SetString(": "),
		MultilinePrefix:   lipgloss.NewStyle().SetString("| "),
	}
}

// DefaultStyle returns the Style used for terminal output,
// with colored level labels and messages.
func DefaultStyle() *Style {
	style := PlainStyle()

	const (
		colorDebug = lipgloss.Color("8")  // grey
		colorInfo  = lipgloss.Color("4")  // blue
		colorWarn  = lipgloss.Color("3")  // yellow
		colorError = lipgloss.Color("1")  // red
		colorFatal = lipgloss.Color("5")  // magenta
	)

	style.LevelLabels = ByLevel[lipgloss.Style]{
		Debug: style.LevelLabels.Debug.Bold(true).Foreground(colorDebug),
		Info:  style.LevelLabels.Info.Bold(true).Foreground(colorInfo),
		Warn:  style.LevelLabels.Warn.Bold(true).Foreground(colorWarn),
		Error: style.LevelLabels.Error.Bold(true).Foreground(colorError),
		Fatal: style.LevelLabels.Fatal.Bold(true).Foreground(colorFatal),
	}
	style.Messages = ByLevel[lipgloss.Style]{
		Debug: lipgloss.NewStyle().Foreground(colorDebug),
		Error: lipgloss.NewStyle().Foreground(colorError),
		Fatal: lipgloss.NewStyle().Foreground(colorFatal),
	}
	style.Key = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	style.PrefixDelimiter = style.PrefixDelimiter.Foreground(lipgloss.Color("8"))
	style.MultilinePrefix = style.MultilinePrefix.Foreground(lipgloss.Color("8"))

	return style
}
