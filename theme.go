package dream

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg int // User message accent
	Notice  int // Retry notices
	Error   int // Error messages
	Success int // Success indicators
	Muted   int // Status bar, placeholders
	CodeBg  int // Code block background
	Accent  int // Headings, links, chat title
}

// DarkTheme returns the ANSI color mapping for dark terminals.
func DarkTheme() Theme {
	return Theme{
		UserMsg: 4,
		Notice:  3,
		Error:   1,
		Success: 2,
		Muted:   8,
		CodeBg:  0,
		Accent:  5,
	}
}

// LightTheme returns the ANSI color mapping for light terminals.
func LightTheme() Theme {
	return Theme{
		UserMsg: 4,
		Notice:  3,
		Error:   1,
		Success: 2,
		Muted:   7,
		CodeBg:  15,
		Accent:  5,
	}
}
