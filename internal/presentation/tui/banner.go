package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for Arbor with the version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Emerald/Teal)
	lines := []struct {
		text  string
		color string
	}{
		{`                 _`, "#34d399"},
		{`   __ _ _ __| |__  ___  _ __`, "#2dd4bf"},
		{`  / _' | '__| '_ \/ _ \| '__|`, "#22d3ee"},
		{` | (_| | |  | |_) | (_) | |`, "#38bdf8"},
		{`  \__,_|_|  |_.__/\___/|_|`, "#60a5fa"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Println(termenv.String("  v" + v).Foreground(p.Color("#818cf8")).Faint())
	}
	fmt.Println()
}
