package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ReAlign banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  ____       _    _ _             ", "#34d399"},
		{" |  _ \\ ___ / \\  | (_) __ _ _ __  ", "#2dd4bf"},
		{" | |_) / _ \\ _ \\ | | |/ _` | '_ \\ ", "#22d3ee"},
		{" |  _ <  __/ ___ \\| | | (_| | | | |", "#38bdf8"},
		{" |_| \\_\\___/_/   \\_\\_|_|\\__, |_| |_|", "#60a5fa"},
		{"                        |___/      ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" Wellness Assistant v"+version).Faint())
	fmt.Fprintln(w)
}
