package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	ansiGray  = "\x1b[90m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

var bannerTitle = []string{
	"COBROWSE",
	"Portfolio Co-browsing Assistant",
}

var bannerArt = []string{
	"┌──────────────────────────────┐",
	"│ ● ● ●   portfolio.example    │",
	"├──────────────────────────────┤",
	"│  ▒▒▒▒▒▒▒▒▒▒▒▒                │",
	"│  ░░░░░░░░░░░░░░░░░░░░░░      │",
	"│  ░░░░░░░░░░░░░░░   ┌───────┐ │",
	"│  ▓▓▓▓▓▓▓▓▓▓        │ ▸ hi! │ │",
	"│  ░░░░░░░░░░░░░░░░  └───────┘ │",
	"└──────────────────────────────┘",
}

// WriteSplashScreen writes the cobrowse banner to w, centred for the
// current terminal.
func WriteSplashScreen(w io.Writer, colored bool) {
	if w == nil {
		return
	}
	open, end := "", ""
	if colored {
		open, end = ansiGray, ansiReset
	}
	for _, line := range splashLines(terminalWidth()) {
		if line == "" {
			fmt.Fprintln(w)
			continue
		}
		// keep the indent outside the colour codes
		body := strings.TrimLeft(line, " ")
		fmt.Fprintf(w, "%s%s%s%s\n", line[:len(line)-len(body)], open, body, end)
	}
	fmt.Fprintln(w)
}

// splashLines lays the banner out for a terminal of the given width: title
// beside the art when it fits, stacked above it otherwise.
func splashLines(width int) []string {
	const gap, margin = 2, 2
	titleW, artW := widest(bannerTitle), widest(bannerArt)

	if titleW+gap+artW <= width {
		indent := max(margin, (width-titleW-gap-artW)/2)
		top := (len(bannerArt) - len(bannerTitle)) / 2
		lines := make([]string, 0, len(bannerArt))
		for i, art := range bannerArt {
			left := ""
			if j := i - top; j >= 0 && j < len(bannerTitle) {
				left = bannerTitle[j]
			}
			lines = append(lines, strings.Repeat(" ", indent)+padRight(left, titleW+gap)+art)
		}
		return lines
	}

	block := max(titleW, artW)
	indent := max(margin, (width-block)/2)
	centre := func(s string) string {
		return strings.Repeat(" ", indent+(block-runeLen(s))/2) + s
	}
	lines := make([]string, 0, len(bannerTitle)+len(bannerArt)+1)
	for _, t := range bannerTitle {
		lines = append(lines, centre(t))
	}
	lines = append(lines, "")
	for _, a := range bannerArt {
		lines = append(lines, centre(a))
	}
	return lines
}

// terminalWidth reports the width of stdout, or 80 when it is not a terminal.
func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// WriteResponseHeader labels an assistant reply with the model that wrote it.
func WriteResponseHeader(w io.Writer, model string, colored bool) {
	if w == nil {
		return
	}
	if colored {
		fmt.Fprintf(w, "%scobrowse (%s)%s\n", ansiCyan, model, ansiReset)
		return
	}
	fmt.Fprintf(w, "cobrowse (%s)\n", model)
}

func widest(lines []string) int {
	n := 0
	for _, l := range lines {
		n = max(n, runeLen(l))
	}
	return n
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func padRight(s string, width int) string {
	if n := runeLen(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
