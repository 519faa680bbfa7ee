package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/kytos/kytos-utils/internal/napps"
)

const statusWidth = 6

var headerStyle = lipgloss.NewStyle().Bold(true)

// printNApps renders records as the status / id / description table,
// shortening descriptions to fit the terminal.
func printNApps(w io.Writer, records []napps.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No NApps found.")
		return
	}

	nameW := runewidth.StringWidth("NApp ID")
	descW := runewidth.StringWidth("Description")
	for _, r := range records {
		nameW = max(nameW, runewidth.StringWidth(r.Key.String()))
		descW = max(descW, runewidth.StringWidth(r.Description))
	}
	if tw := terminalWidth(w); tw > 0 {
		if remaining := tw - statusWidth - nameW - 6; remaining > 3 && remaining < descW {
			descW = remaining
		}
	}

	header := strings.Join([]string{
		center("Status", statusWidth), center("NApp ID", nameW), center("Description", descW),
	}, " | ")
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(header))
	fmt.Fprintln(w, strings.Join([]string{
		strings.Repeat("=", statusWidth), strings.Repeat("=", nameW), strings.Repeat("=", descW),
	}, "=+="))
	for _, r := range records {
		fmt.Fprintf(w, "%s | %s | %s\n",
			center(r.Status.Flags(), statusWidth),
			runewidth.FillRight(r.Key.String(), nameW),
			runewidth.Truncate(r.Description, descW, "..."))
	}
	fmt.Fprintln(w, "\nStatus: (i)nstalled, (e)nabled")
}

func center(s string, width int) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad/2) + s + strings.Repeat(" ", pad-pad/2)
}

// terminalWidth returns the width of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
