package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	moveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	totalStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// Render writes s to w in format f.
//
// Text prints the maximum on its own line, followed by a tab-aligned table
// when the summary carries steps. JSON emits the whole Summary. Pretty draws
// the same table inside a bordered lipgloss pane.
func Render(w io.Writer, s Summary, f Format) error {
	switch f {
	case Text:
		return renderText(w, s)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(s)
	case Pretty:
		_, err := io.WriteString(w, renderPretty(s)+"\n")

		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
}

func renderText(w io.Writer, s Summary) error {
	if _, err := fmt.Fprintln(w, s.MaxPressure); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "minute\taction\tvalve\trate\treleased")
	for _, st := range s.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", st.Minute, st.Action, dash(st.Valve), st.Rate, st.Released)
	}

	return tw.Flush()
}

func renderPretty(s Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Pressure released from %s in %d minutes", s.Start, s.Budget)))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("strategy %s, %d states expanded", s.Strategy, s.Expanded)))
	b.WriteString("\n")

	if len(s.Steps) > 0 {
		b.WriteString("\n")
		b.WriteString(headStyle.Render(fmt.Sprintf("%6s  %-6s  %-6s  %6s  %9s", "minute", "action", "valve", "rate", "released")))
		b.WriteString("\n")
		for _, st := range s.Steps {
			action := fmt.Sprintf("%-6s", st.Action)
			switch st.Action {
			case "open":
				action = openStyle.Render(action)
			case "move":
				action = moveStyle.Render(action)
			default:
				action = subtleStyle.Render(action)
			}
			fmt.Fprintf(&b, "%6d  %s  %-6s  %6d  %9d\n", st.Minute, action, dash(st.Valve), st.Rate, st.Released)
		}
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render("total " + strconv.FormatUint(s.MaxPressure, 10)))

	return paneStyle.Render(b.String())
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
