package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hongminglow/timecard-be/internal/client"
	"github.com/hongminglow/timecard-be/internal/models"
)

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorDim    = lipgloss.Color("#666666")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleTotal  = lipgloss.NewStyle().Bold(true)
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

const timeLayout = "2006-01-02 15:04"

// renderDashboard prints the current person's entries newest first with the total.
func renderDashboard(w io.Writer, app *client.App) {
	view := app.Entries()
	user, _ := app.Session().User()
	fmt.Fprintln(w, styleDim.Render("Signed in as "+user.DisplayName()))

	if view.Person == "" {
		fmt.Fprintln(w, "No person selected")
		return
	}
	fmt.Fprintln(w, styleHeader.Render(view.Person))
	if view.Filter != "" {
		fmt.Fprintln(w, styleDim.Render("filter: "+view.Filter))
	}
	if len(view.Entries) == 0 {
		fmt.Fprintln(w, styleDim.Render("  no entries"))
	}
	for i := len(view.Entries) - 1; i >= 0; i-- {
		e := view.Entries[i]
		fmt.Fprintf(w, "  %-8s %s  %s\n",
			fmt.Sprintf("%dh %dm", e.Hours, e.Minutes),
			styleDim.Render(e.CreatedAt.Local().Format(timeLayout)),
			styleDim.Render(e.ID))
	}
	fmt.Fprintln(w, styleTotal.Render("Total: "+models.FormatDuration(view.TotalMinutes)))
}

func renderProfile(w io.Writer, app *client.App) {
	user, _ := app.Session().User()
	fmt.Fprintln(w, styleHeader.Render("PROFILE"))
	fmt.Fprintf(w, "  Username: %s\n  Email:    %s\n", user.Username, user.Email)
}

func renderSaved(w io.Writer, saved []models.SavedSummary) {
	fmt.Fprintln(w, styleHeader.Render("SAVED PERSONS"))
	if len(saved) == 0 {
		fmt.Fprintln(w, "No saved persons yet.")
		return
	}
	width := 0
	for _, s := range saved {
		width = max(width, lipgloss.Width(s.PersonName))
	}
	for _, s := range saved {
		pad := strings.Repeat(" ", width-lipgloss.Width(s.PersonName))
		fmt.Fprintf(w, "  %s%s  Total: %s  %s\n",
			styleTotal.Render(s.PersonName), pad,
			models.FormatDuration(s.TotalMinutes),
			styleDim.Render("saved "+s.SavedAt.Local().Format(timeLayout)))
	}
}
