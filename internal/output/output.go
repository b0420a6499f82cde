// Package output provides styled terminal output helpers (success, error,
// warning, event and calendar formatting) using lipgloss.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/calsync/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyles = map[models.SyncStatus]lipgloss.Style{
		models.StatusSynchronized:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatusAddedLocally:    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.StatusModifiedLocally: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StatusDeletedLocally:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StatusHidden:          lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("WARNING: " + fmt.Sprintf(format, args...)))
}

// Info prints a subtle informational message
func Info(format string, args ...interface{}) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// EventLine formats one event for list output.
func EventLine(e *models.Event) string {
	var when string
	if e.AllDay {
		when = e.Start.Format("2006-01-02") + " (all day)"
	} else {
		when = e.Start.Format("2006-01-02 15:04") + "–" + e.End.Format("15:04")
	}

	var b strings.Builder
	b.WriteString(subtleStyle.Render(when))
	b.WriteString("  ")
	b.WriteString(titleStyle.Render(e.Title))
	if e.Location != "" {
		b.WriteString("  " + subtleStyle.Render("@ "+e.Location))
	}
	if e.Status != models.StatusSynchronized {
		b.WriteString("  " + statusStyle(e.Status).Render("["+e.Status.String()+"]"))
	}
	return b.String()
}

// CalendarLine formats one calendar for list output.
func CalendarLine(c *models.Calendar) string {
	var flags []string
	if !c.Enabled {
		flags = append(flags, "disabled")
	}
	if !c.CanModify {
		flags = append(flags, "read-only")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Title))
	b.WriteString("  " + subtleStyle.Render(c.RemoteID))
	if len(flags) > 0 {
		b.WriteString("  " + warningStyle.Render("("+strings.Join(flags, ", ")+")"))
	}
	if !c.SyncTime.IsZero() {
		b.WriteString("  " + subtleStyle.Render("synced "+c.SyncTime.Format(time.RFC822)))
	}
	return b.String()
}

func statusStyle(s models.SyncStatus) lipgloss.Style {
	if style, ok := statusStyles[s]; ok {
		return style
	}
	return subtleStyle
}
