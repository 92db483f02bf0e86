package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/veighnsche/darkwall-comfyui/internal/history"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

// TableExporter renders gallery entries as a column-aligned table,
// the default format for interactive terminal use.
type TableExporter struct{}

func (e *TableExporter) Export(entries []history.Entry, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, headerStyle.Render("ID")+"\t"+headerStyle.Render("MONITOR")+"\t"+
		headerStyle.Render("THEME")+"\t"+headerStyle.Render("TEMPLATE")+"\t"+
		headerStyle.Render("CREATED")+"\t"+headerStyle.Render("FAV")+"\t"+headerStyle.Render("PATH"))

	for _, entry := range entries {
		fav := ""
		if entry.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.ID, entry.Monitor, entry.Theme, entry.Template,
			entry.CreatedAt.Format("2006-01-02 15:04"), fav, entry.Path)
	}

	return tw.Flush()
}

func (e *TableExporter) Extension() string {
	return "txt"
}
