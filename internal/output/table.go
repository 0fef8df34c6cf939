package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rootlab/rootlab/internal/core/store"
)

// historyTable renders lesson history as an ASCII table.
func historyTable(records []store.LessonRecord) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"ID", "Topic", "Level", "Model", "Sections", "Created"})

	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.ID,
			rec.Topic,
			rec.Level,
			rec.Model,
			strings.Join(rec.Sections, " "),
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d lessons", len(records))})
	return t.Render()
}
