package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"lrs-tracker/internal/models"
)

var numbers = message.NewPrinter(language.English)

func scopeLabel(lrsID string) string {
	if lrsID == "" {
		return "all stores"
	}
	return "LRS " + lrsID
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	return tbl
}

func renderStats(w io.Writer, stats models.StatsResponse) {
	tbl := newTable(w)
	tbl.SetTitle(scopeLabel(stats.LrsID))
	tbl.AppendRow(table.Row{"Statements", numbers.Sprintf("%d", stats.StatementCount)})
	tbl.AppendRow(table.Row{"Average per day", numbers.Sprintf("%d", stats.StatementAvgPerDay)})
	tbl.Render()
}

func renderActors(w io.Writer, actors models.ActorCountResponse) {
	numbers.Fprintf(w, "%s: %d distinct actors\n", scopeLabel(actors.LrsID), actors.ActorCount)
}

// renderGraph prints the daily table and, when there are at least two
// days, a line chart of statements (blue) and distinct actors (red).
func renderGraph(w io.Writer, graph models.GraphResponse, height int) {
	tbl := newTable(w)
	tbl.SetTitle(fmt.Sprintf("%s, %s to %s", scopeLabel(graph.LrsID), graph.Start, graph.End))
	tbl.AppendHeader(table.Row{"Day", "Statements", "Actors"})

	statements := make([]float64, 0, len(graph.Points))
	actors := make([]float64, 0, len(graph.Points))
	var total int64
	for _, p := range graph.Points {
		tbl.AppendRow(table.Row{p.Day, numbers.Sprintf("%d", p.StatementCount), numbers.Sprintf("%d", p.DistinctActorCount)})
		statements = append(statements, float64(p.StatementCount))
		actors = append(actors, float64(p.DistinctActorCount))
		total += p.StatementCount
	}
	tbl.AppendFooter(table.Row{"Total", numbers.Sprintf("%d", total), ""})
	tbl.Render()

	if len(graph.Points) < 2 {
		return
	}
	if height <= 0 {
		height = 10
	}

	chart := asciigraph.PlotMany([][]float64{statements, actors},
		asciigraph.Height(height),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption("statements (blue), distinct actors (red)"),
	)
	fmt.Fprintln(w)
	fmt.Fprintln(w, chart)
}

func renderStores(w io.Writer, stores models.StoreListResponse) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"ID", "Title", "Owner", "Created"})
	for _, s := range stores.Stores {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = humanize.Time(s.CreatedAt)
		}
		tbl.AppendRow(table.Row{s.ID.Hex(), s.Title, s.Owner, created})
	}
	tbl.AppendFooter(table.Row{"", numbers.Sprintf("%d stores", stores.Total), "", ""})
	tbl.Render()
}
