package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printClientsTable(w io.Writer, clients map[string]model.AgentRecord, now time.Time) {
	if len(clients) == 0 {
		fmt.Fprintln(w, ui.Muted("no clients connected"))
		return
	}
	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tVERSION\tSTATUS\tLAST SEEN\tAGO")
	for _, id := range ids {
		rec := clients[id]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			id,
			rec.Version,
			truncate(rec.Status, 40),
			rec.LastSeen.Local().Format(timeLayout),
			now.Sub(rec.LastSeen).Truncate(time.Second),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d clients\n", len(clients))
}

func printReportsTable(w io.Writer, reports []model.ReportEvent) {
	if len(reports) == 0 {
		fmt.Fprintln(w, ui.Muted("no pending reports"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAGENT\tKIND\tSTATUS\tTIME")
	for i := range reports {
		r := &reports[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.AgentID, r.Kind(), truncate(r.Status, 40), r.Timestamp.Local().Format(timeLayout))
	}
	tw.Flush()
}

func printEventsTable(w io.Writer, evts []*model.Event) {
	if len(evts) == 0 {
		fmt.Fprintln(w, ui.Muted("no events"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tTOPIC\tAGENT\tPAYLOAD")
	for _, e := range evts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.CreatedAt.Local().Format(timeLayout), e.Topic, e.AgentID, truncate(string(e.Payload), 60))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
