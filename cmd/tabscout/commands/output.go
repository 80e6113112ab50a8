package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/bryanchriswhite/tabscout/internal/cache"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printRecords writes windows as a table, each followed by its tabs
func printRecords(w io.Writer, recs []window.Record, tabsOf func(string) []window.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tAPP\tPID\tTITLE\tFRAME\tSCREEN\tSTATE\tUPDATED")
	fmt.Fprintln(tw, "--\t---\t---\t-----\t-----\t------\t-----\t-------")

	for _, r := range recs {
		if r.IsTab() {
			continue
		}
		printRow(tw, r, "")
		if tabsOf == nil {
			continue
		}
		for _, t := range tabsOf(r.StableID) {
			printRow(tw, t, "  ")
		}
	}
	return tw.Flush()
}

func printRow(w io.Writer, r window.Record, indent string) {
	fmt.Fprintf(w, "%s%s\t%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
		indent, r.StableID, r.AppID, r.PID, truncate(r.Title, 48),
		frameString(r), r.Screen, stateString(r), since(r.LastUpdate))
}

// since renders t relative to now, "-" when unset
func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func frameString(r window.Record) string {
	if r.Frame.IsEmpty() {
		return "-"
	}
	return fmt.Sprintf("%.0fx%.0f+%.0f+%.0f", r.Frame.Width, r.Frame.Height, r.Frame.X, r.Frame.Y)
}

func stateString(r window.Record) string {
	var s []string
	if r.Flags.Focused {
		s = append(s, "focused")
	}
	if r.Flags.Minimized {
		s = append(s, "minimized")
	}
	if r.Flags.Fullscreen {
		s = append(s, "fullscreen")
	}
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}

// truncate shortens s to n terminal columns
func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "…")
}

// emit prints records in the requested format
func emit(format string, recs []window.Record, c *cache.Cache, withTabs bool) error {
	switch format {
	case "json":
		return writeJSON(os.Stdout, recs)
	case "table":
		var tabsOf func(string) []window.Record
		if withTabs {
			tabsOf = c.TabsOf
		}
		return printRecords(os.Stdout, recs, tabsOf)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}
