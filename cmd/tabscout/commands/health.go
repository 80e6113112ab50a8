package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/tabscout/internal/tracker"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of a running server",
	Long: `Query the health endpoint of a running 'tabscout serve' and print the
tracker and event pipeline state.`,
	Example: `  # Server on the configured port
  tabscout health

  # Server on another port, as JSON
  tabscout health --port 9090 --format json`,
	RunE: runHealth,
}

var healthFormat string

type healthReport struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Tracker tracker.Status `json:"tracker"`
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVarP(&healthFormat, "format", "f", "table", "output format (table or json)")
}

func runHealth(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/api/health", cfg.ServerPort))
	if err != nil {
		return fmt.Errorf("server not reachable on port %d: %w", cfg.ServerPort, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("invalid health response: %w", err)
	}

	switch healthFormat {
	case "json":
		return writeJSON(os.Stdout, report)
	case "table":
		return printHealth(report)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", healthFormat)
	}
}

func printHealth(r healthReport) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	st := r.Tracker
	fmt.Fprintf(w, "Status:\t%s\n", r.Status)
	fmt.Fprintf(w, "Version:\t%s\n", r.Version)
	fmt.Fprintf(w, "Records:\t%s (revision %s)\n", humanize.Comma(int64(st.Records)), humanize.Comma(int64(st.Revision)))
	fmt.Fprintf(w, "Last scan:\t%d apps, %d windows, %d tabs, %d evicted, %d failed in %s, %s\n",
		st.LastScan.Applications, st.LastScan.Windows, st.LastScan.Tabs,
		st.LastScan.Evicted, st.LastScan.Failed, st.LastScan.Duration, since(st.LastScan.At))
	fmt.Fprintf(w, "Live updates:\t%t\n", st.LiveUpdates)
	if h := st.Events; h != nil {
		fmt.Fprintf(w, "Pipeline:\t%s, %d attached, %d recoveries\n", h.State, h.Attached, h.Recoveries)
	}
	return w.Flush()
}
