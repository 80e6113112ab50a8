package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tabsCmd = &cobra.Command{
	Use:   "tabs APP_ID",
	Short: "List the windows and tabs of one application",
	Long: `List the windows of one application together with their tabs.

APP_ID is the application identifier shown by 'tabscout list'.`,
	Example: `  # Tabs of every Firefox window
  tabscout tabs firefox

  # As JSON
  tabscout tabs firefox --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runTabs,
}

var tabsFormat string

func init() {
	rootCmd.AddCommand(tabsCmd)

	tabsCmd.Flags().StringVarP(&tabsFormat, "format", "f", "table", "output format (table or json)")
}

func runTabs(cmd *cobra.Command, args []string) error {
	appID := args[0]

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Discovery.IncludeTabs = true

	b, err := openBackend(cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	t := b.newTracker()
	if err := t.Start(cmd.Context()); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	defer t.Stop()

	recs := t.Windows("", appID)
	if len(recs) == 0 {
		return fmt.Errorf("no windows found for application: %s", appID)
	}
	return emit(tabsFormat, recs, t.Cache(), true)
}
