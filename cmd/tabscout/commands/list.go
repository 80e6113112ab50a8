package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/tabscout/internal/window"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open windows",
	Long: `List the top-level windows of every running application.

This command runs a single discovery pass over the accessibility tree and
prints the result. It does not follow live changes.`,
	Example: `  # List windows in table format (default)
  tabscout list

  # Include each window's tabs
  tabscout list --tabs

  # List windows and tabs in JSON format
  tabscout list --tabs --format json

  # Show the focused window
  tabscout list --current`,
	RunE: runList,
}

var (
	listFormat  string
	listTabs    bool
	listCurrent bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	listCmd.Flags().BoolVarP(&listTabs, "tabs", "t", false, "include tabs")
	listCmd.Flags().BoolVarP(&listCurrent, "current", "c", false, "show the focused window")
}

func runList(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Discovery.IncludeTabs = listTabs

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

	if listCurrent {
		rec, ok := t.Focused()
		if !ok {
			fmt.Println("No window is currently focused")
			return nil
		}
		return emit(listFormat, []window.Record{rec}, t.Cache(), false)
	}

	typ := window.TypeWindow
	if listTabs && listFormat == "json" {
		typ = ""
	}
	return emit(listFormat, t.Windows(typ, ""), t.Cache(), listTabs)
}
