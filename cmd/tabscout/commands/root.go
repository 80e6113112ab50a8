package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/tabscout/internal/config"
	"github.com/bryanchriswhite/tabscout/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "tabscout",
		Short: "TabScout - window and tab tracker for the desktop",
		Long: `TabScout discovers the top-level windows and tabs of every running
application through the accessibility tree, keeps them in a cache with
stable IDs, and follows changes as they happen.

Features:
  • Per-application tab strategies with a menu fallback
  • Stable window and tab IDs across title changes
  • Live updates with automatic recovery from missed events
  • Focus, raise, minimize, maximize, move, resize and close actions
  • REST API and WebSocket event stream`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tabscout/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8089)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("enable-logging", false, "trace collectors and events at debug level")
	rootCmd.PersistentFlags().Bool("notify-on-main-thread", true, "deliver events from the pipeline loop")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("enable_logging", rootCmd.PersistentFlags().Lookup("enable-logging"))
	viper.BindPFlag("notify_on_main_thread", rootCmd.PersistentFlags().Lookup("notify-on-main-thread"))
	viper.SetEnvPrefix("tabscout")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// initLogging configures the global logger from the flags alone. loadConfig
// reconfigures it once the file values are known.
func initLogging() {
	level := viper.GetString("log_level")
	if level == "" {
		level = config.Defaults().LogLevel
	}
	logger.Init(level, true)
	logger.SetTracing(viper.GetBool("enable_logging"))
}

// loadConfig reads the config file and applies flag overrides on top
func loadConfig() (*config.Manager, config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := overrides(configMgr.Get())
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	logger.SetTracing(cfg.EnableLogging)
	return configMgr, cfg, nil
}

// overrides applies the flags (and TABSCOUT_* variables) that were set
func overrides(cfg config.Config) config.Config {
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			cfg.ServerPort = port
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			cfg.LogLevel = level
		}
	}
	if viper.IsSet("enable_logging") {
		cfg.EnableLogging = viper.GetBool("enable_logging")
	}
	if viper.IsSet("notify_on_main_thread") {
		cfg.NotifyOnMainThread = viper.GetBool("notify_on_main_thread")
	}
	return cfg
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
