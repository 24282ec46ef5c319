package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smartclient/pkg/app"
	"smartclient/pkg/config"
	"smartclient/pkg/ui"
)

var (
	// Root command flags
	verbose     bool
	configDir   string
	logLevel    string
	logFile     string
	traceFile   string
	traceFormat string
	metricsAddr string

	// Root command
	rootCmd = &cobra.Command{
		Use:               "smartclient",
		Short:             "Terminal client for smart servers",
		Version:           app.Version,
		RunE:              runRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

// Execute runs the root command and returns the error that should decide
// the exit status.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "profile directory (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write a JSON debug log to this file")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace-file", "", "save the frame trace to this file when the session ends")
	rootCmd.PersistentFlags().StringVar(&traceFormat, "trace-format", "timestamped", "trace format (plain_text, timestamped, json)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(traceCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// profileManager opens the profile store named by --config-dir.
func profileManager() (*config.FileConfigManager, error) {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultConfigDir(); err != nil {
			return nil, ui.NewAppError(ui.ErrorConfig, "config_dir", "cannot locate the profile directory", err)
		}
	}
	return config.NewFileConfigManager(dir), nil
}

// applicationConfig applies the root flags to the application defaults.
func applicationConfig() (ui.ApplicationConfig, error) {
	c := ui.DefaultApplicationConfig()
	c.LogLevel = logLevel
	if verbose && logLevel == "info" {
		c.LogLevel = "debug"
	}
	c.LogFile = logFile
	c.TraceFile = traceFile
	c.TraceFormat = traceFormat
	c.MetricsAddr = metricsAddr
	if configDir != "" {
		c.ConfigDir = configDir
	}
	if err := c.Validate(); err != nil {
		return c, ui.NewAppError(ui.ErrorConfig, "flags", "invalid option", err)
	}
	return c, nil
}
