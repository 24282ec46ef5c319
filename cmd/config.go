package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smartclient/pkg/conn"
)

var (
	// Config command flags
	saveOpts        connOptions
	saveDescription string
	exportOutput    string
	importOverwrite bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage connection profiles",
	Long: `Manage saved connection profiles.

A profile stores the server address and the start request options so a
session can be opened with 'smartclient connect <profile>'.`,
	Aliases: []string{"profile"},
}

// saveCmd saves a profile
var saveCmd = &cobra.Command{
	Use:   "save <name> <host[:port]>",
	Short: "Save a connection profile",
	Long: `Save a server address and connection options under a name.

Example:
  smartclient config save payroll appserver:9735 -u alice -d /apps/payroll`,
	Args: cobra.ExactArgs(2),
	RunE: runSaveConfig,
}

// loadCmd connects using a profile
var loadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Connect using a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := profileManager()
		if err != nil {
			return err
		}
		if _, err := mgr.GetConfigInfo(args[0]); err != nil {
			return err
		}
		return runConnect(cmd, args)
	},
}

// listConfigCmd lists all profiles
var listConfigCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all saved profiles",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runListConfigs,
}

// deleteCmd deletes a profile
var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Short:   "Delete a saved profile",
	Aliases: []string{"rm", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE:    runDeleteConfig,
}

// showCmd shows details of a profile
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details of a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowConfig,
}

// exportCmd writes profiles as YAML
var exportCmd = &cobra.Command{
	Use:   "export [name...]",
	Short: "Export profiles as YAML",
	Long: `Write the named profiles, or all of them, as a YAML document.

Example:
  smartclient config export payroll -o payroll.yaml`,
	RunE: runExportConfig,
}

// importCmd reads profiles from YAML
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import profiles from a YAML export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportConfig,
}

func init() {
	configCmd.AddCommand(saveCmd)
	configCmd.AddCommand(loadCmd)
	configCmd.AddCommand(listConfigCmd)
	configCmd.AddCommand(deleteCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(exportCmd)
	configCmd.AddCommand(importCmd)

	saveOpts.register(saveCmd.Flags())
	saveCmd.Flags().StringVar(&saveDescription, "description", "", "free text shown by config list")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of standard output")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace profiles that already exist")
}

func runSaveConfig(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := conn.ParseAddr(args[1])
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}
	saveOpts.apply(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mgr, err := profileManager()
	if err != nil {
		return err
	}
	if err := mgr.SaveConfig(name, cfg); err != nil {
		return fmt.Errorf("error saving profile: %w", err)
	}
	if saveDescription != "" {
		if err := mgr.SetConfigDescription(name, saveDescription); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile '%s' saved successfully.\n", name)
	fmt.Fprintf(out, "  Server: %s\n", cfg.Addr())
	if cfg.User != "" {
		fmt.Fprintf(out, "  User: %s\n", cfg.User)
	}
	if cfg.Dir != "" {
		fmt.Fprintf(out, "  Directory: %s\n", cfg.Dir)
	}
	fmt.Fprintf(out, "  Encryption: %t\n", cfg.Encryption)
	fmt.Fprintf(out, "  Data port: %s\n", localPortString(cfg.LocalPort))
	return nil
}

func runListConfigs(cmd *cobra.Command, args []string) error {
	mgr, err := profileManager()
	if err != nil {
		return err
	}
	configs, err := mgr.ListConfigs()
	if err != nil {
		return fmt.Errorf("error listing profiles: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(configs) == 0 {
		fmt.Fprintln(out, "No saved profiles found.")
		fmt.Fprintln(out, "\nUse 'smartclient config save <name> <host[:port]>' to save a profile.")
		return nil
	}

	fmt.Fprintf(out, "Found %d saved profile(s):\n\n", len(configs))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSERVER\tUSER\tLAST USED\tDESCRIPTION")
	fmt.Fprintln(w, "----\t------\t----\t---------\t-----------")

	for _, info := range configs {
		lastUsed := "Never"
		if !info.LastUsedAt.IsZero() {
			lastUsed = info.LastUsedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			info.Name,
			info.Config.Addr(),
			info.Config.User,
			lastUsed,
			info.Description)
	}
	w.Flush()

	fmt.Fprintln(out, "\nUse 'smartclient connect <name>' to connect using a profile.")
	return nil
}

func runDeleteConfig(cmd *cobra.Command, args []string) error {
	name := args[0]
	mgr, err := profileManager()
	if err != nil {
		return err
	}
	if err := mgr.DeleteConfig(name); err != nil {
		return fmt.Errorf("error deleting profile '%s': %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted successfully.\n", name)
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	name := args[0]
	mgr, err := profileManager()
	if err != nil {
		return err
	}
	info, err := mgr.GetConfigInfo(name)
	if err != nil {
		return err
	}

	c := info.Config
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile: %s\n", info.Name)
	fmt.Fprintln(out, strings.Repeat("=", len(info.Name)+9))
	if info.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", info.Description)
	}
	fmt.Fprintf(out, "Server:       %s\n", c.Addr())
	fmt.Fprintf(out, "User:         %s\n", c.User)
	fmt.Fprintf(out, "Directory:    %s\n", c.Dir)
	fmt.Fprintf(out, "Parameters:   %s\n", c.Params)
	fmt.Fprintf(out, "Encryption:   %t\n", c.Encryption)
	if c.InsecureSkipVerify {
		fmt.Fprintf(out, "Verify TLS:   no\n")
	}
	fmt.Fprintf(out, "Data port:    %s\n", localPortString(c.LocalPort))
	fmt.Fprintf(out, "Dial timeout: %v\n", c.DialTimeout)
	fmt.Fprintf(out, "Handshake:    %v\n", c.HandshakeTimeout)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created:      %s\n", info.CreatedAt.Format(time.RFC3339))
	if !info.LastUsedAt.IsZero() {
		fmt.Fprintf(out, "Last Used:    %s\n", info.LastUsedAt.Format(time.RFC3339))
	} else {
		fmt.Fprintf(out, "Last Used:    Never\n")
	}
	return nil
}

func runExportConfig(cmd *cobra.Command, args []string) error {
	mgr, err := profileManager()
	if err != nil {
		return err
	}
	if exportOutput == "" {
		return mgr.Export(cmd.OutOrStdout(), args...)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := mgr.Export(f, args...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profiles exported to %s\n", exportOutput)
	return nil
}

func runImportConfig(cmd *cobra.Command, args []string) error {
	mgr, err := profileManager()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	n, err := mgr.Import(f, importOverwrite)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profile(s).\n", n)
	return nil
}
