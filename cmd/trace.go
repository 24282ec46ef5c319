package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartclient/pkg/history"
)

var (
	traceShowFormat string
	traceDirection  string
	convertFormat   string
)

// traceCmd groups the frame trace tools
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect saved frame traces",
	Long: `Inspect frame traces saved with --trace-file and --trace-format json.

Files ending in .zst are read and written zstd compressed.`,
}

var traceShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a JSON trace in a readable format",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceShow,
}

var traceConvertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Rewrite a JSON trace in another format",
	Args:  cobra.ExactArgs(2),
	RunE:  runTraceConvert,
}

func init() {
	traceCmd.AddCommand(traceShowCmd)
	traceCmd.AddCommand(traceConvertCmd)

	traceShowCmd.Flags().StringVarP(&traceShowFormat, "format", "f", "timestamped", "output format (plain_text, timestamped, json)")
	traceShowCmd.Flags().StringVar(&traceDirection, "direction", "", "only show frames in this direction (in, out)")
	traceConvertCmd.Flags().StringVarP(&convertFormat, "format", "f", "plain_text", "output format (plain_text, timestamped, json)")
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	format, err := history.ParseFormat(traceShowFormat)
	if err != nil {
		return err
	}
	entries, err := history.LoadFile(args[0])
	if err != nil {
		return err
	}
	if traceDirection != "" {
		var dir history.Direction
		switch traceDirection {
		case "in":
			dir = history.DirectionInbound
		case "out":
			dir = history.DirectionOutbound
		default:
			return fmt.Errorf("invalid direction %q, want in or out", traceDirection)
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Direction == dir {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return history.WriteEntries(cmd.OutOrStdout(), entries, format)
}

func runTraceConvert(cmd *cobra.Command, args []string) error {
	format, err := history.ParseFormat(convertFormat)
	if err != nil {
		return err
	}
	entries, err := history.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := history.SaveEntries(entries, args[1], format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries to %s\n", len(entries), args[1])
	return nil
}
