package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"smartclient/pkg/terminal"
)

var (
	keysFormat string
	keysFilter string
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List function key names and wire codes",
	Long: `List the function keys the client can report to the server.

The code is the value sent in the e attribute of a keyin result and in
trap notifications. Use --filter to match part of a key name.`,
	Aliases: []string{"fkeys"},
	Args:    cobra.NoArgs,
	RunE:    runKeys,
}

func init() {
	keysCmd.Flags().StringVarP(&keysFormat, "format", "f", "table", "output format (table, csv, json)")
	keysCmd.Flags().StringVar(&keysFilter, "filter", "", "only list keys whose name contains this text")
}

func runKeys(cmd *cobra.Command, args []string) error {
	keys := filterKeys(terminal.FunctionKeys(), keysFilter)
	out := cmd.OutOrStdout()

	switch keysFormat {
	case "csv":
		printKeysCSV(out, keys)
	case "json":
		return printKeysJSON(out, keys)
	case "table":
		printKeysTable(out, keys)
	default:
		return fmt.Errorf("unknown format %q", keysFormat)
	}
	return nil
}

func filterKeys(keys []terminal.NamedKey, filter string) []terminal.NamedKey {
	if filter == "" {
		return keys
	}
	filter = strings.ToLower(filter)
	var out []terminal.NamedKey
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k.Name), filter) {
			out = append(out, k)
		}
	}
	return out
}

func printKeysTable(w io.Writer, keys []terminal.NamedKey) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "No matching keys.")
		return
	}
	fmt.Fprintf(w, "%d function key(s):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %-12s %4d\n", k.Name, k.Code)
	}
}

func printKeysCSV(w io.Writer, keys []terminal.NamedKey) {
	fmt.Fprintln(w, "name,code")
	for _, k := range keys {
		fmt.Fprintf(w, "%s,%d\n", k.Name, k.Code)
	}
}

func printKeysJSON(w io.Writer, keys []terminal.NamedKey) error {
	if keys == nil {
		keys = []terminal.NamedKey{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(keys)
}
