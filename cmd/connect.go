package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"smartclient/pkg/app"
	"smartclient/pkg/config"
	"smartclient/pkg/conn"
	"smartclient/pkg/ui"
)

// connOptions are the connection flags shared by connect and config save.
type connOptions struct {
	user             string
	dir              string
	params           string
	encrypt          bool
	localPort        int
	insecure         bool
	dialTimeout      time.Duration
	handshakeTimeout time.Duration
}

func (o *connOptions) register(fs *pflag.FlagSet) {
	def := conn.DefaultConfig()
	fs.StringVarP(&o.user, "user", "u", "", "user name sent in the start request")
	fs.StringVarP(&o.dir, "dir", "d", "", "working directory on the server")
	fs.StringVar(&o.params, "params", "", "program parameters passed to the server")
	fs.BoolVarP(&o.encrypt, "encrypt", "e", false, "encrypt the data connection with TLS")
	fs.IntVar(&o.localPort, "local-port", def.LocalPort, "data connection mode: -1 listen on any port, 0 let the server choose, >0 listen on that port")
	fs.BoolVar(&o.insecure, "insecure", false, "skip TLS certificate verification")
	fs.DurationVar(&o.dialTimeout, "dial-timeout", def.DialTimeout, "timeout for each connection attempt")
	fs.DurationVar(&o.handshakeTimeout, "handshake-timeout", def.HandshakeTimeout, "timeout for the start exchange")
}

// apply copies the flags that were set on the command line into cfg, so a
// profile keeps its own values unless overridden.
func (o *connOptions) apply(fs *pflag.FlagSet, cfg *conn.ConnConfig) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "user":
			cfg.User = o.user
		case "dir":
			cfg.Dir = o.dir
		case "params":
			cfg.Params = o.params
		case "encrypt":
			cfg.Encryption = o.encrypt
		case "local-port":
			cfg.LocalPort = o.localPort
		case "insecure":
			cfg.InsecureSkipVerify = o.insecure
		case "dial-timeout":
			cfg.DialTimeout = o.dialTimeout
		case "handshake-timeout":
			cfg.HandshakeTimeout = o.handshakeTimeout
		}
	})
}

var (
	connectOpts    connOptions
	pcCharset      bool
	termWidth      int
	termHeight     int
	headless       bool
	connectRetries int
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <host[:port]|profile>",
	Short: "Connect to a smart server",
	Long: `Connect to a smart server directly or using a saved profile.

You can specify either:
  - A host with an optional control port (default 9735)
  - A saved profile name; flags given on the command line override it

Press Ctrl-] during a session to open the local menu.

Examples:
  # Connect to a server on the default port
  smartclient connect appserver -u alice -d /apps/payroll

  # Let the server choose the data port and encrypt the session
  smartclient connect appserver:9000 --local-port 0 -e

  # Connect using a saved profile
  smartclient connect payroll`,
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"open"},
	RunE:    runConnect,
}

func init() {
	connectOpts.register(connectCmd.Flags())
	connectCmd.Flags().BoolVar(&pcCharset, "pc-charset", false, "translate text through the PC character set")
	connectCmd.Flags().IntVar(&termWidth, "width", 80, "initial screen width")
	connectCmd.Flags().IntVar(&termHeight, "height", 25, "initial screen height")
	connectCmd.Flags().BoolVar(&headless, "headless", false, "run without a screen")
	connectCmd.Flags().IntVar(&connectRetries, "retries", conn.DefaultRetryConfig().MaxRetries, "retries when the control port refuses")
}

// resolveTarget loads a saved profile by name or parses target as an
// address. The profile name is empty for addresses.
func resolveTarget(mgr *config.FileConfigManager, target string) (conn.ConnConfig, string, error) {
	if mgr.ConfigExists(target) {
		cfg, err := mgr.LoadConfig(target)
		if err != nil {
			return cfg, "", ui.NewAppError(ui.ErrorConfig, "profile", fmt.Sprintf("failed to load profile '%s'", target), err)
		}
		return cfg, target, nil
	}
	cfg, err := conn.ParseAddr(target)
	if err != nil {
		return cfg, "", ui.NewAppError(ui.ErrorConfig, "target", fmt.Sprintf("'%s' is neither a server address nor a saved profile", target), err)
	}
	return cfg, "", nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	mgr, err := profileManager()
	if err != nil {
		return err
	}
	connCfg, profile, err := resolveTarget(mgr, args[0])
	if err != nil {
		return err
	}
	connectOpts.apply(cmd.Flags(), &connCfg)
	if err := connCfg.Validate(); err != nil {
		return ui.NewAppError(ui.ErrorConfig, "conn", "invalid connection options", err)
	}

	appCfg, err := applicationConfig()
	if err != nil {
		return err
	}
	appCfg.PCCharset = pcCharset
	appCfg.TerminalWidth = termWidth
	appCfg.TerminalHeight = termHeight

	cfg := app.DefaultAppConfig()
	cfg.Conn = connCfg
	cfg.Retry.MaxRetries = connectRetries
	cfg.App = appCfg
	if headless && verbose {
		cfg.LiveTrace = cmd.OutOrStdout()
	}

	out := cmd.OutOrStdout()
	if verbose {
		if profile != "" {
			fmt.Fprintf(out, "Using profile '%s'\n", profile)
		}
		fmt.Fprintf(out, "Connecting to %s...\n", connCfg.Addr())
		fmt.Fprintf(out, "  User:       %s\n", connCfg.User)
		fmt.Fprintf(out, "  Directory:  %s\n", connCfg.Dir)
		fmt.Fprintf(out, "  Encryption: %t\n", connCfg.Encryption)
		fmt.Fprintf(out, "  Data port:  %s\n", localPortString(connCfg.LocalPort))
	}

	if headless {
		err = app.RunHeadless(cmd.Context(), cfg)
	} else {
		err = app.RunInteractive(cmd.Context(), cfg)
	}
	if err != nil {
		for _, hint := range connectHints(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", hint)
		}
	}
	return err
}

func localPortString(p int) string {
	switch p {
	case conn.LocalPortNone:
		return "chosen by server"
	case conn.LocalPortAny:
		return "listen on any port"
	}
	return fmt.Sprintf("listen on %d", p)
}

// connectHints suggests fixes for common connection failures.
func connectHints(err error) []string {
	appErr := ui.Classify(err)
	switch {
	case appErr.Type == ui.ErrorHandshake && appErr.Code == "rejected":
		return []string{"The server refused the session; check the user name and directory"}
	case appErr.Type == ui.ErrorHandshake:
		return []string{
			"The server did not complete the start exchange",
			"Check that the port is a smart server control port",
		}
	case appErr.Type == ui.ErrorIO && appErr.Code == "dial":
		return []string{
			"Check that the server is running and the port is correct",
			"Use --local-port 0 if a firewall blocks the server calling back",
		}
	case appErr.Type == ui.ErrorIO && appErr.Code == "accept":
		return []string{"The server never connected back; try --local-port 0"}
	case appErr.Type == ui.ErrorIO && appErr.Code == "tls":
		return []string{"The encrypted handshake failed; try --insecure for self-signed certificates"}
	case appErr.Type == ui.ErrorTerminal:
		return []string{"Run from an interactive terminal or pass --headless"}
	}
	return nil
}
