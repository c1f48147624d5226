package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neilberkman/chatify/internal/core/config"
	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/workspace"
)

var (
	cfgPath     string
	versionInfo string
	version     = "dev"

	cfg *config.Config
	v   = viper.New()
)

// errReported means the failure was already shown to the user
var errReported = errors.New("already reported")

// SetVersion sets the version information from build-time ldflags
func SetVersion(ver, commit, date string) {
	version = ver
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", ver, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err unless it was already shown
func reportError(w io.Writer, err error) {
	if errors.Is(err, errReported) {
		return
	}
	fmt.Fprintln(w, "Error:", gateway.UserMessage(err))
}

var rootCmd = &cobra.Command{
	Use:   "chatify",
	Short: "Chat with your PDF documents",
	Long: `chatify - upload PDFs and ask questions about them

Sign in, upload a document to start a conversation, then ask questions
from the terminal UI, the command line or an MCP client.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "Config file (default ~/.config/chatify/config.toml)")
	flags.String("base-url", "", "Backend URL (default "+config.DefaultBaseURL+")")
	flags.String("db", "", "Database path")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Duration("timeout", 0, "Request timeout")

	_ = v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = v.BindPFlag("db_path", flags.Lookup("db"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))

	v.SetEnvPrefix("CHATIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// loadConfig reads the config file and applies environment and flag
// overrides, then sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	loaded.Overlay(v)
	cfg = loaded

	return logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}

// openWorkspace opens the local database and wires the client. Rejected
// sessions print one notice; commands then return errReported for them.
func openWorkspace() (*workspace.Workspace, error) {
	ws, err := workspace.Open(cfg)
	if err != nil {
		return nil, err
	}
	ws.OnAuthRejected(func(op string) {
		fmt.Fprintln(os.Stderr, "Your session has expired. Run 'chatify login' to sign in again.")
	})
	return ws, nil
}

// requireLogin stops commands that need a token before any request is made
func requireLogin(ws *workspace.Workspace) error {
	if !ws.Authenticated() {
		return errors.New("not signed in: run 'chatify login' first")
	}
	return nil
}

// handle maps an auth rejection to errReported; the listener already told
// the user
func handle(err error) error {
	if err != nil && gateway.IsAuthRejected(err) {
		return errReported
	}
	return err
}
