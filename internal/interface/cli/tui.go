package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/workspace"
	"github.com/neilberkman/chatify/internal/interface/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive chat UI",
	Long: `Launch the terminal UI: sign in, browse conversations, upload PDFs and
chat about them. This is the default when no command is given.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The alternate screen owns the terminal; logs go to the log file
	f, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat, f); err != nil {
		return err
	}

	// The TUI handles rejected sessions itself, so no stderr notice here
	ws, err := workspace.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	p := tea.NewProgram(
		tui.New(ws),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
