package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/chatify/internal/core/export"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Export a conversation to markdown, JSON or YAML",
	Long: `Export a conversation transcript.

Markdown uses a mustache template; set export_template in the config file
to use your own.

Examples:
  chatify export 6650c1d2e4
  chatify export 6650c1d2e4 --format json -o chat.json
  chatify export 6650c1d2e4 -f yaml -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path, - for stdout (default: chat-<id>.<ext> in current directory)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: markdown, json or yaml")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	ws, err := openConversation(context.Background(), args[0])
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	transcript := export.NewTranscript(ws.Conversation.Snapshot().Conversation(), time.Now())

	var out io.Writer = os.Stdout
	outputPath := exportOutput
	if outputPath != "-" {
		if outputPath == "" {
			shortID := transcript.ID
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			outputPath = fmt.Sprintf("chat-%s.%s", shortID, extension(format))
		}
		if !filepath.IsAbs(outputPath) {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			outputPath = filepath.Join(cwd, outputPath)
		}

		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outputPath, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := export.Write(out, format, transcript, cfg.LoadExportTemplate()); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	if exportOutput != "-" {
		fmt.Printf("Exported %d message(s) to %s\n", len(transcript.Messages), outputPath)
	}
	return nil
}

func extension(f export.Format) string {
	switch f {
	case export.JSON:
		return "json"
	case export.YAML:
		return "yaml"
	default:
		return "md"
	}
}
