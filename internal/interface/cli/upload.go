package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF and start a conversation about it",
	Long: `Upload a PDF. The server creates a conversation for it, or reopens the
existing one if a file with the same name was uploaded before.

Examples:
  chatify upload report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if err := requireLogin(ws); err != nil {
		return err
	}

	spinner := NewSpinner(fmt.Sprintf("Uploading %s (%s)...", filepath.Base(path), humanize.Bytes(uint64(info.Size()))))
	if isTerminal(os.Stderr) {
		spinner.Start()
	}
	res, err := ws.Upload(context.Background(), path)
	spinner.Stop()

	if err != nil && res == nil {
		return handle(err)
	}

	if res.Message != "" {
		fmt.Println(res.Message)
	}
	fmt.Printf("Conversation: %s\n", res.ConversationID)
	if err != nil {
		// Uploaded, but the new conversation could not be opened
		return handle(err)
	}
	fmt.Printf("Ask with: chatify ask %s \"<question>\"\n", res.ConversationID)
	return nil
}
