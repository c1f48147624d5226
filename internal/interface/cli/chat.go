package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/neilberkman/chatify/internal/core/config"
	"github.com/neilberkman/chatify/internal/core/conversation"
	"github.com/neilberkman/chatify/internal/core/gateway"
)

var chatCmd = &cobra.Command{
	Use:   "chat <conversation-id>",
	Short: "Interactive question/answer session in a conversation",
	Long: `Open a conversation and ask questions interactively.

Type /quit or press Ctrl-D to leave, /history to reprint the log.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openConversation(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	snap := ws.Conversation.Snapshot()
	fmt.Println(userLabelStyle.Render(snap.Title))
	fmt.Println(dimStyle.Render("Type /quit to leave."))
	fmt.Println()
	for _, m := range snap.Messages {
		printMessage(os.Stdout, m)
	}

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(config.Dir(), "chat_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			for _, m := range ws.Conversation.Snapshot().Messages {
				printMessage(os.Stdout, m)
			}
			continue
		}
		line.AppendHistory(input)

		err = askOnce(ctx, ws.Conversation, input)
		switch {
		case errors.Is(err, errReported):
			// Signed out; nothing more can be sent
			return err
		case errors.Is(err, conversation.ErrNoActiveConversation):
			return err
		case err != nil:
			fmt.Fprintln(os.Stderr, failedStyle.Render(gateway.UserMessage(err)))
		}
	}
}
