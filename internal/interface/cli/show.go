package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/chatify/internal/core/conversation"
	"github.com/neilberkman/chatify/internal/core/workspace"
)

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var askCmd = &cobra.Command{
	Use:   "ask <conversation-id> <question>",
	Short: "Ask one question in a conversation",
	Long: `Send a question in a conversation and print the answer.

Examples:
  chatify ask 6650c1d2e4 "What is the main conclusion?"
  chatify ask 6650c1d2e4 what are the key dates`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(showCmd, askCmd)
}

// openConversation signs in from the stored token and selects id
func openConversation(ctx context.Context, id string) (*workspace.Workspace, error) {
	ws, err := openWorkspace()
	if err != nil {
		return nil, err
	}
	if err := requireLogin(ws); err != nil {
		_ = ws.Close()
		return nil, err
	}
	if err := ws.Conversation.Select(ctx, id); err != nil {
		_ = ws.Close()
		return nil, handle(err)
	}
	return ws, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ws, err := openConversation(context.Background(), args[0])
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	snap := ws.Conversation.Snapshot()
	if snap.Title != "" {
		fmt.Println(userLabelStyle.Render("# " + snap.Title))
		fmt.Println()
	}
	if len(snap.Messages) == 0 {
		fmt.Println(dimStyle.Render("No messages yet. Ask something with 'chatify ask " + snap.ActiveID + " <question>'."))
		return nil
	}
	for _, m := range snap.Messages {
		printMessage(os.Stdout, m)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ws, err := openConversation(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	question := strings.Join(args[1:], " ")
	return askOnce(ctx, ws.Conversation, question)
}

// askOnce runs one send with a spinner and prints the outcome
func askOnce(ctx context.Context, ctrl *conversation.Controller, question string) error {
	before := len(ctrl.Snapshot().Messages)

	spinner := NewSpinner("Waiting for answer...")
	if isTerminal(os.Stderr) {
		spinner.Start()
	}
	err := ctrl.Send(ctx, question)
	spinner.Stop()

	if herr := handle(err); herr == errReported {
		return herr
	}

	snap := ctrl.Snapshot()
	if n := len(snap.Messages); n > before && !snap.Messages[n-1].IsUser() {
		printMessage(os.Stdout, snap.Messages[n-1])
	}
	return err
}
