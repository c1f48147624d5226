package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <conversation-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if err := requireLogin(ws); err != nil {
		return err
	}

	label := id
	if err := ws.History.Refresh(context.Background()); err != nil {
		return handle(err)
	}
	if s, ok := ws.History.Find(id); ok {
		label = fmt.Sprintf("%q (%s)", s.DisplayTitle(), id)
	}

	if !deleteYes {
		ok, err := confirm(fmt.Sprintf("Delete conversation %s?", label))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := ws.Delete(context.Background(), id); err != nil {
		return handle(err)
	}
	fmt.Printf("Deleted %s\n", label)
	return nil
}
