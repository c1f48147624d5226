package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/neilberkman/chatify/internal/core/models"
)

var (
	historyLimit int
	historySince string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"list", "ls"},
	Short:   "List your conversations",
	Long: `List conversations in the order the server returns them (newest first).

Examples:
  chatify history
  chatify history --limit 5
  chatify history --since yesterday
  chatify history --since "last week" --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of conversations to display")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only conversations created after this date (e.g. yesterday, 2025-01-01)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if err := requireLogin(ws); err != nil {
		return err
	}
	if err := ws.History.Refresh(context.Background()); err != nil {
		return handle(err)
	}

	var since time.Time
	if historySince != "" {
		parsed := parseDate(historySince, time.Now())
		if parsed == nil {
			return fmt.Errorf("could not understand date %q", historySince)
		}
		since = *parsed
	}

	summaries := filterSummaries(ws.History.Summaries(), since, historyLimit)

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No conversations found. Run 'chatify upload <file.pdf>' to start one.")
		return nil
	}

	titleWidth := terminalWidth() - 40
	if titleWidth < 20 {
		titleWidth = 20
	}
	for _, s := range summaries {
		fmt.Printf("%s  %s  %s\n",
			padRight(s.ID, 24),
			padRight(truncate(s.DisplayTitle(), titleWidth), titleWidth),
			dimStyle.Render(formatAge(s.CreatedAt)))
	}
	return nil
}

// filterSummaries keeps server order, drops entries older than since (when
// set, entries without a timestamp are kept) and applies limit
func filterSummaries(in []models.ConversationSummary, since time.Time, limit int) []models.ConversationSummary {
	out := make([]models.ConversationSummary, 0, len(in))
	for _, s := range in {
		if !since.IsZero() && !s.CreatedAt.IsZero() && s.CreatedAt.Before(since) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// parseDate understands common date formats and natural language
// ("yesterday", "last week"). Exact layouts win; when would read
// 2025-01-15 as a time of day.
func parseDate(dateStr string, now time.Time) *time.Time {
	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return &t
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(dateStr, now)
	if err == nil && result != nil {
		return &result.Time
	}
	return nil
}
