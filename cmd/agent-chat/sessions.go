package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"agent-chat/internal/export"
	"agent-chat/internal/history"
	"agent-chat/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Chat history commands",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	cmd.AddCommand(newSessionsRenameCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	cmd.AddCommand(newSessionsExportCmd())

	return cmd
}

func newSessionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats grouped by age",
		Args:  cobra.NoArgs,
		RunE:  runSessionsListCmd,
	}
	cmd.Flags().StringP("search", "s", "", "only list chats whose title or messages match")
	return cmd
}

func runSessionsListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	query, _ := cmd.Flags().GetString("search")
	buckets, err := a.offlineManager(nil).Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(buckets) == 0 {
		if strings.TrimSpace(query) != "" {
			fmt.Fprintln(out, styleDim.Render("No chats match "+query+"."))
			return nil
		}
		fmt.Fprintln(out, styleDim.Render("No chats yet."))
		return nil
	}

	printSessionsTable(out, buckets)
	return nil
}

func printSessionsTable(w io.Writer, buckets []history.Bucket) {
	t := table.New().
		Headers("", "SESSION ID", "TITLE", "MESSAGES", "STARTED").
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	for _, b := range buckets {
		for i, s := range b.Sessions {
			label := ""
			if i == 0 {
				label = styleBucket.Render(b.Label)
			}
			t.Row(label, s.ID, shortTitle(s.Title), fmt.Sprintf("%d", s.Count()), formatTime(s))
		}
	}

	fmt.Fprintln(w, t.Render())
}

func shortTitle(title string) string {
	const limit = 48
	r := []rune(title)
	if len(r) <= limit {
		return title
	}
	return string(r[:limit-3]) + "..."
}

func formatTime(s history.Session) string {
	if s.StartedAt.IsZero() {
		return "-"
	}
	return s.StartedAt.Local().Format("2006-01-02 15:04")
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a chat transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsShowCmd,
	}
}

func runSessionsShowCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.store.Get(cmd.Context(), args[0])
	if err != nil {
		return notFound(args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, kvLine("Session", s.ID))
	fmt.Fprintln(out, kvLine("Title", s.Title))
	fmt.Fprintln(out, kvLine("Messages", fmt.Sprintf("%d", s.Count())))
	fmt.Fprintln(out, kvLine("Started", formatTime(s)))
	fmt.Fprintln(out)
	fmt.Fprint(out, export.BuildTranscriptMarkdown(s.Messages))
	return nil
}

func newSessionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSessionsRenameCmd,
	}
}

func runSessionsRenameCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		return errors.New("title is empty")
	}
	if err := a.offlineManager(nil).Rename(cmd.Context(), args[0], title); err != nil {
		return notFound(args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %q\n", styleSuccess.Render("Renamed"), args[0], title)
	return nil
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a chat and its messages",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsDeleteCmd,
	}
}

func runSessionsDeleteCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.offlineManager(nil).Delete(cmd.Context(), args[0]); err != nil {
		return notFound(args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styleSuccess.Render("Deleted"), args[0])
	return nil
}

func newSessionsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <session-id>",
		Short: "Write a chat transcript as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsExportCmd,
	}
}

func runSessionsExportCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.store.Get(cmd.Context(), args[0])
	if err != nil {
		return notFound(args[0], err)
	}
	path, err := a.exporter.ExportSession(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styleSuccess.Render("Exported"), path)
	return nil
}

func notFound(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	return err
}
