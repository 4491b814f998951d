package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"agent-chat/internal/agent"
	"agent-chat/internal/attach"
	"agent-chat/internal/chat"
	"agent-chat/internal/sniff"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message and print the reply",
		Long:  "Send one message to the agent and print its reply. Without arguments the message is read from stdin.",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSendCmd,
	}

	cmd.Flags().String("session", "", "session id to continue (default: most recent)")
	cmd.Flags().Bool("new", false, "start a new chat")
	cmd.Flags().StringSliceP("attach", "a", nil, "file to attach (repeatable)")
	cmd.Flags().Bool("raw", false, "print binary replies as-is instead of saving them")

	return cmd
}

func runSendCmd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	mgr, err := a.manager()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := selectSession(ctx, cmd, mgr); err != nil {
		return err
	}

	paths, _ := cmd.Flags().GetStringSlice("attach")
	for _, p := range paths {
		att, err := attach.FromFile(p)
		if err != nil {
			return err
		}
		mgr.Attach(att)
	}

	reply, err := mgr.Send(ctx, text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return errors.New("nothing to send")
	case errors.Is(err, agent.ErrUnavailable):
		a.logger.Warn("send failed", zap.Error(err))
		return errors.New(chat.UnreachableText)
	case err != nil:
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), styleDim.Render("session "+mgr.ActiveID())+" "+styleTag.Render(reply.Tag()))

	raw, _ := cmd.Flags().GetBool("raw")
	res, err := sniff.Sniff(reply.Text)
	if raw || err != nil || res.Kind != sniff.KindBinary {
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		return nil
	}

	path, err := a.exporter.SaveResponse(res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s reply saved to %s\n", styleSuccess.Render("Saved"), res.MIME, path)
	return nil
}

func selectSession(ctx context.Context, cmd *cobra.Command, mgr *chat.Manager) error {
	id, _ := cmd.Flags().GetString("session")
	fresh, _ := cmd.Flags().GetBool("new")

	switch {
	case id != "" && fresh:
		return errors.New("--session and --new cannot be combined")
	case id != "":
		_, err := mgr.Select(ctx, id)
		return err
	case fresh:
		_, err := mgr.NewChat(ctx)
		return err
	default:
		return mgr.Load(ctx)
	}
}
