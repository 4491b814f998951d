package main

import (
	"fmt"
	"io"
	"os"

	"agent-chat/internal/sniff"

	"github.com/spf13/cobra"
)

func newSniffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sniff [file]",
		Short: "Classify a reply the way the chat view does",
		Long:  "Classify a reply as XML, JSON, CSV, a base64 data URL or plain text. Reads stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSniffCmd,
	}
	cmd.Flags().Bool("save", false, "save the content to the export directory as response.<ext>")
	return cmd
}

func runSniffCmd(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	res, err := sniff.Sniff(string(data))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, kvLine("Kind", string(res.Kind)))
	fmt.Fprintln(out, kvLine("Extension", res.Ext))
	fmt.Fprintln(out, kvLine("MIME", res.MIME))
	fmt.Fprintln(out, kvLine("Bytes", fmt.Sprintf("%d", len(res.Data))))

	save, _ := cmd.Flags().GetBool("save")
	if !save {
		return nil
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	path, err := a.exporter.SaveResponse(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, styleSuccess.Render("Saved")+" "+path)
	return nil
}
