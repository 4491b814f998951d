package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Command struct {
	Path string
	Args []string
}

func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	switch goos {
	case "darwin":
		path, err := lookPath("pbcopy")
		if err != nil {
			return Command{}, ErrToolNotFound
		}
		return Command{Path: path}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if path, err := lookPath("wl-copy"); err == nil {
			return Command{Path: path}, nil
		}
		if path, err := lookPath("xclip"); err == nil {
			return Command{Path: path, Args: []string{"-selection", "clipboard"}}, nil
		}
		if path, err := lookPath("xsel"); err == nil {
			return Command{Path: path, Args: []string{"--clipboard", "--input"}}, nil
		}
		return Command{}, ErrToolNotFound
	case "windows":
		path, err := lookPath("clip")
		if err != nil {
			return Command{}, ErrToolNotFound
		}
		return Command{Path: path}, nil
	default:
		return Command{}, ErrToolNotFound
	}
}

// Copier copies text with a native tool and falls back to an OSC 52 escape
// sequence on Terminal when no tool is installed.
type Copier struct {
	GOOS     string
	LookPath func(string) (string, error)
	Terminal io.Writer
	// Term selects tmux or screen passthrough for the escape sequence.
	Term string
}

func NewCopier(terminal io.Writer) *Copier {
	return &Copier{
		GOOS:     runtime.GOOS,
		LookPath: exec.LookPath,
		Terminal: terminal,
		Term:     os.Getenv("TERM"),
	}
}

func (c *Copier) Copy(ctx context.Context, text string) error {
	cmdDef, err := SelectCommand(c.GOOS, c.LookPath)
	if errors.Is(err, ErrToolNotFound) && c.Terminal != nil {
		return c.copyOSC52(text)
	}
	if err != nil {
		return err
	}
	return run(ctx, cmdDef, text)
}

func (c *Copier) copyOSC52(text string) error {
	seq := osc52.New(text)
	switch {
	case strings.HasPrefix(c.Term, "tmux"):
		seq = seq.Tmux()
	case strings.HasPrefix(c.Term, "screen"):
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(c.Terminal); err != nil {
		return fmt.Errorf("write osc52 sequence: %w", err)
	}
	return nil
}

func run(ctx context.Context, cmdDef Command, text string) error {
	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := stdin.Write([]byte(text)); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
