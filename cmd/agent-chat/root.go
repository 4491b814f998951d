package main

import (
	"fmt"
	"os"

	"agent-chat/internal/agent"
	"agent-chat/internal/chat"
	"agent-chat/internal/clipboard"
	"agent-chat/internal/config"
	"agent-chat/internal/export"
	"agent-chat/internal/logging"
	"agent-chat/internal/store"
	"agent-chat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "agent-chat",
		Short:         "Terminal chat client for a remote agent",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newSniffCmd())

	return rootCmd
}

type app struct {
	cfg      config.AppConfig
	logger   *zap.Logger
	store    *store.Store
	exporter *export.Exporter
}

// openApp loads the configuration and opens the history database. The agent
// is built separately so offline commands work without a reachable backend.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	exp, err := export.New(cfg.ExportDir)
	if err != nil {
		_ = st.Close()
		_ = logger.Sync()
		return nil, err
	}

	logger.Info("agent-chat started",
		zap.String("data_dir", cfg.DataDir),
		zap.String("db_path", cfg.DBPath),
		zap.String("backend", cfg.Agent.Backend),
	)

	return &app{cfg: cfg, logger: logger, store: st, exporter: exp}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) manager() (*chat.Manager, error) {
	ag, err := agent.New(agent.Config{
		Backend:  a.cfg.Agent.Backend,
		Endpoint: a.cfg.Agent.Endpoint,
		BaseURL:  a.cfg.Agent.BaseURL,
		Token:    a.cfg.Agent.Token,
		Model:    a.cfg.Agent.Model,
		Timeout:  a.cfg.Timeout(),
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("configure agent: %w", err)
	}
	return a.offlineManager(ag), nil
}

// offlineManager is enough for commands that never talk to the agent.
func (a *app) offlineManager(ag agent.Agent) *chat.Manager {
	return chat.NewManager(a.store, ag, a.logger, chat.Options{
		Model: a.cfg.Agent.Model,
		Style: a.cfg.Agent.Style,
	})
}

func runTUI(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	mgr, err := a.manager()
	if err != nil {
		return err
	}

	model := ui.NewModel(mgr, a.exporter, clipboard.NewCopier(os.Stderr), a.logger)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		a.logger.Error("tui exited", zap.Error(err))
		return err
	}
	return nil
}
