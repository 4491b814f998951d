package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

const (
	DefaultEndpoint       = "http://localhost:8000/agent/message"
	DefaultModel          = "gemini"
	DefaultStyle          = "balanced"
	DefaultTimeoutSeconds = 120
)

type AgentConfig struct {
	Backend        string `toml:"backend"`
	Endpoint       string `toml:"endpoint"`
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	Model          string `toml:"model"`
	Style          string `toml:"style"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type AppConfig struct {
	DataDir   string      `toml:"data_dir"`
	DBPath    string      `toml:"db_path"`
	ExportDir string      `toml:"export_dir"`
	LogFile   string      `toml:"log_file"`
	Debug     bool        `toml:"debug"`
	Agent     AgentConfig `toml:"agent"`

	ConfigPath string `toml:"-"`
}

func (c AppConfig) Timeout() time.Duration {
	if c.Agent.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

func Default(dataDir string) AppConfig {
	return AppConfig{
		DataDir: dataDir,
		Agent: AgentConfig{
			Backend:        "http",
			Endpoint:       DefaultEndpoint,
			Model:          DefaultModel,
			Style:          DefaultStyle,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
	}
}

// BindFlags registers the flags Load understands.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("data-dir", "", "directory for the database, log and config (default $AGENTCHAT_HOME or ~/.local/share/agent-chat)")
	flags.String("config", "", "path to config.toml (default <data-dir>/config.toml)")
	flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	flags.String("db-path", "", "path to SQLite history file")
	flags.String("export-dir", "", "directory for downloaded replies and exported transcripts")
	flags.String("log-file", "", "path to the JSON log file")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("backend", "", "agent backend: http or openai")
	flags.String("endpoint", "", "agent message endpoint")
	flags.String("model", "", "model name sent with each message")
	flags.String("style", "", "response style: balanced, creative or precise")
	flags.Int("timeout", 0, "agent request timeout in seconds")
}

// Load resolves the configuration from defaults, the TOML file, the dotenv
// file, the environment and finally any flags set explicitly on the command line.
func Load(flags *pflag.FlagSet) (AppConfig, error) {
	envFile := ".env"
	if flags != nil && flags.Lookup("env-file") != nil {
		envFile = flagString(flags, "env-file")
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("load env file: %w", err)
		}
	}

	dataDir, err := DetectDataHome(flagString(flags, "data-dir"))
	if err != nil {
		return AppConfig{}, err
	}
	cfg := Default(dataDir)

	cfg.ConfigPath = flagString(flags, "config")
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(dataDir, "config.toml")
	}
	if err := loadFile(cfg.ConfigPath, &cfg); err != nil {
		return cfg, err
	}
	cfg.DataDir = expandPath(cfg.DataDir)

	applyEnv(&cfg)
	applyFlags(flags, &cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "history.sqlite")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "agent-chat.log")
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = filepath.Join(cfg.DataDir, "exports")
	}
	cfg.DBPath = expandPath(cfg.DBPath)
	cfg.LogFile = expandPath(cfg.LogFile)
	cfg.ExportDir = expandPath(cfg.ExportDir)

	cfg.Agent.Style = strings.ToLower(strings.TrimSpace(cfg.Agent.Style))
	switch cfg.Agent.Style {
	case "balanced", "creative", "precise":
	case "":
		cfg.Agent.Style = DefaultStyle
	default:
		return cfg, fmt.Errorf("unknown style %q", cfg.Agent.Style)
	}
	if strings.TrimSpace(cfg.Agent.Model) == "" {
		cfg.Agent.Model = DefaultModel
	}

	for _, dir := range []string{cfg.DataDir, filepath.Dir(cfg.DBPath), filepath.Dir(cfg.LogFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cfg, fmt.Errorf("create data dir: %w", err)
		}
	}

	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Agent.Endpoint, "AGENTCHAT_ENDPOINT")
	set(&cfg.Agent.Backend, "AGENTCHAT_BACKEND")
	set(&cfg.Agent.Model, "AGENTCHAT_MODEL")
	set(&cfg.Agent.Style, "AGENTCHAT_STYLE")
	set(&cfg.ExportDir, "AGENTCHAT_EXPORT_DIR")
	set(&cfg.Agent.Token, "OPENAI_API_KEY")
	set(&cfg.Agent.BaseURL, "OPENAI_BASE_URL")
}

func applyFlags(flags *pflag.FlagSet, cfg *AppConfig) {
	if flags == nil {
		return
	}
	str := func(dst *string, name string) {
		if flags.Changed(name) {
			*dst = flagString(flags, name)
		}
	}
	str(&cfg.DataDir, "data-dir")
	str(&cfg.DBPath, "db-path")
	str(&cfg.ExportDir, "export-dir")
	str(&cfg.LogFile, "log-file")
	str(&cfg.Agent.Backend, "backend")
	str(&cfg.Agent.Endpoint, "endpoint")
	str(&cfg.Agent.Model, "model")
	str(&cfg.Agent.Style, "style")
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("timeout") {
		cfg.Agent.TimeoutSeconds, _ = flags.GetInt("timeout")
	}
}

func flagString(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil {
		return ""
	}
	v, _ := flags.GetString(name)
	return strings.TrimSpace(v)
}

func DetectDataHome(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(expandPath(explicit)), nil
	}
	if fromEnv := os.Getenv("AGENTCHAT_HOME"); fromEnv != "" {
		return filepath.Clean(expandPath(fromEnv)), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "agent-chat"), nil
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return path
	}
	trimmed := strings.TrimPrefix(path, "~")
	trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))
	return filepath.Join(home, trimmed)
}
