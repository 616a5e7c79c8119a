package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/artpar/tfydeploy/internal/shell/applier"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Values    placeholder.Values `mapstructure:"values"`
	Templates TemplatesConfig    `mapstructure:"templates"`
	Apply     ApplyConfig        `mapstructure:"apply"`
	History   HistoryConfig      `mapstructure:"history"`
	Log       LogConfig          `mapstructure:"log"`

	// Confirm asks on the terminal before anything is applied.
	Confirm bool `mapstructure:"confirm"`
}

// TemplatesConfig says which template files are applied, and in what order.
type TemplatesConfig struct {
	Dir   string   `mapstructure:"dir"`
	Infra []string `mapstructure:"infra"`
	App   []string `mapstructure:"app"`
}

// ApplyConfig configures the external deployment CLI.
type ApplyConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
	TempDir string        `mapstructure:"temp_dir"`

	// Missing is "skip" (missing template counts as success) or "fail".
	Missing string `mapstructure:"missing"`
}

// HistoryConfig configures the local run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Plan builds the ordered plan from the templates section.
func (c *Config) Plan() plan.Plan {
	return plan.New(c.Templates.Dir, c.Templates.Infra, c.Templates.App)
}

// ApplierConfig converts the apply section.
func (c *Config) ApplierConfig() (applier.Config, error) {
	missing, err := plan.ParseMissingPolicy(c.Apply.Missing)
	if err != nil {
		return applier.Config{}, err
	}
	return applier.Config{
		Command: c.Apply.Command,
		Args:    c.Apply.Args,
		TempDir: c.Apply.TempDir,
		Timeout: c.Apply.Timeout,
		Missing: missing,
	}, nil
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Apply.Command) == "" {
		return errors.New("apply.command must not be empty")
	}
	if c.Apply.Timeout < 0 {
		return errors.New("apply.timeout must not be negative")
	}
	if _, err := plan.ParseMissingPolicy(c.Apply.Missing); err != nil {
		return fmt.Errorf("apply.missing: %w", err)
	}
	if err := c.Plan().Validate(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	return nil
}

// =============================================================================
// Flags
// =============================================================================

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"cluster":             "values.cluster",
	"workspace":           "values.workspace",
	"email":               "values.email",
	"mlrepo":              "values.mlrepo",
	"storage-fqn":         "values.storage_fqn",
	"volume":              "values.volume",
	"base-domain":         "values.base_domain",
	"hf-token":            "values.hf_token",
	"secret-val":          "values.secret_val",
	"password-secret-fqn": "values.password_secret_fqn",
	"ssh-public-key":      "values.ssh_public_key",
	"templates-dir":       "templates.dir",
	"infra-file":          "templates.infra",
	"app-file":            "templates.app",
	"apply-command":       "apply.command",
	"timeout":             "apply.timeout",
	"missing":             "apply.missing",
	"history":             "history.enabled",
	"history-dsn":         "history.dsn",
	"confirm":             "confirm",
	"log-level":           "log.level",
	"log-format":          "log.format",
}

// registerFlags adds every configuration flag to fs.
func registerFlags(fs *pflag.FlagSet) {
	d := placeholder.DefaultValues()

	fs.String("config", "", "Path to config file (YAML)")

	fs.String("cluster", d.Cluster, "Cluster FQN ({{CLUSTER_FQN}})")
	fs.String("workspace", d.Workspace, "Workspace name ({{WORKSPACE_NAME}})")
	fs.String("email", d.Email, "User email ({{USER_EMAIL}})")
	fs.String("mlrepo", d.MLRepo, "ML repo name ({{ML_REPO_NAME}})")
	fs.String("storage-fqn", d.StorageFQN, "Blob storage integration FQN ({{STORAGE_FQN}})")
	fs.String("volume", d.Volume, "Volume name ({{VOLUME_NAME}})")
	fs.String("base-domain", d.BaseDomain, "Base domain for endpoints ({{BASE_DOMAIN}})")
	fs.String("hf-token", d.HFToken, "Hugging Face token ({{HF_TOKEN}})")
	fs.String("secret-val", d.SecretVal, "Secret value ({{MY_SECRET_VAL}})")
	fs.String("password-secret-fqn", d.PasswordSecretFQN, "Password secret FQN ({{PASSWORD_SECRET_FQN}})")
	fs.String("ssh-public-key", d.SSHPublicKey, "SSH public key ({{SSH_PUBLIC_KEY}})")

	fs.String("templates-dir", plan.DefaultTemplatesDir, "Directory holding the template files")
	fs.StringSlice("infra-file", plan.DefaultInfraFiles, "Infrastructure template, in order (repeatable)")
	fs.StringSlice("app-file", plan.DefaultAppFiles, "Application template, in order (repeatable)")
	fs.String("apply-command", "tfy", "Deployment CLI binary")
	fs.Duration("timeout", 0, "Timeout for a single apply (0 = none)")
	fs.String("missing", string(plan.MissingSkip), `What a missing template counts as: "skip" or "fail"`)
	fs.Bool("history", false, "Record the run in the local history database")
	fs.String("history-dsn", "", "History database path (default: user config dir)")
	fs.Bool("confirm", false, "Ask for confirmation before applying")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from defaults, file, environment and flags,
// in increasing order of precedence. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	d := placeholder.DefaultValues()
	v.SetDefault("values.cluster", d.Cluster)
	v.SetDefault("values.workspace", d.Workspace)
	v.SetDefault("values.email", d.Email)
	v.SetDefault("values.mlrepo", d.MLRepo)
	v.SetDefault("values.storage_fqn", d.StorageFQN)
	v.SetDefault("values.volume", d.Volume)
	v.SetDefault("values.base_domain", d.BaseDomain)
	v.SetDefault("values.hf_token", d.HFToken)
	v.SetDefault("values.secret_val", d.SecretVal)
	v.SetDefault("values.password_secret_fqn", d.PasswordSecretFQN)
	v.SetDefault("values.ssh_public_key", d.SSHPublicKey)

	v.SetDefault("templates.dir", plan.DefaultTemplatesDir)
	v.SetDefault("templates.infra", plan.DefaultInfraFiles)
	v.SetDefault("templates.app", plan.DefaultAppFiles)

	v.SetDefault("apply.command", "tfy")
	v.SetDefault("apply.args", []string{"apply", "-f"})
	v.SetDefault("apply.timeout", "0s")
	v.SetDefault("apply.temp_dir", "")
	v.SetDefault("apply.missing", string(plan.MissingSkip))

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dsn", "")
	v.SetDefault("confirm", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("TFYDEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flags the user actually set win over everything else
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.History.DSN == "" {
		cfg.History.DSN = defaultHistoryDSN()
	}

	return &cfg, nil
}

// defaultHistoryDSN places the history database in the user config dir,
// falling back to the working directory.
func defaultHistoryDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".tfydeploy", "history.db")
	}
	return filepath.Join(dir, "tfydeploy", "history.db")
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
