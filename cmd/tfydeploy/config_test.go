package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/plan"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, placeholder.DefaultValues(), cfg.Values)
	assert.Equal(t, plan.DefaultTemplatesDir, cfg.Templates.Dir)
	assert.Equal(t, plan.DefaultInfraFiles, cfg.Templates.Infra)
	assert.Equal(t, plan.DefaultAppFiles, cfg.Templates.App)
	assert.Equal(t, "tfy", cfg.Apply.Command)
	assert.Equal(t, []string{"apply", "-f"}, cfg.Apply.Args)
	assert.Equal(t, time.Duration(0), cfg.Apply.Timeout)
	assert.Equal(t, "skip", cfg.Apply.Missing)
	assert.False(t, cfg.History.Enabled)
	assert.False(t, cfg.Confirm)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
values:
  cluster: "prod-cluster"
  workspace: "prod-ws"
  hf_token: "hf_abc"
templates:
  dir: "/srv/templates"
  infra: ["repo.yaml"]
  app: ["svc.yaml", "job.yaml"]
apply:
  command: "/usr/local/bin/tfy"
  timeout: 90s
  missing: "fail"
history:
  enabled: true
  dsn: "/tmp/history.db"
log:
  level: "debug"
  format: "json"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile, nil)
	require.NoError(t, err)

	assert.Equal(t, "prod-cluster", cfg.Values.Cluster)
	assert.Equal(t, "prod-ws", cfg.Values.Workspace)
	assert.Equal(t, "hf_abc", cfg.Values.HFToken)
	// Keys absent from the file keep their defaults
	assert.Equal(t, placeholder.DefaultEmail, cfg.Values.Email)
	assert.Equal(t, "/srv/templates", cfg.Templates.Dir)
	assert.Equal(t, []string{"repo.yaml"}, cfg.Templates.Infra)
	assert.Equal(t, []string{"svc.yaml", "job.yaml"}, cfg.Templates.App)
	assert.Equal(t, "/usr/local/bin/tfy", cfg.Apply.Command)
	assert.Equal(t, 90*time.Second, cfg.Apply.Timeout)
	assert.Equal(t, "fail", cfg.Apply.Missing)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/history.db", cfg.History.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("TFYDEPLOY_VALUES_CLUSTER", "env-cluster")
	t.Setenv("TFYDEPLOY_VALUES_STORAGE_FQN", "env:storage")
	t.Setenv("TFYDEPLOY_APPLY_MISSING", "fail")
	t.Setenv("TFYDEPLOY_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "env-cluster", cfg.Values.Cluster)
	assert.Equal(t, "env:storage", cfg.Values.StorageFQN)
	assert.Equal(t, "fail", cfg.Apply.Missing)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FlagsOverrideEnvAndFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("values:\n  cluster: file-cluster\n  workspace: file-ws\n"), 0644))
	t.Setenv("TFYDEPLOY_VALUES_WORKSPACE", "env-ws")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--cluster", "flag-cluster",
		"--infra-file", "a.yaml",
		"--infra-file", "b.yaml",
		"--timeout", "5s",
		"--history",
	}))

	cfg, err := LoadConfig(tmpFile, fs)
	require.NoError(t, err)

	assert.Equal(t, "flag-cluster", cfg.Values.Cluster)
	assert.Equal(t, "env-ws", cfg.Values.Workspace)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Templates.Infra)
	assert.Equal(t, plan.DefaultAppFiles, cfg.Templates.App)
	assert.Equal(t, 5*time.Second, cfg.Apply.Timeout)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadConfig_UnsetFlagsDoNotOverrideFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("values:\n  email: file@example.com\n"), 0644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := LoadConfig(tmpFile, fs)
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.Values.Email)
}

func TestLoadConfig_DefaultHistoryDSN(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tfydeploy", "history.db"), cfg.History.DSN)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml", nil)
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, placeholder.DefaultCluster, cfg.Values.Cluster)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile, nil)
	assert.Error(t, err)
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	clearEnv(t)

	valid := func(t *testing.T) *Config {
		cfg, err := LoadConfig("", nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty command", func(c *Config) { c.Apply.Command = "  " }, "apply.command"},
		{"negative timeout", func(c *Config) { c.Apply.Timeout = -time.Second }, "apply.timeout"},
		{"unknown missing policy", func(c *Config) { c.Apply.Missing = "ignore" }, "apply.missing"},
		{"empty plan", func(c *Config) { c.Templates.Infra, c.Templates.App = nil, nil }, "templates"},
		{"infra only", func(c *Config) { c.Templates.App = nil }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_PlanAndApplierConfig(t *testing.T) {
	cfg := &Config{
		Templates: TemplatesConfig{Dir: "tpl", Infra: []string{"i.yaml"}, App: []string{"a.yaml"}},
		Apply:     ApplyConfig{Command: "tfy", Args: []string{"apply", "-f"}, Timeout: time.Minute, Missing: "fail"},
	}

	p := cfg.Plan()
	require.Len(t, p.Steps, 2)
	assert.Equal(t, filepath.Join("tpl", "i.yaml"), p.Steps[0].Path)
	assert.Equal(t, plan.TierInfrastructure, p.Steps[0].Tier)
	assert.Equal(t, plan.TierApplication, p.Steps[1].Tier)

	acfg, err := cfg.ApplierConfig()
	require.NoError(t, err)
	assert.Equal(t, plan.MissingFail, acfg.Missing)
	assert.Equal(t, time.Minute, acfg.Timeout)
	assert.Equal(t, "tfy", acfg.Command)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "json"}}, &buf)

	logger.Info("hello", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestSetupLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "text"}}, &buf)

	logger.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestSetupLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"invalid", false, true}, // falls back to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := SetupLogger(&Config{Log: LogConfig{Level: tt.level, Format: "text"}}, &buf)
			logger.Debug("debug-line")
			logger.Warn("warn-line")
			assert.Equal(t, tt.debugSeen, strings.Contains(buf.String(), "debug-line"))
			assert.Equal(t, tt.warnSeen, strings.Contains(buf.String(), "warn-line"))
		})
	}
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "TFYDEPLOY_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}
