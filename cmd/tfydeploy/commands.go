package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/artpar/tfydeploy/internal/core/domain"
	"github.com/artpar/tfydeploy/internal/core/placeholder"
	"github.com/artpar/tfydeploy/internal/core/sshkey"
	"github.com/artpar/tfydeploy/internal/shell/applier"
	"github.com/artpar/tfydeploy/internal/shell/deployer"
	"github.com/artpar/tfydeploy/internal/shell/prompt"
	"github.com/artpar/tfydeploy/internal/shell/runner"
	"github.com/artpar/tfydeploy/internal/shell/store"
	"github.com/spf13/cobra"
)

// deps are the side-effecting collaborators of the commands.
type deps struct {
	runner    runner.CommandRunner
	confirmer prompt.Confirmer
	openStore func(dsn string) (store.Store, error)
	stdout    io.Writer
	stderr    io.Writer
}

func defaultDeps() deps {
	return deps{
		runner:    runner.NewExecRunner(),
		confirmer: prompt.SurveyConfirmer{},
		openStore: openSQLiteStore,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

func openSQLiteStore(dsn string) (store.Store, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, d deps) int {
	root := newRootCmd(d)
	root.SetArgs(args)
	root.SetOut(d.stdout)
	root.SetErr(d.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(d.stderr, "tfydeploy: %v\n", err)
	}
	return exitCodeFor(err)
}

// =============================================================================
// Commands
// =============================================================================

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "tfydeploy",
		Short: "Render placeholder templates and apply them in order",
		Long: `tfydeploy fills {{KEY}} placeholders in a fixed list of YAML templates and
applies each rendered file with the deployment CLI ("tfy apply -f").

Infrastructure templates are applied first; the first one that fails stops
the run with exit code 1. Application templates are applied afterwards and
their failures are reported without stopping the run.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd, d)
		},
	}
	root.SetVersionTemplate("tfydeploy {{.Version}}\n")
	registerFlags(root.PersistentFlags())

	root.AddCommand(newRenderCmd(d))
	root.AddCommand(newHistoryCmd(d))
	return root
}

func newRenderCmd(d deps) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the rendered templates to a directory without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, d, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "rendered", "Directory to write rendered files into")
	return cmd
}

func newHistoryCmd(d deps) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded runs, or show one run with its steps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(cmd, d, runID, limit, asJSON)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultListOptions().Limit, "Number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// =============================================================================
// Setup
// =============================================================================

// setup loads and validates the configuration and builds the logger.
func setup(cmd *cobra.Command, d deps) (*Config, *slog.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, &CommandError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, &CommandError{Op: "Validate", Err: err, ExitCode: ExitConfigError}
	}
	logger := SetupLogger(cfg, d.stderr)
	return cfg, logger, nil
}

// checkSSHKey warns about a public key that will not parse. The value is
// substituted either way.
func checkSSHKey(logger *slog.Logger, key string) {
	if err := sshkey.Validate(key); err != nil {
		logger.Warn("ssh public key does not parse", "error", err)
		return
	}
	typ, _ := sshkey.Type(key)
	fp, _ := sshkey.Fingerprint(key)
	logger.Debug("ssh public key", "type", typ, "fingerprint", fp)
}

// =============================================================================
// Deploy
// =============================================================================

func runDeploy(cmd *cobra.Command, d deps) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(cmd, d)
	if err != nil {
		return err
	}

	p := cfg.Plan()
	logger.Debug("configuration loaded",
		"templates_dir", cfg.Templates.Dir,
		"apply_command", cfg.Apply.Command,
		"missing", cfg.Apply.Missing,
		"values", cfg.Values.Replacements().Redacted(),
	)
	checkSSHKey(logger, cfg.Values.SSHPublicKey)

	out := newPrinter(d.stdout)
	out.Banner(cfg.Values)

	if cfg.Confirm {
		if err := prompt.Ask(ctx, d.confirmer, p, cfg.Values); err != nil {
			return classify("Confirm", err)
		}
	}

	var history store.Store
	if cfg.History.Enabled {
		s, err := d.openStore(cfg.History.DSN)
		if err != nil {
			return &CommandError{Op: "OpenHistory", Err: err, ExitCode: ExitHistoryError}
		}
		defer s.Close()
		history = s
	}

	acfg, err := cfg.ApplierConfig()
	if err != nil {
		return &CommandError{Op: "Validate", Err: err, ExitCode: ExitConfigError}
	}
	dep := deployer.New(applier.New(d.runner, acfg, logger), history, logger)

	report, err := dep.Run(ctx, p, cfg.Values)
	out.Summary(p, report)
	return classify("Deploy", err)
}

// =============================================================================
// Render
// =============================================================================

func runRender(cmd *cobra.Command, d deps, outDir string) error {
	cfg, logger, err := setup(cmd, d)
	if err != nil {
		return err
	}

	replacements := cfg.Values.Replacements()
	for _, key := range replacements.Keys() {
		if placeholder.IsSecret(key) && replacements[key] != "" {
			logger.Warn("rendered files contain secret values in plain text", "dir", outDir)
			break
		}
	}

	acfg, err := cfg.ApplierConfig()
	if err != nil {
		return &CommandError{Op: "Validate", Err: err, ExitCode: ExitConfigError}
	}
	dep := deployer.New(applier.New(d.runner, acfg, logger), nil, logger)

	report, err := dep.Render(cmd.Context(), cfg.Plan(), cfg.Values, outDir)
	if err != nil {
		return classify("Render", err)
	}
	newPrinter(d.stdout).Rendered(outDir, report)
	return nil
}

// =============================================================================
// History
// =============================================================================

func runHistory(cmd *cobra.Command, d deps, runID string, limit int, asJSON bool) error {
	ctx := cmd.Context()
	cfg, _, err := setup(cmd, d)
	if err != nil {
		return err
	}

	out := newPrinter(d.stdout)
	if !historyExists(cfg.History.DSN) {
		if runID != "" {
			err := store.NewStoreError("GetRun", "run", runID, "run not found", store.ErrNotFound)
			return &CommandError{Op: "GetRun", Err: err, ExitCode: ExitHistoryError}
		}
		if asJSON {
			return writeJSON(d.stdout, []domain.Run{})
		}
		out.Runs(nil)
		return nil
	}

	s, err := d.openStore(cfg.History.DSN)
	if err != nil {
		return &CommandError{Op: "OpenHistory", Err: err, ExitCode: ExitHistoryError}
	}
	defer s.Close()

	if runID != "" {
		r, err := s.GetRun(ctx, runID)
		if err != nil {
			return &CommandError{Op: "GetRun", Err: err, ExitCode: ExitHistoryError}
		}
		if asJSON {
			return writeJSON(d.stdout, r)
		}
		out.Run(r)
		return nil
	}

	runs, err := s.ListRuns(ctx, store.ListOptions{Limit: limit})
	if err != nil {
		return &CommandError{Op: "ListRuns", Err: err, ExitCode: ExitHistoryError}
	}
	if asJSON {
		return writeJSON(d.stdout, runs)
	}
	out.Runs(runs)
	return nil
}

// historyExists reports whether there is a history database to read.
// Reading history never creates one.
func historyExists(dsn string) bool {
	if dsn == ":memory:" {
		return true
	}
	_, err := os.Stat(dsn)
	return err == nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &CommandError{Op: "WriteJSON", Err: err, ExitCode: ExitConfigError}
	}
	return nil
}
