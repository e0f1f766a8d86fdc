package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lexcodex/scriptforge/internal/render"
	"github.com/lexcodex/scriptforge/internal/runtime"
	"github.com/lexcodex/scriptforge/llm"
	"github.com/lexcodex/scriptforge/persistence"
	"github.com/lexcodex/scriptforge/pipeline"
)

var (
	flagModel     string
	flagEndpoint  string
	flagWorkspace string
	flagConfig    string
	flagNoHistory bool
	flagVerbose   bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		render.NewConsole(os.Stderr).Failure(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptforge \"<request>\"",
		Short:         "Turn a natural-language request into a reviewed, operator-gated script",
		Long: "scriptforge asks a local Ollama model for a plan and then for code, saves the\n" +
			"extracted script to a fixed file, and only executes it after two explicit\n" +
			"operator approvals.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0])
		},
	}
	root.PersistentFlags().StringVar(&flagModel, "model", envOrDefault("OLLAMA_MODEL", ""), "Ollama model override")
	root.PersistentFlags().StringVar(&flagEndpoint, "ollama", envOrDefault("OLLAMA_ENDPOINT", ""), "Ollama endpoint override")
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "Workspace directory (default: current directory)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to scriptforge config file")
	root.Flags().BoolVar(&flagNoHistory, "no-history", false, "Skip recording this run in the history store")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log stage transitions")

	root.AddCommand(newHistoryCmd())
	return root
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig resolves the effective configuration: file (or defaults), then
// flag/environment overrides, then normalization.
func loadConfig() (runtime.Config, error) {
	cfg, err := runtime.LoadConfig(flagConfig, flagWorkspace)
	if err != nil {
		return cfg, err
	}
	if flagModel != "" {
		cfg.OllamaModel = flagModel
	}
	if flagEndpoint != "" {
		cfg.OllamaEndpoint = flagEndpoint
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, request string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// Operator interrupt aborts the run cleanly, including a mid-flight model
	// call or child process.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewClient(cfg.OllamaEndpoint, cfg.OllamaModel)
	client.SetTimeout(cfg.GenerateTimeout())
	client.SetDebugLogging(cfg.Logging.LLM)

	console := render.NewConsole(cmd.OutOrStdout())

	var recorder pipeline.RunRecorder
	if cfg.History.Enabled && !flagNoHistory {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			logger.Warn("history directory unavailable", zap.Error(err))
		} else if store, err := persistence.NewHistoryStore(cfg.History.Path); err != nil {
			logger.Warn("history store unavailable", zap.Error(err))
		} else {
			defer store.Close()
			recorder = store
		}
	}

	orch := &pipeline.Orchestrator{
		Planner: &pipeline.PlanStage{Model: client},
		Coder:   &pipeline.CodeStage{Model: client, Language: cfg.Language},
		Sink:    &pipeline.ScriptSink{Dir: cfg.Workspace, Filename: cfg.ScriptName},
		Gate:    pipeline.NewConfirmationGate(cmd.InOrStdin(), cmd.OutOrStdout()),
		Executor: &pipeline.ScriptExecutor{
			Interpreter:    cfg.Interpreter,
			Timeout:        cfg.ExecTimeout(),
			Workdir:        cfg.Workspace,
			MaxOutputBytes: int64(cfg.MaxOutputKB) * 1024,
		},
		Reporter: console,
		Recorder: recorder,
		Logger:   logger,
	}

	outcome, err := orch.Run(ctx, request)
	if err != nil {
		return err
	}
	console.Outcome(outcome)
	return nil
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if flagVerbose {
		level = "info"
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
