package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lamim/dialprobe/internal/api"
	"github.com/lamim/dialprobe/internal/checkpoint"
	"github.com/lamim/dialprobe/internal/config"
	"github.com/lamim/dialprobe/internal/metrics"
	"github.com/lamim/dialprobe/internal/sweep"
	"github.com/lamim/dialprobe/internal/task"
	"github.com/lamim/dialprobe/internal/writer"
	"github.com/lamim/dialprobe/pkg/models"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	envFile    string
	sessionArg string
	verbose    bool

	// complete and task run
	modelName        string
	systemPrompt     string
	printRequest     bool
	printOnlyContent bool
	saveResult       bool
	reqParams        paramFlags

	// sweep
	sweepModels []string
	metricsAddr string
	resumeSweep bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dialprobe",
		Short: "dialprobe - chat completion parameter explorer for the DIAL gateway",
		Long: `dialprobe sends chat completion requests to deployments behind an
EPAM DIAL gateway and shows how optional request parameters such as n,
temperature, seed, max_tokens, penalties, stop and top_p change the answers.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "dialprobe.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&sessionArg, "session", "", "Write into an existing session directory (e.g. session_2026-10-17T14-30-00)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	completeCmd := &cobra.Command{
		Use:   "complete <message>",
		Short: "Send one chat completion",
		Long: `Send the system prompt and the given user message to one deployment.
Every --param is forwarded verbatim; the gateway decides what it accepts.`,
		Args: cobra.ExactArgs(1),
		RunE: runComplete,
	}
	addRunFlags(completeCmd)

	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Run the built-in parameter exercises",
	}

	taskListCmd := &cobra.Command{
		Use:   "list",
		Short: "List available tasks",
		Args:  cobra.NoArgs,
		RunE:  listTasks,
	}

	taskRunCmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run one task with its default parameters",
		Long:  "Run one task. Parameters given on the command line override the task defaults.",
		Args:  cobra.ExactArgs(1),
		RunE:  runTask,
	}
	addRunFlags(taskRunCmd)

	topPCmd := &cobra.Command{
		Use:   "top-p-compare",
		Short: "Compare answers for top_p 0.1, 0.9 and the default",
		Args:  cobra.NoArgs,
		RunE:  runTopPCompare,
	}
	topPCmd.Flags().StringVar(&modelName, "model", "", "Deployment name (default from config)")
	topPCmd.Flags().BoolVar(&saveResult, "save", false, "Save the responses to the session results file")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskRunCmd)
	taskCmd.AddCommand(topPCmd)

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List deployments exposed by the gateway",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep <task>",
		Short: "Run a task across its parameter grid",
		Long: `Run every value of the task's parameter grid against each deployment,
one request at a time. Failing cases are recorded and the sweep continues.
The summary is written to sweep.json in the session directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runSweep,
	}
	sweepCmd.Flags().StringSliceVar(&sweepModels, "models", nil, "Deployments to sweep (default: [sweep].models for the models task, otherwise the default model)")
	sweepCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while sweeping (e.g. :2112)")
	sweepCmd.Flags().BoolVar(&resumeSweep, "resume", false, "Resume the interrupted sweep checkpointed in --session")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List session directories in the output folder",
		Args:  cobra.NoArgs,
		RunE:  listSessions,
	}

	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(sessionsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", api.KindOf(err), err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&modelName, "model", "", "Deployment name (default from config)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt (default from config; empty string sends none)")
	cmd.Flags().BoolVar(&printRequest, "print-request", false, "Print the request body before sending")
	cmd.Flags().BoolVar(&printOnlyContent, "print-only-content", false, "Print only the choice contents instead of the full response")
	cmd.Flags().BoolVar(&saveResult, "save", false, "Save the run result as JSON in the session directory")
	reqParams.register(cmd)
}

// app bundles what every gateway command needs
type app struct {
	cfg     *config.Config
	secrets *config.Secrets
	logger  *slog.Logger
	session *writer.SessionManager
	logFile *os.File
	metrics *metrics.Collector
	echo    *api.EchoOptions
}

func setup() (*app, error) {
	cfg, secrets, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := secrets.Check(); err != nil {
		return nil, &api.Error{Kind: api.KindConfiguration, Op: "load credentials", Err: err}
	}

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	sessionMgr, err := writer.NewSessionManager(writer.ConsoleLogger(logLevel), cfg.Output.Dir, cfg.Output.ResultsFile, sessionArg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger, logFile, err := writer.SetupLogger(sessionMgr, logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	sessionMgr.SetLogger(logger)

	logger.Debug("dialprobe starting",
		"version", Version,
		"config", configPath,
		"session_dir", sessionMgr.SessionDir())

	if err := sessionMgr.BackupConfig(configPath); err != nil {
		logger.Warn("Failed to backup config", "error", err)
	}

	return &app{
		cfg:     cfg,
		secrets: secrets,
		logger:  logger,
		session: sessionMgr,
		logFile: logFile,
		metrics: metrics.NewCollector(logger),
	}, nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Sync()
		_ = a.logFile.Close()
	}
}

func (a *app) newClient(deployment string) (*api.Client, error) {
	client, err := api.NewClient(a.cfg, a.secrets, deployment, a.logger)
	if err != nil {
		return nil, err
	}
	client.SetRecorder(a.metrics)
	if a.echo != nil {
		client.SetEcho(os.Stdout, *a.echo)
	}
	return client, nil
}

func (a *app) taskRunner() *task.Runner {
	return task.NewRunner(a.cfg, func(deployment string) (task.Completer, error) {
		return a.newClient(deployment)
	}, a.logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOptions(cmd *cobra.Command) (task.Options, error) {
	params, err := reqParams.build(cmd)
	if err != nil {
		return task.Options{}, err
	}
	opts := task.Options{Model: modelName, Params: params}
	if cmd.Flags().Changed("system") {
		opts.SystemPrompt = &systemPrompt
	}
	return opts, nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	return execute(cmd, task.Adhoc(args[0]))
}

func runTask(cmd *cobra.Command, args []string) error {
	t, ok := task.Lookup(args[0])
	if !ok {
		return &api.Error{
			Kind:    api.KindInvalidInput,
			Op:      "run task",
			Message: fmt.Sprintf("unknown task %q (available: %s)", args[0], strings.Join(task.Names(), ", ")),
		}
	}
	return execute(cmd, t)
}

func execute(cmd *cobra.Command, t task.Task) error {
	opts, err := runOptions(cmd)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	a.echo = &api.EchoOptions{Request: printRequest, OnlyContent: printOnlyContent}

	ctx, stop := signalContext()
	defer stop()

	res, err := a.taskRunner().Run(ctx, t, opts)
	if err != nil {
		return err
	}

	if saveResult {
		if err := a.session.Save(a.session.RunPath(res.RunID), res); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
	}
	return nil
}

func runTopPCompare(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	a.echo = &api.EchoOptions{OnlyContent: true}

	ctx, stop := signalContext()
	defer stop()

	results, err := a.taskRunner().RunTopPComparison(ctx, task.Options{Model: modelName})
	if err != nil {
		return err
	}

	fmt.Println("Lower top_p values keep answers focused on the most likely tokens,")
	fmt.Println("while higher top_p values allow for more diverse and creative responses.")

	if saveResult {
		if err := a.session.Save(a.session.ResultsPath(), results); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
		fmt.Printf("Results saved to %s\n", a.session.ResultsPath())
	}
	return nil
}

func listTasks(cmd *cobra.Command, args []string) error {
	for _, t := range task.All() {
		fmt.Printf("%-18s %s\n", t.Name, t.Description)
		fmt.Printf("%-18s message: %q\n", "", t.UserMessage)
		if len(t.Params) > 0 {
			fmt.Printf("%-18s params:  %s\n", "", formatParams(t.Params))
		}
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	client, err := a.newClient(a.cfg.Dial.DefaultModel)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	list, err := client.ListModels(ctx)
	if err != nil {
		return err
	}

	for _, id := range list.IDs() {
		fmt.Println(id)
	}
	a.logger.Info("Listed deployments", "count", len(list.Data))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	t, ok := task.Lookup(args[0])
	if !ok {
		return &api.Error{
			Kind:    api.KindInvalidInput,
			Op:      "sweep",
			Message: fmt.Sprintf("unknown task %q (available: %s)", args[0], strings.Join(task.Names(), ", ")),
		}
	}
	if resumeSweep && sessionArg == "" {
		return &api.Error{Kind: api.KindInvalidInput, Op: "sweep", Message: "--resume requires --session"}
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	deployments := sweepModels
	if len(deployments) == 0 {
		if t.Name == "models" {
			deployments = a.cfg.Sweep.Models
		} else {
			deployments = []string{a.cfg.Dial.DefaultModel}
		}
	}

	cases, err := sweep.Plan(t, deployments)
	if err != nil {
		return &api.Error{Kind: api.KindInvalidInput, Op: "sweep", Err: err}
	}

	ctx, stop := signalContext()
	defer stop()

	if metricsAddr != "" {
		shutdown := serveMetrics(a, metricsAddr)
		defer shutdown()
	}

	runner := sweep.NewRunner(a.taskRunner(), a.logger)
	runner.SetRecorder(a.metrics)

	var (
		checkpointMgr *checkpoint.Manager
		summary       *models.SweepSummary
		runErr        error
	)
	if resumeSweep {
		cp, err := checkpoint.Load(a.session.SessionDir(), a.logger)
		if err != nil {
			return err
		}
		if err := checkpoint.ValidateCheckpoint(cp, t.Name, cases); err != nil {
			return &api.Error{Kind: api.KindInvalidInput, Op: "resume sweep", Err: err}
		}
		a.logger.Info("Resuming sweep",
			"sweep_id", cp.SweepID,
			"progress", fmt.Sprintf("%.1f%%", checkpoint.ProgressPercentage(cp)))

		checkpointMgr = checkpoint.NewManagerFromCheckpoint(a.session.SessionDir(), cp, a.logger)
		runner.SetCheckpointer(checkpointMgr)
		summary, runErr = runner.Resume(ctx, t, cp, checkpoint.PendingCases(cp, cases))
	} else {
		checkpointMgr = checkpoint.NewManager(a.session.SessionDir(), t.Name, cases, a.logger)
		runner.SetCheckpointer(checkpointMgr)
		summary, runErr = runner.Run(ctx, t, cases)
	}

	if runErr == nil {
		if err := checkpointMgr.MarkComplete(); err != nil {
			a.logger.Warn("Failed to finalize checkpoint", "error", err)
		}
	} else if err := checkpointMgr.Close(); err != nil {
		a.logger.Warn("Failed to flush checkpoint", "error", err)
	}

	if err := a.session.Save(a.session.SweepPath(), summary); err != nil {
		return fmt.Errorf("failed to save sweep summary: %w", err)
	}

	if err := sweep.WriteReport(os.Stdout, summary); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(a.metrics.Summary())

	if runErr != nil {
		a.logger.Warn("Sweep interrupted - resume from checkpoint",
			"session_dir", filepath.Base(a.session.SessionDir()),
			"resume_command", fmt.Sprintf("dialprobe sweep %s --session %s --resume", t.Name, filepath.Base(a.session.SessionDir())))
		return fmt.Errorf("sweep interrupted after %d of %d cases: %w", len(summary.Results), summary.TotalCases, runErr)
	}
	return nil
}

func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// listSessions lists session directories and the result files each one holds
func listSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	outputDir := cfg.Output.Dir

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No output directory found. Run a command first.")
			return nil
		}
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	found := 0
	for _, entry := range entries {
		if !entry.IsDir() || writer.ValidateSessionPath(outputDir, entry.Name()) != nil {
			continue
		}

		files, err := os.ReadDir(filepath.Join(outputDir, entry.Name()))
		if err != nil {
			continue
		}
		var names []string
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".json") {
				names = append(names, f.Name())
			}
		}

		progress := ""
		sessionPath := filepath.Join(outputDir, entry.Name())
		if _, err := os.Stat(filepath.Join(sessionPath, checkpoint.CheckpointFilename)); err == nil {
			if cp, err := checkpoint.Load(sessionPath, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
				state := "interrupted"
				if cp.Complete {
					state = "complete"
				}
				progress = fmt.Sprintf("  [sweep %s: %s, %.1f%%]", cp.Task, state, checkpoint.ProgressPercentage(cp))
			}
		}

		found++
		fmt.Printf("%s  %s%s\n", entry.Name(), strings.Join(names, ", "), progress)
	}

	if found == 0 {
		fmt.Println("No sessions found.")
	}
	return nil
}
