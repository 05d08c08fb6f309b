package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/enbu-dev/enbu/internal/autowait"
	"github.com/enbu-dev/enbu/internal/enbuconfig"
	"github.com/enbu-dev/enbu/internal/flowexec"
	"github.com/enbu-dev/enbu/internal/orchestrator"
	"github.com/enbu-dev/enbu/internal/progress"
)

var (
	flagHeaded       bool
	flagEnv          []string
	flagTimeoutMs    int
	flagScreenshot   bool
	flagNoScreenshot bool
	flagBail         bool
	flagNoBail       bool
	flagSession      string
	flagDriverBin    string
	flagParallel     int
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Run one or more flow files",
	Long: `Run resolves the given file paths or globs (defaulting to
.enbuflow/*.enbu.yaml), executes each flow against the browser driver, and
reports a pass/fail summary.

Exit codes: 0 success, 1 one or more flows failed, 2 argument or execution
error.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&flagHeaded, "headed", false, "run the browser with a visible window")
	runCmd.Flags().StringArrayVar(&flagEnv, "env", nil, "set an env var for flow expansion (repeatable, K=V)")
	runCmd.Flags().IntVar(&flagTimeoutMs, "timeout", 0, "per-driver-command timeout in ms (0 uses the config default)")
	runCmd.Flags().BoolVar(&flagScreenshot, "screenshot", true, "capture a screenshot on step failure")
	runCmd.Flags().BoolVar(&flagNoScreenshot, "no-screenshot", false, "disable failure screenshots")
	runCmd.Flags().BoolVar(&flagBail, "bail", true, "stop a flow at its first failing step")
	runCmd.Flags().BoolVar(&flagNoBail, "no-bail", false, "run every step even after one fails")
	runCmd.Flags().StringVar(&flagSession, "session", "", "override the derived session name (only valid for a single flow file)")
	runCmd.Flags().StringVar(&flagDriverBin, "driver", "", "path to the browser-driver binary")
	runCmd.Flags().IntVar(&flagParallel, "parallel", 1, "maximum number of flows to run concurrently")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	envOverrides, err := parseEnvFlags(flagEnv)
	if err != nil {
		return exitCodeError{code: 2, err: err}
	}

	// Fill library defaults on a bare struct first, then layer CLI overrides
	// on top explicitly — applying ApplyDefaults after the flags were merged
	// would flip an intentional --no-bail/--no-screenshot back to true,
	// since creasty/defaults can't tell a deliberate false from an unset one.
	opts := &enbuconfig.RunOptions{}
	if err := enbuconfig.ApplyDefaults(opts); err != nil {
		return exitCodeError{code: 2, err: err}
	}
	opts.Headed = flagHeaded
	opts.DriverBinary = flagDriverBin
	opts.Session = flagSession
	opts.Env = envOverrides
	if flagTimeoutMs > 0 {
		opts.CommandTimeoutMs = flagTimeoutMs
	}
	if cmd.Flags().Changed("parallel") {
		opts.Parallel = flagParallel
	}
	opts.Bail = flagBail && !flagNoBail
	opts.Screenshot = flagScreenshot && !flagNoScreenshot

	if err := enbuconfig.Validate(opts); err != nil {
		return exitCodeError{code: 2, err: err}
	}

	driverBin, err := resolveDriverBinary(opts.DriverBinary)
	if err != nil {
		return exitCodeError{code: 2, err: err}
	}

	files, err := orchestrator.ResolveFiles(args)
	if err != nil {
		return exitCodeError{code: 2, err: err}
	}
	if len(files) == 0 {
		return exitCodeError{code: 2, err: fmt.Errorf("no flow files matched")}
	}
	if opts.Session != "" && len(files) > 1 {
		return exitCodeError{code: 2, err: fmt.Errorf("--session can only be used with a single flow file")}
	}
	warnDuplicateSessionNames(logger, files)

	var writer progressWriter
	if progressJSON {
		writer = progress.NewNDJSONWriter(os.Stdout)
	} else {
		writer = progress.NewHumanWriter(os.Stdout)
	}

	summary, err := orchestrator.Run(context.Background(), files, orchestrator.Options{
		Parallel: opts.Parallel,
		FlowOptions: func(path, sessionName string) flowexec.Options {
			if opts.Session != "" {
				sessionName = opts.Session
			}
			logger.Debug("resolved flow", "path", path, "session", sessionName)
			return flowexec.Options{
				Env:                opts.Env,
				Bail:               opts.Bail,
				ScreenshotsEnabled: opts.Screenshot,
				Headed:             opts.Headed,
				CommandTimeoutMs:   opts.CommandTimeoutMs,
				AutoWait: autowait.Options{
					Interval: time.Duration(opts.AutoWaitIntervalMs) * time.Millisecond,
					Timeout:  time.Duration(opts.AutoWaitTimeoutMs) * time.Millisecond,
				},
				DriverBinary: driverBin,
				Progress: func(ctx context.Context, e progress.Event) error {
					return writer.Write(ctx, e)
				},
			}
		},
	})
	if err != nil {
		return exitCodeError{code: 2, err: err}
	}

	printRunSummary(cmd, summary)
	if summary.Failed > 0 {
		return exitCodeError{code: 1, err: fmt.Errorf("%d of %d flows failed", summary.Failed, summary.Total)}
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, summary *orchestrator.RunSummary) {
	out := cmd.OutOrStdout()
	for _, flow := range summary.Flows {
		printFlowResult(out, flow)
	}
	fmt.Fprintf(out, "%d passed, %d failed, %d total (%dms)\n", summary.Passed, summary.Failed, summary.Total, summary.DurationMs)
}

func parseEnvFlags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("--env %q is invalid; expected K=V", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}

// resolveDriverBinary follows the documented precedence: ENBU_DRIVER_BIN env
// var, then the --driver flag, then "browser-driver" on $PATH.
func resolveDriverBinary(flagValue string) (string, error) {
	if v := os.Getenv("ENBU_DRIVER_BIN"); v != "" {
		return v, nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	path, err := exec.LookPath("browser-driver")
	if err != nil {
		return "", fmt.Errorf("browser-driver not found on $PATH; set ENBU_DRIVER_BIN or pass --driver: %w", err)
	}
	return path, nil
}

func warnDuplicateSessionNames(logger *slog.Logger, files []string) {
	seen := map[string]string{}
	for _, f := range files {
		name := orchestrator.SessionName(f)
		if prev, ok := seen[name]; ok {
			logger.Warn("session name collision", "session", name, "file", f, "previousFile", prev)
			continue
		}
		seen[name] = f
	}
}
