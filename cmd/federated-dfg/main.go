// Command federated-dfg runs the federated directly-follows graph
// discovery protocol between two local event log files (spec Section 6).
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/auroradata-ai/federated-dfg/internal/apperr"
	"github.com/auroradata-ai/federated-dfg/internal/config"
	"github.com/auroradata-ai/federated-dfg/internal/eventlog"
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/logging"
	"github.com/auroradata-ai/federated-dfg/internal/orchestrator"
)

const usage = "usage: federated-dfg log_path_A log_path_B output_path debug_flag use_psi_flag [window_size] [config_path]"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 5 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	logPathA, logPathB, outputPath := args[0], args[1], args[2]
	debugFlag, err := strconv.ParseBool(args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid debug_flag %q: %v\n", args[3], err)
		return 1
	}
	usePSIFlag, err := strconv.ParseBool(args[4])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid use_psi_flag %q: %v\n", args[4], err)
		return 1
	}

	// config_path (7th positional arg) is optional, mirroring the teacher's
	// "-config" flag default (cmd/send/main.go: Load only when a path is
	// actually given). When present, it supplies the base configuration;
	// window_size, if also given, always overrides whatever the file set.
	cfg := config.Default()
	if len(args) >= 7 && args[6] != "" {
		loaded, err := config.Load(args[6])
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config %q: %v\n", args[6], err)
			return 1
		}
		cfg = loaded
	}
	if len(args) >= 6 && args[5] != "" {
		w, err := strconv.Atoi(args[5])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid window_size %q: %v\n", args[5], err)
			return 1
		}
		cfg.WindowSize = w
	}

	if err := logging.InitLogger(cfg, sessionID()); err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		return 1
	}

	logA, err := eventlog.Load(logPathA)
	if err != nil {
		return handleErr(err)
	}
	logB, err := eventlog.Load(logPathB)
	if err != nil {
		return handleErr(err)
	}

	eval, err := newEvaluator(debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "construct FHE evaluator: %v\n", err)
		return 1
	}

	result, err := orchestrator.Run(logA, logB, orchestrator.Options{
		Evaluator:      eval,
		WindowSize:     cfg.WindowSize,
		WorkerPoolSize: cfg.WorkerPoolSize,
		UsePSI:         usePSIFlag,
	})
	if err != nil {
		return handleErr(err)
	}

	if err := result.DFG.WriteFile(outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}

	return 0
}

func newEvaluator(debug bool) (fhe.Evaluator, error) {
	if debug {
		return fhe.NewTrivial(), nil
	}
	return fhe.NewCKKSDefault()
}

// handleErr maps a fatal error to its exit code (spec Section 7):
// MalformedInput surfaces as a parse error (2); UnknownActivity and
// MalformedSamples are both protocol errors (3) — a code-table/log
// mismatch and a bad sample-encryption publication are both failures of
// the agreed protocol state between A and B, not of parsing either log on
// its own. Anything else is an unexpected failure (1).
func handleErr(err error) int {
	fmt.Fprintln(os.Stderr, err)
	switch {
	case errors.Is(err, apperr.ErrMalformedInput):
		return 2
	case errors.Is(err, apperr.ErrUnknownActivity), errors.Is(err, apperr.ErrMalformedSamples):
		return 3
	default:
		return 1
	}
}

func sessionID() string {
	return fmt.Sprintf("run-%d", os.Getpid())
}
